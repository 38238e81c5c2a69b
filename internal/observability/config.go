package observability

import (
	"strings"

	"github.com/subgridhq/subgrid/internal/config"
)

// Config holds observability configuration derived from application config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "subgrid"
	}

	return Config{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Version:     cfg.AppVersion,

		LogLevel:  strings.ToLower(strings.TrimSpace(cfg.LogLevel)),
		LogFormat: strings.ToLower(strings.TrimSpace(cfg.LogFormat)),

		OtelEnabled:          cfg.OtelEnabled,
		OtelExporterEndpoint: cfg.OtelExporterEndpoint,
		OtelExporterProtocol: cfg.OtelExporterProtocol,
	}
}

func (c Config) Debug() bool {
	return c.Environment != "production"
}
