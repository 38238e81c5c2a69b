package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	subscriptionsRecorded metric.Int64Counter
	tiersPurchased        metric.Int64Counter
	transfersPosted       metric.Int64Counter
	fundsWithdrawn        metric.Int64Counter
	appliedFeeBps         metric.Int64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "subgrid"
	}
	meter := provider.Meter(name)

	subscriptionsRecorded, err := meter.Int64Counter("subgrid_subscriptions_recorded_total")
	if err != nil {
		return nil, err
	}
	tiersPurchased, err := meter.Int64Counter("subgrid_tiers_purchased_total")
	if err != nil {
		return nil, err
	}
	transfersPosted, err := meter.Int64Counter("subgrid_transfers_posted_total")
	if err != nil {
		return nil, err
	}
	fundsWithdrawn, err := meter.Int64Counter("subgrid_funds_withdrawn_total")
	if err != nil {
		return nil, err
	}
	appliedFeeBps, err := meter.Int64Histogram("subgrid_applied_fee_bps")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		subscriptionsRecorded: subscriptionsRecorded,
		tiersPurchased:        tiersPurchased,
		transfersPosted:       transfersPosted,
		fundsWithdrawn:        fundsWithdrawn,
		appliedFeeBps:         appliedFeeBps,
	}, nil
}

// RecordSubscription increments subscription counts and samples the applied fee.
func (m *Metrics) RecordSubscription(ctx context.Context, asset string, feeBps int32) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("asset", strings.TrimSpace(asset)))
	m.subscriptionsRecorded.Add(ctx, 1, attrs)
	m.appliedFeeBps.Record(ctx, int64(feeBps), attrs)
}

// RecordTierPurchase increments tier purchase counts.
func (m *Metrics) RecordTierPurchase(ctx context.Context, tier string) {
	if m == nil {
		return
	}
	m.tiersPurchased.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", strings.TrimSpace(tier))))
}

// RecordTransfer increments posted transfer counts.
func (m *Metrics) RecordTransfer(ctx context.Context, sourceType string) {
	if m == nil {
		return
	}
	m.transfersPosted.Add(ctx, 1, metric.WithAttributes(attribute.String("source_type", strings.TrimSpace(sourceType))))
}

// RecordWithdrawal increments withdrawal counts.
func (m *Metrics) RecordWithdrawal(ctx context.Context, asset string) {
	if m == nil {
		return
	}
	m.fundsWithdrawn.Add(ctx, 1, metric.WithAttributes(attribute.String("asset", strings.TrimSpace(asset))))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}
