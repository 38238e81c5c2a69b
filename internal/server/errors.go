package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/subgridhq/subgrid/internal/authz"
	customfeedomain "github.com/subgridhq/subgrid/internal/customfee/domain"
	directorydomain "github.com/subgridhq/subgrid/internal/directory/domain"
	merchantdomain "github.com/subgridhq/subgrid/internal/merchant/domain"
	registrydomain "github.com/subgridhq/subgrid/internal/registry/domain"
	tierdomain "github.com/subgridhq/subgrid/internal/tier/domain"
	treasurydomain "github.com/subgridhq/subgrid/internal/treasury/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case errors.Is(err, authz.ErrNotAuthorized),
		errors.Is(err, merchantdomain.ErrNotAuthorized):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, registrydomain.ErrSystemPaused),
		errors.Is(err, merchantdomain.ErrSystemPaused):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, registrydomain.ErrInvalidAddress),
		errors.Is(err, registrydomain.ErrInvalidInterval),
		errors.Is(err, merchantdomain.ErrInvalidAddress),
		errors.Is(err, merchantdomain.ErrInvalidInterval),
		errors.Is(err, merchantdomain.ErrPriceNotSet),
		errors.Is(err, merchantdomain.ErrInvalidToken),
		errors.Is(err, tierdomain.ErrFeeRateTooHigh),
		errors.Is(err, tierdomain.ErrInvalidName),
		errors.Is(err, tierdomain.ErrInvalidPrice),
		errors.Is(err, tierdomain.ErrInvalidDuration),
		errors.Is(err, customfeedomain.ErrFeeRateTooHigh),
		errors.Is(err, treasurydomain.ErrInvalidAmount),
		errors.Is(err, treasurydomain.ErrInvalidAsset),
		errors.Is(err, treasurydomain.ErrSameAccount),
		errors.Is(err, authz.ErrInvalidActor):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, directorydomain.ErrUnknownService),
		errors.Is(err, tierdomain.ErrUnknownTier),
		errors.Is(err, customfeedomain.ErrNotSet),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, directorydomain.ErrAlreadyRegistered),
		errors.Is(err, registrydomain.ErrTierNotPurchasable),
		errors.Is(err, merchantdomain.ErrReentrancyBlocked),
		errors.Is(err, merchantdomain.ErrNoFunds),
		errors.Is(err, merchantdomain.ErrNoBalance),
		errors.Is(err, treasurydomain.ErrInsufficientFunds):
		return true
	default:
		return false
	}
}
