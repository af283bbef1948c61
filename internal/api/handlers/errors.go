package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/beatcanvas-api/internal/agents/composer"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/logger"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/models"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/render"
)

const (
	errorTypeInvalidRequest        = "invalid_request"
	errorTypeInvalidOutput         = "invalid_output"
	errorTypeSchemaViolation       = "schema_violation"
	errorTypeProvider              = "provider_error"
	errorTypeTimeout               = "timeout"
	errorTypeRendererConfiguration = "renderer_configuration"
	errorTypeRendererFailure       = "renderer_failure"
	errorTypeInternal              = "internal_error"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
	RequestID string `json:"request_id,omitempty"`
}

// classifyError maps a pipeline error to its HTTP status and error type.
// Cancellation is checked first because ProviderError unwraps to the
// context error when a request times out mid-call.
func classifyError(err error) (int, string) {
	var (
		validationErr *models.ValidationError
		providerErr   *composer.ProviderError
		toolErr       *render.ToolError
	)

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, errorTypeTimeout
	case errors.Is(err, composer.ErrInvalidOutput):
		return http.StatusServiceUnavailable, errorTypeInvalidOutput
	case errors.As(err, &validationErr):
		return http.StatusServiceUnavailable, errorTypeSchemaViolation
	case errors.As(err, &providerErr):
		return http.StatusServiceUnavailable, errorTypeProvider
	case errors.Is(err, render.ErrConfiguration):
		return http.StatusInternalServerError, errorTypeRendererConfiguration
	case errors.As(err, &toolErr):
		return http.StatusInternalServerError, errorTypeRendererFailure
	default:
		return http.StatusInternalServerError, errorTypeInternal
	}
}

// respondError logs err and writes the classified JSON error body
func respondError(c *gin.Context, msg string, err error) {
	status, errorType := classifyError(err)

	fields := logger.WithContext(c)
	fields["error_type"] = errorType
	fields["status_code"] = status
	if status >= http.StatusInternalServerError {
		logger.Error(msg, err, fields)
	} else {
		logger.Warn(msg, fields)
	}

	c.JSON(status, ErrorResponse{
		Error:     err.Error(),
		ErrorType: errorType,
		RequestID: c.GetString("request_id"),
	})
}

func respondBadRequest(c *gin.Context, err error) {
	logger.Warn("Invalid generation request", logger.Fields{
		"request_id": c.GetString("request_id"),
		"error":      err.Error(),
	})
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:     err.Error(),
		ErrorType: errorTypeInvalidRequest,
		RequestID: c.GetString("request_id"),
	})
}
