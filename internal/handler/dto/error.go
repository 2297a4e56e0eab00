package dto

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mtlprog/wbstatus/internal/conduit"
	"github.com/mtlprog/wbstatus/internal/domain"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorResponse creates a new error response.
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}
}

// MapDomainError maps domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code string, message string) {
	message = err.Error()

	switch {
	// Request errors
	case errors.Is(err, domain.ErrInvalidInterval):
		return http.StatusBadRequest, "INVALID_INTERVAL", message
	case errors.Is(err, domain.ErrInvalidTaskName):
		return http.StatusBadRequest, "INVALID_TASK", message

	// Lookup errors
	case errors.Is(err, domain.ErrTaskNotFound):
		return http.StatusNotFound, "TASK_NOT_FOUND", message

	// Upstream data errors
	case errors.Is(err, domain.ErrDataShape):
		return http.StatusBadGateway, "MALFORMED_TRANSACTION", message
	case errors.Is(err, domain.ErrInvariantViolation):
		return http.StatusBadGateway, "INVARIANT_VIOLATION", message
	case conduit.IsAPIError(err):
		return http.StatusBadGateway, "TRACKER_ERROR", message

	// Default: internal server error
	default:
		slog.Error("unmapped domain error returned to client",
			"error", err,
			"error_type", fmt.Sprintf("%T", err),
		)
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"
	}
}
