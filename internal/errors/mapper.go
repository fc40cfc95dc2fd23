// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// Sentinel domain errors raised by the service layer.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidValue = errors.New("invalid rating value")
	ErrForbidden    = errors.New("not allowed")
	ErrConflict     = errors.New("already exists")
)

// Map converts repo/infra errors into an HTTP status + safe message.
// Keeps handlers clean by centralizing error mapping.
func Map(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""

	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, "record not found"

	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidValue):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, err.Error()

	case errors.Is(err, ErrConflict):
		return http.StatusConflict, err.Error()

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"

	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, "request was canceled"

	default:
		return http.StatusInternalServerError, "internal error"
	}
}
