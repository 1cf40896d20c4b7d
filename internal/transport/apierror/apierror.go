// Package apierror maps service errors to transport status codes.
package apierror

import (
	"context"
	"errors"
	"net/http"

	"github.com/larasedova/alpina-gpt-builder/internal/domain"
	"github.com/larasedova/alpina-gpt-builder/internal/lock"
)

// Error codes shared by the HTTP and websocket transports.
const (
	CodeInvalidRequest = "invalid_request"
	CodeNotFound       = "not_found"
	CodeGeneration     = "generation_failed"
	CodeConflict       = "conflict"
	CodeInternal       = "internal_error"
)

// Body is the JSON error payload.
type Body struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// Classify returns the HTTP status and payload for err.
func Classify(err error) (int, Body) {
	var vErr *domain.ValidationError
	var genErr *domain.GenerationError

	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, Body{Error: vErr.Message, Code: CodeInvalidRequest, Field: vErr.Field}
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, Body{Error: err.Error(), Code: CodeInvalidRequest}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, Body{Error: err.Error(), Code: CodeNotFound}
	case errors.As(err, &genErr):
		return http.StatusBadGateway, Body{Error: domain.ResponseApology, Code: CodeGeneration}
	case errors.Is(err, lock.ErrLockTimeout), errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict, Body{Error: "another turn for this session is in progress", Code: CodeConflict}
	case errors.Is(err, context.Canceled):
		// nginx's "client closed request"
		return 499, Body{Error: "request canceled", Code: CodeInternal}
	default:
		return http.StatusInternalServerError, Body{Error: "internal server error", Code: CodeInternal}
	}
}
