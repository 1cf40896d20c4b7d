package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/larasedova/alpina-gpt-builder/internal/domain"
	"github.com/larasedova/alpina-gpt-builder/internal/lock"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", domain.NewValidationError("message", "too long"), http.StatusBadRequest, CodeInvalidRequest},
		{"wrapped validation", fmt.Errorf("turn: %w", domain.NewValidationError("bot_id", "inactive")), http.StatusBadRequest, CodeInvalidRequest},
		{"not found", domain.NotFound("bot", 7), http.StatusNotFound, CodeNotFound},
		{"generation", &domain.GenerationError{Model: "m", Err: errors.New("boom")}, http.StatusBadGateway, CodeGeneration},
		{"lock timeout", fmt.Errorf("%w: k", lock.ErrLockTimeout), http.StatusConflict, CodeConflict},
		{"version conflict", domain.ErrVersionConflict, http.StatusConflict, CodeConflict},
		{"canceled", context.Canceled, 499, CodeInternal},
		{"other", errors.New("disk full"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := Classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestClassifyValidationKeepsField(t *testing.T) {
	_, body := Classify(domain.NewValidationError("temperature", "must be between 0 and 2"))

	assert.Equal(t, "temperature", body.Field)
	assert.Equal(t, "must be between 0 and 2", body.Error)
}

func TestClassifyHidesInternalDetails(t *testing.T) {
	_, body := Classify(errors.New("pq: password authentication failed"))

	assert.NotContains(t, body.Error, "password")
}
