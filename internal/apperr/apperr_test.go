package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("job abc: %w", ErrNotFound), http.StatusNotFound},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"validation", ErrValidationFailed, http.StatusUnprocessableEntity},
		{"signature", fmt.Errorf("stale timestamp: %w", ErrSignatureInvalid), http.StatusUnauthorized},
		{"precondition", ErrPrecondition, http.StatusPreconditionFailed},
		{"conflict", ErrConflict, http.StatusConflict},
		{"unavailable", ErrWorkerUnavailable, http.StatusServiceUnavailable},
		{"rejected", ErrWorkerRejected, http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
