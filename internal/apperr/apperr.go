// Package apperr defines the error taxonomy shared by the compiler, the
// training pipeline and the HTTP layer.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound is returned for a missing catalog entry, blueprint, job,
	// dataset, model or version.
	ErrNotFound = errors.New("not found")

	// ErrValidationFailed marks a dataset that did not pass quality checks.
	ErrValidationFailed = errors.New("validation failed")

	// ErrSignatureInvalid covers stale timestamps and HMAC mismatches.
	ErrSignatureInvalid = errors.New("signature invalid")

	// ErrWorkerUnavailable is a transient dispatch failure. The job stays
	// pending and may be retried.
	ErrWorkerUnavailable = errors.New("worker unavailable")

	// ErrWorkerRejected means the worker answered with a non-2xx status.
	ErrWorkerRejected = errors.New("worker rejected")

	// ErrPrecondition is returned when an entity is not in the state an
	// operation requires.
	ErrPrecondition = errors.New("precondition failed")

	// ErrConflict is returned when a write would contradict an already
	// recorded value.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
)

// HTTPStatus maps an error onto the status code the API returns for it.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrValidationFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrSignatureInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPrecondition):
		return http.StatusPreconditionFailed
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrWorkerUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrWorkerRejected):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
