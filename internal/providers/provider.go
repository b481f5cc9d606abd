// Package providers holds clients for the external collaborators of the
// training pipeline: the training worker and the presigned-upload object
// store.
package providers

import (
	"context"
	"time"
)

// DispatchRequest is the body POSTed to the training worker.
type DispatchRequest struct {
	JobID       string         `json:"jobId"`
	DatasetURL  string         `json:"datasetUrl"`
	Params      map[string]any `json:"params"`
	CallbackURL string         `json:"callbackUrl"`
}

// DispatchResult is the worker's 2xx answer.
type DispatchResult struct {
	ExternalJobID string `json:"externalJobId,omitempty"`
}

// Trainer hands training jobs to an external worker.
type Trainer interface {
	// Dispatch sends req. Errors wrap apperr.ErrWorkerUnavailable for
	// transient failures and apperr.ErrWorkerRejected for refusals.
	Dispatch(ctx context.Context, req *DispatchRequest) (*DispatchResult, error)

	// Name returns the trainer identifier (e.g., "http").
	Name() string
}

// RateLimited is implemented by trainers that throttle dispatch.
type RateLimited interface {
	RateLimit() (RateLimiterStatus, bool)
}

// Upload is a presigned write target for a dataset archive.
type Upload struct {
	// UploadURL accepts the archive bytes.
	UploadURL string `json:"uploadUrl"`
	// PublicURL is where readers fetch it once uploaded.
	PublicURL string    `json:"publicUrl"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Presigner issues upload destinations in an object store.
type Presigner interface {
	PresignUpload(ctx context.Context, key string) (*Upload, error)
}
