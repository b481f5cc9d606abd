package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/apperr"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/signing"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/store"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/types"
)

// Callback is the body the worker POSTs to the training webhook.
type Callback struct {
	JobID         string          `json:"jobId"`
	Status        types.JobStatus `json:"status"`
	LogsURL       string          `json:"logsUrl,omitempty"`
	Error         string          `json:"error,omitempty"`
	ArtifactURL   string          `json:"artifactUrl,omitempty"`
	Checksum      string          `json:"checksum,omitempty"`
	PreviewImages []string        `json:"previewImages,omitempty"`
}

// Outcome says what a callback did.
type Outcome string

const (
	// OutcomeApplied means the job (and possibly its version) changed.
	OutcomeApplied Outcome = "applied"
	// OutcomeUnchanged means the callback agreed with the recorded state.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeIgnored means the job was already terminal and the callback
	// would have moved it elsewhere.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeDuplicate means this exact signed delivery was already handled.
	OutcomeDuplicate Outcome = "duplicate"
)

// CallbackResult is returned from a handled callback.
type CallbackResult struct {
	JobID   string          `json:"job_id,omitempty"`
	Status  types.JobStatus `json:"status,omitempty"`
	Outcome Outcome         `json:"outcome"`
}

// HandleWebhook reads the signature headers and handles body. See
// HandleCallback.
func (m *Manager) HandleWebhook(ctx context.Context, h http.Header, body []byte) (*CallbackResult, error) {
	sig, ts, err := signing.FromHeaders(h)
	if err != nil {
		m.logger.Warn("webhook rejected", "reason", "potential forgery", "error", err)
		return nil, err
	}
	return m.HandleCallback(ctx, sig, ts, body)
}

// HandleCallback verifies and applies a worker callback. The raw body is
// authenticated before it is parsed.
//
// Callbacks are idempotent. A redelivery of an already handled request is
// acknowledged as a duplicate. Once a job is terminal further callbacks
// never change it; a completed callback naming a different artifact than
// the recorded one fails with apperr.ErrConflict.
func (m *Manager) HandleCallback(ctx context.Context, signature string, timestamp int64, body []byte) (*CallbackResult, error) {
	if err := m.signer.Verify(signature, timestamp, body); err != nil {
		m.logger.Warn("webhook rejected", "reason", "potential forgery", "error", err)
		return nil, err
	}
	return m.accept(ctx, signing.Canonical(signature), m.signer.ReplayTTL(timestamp), body)
}

func (m *Manager) accept(ctx context.Context, signature string, ttl time.Duration, body []byte) (*CallbackResult, error) {
	fresh, err := m.replay.Observe(ctx, signature, ttl)
	if err != nil {
		return nil, fmt.Errorf("replay guard: %w", err)
	}
	if !fresh {
		m.logger.Info("webhook duplicate delivery acknowledged")
		return &CallbackResult{Outcome: OutcomeDuplicate}, nil
	}

	cb, err := parseCallback(body)
	if err == nil {
		var res *CallbackResult
		res, err = m.apply(ctx, cb)
		if err == nil {
			return res, nil
		}
	}

	// A failed delivery may be retried by the worker with the same
	// signature, so it must not count as seen.
	if fErr := m.replay.Forget(ctx, signature); fErr != nil {
		m.logger.Warn("failed to release webhook signature", "error", fErr)
	}
	return nil, err
}

func parseCallback(body []byte) (*Callback, error) {
	var cb Callback
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, fmt.Errorf("malformed callback body: %v: %w", err, apperr.ErrInvalidInput)
	}
	if cb.JobID == "" {
		return nil, fmt.Errorf("callback has no jobId: %w", apperr.ErrInvalidInput)
	}
	switch cb.Status {
	case types.JobPending, types.JobProcessing, types.JobCompleted, types.JobFailed:
	default:
		return nil, fmt.Errorf("callback status %q is not a job status: %w", cb.Status, apperr.ErrInvalidInput)
	}
	return &cb, nil
}

// staleAttempts bounds how often a callback re-reads after losing a write
// race to another delivery.
const staleAttempts = 5

// apply updates the job and version. The job lock orders deliveries inside
// this process; across replicas both writes are conditional on the
// revisions read, so the first completed callback wins and a loser re-reads
// and is judged against the winner's result.
func (m *Manager) apply(ctx context.Context, cb *Callback) (*CallbackResult, error) {
	unlock := m.locks.Lock(cb.JobID)
	defer unlock()

	return retry.DoWithData(
		func() (*CallbackResult, error) { return m.applyOnce(ctx, cb) },
		retry.Context(ctx),
		retry.Attempts(staleAttempts),
		retry.Delay(5*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, store.ErrStale) }),
		retry.OnRetry(func(n uint, err error) {
			m.logger.Debug("webhook lost write race, re-reading", "job_id", cb.JobID, "attempt", n+1)
		}),
	)
}

func (m *Manager) applyOnce(ctx context.Context, cb *Callback) (*CallbackResult, error) {
	job, jobRev, err := m.store.Jobs.GetRev(ctx, cb.JobID)
	if err != nil {
		return nil, err
	}
	version, versionRev, err := m.store.Versions.GetRev(ctx, job.VersionID)
	if err != nil {
		return nil, err
	}
	result := &CallbackResult{JobID: job.ID}

	if job.Status.Terminal() {
		result.Status = job.Status
		return m.settled(job, version, cb, result)
	}

	// A pending callback never moves a dispatched job backwards.
	if cb.Status == types.JobPending && job.Status == types.JobProcessing {
		result.Status = job.Status
		result.Outcome = OutcomeIgnored
		return result, nil
	}

	now := m.clock()
	switch cb.Status {
	case types.JobCompleted:
		if version.ArtifactURL != "" && cb.ArtifactURL != "" && version.ArtifactURL != cb.ArtifactURL {
			return nil, fmt.Errorf("version %s already has artifact %s: %w", version.ID, version.ArtifactURL, apperr.ErrConflict)
		}
		if cb.ArtifactURL != "" && version.ArtifactURL == "" {
			version.ArtifactURL = cb.ArtifactURL
			version.Checksum = cb.Checksum
			version.PreviewImages = cb.PreviewImages
			version.Status = types.VersionReady
			version.TrainedAt = &now
		} else if version.ArtifactURL == "" {
			version.Status = types.VersionFailed
		}
		version.UpdatedAt = now
		// Version first: a crash between the writes leaves a job a retried
		// delivery can still complete.
		if err := m.store.Versions.UpdateRev(ctx, version, versionRev); err != nil {
			return nil, fmt.Errorf("failed to update version: %w", err)
		}
	case types.JobFailed:
		version.Status = types.VersionFailed
		version.UpdatedAt = now
		if err := m.store.Versions.UpdateRev(ctx, version, versionRev); err != nil {
			return nil, fmt.Errorf("failed to update version: %w", err)
		}
	}

	job.Status = cb.Status
	if cb.LogsURL != "" {
		job.LogsURL = cb.LogsURL
	}
	job.Error = cb.Error
	if cb.Status == types.JobCompleted && version.ArtifactURL == "" && job.Error == "" {
		job.Error = "worker reported completion without an artifact"
	}
	if job.Status.Terminal() {
		job.FinishedAt = &now
	}
	job.UpdatedAt = now
	if err := m.store.Jobs.UpdateRev(ctx, job, jobRev); err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}

	m.logger.Info("webhook applied",
		"job_id", job.ID,
		"status", job.Status,
		"version_id", version.ID,
		"artifact", version.ArtifactURL != "")

	result.Status = job.Status
	result.Outcome = OutcomeApplied
	return result, nil
}

// settled handles a callback for a terminal job. Nothing is written.
func (m *Manager) settled(job *types.Job, version *types.Version, cb *Callback, result *CallbackResult) (*CallbackResult, error) {
	if cb.Status != job.Status {
		m.logger.Info("webhook ignored", "job_id", job.ID, "status", job.Status, "callback_status", cb.Status)
		result.Outcome = OutcomeIgnored
		return result, nil
	}
	if cb.Status == types.JobCompleted && cb.ArtifactURL != "" && cb.ArtifactURL != version.ArtifactURL {
		m.logger.Warn("webhook conflicts with recorded artifact",
			"job_id", job.ID,
			"version_id", version.ID,
			"recorded", version.ArtifactURL,
			"received", cb.ArtifactURL)
		return nil, fmt.Errorf("job %s already completed with a different artifact: %w", job.ID, apperr.ErrConflict)
	}
	result.Outcome = OutcomeUnchanged
	return result, nil
}
