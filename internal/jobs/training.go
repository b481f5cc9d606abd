package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/apperr"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/providers"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/types"
)

// mockModeError is recorded on jobs created without a worker.
const mockModeError = "no training worker configured; job recorded in mock mode"

// JobInput requests training of a new version from a validated dataset.
type JobInput struct {
	DatasetID string         `json:"dataset_id"`
	Params    map[string]any `json:"params,omitempty"`
}

// CreateJob creates a Version and a pending Job for a validated dataset
// and dispatches the job to the worker.
//
// The dataset precondition is checked before any network call. When the
// dispatch fails the job is still returned, together with the error:
// rejected jobs are failed, unavailable workers leave the job pending for
// RetryJob.
func (m *Manager) CreateJob(ctx context.Context, owner string, in JobInput) (*types.Job, error) {
	ds, err := m.GetDataset(ctx, owner, in.DatasetID)
	if err != nil {
		return nil, err
	}
	if ds.Status != types.DatasetValidated || ds.DatasetHash == "" {
		return nil, fmt.Errorf("dataset %s is %s, training needs a validated dataset: %w",
			ds.ID, ds.Status, apperr.ErrPrecondition)
	}
	model, err := m.GetModel(ctx, owner, ds.ModelID)
	if err != nil {
		return nil, err
	}

	existing, err := m.store.Versions.List(ctx, model.ID)
	if err != nil {
		return nil, err
	}

	now := m.clock()
	version := &types.Version{
		ID:          uuid.NewString(),
		ModelID:     model.ID,
		OwnerID:     owner,
		Number:      len(existing) + 1,
		DatasetID:   ds.ID,
		DatasetHash: ds.DatasetHash,
		Params:      in.Params,
		Status:      types.VersionTraining,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.store.Versions.Create(ctx, version); err != nil {
		return nil, fmt.Errorf("failed to create version: %w", err)
	}

	job := &types.Job{
		ID:        uuid.NewString(),
		VersionID: version.ID,
		ModelID:   model.ID,
		DatasetID: ds.ID,
		OwnerID:   owner,
		Status:    types.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	m.logger.Info("job created", "id", job.ID, "version_id", version.ID, "dataset_id", ds.ID)

	unlock := m.locks.Lock(job.ID)
	defer unlock()
	return m.dispatch(ctx, job, version, ds)
}

// RetryJob redispatches a pending job, typically one left behind by an
// unavailable worker or created in mock mode.
func (m *Manager) RetryJob(ctx context.Context, owner, id string) (*types.Job, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	job, err := m.GetJob(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if job.Status != types.JobPending {
		return nil, fmt.Errorf("job %s is %s, only pending jobs can be retried: %w", id, job.Status, apperr.ErrPrecondition)
	}
	version, err := m.store.Versions.Get(ctx, job.VersionID)
	if err != nil {
		return nil, err
	}
	ds, err := m.store.Datasets.Get(ctx, job.DatasetID)
	if err != nil {
		return nil, err
	}
	return m.dispatch(ctx, job, version, ds)
}

// GetJob returns a job owned by owner.
func (m *Manager) GetJob(ctx context.Context, owner, id string) (*types.Job, error) {
	job, err := m.store.Jobs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != owner {
		return nil, fmt.Errorf("job %s: %w", id, apperr.ErrNotFound)
	}
	return job, nil
}

// ListJobs returns owner's jobs, oldest first.
func (m *Manager) ListJobs(ctx context.Context, owner string) ([]*types.Job, error) {
	return m.store.Jobs.List(ctx, owner)
}

// dispatch sends job to the worker and records the outcome. The caller
// holds the job lock.
func (m *Manager) dispatch(ctx context.Context, job *types.Job, version *types.Version, ds *types.Dataset) (*types.Job, error) {
	now := m.clock()
	job.UpdatedAt = now

	if m.trainer == nil {
		job.Mock = true
		job.Error = mockModeError
		if err := m.store.Jobs.Update(ctx, job); err != nil {
			return nil, fmt.Errorf("failed to update job: %w", err)
		}
		m.logger.Warn("job not dispatched", "id", job.ID, "reason", "mock mode")
		return job, nil
	}

	job.Mock = false
	job.Attempts++
	job.DispatchedAt = &now

	res, dispatchErr := m.trainer.Dispatch(ctx, &providers.DispatchRequest{
		JobID:       job.ID,
		DatasetURL:  ds.PublicURL,
		Params:      dispatchParams(version.Params),
		CallbackURL: m.cfg.CallbackURL,
	})

	switch {
	case dispatchErr == nil:
		job.Status = types.JobProcessing
		job.ExternalJobID = res.ExternalJobID
		job.Error = ""
	case errors.Is(dispatchErr, apperr.ErrWorkerRejected):
		job.Status = types.JobFailed
		job.Error = dispatchErr.Error()
		finished := m.clock()
		job.FinishedAt = &finished

		version.Status = types.VersionFailed
		version.UpdatedAt = finished
		if err := m.store.Versions.Update(ctx, version); err != nil {
			return nil, fmt.Errorf("failed to update version: %w", err)
		}
	default:
		// Left pending; RetryJob picks it up.
		job.Error = dispatchErr.Error()
		if !errors.Is(dispatchErr, apperr.ErrWorkerUnavailable) {
			dispatchErr = fmt.Errorf("%w: %v", apperr.ErrWorkerUnavailable, dispatchErr)
		}
	}

	if err := m.store.Jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}

	if dispatchErr != nil {
		m.logger.Warn("job dispatch failed",
			"id", job.ID,
			"status", job.Status,
			"attempt", job.Attempts,
			"error", dispatchErr)
		return job, dispatchErr
	}
	m.logger.Info("job dispatched", "id", job.ID, "external_job_id", job.ExternalJobID, "attempt", job.Attempts)
	return job, nil
}

func dispatchParams(p map[string]any) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return p
}
