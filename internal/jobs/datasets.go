package jobs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/apperr"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/providers"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/types"
)

// Quality issue codes.
const (
	IssueTooFewImages  = "too_few_images"
	IssueTooManyImages = "too_many_images"
)

// InitDataset records a pending dataset of imageCount images for one of
// owner's models and obtains its upload destination. The returned URLs
// are write targets; nothing has been uploaded yet.
func (m *Manager) InitDataset(ctx context.Context, owner, modelID string, imageCount int) (*types.Dataset, error) {
	if imageCount <= 0 {
		return nil, fmt.Errorf("image count must be positive, got %d: %w", imageCount, apperr.ErrInvalidInput)
	}
	if _, err := m.GetModel(ctx, owner, modelID); err != nil {
		return nil, err
	}
	if m.presigner == nil {
		return nil, fmt.Errorf("no object store configured: %w", apperr.ErrPrecondition)
	}

	id := uuid.NewString()
	upload, err := m.presigner.PresignUpload(ctx, providers.DatasetKey(owner, id))
	if err != nil {
		return nil, fmt.Errorf("failed to presign dataset upload: %w", err)
	}

	now := m.clock()
	ds := &types.Dataset{
		ID:         id,
		ModelID:    modelID,
		OwnerID:    owner,
		ImageCount: imageCount,
		Status:     types.DatasetPending,
		UploadURL:  upload.UploadURL,
		PublicURL:  upload.PublicURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.store.Datasets.Create(ctx, ds); err != nil {
		return nil, fmt.Errorf("failed to create dataset: %w", err)
	}

	m.logger.Info("dataset initialised", "id", id, "model_id", modelID, "image_count", imageCount)
	return ds, nil
}

// ValidateDataset runs the quality heuristics on a pending dataset.
// imageCount, when positive, replaces the count given at init (the client
// may have uploaded a different number of images).
//
// The dataset moves to validated or invalid and is returned either way; an
// invalid result also returns an error wrapping apperr.ErrValidationFailed.
func (m *Manager) ValidateDataset(ctx context.Context, owner, id string, imageCount int) (*types.Dataset, error) {
	ds, err := m.GetDataset(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if ds.Status != types.DatasetPending {
		return nil, fmt.Errorf("dataset %s is already %s: %w", id, ds.Status, apperr.ErrPrecondition)
	}
	if imageCount > 0 {
		ds.ImageCount = imageCount
	}

	now := m.clock()
	report := m.assess(ds.ImageCount)
	report.CheckedAt = now
	ds.QualityReport = report
	ds.UpdatedAt = now

	if report.HasErrors() {
		ds.Status = types.DatasetInvalid
	} else {
		ds.Status = types.DatasetValidated
		ds.DatasetHash = datasetHash(ds.ID, ds.ImageCount, now.UnixNano())
	}

	if err := m.store.Datasets.Update(ctx, ds); err != nil {
		return nil, fmt.Errorf("failed to update dataset: %w", err)
	}

	m.logger.Info("dataset validated",
		"id", id,
		"status", ds.Status,
		"image_count", ds.ImageCount,
		"issues", len(report.Issues))

	if ds.Status == types.DatasetInvalid {
		return ds, fmt.Errorf("dataset %s: %w", id, apperr.ErrValidationFailed)
	}
	return ds, nil
}

// GetDataset returns a dataset owned by owner.
func (m *Manager) GetDataset(ctx context.Context, owner, id string) (*types.Dataset, error) {
	ds, err := m.store.Datasets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ds.OwnerID != owner {
		return nil, fmt.Errorf("dataset %s: %w", id, apperr.ErrNotFound)
	}
	return ds, nil
}

// ListDatasets returns owner's datasets, oldest first.
func (m *Manager) ListDatasets(ctx context.Context, owner string) ([]*types.Dataset, error) {
	return m.store.Datasets.List(ctx, owner)
}

func (m *Manager) assess(count int) *types.QualityReport {
	report := &types.QualityReport{
		ImageCount:    count,
		MinImages:     m.cfg.MinImages,
		SoftMaxImages: m.cfg.SoftMaxImages,
		Issues:        []types.QualityIssue{},
	}
	switch {
	case count < m.cfg.MinImages:
		report.Issues = append(report.Issues, types.QualityIssue{
			Code:     IssueTooFewImages,
			Severity: types.SeverityError,
			Message: fmt.Sprintf("dataset has %d images, at least %d required (%d short)",
				count, m.cfg.MinImages, m.cfg.MinImages-count),
		})
	case count > m.cfg.SoftMaxImages:
		report.Issues = append(report.Issues, types.QualityIssue{
			Code:     IssueTooManyImages,
			Severity: types.SeverityWarning,
			Message: fmt.Sprintf("dataset has %d images, more than the recommended %d; training will take longer",
				count, m.cfg.SoftMaxImages),
		})
	}
	return report
}

// datasetHash versions a validated dataset. It is derived from the
// dataset's identity and validation time, not from image bytes.
func datasetHash(id string, count int, atNanos int64) string {
	h := sha256.New()
	h.Write([]byte(id))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(count)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(atNanos, 10)))
	return hex.EncodeToString(h.Sum(nil))
}
