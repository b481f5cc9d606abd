package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/apperr"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/types"
)

// ModelInput is the user-editable part of a model.
type ModelInput struct {
	Name        string `json:"name"`
	TriggerWord string `json:"trigger_word,omitempty"`
	Description string `json:"description,omitempty"`
}

// CreateModel creates an empty model owned by owner.
func (m *Manager) CreateModel(ctx context.Context, owner string, in ModelInput) (*types.Model, error) {
	if owner == "" {
		return nil, fmt.Errorf("owner is required: %w", apperr.ErrInvalidInput)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("model name is required: %w", apperr.ErrInvalidInput)
	}

	now := m.clock()
	model := &types.Model{
		ID:          uuid.NewString(),
		OwnerID:     owner,
		Name:        name,
		TriggerWord: strings.TrimSpace(in.TriggerWord),
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.store.Models.Create(ctx, model); err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	m.logger.Info("model created", "id", model.ID, "owner", owner, "name", name)
	return model, nil
}

// GetModel returns a model owned by owner. Models of other users are
// reported as not found.
func (m *Manager) GetModel(ctx context.Context, owner, id string) (*types.Model, error) {
	model, err := m.store.Models.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if model.OwnerID != owner {
		return nil, fmt.Errorf("model %s: %w", id, apperr.ErrNotFound)
	}
	return model, nil
}

// ListModels returns owner's models, oldest first.
func (m *Manager) ListModels(ctx context.Context, owner string) ([]*types.Model, error) {
	return m.store.Models.List(ctx, owner)
}

// GetVersion returns a version owned by owner.
func (m *Manager) GetVersion(ctx context.Context, owner, id string) (*types.Version, error) {
	v, err := m.store.Versions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.OwnerID != owner {
		return nil, fmt.Errorf("version %s: %w", id, apperr.ErrNotFound)
	}
	return v, nil
}

// ListVersions returns the versions of one of owner's models in number
// order.
func (m *Manager) ListVersions(ctx context.Context, owner, modelID string) ([]*types.Version, error) {
	if _, err := m.GetModel(ctx, owner, modelID); err != nil {
		return nil, err
	}
	return m.store.Versions.List(ctx, modelID)
}
