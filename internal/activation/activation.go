// Package activation binds a user to the trained version the compiler
// blends into their prompts.
package activation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/apperr"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/compiler"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/store"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/types"
)

// DefaultWeight is used when an activation does not name one.
const DefaultWeight = 0.8

// Service manages activation bindings. A user has at most one; the last
// activation wins.
type Service struct {
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates an activation service.
func NewService(st *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, logger: logger, now: time.Now}
}

// Activate binds user to versionID. The version must belong to one of the
// user's models and already carry an artifact. A nil weight means
// DefaultWeight; others are clamped to [0, 1].
func (s *Service) Activate(ctx context.Context, user, versionID string, weight *float64) (*types.ActivationBinding, error) {
	version, _, err := s.usableVersion(ctx, user, versionID)
	if err != nil {
		return nil, err
	}

	binding := &types.ActivationBinding{
		UserID:      user,
		VersionID:   version.ID,
		ModelID:     version.ModelID,
		Weight:      NormalizeWeight(weight),
		ActivatedAt: s.now().UTC(),
	}
	if err := s.store.Bindings.Put(ctx, binding); err != nil {
		return nil, fmt.Errorf("failed to store activation: %w", err)
	}

	s.logger.Info("activation set", "user", user, "version_id", version.ID, "weight", binding.Weight)
	return binding, nil
}

// Get returns user's binding.
func (s *Service) Get(ctx context.Context, user string) (*types.ActivationBinding, error) {
	return s.store.Bindings.Get(ctx, user)
}

// Clear removes user's binding. Clearing an absent binding is not an error.
func (s *Service) Clear(ctx context.Context, user string) error {
	err := s.store.Bindings.Delete(ctx, user)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	s.logger.Info("activation cleared", "user", user)
	return nil
}

// Resolve returns the adapter for user's binding, or nil when the user has
// none. A binding whose version has since disappeared resolves to nil.
func (s *Service) Resolve(ctx context.Context, user string) (*compiler.Adapter, error) {
	binding, err := s.store.Bindings.Get(ctx, user)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	version, model, err := s.usableVersion(ctx, user, binding.VersionID)
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrPrecondition) {
		s.logger.Warn("stale activation ignored", "user", user, "version_id", binding.VersionID, "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return adapterFor(version, model, binding.Weight), nil
}

// AdapterFor resolves an explicit version reference without touching the
// stored binding. It applies the same checks as Activate.
func (s *Service) AdapterFor(ctx context.Context, user, versionID string, weight *float64) (*compiler.Adapter, error) {
	version, model, err := s.usableVersion(ctx, user, versionID)
	if err != nil {
		return nil, err
	}
	return adapterFor(version, model, NormalizeWeight(weight)), nil
}

// usableVersion loads a version and its model and checks that user owns
// the model and the version has an artifact.
func (s *Service) usableVersion(ctx context.Context, user, versionID string) (*types.Version, *types.Model, error) {
	if versionID == "" {
		return nil, nil, fmt.Errorf("version id is required: %w", apperr.ErrInvalidInput)
	}
	version, err := s.store.Versions.Get(ctx, versionID)
	if err != nil {
		return nil, nil, err
	}
	model, err := s.store.Models.Get(ctx, version.ModelID)
	if err != nil {
		return nil, nil, err
	}
	if model.OwnerID != user {
		return nil, nil, fmt.Errorf("version %s: %w", versionID, apperr.ErrNotFound)
	}
	if version.ArtifactURL == "" {
		return nil, nil, fmt.Errorf("version %s has no trained artifact yet: %w", versionID, apperr.ErrPrecondition)
	}
	return version, model, nil
}

// NormalizeWeight applies the default and clamps to [0, 1].
func NormalizeWeight(w *float64) float64 {
	if w == nil || math.IsNaN(*w) {
		return DefaultWeight
	}
	return math.Min(1, math.Max(0, *w))
}

func adapterFor(v *types.Version, m *types.Model, weight float64) *compiler.Adapter {
	return &compiler.Adapter{
		VersionID:     v.ID,
		Name:          m.Name,
		TriggerWord:   m.TriggerWord,
		Weight:        weight,
		ArtifactURL:   v.ArtifactURL,
		PreviewImages: v.PreviewImages,
	}
}
