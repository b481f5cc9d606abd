package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/apperr"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/catalog"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/types"
)

// BlueprintInput is the editable content of a user blueprint.
type BlueprintInput struct {
	Name        string   `json:"name"`
	Category    string   `json:"category,omitempty"`
	Blocks      []string `json:"blocks"`
	Constraints []string `json:"constraints,omitempty"`
	Note        string   `json:"note,omitempty"`
}

// BlueprintView is a user blueprint with its latest version.
type BlueprintView struct {
	types.UserBlueprint
	Latest *types.BlueprintVersion `json:"latest"`
}

// CatalogBlueprint renders the view as a blueprint the compiler accepts.
func (v *BlueprintView) CatalogBlueprint() *catalog.Blueprint {
	return &catalog.Blueprint{
		ID:          v.ID,
		Name:        v.Name,
		Category:    v.Category,
		Blocks:      v.Latest.Blocks,
		Constraints: v.Latest.Constraints,
	}
}

// CreateUserBlueprint stores a blueprint and its first version. Every
// block must exist in the current catalog.
func (s *Service) CreateUserBlueprint(ctx context.Context, owner string, in BlueprintInput) (*BlueprintView, error) {
	if owner == "" {
		return nil, fmt.Errorf("owner is required: %w", apperr.ErrInvalidInput)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("blueprint name is required: %w", apperr.ErrInvalidInput)
	}

	id := uuid.NewString()
	if err := s.validateBlocks(id, in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	bp := &types.UserBlueprint{
		ID:            id,
		OwnerID:       owner,
		Name:          name,
		Category:      in.Category,
		LatestVersion: 1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	v := newBlueprintVersion(id, 1, in)
	v.CreatedAt = now

	// Version first: a blueprint row never points at a missing version.
	if err := s.store.BlueprintVersions.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to save blueprint version: %w", err)
	}
	if err := s.store.Blueprints.Create(ctx, bp); err != nil {
		return nil, fmt.Errorf("failed to save blueprint: %w", err)
	}

	s.logger.Info("user blueprint created", "id", id, "owner", owner, "blocks", len(v.Blocks))
	return &BlueprintView{UserBlueprint: *bp, Latest: v}, nil
}

// UpdateUserBlueprint appends a new version. Earlier versions are kept
// unchanged.
func (s *Service) UpdateUserBlueprint(ctx context.Context, owner, id string, in BlueprintInput) (*BlueprintView, error) {
	bp, err := s.ownedBlueprint(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateBlocks(id, in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	v := newBlueprintVersion(id, bp.LatestVersion+1, in)
	v.CreatedAt = now
	if err := s.store.BlueprintVersions.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to save blueprint version: %w", err)
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		bp.Name = name
	}
	if in.Category != "" {
		bp.Category = in.Category
	}
	bp.LatestVersion = v.Number
	bp.UpdatedAt = now
	if err := s.store.Blueprints.Update(ctx, bp); err != nil {
		return nil, fmt.Errorf("failed to update blueprint: %w", err)
	}

	s.logger.Info("user blueprint updated", "id", id, "version", v.Number)
	return &BlueprintView{UserBlueprint: *bp, Latest: v}, nil
}

// GetUserBlueprint returns one of owner's blueprints with its latest
// version.
func (s *Service) GetUserBlueprint(ctx context.Context, owner, id string) (*BlueprintView, error) {
	bp, err := s.ownedBlueprint(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	v, err := s.store.BlueprintVersions.Get(ctx, blueprintVersionID(id, bp.LatestVersion))
	if err != nil {
		return nil, err
	}
	return &BlueprintView{UserBlueprint: *bp, Latest: v}, nil
}

// ListUserBlueprints returns owner's blueprints, oldest first.
func (s *Service) ListUserBlueprints(ctx context.Context, owner string) ([]*types.UserBlueprint, error) {
	return s.store.Blueprints.List(ctx, owner)
}

// ListBlueprintVersions returns every version of one of owner's
// blueprints in number order.
func (s *Service) ListBlueprintVersions(ctx context.Context, owner, id string) ([]*types.BlueprintVersion, error) {
	if _, err := s.ownedBlueprint(ctx, owner, id); err != nil {
		return nil, err
	}
	return s.store.BlueprintVersions.List(ctx, id)
}

func (s *Service) ownedBlueprint(ctx context.Context, owner, id string) (*types.UserBlueprint, error) {
	bp, err := s.store.Blueprints.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if bp.OwnerID != owner {
		return nil, fmt.Errorf("blueprint %s: %w", id, apperr.ErrNotFound)
	}
	return bp, nil
}

func (s *Service) validateBlocks(id string, in BlueprintInput) error {
	err := s.catalog.Snapshot().ValidateBlueprint(&catalog.Blueprint{ID: id, Blocks: in.Blocks})
	if err != nil {
		return fmt.Errorf("%v: %w", err, apperr.ErrInvalidInput)
	}
	return nil
}

// Version IDs are derived so the latest version is a direct lookup.
func blueprintVersionID(blueprintID string, n int) string {
	return fmt.Sprintf("%s-v%d", blueprintID, n)
}

func newBlueprintVersion(blueprintID string, n int, in BlueprintInput) *types.BlueprintVersion {
	return &types.BlueprintVersion{
		ID:          blueprintVersionID(blueprintID, n),
		BlueprintID: blueprintID,
		Number:      n,
		Blocks:      append([]string(nil), in.Blocks...),
		Constraints: append([]string(nil), in.Constraints...),
		Note:        in.Note,
	}
}
