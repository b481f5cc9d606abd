package prompts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/apperr"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/catalog"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/compiler"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/store"
)

// HistoryLimit caps History when no limit is given.
const HistoryLimit = 50

// AdapterSource resolves the adapter blended into a user's compile.
type AdapterSource interface {
	Resolve(ctx context.Context, user string) (*compiler.Adapter, error)
	AdapterFor(ctx context.Context, user, versionID string, weight *float64) (*compiler.Adapter, error)
}

// Service compiles prompts and manages their history and user blueprints.
type Service struct {
	catalog     *catalog.Catalog
	store       *store.Store
	adapters    AdapterSource
	generations *store.Collection[Generation]
	versions    *store.Collection[PromptVersion]
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates the compile service. adapters may be nil, in which
// case compiles never carry an adapter.
func NewService(cat *catalog.Catalog, st *store.Store, adapters AdapterSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	b := st.Backend()
	return &Service{
		catalog:  cat,
		store:    st,
		adapters: adapters,
		generations: store.NewCollection(b, store.CollectionGenerations,
			func(g *Generation) string { return g.ID },
			func(g *Generation) string { return g.UserID }),
		// Prompt versions are listed per generation.
		versions: store.NewCollection(b, store.CollectionPromptVersions,
			func(v *PromptVersion) string { return v.ID },
			func(v *PromptVersion) string { return v.GenerationID }),
		logger: logger,
		now:    time.Now,
	}
}

// Compile runs in.Request against the current catalog snapshot and
// records the result. The blueprint may be a catalog blueprint or one of
// the user's own; the latter is visible to this compile only.
func (s *Service) Compile(ctx context.Context, user string, in CompileInput) (*Generation, error) {
	if user == "" {
		return nil, fmt.Errorf("user is required: %w", apperr.ErrInvalidInput)
	}
	snap := s.catalog.Snapshot()

	gen := &Generation{ID: uuid.NewString(), UserID: user}

	var opts []compiler.Option
	if _, ok := snap.Blueprint(in.BlueprintID); !ok && in.BlueprintID != "" {
		view, err := s.GetUserBlueprint(ctx, user, in.BlueprintID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		// Unknown IDs fall through to the compiler's NotFound.
		if view != nil {
			opts = append(opts, compiler.WithVirtualBlueprint(view.CatalogBlueprint()))
			gen.UserBlueprintID = view.ID
			gen.BlueprintNumber = view.Latest.Number
		}
	}

	adapter, err := s.adapter(ctx, user, in)
	if err != nil {
		return nil, err
	}

	res, err := compiler.New(snap, opts...).Compile(in.Request, adapter)
	if err != nil {
		return nil, err
	}

	gen.Request = in.Request
	gen.Result = *res
	gen.PromptHash = HashText(res.Prompt)
	gen.CreatedAt = s.now().UTC()
	if err := s.generations.Create(ctx, gen); err != nil {
		return nil, fmt.Errorf("failed to record generation: %w", err)
	}

	s.logger.Info("prompt compiled",
		"generation_id", gen.ID,
		"user", user,
		"profile", res.Metadata.ProfileID,
		"blueprint", res.Metadata.BlueprintID,
		"adapter_mode", res.Metadata.AdapterMode,
		"score", res.Score,
		"warnings", len(res.Warnings))
	return gen, nil
}

func (s *Service) adapter(ctx context.Context, user string, in CompileInput) (*compiler.Adapter, error) {
	if s.adapters == nil || in.SkipActivation {
		return nil, nil
	}
	if in.ActivationVersionID != "" {
		return s.adapters.AdapterFor(ctx, user, in.ActivationVersionID, in.AdapterWeight)
	}
	a, err := s.adapters.Resolve(ctx, user)
	if err != nil || a == nil || in.AdapterWeight == nil {
		return a, err
	}
	// Weight override on the bound version.
	return s.adapters.AdapterFor(ctx, user, a.VersionID, in.AdapterWeight)
}

// History returns user's generations, newest first. limit <= 0 means
// HistoryLimit.
func (s *Service) History(ctx context.Context, user string, limit int) ([]*Generation, error) {
	all, err := s.generations.List(ctx, user)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = HistoryLimit
	}
	out := make([]*Generation, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// GetGeneration returns one of user's generations.
func (s *Service) GetGeneration(ctx context.Context, user, id string) (*Generation, error) {
	g, err := s.generations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.UserID != user {
		return nil, fmt.Errorf("generation %s: %w", id, apperr.ErrNotFound)
	}
	return g, nil
}

// SaveVersion snapshots a generation's prompt under label.
func (s *Service) SaveVersion(ctx context.Context, user, generationID, label string) (*PromptVersion, error) {
	g, err := s.GetGeneration(ctx, user, generationID)
	if err != nil {
		return nil, err
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = "v" + g.CreatedAt.Format("20060102-150405")
	}

	v := &PromptVersion{
		ID:           uuid.NewString(),
		GenerationID: g.ID,
		UserID:       user,
		Label:        label,
		Prompt:       g.Result.Prompt,
		PromptHash:   g.PromptHash,
		Seed:         g.Result.Seed,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.versions.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to save prompt version: %w", err)
	}
	s.logger.Info("prompt version saved", "id", v.ID, "generation_id", g.ID, "label", label)
	return v, nil
}

// ListVersions returns the saved versions of one of user's generations.
func (s *Service) ListVersions(ctx context.Context, user, generationID string) ([]*PromptVersion, error) {
	if _, err := s.GetGeneration(ctx, user, generationID); err != nil {
		return nil, err
	}
	return s.versions.List(ctx, generationID)
}
