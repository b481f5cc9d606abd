package store

import (
	"context"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/types"
)

// Store groups the typed collections of the training pipeline and user
// blueprints over one backend.
type Store struct {
	backend Backend

	Models            *Collection[types.Model]
	Datasets          *Collection[types.Dataset]
	Versions          *Collection[types.Version]
	Jobs              *Collection[types.Job]
	Bindings          *Collection[types.ActivationBinding]
	Blueprints        *Collection[types.UserBlueprint]
	BlueprintVersions *Collection[types.BlueprintVersion]
}

// New creates a Store over b.
func New(b Backend) *Store {
	return &Store{
		backend: b,
		Models: NewCollection(b, CollectionModels,
			func(m *types.Model) string { return m.ID },
			func(m *types.Model) string { return m.OwnerID }),
		Datasets: NewCollection(b, CollectionDatasets,
			func(d *types.Dataset) string { return d.ID },
			func(d *types.Dataset) string { return d.OwnerID }),
		// Versions are listed per model.
		Versions: NewCollection(b, CollectionVersions,
			func(v *types.Version) string { return v.ID },
			func(v *types.Version) string { return v.ModelID }),
		Jobs: NewCollection(b, CollectionJobs,
			func(j *types.Job) string { return j.ID },
			func(j *types.Job) string { return j.OwnerID }),
		// One binding per user, keyed by the user ID.
		Bindings: NewCollection(b, CollectionBindings,
			func(a *types.ActivationBinding) string { return a.UserID },
			func(a *types.ActivationBinding) string { return a.UserID }),
		Blueprints: NewCollection(b, CollectionBlueprints,
			func(bp *types.UserBlueprint) string { return bp.ID },
			func(bp *types.UserBlueprint) string { return bp.OwnerID }),
		BlueprintVersions: NewCollection(b, CollectionBlueprintVersions,
			func(v *types.BlueprintVersion) string { return v.ID },
			func(v *types.BlueprintVersion) string { return v.BlueprintID }),
	}
}

// Backend returns the underlying document store.
func (s *Store) Backend() Backend {
	return s.backend
}

// Ping checks the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
