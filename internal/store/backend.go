// Package store persists the training pipeline, activation bindings, user
// blueprints and compile history. Entities are stored as JSON documents in
// named collections behind a Backend, so the same code runs against memory,
// SQLite or DefraDB.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/apperr"
)

// Collection names. They double as the DefraDB type names in
// internal/schema.
const (
	CollectionModels            = "LoraModel"
	CollectionDatasets          = "Dataset"
	CollectionVersions          = "LoraVersion"
	CollectionJobs              = "TrainingJob"
	CollectionBindings          = "ActivationBinding"
	CollectionBlueprints        = "UserBlueprint"
	CollectionBlueprintVersions = "BlueprintVersion"
	CollectionGenerations       = "Generation"
	CollectionPromptVersions    = "PromptVersion"
)

// Document is one stored entity.
type Document struct {
	ID string
	// Owner is the value List filters on. For most collections it is the
	// owning user; child records use their parent's ID.
	Owner string
	Body  []byte
	// Rev is set by the backend: 1 on create, plus one per write. An
	// Update carrying a non-zero Rev only applies while the stored
	// revision still equals it.
	Rev int64
}

// ErrStale is returned by a conditional Update whose revision no longer
// matches. It also matches apperr.ErrConflict.
var ErrStale = errors.New("document changed since it was read")

// Backend is a document store. Implementations must be safe for
// concurrent use.
//
// Get, Update and Delete return an error wrapping apperr.ErrNotFound for a
// missing ID. Create returns apperr.ErrConflict when the ID is taken.
// Update with doc.Rev set returns ErrStale when another write got there
// first. Upsert creates or replaces in one step. List returns documents in
// insertion order; an empty owner lists everything.
type Backend interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Create(ctx context.Context, collection string, doc Document) error
	Update(ctx context.Context, collection string, doc Document) error
	Upsert(ctx context.Context, collection string, doc Document) error
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection, owner string) ([]Document, error)
	Ping(ctx context.Context) error
	Close() error
}

func notFound(collection, id string) error {
	return fmt.Errorf("%s %s: %w", collection, id, apperr.ErrNotFound)
}

func conflict(collection, id string) error {
	return fmt.Errorf("%s %s already exists: %w", collection, id, apperr.ErrConflict)
}

func stale(collection, id string, rev int64) error {
	return fmt.Errorf("%s %s at revision %d: %w: %w", collection, id, rev, ErrStale, apperr.ErrConflict)
}
