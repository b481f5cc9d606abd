package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Collection is a typed view over one backend collection.
type Collection[T any] struct {
	backend Backend
	name    string
	idOf    func(*T) string
	ownerOf func(*T) string
}

// NewCollection binds a collection name to an entity type. idOf and ownerOf
// extract the document ID and List key from an entity.
func NewCollection[T any](b Backend, name string, idOf, ownerOf func(*T) string) *Collection[T] {
	return &Collection[T]{backend: b, name: name, idOf: idOf, ownerOf: ownerOf}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Get loads the entity with id.
func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	doc, err := c.backend.Get(ctx, c.name, id)
	if err != nil {
		return nil, err
	}
	return c.decode(doc)
}

// GetRev loads the entity with id along with its revision, for a later
// UpdateRev.
func (c *Collection[T]) GetRev(ctx context.Context, id string) (*T, int64, error) {
	doc, err := c.backend.Get(ctx, c.name, id)
	if err != nil {
		return nil, 0, err
	}
	v, err := c.decode(doc)
	if err != nil {
		return nil, 0, err
	}
	return v, doc.Rev, nil
}

// Create stores a new entity.
func (c *Collection[T]) Create(ctx context.Context, v *T) error {
	doc, err := c.encode(v)
	if err != nil {
		return err
	}
	return c.backend.Create(ctx, c.name, doc)
}

// Update replaces a stored entity.
func (c *Collection[T]) Update(ctx context.Context, v *T) error {
	doc, err := c.encode(v)
	if err != nil {
		return err
	}
	return c.backend.Update(ctx, c.name, doc)
}

// UpdateRev replaces a stored entity only if it is still at rev. Otherwise
// it returns an error matching ErrStale.
func (c *Collection[T]) UpdateRev(ctx context.Context, v *T, rev int64) error {
	doc, err := c.encode(v)
	if err != nil {
		return err
	}
	if rev <= 0 {
		return fmt.Errorf("%s %s: conditional update needs a revision", c.name, doc.ID)
	}
	doc.Rev = rev
	return c.backend.Update(ctx, c.name, doc)
}

// Put creates the entity, or replaces it if the ID exists. Concurrent Puts
// of one ID all succeed and the last one is kept.
func (c *Collection[T]) Put(ctx context.Context, v *T) error {
	doc, err := c.encode(v)
	if err != nil {
		return err
	}
	return c.backend.Upsert(ctx, c.name, doc)
}

// Delete removes the entity with id.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.backend.Delete(ctx, c.name, id)
}

// List returns every entity whose owner key matches, oldest first.
func (c *Collection[T]) List(ctx context.Context, owner string) ([]*T, error) {
	docs, err := c.backend.List(ctx, c.name, owner)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(docs))
	for i := range docs {
		v, err := c.decode(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *Collection[T]) encode(v *T) (Document, error) {
	id := c.idOf(v)
	if id == "" {
		return Document{}, fmt.Errorf("%s: empty id", c.name)
	}
	body, err := json.Marshal(v)
	if err != nil {
		return Document{}, fmt.Errorf("failed to encode %s %s: %w", c.name, id, err)
	}
	return Document{ID: id, Owner: c.ownerOf(v), Body: body}, nil
}

func (c *Collection[T]) decode(doc *Document) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(doc.Body, v); err != nil {
		return nil, fmt.Errorf("failed to decode %s %s: %w", c.name, doc.ID, err)
	}
	return v, nil
}
