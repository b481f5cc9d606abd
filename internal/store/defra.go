package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/apperr"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/defra"
)

// Defra is a Backend over a DefraDB node. Each collection is a GraphQL
// type from internal/schema with key, owner and body fields.
type Defra struct {
	client *defra.Client
}

// NewDefra creates a backend over client. Schemas must already be applied.
func NewDefra(client *defra.Client) *Defra {
	return &Defra{client: client}
}

func (d *Defra) Get(ctx context.Context, collection, id string) (*Document, error) {
	raw, err := d.lookup(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	doc := decodeDefra(raw)
	return &doc, nil
}

func (d *Defra) Create(ctx context.Context, collection string, doc Document) error {
	if _, err := d.lookup(ctx, collection, doc.ID); err == nil {
		return conflict(collection, doc.ID)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := d.client.Create(ctx, collection, map[string]any{
		"key":        doc.ID,
		"owner":      doc.Owner,
		"body":       string(doc.Body),
		"rev":        int64(1),
		"created_at": now,
		"updated_at": now,
	})
	// The unique index on key catches a create that raced the lookup.
	if err != nil && strings.Contains(err.Error(), "unique index") {
		return conflict(collection, doc.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s %s: %w", collection, doc.ID, err)
	}
	return nil
}

func (d *Defra) Update(ctx context.Context, collection string, doc Document) error {
	raw, err := d.lookup(ctx, collection, doc.ID)
	if err != nil {
		return err
	}
	current := decodeDefra(raw)
	if doc.Rev != 0 && doc.Rev != current.Rev {
		return stale(collection, doc.ID, doc.Rev)
	}
	input := map[string]any{
		"owner":      doc.Owner,
		"body":       string(doc.Body),
		"rev":        current.Rev + 1,
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}

	// Documents written before revisions existed have a null rev and
	// cannot be matched on it; their first write assigns one.
	if _, versioned := raw["rev"].(float64); !versioned {
		docID, _ := raw["_docID"].(string)
		if err := d.client.Update(ctx, collection, docID, input); err != nil {
			return fmt.Errorf("failed to update %s %s: %w", collection, doc.ID, err)
		}
		return nil
	}

	// Matching on the revision read above makes the write conditional
	// even when another replica updates in between.
	n, err := d.client.UpdateMatching(ctx, collection,
		map[string]any{"key": doc.ID, "rev": current.Rev}, input)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", collection, doc.ID, err)
	}
	if n == 0 {
		return stale(collection, doc.ID, current.Rev)
	}
	return nil
}

// Upsert has no single-mutation form here: it updates, creates when the
// key is missing, and starts over when either step loses a race.
func (d *Defra) Upsert(ctx context.Context, collection string, doc Document) error {
	doc.Rev = 0
	var err error
	for range 3 {
		err = d.Update(ctx, collection, doc)
		if errors.Is(err, apperr.ErrNotFound) {
			err = d.Create(ctx, collection, doc)
		}
		if !errors.Is(err, apperr.ErrConflict) {
			return err
		}
	}
	return err
}

func (d *Defra) Delete(ctx context.Context, collection, id string) error {
	raw, err := d.lookup(ctx, collection, id)
	if err != nil {
		return err
	}
	docID, _ := raw["_docID"].(string)
	if err := d.client.Delete(ctx, collection, docID); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", collection, id, err)
	}
	return nil
}

func (d *Defra) List(ctx context.Context, collection, owner string) ([]Document, error) {
	q := defra.NewQuery(collection).
		Fields("_docID", "key", "owner", "body", "rev").
		OrderBy("created_at", "ASC")
	if owner != "" {
		q = q.Filter("owner", owner)
	}
	resp, err := q.Execute(ctx, d.client)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	if msg := resp.Error(); msg != "" {
		return nil, fmt.Errorf("failed to list %s: %s", collection, msg)
	}

	raw := resp.Docs(collection)
	docs := make([]Document, 0, len(raw))
	for _, r := range raw {
		docs = append(docs, decodeDefra(r))
	}
	return docs, nil
}

func (d *Defra) Ping(ctx context.Context) error {
	return d.client.HealthCheck(ctx)
}

func (d *Defra) Close() error { return nil }

// lookup finds the raw document with key id.
func (d *Defra) lookup(ctx context.Context, collection, id string) (map[string]any, error) {
	resp, err := defra.NewQuery(collection).
		Filter("key", id).
		Fields("_docID", "key", "owner", "body", "rev").
		Limit(1).
		Execute(ctx, d.client)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", collection, id, err)
	}
	if msg := resp.Error(); msg != "" {
		return nil, fmt.Errorf("failed to get %s %s: %s", collection, id, msg)
	}
	docs := resp.Docs(collection)
	if len(docs) == 0 {
		return nil, notFound(collection, id)
	}
	return docs[0], nil
}

func decodeDefra(raw map[string]any) Document {
	key, _ := raw["key"].(string)
	owner, _ := raw["owner"].(string)
	body, _ := raw["body"].(string)
	doc := Document{ID: key, Owner: owner, Body: []byte(body), Rev: 1}
	if rev, ok := raw["rev"].(float64); ok {
		doc.Rev = int64(rev)
	}
	return doc
}
