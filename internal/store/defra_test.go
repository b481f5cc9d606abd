package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/apperr"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/defra"
)

// fakeDefra answers the handful of query shapes the backend sends, backed
// by a map of key to body for a single collection. Every stored document is
// at revision 1. Updates conditioned on another revision match nothing.
func fakeDefra(t *testing.T, docs map[string]string) *httptest.Server {
	t.Helper()
	return fakeDefraRev(t, docs, 1)
}

// fakeDefraRev reports rev for lookups while updates only match revision 1,
// the way a node behaves after another replica's write landed.
func fakeDefraRev(t *testing.T, docs map[string]string, rev float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health-check" {
			return
		}
		var req defra.GQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}

		var out map[string]any
		switch {
		case strings.HasPrefix(req.Query, "mutation { create_Dataset"):
			out = map[string]any{"create_Dataset": []any{map[string]any{"_docID": "bae-new"}}}
		case strings.HasPrefix(req.Query, "mutation { update_Dataset"):
			if !strings.Contains(req.Query, `filter: {key: {_eq: "d1"}, rev: {_eq: `) {
				t.Errorf("update not conditioned on key and rev: %s", req.Query)
			}
			updated := []any{}
			if strings.Contains(req.Query, `rev: {_eq: 1}}`) {
				updated = append(updated, map[string]any{"_docID": "bae-d1"})
			}
			out = map[string]any{"update_Dataset": updated}
		default:
			var found []any
			key, _ := req.Variables["v0"].(string)
			for k, body := range docs {
				if key == "" || key == k {
					found = append(found, map[string]any{"_docID": "bae-" + k, "key": k, "owner": "u1", "body": body, "rev": rev})
				}
			}
			out = map[string]any{"Dataset": found}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": out})
	}))
}

func TestDefra_Get(t *testing.T) {
	srv := fakeDefra(t, map[string]string{"d1": `{"id":"d1"}`})
	defer srv.Close()
	b := NewDefra(defra.NewClient(srv.URL))
	ctx := context.Background()

	doc, err := b.Get(ctx, "Dataset", "d1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc.ID != "d1" || doc.Owner != "u1" || string(doc.Body) != `{"id":"d1"}` {
		t.Errorf("Get() = %+v", doc)
	}

	if _, err := b.Get(ctx, "Dataset", "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDefra_CreateConflictAndUpdate(t *testing.T) {
	srv := fakeDefra(t, map[string]string{"d1": `{}`})
	defer srv.Close()
	b := NewDefra(defra.NewClient(srv.URL))
	ctx := context.Background()

	if err := b.Create(ctx, "Dataset", Document{ID: "d1"}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("Create(existing) error = %v, want ErrConflict", err)
	}
	if err := b.Create(ctx, "Dataset", Document{ID: "d2", Owner: "u1", Body: []byte(`{}`)}); err != nil {
		t.Errorf("Create() error = %v", err)
	}
	if err := b.Update(ctx, "Dataset", Document{ID: "d1", Body: []byte(`{"x":1}`)}); err != nil {
		t.Errorf("Update() error = %v", err)
	}
	if err := b.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestDefra_ConditionalUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("revision read earlier is stale", func(t *testing.T) {
		srv := fakeDefra(t, map[string]string{"d1": `{}`})
		defer srv.Close()
		b := NewDefra(defra.NewClient(srv.URL))

		doc, err := b.Get(ctx, "Dataset", "d1")
		if err != nil {
			t.Fatal(err)
		}
		if doc.Rev != 1 {
			t.Fatalf("Rev = %d, want 1", doc.Rev)
		}
		doc.Rev = 4
		err = b.Update(ctx, "Dataset", *doc)
		if !errors.Is(err, ErrStale) || !errors.Is(err, apperr.ErrConflict) {
			t.Errorf("Update(rev 4) error = %v, want ErrStale", err)
		}
	})

	t.Run("write lost between lookup and mutation", func(t *testing.T) {
		srv := fakeDefraRev(t, map[string]string{"d1": `{}`}, 2)
		defer srv.Close()
		b := NewDefra(defra.NewClient(srv.URL))

		err := b.Update(ctx, "Dataset", Document{ID: "d1", Body: []byte(`{"x":1}`), Rev: 2})
		if !errors.Is(err, ErrStale) {
			t.Errorf("Update() error = %v, want ErrStale", err)
		}
	})
}
