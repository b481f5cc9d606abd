package schema

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/defra"
)

func TestAll(t *testing.T) {
	schemas, err := All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(schemas) != len(registry) {
		t.Fatalf("All() returned %d schemas, want %d", len(schemas), len(registry))
	}

	for i, s := range schemas {
		if i > 0 && schemas[i-1].Order >= s.Order {
			t.Errorf("schemas out of order at %s", s.Name)
		}
		if !strings.Contains(s.SDL, "type "+s.Name+" {") {
			t.Errorf("%s SDL doesn't declare type %s", s.Name, s.Name)
		}
		for _, field := range []string{"key:", "owner:", "body:", "created_at:", "updated_at:"} {
			if !strings.Contains(s.SDL, field) {
				t.Errorf("%s SDL missing field %s", s.Name, field)
			}
		}
	}
}

func TestNames(t *testing.T) {
	want := []string{
		"LoraModel", "Dataset", "LoraVersion", "TrainingJob", "ActivationBinding",
		"UserBlueprint", "BlueprintVersion", "Generation", "PromptVersion",
	}
	if diff := cmp.Diff(want, Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestGet(t *testing.T) {
	t.Run("existing schema", func(t *testing.T) {
		s, err := Get("TrainingJob")
		if err != nil {
			t.Fatalf("Get(TrainingJob) error = %v", err)
		}
		if s.Name != "TrainingJob" || s.SDL == "" {
			t.Errorf("Get() = %+v", s)
		}
	})

	t.Run("non-existent schema", func(t *testing.T) {
		if _, err := Get("NonExistent"); err == nil {
			t.Error("expected error for non-existent schema")
		}
	})
}

func TestInitialize(t *testing.T) {
	t.Run("applies every schema in order", func(t *testing.T) {
		var mu sync.Mutex
		var got []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v0/schema" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			b, _ := io.ReadAll(r.Body)
			mu.Lock()
			got = append(got, string(b))
			mu.Unlock()
		}))
		defer server.Close()

		rep, err := Initialize(context.Background(), defra.NewClient(server.URL), nil)
		if err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if diff := cmp.Diff(Names(), rep.Added); diff != "" {
			t.Errorf("added mismatch (-want +got):\n%s", diff)
		}
		if len(got) != len(registry) {
			t.Fatalf("server received %d schemas, want %d", len(got), len(registry))
		}
		if !strings.Contains(got[0], "type LoraModel") {
			t.Errorf("first schema = %q", got[0])
		}
	})

	t.Run("handles already exists error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("collection already exists. Name: Dataset"))
		}))
		defer server.Close()

		rep, err := Initialize(context.Background(), defra.NewClient(server.URL), nil)
		if err != nil {
			t.Fatalf("Initialize() should handle already exists, got error = %v", err)
		}
		if len(rep.Added) != 0 || len(rep.Existing) != len(registry) {
			t.Errorf("report = %+v", rep)
		}
	})

	t.Run("fails on other errors without retrying", func(t *testing.T) {
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("invalid schema syntax"))
		}))
		defer server.Close()

		if _, err := Initialize(context.Background(), defra.NewClient(server.URL), nil); err == nil {
			t.Error("Initialize() should fail on syntax error")
		}
		if calls != 1 {
			t.Errorf("server called %d times, want 1", calls)
		}
	})
}

func TestInitializeUnreachableNode(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := Initialize(context.Background(), defra.NewClient(url), nil)
	if err == nil || !strings.Contains(err.Error(), "request failed") {
		t.Fatalf("Initialize() error = %v, want transport failure", err)
	}
	if !strings.Contains(err.Error(), "collection LoraModel") {
		t.Errorf("error should name the first collection: %v", err)
	}
}
