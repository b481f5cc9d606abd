package defra

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClient_HealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
	}{
		{"healthy", http.StatusOK, false},
		{"unhealthy_500", http.StatusInternalServerError, true},
		{"unhealthy_503", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health-check" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			err := NewClient(server.URL).HealthCheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnhealthy) {
				t.Errorf("HealthCheck() error = %v, want ErrUnhealthy", err)
			}
		})
	}
}

func TestClient_HealthCheck_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewClient(server.URL).HealthCheck(ctx); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestClient_Execute_WithVariables(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v0/graphql" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req GQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Variables["v0"] != "abc" {
			t.Errorf("variables = %v", req.Variables)
		}
		w.Write([]byte(`{"data":{"TrainingJob":[{"_docID":"bae-1","key":"abc"}]}}`))
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).Execute(context.Background(), "query($v0: String) { x }", map[string]any{"v0": "abc"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	docs := resp.Docs("TrainingJob")
	if len(docs) != 1 || docs[0]["_docID"] != "bae-1" {
		t.Errorf("Docs() = %v", docs)
	}
	if len(resp.Docs("Missing")) != 0 {
		t.Error("Docs(missing) should be empty")
	}
}

func TestClient_Execute_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
		gqlErr  string
	}{
		{"graphql error", http.StatusOK, `{"errors":[{"message":"field not found"}]}`, false, "field not found"},
		{"server error", http.StatusInternalServerError, `boom`, true, ""},
		{"empty body", http.StatusOK, ``, true, ""},
		{"bad json", http.StatusOK, `{`, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			resp, err := NewClient(server.URL).Execute(context.Background(), "{ x }", nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && resp.Error() != tt.gqlErr {
				t.Errorf("resp.Error() = %q, want %q", resp.Error(), tt.gqlErr)
			}
		})
	}
}

func TestClient_AddSchema(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v0/schema" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "text/plain" {
			t.Errorf("Content-Type = %q", ct)
		}
		b, _ := io.ReadAll(r.Body)
		got = string(b)
		if strings.Contains(got, "Broken") {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("syntax error"))
		}
	}))
	defer server.Close()

	c := NewClient(server.URL)
	if err := c.AddSchema(context.Background(), "type Dataset { key: String }"); err != nil {
		t.Fatalf("AddSchema() error = %v", err)
	}
	if got != "type Dataset { key: String }" {
		t.Errorf("server received %q", got)
	}
	if err := c.AddSchema(context.Background(), "type Broken {"); err == nil {
		t.Error("AddSchema() expected error on 400")
	}
}

func TestClient_CreateUpdateDelete(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GQLRequest
		json.NewDecoder(r.Body).Decode(&req)
		queries = append(queries, req.Query)
		switch {
		case strings.Contains(req.Query, "create_Dataset"):
			w.Write([]byte(`{"data":{"create_Dataset":[{"_docID":"bae-9"}]}}`))
		default:
			w.Write([]byte(`{"data":{}}`))
		}
	}))
	defer server.Close()

	c := NewClient(server.URL)
	ctx := context.Background()

	id, err := c.Create(ctx, "Dataset", map[string]any{"owner": "u1", "key": "d1"})
	if err != nil || id != "bae-9" {
		t.Fatalf("Create() = %q, %v", id, err)
	}
	if err := c.Update(ctx, "Dataset", "bae-9", map[string]any{"body": "{}"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := c.Delete(ctx, "Dataset", "bae-9"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := c.Update(ctx, "Dataset", `bae"}`, nil); err == nil {
		t.Error("Update() accepted an unsafe docID")
	}

	want := []string{
		`mutation { create_Dataset(input: {key: "d1", owner: "u1"}) { _docID } }`,
		`mutation { update_Dataset(docID: "bae-9", input: {body: "{}"}) { _docID } }`,
		`mutation { delete_Dataset(docID: "bae-9") { _docID } }`,
	}
	if len(queries) != len(want) {
		t.Fatalf("got %d queries, want %d", len(queries), len(want))
	}
	for i := range want {
		if queries[i] != want[i] {
			t.Errorf("query[%d] = %s\nwant %s", i, queries[i], want[i])
		}
	}
}

func TestClient_URLNormalization(t *testing.T) {
	if got := NewClient("http://localhost:9181/").URL(); got != "http://localhost:9181" {
		t.Errorf("URL() = %q", got)
	}
}

func TestMapToGraphQLInput(t *testing.T) {
	got, err := mapToGraphQLInput(map[string]any{
		"s":     "line\nbreak \"quoted\"",
		"n":     3,
		"f":     0.5,
		"b":     true,
		"list":  []any{"a", 1},
		"inner": map[string]any{"k": "v"},
		"none":  nil,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `{b: true, f: 0.5, inner: {k: "v"}, list: ["a", 1], n: 3, none: null, s: "line\nbreak \"quoted\""}`
	if got != want {
		t.Errorf("mapToGraphQLInput() =\n%s\nwant\n%s", got, want)
	}
}
