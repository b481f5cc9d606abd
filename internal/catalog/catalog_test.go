package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const minimalCatalog = `
profiles:
  - id: p1
    name: Profile one
    base_prompt: "base"
    preferred_order: [subject, style]
    forbidden_patterns: ["Bad Word"]
    max_length: 200
    capabilities: [adapter]
blocks:
  - key: subj
    type: subject
    template: "{subject} with {items}"
  - key: look
    type: style
    template: "{realism}"
filters:
  - key: realism
    name: Realism
    schema: {type: string, enum: [phone, dslr]}
    effect:
      phone: "phone photo"
      dslr: "dslr photo"
blueprints:
  - id: bp1
    name: Blueprint one
    blocks: [look, subj]
    constraints: ["one subject"]
`

func TestLoad_Defaults(t *testing.T) {
	snap, err := Load(Defaults())
	if err != nil {
		t.Fatalf("Load(Defaults()) error = %v", err)
	}
	if len(snap.Profiles()) == 0 || len(snap.Blueprints()) == 0 || len(snap.Blocks()) == 0 || len(snap.Filters()) == 0 {
		t.Fatalf("default catalog missing sections: %d profiles, %d blueprints, %d blocks, %d filters",
			len(snap.Profiles()), len(snap.Blueprints()), len(snap.Blocks()), len(snap.Filters()))
	}
	if len(snap.Version) != 12 {
		t.Errorf("Version = %q, want 12 hex chars", snap.Version)
	}
	for _, key := range []string{"realism", "camera_bias"} {
		if _, ok := snap.Filter(key); !ok {
			t.Errorf("default filter %q missing", key)
		}
	}
}

func TestLoad_Minimal(t *testing.T) {
	snap, err := Load(fstest.MapFS{"catalog.yaml": {Data: []byte(minimalCatalog)}})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	p, ok := snap.Profile("p1")
	if !ok {
		t.Fatal("profile p1 missing")
	}
	if !p.HasCapability(CapabilityAdapter) {
		t.Error("HasCapability(adapter) = false")
	}
	if len(p.Forbidden()) != 1 || !p.Forbidden()[0].MatchString("a bad word here") {
		t.Error("forbidden pattern not compiled case-insensitively")
	}

	f, _ := snap.Filter("realism")
	frag, err := f.Fragment("dslr")
	if err != nil || frag != "dslr photo" {
		t.Errorf("Fragment(dslr) = %q, %v", frag, err)
	}
	if _, err := f.Fragment("film"); err == nil {
		t.Error("Fragment(film) expected schema error")
	}
	if diff := cmp.Diff([]string{"dslr", "phone"}, f.Values()); diff != "" {
		t.Errorf("Values() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_MultipleFilesAndDocuments(t *testing.T) {
	fsys := fstest.MapFS{
		"a_filters.yaml": {Data: []byte("filters:\n  - key: grade\n    name: Grade\n    effect: {warm: warm tones}\n")},
		"b_rest.yml": {Data: []byte(`blocks:
  - key: g
    type: postfx
    template: "{grade}"
---
profiles:
  - id: p
    name: P
    base_prompt: b
    preferred_order: [postfx]
    max_length: 0
blueprints:
  - id: bp
    name: BP
    blocks: [g]
`)},
		"notes.txt": {Data: []byte("ignored")},
	}
	snap, err := Load(fsys)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	f, _ := snap.Filter("grade")
	if _, err := f.Fragment("warm"); err != nil {
		t.Errorf("generated schema rejected declared value: %v", err)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
		wantErr string
	}{
		{"unknown yaml key", [2]string{"max_length: 200", "max_length: 200\n    colour: red"}, "colour"},
		{"unknown block type", [2]string{"type: style", "type: lighting"}, `unknown type "lighting"`},
		{"unknown order type", [2]string{"[subject, style]", "[subject, mood]"}, `unknown block type "mood"`},
		{"missing block", [2]string{"[look, subj]", "[look, subj, gone]"}, `unknown block "gone"`},
		{"unknown placeholder", [2]string{`"{realism}"`, `"{realism} {mood}"`}, "placeholder {mood}"},
		{"effect outside schema", [2]string{`dslr: "dslr photo"`, `dslr: "dslr photo"
      film: "film photo"`}, `effect value "film"`},
		{"duplicate block", [2]string{"  - key: look", "  - key: subj"}, "defined twice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := strings.Replace(minimalCatalog, tt.replace[0], tt.replace[1], 1)
			if src == minimalCatalog {
				t.Fatalf("replacement %q did not apply", tt.replace[0])
			}
			_, err := Load(fstest.MapFS{"catalog.yaml": {Data: []byte(src)}})
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_Empty(t *testing.T) {
	if _, err := Load(fstest.MapFS{}); err == nil {
		t.Error("Load(empty) expected error")
	}
}

func TestProfile_OrderRank(t *testing.T) {
	p := &Profile{PreferredOrder: []BlockType{BlockSubject, BlockStyle}}
	if got := p.OrderRank(BlockSubject); got != 0 {
		t.Errorf("OrderRank(subject) = %d, want 0", got)
	}
	if got := p.OrderRank(BlockStyle); got != 1 {
		t.Errorf("OrderRank(style) = %d, want 1", got)
	}
	if got := p.OrderRank(BlockPostFX); got != 2 {
		t.Errorf("OrderRank(postfx) = %d, want 2 (after listed types)", got)
	}
}

func TestExtractPlaceholders(t *testing.T) {
	got := ExtractPlaceholders("{subject}, {items} and {subject} {Not} {x_1}")
	if diff := cmp.Diff([]string{"subject", "items", "x_1"}, got); diff != "" {
		t.Errorf("ExtractPlaceholders() mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalog_RefreshKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(file, []byte(minimalCatalog), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	before := c.Snapshot()

	if err := os.WriteFile(file, []byte("profiles: [{id: broken, bogus: 1}]"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Refresh(); err == nil {
		t.Fatal("Refresh() expected error for broken catalog")
	}
	if c.Snapshot() != before {
		t.Error("Refresh() replaced snapshot despite error")
	}
}

func TestCatalog_Watch(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(file, []byte(minimalCatalog), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	v1 := c.Snapshot().Version

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)
	updated := strings.Replace(minimalCatalog, "max_length: 200", "max_length: 300", 1)
	if err := os.WriteFile(file, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.Snapshot().Version != v1 {
			p, _ := c.Snapshot().Profile("p1")
			if p.MaxLength != 300 {
				t.Errorf("MaxLength = %d after reload, want 300", p.MaxLength)
			}
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("catalog was not reloaded after file change")
}

func TestCatalog_WatchEmbeddedReturns(t *testing.T) {
	c, err := New("", nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Watch(context.Background()); err != nil {
		t.Errorf("Watch() on embedded catalog error = %v", err)
	}
}
