package prompts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/activation"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/apperr"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/catalog"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/compiler"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/store"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/types"
)

const testCatalog = `
profiles:
  - id: capable
    name: Capable
    base_prompt: "base capable"
    preferred_order: [subject, style]
    max_length: 2000
    capabilities: [adapter]
  - id: plain
    name: Plain
    base_prompt: "base plain"
    preferred_order: [subject, style]
    max_length: 2000
blocks:
  - key: subj
    type: subject
    template: "{subject}"
  - key: look
    type: style
    template: "{realism}"
filters:
  - key: realism
    name: Realism
    effect: {phone: "phone photo"}
blueprints:
  - id: bp_system
    name: System
    blocks: [subj, look]
`

type fixture struct {
	svc   *Service
	st    *store.Store
	act   *activation.Service
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	snap, err := catalog.Load(fstest.MapFS{"catalog.yaml": {Data: []byte(testCatalog)}})
	if err != nil {
		t.Fatalf("catalog.Load() error = %v", err)
	}
	st := store.New(store.NewMemory())
	act := activation.NewService(st, nil)
	f := &fixture{st: st, act: act, clock: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	f.svc = NewService(catalog.NewFromSnapshot(snap), st, act, nil)
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}
	return f
}

// trainedVersion stores a model with one version that has an artifact.
func (f *fixture) trainedVersion(t *testing.T, owner string) *types.Version {
	t.Helper()
	ctx := context.Background()
	m := &types.Model{ID: "m-" + owner, OwnerID: owner, Name: "Ink Style", TriggerWord: "inkst"}
	v := &types.Version{ID: "v-" + owner, ModelID: m.ID, OwnerID: owner, Number: 1,
		Status: types.VersionReady, ArtifactURL: "https://cdn/ink.safetensors"}
	if err := f.st.Models.Create(ctx, m); err != nil {
		t.Fatal(err)
	}
	if err := f.st.Versions.Create(ctx, v); err != nil {
		t.Fatal(err)
	}
	return v
}

func request(profile, blueprint string) CompileInput {
	return CompileInput{Request: compiler.Request{
		ProfileID:   profile,
		BlueprintID: blueprint,
		Subject:     "a lighthouse",
		Filters:     map[string]string{"realism": "phone"},
		Seed:        "fixed",
	}}
}

func TestCompilePersistsGeneration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gen, err := f.svc.Compile(ctx, "alice", request("plain", "bp_system"))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if gen.PromptHash != HashText(gen.Result.Prompt) {
		t.Errorf("PromptHash = %s, want hash of prompt", gen.PromptHash)
	}
	if !strings.Contains(gen.Result.Prompt, "a lighthouse") || !strings.Contains(gen.Result.Prompt, "phone photo") {
		t.Errorf("prompt = %q", gen.Result.Prompt)
	}
	if gen.Result.Metadata.AdapterMode != compiler.AdapterNone {
		t.Errorf("AdapterMode = %s, want none", gen.Result.Metadata.AdapterMode)
	}

	stored, err := f.svc.GetGeneration(ctx, "alice", gen.ID)
	if err != nil {
		t.Fatalf("GetGeneration() error = %v", err)
	}
	if diff := cmp.Diff(gen, stored); diff != "" {
		t.Errorf("stored generation mismatch (-want +got):\n%s", diff)
	}
	if _, err := f.svc.GetGeneration(ctx, "bob", gen.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetGeneration(other user) error = %v, want ErrNotFound", err)
	}
}

func TestCompileErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		user string
		in   CompileInput
		want error
	}{
		{"missing user", "", request("plain", "bp_system"), apperr.ErrInvalidInput},
		{"unknown profile", "alice", request("ghost", "bp_system"), apperr.ErrNotFound},
		{"unknown blueprint", "alice", request("plain", "ghost"), apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Compile(ctx, tt.user, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("Compile() error = %v, want %v", err, tt.want)
			}
		})
	}

	hist, err := f.svc.History(ctx, "alice", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 0 {
		t.Errorf("failed compiles recorded %d generations", len(hist))
	}
}

func TestCompileAdapterResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.trainedVersion(t, "alice")
	other := f.trainedVersion(t, "bob")

	// No binding yet.
	gen, err := f.svc.Compile(ctx, "alice", request("capable", "bp_system"))
	if err != nil {
		t.Fatal(err)
	}
	if gen.Result.Metadata.AdapterMode != compiler.AdapterNone {
		t.Fatalf("AdapterMode without binding = %s", gen.Result.Metadata.AdapterMode)
	}

	if _, err := f.act.Activate(ctx, "alice", v.ID, nil); err != nil {
		t.Fatal(err)
	}

	half := 0.5
	tests := []struct {
		name       string
		profile    string
		mutate     func(*CompileInput)
		wantMode   compiler.AdapterMode
		wantInline string
	}{
		{"bound inline", "capable", nil, compiler.AdapterInline, "<lora:ink_style:0.80> inkst"},
		{"bound character pack", "plain", nil, compiler.AdapterCharacterPack, ""},
		{"weight override", "capable", func(in *CompileInput) { in.AdapterWeight = &half }, compiler.AdapterInline, "<lora:ink_style:0.50>"},
		{"explicit version", "capable", func(in *CompileInput) { in.ActivationVersionID = v.ID }, compiler.AdapterInline, "<lora:ink_style:0.80>"},
		{"skip activation", "capable", func(in *CompileInput) { in.SkipActivation = true }, compiler.AdapterNone, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := request(tt.profile, "bp_system")
			if tt.mutate != nil {
				tt.mutate(&in)
			}
			gen, err := f.svc.Compile(ctx, "alice", in)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			md := gen.Result.Metadata
			if md.AdapterMode != tt.wantMode {
				t.Errorf("AdapterMode = %s, want %s", md.AdapterMode, tt.wantMode)
			}
			if tt.wantInline != "" && !strings.Contains(gen.Result.Prompt, tt.wantInline) {
				t.Errorf("prompt %q missing %q", gen.Result.Prompt, tt.wantInline)
			}
			if tt.wantMode == compiler.AdapterCharacterPack && gen.Result.CharacterPack == nil {
				t.Error("CharacterPack is nil")
			}
			if tt.wantMode == compiler.AdapterCharacterPack && strings.Contains(gen.Result.Prompt, "<lora:") {
				t.Errorf("character pack compile carries inline tag: %q", gen.Result.Prompt)
			}
		})
	}

	in := request("capable", "bp_system")
	in.ActivationVersionID = other.ID
	if _, err := f.svc.Compile(ctx, "alice", in); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Compile(foreign version) error = %v, want ErrNotFound", err)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for range 3 {
		gen, err := f.svc.Compile(ctx, "alice", request("plain", "bp_system"))
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, gen.ID)
	}
	if _, err := f.svc.Compile(ctx, "bob", request("plain", "bp_system")); err != nil {
		t.Fatal(err)
	}

	hist, err := f.svc.History(ctx, "alice", 2)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, g := range hist {
		got = append(got, g.ID)
	}
	if diff := cmp.Diff([]string{ids[2], ids[1]}, got); diff != "" {
		t.Errorf("History() mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gen, err := f.svc.Compile(ctx, "alice", request("plain", "bp_system"))
	if err != nil {
		t.Fatal(err)
	}

	v, err := f.svc.SaveVersion(ctx, "alice", gen.ID, "  hero shot  ")
	if err != nil {
		t.Fatalf("SaveVersion() error = %v", err)
	}
	if v.Label != "hero shot" || v.Prompt != gen.Result.Prompt || v.Seed != "fixed" || v.PromptHash != gen.PromptHash {
		t.Errorf("version = %+v", v)
	}

	unlabeled, err := f.svc.SaveVersion(ctx, "alice", gen.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(unlabeled.Label, "v2026") {
		t.Errorf("default label = %q", unlabeled.Label)
	}

	if _, err := f.svc.SaveVersion(ctx, "bob", gen.ID, "steal"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("SaveVersion(other user) error = %v, want ErrNotFound", err)
	}

	list, err := f.svc.ListVersions(ctx, "alice", gen.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != v.ID {
		t.Errorf("ListVersions() = %d versions", len(list))
	}

	// The generation itself is untouched.
	again, err := f.svc.GetGeneration(ctx, "alice", gen.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(gen, again); diff != "" {
		t.Errorf("generation changed (-want +got):\n%s", diff)
	}
}
