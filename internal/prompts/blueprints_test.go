package prompts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/apperr"
)

func TestCreateUserBlueprint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		owner string
		in    BlueprintInput
		want  error
	}{
		{"valid", "alice", BlueprintInput{Name: "Mine", Blocks: []string{"look", "subj"}}, nil},
		{"missing owner", "", BlueprintInput{Name: "Mine", Blocks: []string{"subj"}}, apperr.ErrInvalidInput},
		{"missing name", "alice", BlueprintInput{Name: "  ", Blocks: []string{"subj"}}, apperr.ErrInvalidInput},
		{"no blocks", "alice", BlueprintInput{Name: "Empty"}, apperr.ErrInvalidInput},
		{"unknown block", "alice", BlueprintInput{Name: "Bad", Blocks: []string{"subj", "ghost"}}, apperr.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := f.svc.CreateUserBlueprint(ctx, tt.owner, tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("CreateUserBlueprint() error = %v, want %v", err, tt.want)
			}
			if err != nil {
				return
			}
			if view.LatestVersion != 1 || view.Latest.Number != 1 {
				t.Errorf("versions = %d/%d, want 1", view.LatestVersion, view.Latest.Number)
			}
			if diff := cmp.Diff(tt.in.Blocks, view.Latest.Blocks); diff != "" {
				t.Errorf("blocks mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUpdateUserBlueprintAppendsVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.CreateUserBlueprint(ctx, "alice", BlueprintInput{Name: "Mine", Blocks: []string{"subj"}})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := f.svc.UpdateUserBlueprint(ctx, "alice", view.ID, BlueprintInput{
		Blocks:      []string{"subj", "look"},
		Constraints: []string{"no text"},
		Note:        "add style",
	})
	if err != nil {
		t.Fatalf("UpdateUserBlueprint() error = %v", err)
	}
	if updated.LatestVersion != 2 || updated.Name != "Mine" {
		t.Errorf("updated = %+v", updated.UserBlueprint)
	}

	versions, err := f.svc.ListBlueprintVersions(ctx, "alice", view.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 2 {
		t.Fatalf("ListBlueprintVersions() = %d, want 2", len(versions))
	}
	if diff := cmp.Diff([]string{"subj"}, versions[0].Blocks); diff != "" {
		t.Errorf("first version changed (-want +got):\n%s", diff)
	}

	got, err := f.svc.GetUserBlueprint(ctx, "alice", view.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Latest.Number != 2 || got.Latest.Note != "add style" {
		t.Errorf("latest = %+v", got.Latest)
	}

	if _, err := f.svc.UpdateUserBlueprint(ctx, "alice", view.ID, BlueprintInput{Blocks: []string{"ghost"}}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("Update(unknown block) error = %v, want ErrInvalidInput", err)
	}
	if _, err := f.svc.UpdateUserBlueprint(ctx, "bob", view.ID, BlueprintInput{Blocks: []string{"subj"}}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Update(other owner) error = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.GetUserBlueprint(ctx, "bob", view.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get(other owner) error = %v, want ErrNotFound", err)
	}

	list, err := f.svc.ListUserBlueprints(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("ListUserBlueprints() = %d, want 1", len(list))
	}
}

func TestCompileWithUserBlueprint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.CreateUserBlueprint(ctx, "alice", BlueprintInput{
		Name:        "Subject first",
		Blocks:      []string{"subj"},
		Constraints: []string{"single frame"},
	})
	if err != nil {
		t.Fatal(err)
	}

	gen, err := f.svc.Compile(ctx, "alice", request("plain", view.ID))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	md := gen.Result.Metadata
	if !md.VirtualBlueprint || md.BlueprintID != view.ID || md.BlockCount != 1 {
		t.Errorf("metadata = %+v", md)
	}
	if gen.UserBlueprintID != view.ID || gen.BlueprintNumber != 1 {
		t.Errorf("generation blueprint = %s v%d", gen.UserBlueprintID, gen.BlueprintNumber)
	}
	if !strings.Contains(gen.Result.Prompt, "single frame") {
		t.Errorf("prompt %q missing constraint", gen.Result.Prompt)
	}

	// Other users cannot compile against it.
	if _, err := f.svc.Compile(ctx, "bob", request("plain", view.ID)); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Compile(other owner) error = %v, want ErrNotFound", err)
	}

	// The shared catalog never sees the user blueprint.
	if _, ok := f.svc.catalog.Snapshot().Blueprint(view.ID); ok {
		t.Error("user blueprint leaked into the catalog snapshot")
	}
}
