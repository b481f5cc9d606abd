// Package schema holds the DefraDB collection definitions used by the
// defra storage backend.
package schema

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed schemas/*.graphql
var schemaFS embed.FS

// Schema represents a DefraDB collection schema.
type Schema struct {
	Name  string // Collection name (e.g., "TrainingJob")
	SDL   string // GraphQL SDL definition
	Order int    // Initialization order (lower = first)
}

// registry lists every collection. Documents are flat (key, owner, body)
// so there are no relations between collections; the order only makes
// startup logs read top-down from user data to derived records.
var registry = []Schema{
	{Name: "LoraModel", Order: 1},
	{Name: "Dataset", Order: 2},
	{Name: "LoraVersion", Order: 3},
	{Name: "TrainingJob", Order: 4},
	{Name: "ActivationBinding", Order: 5},
	{Name: "UserBlueprint", Order: 6},
	{Name: "BlueprintVersion", Order: 7},
	{Name: "Generation", Order: 8},
	{Name: "PromptVersion", Order: 9},
}

// Names returns the collection names in initialization order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for _, s := range sorted() {
		out = append(out, s.Name)
	}
	return out
}

// All returns all schemas in initialization order, with SDL loaded from
// the embedded .graphql files.
func All() ([]Schema, error) {
	schemas := sorted()
	for i := range schemas {
		sdl, err := readSDL(schemas[i].Name)
		if err != nil {
			return nil, err
		}
		schemas[i].SDL = sdl
	}
	return schemas, nil
}

// Get returns a single schema by name.
func Get(name string) (*Schema, error) {
	for _, s := range registry {
		if s.Name != name {
			continue
		}
		sdl, err := readSDL(s.Name)
		if err != nil {
			return nil, err
		}
		s.SDL = sdl
		return &s, nil
	}
	return nil, fmt.Errorf("schema not found: %s", name)
}

func sorted() []Schema {
	schemas := make([]Schema, len(registry))
	copy(schemas, registry)
	sort.Slice(schemas, func(i, j int) bool {
		return schemas[i].Order < schemas[j].Order
	})
	return schemas
}

func readSDL(name string) (string, error) {
	content, err := schemaFS.ReadFile(fmt.Sprintf("schemas/%s.graphql", strings.ToLower(name)))
	if err != nil {
		return "", fmt.Errorf("failed to read schema %s: %w", name, err)
	}
	return string(content), nil
}
