// Package catalog holds the static template data the prompt compiler
// assembles from: profiles, blueprints, blocks and filters.
//
// A catalog is loaded from YAML documents and fully validated before it is
// published; references that would silently resolve to nothing at render
// time (unknown block types, missing blocks, unknown placeholders, filter
// effects outside the filter's value schema) fail the load instead.
package catalog

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BlockType is the structural role of a block. It drives assembly order.
type BlockType string

const (
	BlockSubject    BlockType = "subject"
	BlockStyle      BlockType = "style"
	BlockCamera     BlockType = "camera"
	BlockLayout     BlockType = "layout"
	BlockPostFX     BlockType = "postfx"
	BlockConstraint BlockType = "constraint"
)

// BlockTypes lists every valid block type.
var BlockTypes = []BlockType{BlockSubject, BlockStyle, BlockCamera, BlockLayout, BlockPostFX, BlockConstraint}

// Valid reports whether t is a known block type.
func (t BlockType) Valid() bool {
	return slices.Contains(BlockTypes, t)
}

// Request fields that block templates may reference.
const (
	FieldSubject     = "subject"
	FieldItems       = "items"
	FieldEnvironment = "environment"
	FieldContext     = "context"
)

// RequestFields lists placeholders that resolve from the compile request.
var RequestFields = []string{FieldSubject, FieldItems, FieldEnvironment, FieldContext}

// CapabilityAdapter marks a profile whose renderer accepts inline adapter
// syntax.
const CapabilityAdapter = "adapter"

// Profile is the rendering policy of a target platform.
type Profile struct {
	ID                string      `yaml:"id" json:"id"`
	Name              string      `yaml:"name" json:"name"`
	Description       string      `yaml:"description,omitempty" json:"description,omitempty"`
	BasePrompt        string      `yaml:"base_prompt" json:"base_prompt"`
	PreferredOrder    []BlockType `yaml:"preferred_order" json:"preferred_order"`
	ForbiddenPatterns []string    `yaml:"forbidden_patterns,omitempty" json:"forbidden_patterns,omitempty"`
	MaxLength         int         `yaml:"max_length" json:"max_length"`
	Capabilities      []string    `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`

	forbidden []*regexp.Regexp
}

// HasCapability reports whether the profile declares capability c.
func (p *Profile) HasCapability(c string) bool {
	return slices.Contains(p.Capabilities, c)
}

// Forbidden returns the compiled case-insensitive matchers for
// ForbiddenPatterns, in declaration order.
func (p *Profile) Forbidden() []*regexp.Regexp {
	return p.forbidden
}

// OrderRank returns the assembly rank of a block type. Types missing from
// PreferredOrder share the rank len(PreferredOrder), after every listed type.
func (p *Profile) OrderRank(t BlockType) int {
	if i := slices.Index(p.PreferredOrder, t); i >= 0 {
		return i
	}
	return len(p.PreferredOrder)
}

// Blueprint is a named, ordered composition of blocks.
type Blueprint struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Category    string   `yaml:"category,omitempty" json:"category,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Blocks      []string `yaml:"blocks" json:"blocks"`
	Constraints []string `yaml:"constraints,omitempty" json:"constraints,omitempty"`
	Tags        []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Block is a reusable template fragment.
type Block struct {
	Key         string    `yaml:"key" json:"key"`
	Type        BlockType `yaml:"type" json:"type"`
	Template    string    `yaml:"template" json:"template"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
}

// Placeholders returns the placeholder names used by the block template.
func (b *Block) Placeholders() []string {
	return ExtractPlaceholders(b.Template)
}

// Filter is a user-selectable axis whose value injects a text fragment.
type Filter struct {
	Key         string            `yaml:"key" json:"key"`
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Schema      map[string]any    `yaml:"schema" json:"schema"`
	Effect      map[string]string `yaml:"effect" json:"effect"`

	compiled *jsonschema.Schema
}

// Fragment returns the text injected for value, validating value against
// the filter schema first.
func (f *Filter) Fragment(value string) (string, error) {
	if f.compiled != nil {
		if err := f.compiled.Validate(value); err != nil {
			return "", fmt.Errorf("filter %s: value %q rejected by schema: %w", f.Key, value, err)
		}
	}
	frag, ok := f.Effect[value]
	if !ok {
		return "", fmt.Errorf("filter %s: no effect for value %q", f.Key, value)
	}
	return frag, nil
}

// Values returns the effect values in sorted order.
func (f *Filter) Values() []string {
	vals := make([]string, 0, len(f.Effect))
	for v := range f.Effect {
		vals = append(vals, v)
	}
	slices.Sort(vals)
	return vals
}

var placeholderPattern = regexp.MustCompile(`\{([a-z][a-z0-9_]*)\}`)

// ExtractPlaceholders returns the distinct {name} tokens in text, in order
// of first appearance.
func ExtractPlaceholders(text string) []string {
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if !slices.Contains(names, m[1]) {
			names = append(names, m[1])
		}
	}
	return names
}

// PlaceholderPattern exposes the placeholder matcher to the renderer.
func PlaceholderPattern() *regexp.Regexp {
	return placeholderPattern
}
