// Package compiler assembles a bounded, scored prompt from a catalog
// snapshot and a compile request.
//
// A Compiler is cheap to build and holds no state between calls: the
// adapter to blend in is passed to Compile, and user blueprints are
// registered on the instance that serves a single request. Build one per
// request.
package compiler

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/apperr"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/catalog"
)

// SystemDirective is emitted after the profile's base prompt on every compile.
const SystemDirective = "Follow the directives below in order. Earlier directives take priority over later ones."

// AdapterMode reports how an adapter was applied.
type AdapterMode string

const (
	AdapterNone          AdapterMode = "none"
	AdapterInline        AdapterMode = "inline"
	AdapterCharacterPack AdapterMode = "character_pack"
)

// Request is a compile request.
type Request struct {
	ProfileID    string            `json:"profile_id"`
	BlueprintID  string            `json:"blueprint_id"`
	Subject      string            `json:"subject,omitempty"`
	Context      string            `json:"context,omitempty"`
	Items        string            `json:"items,omitempty"`
	Environment  string            `json:"environment,omitempty"`
	Restrictions string            `json:"restrictions,omitempty"`
	Filters      map[string]string `json:"filters,omitempty"`
	Seed         string            `json:"seed,omitempty"`
}

// Metadata summarises what a compile used.
type Metadata struct {
	ProfileID        string      `json:"profile_id"`
	ProfileName      string      `json:"profile_name"`
	BlueprintID      string      `json:"blueprint_id"`
	BlueprintName    string      `json:"blueprint_name"`
	VirtualBlueprint bool        `json:"virtual_blueprint,omitempty"`
	BlockCount       int         `json:"block_count"`
	FilterCount      int         `json:"filter_count"`
	CatalogVersion   string      `json:"catalog_version"`
	AdapterMode      AdapterMode `json:"adapter_mode"`
	AdapterVersionID string      `json:"adapter_version_id,omitempty"`
}

// Result is a compiled prompt.
type Result struct {
	Prompt        string         `json:"compiled_prompt"`
	Score         int            `json:"score"`
	Warnings      []string       `json:"warnings"`
	Seed          string         `json:"seed"`
	Metadata      Metadata       `json:"metadata"`
	CharacterPack *CharacterPack `json:"character_pack,omitempty"`
}

// Compiler compiles requests against one catalog snapshot.
type Compiler struct {
	snap    *catalog.Snapshot
	virtual map[string]*catalog.Blueprint
	now     func() time.Time
	nonce   func() string
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithVirtualBlueprint makes bp resolvable by its ID on this compiler only.
// The shared catalog is never touched.
func WithVirtualBlueprint(bp *catalog.Blueprint) Option {
	return func(c *Compiler) {
		if bp != nil {
			c.virtual[bp.ID] = bp
		}
	}
}

// WithClock overrides the time source used for derived seeds.
func WithClock(now func() time.Time) Option {
	return func(c *Compiler) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a compiler over snap.
func New(snap *catalog.Snapshot, opts ...Option) *Compiler {
	c := &Compiler{
		snap:    snap,
		virtual: make(map[string]*catalog.Blueprint),
		now:     time.Now,
		nonce:   randomNonce,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// appliedFilter is a filter selection that resolved to a fragment.
type appliedFilter struct {
	key      string
	value    string
	fragment string
}

// Compile assembles the prompt for req. adapter may be nil. Unknown
// profile or blueprint IDs fail with apperr.ErrNotFound; every other
// problem is reported as a warning.
func (c *Compiler) Compile(req Request, adapter *Adapter) (*Result, error) {
	profile, ok := c.snap.Profile(req.ProfileID)
	if !ok {
		return nil, fmt.Errorf("profile %q: %w", req.ProfileID, apperr.ErrNotFound)
	}
	bp, virtual := c.virtual[req.BlueprintID]
	if !virtual {
		bp, ok = c.snap.Blueprint(req.BlueprintID)
		if !ok {
			return nil, fmt.Errorf("blueprint %q: %w", req.BlueprintID, apperr.ErrNotFound)
		}
	}

	var warnings []string
	seed := c.seed(req)

	filters, fw := c.resolveFilters(req.Filters)
	warnings = append(warnings, fw...)

	blocks, bw := c.orderedBlocks(profile, bp)
	warnings = append(warnings, bw...)

	mode := AdapterNone
	if adapter != nil {
		if profile.HasCapability(catalog.CapabilityAdapter) {
			mode = AdapterInline
		} else {
			mode = AdapterCharacterPack
		}
	}

	var segments []string
	segments = append(segments, strings.TrimSpace(profile.BasePrompt), SystemDirective)
	if mode == AdapterInline {
		segments = append(segments, adapter.Inline())
	}
	segments = append(segments, labeledFields(req))

	fields := requestFields(req)
	fragments := make(map[string]string, len(filters))
	for _, f := range filters {
		fragments[f.key] = f.fragment
	}
	consumed := make(map[string]bool)

	rendered := make([]renderedBlock, 0, len(blocks))
	for _, b := range blocks {
		text := renderBlock(b, fields, fragments, consumed)
		rendered = append(rendered, renderedBlock{block: b, text: text})
		segments = append(segments, text)
	}

	var leftovers []string
	for _, f := range filters {
		if !consumed[f.key] {
			leftovers = append(leftovers, f.fragment)
		}
	}
	segments = append(segments, strings.Join(leftovers, ", "))
	segments = append(segments, constraintLines(bp.Constraints, req.Restrictions))

	text := joinSegments(segments)

	text, pw := redact(text, profile)
	warnings = append(warnings, pw...)

	text, lw := truncate(text, profile.MaxLength)
	warnings = append(warnings, lw...)

	warnings = append(warnings, detectConflicts(filters)...)

	var pack *CharacterPack
	if mode == AdapterCharacterPack {
		var kw []string
		pack, kw = buildCharacterPack(adapter, req, rendered, filters, profile)
		warnings = append(warnings, kw...)
	}

	res := &Result{
		Prompt:   text,
		Warnings: warnings,
		Seed:     seed,
		Metadata: Metadata{
			ProfileID:        profile.ID,
			ProfileName:      profile.Name,
			BlueprintID:      bp.ID,
			BlueprintName:    bp.Name,
			VirtualBlueprint: virtual,
			BlockCount:       len(blocks),
			FilterCount:      len(filters),
			CatalogVersion:   c.snap.Version,
			AdapterMode:      mode,
		},
		CharacterPack: pack,
	}
	if res.Warnings == nil {
		res.Warnings = []string{}
	}
	if adapter != nil {
		res.Metadata.AdapterVersionID = adapter.VersionID
	}
	res.Score = score(res.Prompt, req.Subject, len(res.Warnings), len(filters))
	return res, nil
}

// resolveFilters turns the request's selections into fragments, in catalog
// order so the output does not depend on map iteration.
func (c *Compiler) resolveFilters(selected map[string]string) ([]appliedFilter, []string) {
	var warnings []string

	unknown := make([]string, 0)
	for key := range selected {
		if _, ok := c.snap.Filter(key); !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		warnings = append(warnings, fmt.Sprintf("unknown filter %q ignored", key))
	}

	var applied []appliedFilter
	for _, f := range c.snap.Filters() {
		value, ok := selected[f.Key]
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		frag, err := f.Fragment(value)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("filter %q: value %q ignored", f.Key, value))
			continue
		}
		applied = append(applied, appliedFilter{key: f.Key, value: value, fragment: frag})
	}
	return applied, warnings
}

// orderedBlocks resolves the blueprint's blocks and orders them by the
// profile's preferred order. Blocks whose type the profile does not list
// share the last rank. Ties keep blueprint order.
func (c *Compiler) orderedBlocks(profile *catalog.Profile, bp *catalog.Blueprint) ([]*catalog.Block, []string) {
	var warnings []string
	blocks := make([]*catalog.Block, 0, len(bp.Blocks))
	for _, key := range bp.Blocks {
		b, ok := c.snap.Block(key)
		if !ok {
			// Only reachable for a user blueprint saved against an older catalog.
			warnings = append(warnings, fmt.Sprintf("block %q no longer exists and was skipped", key))
			continue
		}
		blocks = append(blocks, b)
	}
	sort.SliceStable(blocks, func(i, j int) bool {
		return profile.OrderRank(blocks[i].Type) < profile.OrderRank(blocks[j].Type)
	})
	return blocks, warnings
}

func requestFields(req Request) map[string]string {
	return map[string]string{
		catalog.FieldSubject:     strings.TrimSpace(req.Subject),
		catalog.FieldItems:       strings.TrimSpace(req.Items),
		catalog.FieldEnvironment: strings.TrimSpace(req.Environment),
		catalog.FieldContext:     strings.TrimSpace(req.Context),
	}
}

func labeledFields(req Request) string {
	var lines []string
	for _, f := range []struct{ label, value string }{
		{"Subject", req.Subject},
		{"Environment", req.Environment},
		{"Context", req.Context},
	} {
		if v := strings.TrimSpace(f.value); v != "" {
			lines = append(lines, f.label+": "+v)
		}
	}
	return strings.Join(lines, "\n")
}

func constraintLines(constraints []string, restrictions string) string {
	var kept []string
	for _, c := range constraints {
		if c = strings.TrimSpace(c); c != "" {
			kept = append(kept, c)
		}
	}
	var lines []string
	if len(kept) > 0 {
		lines = append(lines, "Constraints: "+strings.Join(kept, "; "))
	}
	if r := strings.TrimSpace(restrictions); r != "" {
		lines = append(lines, "Restrictions: "+r)
	}
	return strings.Join(lines, "\n")
}

func joinSegments(segments []string) string {
	kept := segments[:0:0]
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n\n")
}
