package catalog

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// document is the shape of one YAML document. A file may hold several
// documents and any mix of sections.
type document struct {
	Profiles   []Profile   `yaml:"profiles"`
	Blueprints []Blueprint `yaml:"blueprints"`
	Blocks     []Block     `yaml:"blocks"`
	Filters    []Filter    `yaml:"filters"`
}

// Load reads every *.yaml and *.yml file at the root of fsys, validates the
// combined catalog, and returns an immutable snapshot.
func Load(fsys fs.FS) (*Snapshot, error) {
	names, err := catalogFiles(fsys)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, errors.New("catalog: no yaml files found")
	}

	hash := sha256.New()
	var docs []document
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("catalog: read %s: %w", name, err)
		}
		hash.Write([]byte(name))
		hash.Write(data)

		fileDocs, err := decodeFile(data)
		if err != nil {
			return nil, fmt.Errorf("catalog: %s: %w", name, err)
		}
		docs = append(docs, fileDocs...)
	}

	snap, err := build(docs)
	if err != nil {
		return nil, err
	}
	snap.Version = hex.EncodeToString(hash.Sum(nil))[:12]
	snap.LoadedAt = time.Now().UTC()
	return snap, nil
}

func catalogFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("catalog: list files: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch path.Ext(e.Name()) {
		case ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func decodeFile(data []byte) ([]document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var docs []document
	for {
		var doc document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
}

func build(docs []document) (*Snapshot, error) {
	s := &Snapshot{
		profiles:   make(map[string]*Profile),
		blueprints: make(map[string]*Blueprint),
		blocks:     make(map[string]*Block),
		filters:    make(map[string]*Filter),
	}

	var errs []error
	for _, doc := range docs {
		for i := range doc.Blocks {
			b := doc.Blocks[i]
			if _, dup := s.blocks[b.Key]; dup {
				errs = append(errs, fmt.Errorf("block %q defined twice", b.Key))
				continue
			}
			s.blocks[b.Key] = &b
			s.blockOrder = append(s.blockOrder, b.Key)
		}
		for i := range doc.Filters {
			f := doc.Filters[i]
			if _, dup := s.filters[f.Key]; dup {
				errs = append(errs, fmt.Errorf("filter %q defined twice", f.Key))
				continue
			}
			s.filters[f.Key] = &f
			s.filterOrder = append(s.filterOrder, f.Key)
		}
		for i := range doc.Profiles {
			p := doc.Profiles[i]
			if _, dup := s.profiles[p.ID]; dup {
				errs = append(errs, fmt.Errorf("profile %q defined twice", p.ID))
				continue
			}
			s.profiles[p.ID] = &p
			s.profileOrder = append(s.profileOrder, p.ID)
		}
		for i := range doc.Blueprints {
			bp := doc.Blueprints[i]
			if _, dup := s.blueprints[bp.ID]; dup {
				errs = append(errs, fmt.Errorf("blueprint %q defined twice", bp.ID))
				continue
			}
			s.blueprints[bp.ID] = &bp
			s.blueprintOrder = append(s.blueprintOrder, bp.ID)
		}
	}

	for _, key := range s.filterOrder {
		if err := compileFilter(s.filters[key]); err != nil {
			errs = append(errs, err)
		}
	}
	for _, key := range s.blockOrder {
		if err := s.validateBlock(s.blocks[key]); err != nil {
			errs = append(errs, err)
		}
	}
	for _, id := range s.profileOrder {
		if err := compileProfile(s.profiles[id]); err != nil {
			errs = append(errs, err)
		}
	}
	for _, id := range s.blueprintOrder {
		if err := s.ValidateBlueprint(s.blueprints[id]); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("catalog: invalid: %w", err)
	}
	return s, nil
}

func compileFilter(f *Filter) error {
	if f.Key == "" {
		return errors.New("filter with empty key")
	}
	if len(f.Effect) == 0 {
		return fmt.Errorf("filter %s: no effect values", f.Key)
	}
	if slices.Contains(RequestFields, f.Key) {
		return fmt.Errorf("filter %s: key collides with a request field", f.Key)
	}
	if f.Schema == nil {
		f.Schema = map[string]any{"type": "string", "enum": anySlice(f.Values())}
	}

	raw, err := json.Marshal(f.Schema)
	if err != nil {
		return fmt.Errorf("filter %s: encode schema: %w", f.Key, err)
	}
	c := jsonschema.NewCompiler()
	url := "filter-" + f.Key + ".json"
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("filter %s: load schema: %w", f.Key, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return fmt.Errorf("filter %s: compile schema: %w", f.Key, err)
	}
	f.compiled = sch

	for _, v := range f.Values() {
		if err := sch.Validate(v); err != nil {
			return fmt.Errorf("filter %s: effect value %q not allowed by schema", f.Key, v)
		}
	}
	return nil
}

func (s *Snapshot) validateBlock(b *Block) error {
	if b.Key == "" {
		return errors.New("block with empty key")
	}
	if !b.Type.Valid() {
		return fmt.Errorf("block %s: unknown type %q", b.Key, b.Type)
	}
	for _, name := range b.Placeholders() {
		if slices.Contains(RequestFields, name) {
			continue
		}
		if _, ok := s.filters[name]; !ok {
			return fmt.Errorf("block %s: placeholder {%s} is neither a request field nor a filter", b.Key, name)
		}
	}
	return nil
}

func compileProfile(p *Profile) error {
	if p.ID == "" {
		return errors.New("profile with empty id")
	}
	if p.MaxLength < 0 {
		return fmt.Errorf("profile %s: negative max_length", p.ID)
	}
	seen := make(map[BlockType]bool)
	for _, t := range p.PreferredOrder {
		if !t.Valid() {
			return fmt.Errorf("profile %s: unknown block type %q in preferred_order", p.ID, t)
		}
		if seen[t] {
			return fmt.Errorf("profile %s: block type %q listed twice in preferred_order", p.ID, t)
		}
		seen[t] = true
	}
	p.forbidden = p.forbidden[:0]
	for _, pat := range p.ForbiddenPatterns {
		if strings.TrimSpace(pat) == "" {
			return fmt.Errorf("profile %s: empty forbidden pattern", p.ID)
		}
		p.forbidden = append(p.forbidden, regexp.MustCompile("(?i)"+regexp.QuoteMeta(pat)))
	}
	return nil
}

// ValidateBlueprint checks that every block bp references exists in the
// snapshot. It is used for catalog blueprints at load and for user
// blueprints on save.
func (s *Snapshot) ValidateBlueprint(bp *Blueprint) error {
	if bp.ID == "" {
		return errors.New("blueprint with empty id")
	}
	if len(bp.Blocks) == 0 {
		return fmt.Errorf("blueprint %s: no blocks", bp.ID)
	}
	for _, key := range bp.Blocks {
		if _, ok := s.blocks[key]; !ok {
			return fmt.Errorf("blueprint %s: unknown block %q", bp.ID, key)
		}
	}
	return nil
}

func anySlice(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
