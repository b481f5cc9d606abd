package catalog

import "time"

// Snapshot is an immutable, validated catalog.
type Snapshot struct {
	Version  string
	LoadedAt time.Time

	profiles   map[string]*Profile
	blueprints map[string]*Blueprint
	blocks     map[string]*Block
	filters    map[string]*Filter

	profileOrder   []string
	blueprintOrder []string
	blockOrder     []string
	filterOrder    []string
}

// Profile returns the profile with the given id.
func (s *Snapshot) Profile(id string) (*Profile, bool) {
	p, ok := s.profiles[id]
	return p, ok
}

// Blueprint returns the system blueprint with the given id.
func (s *Snapshot) Blueprint(id string) (*Blueprint, bool) {
	bp, ok := s.blueprints[id]
	return bp, ok
}

// Block returns the block with the given key.
func (s *Snapshot) Block(key string) (*Block, bool) {
	b, ok := s.blocks[key]
	return b, ok
}

// Filter returns the filter with the given key.
func (s *Snapshot) Filter(key string) (*Filter, bool) {
	f, ok := s.filters[key]
	return f, ok
}

// Profiles returns all profiles in load order.
func (s *Snapshot) Profiles() []*Profile {
	out := make([]*Profile, 0, len(s.profileOrder))
	for _, id := range s.profileOrder {
		out = append(out, s.profiles[id])
	}
	return out
}

// Blueprints returns all system blueprints in load order.
func (s *Snapshot) Blueprints() []*Blueprint {
	out := make([]*Blueprint, 0, len(s.blueprintOrder))
	for _, id := range s.blueprintOrder {
		out = append(out, s.blueprints[id])
	}
	return out
}

// Blocks returns all blocks in load order.
func (s *Snapshot) Blocks() []*Block {
	out := make([]*Block, 0, len(s.blockOrder))
	for _, key := range s.blockOrder {
		out = append(out, s.blocks[key])
	}
	return out
}

// Filters returns all filters in load order.
func (s *Snapshot) Filters() []*Filter {
	out := make([]*Filter, 0, len(s.filterOrder))
	for _, key := range s.filterOrder {
		out = append(out, s.filters[key])
	}
	return out
}
