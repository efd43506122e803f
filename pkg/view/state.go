package view

import (
	"encoding/json"
	"sort"

	"github.com/ritzau/graph-explorer/pkg/index"
)

const (
	MinDepth = 1
	MaxDepth = 3
)

// Set is an unordered set of node ids or relationship types.
type Set map[string]struct{}

// NewSet creates a set holding the given items.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

func (s Set) Add(item string)      { s[item] = struct{}{} }
func (s Set) Remove(item string)   { delete(s, item) }
func (s Set) Has(item string) bool { _, ok := s[item]; return ok }

// Sorted returns the items in lexical order.
func (s Set) Sorted() []string {
	items := make([]string, 0, len(s))
	for item := range s {
		items = append(items, item)
	}
	sort.Strings(items)
	return items
}

// MarshalJSON encodes the set as a sorted list.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*s = NewSet(items...)
	return nil
}

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for item := range s {
		c[item] = struct{}{}
	}
	return c
}

// State is everything the user has done to a detail view. It is plain data;
// the filter, lens and explorer packages are the only code that mutates it.
type State struct {
	Visible        Set    `json:"-"`
	Expanded       Set    `json:"-"` // always a subset of Visible
	ActiveTypes    Set    `json:"activeTypes"`
	MinConnections int    `json:"minConnections"`
	Depth          int    `json:"depth"`
	SearchTerm     string `json:"searchTerm,omitempty"`
	Selected       string `json:"selected,omitempty"`
}

// NewState returns an empty state with all of the given relationship types active.
func NewState(minConnections, depth int, activeTypes []string) *State {
	return &State{
		Visible:        NewSet(),
		Expanded:       NewSet(),
		ActiveTypes:    NewSet(activeTypes...),
		MinConnections: minConnections,
		Depth:          ClampDepth(depth),
	}
}

// ClampDepth forces a neighbourhood depth into [MinDepth, MaxDepth].
func ClampDepth(depth int) int {
	if depth < MinDepth {
		return MinDepth
	}
	if depth > MaxDepth {
		return MaxDepth
	}
	return depth
}

// ReplaceVisible swaps the visible set for ids and forgets every expansion.
func (s *State) ReplaceVisible(ids []string) {
	s.Visible = NewSet(ids...)
	s.Expanded = NewSet()
}

// Clamp removes ids that no longer exist in idx. It returns the number of ids
// removed from the visible set.
func (s *State) Clamp(idx *index.Index) int {
	removed := 0
	for id := range s.Visible {
		if !idx.Has(id) {
			delete(s.Visible, id)
			removed++
		}
	}
	for id := range s.Expanded {
		if !s.Visible.Has(id) {
			delete(s.Expanded, id)
		}
	}
	if s.Selected != "" && !idx.Has(s.Selected) {
		s.Selected = ""
	}
	return removed
}

// Clone returns a deep copy that can be published while s keeps changing.
func (s *State) Clone() *State {
	c := *s
	c.Visible = s.Visible.Clone()
	c.Expanded = s.Expanded.Clone()
	c.ActiveTypes = s.ActiveTypes.Clone()
	return &c
}
