// Package survey holds the session state, its persistence, and the planner
// that tracks progress through a sphere survey.
package survey

import (
	"encoding/json"
	"sort"

	"sphere-survey/internal/geom"
	"sphere-survey/internal/system"
)

// IDSet is a set of 64-bit system addresses, persisted as a sorted array.
type IDSet map[int64]bool

// MarshalJSON encodes the set as a sorted array for stable state files.
func (s IDSet) MarshalJSON() ([]byte, error) {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return json.Marshal(ids)
}

// UnmarshalJSON decodes an array back into a set.
func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = make(IDSet, len(ids))
	for _, id := range ids {
		(*s)[id] = true
	}
	return nil
}

// NameSet is a set of system names, persisted as a sorted array.
type NameSet map[string]bool

// MarshalJSON encodes the set as a sorted array for stable state files.
func (s NameSet) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return json.Marshal(names)
}

// UnmarshalJSON decodes an array back into a set.
func (s *NameSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*s = make(NameSet, len(names))
	for _, n := range names {
		(*s)[n] = true
	}
	return nil
}

// State is the persistent survey session record. Invariants: the pending
// queue never contains a visited system or the start system, and AllSystems
// holds at most one record per name.
type State struct {
	Active      bool        `json:"active"`
	StartSystem string      `json:"start_system,omitempty"`
	StartCoords *[3]float64 `json:"start_coords,omitempty"`
	RadiusLY    float64     `json:"radius_ly"`
	MaxJumpLY   float64     `json:"max_jump_ly,omitempty"`
	TieBreak    string      `json:"tie_break"`

	Pending      []system.Record          `json:"pending_systems"`
	VisitedIDs   IDSet                    `json:"visited_ids"`
	VisitedNames NameSet                  `json:"visited_names"`
	AllSystems   map[string]system.Record `json:"all_systems"`

	StartedAt  float64 `json:"started_ts,omitempty"`
	SourceUsed string  `json:"data_source_used,omitempty"`
}

// NewState returns an empty, inactive state with initialized containers.
func NewState() *State {
	return &State{
		VisitedIDs:   make(IDSet),
		VisitedNames: make(NameSet),
		AllSystems:   make(map[string]system.Record),
	}
}

// Reset clears the session back to idle: origin, queue, visited sets,
// discovered systems, timestamps and source all go. The configured radius,
// jump range and tie-break survive for the next start.
func (s *State) Reset() {
	s.Active = false
	s.StartSystem = ""
	s.StartCoords = nil
	s.Pending = nil
	s.VisitedIDs = make(IDSet)
	s.VisitedNames = make(NameSet)
	s.AllSystems = make(map[string]system.Record)
	s.StartedAt = 0
	s.SourceUsed = ""
}

// Origin returns the start coordinates when known.
func (s *State) Origin() (geom.Point, bool) {
	if s.StartCoords == nil {
		return geom.Point{}, false
	}
	c := *s.StartCoords
	return geom.Point{X: c[0], Y: c[1], Z: c[2]}, true
}

// Clone returns a deep copy safe to hand to observers.
func (s *State) Clone() *State {
	out := *s
	if s.StartCoords != nil {
		c := *s.StartCoords
		out.StartCoords = &c
	}
	out.Pending = append([]system.Record(nil), s.Pending...)
	out.VisitedIDs = make(IDSet, len(s.VisitedIDs))
	for id := range s.VisitedIDs {
		out.VisitedIDs[id] = true
	}
	out.VisitedNames = make(NameSet, len(s.VisitedNames))
	for n := range s.VisitedNames {
		out.VisitedNames[n] = true
	}
	out.AllSystems = make(map[string]system.Record, len(s.AllSystems))
	for n, r := range s.AllSystems {
		out.AllSystems[n] = r
	}
	return &out
}
