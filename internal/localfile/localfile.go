// Package localfile serves systems from a neareststars.json export on disk.
package localfile

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"sphere-survey/internal/geom"
	"sphere-survey/internal/logger"
	"sphere-survey/internal/system"
)

// Star is one named position parsed from a local file.
type Star struct {
	Name string
	X    float64
	Y    float64
	Z    float64
}

// Source reads a structured file of named systems and answers radius queries
// against it. A missing or unparsable file makes the source unavailable, it
// is never an error.
type Source struct {
	mu    sync.RWMutex
	path  string
	stars []Star
}

// New creates a Source. An empty path leaves it unavailable until SetFile.
func New(path string) *Source {
	s := &Source{}
	if path != "" {
		s.SetFile(path)
	}
	return s
}

// SetFile points the source at a new file and loads it.
func (s *Source) SetFile(path string) {
	stars, err := ParseFile(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
	if err != nil {
		logger.Warn("LOCAL", fmt.Sprintf("cannot load %s: %v", path, err))
		s.stars = nil
		return
	}
	s.stars = stars
	logger.Info("LOCAL", fmt.Sprintf("loaded %d systems from %s", len(stars), path))
}

// Available reports whether a file is loaded.
func (s *Source) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stars) > 0
}

// Query filters the loaded systems by radius and returns them ascending by
// distance from origin. Local files carry no system addresses.
func (s *Source) Query(origin geom.Point, radius float64) ([]system.Record, error) {
	s.mu.RLock()
	stars := s.stars
	s.mu.RUnlock()

	if len(stars) == 0 {
		return nil, fmt.Errorf("no local file loaded")
	}

	var out []system.Record
	for _, st := range stars {
		d := geom.DistXYZ(origin, st.X, st.Y, st.Z)
		if d > radius {
			continue
		}
		out = append(out, system.Record{
			Name:     st.Name,
			X:        st.X,
			Y:        st.Y,
			Z:        st.Z,
			Distance: d,
		})
	}
	system.SortByDistance(out)
	return out, nil
}

// Priority: a curated local file outranks every other source.
func (s *Source) Priority() int { return 0 }

// Name returns the source selector name.
func (s *Source) Name() string { return "local" }

// ParseFile reads a system list in either accepted shape: an object with a
// Nearest array of {Name, X, Y, Z}, or a galactic-mapping array of
// {coordinates:[x,y,z], galMapSearch|name}. Individual malformed entries are
// skipped; only an unreadable or structurally unrecognizable file errors.
func ParseFile(path string) ([]Star, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses raw file contents. See ParseFile.
func Parse(data []byte) ([]Star, error) {
	if stars, ok := parseNearest(data); ok {
		return stars, nil
	}
	if stars, ok := parseMapping(data); ok {
		return stars, nil
	}
	return nil, fmt.Errorf("unrecognized file format")
}

// parseNearest handles the {"Nearest":[{Name,X,Y,Z}...]} shape.
func parseNearest(data []byte) ([]Star, bool) {
	var doc struct {
		Nearest []json.RawMessage `json:"Nearest"`
	}
	if err := json.Unmarshal(data, &doc); err != nil || doc.Nearest == nil {
		return nil, false
	}

	var stars []Star
	for _, raw := range doc.Nearest {
		var e struct {
			Name *string  `json:"Name"`
			X    *float64 `json:"X"`
			Y    *float64 `json:"Y"`
			Z    *float64 `json:"Z"`
		}
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		if e.Name == nil || e.X == nil || e.Y == nil || e.Z == nil {
			continue
		}
		stars = append(stars, Star{Name: *e.Name, X: *e.X, Y: *e.Y, Z: *e.Z})
	}
	return stars, true
}

// parseMapping handles the galacticmapping/gecmapping array shape.
func parseMapping(data []byte) ([]Star, bool) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false
	}

	var stars []Star
	for _, raw := range entries {
		var e struct {
			Coordinates []float64 `json:"coordinates"`
			GalMapName  string    `json:"galMapSearch"`
			Name        string    `json:"name"`
		}
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		if len(e.Coordinates) < 3 {
			continue
		}
		name := e.GalMapName
		if name == "" {
			name = e.Name
		}
		if name == "" {
			continue
		}
		stars = append(stars, Star{Name: name, X: e.Coordinates[0], Y: e.Coordinates[1], Z: e.Coordinates[2]})
	}
	return stars, true
}
