package system

import (
	"sort"

	"sphere-survey/internal/geom"
)

// Record describes one star system returned by a data source.
// ID64 is the 64-bit system address; 0 means the source did not provide one.
// Distance is measured from whatever reference point the producing query
// used (survey origin or current position), never both.
type Record struct {
	Name     string  `json:"name"`
	ID64     int64   `json:"id64,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Distance float64 `json:"distance"`
}

// Pos returns the record's coordinates as a point.
func (r Record) Pos() geom.Point {
	return geom.Point{X: r.X, Y: r.Y, Z: r.Z}
}

// Same reports whether two records denote the same system: matching system
// addresses when both are known, otherwise matching names.
func Same(a, b Record) bool {
	if a.ID64 != 0 && b.ID64 != 0 {
		return a.ID64 == b.ID64
	}
	return a.Name == b.Name
}

// Matches reports whether the record refers to the given name or address.
// An address match alone is enough; names are compared exactly.
func (r Record) Matches(name string, id64 int64) bool {
	if id64 != 0 && r.ID64 != 0 && r.ID64 == id64 {
		return true
	}
	return r.Name == name
}

// SortByDistance orders records ascending by Distance, with name as the
// tiebreak so equal-distance results are deterministic.
func SortByDistance(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Distance != recs[j].Distance {
			return recs[i].Distance < recs[j].Distance
		}
		return recs[i].Name < recs[j].Name
	})
}

// Dedup removes duplicate systems, keeping the first occurrence. Records are
// keyed by system address when present, otherwise by name; a record carrying
// both keys claims both.
func Dedup(recs []Record) []Record {
	seenIDs := make(map[int64]bool, len(recs))
	seenNames := make(map[string]bool, len(recs))
	out := recs[:0]
	for _, r := range recs {
		if r.ID64 != 0 && seenIDs[r.ID64] {
			continue
		}
		if r.Name != "" && seenNames[r.Name] {
			continue
		}
		if r.ID64 != 0 {
			seenIDs[r.ID64] = true
		}
		if r.Name != "" {
			seenNames[r.Name] = true
		}
		out = append(out, r)
	}
	return out
}
