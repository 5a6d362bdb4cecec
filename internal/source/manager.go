package source

import (
	"fmt"
	"sort"

	"sphere-survey/internal/geom"
	"sphere-survey/internal/logger"
	"sphere-survey/internal/system"
)

// Manager tries a set of sources in preference order until one yields data.
type Manager struct {
	sources []Source
}

// NewManager creates a Manager over the given sources. Order of registration
// does not matter; selection is by availability and priority.
func NewManager(sources ...Source) *Manager {
	return &Manager{sources: sources}
}

// Select returns the sources to try, in order: the preferred source first
// when it is named and available, then every other available source by
// ascending priority. Unavailable sources are never attempted.
func (m *Manager) Select(preferred string) []Source {
	var head []Source
	var rest []Source
	for _, s := range m.sources {
		if !s.Available() {
			logger.Debug("SOURCE", fmt.Sprintf("%s unavailable, skipping", s.Name()))
			continue
		}
		if preferred != "" && s.Name() == preferred {
			head = append(head, s)
			continue
		}
		rest = append(rest, s)
	}
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].Priority() < rest[j].Priority() })
	return append(head, rest...)
}

// Fetch queries sources in Select order and returns the first non-empty
// result along with the name of the source that produced it. A source error
// or empty result just moves on to the next source. When every source fails
// or comes back empty, Fetch returns (nil, "").
func (m *Manager) Fetch(origin geom.Point, radius float64, preferred string) ([]system.Record, string) {
	order := m.Select(preferred)
	if len(order) == 0 {
		logger.Error("SOURCE", "no data sources available")
		return nil, ""
	}

	for _, s := range order {
		recs, err := query(s, origin, radius)
		if err != nil {
			logger.Warn("SOURCE", fmt.Sprintf("%s failed: %v", s.Name(), err))
			continue
		}
		if len(recs) == 0 {
			logger.Warn("SOURCE", fmt.Sprintf("%s returned no systems", s.Name()))
			continue
		}
		logger.Success("SOURCE", fmt.Sprintf("%s returned %d systems", s.Name(), len(recs)))
		return recs, s.Name()
	}

	logger.Error("SOURCE", "all data sources failed or returned no results")
	return nil, ""
}

// query shields the manager from a panicking adapter; a panic is reported as
// an ordinary source failure so the fallback chain keeps going.
func query(s Source, origin geom.Point, radius float64) (recs []system.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			recs, err = nil, fmt.Errorf("%s panicked: %v", s.Name(), r)
		}
	}()
	return s.Query(origin, radius)
}
