// Package source defines the contract shared by all system data providers
// and the manager that falls back between them.
package source

import (
	"sphere-survey/internal/geom"
	"sphere-survey/internal/system"
)

// Source is one interchangeable provider of "systems near a point".
type Source interface {
	// Available reports whether the source can be queried right now. It must
	// be cheap and must never panic; any internal failure reads as false.
	Available() bool
	// Query returns the systems within radius of origin, ascending by
	// distance from origin. A nil slice without error means the source had
	// no data. Malformed provider entries are skipped, never fatal.
	Query(origin geom.Point, radius float64) ([]system.Record, error)
	// Priority orders sources for automatic selection; lower is tried first.
	Priority() int
	// Name is the stable selector/display name of the source.
	Name() string
}
