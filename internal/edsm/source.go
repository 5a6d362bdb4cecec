package edsm

import (
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"sphere-survey/internal/geom"
	"sphere-survey/internal/logger"
	"sphere-survey/internal/system"
)

const (
	// maxCubeEdge is the largest cube EDSM will serve in one query.
	maxCubeEdge = 200.0
	// minCubeEdge keeps tiny radii from producing degenerate tiles.
	minCubeEdge = 20.0
	// tileConcurrency bounds in-flight cube queries during tiling.
	tileConcurrency = 4
)

// Source exposes EDSM as a survey data source.
type Source struct {
	client *Client
	// maxEdge is maxCubeEdge in production; tests shrink it to force tiling.
	maxEdge float64
}

// NewSource wraps a client as a data source.
func NewSource(c *Client) *Source {
	return &Source{client: c, maxEdge: maxCubeEdge}
}

// Available is true whenever the client exists; actual reachability shows up
// as a query failure and is handled by the manager's fallback.
func (s *Source) Available() bool { return s.client != nil }

// Priority: the network source is the fallback behind both local sources.
func (s *Source) Priority() int { return 2 }

// Name returns the source selector name.
func (s *Source) Name() string { return "edsm" }

// Query tries a single sphere query first and falls back to cube tiling when
// the sphere comes back failed or empty. The fallback lives here, inside the
// adapter, so the manager only ever sees one EDSM attempt.
func (s *Source) Query(origin geom.Point, radius float64) ([]system.Record, error) {
	recs, err := s.sphere(origin, radius)
	if err == nil && len(recs) > 0 {
		return recs, nil
	}
	if err != nil {
		logger.Warn("EDSM", fmt.Sprintf("sphere query failed (%v), tiling cubes", err))
	} else {
		logger.Info("EDSM", "sphere query empty, tiling cubes")
	}
	return s.cubeTiled(origin, radius)
}

func (s *Source) sphere(origin geom.Point, radius float64) ([]system.Record, error) {
	wire, err := s.client.SphereSystems(origin.X, origin.Y, origin.Z, radius)
	if err != nil {
		return nil, err
	}
	recs := toRecords(wire, origin)
	system.SortByDistance(recs)
	return recs, nil
}

// cubeTiled covers the sphere with overlapping axis-aligned cube queries.
// Edge S = min(max(20, 2R), maxEdge). When a single cube holds the whole
// sphere there is exactly one tile; otherwise tiles stride S/2 for 50%
// overlap so no system can fall through a seam, with centers spanning
// [-R, +R] on each axis, boundary tiles included.
func (s *Source) cubeTiled(origin geom.Point, radius float64) ([]system.Record, error) {
	edge := math.Min(math.Max(minCubeEdge, 2*radius), s.maxEdge)

	centers := tileCenters(origin, radius, edge)
	logger.Info("EDSM", fmt.Sprintf("cube tiling: %d tiles of %.0f ly", len(centers), edge))

	var (
		mu   sync.Mutex
		wire []wireSystem
	)
	g := new(errgroup.Group)
	g.SetLimit(tileConcurrency)
	for _, c := range centers {
		c := c
		g.Go(func() error {
			tile, err := s.client.CubeSystems(c.X, c.Y, c.Z, edge)
			if err != nil {
				// A failed tile costs coverage, not the whole query.
				logger.Debug("EDSM", fmt.Sprintf("tile (%.0f,%.0f,%.0f) failed: %v", c.X, c.Y, c.Z, err))
				return nil
			}
			mu.Lock()
			wire = append(wire, tile...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // tile funcs never return an error, failures only log

	recs := system.Dedup(toRecords(wire, origin))
	kept := recs[:0]
	for _, r := range recs {
		if r.Distance <= radius {
			kept = append(kept, r)
		}
	}
	system.SortByDistance(kept)
	if len(kept) == 0 {
		return nil, fmt.Errorf("cube tiling over %d tiles found no systems", len(centers))
	}
	return kept, nil
}

// tileCenters enumerates cube centers covering the sphere of the given
// radius around origin.
func tileCenters(origin geom.Point, radius, edge float64) []geom.Point {
	if edge >= 2*radius {
		return []geom.Point{origin}
	}
	stride := edge / 2
	n := int(math.Ceil(radius / stride))

	centers := make([]geom.Point, 0, (2*n+1)*(2*n+1)*(2*n+1))
	for kx := -n; kx <= n; kx++ {
		for ky := -n; ky <= n; ky++ {
			for kz := -n; kz <= n; kz++ {
				centers = append(centers, geom.Point{
					X: origin.X + float64(kx)*stride,
					Y: origin.Y + float64(ky)*stride,
					Z: origin.Z + float64(kz)*stride,
				})
			}
		}
	}
	return centers
}

// toRecords converts wire entries, computing true distance from origin.
func toRecords(wire []wireSystem, origin geom.Point) []system.Record {
	out := make([]system.Record, 0, len(wire))
	for _, ws := range wire {
		out = append(out, system.Record{
			Name:     ws.Name,
			ID64:     ws.ID64,
			X:        ws.Coords.X,
			Y:        ws.Coords.Y,
			Z:        ws.Coords.Z,
			Distance: geom.DistXYZ(origin, ws.Coords.X, ws.Coords.Y, ws.Coords.Z),
		})
	}
	return out
}
