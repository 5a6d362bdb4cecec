// Package localdb serves systems from an EDDiscovery SQLite database.
package localdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"sphere-survey/internal/geom"
	"sphere-survey/internal/logger"
	"sphere-survey/internal/system"

	_ "modernc.org/sqlite"
)

// maxRows caps a single bounding-box query so a dense region cannot make the
// pre-filter unbounded.
const maxRows = 1000

// systemTables are the table names EDDiscovery has used across versions.
var systemTables = []string{"SystemList", "Systems", "EdsmSystems", "system"}

// Source queries a pre-built local system index with a bounding-box
// pre-filter and a true-distance post-filter.
type Source struct {
	mu    sync.Mutex
	path  string
	db    *sql.DB
	table string
}

// New creates a Source for the given database path. An empty path scans the
// default EDDiscovery locations for this machine.
func New(path string) *Source {
	if path == "" {
		path = findDefault()
	}
	return &Source{path: path}
}

// findDefault returns the first existing known EDDiscovery database path.
func findDefault() string {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	candidates := []string{
		filepath.Join(cfg, "EDDiscovery", "EDDUser.sqlite"),
		filepath.Join(cfg, "EDDiscovery", "Systems.sqlite"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// open opens the database once and locates a recognizable systems table.
func (s *Source) open() error {
	if s.db != nil {
		return nil
	}
	if s.path == "" {
		return fmt.Errorf("no database path")
	}
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("stat db: %w", err)
	}

	db, err := sql.Open("sqlite", s.path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("ping db: %w", err)
	}

	table, err := detectTable(db)
	if err != nil {
		db.Close()
		return err
	}

	s.db = db
	s.table = table
	logger.Info("EDD", fmt.Sprintf("using table %s in %s", table, s.path))
	return nil
}

// detectTable checks sqlite_master for a known systems table.
func detectTable(db *sql.DB) (string, error) {
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table'")
	if err != nil {
		return "", fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			continue
		}
		present[name] = true
	}
	for _, t := range systemTables {
		if present[t] {
			return t, nil
		}
	}
	return "", fmt.Errorf("no recognizable systems table")
}

// Available reports whether the database exists and carries a recognizable
// schema. Failures are swallowed into false.
func (s *Source) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.open(); err != nil {
		logger.Debug("EDD", fmt.Sprintf("unavailable: %v", err))
		return false
	}
	return true
}

// Query runs a bounding-box pre-filter around origin, then keeps only rows
// within the true radius. Rows that fail to scan are skipped.
func (s *Source) Query(origin geom.Point, radius float64) ([]system.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.open(); err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		SELECT name, x, y, z, id
		FROM %s
		WHERE x BETWEEN ? AND ?
		  AND y BETWEEN ? AND ?
		  AND z BETWEEN ? AND ?
		LIMIT %d`, s.table, maxRows)

	rows, err := s.db.Query(q,
		origin.X-radius, origin.X+radius,
		origin.Y-radius, origin.Y+radius,
		origin.Z-radius, origin.Z+radius,
	)
	if err != nil {
		return nil, fmt.Errorf("bbox query: %w", err)
	}
	defer rows.Close()

	var out []system.Record
	for rows.Next() {
		var (
			name    string
			x, y, z float64
			id      sql.NullInt64
		)
		if err := rows.Scan(&name, &x, &y, &z, &id); err != nil {
			continue
		}
		d := geom.DistXYZ(origin, x, y, z)
		if d > radius {
			continue
		}
		out = append(out, system.Record{
			Name:     name,
			ID64:     id.Int64,
			X:        x,
			Y:        y,
			Z:        z,
			Distance: d,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan rows: %w", err)
	}
	system.SortByDistance(out)
	return out, nil
}

// Close releases the database handle.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Priority: a local index is preferred over the network but not over a
// hand-curated file.
func (s *Source) Priority() int { return 1 }

// Name returns the source selector name.
func (s *Source) Name() string { return "eddb" }
