package survey

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"sphere-survey/internal/system"
)

// StateFileName is the survey state file kept in the plugin working
// directory.
const StateFileName = "survey_state.json"

// Store persists State as a JSON file. An absent file is a valid "no prior
// session", never an error.
type Store struct {
	path string
}

// NewStore creates a store writing to the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the state file location.
func (s *Store) Path() string { return s.path }

// Load reads the persisted state. Returns (nil, nil) when no file exists.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	st := NewState()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	// Files written by hand or by older versions may omit the containers.
	if st.VisitedIDs == nil {
		st.VisitedIDs = make(IDSet)
	}
	if st.VisitedNames == nil {
		st.VisitedNames = make(NameSet)
	}
	if st.AllSystems == nil {
		st.AllSystems = make(map[string]system.Record)
	}
	return st, nil
}

// Save writes the state atomically: temp file in the same directory, then
// rename over the target so a crash never leaves a torn file.
func (s *Store) Save(st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".survey_state-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Delete removes the state file. A missing file is fine.
func (s *Store) Delete() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}
