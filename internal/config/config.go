package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Tie-break policies for picking the next survey target.
const (
	TieBreakNearest = "nearest" // closest pending system to the current position
	TieBreakQueue   = "queue"   // head of the queue, ordered by distance from origin
)

// Source selector values. "auto" lets the manager pick by priority.
const (
	SourceAuto      = "auto"
	SourceLocalJSON = "local"
	SourceEDD       = "eddb"
	SourceEDSM      = "edsm"
)

// Settings holds the survey engine configuration (in-memory representation).
// The host's settings surface maps onto this struct one field at a time.
type Settings struct {
	Enabled   bool    `json:"enabled" mapstructure:"enabled"`
	Debug     bool    `json:"debug" mapstructure:"debug"`
	RadiusLY  int     `json:"radius_ly" mapstructure:"radius_ly" validate:"gt=0"`
	MaxJumpLY float64 `json:"max_jump_ly" mapstructure:"max_jump_ly" validate:"gte=0"`

	// DataSource is "auto" or one of the adapter selector names.
	DataSource string `json:"data_source" mapstructure:"data_source" validate:"oneof=auto local eddb edsm"`
	// LocalFilePath points at a neareststars.json export.
	LocalFilePath string `json:"local_file_path" mapstructure:"local_file_path"`
	// LocalDBPath points at an EDDiscovery SQLite database.
	LocalDBPath string `json:"local_db_path" mapstructure:"local_db_path"`

	TieBreak string `json:"tie_break" mapstructure:"tie_break" validate:"oneof=nearest queue"`
	AutoCopy bool   `json:"auto_copy" mapstructure:"auto_copy"`
}

// Default returns Settings with the stock defaults: 50 ly radius, nearest
// tie-break, auto source selection, auto-copy on. MaxJumpLY 0 means no cutoff.
func Default() *Settings {
	return &Settings{
		Enabled:    true,
		RadiusLY:   50,
		DataSource: SourceAuto,
		TieBreak:   TieBreakNearest,
		AutoCopy:   true,
	}
}

var validate = validator.New()

// Validate checks field constraints and returns a descriptive error for the
// first violation.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return fmt.Errorf("settings: field %s fails %q", errs[0].Field(), errs[0].Tag())
		}
		return fmt.Errorf("settings: %w", err)
	}
	return nil
}
