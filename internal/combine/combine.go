// Package combine merges several system export files into one
// neareststars.json. It accepts the same shapes the localfile adapter reads
// and keeps the first occurrence of every system name.
package combine

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"sphere-survey/internal/localfile"
	"sphere-survey/internal/logger"
)

// headerName labels the synthetic origin record at the top of the output.
const headerName = "Combined Database"

// FileStat counts how many new systems one input contributed.
type FileStat struct {
	Path  string
	Added int
}

// Result describes a completed merge.
type Result struct {
	Files      []FileStat
	Total      int
	BackupPath string // empty when the output did not exist before
	OutputPath string
}

type document struct {
	System  localfile.Star   `json:"System"`
	Nearest []localfile.Star `json:"Nearest"`
}

// Run merges the inputs into output. Missing or unparsable inputs are
// skipped. A pre-existing output is backed up next to itself with a
// timestamp before being overwritten.
func Run(inputs []string, output string) (*Result, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("combine: no input files")
	}

	seen := make(map[string]localfile.Star)
	res := &Result{OutputPath: output}
	for _, path := range inputs {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				logger.Warn("COMBINE", fmt.Sprintf("%s not found, skipping", path))
				res.Files = append(res.Files, FileStat{Path: path})
				continue
			}
			return nil, fmt.Errorf("combine: read %s: %w", path, err)
		}
		stars, err := localfile.Parse(data)
		if err != nil {
			logger.Warn("COMBINE", fmt.Sprintf("%s: %v, skipping", path, err))
			res.Files = append(res.Files, FileStat{Path: path})
			continue
		}

		added := 0
		for _, s := range stars {
			if _, ok := seen[s.Name]; ok {
				continue
			}
			seen[s.Name] = s
			added++
		}
		res.Files = append(res.Files, FileStat{Path: path, Added: added})
		logger.Info("COMBINE", fmt.Sprintf("%s: %d new systems", path, added))
	}

	if len(seen) == 0 {
		return nil, fmt.Errorf("combine: no systems found in any input")
	}
	res.Total = len(seen)

	if _, err := os.Stat(output); err == nil {
		backup := fmt.Sprintf("%s.%s.backup", output, time.Now().Format("20060102_150405"))
		if err := copyFile(output, backup); err != nil {
			return nil, fmt.Errorf("combine: backup: %w", err)
		}
		res.BackupPath = backup
		logger.Info("COMBINE", fmt.Sprintf("backed up existing output to %s", backup))
	}

	nearest := make([]localfile.Star, 0, len(seen))
	for _, s := range seen {
		nearest = append(nearest, s)
	}
	sort.Slice(nearest, func(i, j int) bool { return nearest[i].Name < nearest[j].Name })

	doc := document{
		System:  localfile.Star{Name: headerName},
		Nearest: nearest,
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("combine: encode: %w", err)
	}
	if err := os.WriteFile(output, out, 0o644); err != nil {
		return nil, fmt.Errorf("combine: write %s: %w", output, err)
	}
	logger.Success("COMBINE", fmt.Sprintf("wrote %d systems to %s", res.Total, output))
	return res, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
