package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sphere-survey/internal/edsm"
	"sphere-survey/internal/geom"
	"sphere-survey/internal/localdb"
	"sphere-survey/internal/localfile"
	"sphere-survey/internal/logger"
	"sphere-survey/internal/plugin"
	"sphere-survey/internal/source"
	"sphere-survey/internal/survey"
)

var runWorkDir string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive a survey from journal events on stdin",
	Long: `run reads journal-style JSON lines from stdin (Location, FSDJump,
CarrierJump and Loadout events) and feeds them to the survey engine. The
single words start, stop, reset and detect control the session. Each visit
prints the next target to stdout.`,
	RunE: runHarness,
}

func init() {
	runCmd.Flags().StringVar(&runWorkDir, "dir", ".", "working directory for state and local exports")
	rootCmd.AddCommand(runCmd)
}

// journalEvent covers the few journal fields the harness reads.
type journalEvent struct {
	Event         string    `json:"event"`
	StarSystem    string    `json:"StarSystem"`
	SystemAddress int64     `json:"SystemAddress"`
	StarPos       []float64 `json:"StarPos"`
	MaxJumpRange  float64   `json:"MaxJumpRange"`
}

func runHarness(cmd *cobra.Command, args []string) error {
	logger.Banner(version)

	local := localfile.New(settings.LocalFilePath)
	db := localdb.New(settings.LocalDBPath)
	defer db.Close()
	remote := edsm.NewSource(edsm.NewClient())
	manager := source.NewManager(local, db, remote)

	sink := plugin.SinkFunc(func(name string) error {
		_, err := fmt.Fprintf(os.Stdout, "NEXT TARGET> %s\n", name)
		return err
	})
	pl := plugin.New(plugin.Options{
		Settings: settings,
		Manager:  manager,
		Local:    local,
		Sink:     sink,
	})
	pl.OnUpdate(func(u survey.Update) {
		if u.Err != nil {
			logger.Warn("SURVEY", u.Err.Error())
			return
		}
		status := u.Status
		if status == "" {
			status = "progress"
		}
		logger.Info("SURVEY", fmt.Sprintf("%s (%d visited, %d pending of %d)",
			status, u.Visited, u.Pending, u.Total))
	})

	name, err := pl.OnStart(runWorkDir)
	if err != nil {
		return err
	}
	logger.Success("PLUGIN", name+" ready, reading events from stdin")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "{") {
			handleEvent(pl, line)
			continue
		}
		handleCommand(pl, line)
	}
	pl.OnShutdown()
	return scanner.Err()
}

func handleEvent(pl *plugin.Plugin, line string) {
	var ev journalEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		logger.Warn("EVENT", fmt.Sprintf("bad journal line: %v", err))
		return
	}
	switch ev.Event {
	case "Location", "FSDJump", "CarrierJump":
		if ev.StarSystem == "" || len(ev.StarPos) < 3 {
			logger.Warn("EVENT", ev.Event+" without system position, ignored")
			return
		}
		pl.OnLocationChanged(ev.StarSystem, ev.SystemAddress, geom.Point{
			X: ev.StarPos[0], Y: ev.StarPos[1], Z: ev.StarPos[2],
		})
	case "Loadout":
		if ev.MaxJumpRange > 0 {
			pl.OnLoadout(ev.MaxJumpRange)
		}
	default:
		logger.Debug("EVENT", "ignoring "+ev.Event)
	}
}

func handleCommand(pl *plugin.Plugin, word string) {
	switch word {
	case "start":
		if err := pl.StartSurvey(); err != nil {
			logger.Warn("SURVEY", err.Error())
		}
	case "stop":
		pl.StopSurvey()
	case "reset":
		pl.ResetSurvey()
	case "detect":
		names := pl.DetectSources()
		if len(names) == 0 {
			logger.Warn("SOURCES", "no data source available")
			return
		}
		logger.Info("SOURCES", strings.Join(names, ", "))
	default:
		logger.Warn("INPUT", fmt.Sprintf("unknown command %q", word))
	}
}
