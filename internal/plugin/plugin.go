// Package plugin is the host-facing surface of the survey engine: journal
// event entry points, session controls, and debounced target dispatch. A host
// (the CLI harness, or an embedding process) feeds it location and loadout
// events and receives the next target through a TargetSink.
package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sphere-survey/internal/config"
	"sphere-survey/internal/geom"
	"sphere-survey/internal/localfile"
	"sphere-survey/internal/logger"
	"sphere-survey/internal/source"
	"sphere-survey/internal/survey"
)

// Name is the plugin identifier reported to the host.
const Name = "SphereSurvey"

// LocalExportName is the nearest-stars export the plugin adopts automatically
// when one sits in its working directory.
const LocalExportName = "neareststars.json"

// DefaultDebounce is how long a dispatched target waits before being sent,
// so rapid consecutive jumps only deliver the final one.
const DefaultDebounce = 1500 * time.Millisecond

// TargetSink receives the name of the next system to visit. The CLI installs
// a stdout sink; a desktop host would put the name on the clipboard.
type TargetSink interface {
	Dispatch(systemName string) error
}

// SinkFunc adapts a function to the TargetSink interface.
type SinkFunc func(string) error

func (f SinkFunc) Dispatch(name string) error { return f(name) }

// Plugin wires the planner to a host. Create one with New, then call OnStart
// before feeding events.
type Plugin struct {
	settings *config.Settings
	manager  *source.Manager
	local    *localfile.Source
	sink     TargetSink
	debounce time.Duration

	mu          sync.Mutex
	planner     *survey.Planner
	timer       *time.Timer
	loadoutJump float64
	onUpdate    func(survey.Update)
}

// Options configures a Plugin. Settings and Manager are required; Local is
// the JSON-file adapter used for working-directory auto-adoption and may be
// nil; a nil Sink disables auto-copy dispatch.
type Options struct {
	Settings *config.Settings
	Manager  *source.Manager
	Local    *localfile.Source
	Sink     TargetSink
	Debounce time.Duration
}

// New returns a Plugin that is not yet started.
func New(opts Options) *Plugin {
	if opts.Settings == nil {
		opts.Settings = config.Default()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Plugin{
		settings: opts.Settings,
		manager:  opts.Manager,
		local:    opts.Local,
		sink:     opts.Sink,
		debounce: opts.Debounce,
	}
}

// OnUpdate registers a status observer. Must be called before OnStart.
func (pl *Plugin) OnUpdate(fn func(survey.Update)) {
	pl.mu.Lock()
	pl.onUpdate = fn
	pl.mu.Unlock()
}

// OnStart initializes the plugin in workingDir: adopts a local export sitting
// there when the settings do not name one, resolves the state file, resumes a
// persisted session, and returns the plugin name for the host.
func (pl *Plugin) OnStart(workingDir string) (string, error) {
	if pl.local != nil && pl.settings.LocalFilePath == "" {
		export := filepath.Join(workingDir, LocalExportName)
		if _, err := os.Stat(export); err == nil {
			logger.Info("PLUGIN", fmt.Sprintf("adopting local export %s", export))
			pl.local.SetFile(export)
		}
	}

	store := survey.NewStore(filepath.Join(workingDir, survey.StateFileName))
	planner := survey.New(pl.manager, store)

	pl.mu.Lock()
	pl.planner = planner
	if pl.onUpdate != nil {
		planner.OnUpdate(pl.onUpdate)
	}
	pl.mu.Unlock()

	st, err := store.Load()
	if err != nil {
		// A broken state file costs the saved session, never the host.
		logger.Error("PLUGIN", fmt.Sprintf("cannot load saved session, starting fresh: %v", err))
		return Name, nil
	}
	if st != nil {
		planner.Resume(st)
		if st.Active {
			logger.Info("PLUGIN", fmt.Sprintf("resumed survey of %s, %d pending", st.StartSystem, len(st.Pending)))
		}
	}
	return Name, nil
}

// OnLocationChanged feeds a journal location event. During an active session
// this is a visit and schedules the next target for dispatch.
func (pl *Plugin) OnLocationChanged(name string, id64 int64, pos geom.Point) {
	p := pl.plannerRef()
	if p == nil {
		return
	}
	p.SetLocation(name, id64, pos)
	pl.scheduleDispatch()
}

// OnLoadout takes the ship's reported jump range. It feeds the nearest-policy
// cutoff unless the user pinned one in settings.
func (pl *Plugin) OnLoadout(maxJumpLY float64) {
	pl.mu.Lock()
	pl.loadoutJump = maxJumpLY
	p := pl.planner
	pl.mu.Unlock()
	if pl.settings.MaxJumpLY > 0 || p == nil {
		return
	}
	p.SetMaxJump(maxJumpLY)
}

// OnShutdown flushes state and cancels any pending dispatch. The session
// stays whatever it was, so an active survey resumes on the next start.
func (pl *Plugin) OnShutdown() {
	pl.mu.Lock()
	if pl.timer != nil {
		pl.timer.Stop()
		pl.timer = nil
	}
	p := pl.planner
	pl.mu.Unlock()
	if p != nil {
		p.Persist()
	}
}

// StartSurvey begins a session from the current location using the
// configured radius, tie-break and source preference.
func (pl *Plugin) StartSurvey() error {
	p := pl.plannerRef()
	if p == nil {
		return fmt.Errorf("plugin not started")
	}
	maxJump := pl.settings.MaxJumpLY
	if maxJump == 0 {
		pl.mu.Lock()
		maxJump = pl.loadoutJump
		pl.mu.Unlock()
	}
	preferred := pl.settings.DataSource
	if preferred == config.SourceAuto {
		preferred = ""
	}
	return p.Start(survey.StartOptions{
		RadiusLY:  float64(pl.settings.RadiusLY),
		MaxJumpLY: maxJump,
		TieBreak:  pl.settings.TieBreak,
		Preferred: preferred,
	})
}

// StopSurvey deactivates the session, keeping it resumable. Any dispatch
// still waiting on the debounce timer is cancelled with it.
func (pl *Plugin) StopSurvey() {
	pl.mu.Lock()
	if pl.timer != nil {
		pl.timer.Stop()
		pl.timer = nil
	}
	p := pl.planner
	pl.mu.Unlock()
	if p != nil {
		p.Stop()
	}
}

// ResetSurvey discards the session and its state file.
func (pl *Plugin) ResetSurvey() {
	pl.mu.Lock()
	if pl.timer != nil {
		pl.timer.Stop()
		pl.timer = nil
	}
	p := pl.planner
	pl.mu.Unlock()
	if p != nil {
		p.Reset()
	}
}

// DetectSources names the adapters that would serve a fetch, in the order
// the manager would try them.
func (pl *Plugin) DetectSources() []string {
	if pl.manager == nil {
		return nil
	}
	preferred := pl.settings.DataSource
	if preferred == config.SourceAuto {
		preferred = ""
	}
	var names []string
	for _, s := range pl.manager.Select(preferred) {
		names = append(names, s.Name())
	}
	return names
}

// Snapshot returns the current session state, or nil before OnStart.
func (pl *Plugin) Snapshot() *survey.State {
	if p := pl.plannerRef(); p != nil {
		return p.Snapshot()
	}
	return nil
}

// NextTarget returns the system the policy would send the user to next.
func (pl *Plugin) NextTarget() (string, bool) {
	p := pl.plannerRef()
	if p == nil {
		return "", false
	}
	if tgt := p.NextTarget(); tgt != nil {
		return tgt.Name, true
	}
	// Queue swept: offer the way home.
	return p.ReturnTarget()
}

func (pl *Plugin) plannerRef() *survey.Planner {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.planner
}

// scheduleDispatch arms the debounce timer for the current next target. A
// newer visit rearms the timer, so only the last target of a rapid sequence
// reaches the sink.
func (pl *Plugin) scheduleDispatch() {
	if pl.sink == nil || !pl.settings.AutoCopy {
		return
	}
	p := pl.plannerRef()
	if p == nil {
		return
	}
	st := p.Snapshot()
	if !st.Active {
		return
	}
	name, ok := pl.NextTarget()
	if !ok {
		return
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()
	if pl.timer != nil {
		pl.timer.Stop()
	}
	sink := pl.sink
	pl.timer = time.AfterFunc(pl.debounce, func() {
		if err := sink.Dispatch(name); err != nil {
			logger.Warn("PLUGIN", fmt.Sprintf("dispatch %s: %v", name, err))
		}
	})
}
