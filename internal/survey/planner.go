package survey

import (
	"fmt"
	"sync"
	"time"

	"sphere-survey/internal/config"
	"sphere-survey/internal/geom"
	"sphere-survey/internal/logger"
	"sphere-survey/internal/system"
)

// Fetcher yields systems near a point from whatever source answers first.
// source.Manager is the production implementation.
type Fetcher interface {
	Fetch(origin geom.Point, radius float64, preferred string) ([]system.Record, string)
}

// Update is a snapshot pushed to the observer after every state change.
type Update struct {
	Active     bool
	Status     string
	Err        error
	NextTarget *system.Record
	Visited    int
	Pending    int
	Total      int
	Source     string
}

// StartOptions parameterize one survey session.
type StartOptions struct {
	RadiusLY  float64
	MaxJumpLY float64
	TieBreak  string
	Preferred string
}

// Planner owns the survey session: it builds the queue from a fetch, tracks
// visits as the position changes, and answers "where next". One mutex
// serializes every mutation, including persistence writes; a generation
// counter discards fetch results that a stop, reset or newer start has
// superseded.
type Planner struct {
	mu    sync.Mutex
	state *State

	fetcher Fetcher
	store   *Store
	gen     uint64

	curName string
	curID   int64
	curPos  *geom.Point

	onUpdate func(Update)
}

// New creates a Planner. store may be nil for an in-memory-only session.
func New(fetcher Fetcher, store *Store) *Planner {
	return &Planner{
		state:   NewState(),
		fetcher: fetcher,
		store:   store,
	}
}

// OnUpdate installs the single observer callback. It is invoked outside the
// planner lock, so the observer may call back into the planner.
func (p *Planner) OnUpdate(fn func(Update)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onUpdate = fn
}

// Resume adopts a previously persisted state, typically at host start-up.
func (p *Planner) Resume(st *State) {
	if st == nil {
		return
	}
	p.mu.Lock()
	p.state = st
	u := p.updateLocked("session restored")
	p.mu.Unlock()
	p.emit(u)
}

// SetLocation records the user's current position. While a survey is active
// every position change is a visit event; duplicate notifications for the
// same arrival are harmless.
func (p *Planner) SetLocation(name string, id64 int64, pos geom.Point) {
	p.mu.Lock()
	p.curName = name
	p.curID = id64
	cp := pos
	p.curPos = &cp

	if !p.state.Active || name == "" {
		p.mu.Unlock()
		return
	}
	changed := p.markVisitedLocked(name, id64)
	if changed {
		p.persistLocked()
	}
	u := p.updateLocked("")
	p.mu.Unlock()
	p.emit(u)
}

// Location returns the last reported position.
func (p *Planner) Location() (name string, pos geom.Point, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.curPos == nil {
		return "", geom.Point{}, false
	}
	return p.curName, *p.curPos, true
}

// Start begins a new survey around the current position. It fails with
// ErrNoOrigin when no position is known; the fetch itself runs in the
// background and its outcome arrives through the observer callback.
func (p *Planner) Start(opts StartOptions) error {
	p.mu.Lock()
	if p.curName == "" || p.curPos == nil {
		p.mu.Unlock()
		return ErrNoOrigin
	}

	origin := *p.curPos
	originName := p.curName
	originID := p.curID

	p.state.Reset()
	p.state.Active = true
	p.state.StartSystem = originName
	p.state.StartCoords = &[3]float64{origin.X, origin.Y, origin.Z}
	p.state.RadiusLY = opts.RadiusLY
	p.state.MaxJumpLY = opts.MaxJumpLY
	p.state.TieBreak = opts.TieBreak
	p.state.StartedAt = float64(time.Now().UnixNano()) / 1e9

	p.gen++
	gen := p.gen
	p.persistLocked()
	u := p.updateLocked("querying data sources...")
	p.mu.Unlock()
	p.emit(u)

	go p.runFetch(gen, origin, originName, originID, opts.RadiusLY, opts.Preferred)
	return nil
}

// runFetch performs the slow multi-source query off the lock, then applies
// the result atomically, unless the session moved on in the meantime.
func (p *Planner) runFetch(gen uint64, origin geom.Point, originName string, originID int64, radius float64, preferred string) {
	recs, src := p.fetcher.Fetch(origin, radius, preferred)

	p.mu.Lock()
	if p.gen != gen || !p.state.Active {
		p.mu.Unlock()
		logger.Debug("SURVEY", "discarding stale fetch result")
		return
	}

	if len(recs) == 0 {
		p.state.Reset()
		p.persistLocked()
		u := p.updateLocked("")
		u.Err = ErrNoSystemsFound
		u.Status = ErrNoSystemsFound.Error()
		p.mu.Unlock()
		p.emit(u)
		return
	}

	// Recompute distances from the origin, enforce the radius, drop
	// duplicates. Sources should have done all three; the queue invariants
	// do not depend on them having done so.
	recs = system.Dedup(recs)
	kept := make([]system.Record, 0, len(recs))
	for _, r := range recs {
		r.Distance = geom.Dist(origin, r.Pos())
		if r.Distance > radius {
			continue
		}
		kept = append(kept, r)
	}
	system.SortByDistance(kept)

	p.state.AllSystems = make(map[string]system.Record, len(kept))
	for _, r := range kept {
		p.state.AllSystems[r.Name] = r
	}
	p.state.SourceUsed = src

	// The origin counts as visited from the start. Visits that arrived
	// while the fetch was in flight are already in the visited sets, so the
	// queue is built against them and can never resurrect a visited system.
	p.state.VisitedNames[originName] = true
	if originID != 0 {
		p.state.VisitedIDs[originID] = true
	}
	p.state.Pending = nil
	for _, r := range kept {
		if r.Matches(originName, originID) || p.visitedLocked(r) {
			continue
		}
		p.state.Pending = append(p.state.Pending, r)
	}

	p.persistLocked()
	u := p.updateLocked(fmt.Sprintf("survey started: %d systems from %s", len(kept), src))
	p.mu.Unlock()
	p.emit(u)
}

// NextTarget returns the next system to visit, or nil when the queue is
// empty. Under the queue policy that is the head, fixed at build time by
// ascending distance from the origin. Under the nearest policy it is the
// closest pending system to the current position, preferring those within
// the jump-range cutoff but falling back to the whole queue rather than
// answering nothing.
func (p *Planner) NextTarget() *system.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextTargetLocked()
}

func (p *Planner) nextTargetLocked() *system.Record {
	if len(p.state.Pending) == 0 {
		return nil
	}
	if p.state.TieBreak != config.TieBreakNearest || p.curPos == nil {
		r := p.state.Pending[0]
		return &r
	}

	cur := *p.curPos
	candidates := p.state.Pending
	if p.state.MaxJumpLY > 0 {
		var inRange []system.Record
		for _, r := range candidates {
			if geom.Dist(cur, r.Pos()) <= p.state.MaxJumpLY {
				inRange = append(inRange, r)
			}
		}
		// Reachability is advisory: an out-of-range suggestion beats none.
		if len(inRange) > 0 {
			candidates = inRange
		}
	}

	best := candidates[0]
	bestDist := geom.Dist(cur, best.Pos())
	for _, r := range candidates[1:] {
		d := geom.Dist(cur, r.Pos())
		if d < bestDist || (d == bestDist && r.Name < best.Name) {
			best = r
			bestDist = d
		}
	}
	return &best
}

// visitedLocked reports whether the record matches the visited sets.
func (p *Planner) visitedLocked(r system.Record) bool {
	if r.ID64 != 0 && p.state.VisitedIDs[r.ID64] {
		return true
	}
	return p.state.VisitedNames[r.Name]
}

// markVisitedLocked records a visit and prunes the queue. Idempotent:
// repeating the same arrival reports no change.
func (p *Planner) markVisitedLocked(name string, id64 int64) bool {
	changed := false
	if !p.state.VisitedNames[name] {
		p.state.VisitedNames[name] = true
		changed = true
	}
	if id64 != 0 && !p.state.VisitedIDs[id64] {
		p.state.VisitedIDs[id64] = true
		changed = true
	}

	kept := p.state.Pending[:0]
	for _, r := range p.state.Pending {
		if r.Matches(name, id64) {
			changed = true
			continue
		}
		kept = append(kept, r)
	}
	p.state.Pending = kept
	if changed {
		logger.Info("SURVEY", fmt.Sprintf("visited %s, %d pending", name, len(kept)))
	}
	return changed
}

// Stop deactivates the session but keeps queue and visited sets so it can be
// resumed later.
func (p *Planner) Stop() {
	p.mu.Lock()
	p.state.Active = false
	p.gen++
	p.persistLocked()
	u := p.updateLocked("survey stopped")
	p.mu.Unlock()
	p.emit(u)
}

// Reset clears the session entirely and deletes the persisted record.
func (p *Planner) Reset() {
	p.mu.Lock()
	p.state.Reset()
	p.gen++
	if p.store != nil {
		if err := p.store.Delete(); err != nil {
			logger.Error("STATE", err.Error())
		}
	}
	u := p.updateLocked("survey reset")
	p.mu.Unlock()
	p.emit(u)
}

// SetMaxJump updates the jump-range cutoff used by the nearest policy, e.g.
// when the ship loadout reports a new range mid-session.
func (p *Planner) SetMaxJump(ly float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.MaxJumpLY == ly {
		return
	}
	p.state.MaxJumpLY = ly
	p.persistLocked()
}

// Persist writes the current state to disk without changing it. Used on host
// shutdown so an active session survives a restart.
func (p *Planner) Persist() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.persistLocked()
}

// Snapshot returns a deep copy of the current state.
func (p *Planner) Snapshot() *State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Clone()
}

// Progress returns visited/pending counts against the discovered total.
func (p *Planner) Progress() (visited, pending, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.state.VisitedNames), len(p.state.Pending), len(p.state.AllSystems)
}

// ReturnTarget names the start system when the user is somewhere else and a
// session has one; used for the "return to start" shortcut once the sphere
// is swept.
func (p *Planner) ReturnTarget() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.StartSystem == "" || p.curName == p.state.StartSystem {
		return "", false
	}
	return p.state.StartSystem, true
}

// persistLocked snapshots state to disk. A failing write degrades to an
// in-memory session and is only logged; it never aborts the operation.
func (p *Planner) persistLocked() {
	if p.store == nil {
		return
	}
	if err := p.store.Save(p.state); err != nil {
		logger.Error("STATE", fmt.Sprintf("persist failed, continuing in memory: %v", err))
	}
}

// updateLocked builds an observer snapshot. Callers emit it after unlocking.
func (p *Planner) updateLocked(status string) Update {
	return Update{
		Active:     p.state.Active,
		Status:     status,
		NextTarget: p.nextTargetLocked(),
		Visited:    len(p.state.VisitedNames),
		Pending:    len(p.state.Pending),
		Total:      len(p.state.AllSystems),
		Source:     p.state.SourceUsed,
	}
}

func (p *Planner) emit(u Update) {
	p.mu.Lock()
	fn := p.onUpdate
	p.mu.Unlock()
	if fn != nil {
		fn(u)
	}
}
