package survey

import (
	"path/filepath"
	"testing"
	"time"

	"sphere-survey/internal/config"
	"sphere-survey/internal/geom"
	"sphere-survey/internal/system"
)

// stubFetcher returns a scripted result, optionally blocking until released.
type stubFetcher struct {
	recs    []system.Record
	src     string
	release chan struct{}
}

func (f *stubFetcher) Fetch(origin geom.Point, radius float64, preferred string) ([]system.Record, string) {
	if f.release != nil {
		<-f.release
	}
	return f.recs, f.src
}

var testField = []system.Record{
	{Name: "A", ID64: 1, X: 10, Y: 0, Z: 0},
	{Name: "B", ID64: 2, X: 5, Y: 0, Z: 0},
	{Name: "C", ID64: 3, X: 60, Y: 0, Z: 0},
}

func newTestPlanner(t *testing.T, f Fetcher) (*Planner, chan Update) {
	t.Helper()
	p := New(f, NewStore(filepath.Join(t.TempDir(), StateFileName)))
	updates := make(chan Update, 64)
	p.OnUpdate(func(u Update) { updates <- u })
	return p, updates
}

func waitUpdate(t *testing.T, ch <-chan Update, cond func(Update) bool) Update {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case u := <-ch:
			if cond(u) {
				return u
			}
		case <-deadline:
			t.Fatal("timed out waiting for update")
		}
	}
}

func startOpts() StartOptions {
	return StartOptions{RadiusLY: 50, TieBreak: config.TieBreakQueue}
}

func pendingNames(st *State) []string {
	out := make([]string, len(st.Pending))
	for i, r := range st.Pending {
		out[i] = r.Name
	}
	return out
}

func TestStart_NoOrigin(t *testing.T) {
	p, _ := newTestPlanner(t, &stubFetcher{})
	if err := p.Start(startOpts()); err != ErrNoOrigin {
		t.Errorf("Start without location = %v, want ErrNoOrigin", err)
	}
}

func TestStart_BuildsQueueAscendingWithinRadius(t *testing.T) {
	p, updates := newTestPlanner(t, &stubFetcher{recs: testField, src: "edsm"})
	p.SetLocation("Sol", 99, geom.Point{})

	if err := p.Start(startOpts()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitUpdate(t, updates, func(u Update) bool { return u.Active && u.Total > 0 })

	st := p.Snapshot()
	got := pendingNames(st)
	if len(got) != 2 || got[0] != "B" || got[1] != "A" {
		t.Errorf("queue = %v, want [B A] (C beyond radius excluded)", got)
	}
	if !st.VisitedNames["Sol"] || !st.VisitedIDs[99] {
		t.Error("origin not marked visited")
	}
	if st.SourceUsed != "edsm" {
		t.Errorf("source = %q, want edsm", st.SourceUsed)
	}
}

func TestStart_OriginNeverQueued(t *testing.T) {
	recs := append([]system.Record{{Name: "Sol", ID64: 99}}, testField...)
	p, updates := newTestPlanner(t, &stubFetcher{recs: recs, src: "local"})
	p.SetLocation("Sol", 99, geom.Point{})

	if err := p.Start(startOpts()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitUpdate(t, updates, func(u Update) bool { return u.Active && u.Total > 0 })

	for _, n := range pendingNames(p.Snapshot()) {
		if n == "Sol" {
			t.Fatal("origin present in pending queue")
		}
	}
}

func TestStart_AllSourcesFail(t *testing.T) {
	p, updates := newTestPlanner(t, &stubFetcher{})
	p.SetLocation("Sol", 99, geom.Point{})

	if err := p.Start(startOpts()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	u := waitUpdate(t, updates, func(u Update) bool { return u.Err != nil })
	if u.Err != ErrNoSystemsFound {
		t.Errorf("Err = %v, want ErrNoSystemsFound", u.Err)
	}
	if st := p.Snapshot(); st.Active {
		t.Error("session should revert to idle when every source fails")
	}
}

func TestVisit_RemovesFromQueueAndIsIdempotent(t *testing.T) {
	p, updates := newTestPlanner(t, &stubFetcher{recs: testField, src: "edsm"})
	p.SetLocation("Sol", 99, geom.Point{})
	p.Start(startOpts())
	waitUpdate(t, updates, func(u Update) bool { return u.Active && u.Total > 0 })

	p.SetLocation("B", 2, geom.Point{X: 5})
	first := p.Snapshot()
	if got := pendingNames(first); len(got) != 1 || got[0] != "A" {
		t.Fatalf("queue after visiting B = %v, want [A]", got)
	}

	// Duplicate arrival notification: nothing may change.
	p.SetLocation("B", 2, geom.Point{X: 5})
	second := p.Snapshot()
	if len(second.Pending) != len(first.Pending) ||
		len(second.VisitedNames) != len(first.VisitedNames) ||
		len(second.VisitedIDs) != len(first.VisitedIDs) {
		t.Errorf("duplicate visit changed state: %+v vs %+v", second, first)
	}
}

func TestVisit_MatchesByIDAlone(t *testing.T) {
	p, updates := newTestPlanner(t, &stubFetcher{recs: testField, src: "edsm"})
	p.SetLocation("Sol", 99, geom.Point{})
	p.Start(startOpts())
	waitUpdate(t, updates, func(u Update) bool { return u.Active && u.Total > 0 })

	// The journal may report a renamed system; the address still matches.
	p.SetLocation("B (procedural)", 2, geom.Point{X: 5})
	for _, n := range pendingNames(p.Snapshot()) {
		if n == "B" {
			t.Fatal("queue entry with matching id64 survived the visit")
		}
	}
}

func TestNextTarget_QueueOrder(t *testing.T) {
	p, updates := newTestPlanner(t, &stubFetcher{recs: testField, src: "edsm"})
	p.SetLocation("Sol", 99, geom.Point{})
	p.Start(startOpts())
	waitUpdate(t, updates, func(u Update) bool { return u.Active && u.Total > 0 })

	if tgt := p.NextTarget(); tgt == nil || tgt.Name != "B" {
		t.Errorf("NextTarget = %+v, want head B", tgt)
	}
}

func TestNextTarget_NearestPrefersInRange(t *testing.T) {
	recs := []system.Record{
		{Name: "Near", ID64: 1, X: 12, Y: 0, Z: 0},
		{Name: "Far", ID64: 2, X: 45, Y: 0, Z: 0},
		{Name: "Close", ID64: 3, X: 2, Y: 0, Z: 0},
	}
	p, updates := newTestPlanner(t, &stubFetcher{recs: recs, src: "edsm"})
	p.SetLocation("Sol", 99, geom.Point{})
	p.Start(StartOptions{RadiusLY: 50, MaxJumpLY: 20, TieBreak: config.TieBreakNearest})
	waitUpdate(t, updates, func(u Update) bool { return u.Active && u.Total > 0 })

	// Visit Close, then sit at x=5: Near is 7 ly (in range), Far is 40 ly.
	p.SetLocation("Close", 3, geom.Point{X: 2})
	p.SetLocation("mid-hop", 0, geom.Point{X: 5})

	if tgt := p.NextTarget(); tgt == nil || tgt.Name != "Near" {
		t.Errorf("NextTarget = %+v, want Near", tgt)
	}
}

func TestNextTarget_NearestFallsBackPastCutoff(t *testing.T) {
	recs := []system.Record{
		{Name: "A", ID64: 1, X: 10, Y: 0, Z: 0},
		{Name: "B", ID64: 2, X: 5, Y: 0, Z: 0},
	}
	p, updates := newTestPlanner(t, &stubFetcher{recs: recs, src: "edsm"})
	p.SetLocation("Sol", 99, geom.Point{})
	p.Start(StartOptions{RadiusLY: 50, MaxJumpLY: 3, TieBreak: config.TieBreakNearest})
	waitUpdate(t, updates, func(u Update) bool { return u.Active && u.Total > 0 })

	// Move to B; A is 5 ly away, past the 3 ly cutoff, and is the only
	// candidate left. Better an out-of-range target than none.
	p.SetLocation("B", 2, geom.Point{X: 5})
	if tgt := p.NextTarget(); tgt == nil || tgt.Name != "A" {
		t.Errorf("NextTarget = %+v, want fallback to A", tgt)
	}
}

func TestNextTarget_NearestNameTiebreak(t *testing.T) {
	recs := []system.Record{
		{Name: "Zeta", ID64: 1, X: 10, Y: 0, Z: 0},
		{Name: "Alpha", ID64: 2, X: -10, Y: 0, Z: 0},
	}
	p, updates := newTestPlanner(t, &stubFetcher{recs: recs, src: "edsm"})
	p.SetLocation("Sol", 99, geom.Point{})
	p.Start(StartOptions{RadiusLY: 50, TieBreak: config.TieBreakNearest})
	waitUpdate(t, updates, func(u Update) bool { return u.Active && u.Total > 0 })

	// Both 10 ly from the origin position.
	if tgt := p.NextTarget(); tgt == nil || tgt.Name != "Alpha" {
		t.Errorf("NextTarget = %+v, want Alpha by name order", tgt)
	}
}

func TestInvariants_AfterOperationSequence(t *testing.T) {
	p, updates := newTestPlanner(t, &stubFetcher{recs: testField, src: "edsm"})
	p.SetLocation("Sol", 99, geom.Point{})
	p.Start(startOpts())
	waitUpdate(t, updates, func(u Update) bool { return u.Active && u.Total > 0 })

	p.SetLocation("B", 2, geom.Point{X: 5})
	p.Stop()
	p.SetLocation("A", 1, geom.Point{X: 10}) // inactive: position only
	p.Start(startOpts())
	waitUpdate(t, updates, func(u Update) bool { return u.Active && u.Total > 0 })
	p.SetLocation("B", 2, geom.Point{X: 5})

	st := p.Snapshot()
	for _, r := range st.Pending {
		if st.VisitedNames[r.Name] {
			t.Errorf("pending system %s is also visited", r.Name)
		}
		if r.Name == st.StartSystem {
			t.Errorf("origin %s is pending", r.Name)
		}
	}
}

func TestStaleFetch_DiscardedAfterReset(t *testing.T) {
	f := &stubFetcher{recs: testField, src: "edsm", release: make(chan struct{})}
	p, updates := newTestPlanner(t, f)
	p.SetLocation("Sol", 99, geom.Point{})
	p.Start(startOpts())

	p.Reset()
	close(f.release)

	// Give the stale apply a chance to (incorrectly) land.
	time.Sleep(50 * time.Millisecond)
	st := p.Snapshot()
	if st.Active || len(st.Pending) != 0 || len(st.AllSystems) != 0 {
		t.Errorf("stale fetch mutated a reset session: %+v", st)
	}
	drain(updates)
}

func TestVisitDuringFetch_NeverResurrected(t *testing.T) {
	f := &stubFetcher{recs: testField, src: "edsm", release: make(chan struct{})}
	p, updates := newTestPlanner(t, f)
	p.SetLocation("Sol", 99, geom.Point{})
	p.Start(startOpts())

	// Jump to B while the fetch is still in flight.
	p.SetLocation("B", 2, geom.Point{X: 5})
	close(f.release)
	waitUpdate(t, updates, func(u Update) bool { return u.Active && u.Total > 0 })

	st := p.Snapshot()
	for _, n := range pendingNames(st) {
		if n == "B" {
			t.Fatal("system visited mid-fetch was queued anyway")
		}
	}
	if !st.VisitedNames["B"] {
		t.Error("mid-fetch visit lost")
	}
}

func TestStop_RetainsProgress(t *testing.T) {
	p, updates := newTestPlanner(t, &stubFetcher{recs: testField, src: "edsm"})
	p.SetLocation("Sol", 99, geom.Point{})
	p.Start(startOpts())
	waitUpdate(t, updates, func(u Update) bool { return u.Active && u.Total > 0 })

	p.Stop()
	st := p.Snapshot()
	if st.Active {
		t.Error("Stop left the session active")
	}
	if len(st.Pending) == 0 || len(st.VisitedNames) == 0 {
		t.Error("Stop discarded resumable progress")
	}
}

func TestResume_RestoresPersistedSession(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), StateFileName))

	p, updates := newTestPlanner(t, &stubFetcher{recs: testField, src: "edsm"})
	p.store = store
	p.SetLocation("Sol", 99, geom.Point{})
	p.Start(startOpts())
	waitUpdate(t, updates, func(u Update) bool { return u.Active && u.Total > 0 })
	p.SetLocation("B", 2, geom.Point{X: 5})

	loaded, err := store.Load()
	if err != nil || loaded == nil {
		t.Fatalf("Load: %v, %v", loaded, err)
	}

	p2 := New(&stubFetcher{}, store)
	p2.Resume(loaded)
	st := p2.Snapshot()
	if !st.Active || st.StartSystem != "Sol" {
		t.Errorf("resumed state = %+v", st)
	}
	if got := pendingNames(st); len(got) != 1 || got[0] != "A" {
		t.Errorf("resumed queue = %v, want [A]", got)
	}
}

func TestReset_DeletesStateFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), StateFileName))
	p := New(&stubFetcher{recs: testField, src: "edsm"}, store)
	updates := make(chan Update, 64)
	p.OnUpdate(func(u Update) { updates <- u })

	p.SetLocation("Sol", 99, geom.Point{})
	p.Start(startOpts())
	waitUpdate(t, updates, func(u Update) bool { return u.Active && u.Total > 0 })

	p.Reset()
	if st, _ := store.Load(); st != nil {
		t.Error("state file survived Reset")
	}
}

func TestReturnTarget(t *testing.T) {
	p, updates := newTestPlanner(t, &stubFetcher{recs: testField, src: "edsm"})
	p.SetLocation("Sol", 99, geom.Point{})
	p.Start(startOpts())
	waitUpdate(t, updates, func(u Update) bool { return u.Active && u.Total > 0 })

	if _, ok := p.ReturnTarget(); ok {
		t.Error("ReturnTarget while at the start system")
	}
	p.SetLocation("B", 2, geom.Point{X: 5})
	if name, ok := p.ReturnTarget(); !ok || name != "Sol" {
		t.Errorf("ReturnTarget = (%q, %v), want Sol", name, ok)
	}
}

func drain(ch chan Update) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
