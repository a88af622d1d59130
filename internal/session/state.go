// Package session owns the shared SessionState record. The Machine is its
// only writer; everything else reads snapshots or subscribes to push
// notifications published on every mutation.
package session

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/pslog"

	"clicktrail/internal/models"
)

// Lifecycle marker labels recorded through the page endpoint.
const (
	MarkerStarted = "SESSION_STARTED"
	MarkerPaused  = "SESSION_PAUSED"
	MarkerResumed = "SESSION_RESUMED"
	MarkerEnded   = "SESSION_END"
)

var (
	// ErrNotIdle is returned when starting from a non-IDLE state.
	ErrNotIdle = errors.New("session already started")
	// ErrNoName refuses a start without a session name.
	ErrNoName = errors.New("session name is empty")
	// ErrDisconnected refuses a start while the collector is unreachable.
	ErrDisconnected = errors.New("collector not connected")
	// ErrSuperseded marks a start whose response arrived after the state
	// moved on; the response was discarded.
	ErrSuperseded = errors.New("session state changed during start")
)

// Collector is the subset of the collector contract the machine depends on.
type Collector interface {
	StartSession(ctx context.Context, name string) (string, error)
	RecordPage(ctx context.Context, session string, visit models.PageVisit) error
}

// PageProbe snapshots the current page context for the navigation baseline
// taken on start and resume.
type PageProbe func(ctx context.Context) (models.PageVisit, error)

const subscriberDepth = 16

// Machine is the session lifecycle state machine.
type Machine struct {
	mu        sync.Mutex
	state     models.SessionState
	gen       uint64
	collector Collector
	probe     PageProbe
	log       pslog.Logger
	subs      map[chan models.SessionState]struct{}
}

// New builds a machine in the IDLE state. probe may be nil when no page
// context source exists (the baseline snapshot is then skipped).
func New(collector Collector, probe PageProbe, logger pslog.Logger) *Machine {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Machine{
		state:     models.SessionState{Status: models.StatusIdle},
		collector: collector,
		probe:     probe,
		log:       logger,
		subs:      make(map[chan models.SessionState]struct{}),
	}
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() models.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Gate reports whether event transmission is allowed: RUNNING with a
// confirmed collector session. The returned id is the session identity.
func (m *Machine) Gate() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Status != models.StatusRunning || m.state.CollectorSessionID == "" {
		return "", false
	}
	return m.state.CollectorSessionID, true
}

// Subscribe registers an observer. Every mutation pushes a full snapshot;
// slow observers drop updates rather than block the machine.
func (m *Machine) Subscribe() (<-chan models.SessionState, func()) {
	ch := make(chan models.SessionState, subscriberDepth)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()
	return ch, func() {
		m.mu.Lock()
		delete(m.subs, ch)
		m.mu.Unlock()
		close(ch)
	}
}

// publishLocked pushes the current state to all observers. Callers hold mu.
func (m *Machine) publishLocked() {
	for ch := range m.subs {
		select {
		case ch <- m.state:
		default:
		}
	}
}

// SetName updates the session label. Edits are accepted only while IDLE;
// otherwise the call is ignored, not an error.
func (m *Machine) SetName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Status != models.StatusIdle {
		return
	}
	m.state.Name = name
	m.publishLocked()
}

// Start moves IDLE to RUNNING through a collector start request. The state
// does not change until the collector confirms; on any failure the machine
// stays IDLE and the error propagates to the caller. A confirmation that
// arrives after the state has moved on is discarded.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Status != models.StatusIdle {
		m.mu.Unlock()
		return ErrNotIdle
	}
	if m.state.Name == "" {
		m.mu.Unlock()
		return ErrNoName
	}
	if !m.state.Connected {
		m.mu.Unlock()
		return ErrDisconnected
	}
	name := m.state.Name
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	confirmed, err := m.collector.StartSession(ctx, name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.gen != gen || m.state.Status != models.StatusIdle {
		m.mu.Unlock()
		m.log.With("session", confirmed).Warn("discarding stale session start confirmation")
		return ErrSuperseded
	}
	m.state.Status = models.StatusRunning
	m.state.CollectorSessionID = confirmed
	m.publishLocked()
	m.mu.Unlock()

	m.log.Info("session started", "session", confirmed)
	m.recordMarker(ctx, confirmed, MarkerStarted)
	m.recordBaseline(ctx, confirmed)
	return nil
}

// Pause moves RUNNING to PAUSED, keeping the collector session id so the
// session stays resumable.
func (m *Machine) Pause(ctx context.Context) {
	m.transitionPause(ctx, false)
}

func (m *Machine) transitionPause(ctx context.Context, auto bool) {
	m.mu.Lock()
	if m.state.Status != models.StatusRunning {
		m.mu.Unlock()
		return
	}
	m.gen++
	m.state.Status = models.StatusPaused
	id := m.state.CollectorSessionID
	m.publishLocked()
	m.mu.Unlock()

	m.log.Info("session paused", "session", id, "auto", auto)
	m.recordMarker(ctx, id, MarkerPaused)
}

// Resume moves PAUSED back to RUNNING and re-establishes the navigation
// baseline, since page activity during the pause was not tracked.
func (m *Machine) Resume(ctx context.Context) {
	m.mu.Lock()
	if m.state.Status != models.StatusPaused {
		m.mu.Unlock()
		return
	}
	m.gen++
	m.state.Status = models.StatusRunning
	id := m.state.CollectorSessionID
	m.publishLocked()
	m.mu.Unlock()

	m.log.Info("session resumed", "session", id)
	m.recordMarker(ctx, id, MarkerResumed)
	m.recordBaseline(ctx, id)
}

// End closes a RUNNING or PAUSED session: records the end marker, then
// clears both the collector session id and the session name.
func (m *Machine) End(ctx context.Context) {
	m.mu.Lock()
	if m.state.Status == models.StatusIdle {
		m.mu.Unlock()
		return
	}
	m.gen++
	id := m.state.CollectorSessionID
	m.mu.Unlock()

	m.recordMarker(ctx, id, MarkerEnded)

	m.mu.Lock()
	m.state.Status = models.StatusIdle
	m.state.CollectorSessionID = ""
	m.state.Name = ""
	m.publishLocked()
	m.mu.Unlock()

	m.log.Info("session ended", "session", id)
}

// SetConnected records the latest heartbeat result. Losing connectivity
// while RUNNING degrades to PAUSED automatically. The state is published
// even when nothing changed so observers can treat it as a liveness tick.
func (m *Machine) SetConnected(ctx context.Context, connected bool) {
	m.mu.Lock()
	m.state.Connected = connected
	degrade := !connected && m.state.Status == models.StatusRunning
	if !degrade {
		m.publishLocked()
	}
	m.mu.Unlock()

	if degrade {
		m.log.Warn("connectivity lost, pausing session")
		m.transitionPause(ctx, true)
	}
}

// recordMarker submits a lifecycle marker through the page endpoint.
// Failures are logged, never propagated.
func (m *Machine) recordMarker(ctx context.Context, session, label string) {
	visit := models.PageVisit{URL: label}
	if m.probe != nil {
		if probed, err := m.probe(ctx); err == nil {
			visit.WindowW = probed.WindowW
			visit.WindowH = probed.WindowH
			visit.TSUTC = probed.TSUTC
		}
	}
	if err := m.collector.RecordPage(ctx, session, visit); err != nil {
		m.log.With("err", err).Warn("marker record failed", "marker", label)
	}
}

// recordBaseline snapshots the current page as the navigation baseline.
func (m *Machine) recordBaseline(ctx context.Context, session string) {
	if m.probe == nil {
		return
	}
	visit, err := m.probe(ctx)
	if err != nil {
		m.log.With("err", err).Warn("page probe failed")
		return
	}
	if err := m.collector.RecordPage(ctx, session, visit); err != nil {
		m.log.With("err", err).Warn("baseline page record failed")
	}
}
