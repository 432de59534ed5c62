package lifecycle

import (
	"context"
	"sync"

	"chathelper/internal/providers"
)

// State is the monitor's position in one frame's lifecycle.
type State uint8

const (
	// StateAbsent means no chat-widget container is known.
	StateAbsent State = iota
	// StateDetected means the container exists but the frame has not
	// proven ready yet.
	StateDetected
	// StateInitializing means wiring is in progress.
	StateInitializing
	// StateReady means the frame is wired up and marked.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateDetected:
		return "detected"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	}
	return "unknown"
}

// FrameHost is the monitor's handle on one tracked host frame. Probing can
// fail on a cross-origin frame; the durable marker lives on the frame
// element itself so it survives across detection passes.
type FrameHost interface {
	// ProbeReady reports whether the frame's document signals readiness.
	// An error means the document could not be inspected at all.
	ProbeReady() (bool, error)
	HasMarker() bool
	SetMarker()
	ClearMarker()
}

// Hooks are the per-frame actions the monitor drives. Initialize wires the
// frame's component set; Reset clears every derived flag (reconciler
// guard, stamp preload state, identity cache) so the next detection
// initializes cleanly.
type Hooks struct {
	Initialize func(ctx context.Context) error
	Reset      func()
}

// Monitor drives one tracked frame through Absent, Detected, Initializing
// and Ready off discrete container and load events. A frame already
// carrying the readiness marker is never re-initialized; only removal or
// replacement clears it.
type Monitor struct {
	host   FrameHost
	hooks  Hooks
	logger providers.Logger

	mu      sync.Mutex
	state   State
	frameID string
}

func NewMonitor(host FrameHost, hooks Hooks, logger providers.Logger) *Monitor {
	return &Monitor{
		host:   host,
		hooks:  hooks,
		logger: logger,
		state:  StateAbsent,
	}
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ContainerAppeared records a detection pass finding the container.
// frameID identifies the underlying frame; a changed id means navigation
// replaced the frame, which resets before re-detecting. Detection then
// attempts initialization immediately.
func (m *Monitor) ContainerAppeared(ctx context.Context, frameID string) {
	m.mu.Lock()
	if m.state != StateAbsent && frameID != m.frameID {
		m.logger.Debugf(providers.TypeApp, "Frame %q replaced by %q, resetting", m.frameID, frameID)
		m.resetLocked()
	}
	if m.state == StateReady {
		if m.host.HasMarker() {
			m.mu.Unlock()
			return
		}
		// Marker gone without a removal event: the frame reloaded in
		// place. Start the lifecycle over.
		m.resetLocked()
	}
	if m.state == StateAbsent {
		m.state = StateDetected
		m.frameID = frameID
		m.logger.Debugf(providers.TypeApp, "Chat container detected in frame %q", frameID)
	}
	m.mu.Unlock()

	m.tryInitialize(ctx)
}

// ContainerRemoved records the container leaving the document.
func (m *Monitor) ContainerRemoved() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateAbsent {
		return
	}
	m.logger.Debugf(providers.TypeApp, "Chat container removed, frame %q stale", m.frameID)
	m.resetLocked()
}

// FrameLoaded records the frame's own load event firing, the usual signal
// that a previously unprobeable frame is now inspectable.
func (m *Monitor) FrameLoaded(ctx context.Context) {
	m.tryInitialize(ctx)
}

func (m *Monitor) tryInitialize(ctx context.Context) {
	m.mu.Lock()
	if m.state != StateDetected {
		m.mu.Unlock()
		return
	}
	if m.host.HasMarker() {
		// Another pass (or the frame's own content) already wired this
		// frame up.
		m.state = StateReady
		m.mu.Unlock()
		return
	}
	ready, err := m.host.ProbeReady()
	if err != nil {
		// Cross-origin access failure: not an error, the frame just is
		// not inspectable yet. Wait for its load event.
		m.logger.Debugf(providers.TypeApp, "Frame %q not inspectable yet: %s", m.frameID, err)
		m.mu.Unlock()
		return
	}
	if !ready {
		m.mu.Unlock()
		return
	}
	m.state = StateInitializing
	m.mu.Unlock()

	if err := m.hooks.Initialize(ctx); err != nil {
		m.logger.Warnf(providers.TypeApp, "Frame %q initialization failed: %s", m.frameID, err)
		m.mu.Lock()
		if m.state == StateInitializing {
			m.state = StateDetected
		}
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	if m.state == StateInitializing {
		m.state = StateReady
		m.host.SetMarker()
		m.logger.Infof(providers.TypeApp, "Frame %q ready", m.frameID)
	}
	m.mu.Unlock()
}

// resetLocked returns to Absent and clears everything derived from the
// stale frame. Caller holds m.mu.
func (m *Monitor) resetLocked() {
	m.state = StateAbsent
	m.frameID = ""
	m.host.ClearMarker()
	if m.hooks.Reset != nil {
		m.hooks.Reset()
	}
}
