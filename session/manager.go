package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Protocol identifies which state machine a Session runs.
type Protocol int

const (
	ProtocolAP1 Protocol = iota
	ProtocolAP2
)

// PreemptionPolicy decides what happens when a new connection arrives
// while a session is already active. Queue is not implemented and
// behaves as Reject.
type PreemptionPolicy int

const (
	PreemptionReject PreemptionPolicy = iota
	PreemptionAllowPreempt
	PreemptionQueue
)

// Config configures a Manager.
type Config struct {
	IdleTimeout      time.Duration
	MaxDuration      time.Duration // 0 = unlimited
	Preemption       PreemptionPolicy
	UDPBasePort      uint16
	UDPPortRange     uint16
}

// DefaultConfig mirrors the reference receiver's defaults.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:  60 * time.Second,
		MaxDuration:  0,
		Preemption:   PreemptionAllowPreempt,
		UDPBasePort:  6000,
		UDPPortRange: 100,
	}
}

// Session is a single receiver-side streaming session, running either
// the AP1 or the AP2 state machine.
type Session struct {
	ID         string
	Protocol   Protocol
	ClientAddr string

	ap1 AP1State
	ap2 AP2State

	VolumeDB float64

	createdAt    time.Time
	lastActivity time.Time
}

func newSession(protocol Protocol, clientAddr string) *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.NewString(),
		Protocol:     protocol,
		ClientAddr:   clientAddr,
		createdAt:    now,
		lastActivity: now,
	}
}

// State returns the current state as a string for logging/events,
// regardless of protocol.
func (s *Session) State() string {
	if s.Protocol == ProtocolAP1 {
		return s.ap1.String()
	}
	return s.ap2.String()
}

// AP1State returns the session's current AirPlay 1 state. Only
// meaningful when Protocol == ProtocolAP1.
func (s *Session) AP1State() AP1State { return s.ap1 }

// AP2State returns the session's current AirPlay 2 state. Only
// meaningful when Protocol == ProtocolAP2.
func (s *Session) AP2State() AP2State { return s.ap2 }

// SetAP1State validates and applies an AP1 transition.
func (s *Session) SetAP1State(to AP1State) error {
	if s.Protocol != ProtocolAP1 {
		return &Error{Kind: ErrInvalidTransition, Msg: "session is not running the AP1 state machine"}
	}
	if !s.ap1.CanTransitionTo(to) {
		return errInvalidTransition(s.ap1, to)
	}
	s.ap1 = to
	s.touch()
	return nil
}

// SetAP2State validates and applies an AP2 transition.
func (s *Session) SetAP2State(to AP2State) error {
	if s.Protocol != ProtocolAP2 {
		return &Error{Kind: ErrInvalidTransition, Msg: "session is not running the AP2 state machine"}
	}
	if !s.ap2.CanTransitionTo(to) {
		return errInvalidTransition(s.ap2, to)
	}
	s.ap2 = to
	s.touch()
	return nil
}

func (s *Session) touch() { s.lastActivity = time.Now() }

// IdleTime is how long since the session last saw activity.
func (s *Session) IdleTime() time.Duration { return time.Since(s.lastActivity) }

// Age is how long the session has existed.
func (s *Session) Age() time.Duration { return time.Since(s.createdAt) }

// Event is published on the Manager's event bus.
type Event struct {
	Kind      EventKind
	SessionID string
	ClientAddr string
	Reason    string
	NewState  string
	VolumeDB  float64
}

// EventKind discriminates Event.
type EventKind int

const (
	EventSessionStarted EventKind = iota
	EventStateChanged
	EventSessionEnded
	EventVolumeChanged
)

// portAllocator hands out UDP port trios from a wrapping range,
// process-global and mutex-protected per spec.md §5.
type portAllocator struct {
	mu   sync.Mutex
	base uint16
	rng  uint16
	next uint16
}

func newPortAllocator(base, rng uint16) *portAllocator {
	return &portAllocator{base: base, rng: rng}
}

// allocateTrio returns three ports (audio, control, timing) and wraps
// back to the start of the range when it is exhausted.
func (p *portAllocator) allocateTrio() (uint16, uint16, uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rng == 0 || uint32(p.next)+3 > uint32(p.rng) {
		p.next = 0
	}
	offset := p.next
	p.next += 3
	return p.base + offset, p.base + offset + 1, p.base + offset + 2
}

// Manager owns the single active session a receiver may hold, enforces
// the preemption policy, sweeps idle/max-duration timeouts, and
// broadcasts Events to subscribers.
type Manager struct {
	cfg Config
	log zerolog.Logger

	mu      sync.Mutex
	active  *Session

	ports *portAllocator

	subMu sync.Mutex
	subs  []chan Event
}

// NewManager constructs a Manager. Call Manager.Run in a goroutine to
// start the idle-timeout sweep; it returns when stop is closed.
func NewManager(cfg Config, log zerolog.Logger) *Manager {
	return &Manager{
		cfg:   cfg,
		log:   log.With().Str("component", "session_manager").Logger(),
		ports: newPortAllocator(cfg.UDPBasePort, cfg.UDPPortRange),
	}
}

// Subscribe returns a channel that receives every Event this Manager
// publishes. The channel is buffered; slow subscribers drop events
// rather than blocking the manager.
func (m *Manager) Subscribe() <-chan Event {
	ch := make(chan Event, 64)
	m.subMu.Lock()
	m.subs = append(m.subs, ch)
	m.subMu.Unlock()
	return ch
}

func (m *Manager) publish(ev Event) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// StartSession begins a new session for clientAddr, applying the
// configured preemption policy if one is already active.
func (m *Manager) StartSession(protocol Protocol, clientAddr string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		switch m.cfg.Preemption {
		case PreemptionAllowPreempt:
			old := m.active
			m.active = nil
			m.log.Info().Str("old_session", old.ID).Str("new_client", clientAddr).Msg("preempting active session")
			m.publish(Event{Kind: EventSessionEnded, SessionID: old.ID, Reason: "preempted"})
		case PreemptionReject, PreemptionQueue:
			return nil, &Error{Kind: ErrBusy, Msg: "another session is active"}
		}
	}

	s := newSession(protocol, clientAddr)
	m.active = s
	m.publish(Event{Kind: EventSessionStarted, SessionID: s.ID, ClientAddr: clientAddr})
	return s, nil
}

// Current returns the active session, or nil if none.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// AllocatePorts hands out the next (audio, control, timing) port trio.
func (m *Manager) AllocatePorts() (audio, control, timing uint16) {
	return m.ports.allocateTrio()
}

// Touch resets the active session's idle timer; called on every
// inbound RTSP request or audio packet.
func (m *Manager) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		m.active.touch()
	}
}

// SetVolumeDB applies a dB volume (as received on the wire via
// SET_PARAMETER, already in the -30..0 / VolumeMuteDB range) to the
// active session directly, without the linear round-trip SetVolume does.
func (m *Manager) SetVolumeDB(db float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return
	}
	m.active.VolumeDB = db
	m.active.touch()
	m.publish(Event{Kind: EventVolumeChanged, SessionID: m.active.ID, VolumeDB: db})
}

// SetVolume applies a linear 0.0-1.0 volume to the active session.
func (m *Manager) SetVolume(linear float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return
	}
	m.active.VolumeDB = LinearToDB(linear)
	m.active.touch()
	m.publish(Event{Kind: EventVolumeChanged, SessionID: m.active.ID, VolumeDB: m.active.VolumeDB})
}

// EndSession tears down the active session, if any, publishing
// SessionEnded with the given reason.
func (m *Manager) EndSession(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return
	}
	id := m.active.ID
	m.active = nil
	m.publish(Event{Kind: EventSessionEnded, SessionID: id, Reason: reason})
}

// enforceTimeouts ends the active session if it has been idle past
// IdleTimeout or alive past MaxDuration (when non-zero).
func (m *Manager) enforceTimeouts() {
	m.mu.Lock()
	s := m.active
	var reason string
	if s != nil {
		if s.IdleTime() > m.cfg.IdleTimeout {
			reason = "idle timeout"
		} else if m.cfg.MaxDuration > 0 && s.Age() > m.cfg.MaxDuration {
			reason = "maximum duration exceeded"
		}
	}
	if reason != "" {
		m.active = nil
	}
	m.mu.Unlock()

	if reason != "" {
		m.publish(Event{Kind: EventSessionEnded, SessionID: s.ID, Reason: reason})
	}
}

// Run sweeps for timed-out sessions at IdleTimeout/4 until stop fires.
func (m *Manager) Run(stop <-chan struct{}) {
	interval := m.cfg.IdleTimeout / 4
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.enforceTimeouts()
		case <-stop:
			return
		}
	}
}
