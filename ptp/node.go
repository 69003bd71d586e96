package ptp

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Role is a node's current BMCA-determined role.
type Role int

const (
	RoleMasterCandidate Role = iota
	RoleMaster
	RoleSlave
)

func (r Role) String() string {
	switch r {
	case RoleMaster:
		return "master"
	case RoleSlave:
		return "slave"
	default:
		return "master_candidate"
	}
}

// LocalPriorities are the BMCA comparison fields a node advertises for
// itself; clockClass/clockAccuracy/offsetScaledLogVariance are fixed
// per spec and not configurable.
type LocalPriorities struct {
	Priority1     byte
	Priority2     byte
	ClockIdentity uint64
}

const (
	fixedClockClass              = 248
	fixedClockAccuracy           = 0xFE
	fixedOffsetScaledLogVariance = 0xFFFF
)

// ClockQuality is the fixed (non-configurable) clock description this
// implementation advertises in its own Announce messages.
type ClockQuality struct {
	ClockClass              byte
	ClockAccuracy           byte
	OffsetScaledLogVariance uint16
}

// LocalClockQuality returns this implementation's fixed clock quality
// fields.
func LocalClockQuality() ClockQuality {
	return ClockQuality{
		ClockClass:              fixedClockClass,
		ClockAccuracy:           fixedClockAccuracy,
		OffsetScaledLogVariance: fixedOffsetScaledLogVariance,
	}
}

// Candidate is the BMCA-relevant fields of a received Announce,
// paired with the address it came from.
type Candidate struct {
	Priority1     byte
	Priority2     byte
	ClockIdentity uint64
	FromAddr      string
}

// Beats reports whether candidate c wins the BMCA comparison against
// local priorities, per spec's ordering: lower priority1 wins; if
// equal, lower priority2 wins; if still equal, the numerically lower
// clockIdentity wins.
func (c Candidate) Beats(local LocalPriorities) bool {
	if c.Priority1 != local.Priority1 {
		return c.Priority1 < local.Priority1
	}
	if c.Priority2 != local.Priority2 {
		return c.Priority2 < local.Priority2
	}
	return c.ClockIdentity < local.ClockIdentity
}

// DefaultAnnounceInterval and DefaultSyncInterval are the node's
// periodic message rates absent explicit configuration.
const (
	DefaultAnnounceInterval = 2 * time.Second
	DefaultSyncInterval     = 1 * time.Second
	DefaultDelayReqInterval = 1 * time.Second

	// AnnounceTimeoutIntervals is the number of missed Announce
	// intervals before a Slave reverts to Master candidacy.
	AnnounceTimeoutIntervals = 3
)

// Transport is the minimal send surface a Node needs; production code
// backs it with UDP sockets on the event (319) and general (320)
// ports, while tests back it with an in-memory fake.
type Transport interface {
	SendEvent(addr string, payload []byte) error
	SendGeneral(addr string, payload []byte) error
}

// Node runs the BMCA role-election and clock-synchronization loop for
// one PTP participant. Master behavior emits Sync/FollowUp/Announce;
// Slave behavior emits Delay_Req and folds the resulting four-tuple
// into its Clock.
type Node struct {
	log        zerolog.Logger
	transport  Transport
	priorities LocalPriorities
	clock      *Clock

	mu             sync.RWMutex
	role           Role
	masterAddr     string
	lastAnnounceAt time.Time
	seq            uint16

	pendingSyncT1  Timestamp
	delayReqSeq    uint16
	delayReqSentAt Timestamp
}

// NewNode constructs a node starting as a master candidate.
func NewNode(transport Transport, priorities LocalPriorities, clock *Clock, log zerolog.Logger) *Node {
	return &Node{
		transport:  transport,
		priorities: priorities,
		clock:      clock,
		role:       RoleMasterCandidate,
		log:        log.With().Str("component", "ptp_node").Logger(),
	}
}

// Role returns the node's current effective role.
func (n *Node) Role() Role {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.role
}

// EffectiveRole is an alias for Role kept for spec-scenario naming.
func (n *Node) EffectiveRole() Role { return n.Role() }

// MasterAddr returns the address of the node currently believed to be
// master, valid only while Role() reports RoleSlave.
func (n *Node) MasterAddr() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.masterAddr
}

// Clock exposes the node's clock filter, so callers driving the loop
// can read back synchronization quality (offset, RTT, drift).
func (n *Node) Clock() *Clock {
	return n.clock
}

// HandleAnnounce folds a received Announce into the BMCA decision. If
// the candidate beats this node's local priorities, the node adopts
// Slave role and the sender as master; otherwise the role is left
// unchanged, and an Announce from the current master still refreshes
// the announce timer that the caller's periodic timeout sweep checks.
func (n *Node) HandleAnnounce(c Candidate) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if c.Beats(n.priorities) {
		if n.role != RoleSlave {
			n.log.Info().Str("master", c.FromAddr).Msg("ptp: losing BMCA comparison, becoming slave")
		}
		n.role = RoleSlave
		n.masterAddr = c.FromAddr
		n.lastAnnounceAt = time.Now()
		return
	}

	if n.role == RoleSlave && n.masterAddr == c.FromAddr {
		// Current master just announced weaker priorities than before;
		// keep following it rather than flapping here. The timeout sweep
		// only reverts this node once the master stops announcing.
		n.lastAnnounceAt = time.Now()
	}
}

// CheckAnnounceTimeout reverts a Slave node to Master candidacy if no
// Announce has been seen in AnnounceTimeoutIntervals*interval.
func (n *Node) CheckAnnounceTimeout(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.role != RoleSlave {
		return
	}
	if time.Since(n.lastAnnounceAt) > interval*AnnounceTimeoutIntervals {
		n.log.Info().Msg("ptp: announce timeout, reverting to master candidacy")
		n.role = RoleMasterCandidate
		n.masterAddr = ""
	}
}

// PromoteToMaster transitions a master candidate to active Master,
// called once no stronger Announce has been observed for a settling
// period.
func (n *Node) PromoteToMaster() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.role == RoleMasterCandidate {
		n.role = RoleMaster
	}
}

// BuildAnnounce constructs this node's outgoing Announce message body
// and framing header, incrementing the sequence counter.
func (n *Node) BuildAnnounce(grandmasterIdentity uint64, now Timestamp) (Header, AnnounceBody) {
	n.mu.Lock()
	seq := n.seq
	n.seq++
	n.mu.Unlock()

	h := Header{
		MessageType:        MessageAnnounce,
		SourcePortIdentity: PortIdentity{ClockIdentity: n.priorities.ClockIdentity, PortNumber: 1},
		SequenceID:         seq,
	}
	body := AnnounceBody{
		OriginTimestamp:     now,
		GrandmasterIdentity: grandmasterIdentity,
		Priority1:           n.priorities.Priority1,
		Priority2:           n.priorities.Priority2,
	}
	return h, body
}

// BeginSync records t1 for a two-step Sync/FollowUp exchange this node
// is about to emit as Master, returning the Sync message to send on
// the event port (FollowUp with the precise t1 follows on the general
// port).
func (n *Node) BeginSync(t1 Timestamp) (Header, TimestampBody) {
	n.mu.Lock()
	seq := n.seq
	n.seq++
	n.mu.Unlock()

	h := Header{
		MessageType:        MessageSync,
		Flags:              0x0200, // twoStepFlag, bit 9
		SourcePortIdentity: PortIdentity{ClockIdentity: n.priorities.ClockIdentity, PortNumber: 1},
		SequenceID:         seq,
	}
	return h, TimestampBody{OriginTimestamp: t1}
}

// OnSyncReceived records t2 as a Slave, pending the FollowUp carrying
// the precise t1.
func (n *Node) OnSyncReceived(t2 Timestamp) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pendingSyncT1 = t2 // placeholder until FollowUp overwrites with t1
}

// OnFollowUpReceived replaces the pending Sync's timestamp with the
// FollowUp's precise t1 and returns it, ready to pair with a
// subsequent Delay_Req/Delay_Resp exchange.
func (n *Node) OnFollowUpReceived(t1 Timestamp) Timestamp {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pendingSyncT1 = t1
	return t1
}

// BeginDelayReq records t3 and builds the Delay_Req message a Slave
// emits to measure path delay.
func (n *Node) BeginDelayReq(t3 Timestamp) (Header, TimestampBody) {
	n.mu.Lock()
	seq := n.seq
	n.seq++
	n.delayReqSeq = seq
	n.delayReqSentAt = t3
	n.mu.Unlock()

	h := Header{
		MessageType:        MessageDelayReq,
		SourcePortIdentity: PortIdentity{ClockIdentity: n.priorities.ClockIdentity, PortNumber: 1},
		SequenceID:         seq,
	}
	return h, TimestampBody{OriginTimestamp: t3}
}

// OnDelayRespReceived completes a Delay_Req/Delay_Resp exchange,
// computing and recording the resulting measurement if the sequence
// id matches the outstanding request.
func (n *Node) OnDelayRespReceived(seq uint16, t2, t4 Timestamp) (Measurement, bool) {
	n.mu.Lock()
	if seq != n.delayReqSeq {
		n.mu.Unlock()
		return Measurement{}, false
	}
	t1 := n.pendingSyncT1
	t3 := n.delayReqSentAt
	n.mu.Unlock()

	m := ComputeMeasurement(t1, t2, t3, t4)
	accepted := n.clock.AddMeasurement(m)
	return m, accepted
}
