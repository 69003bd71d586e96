package session

import (
	"sync"
	"time"

	"github.com/raopx/raopx/ptp"
	"github.com/rs/zerolog"
)

// GroupRole is a device's position within a multi-room group.
type GroupRole int

const (
	GroupFollower GroupRole = iota
	GroupLeader
)

func (r GroupRole) String() string {
	if r == GroupLeader {
		return "leader"
	}
	return "follower"
}

// GroupInfo describes the group a coordinator currently belongs to.
type GroupInfo struct {
	UUID          string
	Role          GroupRole
	LeaderClockID *uint64
}

// CommandKind discriminates PlaybackCommand.
type CommandKind int

const (
	CommandAdjustRate CommandKind = iota
	CommandStartAt
)

// PlaybackCommand is what a follower must do to stay in sync with the
// group's shared PTP timeline. A nil *PlaybackCommand means no
// correction is needed.
type PlaybackCommand struct {
	Kind      CommandKind
	RatePPM   float64 // CommandAdjustRate: negative slows playback down, positive speeds it up
	PTPTarget uint64  // CommandStartAt: compact PTP instant to hard-reseek to
}

// driftInSyncNS and driftHardSyncNS are the thresholds separating "no
// action" from a rate nudge from a hard reseek.
const (
	driftInSyncNS   = int64(1 * time.Millisecond)
	driftHardSyncNS = int64(10 * time.Millisecond)
	ratePPMPerMS    = 50.0 // proportional gain from drift-ms to correction ppm
)

// MultiRoomCoordinator tracks a device's membership in a multi-room
// group and, for followers, the shared-clock offset estimate used to
// decide playback corrections.
type MultiRoomCoordinator struct {
	deviceID      string
	clockIdentity uint64
	log           zerolog.Logger

	mu            sync.Mutex
	group         *GroupInfo
	exchangeCount int
	offsetAvgNS   float64 // local - remote, smoothed
	targetSet     bool
	targetCompact uint64
}

// NewCoordinator constructs a coordinator for deviceID, identified on
// the shared PTP domain by clockIdentity.
func NewCoordinator(deviceID string, clockIdentity uint64, log zerolog.Logger) *MultiRoomCoordinator {
	return &MultiRoomCoordinator{
		deviceID:      deviceID,
		clockIdentity: clockIdentity,
		log:           log.With().Str("component", "multi_room_coordinator").Logger(),
	}
}

// DeviceID returns the coordinator's own device identifier.
func (c *MultiRoomCoordinator) DeviceID() string { return c.deviceID }

// ClockIdentity returns the coordinator's own PTP clock identity.
func (c *MultiRoomCoordinator) ClockIdentity() uint64 { return c.clockIdentity }

// JoinGroup enters groupUUID with the given role. leaderClockID is the
// PTP clock identity of the group leader, nil if this device is the
// leader or the leader's identity is not yet known.
func (c *MultiRoomCoordinator) JoinGroup(groupUUID string, role GroupRole, leaderClockID *uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.group = &GroupInfo{UUID: groupUUID, Role: role, LeaderClockID: leaderClockID}
	c.exchangeCount = 0
	c.offsetAvgNS = 0
	c.targetSet = false
	c.log.Info().Str("group", groupUUID).Str("role", role.String()).Msg("joined group")
}

// LeaveGroup resets the coordinator to its standalone state.
func (c *MultiRoomCoordinator) LeaveGroup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.group != nil {
		c.log.Info().Str("group", c.group.UUID).Msg("left group")
	}
	c.group = nil
	c.exchangeCount = 0
	c.offsetAvgNS = 0
	c.targetSet = false
}

// GroupInfo returns a copy of the current group membership, or nil if
// not in a group.
func (c *MultiRoomCoordinator) GroupInfo() *GroupInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.group == nil {
		return nil
	}
	info := *c.group
	return &info
}

// IsLeader reports whether this device is the group's leader.
func (c *MultiRoomCoordinator) IsLeader() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.group != nil && c.group.Role == GroupLeader
}

// GroupUUID returns the current group's uuid and true, or ("", false)
// if not in a group.
func (c *MultiRoomCoordinator) GroupUUID() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.group == nil {
		return "", false
	}
	return c.group.UUID, true
}

// UpdateTiming folds one PTP timing exchange into the shared-clock
// offset estimate: masterCompact is the group leader's clock reading
// at the exchange instant, slaveCompact is this device's own clock
// reading of the same instant, and localReceive/localSend bracket the
// local processing delay between the two, half of which is assumed to
// fall on each leg. The raw (local - remote) offset is smoothed with
// an exponential moving average, alpha 0.5 for the first ten
// exchanges and 0.1 afterward, so the estimate converges quickly and
// then settles.
func (c *MultiRoomCoordinator) UpdateTiming(masterCompact uint64, localReceive, localSend time.Time, slaveCompact uint64) {
	t1 := ptp.CompactToTimestamp(masterCompact)
	t4 := ptp.CompactToTimestamp(slaveCompact)
	processingNS := localSend.Sub(localReceive).Nanoseconds()

	offsetNS := float64(t4.Sub(t1)) - float64(processingNS)/2

	c.mu.Lock()
	defer c.mu.Unlock()

	alpha := 0.5
	if c.exchangeCount >= 10 {
		alpha = 0.1
	}
	c.offsetAvgNS = (1-alpha)*c.offsetAvgNS + alpha*offsetNS
	c.exchangeCount++
}

// SetTargetTime records the compact PTP instant the group's shared
// timeline says playback should be at.
func (c *MultiRoomCoordinator) SetTargetTime(targetCompact uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targetCompact = targetCompact
	c.targetSet = true
}

// driftNS returns target-now corrected by the smoothed offset
// estimate, in nanoseconds. Caller must hold c.mu.
func (c *MultiRoomCoordinator) driftNS(nowCompact uint64) int64 {
	now := ptp.CompactToTimestamp(nowCompact)
	target := ptp.CompactToTimestamp(c.targetCompact)
	return target.Sub(now) - int64(c.offsetAvgNS)
}

// IsInSync reports whether, as of now, drift against the target time
// is within the 1ms in-sync tolerance. Returns true if no target has
// been set.
func (c *MultiRoomCoordinator) IsInSync(nowCompact uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.targetSet {
		return true
	}
	drift := c.driftNS(nowCompact)
	if drift < 0 {
		drift = -drift
	}
	return drift <= driftInSyncNS
}

// CalculateAdjustmentAt compares the target time against nowCompact,
// corrected by the smoothed offset estimate, and returns the
// correction a follower should apply: nil if drift is within 1ms,
// AdjustRate if within 10ms, StartAt (a hard reseek) beyond that.
func (c *MultiRoomCoordinator) CalculateAdjustmentAt(nowCompact uint64) *PlaybackCommand {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.targetSet {
		return nil
	}

	driftNS := c.driftNS(nowCompact)
	abs := driftNS
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs <= driftInSyncNS:
		return nil
	case abs <= driftHardSyncNS:
		// driftNS>0: target is ahead of now (local behind) -> speed up.
		// driftNS<0: target is behind now (local ahead) -> slow down.
		driftMS := float64(driftNS) / float64(time.Millisecond)
		return &PlaybackCommand{Kind: CommandAdjustRate, RatePPM: driftMS * ratePPMPerMS}
	default:
		return &PlaybackCommand{Kind: CommandStartAt, PTPTarget: c.targetCompact}
	}
}
