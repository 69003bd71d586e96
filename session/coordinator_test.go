package session

import (
	"testing"
	"time"

	"github.com/raopx/raopx/ptp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u64(v uint64) *uint64 { return &v }

func TestGroupLifecycle(t *testing.T) {
	c := NewCoordinator("my_device", 0x1234_5678, testLogger())

	assert.Nil(t, c.GroupInfo())
	assert.False(t, c.IsLeader())
	_, inGroup := c.GroupUUID()
	assert.False(t, inGroup)

	c.JoinGroup("test-group", GroupFollower, u64(0x8765_4321))
	info := c.GroupInfo()
	require.NotNil(t, info)
	assert.Equal(t, GroupFollower, info.Role)
	require.NotNil(t, info.LeaderClockID)
	assert.Equal(t, uint64(0x8765_4321), *info.LeaderClockID)
	uuid, inGroup := c.GroupUUID()
	assert.True(t, inGroup)
	assert.Equal(t, "test-group", uuid)
	assert.False(t, c.IsLeader())

	c.LeaveGroup()
	c.JoinGroup("test-group", GroupLeader, nil)
	assert.True(t, c.IsLeader())

	c.LeaveGroup()
	assert.Nil(t, c.GroupInfo())
	assert.False(t, c.IsLeader())
}

func TestCalculateAdjustmentNoTargetYieldsNoCommand(t *testing.T) {
	c := NewCoordinator("dev", 1, testLogger())
	c.JoinGroup("group", GroupFollower, u64(2))
	assert.Nil(t, c.CalculateAdjustmentAt(ptp.Timestamp{Seconds: 100}.Compact()))
}

func TestCalculateAdjustmentWithinToleranceIsNil(t *testing.T) {
	c := NewCoordinator("sync_device", 0x1111, testLogger())
	c.JoinGroup("group", GroupFollower, u64(0x2222))

	now := time.Now()
	nowPTP := ptp.Timestamp{Seconds: 1000}
	masterCompact := nowPTP.Compact()

	for i := 0; i < 5; i++ {
		c.UpdateTiming(masterCompact, now, now, masterCompact)
	}

	// target 500us ahead: well within the 1ms in-sync tolerance.
	target := ptp.Timestamp{Seconds: 1000, Nanoseconds: 500_000}
	c.SetTargetTime(target.Compact())

	cmd := c.CalculateAdjustmentAt(nowPTP.Compact())
	assert.Nil(t, cmd)
	assert.True(t, c.IsInSync(nowPTP.Compact()))
}

func TestCalculateAdjustmentModerateDriftAdjustsRate(t *testing.T) {
	c := NewCoordinator("dev", 1, testLogger())
	c.JoinGroup("group", GroupFollower, u64(2))

	now := time.Now()
	nowPTP := ptp.Timestamp{Seconds: 1000}
	masterCompact := nowPTP.Compact()
	for i := 0; i < 3; i++ {
		c.UpdateTiming(masterCompact, now, now, masterCompact)
	}

	// target 5ms behind now: local clock is ahead, positive drift once
	// inverted -> expect a slow-down (negative rate_ppm).
	target := ptp.Timestamp{Seconds: 999, Nanoseconds: 995_000_000}
	c.SetTargetTime(target.Compact())

	cmd := c.CalculateAdjustmentAt(nowPTP.Compact())
	require.NotNil(t, cmd)
	assert.Equal(t, CommandAdjustRate, cmd.Kind)
	assert.Less(t, cmd.RatePPM, 0.0)
}

func TestCalculateAdjustmentLargeDriftHardSyncs(t *testing.T) {
	c := NewCoordinator("dev", 1, testLogger())
	c.JoinGroup("group", GroupFollower, u64(2))

	now := time.Now()
	nowPTP := ptp.Timestamp{Seconds: 1000}
	masterCompact := nowPTP.Compact()
	for i := 0; i < 3; i++ {
		c.UpdateTiming(masterCompact, now, now, masterCompact)
	}

	target := ptp.Timestamp{Seconds: 999, Nanoseconds: 950_000_000} // 50ms behind
	c.SetTargetTime(target.Compact())

	cmd := c.CalculateAdjustmentAt(nowPTP.Compact())
	require.NotNil(t, cmd)
	assert.Equal(t, CommandStartAt, cmd.Kind)
	assert.Equal(t, target.Compact(), cmd.PTPTarget)
}
