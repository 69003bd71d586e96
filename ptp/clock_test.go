package ptp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeMeasurementOffsetAndRTT(t *testing.T) {
	t1 := Timestamp{Seconds: 0, Nanoseconds: 0}
	t2 := Timestamp{Seconds: 0, Nanoseconds: 1_000_100} // slave receives 100ns after master's send + 1ms path
	t3 := Timestamp{Seconds: 0, Nanoseconds: 2_000_000}
	t4 := Timestamp{Seconds: 0, Nanoseconds: 3_000_000}

	m := ComputeMeasurement(t1, t2, t3, t4)
	// offset = ((t2-t1)+(t3-t4))/2 = ((1000100)+(2000000-3000000))/2 = (1000100-1000000)/2 = 50
	assert.Equal(t, int64(50), m.OffsetNS)
	assert.GreaterOrEqual(t, m.RTTNs, int64(0))
}

func TestComputeMeasurementRTTNeverNegative(t *testing.T) {
	t1 := Timestamp{Nanoseconds: 0}
	t2 := Timestamp{Nanoseconds: 100}
	t3 := Timestamp{Nanoseconds: 200}
	t4 := Timestamp{Nanoseconds: 1_000_000} // huge t4, would make RTT negative if unclamped
	m := ComputeMeasurement(t1, t2, t3, t4)
	assert.GreaterOrEqual(t, m.RTTNs, int64(0))
}

func TestClockRejectsMeasurementsOverMaxRTT(t *testing.T) {
	c := NewClock(1)
	c.maxRTT = time.Millisecond

	accepted := c.AddMeasurement(Measurement{RTTNs: int64(5 * time.Millisecond)})
	assert.False(t, accepted)
	assert.Equal(t, 0, c.MeasurementCount())
}

func TestClockRetainsBoundedHistoryAndMedianOffset(t *testing.T) {
	c := NewClock(1)
	offsets := []int64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	for _, o := range offsets {
		c.AddMeasurement(Measurement{OffsetNS: o, RecordedAt: time.Now()})
	}
	require.Equal(t, MaxMeasurementHistory, c.MeasurementCount())
	// Oldest two (10, 20) should have been evicted; remaining median of
	// {30..100} (8 values) is the average-index midpoint = 70.
	assert.Equal(t, int64(70), c.OffsetNS())
}

func TestClockSynchronizedThreshold(t *testing.T) {
	c := NewClock(1)
	assert.False(t, c.Synchronized(3))
	c.AddMeasurement(Measurement{RecordedAt: time.Now()})
	c.AddMeasurement(Measurement{RecordedAt: time.Now()})
	assert.False(t, c.Synchronized(3))
	c.AddMeasurement(Measurement{RecordedAt: time.Now()})
	assert.True(t, c.Synchronized(3))
}

func TestClockDriftPPMRequiresMinimumInterval(t *testing.T) {
	c := NewClock(1)
	now := time.Now()
	c.AddMeasurement(Measurement{OffsetNS: 0, RecordedAt: now})
	c.AddMeasurement(Measurement{OffsetNS: 1000, RecordedAt: now.Add(10 * time.Millisecond)})
	assert.Equal(t, 0.0, c.DriftPPM())

	c2 := NewClock(1)
	c2.AddMeasurement(Measurement{OffsetNS: 0, RecordedAt: now})
	c2.AddMeasurement(Measurement{OffsetNS: 1000, RecordedAt: now.Add(time.Second)})
	assert.InDelta(t, 1.0, c2.DriftPPM(), 0.01)
}
