package ptp

import (
	"sort"
	"sync"
	"time"
)

// MaxMeasurementHistory is the number of recent measurements the
// filter retains (N=8 per spec).
const MaxMeasurementHistory = 8

// DefaultMaxRTT rejects measurements whose round trip exceeds this
// bound.
const DefaultMaxRTT = 100 * time.Millisecond

// DriftMinInterval is the minimum wall-clock span between the oldest
// and newest retained measurement before a drift estimate is computed.
const DriftMinInterval = 100 * time.Millisecond

// Measurement is one complete four-timestamp PTP delay exchange.
type Measurement struct {
	T1, T2, T3, T4 Timestamp
	OffsetNS       int64
	RTTNs          int64
	RecordedAt     time.Time
}

// ComputeMeasurement derives offset and RTT from the four exchange
// timestamps: offset = ((t2-t1)+(t3-t4))/2, rtt = max(0, (t4-t1)-(t3-t2)).
func ComputeMeasurement(t1, t2, t3, t4 Timestamp) Measurement {
	offset := (t2.Sub(t1) + t3.Sub(t4)) / 2
	rtt := t4.Sub(t1) - t3.Sub(t2)
	if rtt < 0 {
		rtt = 0
	}
	return Measurement{T1: t1, T2: t2, T3: t3, T4: t4, OffsetNS: offset, RTTNs: rtt}
}

// Clock is a PTP slave's synchronization state: a bounded history of
// recent measurements, a median-filtered offset estimate, and a
// two-point drift estimate. Safe for concurrent use; the node loop is
// the sole writer, status queries are readers.
type Clock struct {
	mu          sync.RWMutex
	identity    uint64
	maxRTT      time.Duration
	history     []Measurement
}

// NewClock constructs a clock for the given 64-bit identity.
func NewClock(identity uint64) *Clock {
	return &Clock{identity: identity, maxRTT: DefaultMaxRTT}
}

// Identity returns the clock's 64-bit identity.
func (c *Clock) Identity() uint64 { return c.identity }

// AddMeasurement folds a new measurement into the bounded history,
// rejecting it if its RTT exceeds the configured maximum.
func (c *Clock) AddMeasurement(m Measurement) bool {
	if m.RTTNs > c.maxRTT.Nanoseconds() {
		return false
	}
	if m.RecordedAt.IsZero() {
		m.RecordedAt = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, m)
	if len(c.history) > MaxMeasurementHistory {
		c.history = c.history[len(c.history)-MaxMeasurementHistory:]
	}
	return true
}

// MeasurementCount returns the number of measurements currently
// retained.
func (c *Clock) MeasurementCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.history)
}

// Synchronized reports whether at least minMeasurements measurements
// have been retained.
func (c *Clock) Synchronized(minMeasurements int) bool {
	return c.MeasurementCount() >= minMeasurements
}

// OffsetNS returns the median offset, in nanoseconds, across retained
// measurements. Zero if no measurements are retained.
func (c *Clock) OffsetNS() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.history) == 0 {
		return 0
	}
	offsets := make([]int64, len(c.history))
	for i, m := range c.history {
		offsets[i] = m.OffsetNS
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	return offsets[len(offsets)/2]
}

// MedianRTT returns the median measured RTT, in nanoseconds.
func (c *Clock) MedianRTT() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.history) == 0 {
		return 0
	}
	rtts := make([]int64, len(c.history))
	for i, m := range c.history {
		rtts[i] = m.RTTNs
	}
	sort.Slice(rtts, func(i, j int) bool { return rtts[i] < rtts[j] })
	return rtts[len(rtts)/2]
}

// DriftPPM returns the two-point linear slope, in parts per million,
// between the oldest and newest retained measurement, when their
// wall-clock span is at least DriftMinInterval. Returns 0 otherwise.
func (c *Clock) DriftPPM() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.history) < 2 {
		return 0
	}
	oldest := c.history[0]
	newest := c.history[len(c.history)-1]
	wallDelta := newest.RecordedAt.Sub(oldest.RecordedAt)
	if wallDelta < DriftMinInterval {
		return 0
	}
	offsetDeltaNs := float64(newest.OffsetNS - oldest.OffsetNS)
	return offsetDeltaNs / float64(wallDelta.Nanoseconds()) * 1e6
}
