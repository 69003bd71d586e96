package ptp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampMarshalParseRoundTrip(t *testing.T) {
	ts := Timestamp{Seconds: 0x0000123456789abc & ((1 << 48) - 1), Nanoseconds: 500_000_000}
	buf := ts.Marshal()
	require.Len(t, buf, TimestampWireLen)

	got, err := ParseTimestamp(buf)
	require.NoError(t, err)
	assert.Equal(t, ts, got)
}

func TestCompactTimestampRoundTripsWithinRoundingTolerance(t *testing.T) {
	ts := Timestamp{Seconds: 1000, Nanoseconds: 500_000_000}
	compact := ts.Compact()
	back := CompactToTimestamp(compact)

	assert.Equal(t, ts.Seconds, back.Seconds)
	assert.InDelta(t, ts.Nanoseconds, back.Nanoseconds, 20000) // 1/65536s ~= 15us quantization
}

func TestTimestampSubComputesNanosecondDelta(t *testing.T) {
	a := Timestamp{Seconds: 10, Nanoseconds: 500}
	b := Timestamp{Seconds: 10, Nanoseconds: 100}
	assert.Equal(t, int64(400), a.Sub(b))

	c := Timestamp{Seconds: 11, Nanoseconds: 0}
	assert.Equal(t, int64(1e9-500), c.Sub(a))
}

func TestParseTimestampTooShort(t *testing.T) {
	_, err := ParseTimestamp(make([]byte, 4))
	assert.Error(t, err)
}
