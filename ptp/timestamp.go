// Package ptp implements the IEEE 1588 Precision Time Protocol subset
// AirPlay 2 uses for multi-room audio synchronization: timestamp
// encoding, message framing, the master/slave clock filter, and the
// BMCA-driven node loop.
package ptp

import (
	"encoding/binary"
	"math"
	"time"
)

// Timestamp is a PTP 48-bit-seconds + 32-bit-nanoseconds instant.
type Timestamp struct {
	Seconds     uint64 // low 48 bits significant
	Nanoseconds uint32
}

// TimestampWireLen is the IEEE 1588 bit-exact encoding length: 6
// big-endian seconds bytes followed by 4 big-endian nanoseconds bytes.
const TimestampWireLen = 10

// Marshal encodes the timestamp to its 10-byte IEEE 1588 wire form.
func (t Timestamp) Marshal() []byte {
	buf := make([]byte, TimestampWireLen)
	var secBuf [8]byte
	binary.BigEndian.PutUint64(secBuf[:], t.Seconds)
	copy(buf[0:6], secBuf[2:8]) // low 48 bits
	binary.BigEndian.PutUint32(buf[6:10], t.Nanoseconds)
	return buf
}

// ParseTimestamp decodes a 10-byte IEEE 1588 timestamp.
func ParseTimestamp(buf []byte) (Timestamp, error) {
	if len(buf) < TimestampWireLen {
		return Timestamp{}, errShort("timestamp", TimestampWireLen, len(buf))
	}
	var secBuf [8]byte
	copy(secBuf[2:8], buf[0:6])
	return Timestamp{
		Seconds:     binary.BigEndian.Uint64(secBuf[:]),
		Nanoseconds: binary.BigEndian.Uint32(buf[6:10]),
	}, nil
}

// Compact encodes the timestamp in the 48.16 fixed-point form used by
// AirPlay's own RTP-adjacent PTP announcements:
// (seconds mod 2^48) << 16 | round(ns * 65536 / 1e9).
func (t Timestamp) Compact() uint64 {
	const mask48 = (uint64(1) << 48) - 1
	fraction := uint64(math.Round(float64(t.Nanoseconds) * 65536 / 1e9))
	return ((t.Seconds & mask48) << 16) | (fraction & 0xFFFF)
}

// CompactToTimestamp decodes the 48.16 fixed-point compact form back
// into seconds and nanoseconds.
func CompactToTimestamp(compact uint64) Timestamp {
	seconds := compact >> 16
	fraction := compact & 0xFFFF
	ns := uint32(math.Round(float64(fraction) * 1e9 / 65536))
	return Timestamp{Seconds: seconds, Nanoseconds: ns}
}

// TimestampFromTime converts a wall-clock instant to its PTP form.
func TimestampFromTime(t time.Time) Timestamp {
	return Timestamp{Seconds: uint64(t.Unix()), Nanoseconds: uint32(t.Nanosecond())}
}

// Sub returns t-other in nanoseconds, as a signed value. Both
// timestamps are assumed to be within range of each other (no
// wraparound handling beyond the 48-bit seconds field).
func (t Timestamp) Sub(other Timestamp) int64 {
	return (int64(t.Seconds)-int64(other.Seconds))*1e9 + int64(t.Nanoseconds) - int64(other.Nanoseconds)
}

type shortBufferError struct {
	field    string
	expected int
	actual   int
}

func (e *shortBufferError) Error() string {
	return "ptp: " + e.field + " too short"
}

func errShort(field string, expected, actual int) error {
	return &shortBufferError{field: field, expected: expected, actual: actual}
}
