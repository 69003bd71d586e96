package rtp

import "time"

const ntpEpochOffset int64 = 2208988800

// CurrentNTPTimestamp returns the present moment as a 64-bit NTP
// fixed-point timestamp (32-bit seconds since 1900, 32-bit fraction),
// for stamping sync packets.
func CurrentNTPTimestamp() uint64 {
	return NTPTimestamp(time.Now())
}

// NTPTimestamp converts a wall-clock time to its 64-bit NTP
// fixed-point encoding.
func NTPTimestamp(t time.Time) uint64 {
	seconds := t.Unix() + ntpEpochOffset
	frac := (float64(t.Nanosecond()) / 1e9) * (1 << 32)
	return (uint64(seconds) << 32) | uint64(frac)
}

// NTPToTime converts a 64-bit NTP fixed-point timestamp back to a
// wall-clock time.
func NTPToTime(ntp uint64) time.Time {
	seconds := int64(ntp >> 32)
	frac := float64(ntp&0xFFFFFFFF) / (1 << 32)
	unixSeconds := seconds - ntpEpochOffset
	return time.Unix(unixSeconds, int64(frac*1e9))
}
