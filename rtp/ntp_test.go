package rtp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNTPTimestampRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ntp := NTPTimestamp(now)
	back := NTPToTime(ntp)
	assert.WithinDuration(t, now, back, time.Millisecond)
}

func TestCurrentNTPTimestampIsNonZero(t *testing.T) {
	assert.NotZero(t, CurrentNTPTimestamp())
}
