package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ConnectFunc attempts one connection to a remembered device, returning
// an error on failure.
type ConnectFunc func(ctx context.Context) error

// ReconnectSupervisor retries ConnectFunc after an unsolicited
// disconnect, preserving the device identity across attempts. A
// user-initiated Disconnect disables retrying until the next explicit
// Connect call.
type ReconnectSupervisor struct {
	attempts int
	delay    time.Duration
	log      zerolog.Logger

	mu            sync.Mutex
	userInitiated bool
	limiter       *rate.Limiter
}

// NewReconnectSupervisor builds a supervisor that retries up to
// attempts times, spaced delay apart. The spacing is enforced with a
// token-bucket limiter (one token per delay, burst 1) rather than a
// bare time.Sleep; the limiter paces only the attempts made inside
// OnDisconnect.
func NewReconnectSupervisor(attempts int, delay time.Duration, log zerolog.Logger) *ReconnectSupervisor {
	return &ReconnectSupervisor{
		attempts: attempts,
		delay:    delay,
		log:      log.With().Str("component", "reconnect_supervisor").Logger(),
		limiter:  rate.NewLimiter(rate.Every(delay), 1),
	}
}

// NotifyUserDisconnect marks the next disconnect as user-initiated,
// suppressing automatic reconnection until the next Connect call.
func (r *ReconnectSupervisor) NotifyUserDisconnect() {
	r.mu.Lock()
	r.userInitiated = true
	r.mu.Unlock()
}

// NotifyConnect clears the user-initiated flag, re-arming automatic
// reconnection for any future disconnect.
func (r *ReconnectSupervisor) NotifyConnect() {
	r.mu.Lock()
	r.userInitiated = false
	r.mu.Unlock()
}

// OnDisconnect runs the reconnection loop if the disconnect was not
// user-initiated, trying connect up to r.attempts times with r.delay
// between attempts. It returns nil on the first successful connect, or
// the last error after exhausting attempts. ctx cancellation (session
// teardown) aborts the loop early.
func (r *ReconnectSupervisor) OnDisconnect(ctx context.Context, connect ConnectFunc) error {
	r.mu.Lock()
	userInitiated := r.userInitiated
	r.mu.Unlock()

	if userInitiated {
		r.log.Debug().Msg("disconnect was user-initiated, skipping auto-reconnect")
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}

		r.log.Info().Int("attempt", attempt).Int("max_attempts", r.attempts).Msg("attempting reconnect")
		if err := connect(ctx); err != nil {
			lastErr = err
			r.log.Warn().Err(err).Int("attempt", attempt).Msg("reconnect attempt failed")
			continue
		}

		r.NotifyConnect()
		r.log.Info().Int("attempt", attempt).Msg("reconnected")
		return nil
	}

	return lastErr
}
