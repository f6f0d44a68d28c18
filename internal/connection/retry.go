package connection

import (
	"math"
	"time"
)

// RetryPolicy decides whether and when to reconnect after a failed session.
// attempt counts consecutive failed sessions, starting at 1; it resets once a
// session completes its handshake.
type RetryPolicy interface {
	Next(attempt int, kind FailureKind) (delay time.Duration, ok bool)
}

// FixedDelay waits the same interval before every reconnect.
type FixedDelay struct {
	Interval    time.Duration
	MaxAttempts int // 0 = unlimited
}

// Next implements RetryPolicy.
func (p FixedDelay) Next(attempt int, _ FailureKind) (time.Duration, bool) {
	if p.MaxAttempts > 0 && attempt > p.MaxAttempts {
		return 0, false
	}
	return p.Interval, true
}

// ExponentialBackoff doubles (or multiplies by Multiplier) the wait after
// each consecutive failure, capped at Max.
type ExponentialBackoff struct {
	Base        time.Duration
	Max         time.Duration
	Multiplier  float64 // <= 1 means 2
	MaxAttempts int     // 0 = unlimited
}

// Next implements RetryPolicy.
func (p ExponentialBackoff) Next(attempt int, _ FailureKind) (time.Duration, bool) {
	if p.MaxAttempts > 0 && attempt > p.MaxAttempts {
		return 0, false
	}
	if attempt < 1 {
		attempt = 1
	}

	mult := p.Multiplier
	if mult <= 1 {
		mult = 2
	}

	wait := float64(p.Base) * math.Pow(mult, float64(attempt-1))
	if p.Max > 0 && wait > float64(p.Max) {
		return p.Max, true
	}
	if wait >= math.MaxInt64 {
		return time.Duration(math.MaxInt64), true
	}
	return time.Duration(wait), true
}

// DefaultRetryPolicy reconnects every 5 seconds, forever.
func DefaultRetryPolicy() RetryPolicy {
	return FixedDelay{Interval: DefaultReconnectInterval}
}
