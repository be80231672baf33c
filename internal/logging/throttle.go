package logging

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Throttle limits how often a repeating log line is emitted. A camera that
// fails every frame would otherwise flood the log at the frame rate.
type Throttle struct {
	limiter    *rate.Limiter
	suppressed atomic.Int64
}

// NewThrottle allows one event per interval with the given burst.
func NewThrottle(interval time.Duration, burst int) *Throttle {
	if burst < 1 {
		burst = 1
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(interval), burst)}
}

// Allow reports whether the caller may log now. When it may, it also returns
// how many events were suppressed since the last allowed one.
func (t *Throttle) Allow() (bool, int64) {
	if !t.limiter.Allow() {
		t.suppressed.Add(1)
		return false, 0
	}
	return true, t.suppressed.Swap(0)
}
