package retry

import (
	"math/rand/v2"
	"time"
)

// Backoff computes the delay following the given attempt number (1-based):
// baseDelay doubled per completed attempt, capped at MaxDelay, with optional
// full jitter. Thread-safe via math/rand/v2. Returns zero for non-positive
// attempts.
func Backoff(attempt int, cfg Config) time.Duration {
	if attempt <= 0 {
		return 0
	}

	backoff := cfg.BaseDelay
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff > cfg.MaxDelay {
			backoff = cfg.MaxDelay
			break
		}
	}

	if cfg.UseJitter {
		// Full jitter: random over [0, backoff).
		jitterMs := rand.Int64N(backoff.Milliseconds() + 1) // #nosec G404 -- non-cryptographic jitter is appropriate here
		return time.Duration(jitterMs) * time.Millisecond
	}

	return backoff
}
