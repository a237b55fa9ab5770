package engine

import (
	"math/rand"
	"time"
)

const (
	// maxAttempts bounds rate-limit retries per request. Other errors are
	// not retried; the recovery layer turns them into sentinels.
	maxAttempts = 3

	baseBackoff = time.Second
	maxBackoff  = 30 * time.Second
	maxJitter   = time.Second
)

// backoffDelay returns the exponential delay for a 1-indexed attempt with
// up to one second of jitter, capped at maxBackoff.
func backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := baseBackoff << (attempt - 1)
	delay += time.Duration(rand.Int63n(int64(maxJitter)))
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return delay
}
