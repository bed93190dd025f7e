package gateway

import (
	"math/rand"
	"time"
)

// maxBackoff caps the exponential delay between retries.
const maxBackoff = 30 * time.Second

// backoff computes the delay before retry attempt n (0-based) as
// exponential growth with up to 25% jitter, to avoid synchronized
// retries against a struggling provider.
func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}

	delay := base * time.Duration(1<<uint(attempt))
	if delay > maxBackoff {
		delay = maxBackoff
	}

	jitter := time.Duration(rand.Int63n(int64(delay/4) + 1))
	return delay + jitter
}
