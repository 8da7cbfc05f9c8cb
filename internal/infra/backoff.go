package infra

import (
	"time"
)

const (
	reconnectBaseDelay = 500 * time.Millisecond
	reconnectMaxDelay  = 30 * time.Second
)

// CalculateBackoff returns the exponential backoff duration for a
// given retry count: baseDelay * 2^retryCount, capped at maxDelay.
func CalculateBackoff(retryCount int) time.Duration {
	if retryCount < 0 {
		return reconnectBaseDelay
	}

	// 2^30 * base already exceeds any sane cap; stop shifting early
	// to avoid overflow.
	if retryCount > 30 {
		return reconnectMaxDelay
	}

	backoff := reconnectBaseDelay * time.Duration(1<<retryCount)
	if backoff > reconnectMaxDelay {
		return reconnectMaxDelay
	}
	return backoff
}
