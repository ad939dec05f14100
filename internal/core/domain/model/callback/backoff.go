package callback

import "time"

// MaxAttempts bounds the number of HTTP attempts per callback.
const MaxAttempts = 5

var backoffTable = [...]time.Duration{
	10 * time.Second,
	30 * time.Second,
	60 * time.Second,
	120 * time.Second,
	300 * time.Second,
}

// Backoff returns the wait after the given failed attempt (1-based).
// Attempts past the table reuse its last entry.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	if attempt > len(backoffTable) {
		return backoffTable[len(backoffTable)-1]
	}
	return backoffTable[attempt-1]
}
