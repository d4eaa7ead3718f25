package posting

import "time"

const DefaultGrace = 5 * time.Second

// WaitTime is the delay before posting again to an (account, website) pair.
// Once the minimum interval has passed only the grace delay applies;
// otherwise the remaining gap is waited, never less than grace.
func WaitTime(elapsed, interval, grace time.Duration) time.Duration {
	if elapsed >= interval {
		return grace
	}
	gap := elapsed - interval
	if gap < 0 {
		gap = -gap
	}
	return max(gap, grace)
}
