package exchange

import "time"

// Backoff computes reconnect delays: Min on the first failure, doubling per
// consecutive failure, capped at Max. The caller resets the attempt counter
// to 1 on any successful connection.
type Backoff struct {
	Min time.Duration
	Max time.Duration
}

// DefaultBackoff starts at one second and caps at thirty.
func DefaultBackoff() Backoff {
	return Backoff{Min: time.Second, Max: 30 * time.Second}
}

// Next returns the delay for the given attempt (1-based).
func (b Backoff) Next(attempt int) time.Duration {
	min := b.Min
	if min <= 0 {
		min = time.Second
	}
	max := b.Max
	if max <= 0 {
		max = 30 * time.Second
	}

	wait := min
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= max {
			return max
		}
	}
	if wait > max {
		return max
	}
	return wait
}
