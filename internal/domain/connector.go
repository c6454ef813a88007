package domain

import "context"

// Connector maintains a live session to one venue and emits normalized ticks
// on out. Run keeps reconnecting on transient failure and returns only when
// ctx is cancelled; cancelling the context is the per-connector stop signal.
type Connector interface {
	Venue() Venue
	Run(ctx context.Context, out chan<- MarketTick) error
}
