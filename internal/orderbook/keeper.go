package orderbook

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"crypto-market-pipeline/internal/domain"
)

// ErrKeeperStopped reports that the keeper's goroutine is no longer running.
var ErrKeeperStopped = errors.New("orderbook: keeper stopped")

// Quote is the keeper's read view of the top of the book.
type Quote struct {
	BestBid  float64 `json:"best_bid"`
	BestAsk  float64 `json:"best_ask"`
	Mid      float64 `json:"mid"`
	Spread   float64 `json:"spread"`
	HasBid   bool    `json:"has_bid"`
	HasAsk   bool    `json:"has_ask"`
	BidDepth float64 `json:"bid_depth"`
	AskDepth float64 `json:"ask_depth"`
	TS       int64   `json:"ts"`
}

// Keeper owns one Book for one (venue, pair). All mutation and reads go
// through its command channel, so exactly one goroutine ever touches the
// book; the single-writer rule is structural, not a locking convention.
type Keeper struct {
	venue domain.Venue
	pair  string
	cmds  chan func(*Book)
	done  chan struct{}
	log   *zap.Logger
}

func NewKeeper(venue domain.Venue, pair string, log *zap.Logger) *Keeper {
	return &Keeper{
		venue: venue,
		pair:  pair,
		cmds:  make(chan func(*Book), 64),
		done:  make(chan struct{}),
		log:   log,
	}
}

func (k *Keeper) Venue() domain.Venue { return k.venue }
func (k *Keeper) Pair() string        { return k.pair }

// Run owns the book until ctx is cancelled. Commands submitted after Run
// returns fail with ErrKeeperStopped.
func (k *Keeper) Run(ctx context.Context) {
	defer close(k.done)
	book := New()
	k.log.Info("book keeper started for " + k.venue.String() + " " + k.pair)
	for {
		select {
		case <-ctx.Done():
			k.log.Info("book keeper stopped for " + k.venue.String() + " " + k.pair)
			return
		case cmd := <-k.cmds:
			cmd(book)
		}
	}
}

// Do runs fn inside the owning goroutine and waits for it to finish. fn must
// not retain the *Book beyond the call.
func (k *Keeper) Do(ctx context.Context, fn func(*Book) error) error {
	result := make(chan error, 1)
	cmd := func(book *Book) {
		result <- fn(book)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-k.done:
		return ErrKeeperStopped
	case k.cmds <- cmd:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-k.done:
		return ErrKeeperStopped
	case err := <-result:
		return err
	}
}

// ApplySnapshot replaces the book contents through the owning goroutine.
func (k *Keeper) ApplySnapshot(ctx context.Context, bids, asks []domain.OrderBookLevel, ts int64) error {
	return k.Do(ctx, func(book *Book) error {
		return book.ApplySnapshot(bids, asks, ts)
	})
}

// ApplyDelta applies depth-diff updates through the owning goroutine.
func (k *Keeper) ApplyDelta(ctx context.Context, bidDeltas, askDeltas []domain.OrderBookLevel, ts int64) error {
	return k.Do(ctx, func(book *Book) error {
		return book.ApplyDelta(bidDeltas, askDeltas, ts)
	})
}

// Reset discards all book state, as on resubscription after a gap.
func (k *Keeper) Reset(ctx context.Context) error {
	return k.Do(ctx, func(book *Book) error {
		return book.ApplySnapshot(nil, nil, book.TS)
	})
}

// Quote reads the top of book.
func (k *Keeper) Quote(ctx context.Context) (Quote, error) {
	var quote Quote
	err := k.Do(ctx, func(book *Book) error {
		quote.BestBid, quote.HasBid = book.BestBid()
		quote.BestAsk, quote.HasAsk = book.BestAsk()
		quote.Mid, _ = book.Mid()
		quote.Spread, _ = book.Spread()
		quote.BidDepth = book.Bids.TotalQty()
		quote.AskDepth = book.Asks.TotalQty()
		quote.TS = book.TS
		return nil
	})
	return quote, err
}

// Snapshot exports the aggregated book.
func (k *Keeper) Snapshot(ctx context.Context) (domain.BookSnapshot, error) {
	var snapshot domain.BookSnapshot
	err := k.Do(ctx, func(book *Book) error {
		snapshot = book.Snapshot(k.venue, k.pair)
		return nil
	})
	return snapshot, err
}
