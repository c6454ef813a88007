package mock

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"crypto-market-pipeline/internal/domain"
	"crypto-market-pipeline/internal/exchange"
	"crypto-market-pipeline/internal/orderbook"
)

const (
	baseMid      = 100.0
	midJitter    = 0.5
	spreadRatio  = 0.001
	tickInterval = 500 * time.Millisecond
)

// Connector generates a synthetic feed for offline development: mid walks
// around 100, spread is 0.1% of mid, one tick per pair every 500ms. It is
// only ever selected explicitly by name.
type Connector struct {
	pairs []string
	rng   *rand.Rand
	log   *zap.Logger
}

func NewConnector(pairs []string, log *zap.Logger) *Connector {
	return &Connector{
		pairs: pairs,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		log:   log,
	}
}

func (c *Connector) Venue() domain.Venue { return domain.Mock }

func (c *Connector) Run(ctx context.Context, out chan<- domain.MarketTick) error {
	c.log.Info("mock: streaming")
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		ts := exchange.NowMillis()
		for _, pair := range c.pairs {
			mid := baseMid + (c.rng.Float64()-0.5)*2*midJitter
			half := mid * spreadRatio / 2
			tick := domain.MarketTick{
				Exchange: domain.Mock,
				Pair:     pair,
				Bid:      mid - half,
				Ask:      mid + half,
				TS:       ts,
			}
			if _, err := exchange.Emit(ctx, out, tick, exchange.SendBlock); err != nil {
				return err
			}
		}
	}
}

// Snapshot builds a synthetic two-level book around the current mid, for
// exercising the book pipeline without a live venue.
func (c *Connector) Snapshot(pair string) domain.BookSnapshot {
	mid := baseMid + (c.rng.Float64()-0.5)*2*midJitter
	half := mid * spreadRatio / 2
	step := mid * spreadRatio
	return domain.BookSnapshot{
		Exchange: domain.Mock,
		Pair:     pair,
		Bids: []domain.OrderBookLevel{
			{Price: mid - half, Qty: 1},
			{Price: mid - half - step, Qty: 2},
		},
		Asks: []domain.OrderBookLevel{
			{Price: mid + half, Qty: 1},
			{Price: mid + half + step, Qty: 2},
		},
		TS: int64(exchange.NowMillis()),
	}
}

// BookStream feeds a keeper with synthetic snapshots, so the book pipeline
// can run offline end to end.
type BookStream struct {
	pair   string
	source *Connector
	keeper *orderbook.Keeper
	log    *zap.Logger
}

func NewBookStream(pair string, keeper *orderbook.Keeper, log *zap.Logger) *BookStream {
	return &BookStream{
		pair:   pair,
		source: NewConnector(nil, log),
		keeper: keeper,
		log:    log,
	}
}

func (s *BookStream) Run(ctx context.Context) error {
	s.log.Info("mock book " + s.pair + ": streaming")
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		snapshot := s.source.Snapshot(s.pair)
		if err := s.keeper.ApplySnapshot(ctx, snapshot.Bids, snapshot.Asks, snapshot.TS); err != nil {
			return err
		}
	}
}
