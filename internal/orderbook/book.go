package orderbook

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"crypto-market-pipeline/internal/domain"
)

// QtyEpsilon absorbs floating-point residue when deciding that an order or a
// level is exhausted, so near-zero phantom levels never survive a fill.
const QtyEpsilon = 1e-12

// ErrInvalidLevel rejects snapshot/delta input that would corrupt the book:
// non-finite prices or quantities, or prices at or below zero.
var ErrInvalidLevel = errors.New("orderbook: invalid level")

// Order is one resting order, owned exclusively by the FIFO queue at its
// price level.
type Order struct {
	ID    uint64
	Price float64
	Qty   float64
	TS    int64
}

// Fill records one slice of a match: Qty taken from order OrderID at Price.
type Fill struct {
	OrderID uint64  `json:"order_id"`
	Price   float64 `json:"price"`
	Qty     float64 `json:"qty"`
	Cost    float64 `json:"cost"`
}

// Side holds one side of the book: a price-sorted index over FIFO queues of
// resting orders. Iteration is best-first: descending for bids, ascending for
// asks. A price never maps to an empty queue; emptied levels are removed
// immediately.
type Side struct {
	prices []float64 // ascending
	queues map[float64][]Order
	isBid  bool
}

func NewSide(isBid bool) *Side {
	return &Side{
		queues: make(map[float64][]Order),
		isBid:  isBid,
	}
}

// BestPrice returns the highest bid or lowest ask price.
func (s *Side) BestPrice() (float64, bool) {
	if len(s.prices) == 0 {
		return 0, false
	}
	if s.isBid {
		return s.prices[len(s.prices)-1], true
	}
	return s.prices[0], true
}

// Prices returns the side's price levels in best-first order.
func (s *Side) Prices() []float64 {
	out := make([]float64, len(s.prices))
	if s.isBid {
		for i, p := range s.prices {
			out[len(s.prices)-1-i] = p
		}
	} else {
		copy(out, s.prices)
	}
	return out
}

// TotalQty sums the resting quantity across all levels.
func (s *Side) TotalQty() float64 {
	var total float64
	for _, queue := range s.queues {
		for _, order := range queue {
			total += order.Qty
		}
	}
	return total
}

// LevelQty returns the aggregate resting quantity at one price.
func (s *Side) LevelQty(price float64) float64 {
	var total float64
	for _, order := range s.queues[price] {
		total += order.Qty
	}
	return total
}

// Levels returns aggregated (price, qty) levels in best-first order.
func (s *Side) Levels() []domain.OrderBookLevel {
	prices := s.Prices()
	out := make([]domain.OrderBookLevel, 0, len(prices))
	for _, price := range prices {
		out = append(out, domain.OrderBookLevel{Price: price, Qty: s.LevelQty(price)})
	}
	return out
}

// AddLimit appends a resting order to the FIFO queue at price, creating the
// level if it does not exist yet.
func (s *Side) AddLimit(id uint64, price, qty float64, ts int64) {
	if _, exists := s.queues[price]; !exists {
		idx := sort.SearchFloat64s(s.prices, price)
		s.prices = append(s.prices, 0)
		copy(s.prices[idx+1:], s.prices[idx:])
		s.prices[idx] = price
	}
	s.queues[price] = append(s.queues[price], Order{ID: id, Price: price, Qty: qty, TS: ts})
}

// ConsumeAtPrice drains the FIFO queue at price, oldest order first, until
// qty is satisfied or the level is empty. A front order larger than the
// remaining demand is partially filled and kept; smaller orders are removed.
// The level itself is removed once its queue empties.
func (s *Side) ConsumeAtPrice(price, qty float64) (filled, cost float64, fills []Fill) {
	queue, exists := s.queues[price]
	if !exists {
		return 0, 0, nil
	}

	for qty > QtyEpsilon && len(queue) > 0 {
		front := &queue[0]
		take := front.Qty
		if take > qty {
			take = qty
		}
		filled += take
		cost += take * price
		fills = append(fills, Fill{OrderID: front.ID, Price: price, Qty: take, Cost: take * price})
		front.Qty -= take
		qty -= take
		if front.Qty <= QtyEpsilon {
			queue = queue[1:]
		}
	}

	if len(queue) == 0 {
		s.RemoveLevel(price)
	} else {
		s.queues[price] = queue
	}
	return filled, cost, fills
}

// RemoveLevel deletes a whole price level. Reports whether it existed.
func (s *Side) RemoveLevel(price float64) bool {
	if _, exists := s.queues[price]; !exists {
		return false
	}
	delete(s.queues, price)
	idx := sort.SearchFloat64s(s.prices, price)
	s.prices = append(s.prices[:idx], s.prices[idx+1:]...)
	return true
}

func (s *Side) clear() {
	s.prices = s.prices[:0]
	for price := range s.queues {
		delete(s.queues, price)
	}
}

// Book is the per-symbol order book: two sides, the last-update timestamp and
// a monotonic id sequence for resting orders.
type Book struct {
	Bids *Side
	Asks *Side
	TS   int64

	seq uint64
}

func New() *Book {
	return &Book{
		Bids: NewSide(true),
		Asks: NewSide(false),
		seq:  1,
	}
}

// NextID hands out the next order id. All resting orders draw from this
// counter; there are no placeholder ids.
func (b *Book) NextID() uint64 {
	id := b.seq
	b.seq++
	return id
}

func (b *Book) BestBid() (float64, bool) { return b.Bids.BestPrice() }
func (b *Book) BestAsk() (float64, bool) { return b.Asks.BestPrice() }

// Mid returns the midpoint price; undefined unless both sides are non-empty.
func (b *Book) Mid() (float64, bool) {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return 0, false
	}
	return (bid + ask) / 2, true
}

// Spread returns ask minus bid; undefined unless both sides are non-empty.
func (b *Book) Spread() (float64, bool) {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return 0, false
	}
	return ask - bid, true
}

// ApplySnapshot replaces the whole book with the given levels. Entries with
// qty <= 0 are skipped; resting orders get fresh ids from the book's counter.
// Invalid input is rejected before any mutation.
func (b *Book) ApplySnapshot(bids, asks []domain.OrderBookLevel, ts int64) error {
	if err := validateLevels(bids); err != nil {
		return err
	}
	if err := validateLevels(asks); err != nil {
		return err
	}

	b.Bids.clear()
	b.Asks.clear()
	for _, level := range bids {
		if level.Qty > 0 {
			b.Bids.AddLimit(b.NextID(), level.Price, level.Qty, ts)
		}
	}
	for _, level := range asks {
		if level.Qty > 0 {
			b.Asks.AddLimit(b.NextID(), level.Price, level.Qty, ts)
		}
	}
	b.TS = ts
	return nil
}

// ApplyDelta applies depth-diff updates: each entry's qty is the absolute new
// size of that price level, not an increment. qty <= 0 removes the level.
// Invalid input is rejected before any mutation.
func (b *Book) ApplyDelta(bidDeltas, askDeltas []domain.OrderBookLevel, ts int64) error {
	if err := validateLevels(bidDeltas); err != nil {
		return err
	}
	if err := validateLevels(askDeltas); err != nil {
		return err
	}

	for _, delta := range bidDeltas {
		applyDelta(b, b.Bids, delta, ts)
	}
	for _, delta := range askDeltas {
		applyDelta(b, b.Asks, delta, ts)
	}
	b.TS = ts
	return nil
}

func applyDelta(b *Book, side *Side, delta domain.OrderBookLevel, ts int64) {
	side.RemoveLevel(delta.Price)
	if delta.Qty > 0 {
		side.AddLimit(b.NextID(), delta.Price, delta.Qty, ts)
	}
}

// Snapshot exports the aggregated book for the HTTP boundary.
func (b *Book) Snapshot(venue domain.Venue, pair string) domain.BookSnapshot {
	return domain.BookSnapshot{
		Exchange: venue,
		Pair:     pair,
		Bids:     b.Bids.Levels(),
		Asks:     b.Asks.Levels(),
		TS:       b.TS,
	}
}

func validateLevels(levels []domain.OrderBookLevel) error {
	for _, level := range levels {
		if math.IsNaN(level.Price) || math.IsInf(level.Price, 0) || level.Price <= 0 {
			return fmt.Errorf("%w: price %v", ErrInvalidLevel, level.Price)
		}
		if math.IsNaN(level.Qty) || math.IsInf(level.Qty, 0) {
			return fmt.Errorf("%w: qty %v at price %v", ErrInvalidLevel, level.Qty, level.Price)
		}
	}
	return nil
}
