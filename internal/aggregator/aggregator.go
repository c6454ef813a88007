package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"crypto-market-pipeline/internal/domain"
)

const DefaultCapacity = 1024

// ErrClosed reports that a subscription has been closed. It is a clean end of
// stream, not a failure.
var ErrClosed = errors.New("aggregator: subscription closed")

// LaggedError is returned by Subscription.Next when the subscriber fell
// behind the broadcast buffer. The subscriber resumes from the next available
// tick; Skipped counts the ticks it missed. Recoverable by calling Next again.
type LaggedError struct {
	Skipped uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("aggregator: subscriber lagged, skipped %d ticks", e.Skipped)
}

// Hub bridges many producer channels into one broadcast stream read by many
// independent subscribers. Producers are never blocked by a slow subscriber;
// the subscriber loses data instead.
type Hub struct {
	capacity int
	log      *zap.Logger

	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

func New(capacity int, log *zap.Logger) *Hub {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Hub{
		capacity: capacity,
		log:      log,
		subs:     make(map[*Subscription]struct{}),
	}
}

// CreateInputChannel allocates a bounded producer channel and starts a bridge
// that forwards every tick into the broadcast. The bridge exits when the
// caller closes the channel. Per-producer FIFO order is preserved.
func (h *Hub) CreateInputChannel(capacity int) chan<- domain.MarketTick {
	if capacity <= 0 {
		capacity = 1
	}
	in := make(chan domain.MarketTick, capacity)
	go func() {
		for tick := range in {
			h.Publish(tick)
		}
		h.log.Info("aggregator input channel closed")
	}()
	return in
}

// Publish delivers one tick to every live subscriber, dropping the oldest
// buffered tick for any subscriber whose buffer is full.
func (h *Hub) Publish(tick domain.MarketTick) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		sub.push(tick)
	}
}

// Subscribe registers a new receiver over the broadcast stream. Each
// subscriber gets its own buffer of the hub's capacity.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		hub: h,
		ch:  make(chan domain.MarketTick, h.capacity),
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

// Subscription is one receiver over the broadcast stream.
type Subscription struct {
	hub     *Hub
	ch      chan domain.MarketTick
	skipped atomic.Uint64

	mu     sync.Mutex
	closed bool
}

// push is called by the hub with the hub's read lock held. The per-
// subscription mutex serializes concurrent producers so that drop-oldest
// stays race free; the consumer side reads the channel directly.
func (s *Subscription) push(tick domain.MarketTick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- tick:
		return
	default:
	}
	// Buffer full: evict the oldest tick, then retry. The consumer may have
	// drained the channel in between, so the eviction itself is best effort.
	select {
	case <-s.ch:
		s.skipped.Add(1)
	default:
	}
	select {
	case s.ch <- tick:
	default:
		s.skipped.Add(1)
	}
}

// Next returns the next broadcast tick. When the subscriber has fallen behind
// it returns a *LaggedError carrying the number of dropped ticks; the caller
// skips forward by simply calling Next again. ErrClosed ends the stream.
func (s *Subscription) Next(ctx context.Context) (domain.MarketTick, error) {
	if skipped := s.skipped.Swap(0); skipped > 0 {
		return domain.MarketTick{}, &LaggedError{Skipped: skipped}
	}
	select {
	case <-ctx.Done():
		return domain.MarketTick{}, ctx.Err()
	case tick, ok := <-s.ch:
		if !ok {
			return domain.MarketTick{}, ErrClosed
		}
		return tick, nil
	}
}

// Close detaches the subscription from the hub. Next drains whatever is
// still buffered and then returns ErrClosed.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()
	s.hub.remove(s)
}
