package arbitrage

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"crypto-market-pipeline/internal/aggregator"
	"crypto-market-pipeline/internal/domain"
)

// Sink receives every opportunity the watcher finds. The database and the
// discord alerter both implement it.
type Sink interface {
	Record(ctx context.Context, opportunity domain.Opportunity) error
}

// alertCooldown throttles repeat alerts for the same pair and venue pairing.
const alertCooldown = time.Minute

// Watcher consumes the broadcast tick stream, keeps the freshest quote per
// (pair, venue) and re-analyzes a pair whenever one of its quotes moves.
type Watcher struct {
	hub      *aggregator.Hub
	analyzer *Analyzer
	sinks    []Sink
	log      *zap.Logger

	// quotes is read by the HTTP layer; lastAlert only by Run's goroutine.
	mu        sync.RWMutex
	quotes    map[string]map[domain.Venue]VenueQuote
	lastAlert map[string]time.Time
}

func NewWatcher(hub *aggregator.Hub, analyzer *Analyzer, sinks []Sink, log *zap.Logger) *Watcher {
	return &Watcher{
		hub:       hub,
		analyzer:  analyzer,
		sinks:     sinks,
		log:       log,
		quotes:    make(map[string]map[domain.Venue]VenueQuote),
		lastAlert: make(map[string]time.Time),
	}
}

// Run consumes the stream until ctx is cancelled. Falling behind the
// broadcast is logged and survived: the cache simply resumes from the next
// available tick.
func (w *Watcher) Run(ctx context.Context) error {
	sub := w.hub.Subscribe()
	defer sub.Close()
	w.log.Info("arbitrage watcher started")

	for {
		tick, err := sub.Next(ctx)
		if err != nil {
			var lagged *aggregator.LaggedError
			if errors.As(err, &lagged) {
				w.log.Warn("arbitrage watcher lagged, skipped " + strconv.FormatUint(lagged.Skipped, 10) + " ticks")
				continue
			}
			if errors.Is(err, aggregator.ErrClosed) {
				return nil
			}
			return err
		}
		w.observe(ctx, tick)
	}
}

func (w *Watcher) observe(ctx context.Context, tick domain.MarketTick) {
	w.mu.Lock()
	byVenue, ok := w.quotes[tick.Pair]
	if !ok {
		byVenue = make(map[domain.Venue]VenueQuote)
		w.quotes[tick.Pair] = byVenue
	}
	byVenue[tick.Exchange] = VenueQuote{
		Venue: tick.Exchange,
		Bid:   tick.Bid,
		Ask:   tick.Ask,
		TS:    tick.TS,
	}
	w.mu.Unlock()

	quotes := w.Quotes(tick.Pair)
	if len(quotes) < 2 {
		return
	}
	for _, opportunity := range w.analyzer.Analyze(tick.Pair, quotes) {
		w.emit(ctx, opportunity)
	}
}

// Quotes returns the freshest quote per venue for a pair. Used by the HTTP
// layer; returns nil when the pair has never been seen.
func (w *Watcher) Quotes(pair string) []VenueQuote {
	w.mu.RLock()
	defer w.mu.RUnlock()
	byVenue := w.quotes[pair]
	if len(byVenue) == 0 {
		return nil
	}
	quotes := make([]VenueQuote, 0, len(byVenue))
	for _, quote := range byVenue {
		quotes = append(quotes, quote)
	}
	return quotes
}

func (w *Watcher) emit(ctx context.Context, opportunity domain.Opportunity) {
	key := opportunity.Pair + "/" + opportunity.BuyOn.String() + ">" + opportunity.SellOn.String()
	if last, ok := w.lastAlert[key]; ok && time.Since(last) < alertCooldown {
		return
	}
	w.lastAlert[key] = time.Now()

	w.log.Info("arbitrage: " + opportunity.Pair +
		" buy " + opportunity.BuyOn.String() +
		" sell " + opportunity.SellOn.String() +
		" net edge " + strconv.FormatFloat(opportunity.NetEdge, 'f', 6, 64))
	for _, sink := range w.sinks {
		if err := sink.Record(ctx, opportunity); err != nil {
			w.log.Error("arbitrage sink failed: " + err.Error())
		}
	}
}
