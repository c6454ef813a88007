package coinbase

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"crypto-market-pipeline/internal/domain"
	"crypto-market-pipeline/internal/exchange"
)

const (
	websocketUrl = "wss://ws-feed.exchange.coinbase.com"
	apiBaseUrl   = "https://api.exchange.coinbase.com"
)

var errNotTicker = errors.New("coinbase: not a ticker message")

// Connector streams ticker messages for product ids in BTC-USD form. Output
// policy is drop, like every live websocket venue.
type Connector struct {
	pairs []string
	log   *zap.Logger
}

func NewConnector(pairs []string, log *zap.Logger) *Connector {
	return &Connector{pairs: pairs, log: log}
}

func (c *Connector) Venue() domain.Venue { return domain.Coinbase }

func (c *Connector) Run(ctx context.Context, out chan<- domain.MarketTick) error {
	return exchange.RunLoop(ctx, c.log, "coinbase", func(ctx context.Context, connected func()) error {
		conn, _, err := websocket.Dial(ctx, websocketUrl, nil)
		if err != nil {
			return err
		}
		defer conn.CloseNow()
		conn.SetReadLimit(-1)

		request, err := json.Marshal(subscribeRequest{
			Type:       "subscribe",
			ProductIDs: c.pairs,
			Channels:   []string{"ticker"},
		})
		if err != nil {
			return err
		}
		if err := conn.Write(ctx, websocket.MessageText, request); err != nil {
			return err
		}
		connected()

		for {
			messageType, message, err := conn.Read(ctx)
			if err != nil {
				return err
			}
			if messageType != websocket.MessageText {
				continue
			}
			tick, err := ParseTicker(message)
			if err != nil {
				if !errors.Is(err, errNotTicker) {
					c.log.Warn("coinbase: dropping message: " + err.Error())
				}
				continue
			}
			if sent, err := exchange.Emit(ctx, out, tick, exchange.SendDrop); err != nil {
				return err
			} else if !sent {
				c.log.Warn("coinbase: output full, dropping tick for " + tick.Pair)
			}
		}
	})
}

// ParseTicker normalizes a "ticker" feed message. Non-ticker payloads return
// errNotTicker; the session ignores those silently.
func ParseTicker(message []byte) (domain.MarketTick, error) {
	var msg feedMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return domain.MarketTick{}, err
	}
	if msg.Type != "ticker" {
		return domain.MarketTick{}, errNotTicker
	}
	bid, err1 := strconv.ParseFloat(msg.BestBid, 64)
	ask, err2 := strconv.ParseFloat(msg.BestAsk, 64)
	if err1 != nil || err2 != nil || msg.ProductID == "" {
		return domain.MarketTick{}, errors.New("coinbase: malformed ticker")
	}
	return domain.MarketTick{
		Exchange: domain.Coinbase,
		Pair:     msg.ProductID,
		Bid:      bid,
		Ask:      ask,
		TS:       exchange.NowMillis(),
	}, nil
}

// parseStringLevels converts [price, qty] string rows, skipping bad rows.
func parseStringLevels(rows [][]string) []domain.OrderBookLevel {
	levels := make([]domain.OrderBookLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		price, err1 := strconv.ParseFloat(row[0], 64)
		qty, err2 := strconv.ParseFloat(row[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		levels = append(levels, domain.OrderBookLevel{Price: price, Qty: qty})
	}
	return levels
}
