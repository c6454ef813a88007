package binance

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"crypto-market-pipeline/internal/domain"
	"crypto-market-pipeline/internal/exchange"
)

const (
	websocketUrl = "wss://stream.binance.com:9443/ws"
	apiBaseUrl   = "https://api.binance.com"
)

var errUnrecognized = errors.New("binance: unrecognized message")

// Connector streams best bid/ask ticks for a set of symbols (BTCUSDT form).
// Its output policy is drop: a live depth-of-market feed must not stall the
// socket waiting for a slow consumer.
type Connector struct {
	pairs []string
	log   *zap.Logger
}

func NewConnector(pairs []string, log *zap.Logger) *Connector {
	return &Connector{pairs: pairs, log: log}
}

func (c *Connector) Venue() domain.Venue { return domain.Binance }

func (c *Connector) Run(ctx context.Context, out chan<- domain.MarketTick) error {
	wanted := make(map[string]bool, len(c.pairs))
	for _, pair := range c.pairs {
		wanted[strings.ToUpper(pair)] = true
	}

	return exchange.RunLoop(ctx, c.log, "binance", func(ctx context.Context, connected func()) error {
		conn, _, err := websocket.Dial(ctx, websocketUrl, nil)
		if err != nil {
			return err
		}
		defer conn.CloseNow()
		conn.SetReadLimit(-1)

		if err := subscribeTicker(ctx, conn, c.pairs); err != nil {
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
			ticks, err := ParseTicker(message, wanted)
			if err != nil {
				c.log.Warn("binance: dropping message: " + err.Error())
				continue
			}
			for _, tick := range ticks {
				if sent, err := exchange.Emit(ctx, out, tick, exchange.SendDrop); err != nil {
					return err
				} else if !sent {
					c.log.Warn("binance: output full, dropping tick for " + tick.Pair)
				}
			}
		}
	})
}

func subscribeTicker(ctx context.Context, conn *websocket.Conn, pairs []string) error {
	params := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		params = append(params, strings.ToLower(pair)+"@bookTicker")
	}
	request, err := json.Marshal(subscribeRequest{Method: "SUBSCRIBE", Params: params, ID: 1})
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, request)
}

// ParseTicker normalizes a ticker message. Both wire shapes are handled: an
// array of ticker objects or a single object carrying s/b/a. Messages without
// those fields (subscribe acks and the like) yield no ticks and no error;
// malformed payloads are an error for the caller to log and drop.
func ParseTicker(message []byte, wanted map[string]bool) ([]domain.MarketTick, error) {
	trimmed := strings.TrimSpace(string(message))
	if strings.HasPrefix(trimmed, "[") {
		var items []tickerMessage
		if err := json.Unmarshal(message, &items); err != nil {
			return nil, err
		}
		var ticks []domain.MarketTick
		for _, item := range items {
			tick, ok := tickFromMessage(item, wanted)
			if ok {
				ticks = append(ticks, tick)
			}
		}
		return ticks, nil
	}

	var item tickerMessage
	if err := json.Unmarshal(message, &item); err != nil {
		return nil, err
	}
	if item.Symbol == "" {
		// Subscribe ack or other control payload.
		return nil, nil
	}
	if item.Bid == "" || item.Ask == "" {
		return nil, errUnrecognized
	}
	tick, ok := tickFromMessage(item, wanted)
	if !ok {
		return nil, nil
	}
	return []domain.MarketTick{tick}, nil
}

func tickFromMessage(item tickerMessage, wanted map[string]bool) (domain.MarketTick, bool) {
	if item.Symbol == "" {
		return domain.MarketTick{}, false
	}
	if len(wanted) > 0 && !wanted[strings.ToUpper(item.Symbol)] {
		return domain.MarketTick{}, false
	}
	bid, err1 := strconv.ParseFloat(item.Bid, 64)
	ask, err2 := strconv.ParseFloat(item.Ask, 64)
	if err1 != nil || err2 != nil {
		return domain.MarketTick{}, false
	}
	return domain.MarketTick{
		Exchange: domain.Binance,
		Pair:     strings.ToUpper(item.Symbol),
		Bid:      bid,
		Ask:      ask,
		TS:       exchange.NowMillis(),
	}, true
}

// ParseLevels converts [price, qty] string pairs to levels. Rows that do not
// parse are skipped, matching the drop-and-continue policy for bad input.
func ParseLevels(rows [][]string) []domain.OrderBookLevel {
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
