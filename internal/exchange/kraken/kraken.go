package kraken

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
	websocketUrl = "wss://ws.kraken.com"
	apiBaseUrl   = "https://api.kraken.com"
)

var errNotTicker = errors.New("kraken: not a ticker frame")

// Connector streams ticker frames for pairs in XBT/USD form. Output policy is
// drop, like the other live websocket venues.
type Connector struct {
	pairs []string
	log   *zap.Logger
}

func NewConnector(pairs []string, log *zap.Logger) *Connector {
	return &Connector{pairs: pairs, log: log}
}

func (c *Connector) Venue() domain.Venue { return domain.Kraken }

func (c *Connector) Run(ctx context.Context, out chan<- domain.MarketTick) error {
	return exchange.RunLoop(ctx, c.log, "kraken", func(ctx context.Context, connected func()) error {
		conn, _, err := websocket.Dial(ctx, websocketUrl, nil)
		if err != nil {
			return err
		}
		defer conn.CloseNow()
		conn.SetReadLimit(-1)

		request, err := json.Marshal(subscribeRequest{
			Event:        "subscribe",
			Pair:         c.pairs,
			Subscription: subscription{Name: "ticker"},
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
					c.log.Warn("kraken: dropping message: " + err.Error())
				}
				continue
			}
			if sent, err := exchange.Emit(ctx, out, tick, exchange.SendDrop); err != nil {
				return err
			} else if !sent {
				c.log.Warn("kraken: output full, dropping tick for " + tick.Pair)
			}
		}
	})
}

// ParseTicker normalizes a ticker data frame. Frames are heterogeneous
// arrays [channelID, data, channelName, pair]; anything object-shaped
// (status, heartbeat) or on another channel yields errNotTicker.
func ParseTicker(message []byte) (domain.MarketTick, error) {
	data, channel, pair, err := splitFrame(message)
	if err != nil {
		return domain.MarketTick{}, err
	}
	if channel != "ticker" || len(data) == 0 {
		return domain.MarketTick{}, errNotTicker
	}

	var ticker tickerData
	if err := json.Unmarshal(data[0], &ticker); err != nil {
		return domain.MarketTick{}, err
	}
	if len(ticker.Bid) == 0 || len(ticker.Ask) == 0 {
		return domain.MarketTick{}, errors.New("kraken: malformed ticker frame")
	}
	bid, ok1 := toFloat(ticker.Bid[0])
	ask, ok2 := toFloat(ticker.Ask[0])
	if !ok1 || !ok2 {
		return domain.MarketTick{}, errors.New("kraken: malformed ticker frame")
	}
	return domain.MarketTick{
		Exchange: domain.Kraken,
		Pair:     pair,
		Bid:      bid,
		Ask:      ask,
		TS:       exchange.NowMillis(),
	}, nil
}

// splitFrame decomposes [channelID, data..., channelName, pair]. Book update
// frames can carry two data objects (a and b split across elements), so the
// middle of the array is returned as a slice.
func splitFrame(message []byte) (data []json.RawMessage, channel, pair string, err error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(message, &elements); err != nil {
		// Object-shaped frames (status, heartbeat) are not data.
		var event eventMessage
		if json.Unmarshal(message, &event) == nil {
			return nil, "", "", errNotTicker
		}
		return nil, "", "", err
	}
	if len(elements) < 4 {
		return nil, "", "", errors.New("kraken: short frame")
	}
	if err := json.Unmarshal(elements[len(elements)-2], &channel); err != nil {
		return nil, "", "", err
	}
	if err := json.Unmarshal(elements[len(elements)-1], &pair); err != nil {
		return nil, "", "", err
	}
	return elements[1 : len(elements)-2], channel, pair, nil
}

// parseRows converts [price, volume, ...] string rows to levels, skipping
// rows that do not parse.
func parseRows(rows [][]string) []domain.OrderBookLevel {
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
