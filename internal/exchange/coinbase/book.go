package coinbase

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"crypto-market-pipeline/internal/domain"
	"crypto-market-pipeline/internal/exchange"
	"crypto-market-pipeline/internal/orderbook"
)

// BookStream keeps one live level2 book. The feed's own "snapshot" message
// seeds the keeper, so the REST seed only runs as a fallback when the feed
// sends updates before a snapshot.
type BookStream struct {
	pair   string
	keeper *orderbook.Keeper
	client *http.Client
	log    *zap.Logger
}

func NewBookStream(pair string, keeper *orderbook.Keeper, log *zap.Logger) *BookStream {
	return &BookStream{
		pair:   strings.ToUpper(pair),
		keeper: keeper,
		client: &http.Client{},
		log:    log,
	}
}

func (s *BookStream) Run(ctx context.Context) error {
	return exchange.RunLoop(ctx, s.log, "coinbase book "+s.pair, func(ctx context.Context, connected func()) error {
		conn, _, err := websocket.Dial(ctx, websocketUrl, nil)
		if err != nil {
			return err
		}
		defer conn.CloseNow()
		conn.SetReadLimit(-1)

		request, err := json.Marshal(subscribeRequest{
			Type:       "subscribe",
			ProductIDs: []string{s.pair},
			Channels:   []string{"level2"},
		})
		if err != nil {
			return err
		}
		if err := conn.Write(ctx, websocket.MessageText, request); err != nil {
			return err
		}
		connected()

		seeded := false
		for {
			messageType, message, err := conn.Read(ctx)
			if err != nil {
				return err
			}
			if messageType != websocket.MessageText {
				continue
			}

			var msg feedMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				s.log.Warn("coinbase book: dropping message: " + err.Error())
				continue
			}

			switch msg.Type {
			case "snapshot":
				bids := parseStringLevels(msg.Bids)
				asks := parseStringLevels(msg.Asks)
				if err := s.keeper.ApplySnapshot(ctx, bids, asks, int64(exchange.NowMillis())); err != nil {
					s.log.Warn("coinbase book: snapshot rejected: " + err.Error())
					continue
				}
				seeded = true
			case "l2update":
				if !seeded {
					if err := s.seed(ctx); err != nil {
						return err
					}
					seeded = true
				}
				bids, asks := ParseChanges(msg.Changes)
				if err := s.keeper.ApplyDelta(ctx, bids, asks, int64(exchange.NowMillis())); err != nil {
					s.log.Warn("coinbase book: delta rejected: " + err.Error())
				}
			}
		}
	})
}

// seed replaces the keeper's book with a REST level-2 snapshot.
func (s *BookStream) seed(ctx context.Context) error {
	url := apiBaseUrl + "/products/" + s.pair + "/book?level=2"
	var response restBookResponse
	if err := exchange.GetJSON(ctx, s.client, url, &response); err != nil {
		return err
	}
	bids := parseAnyLevels(response.Bids)
	asks := parseAnyLevels(response.Asks)
	return s.keeper.ApplySnapshot(ctx, bids, asks, int64(exchange.NowMillis()))
}

// ParseChanges splits l2update rows of [side, price, qty] into bid and ask
// deltas. A qty of "0" removes the level downstream.
func ParseChanges(rows [][]string) (bids, asks []domain.OrderBookLevel) {
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		price, err1 := strconv.ParseFloat(row[1], 64)
		qty, err2 := strconv.ParseFloat(row[2], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		level := domain.OrderBookLevel{Price: price, Qty: qty}
		switch row[0] {
		case "buy":
			bids = append(bids, level)
		case "sell":
			asks = append(asks, level)
		}
	}
	return bids, asks
}

// parseAnyLevels handles REST rows of [price, qty, num_orders] where price
// and qty are strings.
func parseAnyLevels(rows [][]any) []domain.OrderBookLevel {
	levels := make([]domain.OrderBookLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		priceStr, ok1 := row[0].(string)
		qtyStr, ok2 := row[1].(string)
		if !ok1 || !ok2 {
			continue
		}
		price, err1 := strconv.ParseFloat(priceStr, 64)
		qty, err2 := strconv.ParseFloat(qtyStr, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		levels = append(levels, domain.OrderBookLevel{Price: price, Qty: qty})
	}
	return levels
}
