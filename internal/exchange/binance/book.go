package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"crypto-market-pipeline/internal/exchange"
	"crypto-market-pipeline/internal/orderbook"
)

// BookStream maintains one live depth book: a REST snapshot seeds the keeper,
// then diff-depth updates are applied as deltas. A gap in update ids forces a
// resubscribe, which rebuilds the book from a fresh snapshot.
type BookStream struct {
	pair   string
	depth  int
	keeper *orderbook.Keeper
	client *http.Client
	log    *zap.Logger
}

func NewBookStream(pair string, depth int, keeper *orderbook.Keeper, log *zap.Logger) *BookStream {
	if depth <= 0 {
		depth = 100
	}
	return &BookStream{
		pair:   strings.ToUpper(pair),
		depth:  depth,
		keeper: keeper,
		client: &http.Client{},
		log:    log,
	}
}

// Run keeps the book live until ctx is cancelled.
func (s *BookStream) Run(ctx context.Context) error {
	return exchange.RunLoop(ctx, s.log, "binance book "+s.pair, func(ctx context.Context, connected func()) error {
		conn, _, err := websocket.Dial(ctx, websocketUrl, nil)
		if err != nil {
			return err
		}
		defer conn.CloseNow()
		conn.SetReadLimit(-1)

		stream := strings.ToLower(s.pair) + "@depth@100ms"
		request, err := json.Marshal(subscribeRequest{Method: "SUBSCRIBE", Params: []string{stream}, ID: 2})
		if err != nil {
			return err
		}
		if err := conn.Write(ctx, websocket.MessageText, request); err != nil {
			return err
		}

		lastUpdateID, err := s.seed(ctx)
		if err != nil {
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

			var update depthMessage
			if err := json.Unmarshal(message, &update); err != nil {
				s.log.Warn("binance book: dropping message: " + err.Error())
				continue
			}
			if update.EventType != "depthUpdate" {
				continue
			}
			if update.FinalID <= lastUpdateID {
				continue // already covered by the snapshot
			}
			if update.FirstID > lastUpdateID+1 {
				return fmt.Errorf("binance book %s: update gap (have %d, got %d)", s.pair, lastUpdateID, update.FirstID)
			}
			lastUpdateID = update.FinalID

			bids := ParseLevels(update.Bids)
			asks := ParseLevels(update.Asks)
			if err := s.keeper.ApplyDelta(ctx, bids, asks, update.EventTime); err != nil {
				s.log.Warn("binance book: delta rejected: " + err.Error())
			}
		}
	})
}

// seed replaces the keeper's book with a REST depth snapshot.
func (s *BookStream) seed(ctx context.Context) (int64, error) {
	url := fmt.Sprintf("%s/api/v3/depth?symbol=%s&limit=%d", apiBaseUrl, s.pair, s.depth)
	var response restDepthResponse
	if err := exchange.GetJSON(ctx, s.client, url, &response); err != nil {
		return 0, err
	}

	bids := ParseLevels(response.Bids)
	asks := ParseLevels(response.Asks)
	ts := int64(exchange.NowMillis())
	if err := s.keeper.ApplySnapshot(ctx, bids, asks, ts); err != nil {
		return 0, err
	}
	return response.LastUpdateID, nil
}
