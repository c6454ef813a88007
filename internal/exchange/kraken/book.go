package kraken

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"crypto-market-pipeline/internal/domain"
	"crypto-market-pipeline/internal/exchange"
	"crypto-market-pipeline/internal/orderbook"
)

// BookStream keeps one live book from the "book" channel. The channel's own
// snapshot frame (bs/as) seeds the keeper; a REST Depth snapshot is the
// fallback when updates arrive first.
type BookStream struct {
	pair   string
	depth  int
	keeper *orderbook.Keeper
	client *http.Client
	log    *zap.Logger
}

func NewBookStream(pair string, depth int, keeper *orderbook.Keeper, log *zap.Logger) *BookStream {
	if depth <= 0 {
		depth = 25
	}
	return &BookStream{
		pair:   pair,
		depth:  depth,
		keeper: keeper,
		client: &http.Client{},
		log:    log,
	}
}

func (s *BookStream) Run(ctx context.Context) error {
	return exchange.RunLoop(ctx, s.log, "kraken book "+s.pair, func(ctx context.Context, connected func()) error {
		conn, _, err := websocket.Dial(ctx, websocketUrl, nil)
		if err != nil {
			return err
		}
		defer conn.CloseNow()
		conn.SetReadLimit(-1)

		request, err := json.Marshal(subscribeRequest{
			Event:        "subscribe",
			Pair:         []string{s.pair},
			Subscription: subscription{Name: "book", Depth: s.depth},
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

			snapshot, bids, asks, err := ParseBookFrame(message)
			if err != nil {
				if !errors.Is(err, errNotTicker) {
					s.log.Warn("kraken book: dropping frame: " + err.Error())
				}
				continue
			}

			ts := int64(exchange.NowMillis())
			if snapshot {
				if err := s.keeper.ApplySnapshot(ctx, bids, asks, ts); err != nil {
					s.log.Warn("kraken book: snapshot rejected: " + err.Error())
					continue
				}
				seeded = true
				continue
			}
			if !seeded {
				if err := s.seed(ctx); err != nil {
					return err
				}
				seeded = true
			}
			if err := s.keeper.ApplyDelta(ctx, bids, asks, ts); err != nil {
				s.log.Warn("kraken book: delta rejected: " + err.Error())
			}
		}
	})
}

// ParseBookFrame decodes a book channel frame. Update frames may split bid
// and ask payloads across two data elements; both are merged here.
func ParseBookFrame(message []byte) (snapshot bool, bids, asks []domain.OrderBookLevel, err error) {
	data, channel, _, err := splitFrame(message)
	if err != nil {
		return false, nil, nil, err
	}
	if !strings.HasPrefix(channel, "book") {
		return false, nil, nil, errNotTicker
	}

	for _, element := range data {
		var payload bookData
		if err := json.Unmarshal(element, &payload); err != nil {
			return false, nil, nil, err
		}
		if len(payload.SnapshotBids) > 0 || len(payload.SnapshotAsks) > 0 {
			snapshot = true
			bids = append(bids, parseRows(payload.SnapshotBids)...)
			asks = append(asks, parseRows(payload.SnapshotAsks)...)
			continue
		}
		bids = append(bids, parseRows(payload.Bids)...)
		asks = append(asks, parseRows(payload.Asks)...)
	}
	return snapshot, bids, asks, nil
}

// seed replaces the keeper's book with a REST Depth snapshot. The result map
// is keyed by Kraken's internal pair name, so the single entry is taken
// whatever its key.
func (s *BookStream) seed(ctx context.Context) error {
	endpoint := apiBaseUrl + "/0/public/Depth?pair=" + url.QueryEscape(strings.ReplaceAll(s.pair, "/", ""))
	var response restDepthResponse
	if err := exchange.GetJSON(ctx, s.client, endpoint, &response); err != nil {
		return err
	}
	if len(response.Error) > 0 {
		return errors.New("kraken book: " + strings.Join(response.Error, "; "))
	}

	for _, book := range response.Result {
		bids := parseAnyRows(book.Bids)
		asks := parseAnyRows(book.Asks)
		return s.keeper.ApplySnapshot(ctx, bids, asks, int64(exchange.NowMillis()))
	}
	return errors.New("kraken book: empty depth result")
}

// parseAnyRows handles REST rows where price and volume arrive as strings
// alongside a numeric timestamp.
func parseAnyRows(rows [][]any) []domain.OrderBookLevel {
	levels := make([]domain.OrderBookLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		price, ok1 := toFloat(row[0])
		qty, ok2 := toFloat(row[1])
		if !ok1 || !ok2 {
			continue
		}
		levels = append(levels, domain.OrderBookLevel{Price: price, Qty: qty})
	}
	return levels
}

func toFloat(v any) (float64, bool) {
	switch value := v.(type) {
	case string:
		f, err := strconv.ParseFloat(value, 64)
		return f, err == nil
	case float64:
		return value, true
	}
	return 0, false
}
