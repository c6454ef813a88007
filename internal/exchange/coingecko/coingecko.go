package coingecko

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"crypto-market-pipeline/internal/domain"
	"crypto-market-pipeline/internal/exchange"
)

const apiBaseUrl = "https://api.coingecko.com/api/v3"

const defaultPollInterval = 10 * time.Second

// Connector polls simple/price and emits one tick per pair per interval.
// CoinGecko quotes a single price, so bid and ask are both set to it. A
// poller tolerates stalling, so the output policy is block.
type Connector struct {
	pairs    []string
	interval time.Duration
	client   *http.Client
	log      *zap.Logger
}

// NewConnector takes pairs in "bitcoin/usd" form: the CoinGecko coin id and
// the vs currency joined by a slash.
func NewConnector(pairs []string, interval time.Duration, log *zap.Logger) *Connector {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Connector{pairs: pairs, interval: interval, client: &http.Client{}, log: log}
}

func (c *Connector) Venue() domain.Venue { return domain.CoinGecko }

func (c *Connector) Run(ctx context.Context, out chan<- domain.MarketTick) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		ticks, err := c.poll(ctx)
		if err != nil {
			c.log.Warn("coingecko: poll failed: " + err.Error())
		}
		for _, tick := range ticks {
			if _, err := exchange.Emit(ctx, out, tick, exchange.SendBlock); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Connector) poll(ctx context.Context) ([]domain.MarketTick, error) {
	return c.pollFrom(ctx, apiBaseUrl)
}

func (c *Connector) pollFrom(ctx context.Context, baseUrl string) ([]domain.MarketTick, error) {
	ids := make([]string, 0, len(c.pairs))
	currencies := make([]string, 0, len(c.pairs))
	for _, pair := range c.pairs {
		id, vs, ok := splitPair(pair)
		if !ok {
			continue
		}
		ids = append(ids, id)
		currencies = append(currencies, vs)
	}
	if len(ids) == 0 {
		return nil, errors.New("coingecko: no valid pairs")
	}

	endpoint := baseUrl + "/simple/price?ids=" + url.QueryEscape(strings.Join(ids, ",")) +
		"&vs_currencies=" + url.QueryEscape(strings.Join(currencies, ","))
	var prices map[string]map[string]float64
	if err := exchange.GetJSON(ctx, c.client, endpoint, &prices); err != nil {
		return nil, err
	}

	ts := exchange.NowMillis()
	ticks := make([]domain.MarketTick, 0, len(c.pairs))
	for _, pair := range c.pairs {
		id, vs, ok := splitPair(pair)
		if !ok {
			continue
		}
		price, ok := prices[id][vs]
		if !ok || price <= 0 {
			continue
		}
		ticks = append(ticks, domain.MarketTick{
			Exchange: domain.CoinGecko,
			Pair:     pair,
			Bid:      price,
			Ask:      price,
			TS:       ts,
		})
	}
	return ticks, nil
}

func splitPair(pair string) (id, vs string, ok bool) {
	id, vs, found := strings.Cut(pair, "/")
	if !found || id == "" || vs == "" {
		return "", "", false
	}
	return strings.ToLower(id), strings.ToLower(vs), true
}
