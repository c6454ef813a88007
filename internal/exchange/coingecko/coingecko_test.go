package coingecko

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crypto-market-pipeline/internal/domain"
)

func TestSplitPair(t *testing.T) {
	id, vs, ok := splitPair("Bitcoin/USD")
	require.True(t, ok)
	assert.Equal(t, "bitcoin", id)
	assert.Equal(t, "usd", vs)

	for _, pair := range []string{"bitcoin", "/usd", "bitcoin/", ""} {
		_, _, ok := splitPair(pair)
		assert.False(t, ok, pair)
	}
}

func TestPollSetsBidAndAskToPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "ids=bitcoin")
		json.NewEncoder(w).Encode(map[string]map[string]float64{
			"bitcoin": {"usd": 50000.5},
		})
	}))
	defer server.Close()

	connector := NewConnector([]string{"bitcoin/usd", "ethereum/usd"}, time.Second, zap.NewNop())
	ticks, err := connector.pollFrom(context.Background(), server.URL)
	require.NoError(t, err)

	// ethereum is missing from the response, so only one tick comes back.
	require.Len(t, ticks, 1)
	assert.Equal(t, domain.CoinGecko, ticks[0].Exchange)
	assert.Equal(t, "bitcoin/usd", ticks[0].Pair)
	assert.Equal(t, 50000.5, ticks[0].Bid)
	assert.Equal(t, ticks[0].Bid, ticks[0].Ask)
}

func TestPollRejectsEmptyPairSet(t *testing.T) {
	connector := NewConnector([]string{"garbage"}, time.Second, zap.NewNop())
	_, err := connector.poll(context.Background())
	assert.Error(t, err)
}
