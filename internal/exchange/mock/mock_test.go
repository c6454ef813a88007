package mock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crypto-market-pipeline/internal/domain"
)

func TestMockTicksStayNearBaseMid(t *testing.T) {
	connector := NewConnector([]string{"MOCK/USD"}, zap.NewNop())
	out := make(chan domain.MarketTick, 8)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go connector.Run(ctx, out)

	tick := <-out
	cancel()

	assert.Equal(t, domain.Mock, tick.Exchange)
	assert.Equal(t, "MOCK/USD", tick.Pair)
	assert.Less(t, tick.Bid, tick.Ask)
	assert.InDelta(t, baseMid, (tick.Bid+tick.Ask)/2, midJitter+1e-9)
	assert.InDelta(t, tick.Ask-tick.Bid, (tick.Bid+tick.Ask)/2*spreadRatio, 1e-9)
}

func TestMockSnapshotShape(t *testing.T) {
	connector := NewConnector(nil, zap.NewNop())
	snapshot := connector.Snapshot("MOCK/USD")

	require.Len(t, snapshot.Bids, 2)
	require.Len(t, snapshot.Asks, 2)
	assert.Greater(t, snapshot.Bids[0].Price, snapshot.Bids[1].Price)
	assert.Less(t, snapshot.Asks[0].Price, snapshot.Asks[1].Price)
	assert.Less(t, snapshot.Bids[0].Price, snapshot.Asks[0].Price)
	assert.NotZero(t, snapshot.TS)
}
