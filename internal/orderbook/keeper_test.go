package orderbook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crypto-market-pipeline/internal/domain"
)

func startKeeper(t *testing.T) (*Keeper, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	keeper := NewKeeper(domain.Binance, "BTCUSDT", zap.NewNop())
	go keeper.Run(ctx)
	t.Cleanup(cancel)
	return keeper, ctx
}

func TestKeeperSnapshotAndQuote(t *testing.T) {
	keeper, ctx := startKeeper(t)

	err := keeper.ApplySnapshot(ctx, levels(100, 2), levels(101, 3), 7)
	require.NoError(t, err)

	quote, err := keeper.Quote(ctx)
	require.NoError(t, err)
	assert.True(t, quote.HasBid)
	assert.True(t, quote.HasAsk)
	assert.Equal(t, 100.0, quote.BestBid)
	assert.Equal(t, 101.0, quote.BestAsk)
	assert.Equal(t, 100.5, quote.Mid)
	assert.Equal(t, 2.0, quote.BidDepth)
	assert.Equal(t, 3.0, quote.AskDepth)
	assert.Equal(t, int64(7), quote.TS)
}

func TestKeeperDeltaThroughActor(t *testing.T) {
	keeper, ctx := startKeeper(t)
	require.NoError(t, keeper.ApplySnapshot(ctx, levels(100, 1), levels(101, 1), 1))
	require.NoError(t, keeper.ApplyDelta(ctx, levels(100, 0), nil, 2))

	quote, err := keeper.Quote(ctx)
	require.NoError(t, err)
	assert.False(t, quote.HasBid)
	assert.True(t, quote.HasAsk)
}

func TestKeeperRejectsInvalidDelta(t *testing.T) {
	keeper, ctx := startKeeper(t)
	err := keeper.ApplyDelta(ctx, levels(-5, 1), nil, 1)
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestKeeperExportsSnapshot(t *testing.T) {
	keeper, ctx := startKeeper(t)
	require.NoError(t, keeper.ApplySnapshot(ctx, levels(100, 1, 99, 2), levels(101, 1), 5))

	snapshot, err := keeper.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Binance, snapshot.Exchange)
	assert.Equal(t, "BTCUSDT", snapshot.Pair)
	assert.Equal(t, levels(100, 1, 99, 2), snapshot.Bids)
	assert.Equal(t, levels(101, 1), snapshot.Asks)
}

func TestKeeperStoppedReturnsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	keeper := NewKeeper(domain.Mock, "X", zap.NewNop())
	done := make(chan struct{})
	go func() {
		keeper.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	err := keeper.ApplySnapshot(context.Background(), levels(100, 1), nil, 1)
	assert.ErrorIs(t, err, ErrKeeperStopped)
}

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry()
	keeper := NewKeeper(domain.Kraken, "XBT/USD", zap.NewNop())
	registry.Register(keeper)

	found, ok := registry.Lookup(domain.Kraken, "XBT/USD")
	require.True(t, ok)
	assert.Same(t, keeper, found)

	_, ok = registry.Lookup(domain.Binance, "XBT/USD")
	assert.False(t, ok)
	assert.Len(t, registry.All(), 1)
}
