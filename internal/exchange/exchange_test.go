package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-market-pipeline/internal/domain"
)

func TestBackoffSequence(t *testing.T) {
	backoff := DefaultBackoff()
	expected := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second, // capped
		30 * time.Second,
	}
	for i, want := range expected {
		assert.Equal(t, want, backoff.Next(i+1), "attempt %d", i+1)
	}
}

func TestBackoffZeroValuesFallBackToDefaults(t *testing.T) {
	var backoff Backoff
	assert.Equal(t, time.Second, backoff.Next(1))
	assert.Equal(t, 30*time.Second, backoff.Next(100))
}

func TestEmitDropPolicyNeverBlocks(t *testing.T) {
	out := make(chan domain.MarketTick, 1)
	ctx := context.Background()

	sent, err := Emit(ctx, out, domain.MarketTick{Pair: "A"}, SendDrop)
	require.NoError(t, err)
	assert.True(t, sent)

	// Channel is full now: the tick is lost, not queued.
	sent, err = Emit(ctx, out, domain.MarketTick{Pair: "B"}, SendDrop)
	require.NoError(t, err)
	assert.False(t, sent)

	got := <-out
	assert.Equal(t, "A", got.Pair)
}

func TestEmitBlockPolicyHonorsContext(t *testing.T) {
	out := make(chan domain.MarketTick) // unbuffered, nobody reading
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	sent, err := Emit(ctx, out, domain.MarketTick{}, SendBlock)
	assert.False(t, sent)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
