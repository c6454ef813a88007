package matching

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-market-pipeline/internal/domain"
	"crypto-market-pipeline/internal/orderbook"
)

func seededBook(t *testing.T) *orderbook.Book {
	t.Helper()
	book := orderbook.New()
	err := book.ApplySnapshot(
		[]domain.OrderBookLevel{{Price: 100, Qty: 1}, {Price: 99, Qty: 2}},
		[]domain.OrderBookLevel{{Price: 101, Qty: 1}, {Price: 102, Qty: 3}},
		1,
	)
	require.NoError(t, err)
	return book
}

func TestExecuteMarketBuyWalksAsksAscending(t *testing.T) {
	book := seededBook(t)

	result, err := ExecuteMarket(book, domain.Buy, 2)
	require.NoError(t, err)

	assert.Equal(t, 2.0, result.Filled)
	assert.Equal(t, 203.0, result.Cost) // 101×1 + 102×1
	require.Len(t, result.Fills, 2)
	assert.Equal(t, 101.0, result.Fills[0].Price)
	assert.Equal(t, 1.0, result.Fills[0].Qty)
	assert.Equal(t, 102.0, result.Fills[1].Price)
	assert.Equal(t, 1.0, result.Fills[1].Qty)

	// The 101 level is gone, 2 units remain at 102.
	assert.Equal(t, []float64{102}, book.Asks.Prices())
	assert.Equal(t, 2.0, book.Asks.LevelQty(102))
	// Bids are untouched.
	assert.Equal(t, []float64{100, 99}, book.Bids.Prices())
}

func TestExecuteMarketSellWalksBidsDescending(t *testing.T) {
	book := seededBook(t)

	result, err := ExecuteMarket(book, domain.Sell, 2)
	require.NoError(t, err)

	assert.Equal(t, 2.0, result.Filled)
	assert.Equal(t, 199.0, result.Cost) // 100×1 + 99×1
	require.Len(t, result.Fills, 2)
	assert.Equal(t, 100.0, result.Fills[0].Price)
	assert.Equal(t, 99.0, result.Fills[1].Price)
	assert.Equal(t, 1.0, book.Bids.LevelQty(99))
}

func TestExecuteMarketPartialFillIsSilent(t *testing.T) {
	book := seededBook(t)

	result, err := ExecuteMarket(book, domain.Buy, 100)
	require.NoError(t, err)

	assert.Equal(t, 4.0, result.Filled) // total ask depth, not an error
	assert.Empty(t, book.Asks.Prices())
}

func TestExecuteMarketCostMatchesFills(t *testing.T) {
	book := seededBook(t)
	result, err := ExecuteMarket(book, domain.Buy, 3.5)
	require.NoError(t, err)

	var sum float64
	for _, fill := range result.Fills {
		sum += fill.Price * fill.Qty
	}
	assert.InDelta(t, result.Cost, sum, 1e-9)
	assert.LessOrEqual(t, result.Filled, 4.0)
}

func TestExecuteMarketEmptyBook(t *testing.T) {
	book := orderbook.New()
	result, err := ExecuteMarket(book, domain.Buy, 1)
	require.NoError(t, err)
	assert.Zero(t, result.Filled)
	assert.Zero(t, result.Cost)
	assert.Empty(t, result.Fills)
}

func TestExecuteMarketRejectsBadQty(t *testing.T) {
	book := seededBook(t)
	for _, qty := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := ExecuteMarket(book, domain.Buy, qty)
		assert.ErrorIs(t, err, ErrInvalidOrder)
	}
}

func TestPlaceLimitRestsOnMatchingSide(t *testing.T) {
	book := orderbook.New()

	buyID, err := PlaceLimit(book, domain.Buy, 100, 1, 10)
	require.NoError(t, err)
	sellID, err := PlaceLimit(book, domain.Sell, 101, 2, 11)
	require.NoError(t, err)

	assert.Equal(t, []float64{100}, book.Bids.Prices())
	assert.Equal(t, []float64{101}, book.Asks.Prices())
	assert.Equal(t, int64(11), book.TS)

	// Ids come from the book's counter, so they are distinct and non-zero.
	assert.NotZero(t, buyID)
	assert.NotZero(t, sellID)
	assert.NotEqual(t, buyID, sellID)
}

func TestPlaceLimitThenMatchPreservesTimePriority(t *testing.T) {
	book := orderbook.New()
	first, err := PlaceLimit(book, domain.Sell, 101, 1, 1)
	require.NoError(t, err)
	second, err := PlaceLimit(book, domain.Sell, 101, 1, 2)
	require.NoError(t, err)

	result, err := ExecuteMarket(book, domain.Buy, 1)
	require.NoError(t, err)
	require.Len(t, result.Fills, 1)
	assert.Equal(t, first, result.Fills[0].OrderID)

	result, err = ExecuteMarket(book, domain.Buy, 1)
	require.NoError(t, err)
	require.Len(t, result.Fills, 1)
	assert.Equal(t, second, result.Fills[0].OrderID)
}

func TestPlaceLimitRejectsBadInput(t *testing.T) {
	book := orderbook.New()
	_, err := PlaceLimit(book, domain.Buy, -1, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidOrder)
	_, err = PlaceLimit(book, domain.Buy, 100, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidOrder)
	_, err = PlaceLimit(book, domain.Buy, math.NaN(), 1, 0)
	assert.ErrorIs(t, err, ErrInvalidOrder)
}
