package kraken

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-market-pipeline/internal/domain"
)

func TestParseTickerFrame(t *testing.T) {
	message := []byte(`[340,{"a":["50001.50000",1,"1.000"],"b":["50000.10000",2,"2.500"],"c":["50000.90000","0.1"]},"ticker","XBT/USD"]`)

	tick, err := ParseTicker(message)
	require.NoError(t, err)
	assert.Equal(t, domain.Kraken, tick.Exchange)
	assert.Equal(t, "XBT/USD", tick.Pair)
	assert.Equal(t, 50000.1, tick.Bid)
	assert.Equal(t, 50001.5, tick.Ask)
}

func TestParseTickerIgnoresEventFrames(t *testing.T) {
	for _, message := range []string{
		`{"event":"systemStatus","status":"online","version":"1.9.0"}`,
		`{"event":"heartbeat"}`,
		`{"event":"subscriptionStatus","status":"subscribed","pair":"XBT/USD"}`,
	} {
		_, err := ParseTicker([]byte(message))
		assert.ErrorIs(t, err, errNotTicker)
	}
}

func TestParseTickerIgnoresOtherChannels(t *testing.T) {
	message := []byte(`[0,{"b":[["50000","1","167"]]},"book-25","XBT/USD"]`)
	_, err := ParseTicker(message)
	assert.ErrorIs(t, err, errNotTicker)
}

func TestParseBookFrameSnapshot(t *testing.T) {
	message := []byte(`[0,{"bs":[["50000.0","1.0","167"],["49999.0","2.0","167"]],"as":[["50001.0","1.5","167"]]},"book-25","XBT/USD"]`)

	snapshot, bids, asks, err := ParseBookFrame(message)
	require.NoError(t, err)
	assert.True(t, snapshot)
	require.Len(t, bids, 2)
	assert.Equal(t, domain.OrderBookLevel{Price: 50000, Qty: 1}, bids[0])
	require.Len(t, asks, 1)
	assert.Equal(t, domain.OrderBookLevel{Price: 50001, Qty: 1.5}, asks[0])
}

func TestParseBookFrameUpdateSplitAcrossElements(t *testing.T) {
	// Updates can carry a and b payloads as separate array elements.
	message := []byte(`[0,{"a":[["50002.0","0.5","168"]]},{"b":[["50000.0","0","168"]]},"book-25","XBT/USD"]`)

	snapshot, bids, asks, err := ParseBookFrame(message)
	require.NoError(t, err)
	assert.False(t, snapshot)
	require.Len(t, bids, 1)
	assert.Equal(t, domain.OrderBookLevel{Price: 50000, Qty: 0}, bids[0])
	require.Len(t, asks, 1)
	assert.Equal(t, domain.OrderBookLevel{Price: 50002, Qty: 0.5}, asks[0])
}

func TestParseBookFrameRejectsTickerChannel(t *testing.T) {
	message := []byte(`[340,{"b":["50000.1",2,"2.5"],"a":["50001.5",1,"1.0"]},"ticker","XBT/USD"]`)
	_, _, _, err := ParseBookFrame(message)
	assert.ErrorIs(t, err, errNotTicker)
}

func TestRestDepthDecode(t *testing.T) {
	payload := []byte(`{"error":[],"result":{"XXBTZUSD":{"asks":[["50001.0","1.200",1680000000]],"bids":[["50000.0","2.000",1680000000]]}}}`)

	var response restDepthResponse
	require.NoError(t, json.Unmarshal(payload, &response))
	require.Empty(t, response.Error)

	book, ok := response.Result["XXBTZUSD"]
	require.True(t, ok)
	bids := parseAnyRows(book.Bids)
	require.Len(t, bids, 1)
	assert.Equal(t, domain.OrderBookLevel{Price: 50000, Qty: 2}, bids[0])
	asks := parseAnyRows(book.Asks)
	require.Len(t, asks, 1)
	assert.Equal(t, domain.OrderBookLevel{Price: 50001, Qty: 1.2}, asks[0])
}

func TestParseRowsSkipsMalformed(t *testing.T) {
	rows := [][]string{
		{"50000", "1", "ts"},
		{"oops", "1"},
		{"50001"},
	}
	levels := parseRows(rows)
	require.Len(t, levels, 1)
	assert.Equal(t, 50000.0, levels[0].Price)
}
