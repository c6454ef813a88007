package kraken

type subscription struct {
	Name  string `json:"name"`
	Depth int    `json:"depth,omitempty"`
}

type subscribeRequest struct {
	Event        string       `json:"event"`
	Pair         []string     `json:"pair"`
	Subscription subscription `json:"subscription"`
}

// eventMessage is any object-shaped frame (systemStatus, subscriptionStatus,
// heartbeat). Data frames are arrays instead, handled separately.
type eventMessage struct {
	Event string `json:"event"`
}

// tickerData is the payload inside a ticker frame. The b and a arrays carry
// the best price first as a string, followed by numeric lot volumes.
type tickerData struct {
	Bid []any `json:"b"`
	Ask []any `json:"a"`
}

// bookData is the payload inside a book frame: bs/as on the snapshot, b/a on
// incremental updates. Rows are [price, volume, timestamp] strings.
type bookData struct {
	SnapshotBids [][]string `json:"bs"`
	SnapshotAsks [][]string `json:"as"`
	Bids         [][]string `json:"b"`
	Asks         [][]string `json:"a"`
}

// restDepthResponse is 0/public/Depth: result is keyed by Kraken's internal
// pair name, which does not always match the requested one. Rows mix string
// prices with numeric timestamps.
type restDepthResponse struct {
	Error  []string `json:"error"`
	Result map[string]struct {
		Bids [][]any `json:"bids"`
		Asks [][]any `json:"asks"`
	} `json:"result"`
}
