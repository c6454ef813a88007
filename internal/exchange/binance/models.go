package binance

// Ticker messages arrive either as a JSON array of these objects or as a
// single object. Prices are decimal strings on the wire.
type tickerMessage struct {
	Symbol string `json:"s"`
	Bid    string `json:"b"`
	Ask    string `json:"a"`
}

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

// depthMessage is the diff-depth stream payload: b/a carry [price, qty]
// string pairs where qty is the absolute new level size.
type depthMessage struct {
	EventType string     `json:"e"`
	EventTime int64      `json:"E"`
	Symbol    string     `json:"s"`
	FirstID   int64      `json:"U"`
	FinalID   int64      `json:"u"`
	Bids      [][]string `json:"b"`
	Asks      [][]string `json:"a"`
}

// restDepthResponse is the api/v3/depth snapshot used to seed a book.
type restDepthResponse struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}
