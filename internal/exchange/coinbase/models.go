package coinbase

type subscribeRequest struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

// feedMessage covers every typed feed payload we care about. The Type field
// discriminates: "ticker" carries best bid/ask, "snapshot" carries the full
// level2 book, "l2update" carries changes of [side, price, qty].
type feedMessage struct {
	Type      string     `json:"type"`
	ProductID string     `json:"product_id"`
	BestBid   string     `json:"best_bid"`
	BestAsk   string     `json:"best_ask"`
	Bids      [][]string `json:"bids"`
	Asks      [][]string `json:"asks"`
	Changes   [][]string `json:"changes"`
}

// restBookResponse is /products/<pair>/book: rows are [price, qty, extra...].
type restBookResponse struct {
	Bids [][]any `json:"bids"`
	Asks [][]any `json:"asks"`
}
