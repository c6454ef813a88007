package domain

// OrderBookLevel is one price level of a snapshot or delta. Deltas carry the
// absolute resting quantity at the price; qty <= 0 means the level is gone.
type OrderBookLevel struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
}

// BookSnapshot is a full view of one venue book, used at the HTTP boundary.
type BookSnapshot struct {
	Exchange Venue            `json:"exchange"`
	Pair     string           `json:"pair"`
	Bids     []OrderBookLevel `json:"bids"`
	Asks     []OrderBookLevel `json:"asks"`
	TS       int64            `json:"ts"`
}
