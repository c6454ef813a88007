package domain

// MarketTick is the normalized best-bid/best-ask snapshot for one pair on one
// venue. The JSON shape is a stable contract consumed outside this process.
type MarketTick struct {
	Exchange Venue   `json:"exchange"`
	Pair     string  `json:"pair"`
	Bid      float64 `json:"bid"`
	Ask      float64 `json:"ask"`
	TS       uint64  `json:"ts"` // milliseconds since epoch
}
