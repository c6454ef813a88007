package domain

// Opportunity is a cross-venue arbitrage signal: the pair can be bought on
// BuyOn at BuyPrice and sold on SellOn at SellPrice. Edges are fractions, not
// percentages; NetEdge includes both venues' taker fees.
type Opportunity struct {
	Pair      string  `json:"pair"`
	BuyOn     Venue   `json:"buy_on"`
	SellOn    Venue   `json:"sell_on"`
	BuyPrice  float64 `json:"buy_price"`
	SellPrice float64 `json:"sell_price"`
	GrossEdge float64 `json:"gross_edge"`
	NetEdge   float64 `json:"net_edge"`
	TS        uint64  `json:"ts"`
}
