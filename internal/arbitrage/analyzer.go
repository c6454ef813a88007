package arbitrage

import (
	"crypto-market-pipeline/internal/domain"
)

// VenueQuote is the freshest top-of-book seen for one venue.
type VenueQuote struct {
	Venue domain.Venue `json:"venue"`
	Bid   float64      `json:"bid"`
	Ask   float64      `json:"ask"`
	TS    uint64       `json:"ts"`
}

// Analyzer detects cross-venue dislocations: buy where the ask is low, sell
// where the bid is high. Fees are fractional taker fees per venue and enter
// multiplicatively, so the net edge is what remains after paying both sides.
type Analyzer struct {
	fees       map[domain.Venue]float64
	minNetEdge float64
}

func NewAnalyzer(fees map[domain.Venue]float64, minNetEdge float64) *Analyzer {
	return &Analyzer{fees: fees, minNetEdge: minNetEdge}
}

// Analyze compares every ordered venue pairing and returns the opportunities
// whose net edge clears the threshold. Quotes with a non-positive side are
// ignored.
func (a *Analyzer) Analyze(pair string, quotes []VenueQuote) []domain.Opportunity {
	var opportunities []domain.Opportunity
	for _, buy := range quotes {
		if buy.Ask <= 0 {
			continue
		}
		for _, sell := range quotes {
			if sell.Venue == buy.Venue || sell.Bid <= 0 {
				continue
			}
			gross := (sell.Bid - buy.Ask) / buy.Ask
			net := (1+gross)*(1-a.fees[buy.Venue])*(1-a.fees[sell.Venue]) - 1
			if net < a.minNetEdge {
				continue
			}
			ts := buy.TS
			if sell.TS > ts {
				ts = sell.TS
			}
			opportunities = append(opportunities, domain.Opportunity{
				Pair:      pair,
				BuyOn:     buy.Venue,
				SellOn:    sell.Venue,
				BuyPrice:  buy.Ask,
				SellPrice: sell.Bid,
				GrossEdge: gross,
				NetEdge:   net,
				TS:        ts,
			})
		}
	}
	return opportunities
}
