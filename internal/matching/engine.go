package matching

import (
	"errors"
	"fmt"
	"math"

	"crypto-market-pipeline/internal/domain"
	"crypto-market-pipeline/internal/orderbook"
)

// ErrInvalidOrder rejects market/limit requests with non-finite or
// non-positive parameters before they touch the book.
var ErrInvalidOrder = errors.New("matching: invalid order")

// Result is the outcome of one simulated market order. Filled may be less
// than requested: running out of depth is a normal partial fill, never an
// error.
type Result struct {
	Filled float64          `json:"filled"`
	Cost   float64          `json:"cost"`
	Fills  []orderbook.Fill `json:"fills"`
}

// ExecuteMarket simulates a market order against the book and mutates it:
// consumed liquidity is really gone. A buy walks ask levels from the lowest
// price up, a sell walks bid levels from the highest price down, draining
// each level FIFO until the requested quantity is met or the side is empty.
func ExecuteMarket(book *orderbook.Book, side domain.Side, qty float64) (Result, error) {
	if math.IsNaN(qty) || math.IsInf(qty, 0) || qty <= 0 {
		return Result{}, fmt.Errorf("%w: qty %v", ErrInvalidOrder, qty)
	}

	takeFrom := book.Asks
	if side == domain.Sell {
		takeFrom = book.Bids
	}

	var result Result
	remaining := qty
	for remaining > orderbook.QtyEpsilon {
		price, ok := takeFrom.BestPrice()
		if !ok {
			break
		}
		filled, cost, fills := takeFrom.ConsumeAtPrice(price, remaining)
		result.Filled += filled
		result.Cost += cost
		result.Fills = append(result.Fills, fills...)
		remaining -= filled
	}
	return result, nil
}

// PlaceLimit rests a new order on the matching side: bids for a buy, asks
// for a sell. The order id always comes from the book's own sequence.
func PlaceLimit(book *orderbook.Book, side domain.Side, price, qty float64, ts int64) (uint64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, fmt.Errorf("%w: price %v", ErrInvalidOrder, price)
	}
	if math.IsNaN(qty) || math.IsInf(qty, 0) || qty <= 0 {
		return 0, fmt.Errorf("%w: qty %v", ErrInvalidOrder, qty)
	}

	restOn := book.Bids
	if side == domain.Sell {
		restOn = book.Asks
	}
	id := book.NextID()
	restOn.AddLimit(id, price, qty, ts)
	book.TS = ts
	return id, nil
}
