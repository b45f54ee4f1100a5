package ledger

import "math"

// PositionState tracks whether a position currently holds exposure.
type PositionState string

const (
	PositionStateOpen   PositionState = "open"
	PositionStateClosed PositionState = "closed"
)

// TradeLeg classifies each position update relative to the position's side.
type TradeLeg string

const (
	// TradeLegEnter grows the exposure in the position's direction.
	TradeLegEnter TradeLeg = "ENTER"
	// TradeLegExit reduces the exposure.
	TradeLegExit TradeLeg = "EXIT"
	// TradeLegCancel is a zero-quantity leg used to flush a cancelled order
	// through the position without trading anything.
	TradeLegCancel TradeLeg = "CANCEL"
)

// Position is the net exposure of one strategy in one symbol. Quantity is
// signed (negative = short); AveragePrice is the incremental weighted
// average cost of the remaining units. The three histories run in parallel:
// one price, one quantity, and one genuine-fill flag per leg.
type Position struct {
	State        PositionState `json:"position_state"`
	StrategyName string        `json:"strategy_name"`
	Symbol       string        `json:"symbol"`
	OpenDate     string        `json:"position_open_date,omitempty"`

	Side           Side    `json:"side,omitempty"`
	AveragePrice   float64 `json:"average_price"`
	Quantity       float64 `json:"quantity"`
	PositionAmount float64 `json:"position_amount"`
	Leverage       float64 `json:"leverage"`

	PriceHistory    []float64  `json:"price_history,omitempty"`
	QuantityHistory []float64  `json:"quantity_history,omitempty"`
	TradeHistory    []TradeLeg `json:"trade_history,omitempty"`
	FillHistory     []bool     `json:"fill_history,omitempty"`
}

// NewPosition creates a closed placeholder position holding no exposure.
func NewPosition(strategyName, symbol string) *Position {
	return &Position{
		State:        PositionStateClosed,
		StrategyName: strategyName,
		Symbol:       symbol,
	}
}

// UpdateAveragePrice returns the incremental weighted-average cost after
// trading quantity units at price against an existing (prevAvg, prevQty)
// exposure. Entering more of a position blends the traded price in;
// reducing it blends prevAvg itself, so an exit never moves the cost basis
// of the remaining units. A zero resulting quantity yields zero.
func UpdateAveragePrice(prevAvg, prevQty, price, quantity float64) float64 {
	blend := price
	if quantity < 0 {
		blend = prevAvg
	}
	denom := prevQty + quantity
	if denom == 0 {
		return 0
	}
	return (prevAvg*prevQty + blend*quantity) / denom
}

// OpenPosition initializes a fresh exposure. Leverage defaults to 1 when
// positionAmount is zero: unit leverage, not an error. A zero-quantity open
// (cancel against a flat book) resets straight back to closed.
func (p *Position) OpenPosition(side Side, price, quantity, positionAmount float64, orderState OrderState) {
	p.State = PositionStateOpen
	p.OpenDate = openDate()
	p.Side = side
	p.AveragePrice = price
	p.Quantity = quantity
	p.PositionAmount = positionAmount
	if positionAmount == 0 {
		p.Leverage = 1
	} else {
		p.Leverage = math.Abs(price * quantity / positionAmount)
	}

	p.PriceHistory = []float64{price}
	p.QuantityHistory = []float64{quantity}
	p.TradeHistory = []TradeLeg{TradeLegEnter}
	p.FillHistory = []bool{orderState == OrderStateFilled}

	p.ClosePosition()
}

// UpdatePosition applies one signed leg to an open position. The average
// price is recomputed before the quantity moves. positionAmount, when
// given, is the caller's signed delta; otherwise the notional price*quantity
// is used, sign-flipped for the sell side. The leg lands in all three
// histories and the position closes itself when the net quantity reaches
// zero.
func (p *Position) UpdatePosition(price, quantity float64, positionAmount *float64, orderState OrderState) {
	p.PriceHistory = append(p.PriceHistory, price)
	p.QuantityHistory = append(p.QuantityHistory, quantity)
	p.FillHistory = append(p.FillHistory, orderState == OrderStateFilled)

	p.AveragePrice = UpdateAveragePrice(p.AveragePrice, p.Quantity, price, quantity)
	p.Quantity += quantity

	if positionAmount != nil {
		p.PositionAmount += *positionAmount
	} else {
		delta := price * quantity
		if p.Side == SideSell {
			delta = -delta
		}
		p.PositionAmount += delta
	}

	p.TradeHistory = append(p.TradeHistory, p.classify(quantity))

	if p.PositionAmount == 0 {
		p.Leverage = 0
	} else {
		p.Leverage = math.Abs(p.AveragePrice * p.Quantity / p.PositionAmount)
	}

	p.ClosePosition()
}

// ClosePosition resets the position once its net quantity returns to zero
// (or it was already closed): all scalars and histories are cleared so the
// next non-zero trade re-opens it cleanly.
func (p *Position) ClosePosition() {
	flat := p.Quantity == 0 && len(p.QuantityHistory) != 0
	if !flat && p.State != PositionStateClosed {
		return
	}
	p.State = PositionStateClosed
	p.OpenDate = ""
	p.Side = ""
	p.AveragePrice = 0
	p.Quantity = 0
	p.PositionAmount = 0
	p.Leverage = 0
	p.PriceHistory = nil
	p.QuantityHistory = nil
	p.TradeHistory = nil
	p.FillHistory = nil
}

func (p *Position) classify(quantity float64) TradeLeg {
	switch {
	case quantity == 0:
		return TradeLegCancel
	case (p.Side == SideBuy && quantity > 0) || (p.Side == SideSell && quantity < 0):
		return TradeLegEnter
	default:
		return TradeLegExit
	}
}

// EnterCount returns how many legs grew the exposure.
func (p *Position) EnterCount() int {
	return p.countLegs(TradeLegEnter)
}

// ExitCount returns how many legs reduced the exposure.
func (p *Position) ExitCount() int {
	return p.countLegs(TradeLegExit)
}

func (p *Position) countLegs(leg TradeLeg) int {
	n := 0
	for _, l := range p.TradeHistory {
		if l == leg {
			n++
		}
	}
	return n
}

// FillCount returns how many legs were genuine venue fills, as opposed to
// cancellation zeroing: "traded N times" versus "N of those were fills".
func (p *Position) FillCount() int {
	n := 0
	for _, f := range p.FillHistory {
		if f {
			n++
		}
	}
	return n
}
