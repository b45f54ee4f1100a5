// Package ledger implements the bookkeeping core: order lifecycle tracking,
// per-strategy cash balances, and net positions with weighted-average cost.
// It records what happened; placing real orders is the caller's job.
package ledger

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrOverfill          = errors.New("fill quantity exceeds remaining")
	ErrInvalidFill       = errors.New("fill quantity must be positive")
	ErrInvalidTransition = errors.New("invalid order state transition")
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType distinguishes limit and market orders.
type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

// OrderState tracks the lifecycle of an order.
//
//	init --> open --> filled
//	              \-> closed (cancel)
//
// filled and closed are terminal.
type OrderState string

const (
	OrderStateInit   OrderState = "init"
	OrderStateOpen   OrderState = "open"
	OrderStateClosed OrderState = "closed"
	OrderStateFilled OrderState = "filled"
)

// Terminal reports whether no further transition is allowed from the state.
func (s OrderState) Terminal() bool {
	return s == OrderStateFilled || s == OrderStateClosed
}

// OrderFill is one entry of an order's fill history.
type OrderFill struct {
	Timestamp string  `json:"timestamp"`
	Quantity  float64 `json:"quantity"`
}

// Order is the identity and lifecycle record of a single order request.
// Quantity is always stored as an absolute value; direction lives in Side.
// OrderNumber is the exchange-assigned number, set exactly once at open.
type Order struct {
	State OrderState `json:"order_state"`

	InitTime   string `json:"init_time,omitempty"`
	OpenTime   string `json:"open_time,omitempty"`
	ClosedTime string `json:"closed_time,omitempty"`
	FilledTime string `json:"filled_time,omitempty"`

	StrategyName string    `json:"strategy_name"`
	Symbol       string    `json:"symbol"`
	Quantity     float64   `json:"quantity"`
	Price        float64   `json:"price"`
	Side         Side      `json:"side"`
	OrderType    OrderType `json:"order_type"`
	Quote        string    `json:"quote,omitempty"`
	Meta         string    `json:"meta,omitempty"`

	Hash string `json:"hash"`

	// Per-state identifiers, each assigned exactly once when the order
	// enters the corresponding state.
	InitID   string `json:"init_id,omitempty"`
	OpenID   string `json:"open_id,omitempty"`
	ClosedID string `json:"closed_id,omitempty"`
	FilledID string `json:"filled_id,omitempty"`

	OrderNumber     string      `json:"order_number,omitempty"`
	OrdersFilled    float64     `json:"orders_filled"`
	OrdersRemaining float64     `json:"orders_remaining"`
	FillHistory     []OrderFill `json:"fill_history,omitempty"`
}

// NewOrder creates an order in the init state. The content fingerprint is
// computed immediately so the order can later be matched against the
// exchange acknowledgement.
func NewOrder(strategyName, symbol string, price, quantity float64, side Side, orderType OrderType, quote, meta string) *Order {
	o := &Order{
		State:        OrderStateInit,
		InitTime:     timestamp(),
		StrategyName: strategyName,
		Symbol:       symbol,
		Quantity:     math.Abs(quantity),
		Price:        price,
		Side:         side,
		OrderType:    orderType,
		Quote:        quote,
		Meta:         meta,
		Hash:         MakeOrderHash(symbol, price, quantity, side, orderType, quote, meta),
	}
	o.InitID = o.snapshotID()
	return o
}

// MakeOrderHash returns the deterministic content fingerprint used to
// correlate a not-yet-acknowledged order with its exchange acknowledgement.
// Quantity is taken as an absolute value: a buy and a sell of the same
// instrument differ by Side, not by sign.
func MakeOrderHash(symbol string, price, quantity float64, side Side, orderType OrderType, quote, meta string) string {
	s := fmt.Sprintf("%s %v %v %s %s %s %s", symbol, price, math.Abs(quantity), side, orderType, quote, meta)
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ID returns the identifier for the order's current state. If that state's
// identifier has not been assigned yet it falls back to a content hash of
// the whole snapshot; the fallback changes whenever any field changes and
// must not be used for equality across mutations.
func (o *Order) ID() string {
	var id string
	switch o.State {
	case OrderStateInit:
		id = o.InitID
	case OrderStateOpen:
		id = o.OpenID
	case OrderStateClosed:
		id = o.ClosedID
	case OrderStateFilled:
		id = o.FilledID
	}
	if id == "" {
		return o.snapshotID()
	}
	return id
}

// MakeOpen transitions init -> open once the exchange has acknowledged the
// order and assigned it an order number. Fill tracking starts here.
func (o *Order) MakeOpen(orderNumber string) error {
	if o.State != OrderStateInit {
		return fmt.Errorf("open from %s: %w", o.State, ErrInvalidTransition)
	}
	o.State = OrderStateOpen
	o.OpenTime = timestamp()
	o.OrderNumber = orderNumber
	o.OrdersFilled = 0
	o.OrdersRemaining = o.Quantity
	o.FillHistory = nil
	o.OpenID = o.snapshotID()
	return nil
}

// MakeClosed transitions open -> closed (cancellation).
func (o *Order) MakeClosed() error {
	if o.State != OrderStateOpen {
		return fmt.Errorf("close from %s: %w", o.State, ErrInvalidTransition)
	}
	o.State = OrderStateClosed
	o.ClosedTime = timestamp()
	o.ClosedID = o.snapshotID()
	return nil
}

// MakeFilled transitions open -> filled after the last fill.
func (o *Order) MakeFilled() error {
	if o.State != OrderStateOpen {
		return fmt.Errorf("fill transition from %s: %w", o.State, ErrInvalidTransition)
	}
	o.State = OrderStateFilled
	o.FilledTime = timestamp()
	o.FilledID = o.snapshotID()
	return nil
}

// Fill applies a partial or complete fill and reports whether the order is
// now fully filled. It never transitions the order itself; the caller
// decides whether to invoke MakeFilled. Cancellation reuses the same
// bookkeeping without the filled transition, hence the two-step protocol.
func (o *Order) Fill(quantity float64) (bool, error) {
	if o.State != OrderStateOpen {
		return false, fmt.Errorf("fill in state %s: %w", o.State, ErrInvalidTransition)
	}
	if quantity <= 0 {
		return false, ErrInvalidFill
	}
	if quantity > o.OrdersRemaining {
		return false, ErrOverfill
	}
	o.OrdersFilled += quantity
	o.OrdersRemaining -= quantity
	o.FillHistory = append(o.FillHistory, OrderFill{Timestamp: timestamp(), Quantity: quantity})
	return o.Filled(), nil
}

// Filled reports whether nothing remains to fill.
func (o *Order) Filled() bool {
	return o.OrdersRemaining == 0
}

// snapshotID hashes the full order snapshot. Used once per state transition
// to mint that state's identifier, and as the ID() fallback.
func (o *Order) snapshotID() string {
	data, err := json.Marshal(o)
	if err != nil {
		// Order contains only plain scalars and slices; Marshal cannot fail.
		panic(err)
	}
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// timestamp returns the current wall clock as a millisecond-precision
// sortable string, e.g. "20260829153005123".
func timestamp() string {
	now := time.Now()
	return now.Format("20060102150405") + fmt.Sprintf("%03d", now.Nanosecond()/int(time.Millisecond))
}

// openDate returns the current date as "YYYYMMDD".
func openDate() string {
	return time.Now().Format("20060102")
}
