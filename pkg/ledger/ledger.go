package ledger

// Ledger composes the cash, order, and position tables of one bookkeeping
// unit, identified by (owner, name). All mutations from the outside world
// go through this procedural surface; the ledger records what happened and
// never talks to an exchange itself.
//
// A Ledger is not safe for concurrent use. The Manager serializes all
// requests against one Ledger instance; distinct ledgers are fully
// independent.
type Ledger struct {
	Owner string
	Name  string

	cash      *CashTable
	orders    *OrderTable
	positions *PositionTable
}

// New creates the ledger for (owner, name), restoring all three tables
// from snap when snapshots exist. snap may be nil to keep the ledger
// purely in memory.
func New(owner, name string, snap Snapshotter) (*Ledger, error) {
	cash, err := NewCashTable(snap, cashKey(owner, name))
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderTable(snap, ordersKey(owner, name))
	if err != nil {
		return nil, err
	}
	positions, err := NewPositionTable(snap, positionsKey(owner, name))
	if err != nil {
		return nil, err
	}
	return &Ledger{
		Owner:     owner,
		Name:      name,
		cash:      cash,
		orders:    orders,
		positions: positions,
	}, nil
}

// OrderHash returns the content fingerprint an order with these parameters
// would carry, without creating one.
func (l *Ledger) OrderHash(symbol string, price, quantity float64, side Side, orderType OrderType, quote, meta string) string {
	return MakeOrderHash(symbol, price, quantity, side, orderType, quote, meta)
}

// GetCash returns the strategy's balance in one quote currency.
func (l *Ledger) GetCash(strategyName, quote string) float64 {
	return l.cash.Balance(strategyName, quote)
}

// GetCashAll returns the strategy's full per-quote balance map.
func (l *Ledger) GetCashAll(strategyName string) map[string]float64 {
	return l.cash.Balances(strategyName)
}

// UpdateCash sets (not increments) the strategy's balance for a quote.
func (l *Ledger) UpdateCash(strategyName string, amount float64, quote string) error {
	return l.cash.UpdateCash(strategyName, amount, quote)
}

// GetOrders returns the strategy's orders in the given states; all
// non-terminal-cleaned states (init, open, filled) when states is empty.
func (l *Ledger) GetOrders(strategyName string, states []OrderState) []*Order {
	if len(states) == 0 {
		states = []OrderState{OrderStateInit, OrderStateOpen, OrderStateFilled}
	}
	return l.orders.GetOrders(strategyName, states)
}

// GetOrder returns the strategy's order with the given exchange order
// number, skipping init orders which have none yet.
func (l *Ledger) GetOrder(strategyName, orderNumber string) (*Order, bool) {
	return l.orders.GetOrder(strategyName, orderNumber)
}

// CleanOrders evicts orders in the given state, optionally per strategy.
func (l *Ledger) CleanOrders(state OrderState, strategyName string) error {
	return l.orders.CleanOrders(state, strategyName)
}

// GetPositions returns the strategy's symbol -> Position map.
func (l *Ledger) GetPositions(strategyName string) map[string]*Position {
	return l.positions.GetPositions(strategyName)
}

// GetPosition returns the strategy's position in one symbol.
func (l *Ledger) GetPosition(strategyName, symbol string) *Position {
	return l.positions.GetPosition(strategyName, symbol)
}

// UpdatePosition applies a position leg directly, bypassing the order
// lifecycle. Exposed for callers reconciling externally-settled trades.
func (l *Ledger) UpdatePosition(strategyName, symbol string, side Side, price, quantity float64, positionAmount *float64, orderState OrderState) error {
	return l.positions.UpdatePosition(strategyName, symbol, side, price, quantity, positionAmount, orderState)
}

// InitOrder records a strategy's order request and returns its fingerprint,
// under which the order waits for the exchange acknowledgement.
func (l *Ledger) InitOrder(strategyName, symbol string, price, quantity float64, side Side, orderType OrderType, quote, meta string) (string, error) {
	order := NewOrder(strategyName, symbol, price, quantity, side, orderType, quote, meta)
	if err := l.orders.AddOrder(order); err != nil {
		return "", err
	}
	return order.Hash, nil
}

// RegisterOrder matches an exchange acknowledgement (order number + hash)
// to the oldest pending order with that fingerprint and opens it. Returns
// the owning strategy's name, or false when nothing was waiting.
func (l *Ledger) RegisterOrder(orderNumber, orderHash string) (string, bool, error) {
	order, err := l.orders.MakeOpenOrder(orderHash, orderNumber)
	if err != nil {
		return "", false, err
	}
	if order == nil {
		return "", false, nil
	}
	return order.StrategyName, true, nil
}

// CancelOrder closes every matched open order with the given number and
// zeroes the corresponding position legs. Returns how many orders were
// cancelled; zero is a recoverable no-op.
func (l *Ledger) CancelOrder(strategyName, orderNumber string) (int, error) {
	cancelled, err := l.orders.RemoveOrder(orderNumber, strategyName)
	if err != nil {
		return 0, err
	}
	zero := 0.0
	for _, order := range cancelled {
		err := l.positions.UpdatePosition(order.StrategyName, order.Symbol, order.Side, 0, 0, &zero, OrderStateClosed)
		if err != nil {
			return len(cancelled), err
		}
	}
	return len(cancelled), nil
}

// FillOrder applies a fill to the matching open order and rolls it into
// the strategy's position: sell fills decrement the signed net quantity.
// An unknown order or an overfilling quantity leaves the ledger untouched.
// Returns the filled order, or nil when the fill had no effect.
func (l *Ledger) FillOrder(strategyName, orderNumber string, price, quantity float64, positionAmount *float64) (*Order, error) {
	order, err := l.orders.FillOrder(strategyName, orderNumber, quantity)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, nil
	}
	posQty := quantity
	if order.Side == SideSell {
		posQty = -quantity
	}
	err = l.positions.UpdatePosition(strategyName, order.Symbol, order.Side, price, posQty, positionAmount, OrderStateFilled)
	if err != nil {
		return order, err
	}
	return order, nil
}
