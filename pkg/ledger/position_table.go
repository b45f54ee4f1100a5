package ledger

// PositionTable maps strategy name -> symbol -> Position for one ledger.
// Positions are created lazily as closed placeholders, so the routing in
// UpdatePosition can treat "no position yet" and "position closed out"
// identically.
type PositionTable struct {
	positions map[string]map[string]*Position

	snap Snapshotter
	key  string
}

// NewPositionTable creates a position table, restoring a previous snapshot
// when one exists under key.
func NewPositionTable(snap Snapshotter, key string) (*PositionTable, error) {
	t := &PositionTable{
		positions: make(map[string]map[string]*Position),
		snap:      snap,
		key:       key,
	}
	if snap != nil {
		ok, err := snap.Load(key, &t.positions)
		if err != nil {
			return nil, err
		}
		if ok && t.positions == nil {
			t.positions = make(map[string]map[string]*Position)
		}
	}
	return t, nil
}

// GetPositions returns the strategy's symbol -> Position map, creating an
// empty one on first access.
func (t *PositionTable) GetPositions(strategyName string) map[string]*Position {
	positions, ok := t.positions[strategyName]
	if !ok {
		positions = make(map[string]*Position)
		t.positions[strategyName] = positions
	}
	return positions
}

// GetPosition returns the strategy's position in a symbol, lazily creating
// a closed placeholder.
func (t *PositionTable) GetPosition(strategyName, symbol string) *Position {
	positions := t.GetPositions(strategyName)
	position, ok := positions[symbol]
	if !ok {
		position = NewPosition(strategyName, symbol)
		positions[symbol] = position
	}
	return position
}

// UpdatePosition is the single entry point for every fill and cancellation:
// a closed position re-opens through OpenPosition, an open one takes the
// leg through UpdatePosition.
func (t *PositionTable) UpdatePosition(strategyName, symbol string, side Side, price, quantity float64, positionAmount *float64, orderState OrderState) error {
	position := t.GetPosition(strategyName, symbol)
	if position.State == PositionStateClosed {
		amount := 0.0
		if positionAmount != nil {
			amount = *positionAmount
		}
		position.OpenPosition(side, price, quantity, amount, orderState)
	} else {
		position.UpdatePosition(price, quantity, positionAmount, orderState)
	}
	return t.persist()
}

func (t *PositionTable) persist() error {
	if t.snap == nil {
		return nil
	}
	return t.snap.Save(t.key, t.positions)
}
