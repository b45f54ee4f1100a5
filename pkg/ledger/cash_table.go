package ledger

// DefaultQuote is the balance tag used when the caller does not name a
// settlement currency.
const DefaultQuote = "cash"

// CashTable maps strategy name -> quote currency -> balance. Entries are
// created lazily on first access and default to zero. Cash and position
// accounting are deliberately decoupled: fills never touch cash, only an
// explicit UpdateCash does.
type CashTable struct {
	balances map[string]map[string]float64

	snap Snapshotter
	key  string
}

// NewCashTable creates a cash table, restoring a previous snapshot when
// one exists under key.
func NewCashTable(snap Snapshotter, key string) (*CashTable, error) {
	t := &CashTable{
		balances: make(map[string]map[string]float64),
		snap:     snap,
		key:      key,
	}
	if snap != nil {
		ok, err := snap.Load(key, &t.balances)
		if err != nil {
			return nil, err
		}
		if ok && t.balances == nil {
			t.balances = make(map[string]map[string]float64)
		}
	}
	return t, nil
}

// Balances returns the strategy's full per-quote balance map, creating an
// empty one on first access.
func (t *CashTable) Balances(strategyName string) map[string]float64 {
	b, ok := t.balances[strategyName]
	if !ok {
		b = make(map[string]float64)
		t.balances[strategyName] = b
	}
	return b
}

// Balance returns the strategy's balance for one quote currency, zero when
// never set. An empty quote falls back to DefaultQuote.
func (t *CashTable) Balance(strategyName, quote string) float64 {
	if quote == "" {
		quote = DefaultQuote
	}
	return t.Balances(strategyName)[quote]
}

// UpdateCash overwrites the strategy's balance for a quote currency. This
// is a set, not a delta: callers computing deltas must read-modify-write.
func (t *CashTable) UpdateCash(strategyName string, amount float64, quote string) error {
	if quote == "" {
		quote = DefaultQuote
	}
	t.Balances(strategyName)[quote] = amount
	return t.persist()
}

func (t *CashTable) persist() error {
	if t.snap == nil {
		return nil
	}
	return t.snap.Save(t.key, t.balances)
}
