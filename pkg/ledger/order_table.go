package ledger

// OrderTable owns every order of one ledger from creation until eviction.
//
// Two indices cover the same order set. orders is the primary map keyed by
// init ID and holds an order for its whole indexed lifetime. pending groups
// orders by content fingerprint while they wait for an exchange
// acknowledgement: several strategies may submit textually identical orders,
// so each bucket is a FIFO of init-state orders sharing one hash.
type OrderTable struct {
	orders  map[string]*Order   // init_id -> order
	pending map[string][]*Order // hash -> unregistered orders, newest first

	snap Snapshotter
	key  string
}

// NewOrderTable creates an order table, restoring a previous snapshot when
// the Snapshotter holds one under key. A nil Snapshotter disables
// persistence entirely.
func NewOrderTable(snap Snapshotter, key string) (*OrderTable, error) {
	t := &OrderTable{
		orders:  make(map[string]*Order),
		pending: make(map[string][]*Order),
		snap:    snap,
		key:     key,
	}
	if snap != nil {
		var s orderTableSnapshot
		ok, err := snap.Load(key, &s)
		if err != nil {
			return nil, err
		}
		if ok {
			t.restore(s)
		}
	}
	return t, nil
}

// AddOrder admits an init-state order: it is indexed under its init ID and
// prepended to its hash bucket. Prepending keeps the bucket newest-first so
// registration can pop the oldest order from the back.
func (t *OrderTable) AddOrder(order *Order) error {
	if _, ok := t.orders[order.InitID]; !ok {
		t.orders[order.InitID] = order
	}
	t.pending[order.Hash] = append([]*Order{order}, t.pending[order.Hash]...)
	return t.persist()
}

// RegisterOrder matches an exchange acknowledgement to the oldest pending
// order with the given fingerprint, on the assumption that the exchange
// acknowledges orders in submission order. The drained bucket is removed.
// Returns false when no order is waiting under that hash; an ack without a
// pending order is a recoverable caller error, not ledger corruption.
func (t *OrderTable) RegisterOrder(orderHash string) (*Order, bool, error) {
	bucket, ok := t.pending[orderHash]
	if !ok || len(bucket) == 0 {
		return nil, false, nil
	}
	order := bucket[len(bucket)-1]
	bucket = bucket[:len(bucket)-1]
	if len(bucket) == 0 {
		delete(t.pending, orderHash)
	} else {
		t.pending[orderHash] = bucket
	}
	return order, true, t.persist()
}

// MakeOpenOrder registers the oldest pending order for the hash and
// transitions it to open with the exchange-assigned order number. Returns
// (nil, nil) when no order matched.
func (t *OrderTable) MakeOpenOrder(orderHash, orderNumber string) (*Order, error) {
	order, ok, err := t.RegisterOrder(orderHash)
	if err != nil || !ok {
		return nil, err
	}
	if err := order.MakeOpen(orderNumber); err != nil {
		return nil, err
	}
	t.orders[order.InitID] = order
	return order, t.persist()
}

// FillOrder locates the open order matching both strategy name and order
// number (order numbers are only unique per strategy/venue pairing) and
// applies the fill. A fully filled order transitions to filled and is
// evicted. Returns (nil, nil) when no order matches or the fill would
// exceed the remaining quantity: both are recoverable request errors
// reported to the caller as "no effect".
func (t *OrderTable) FillOrder(strategyName, orderNumber string, quantity float64) (*Order, error) {
	for initID, order := range t.orders {
		if order.StrategyName != strategyName ||
			order.State != OrderStateOpen ||
			order.OrderNumber != orderNumber {
			continue
		}
		filled, err := order.Fill(quantity)
		if err != nil {
			return nil, nil
		}
		if filled {
			if err := order.MakeFilled(); err != nil {
				return nil, err
			}
			delete(t.orders, initID)
		}
		return order, t.persist()
	}
	return nil, nil
}

// RemoveOrder cancels every non-init order matching the order number (and
// strategy name, when given): each is transitioned to closed and evicted.
// The cancelled set is returned so the caller can zero the corresponding
// position legs.
func (t *OrderTable) RemoveOrder(orderNumber, strategyName string) ([]*Order, error) {
	var cancelled []*Order
	for initID, order := range t.orders {
		if order.State == OrderStateInit {
			// init orders have no order number yet
			continue
		}
		if order.OrderNumber != orderNumber {
			continue
		}
		if strategyName != "" && order.StrategyName != strategyName {
			continue
		}
		if err := order.MakeClosed(); err != nil {
			continue
		}
		delete(t.orders, initID)
		cancelled = append(cancelled, order)
	}
	return cancelled, t.persist()
}

// CleanOrders evicts every order in the given state (and strategy, when
// given). Housekeeping for long-terminal orders the caller no longer needs
// indexed; pending buckets of evicted init orders are dropped too.
func (t *OrderTable) CleanOrders(state OrderState, strategyName string) error {
	for initID, order := range t.orders {
		if order.State != state {
			continue
		}
		if strategyName != "" && order.StrategyName != strategyName {
			continue
		}
		delete(t.orders, initID)
		if order.State == OrderStateInit {
			t.dropPending(order)
		}
	}
	return t.persist()
}

// GetOrders returns the strategy's orders in any of the given states.
func (t *OrderTable) GetOrders(strategyName string, states []OrderState) []*Order {
	var orders []*Order
	for _, order := range t.orders {
		if order.StrategyName != strategyName {
			continue
		}
		for _, s := range states {
			if order.State == s {
				orders = append(orders, order)
				break
			}
		}
	}
	return orders
}

// GetOrder returns the strategy's order with the given order number.
// Init orders are skipped since they carry no order number yet.
func (t *OrderTable) GetOrder(strategyName, orderNumber string) (*Order, bool) {
	for _, order := range t.orders {
		if order.State == OrderStateInit {
			continue
		}
		if order.StrategyName == strategyName && order.OrderNumber == orderNumber {
			return order, true
		}
	}
	return nil, false
}

// Len returns the number of indexed orders.
func (t *OrderTable) Len() int {
	return len(t.orders)
}

// PendingLen returns the number of unregistered orders under a hash.
func (t *OrderTable) PendingLen(orderHash string) int {
	return len(t.pending[orderHash])
}

func (t *OrderTable) dropPending(order *Order) {
	bucket := t.pending[order.Hash]
	for i, o := range bucket {
		if o == order {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(t.pending, order.Hash)
	} else {
		t.pending[order.Hash] = bucket
	}
}

// orderTableSnapshot is the persisted form of the table. The pending index
// stores init IDs only; restore resolves them back to the shared Order
// values so both indices keep pointing at the same objects.
type orderTableSnapshot struct {
	Orders  []*Order            `json:"orders"`
	Pending map[string][]string `json:"pending,omitempty"`
}

func (t *OrderTable) snapshot() orderTableSnapshot {
	s := orderTableSnapshot{Pending: make(map[string][]string, len(t.pending))}
	for _, order := range t.orders {
		s.Orders = append(s.Orders, order)
	}
	for hash, bucket := range t.pending {
		ids := make([]string, len(bucket))
		for i, o := range bucket {
			ids[i] = o.InitID
		}
		s.Pending[hash] = ids
	}
	return s
}

func (t *OrderTable) restore(s orderTableSnapshot) {
	for _, order := range s.Orders {
		t.orders[order.InitID] = order
	}
	for hash, ids := range s.Pending {
		bucket := make([]*Order, 0, len(ids))
		for _, id := range ids {
			if order, ok := t.orders[id]; ok {
				bucket = append(bucket, order)
			}
		}
		if len(bucket) > 0 {
			t.pending[hash] = bucket
		}
	}
}

func (t *OrderTable) persist() error {
	if t.snap == nil {
		return nil
	}
	return t.snap.Save(t.key, t.snapshot())
}
