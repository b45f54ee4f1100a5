package ledger_test

import (
	"encoding/json"
	"testing"

	"github.com/peepeespace/easy-ledger/pkg/ledger"
)

// memSnap is an in-memory Snapshotter that round-trips through JSON the
// same way a real store would.
type memSnap struct {
	data map[string][]byte
}

func newMemSnap() *memSnap {
	return &memSnap{data: make(map[string][]byte)}
}

func (m *memSnap) Save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = data
	return nil
}

func (m *memSnap) Load(key string, v any) (bool, error) {
	data, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, v)
}

func newTestOrderTable(t *testing.T) *ledger.OrderTable {
	table, err := ledger.NewOrderTable(nil, "orders:test:test")
	if err != nil {
		t.Fatalf("new order table: %v", err)
	}
	return table
}

// TestOrderTableFIFOMatching tests that identical orders are matched to
// acknowledgements oldest first.
func TestOrderTableFIFOMatching(t *testing.T) {
	table := newTestOrderTable(t)

	first := ledger.NewOrder("strat1", "BTC-USDT", 100, 1, ledger.SideBuy, ledger.OrderTypeLimit, "USDT", "")
	second := ledger.NewOrder("strat2", "BTC-USDT", 100, 1, ledger.SideBuy, ledger.OrderTypeLimit, "USDT", "")
	if first.Hash != second.Hash {
		t.Fatalf("identical orders should share a hash: %s vs %s", first.Hash, second.Hash)
	}

	if err := table.AddOrder(first); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := table.AddOrder(second); err != nil {
		t.Fatalf("add: %v", err)
	}
	if table.PendingLen(first.Hash) != 2 {
		t.Fatalf("wrong pending count: got %d, want 2", table.PendingLen(first.Hash))
	}

	got, err := table.MakeOpenOrder(first.Hash, "ord-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got.StrategyName != "strat1" {
		t.Errorf("wrong match order: got %s, want strat1", got.StrategyName)
	}

	got, err = table.MakeOpenOrder(first.Hash, "ord-2")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got.StrategyName != "strat2" {
		t.Errorf("wrong match order: got %s, want strat2", got.StrategyName)
	}
	if table.PendingLen(first.Hash) != 0 {
		t.Errorf("bucket not drained: %d pending", table.PendingLen(first.Hash))
	}
}

// TestOrderTableRegisterUnknownHash tests that an acknowledgement without
// a pending order is a silent miss, not an error.
func TestOrderTableRegisterUnknownHash(t *testing.T) {
	table := newTestOrderTable(t)

	order, err := table.MakeOpenOrder("deadbeef", "ord-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if order != nil {
		t.Errorf("expected no match, got order for %s", order.StrategyName)
	}
}

// TestOrderTableFill tests partial and completing fills, including the
// eviction of fully filled orders.
func TestOrderTableFill(t *testing.T) {
	table := newTestOrderTable(t)

	o := ledger.NewOrder("strat1", "BTC-USDT", 100, 3, ledger.SideBuy, ledger.OrderTypeLimit, "USDT", "")
	if err := table.AddOrder(o); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := table.MakeOpenOrder(o.Hash, "ord-1"); err != nil {
		t.Fatalf("open: %v", err)
	}

	got, err := table.FillOrder("strat1", "ord-1", 1)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if got == nil {
		t.Fatal("expected matched order")
	}
	if got.State != ledger.OrderStateOpen || got.OrdersRemaining != 2 {
		t.Errorf("after partial fill: state=%s remaining=%v", got.State, got.OrdersRemaining)
	}

	got, err = table.FillOrder("strat1", "ord-1", 2)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if got.State != ledger.OrderStateFilled {
		t.Errorf("wrong state: got %s, want %s", got.State, ledger.OrderStateFilled)
	}
	if _, ok := table.GetOrder("strat1", "ord-1"); ok {
		t.Error("filled order should be evicted")
	}
}

// TestOrderTableFillNoEffect tests that unknown orders and overfills are
// silent no-ops leaving state intact.
func TestOrderTableFillNoEffect(t *testing.T) {
	table := newTestOrderTable(t)

	o := ledger.NewOrder("strat1", "BTC-USDT", 100, 3, ledger.SideBuy, ledger.OrderTypeLimit, "USDT", "")
	if err := table.AddOrder(o); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := table.MakeOpenOrder(o.Hash, "ord-1"); err != nil {
		t.Fatalf("open: %v", err)
	}

	// unknown order number
	got, err := table.FillOrder("strat1", "no-such-order", 1)
	if err != nil || got != nil {
		t.Errorf("unknown order: got (%v, %v), want (nil, nil)", got, err)
	}

	// wrong strategy
	got, err = table.FillOrder("strat2", "ord-1", 1)
	if err != nil || got != nil {
		t.Errorf("wrong strategy: got (%v, %v), want (nil, nil)", got, err)
	}

	// overfill
	got, err = table.FillOrder("strat1", "ord-1", 10)
	if err != nil || got != nil {
		t.Errorf("overfill: got (%v, %v), want (nil, nil)", got, err)
	}
	stored, ok := table.GetOrder("strat1", "ord-1")
	if !ok {
		t.Fatal("order should still be indexed")
	}
	if stored.OrdersRemaining != 3 {
		t.Errorf("no-effect fill mutated order: remaining=%v", stored.OrdersRemaining)
	}
}

// TestOrderTableRemoveOrder tests cancellation by order number with and
// without a strategy filter.
func TestOrderTableRemoveOrder(t *testing.T) {
	table := newTestOrderTable(t)

	o := ledger.NewOrder("strat1", "BTC-USDT", 100, 3, ledger.SideBuy, ledger.OrderTypeLimit, "USDT", "")
	if err := table.AddOrder(o); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := table.MakeOpenOrder(o.Hash, "ord-1"); err != nil {
		t.Fatalf("open: %v", err)
	}

	// non-matching strategy filter cancels nothing
	cancelled, err := table.RemoveOrder("ord-1", "strat2")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(cancelled) != 0 {
		t.Errorf("expected no cancellations, got %d", len(cancelled))
	}

	cancelled, err = table.RemoveOrder("ord-1", "strat1")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(cancelled) != 1 {
		t.Fatalf("wrong cancelled count: got %d, want 1", len(cancelled))
	}
	if cancelled[0].State != ledger.OrderStateClosed {
		t.Errorf("wrong state: got %s, want %s", cancelled[0].State, ledger.OrderStateClosed)
	}
	if table.Len() != 0 {
		t.Errorf("cancelled order should be evicted, %d remain", table.Len())
	}
}

// TestOrderTableCleanOrders tests state-based eviction including pending
// bucket cleanup for init orders.
func TestOrderTableCleanOrders(t *testing.T) {
	table := newTestOrderTable(t)

	stale := ledger.NewOrder("strat1", "BTC-USDT", 100, 1, ledger.SideBuy, ledger.OrderTypeLimit, "USDT", "")
	live := ledger.NewOrder("strat1", "ETH-USDT", 50, 1, ledger.SideBuy, ledger.OrderTypeLimit, "USDT", "")
	if err := table.AddOrder(stale); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := table.AddOrder(live); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := table.MakeOpenOrder(live.Hash, "ord-1"); err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := table.CleanOrders(ledger.OrderStateInit, ""); err != nil {
		t.Fatalf("clean: %v", err)
	}
	if table.Len() != 1 {
		t.Errorf("wrong table size: got %d, want 1", table.Len())
	}
	if table.PendingLen(stale.Hash) != 0 {
		t.Error("pending bucket of cleaned init order should be dropped")
	}
	if _, ok := table.GetOrder("strat1", "ord-1"); !ok {
		t.Error("open order should survive cleaning init orders")
	}
}

// TestOrderTableSnapshotRestore tests that a table restored from its
// snapshot resumes FIFO matching and fills where the old one stopped.
func TestOrderTableSnapshotRestore(t *testing.T) {
	snap := newMemSnap()
	key := "orders:test:test"

	table, err := ledger.NewOrderTable(snap, key)
	if err != nil {
		t.Fatalf("new order table: %v", err)
	}

	waiting := ledger.NewOrder("strat1", "BTC-USDT", 100, 1, ledger.SideBuy, ledger.OrderTypeLimit, "USDT", "")
	open := ledger.NewOrder("strat1", "ETH-USDT", 50, 2, ledger.SideBuy, ledger.OrderTypeLimit, "USDT", "")
	if err := table.AddOrder(waiting); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := table.AddOrder(open); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := table.MakeOpenOrder(open.Hash, "ord-1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := table.FillOrder("strat1", "ord-1", 1); err != nil {
		t.Fatalf("fill: %v", err)
	}

	restored, err := ledger.NewOrderTable(snap, key)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Len() != table.Len() {
		t.Errorf("restored size: got %d, want %d", restored.Len(), table.Len())
	}
	if restored.PendingLen(waiting.Hash) != 1 {
		t.Errorf("restored pending: got %d, want 1", restored.PendingLen(waiting.Hash))
	}

	got, ok := restored.GetOrder("strat1", "ord-1")
	if !ok {
		t.Fatal("open order lost in restore")
	}
	if got.OrdersRemaining != 1 {
		t.Errorf("restored remaining: got %v, want 1", got.OrdersRemaining)
	}

	// the restored pending entry must still be matchable
	reopened, err := restored.MakeOpenOrder(waiting.Hash, "ord-2")
	if err != nil {
		t.Fatalf("open after restore: %v", err)
	}
	if reopened == nil || reopened.StrategyName != "strat1" {
		t.Error("restored pending order not matchable")
	}
}
