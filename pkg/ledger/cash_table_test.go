package ledger_test

import (
	"testing"

	"github.com/peepeespace/easy-ledger/pkg/ledger"
)

// TestCashTableDefaults tests lazy creation and the default quote.
func TestCashTableDefaults(t *testing.T) {
	table, err := ledger.NewCashTable(nil, "cash:test:test")
	if err != nil {
		t.Fatalf("new cash table: %v", err)
	}

	if got := table.Balance("strat1", ""); got != 0 {
		t.Errorf("fresh balance: got %v, want 0", got)
	}
	if err := table.UpdateCash("strat1", 1000, ""); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := table.Balance("strat1", ledger.DefaultQuote); got != 1000 {
		t.Errorf("empty quote should map to %s: got %v, want 1000", ledger.DefaultQuote, got)
	}
}

// TestCashTableSetNotDelta tests that UpdateCash overwrites instead of
// incrementing, per quote currency.
func TestCashTableSetNotDelta(t *testing.T) {
	table, err := ledger.NewCashTable(nil, "cash:test:test")
	if err != nil {
		t.Fatalf("new cash table: %v", err)
	}

	if err := table.UpdateCash("strat1", 1000, "USDT"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := table.UpdateCash("strat1", 700, "USDT"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := table.Balance("strat1", "USDT"); got != 700 {
		t.Errorf("set semantics broken: got %v, want 700", got)
	}

	if err := table.UpdateCash("strat1", 5, "KRW"); err != nil {
		t.Fatalf("update: %v", err)
	}
	balances := table.Balances("strat1")
	if len(balances) != 2 || balances["USDT"] != 700 || balances["KRW"] != 5 {
		t.Errorf("wrong balance map: %v", balances)
	}
}

// TestCashTableSnapshotRestore tests that balances survive a round trip
// through the snapshot store.
func TestCashTableSnapshotRestore(t *testing.T) {
	snap := newMemSnap()
	key := "cash:test:test"

	table, err := ledger.NewCashTable(snap, key)
	if err != nil {
		t.Fatalf("new cash table: %v", err)
	}
	if err := table.UpdateCash("strat1", 1234.5, "USDT"); err != nil {
		t.Fatalf("update: %v", err)
	}

	restored, err := ledger.NewCashTable(snap, key)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := restored.Balance("strat1", "USDT"); got != 1234.5 {
		t.Errorf("restored balance: got %v, want 1234.5", got)
	}
}
