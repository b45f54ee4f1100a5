package api_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/peepeespace/easy-ledger/pkg/api"
	"github.com/peepeespace/easy-ledger/pkg/client"
)

// TestServerBroadcastsLedgerEvents tests that a mutation pushes an event
// to subscribers of that ledger's channel and not to others.
func TestServerBroadcastsLedgerEvents(t *testing.T) {
	ts := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := client.Subscribe(ctx, wsURL, [2]string{"owner1", "main"})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	t.Cleanup(func() {
		sub.Close()
	})

	// give the server a beat to process the subscription frame
	time.Sleep(100 * time.Millisecond)

	// a mutation on another ledger must not reach this subscriber
	post(t, ts, "owner2", "main", "update_cash", api.UpdateCashParams{
		StrategyName: "strat1",
		Amount:       1,
		Quote:        "USDT",
	})
	post(t, ts, "owner1", "main", "update_cash", api.UpdateCashParams{
		StrategyName: "strat1",
		Amount:       1000,
		Quote:        "USDT",
	})

	event, err := sub.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if event.Type != "ledger_update" {
		t.Errorf("wrong event type: got %s, want ledger_update", event.Type)
	}
	if event.Owner != "owner1" || event.Name != "main" {
		t.Errorf("event for wrong ledger: %s/%s", event.Owner, event.Name)
	}
	if event.Op != "update_cash" {
		t.Errorf("wrong op: got %s, want update_cash", event.Op)
	}
}

// TestServerReadOpsDoNotBroadcast tests that queries stay silent on the
// event channel.
func TestServerReadOpsDoNotBroadcast(t *testing.T) {
	ts := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := client.Subscribe(ctx, wsURL, [2]string{"owner1", "main"})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	t.Cleanup(func() {
		sub.Close()
	})
	time.Sleep(100 * time.Millisecond)

	post(t, ts, "owner1", "main", "get_cash", api.GetCashParams{StrategyName: "strat1"})
	// a mutation afterwards is the fence: if the query had broadcast, it
	// would arrive first
	post(t, ts, "owner1", "main", "update_cash", api.UpdateCashParams{
		StrategyName: "strat1",
		Amount:       1,
		Quote:        "USDT",
	})

	event, err := sub.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if event.Op != "update_cash" {
		t.Errorf("unexpected first event: %s", event.Op)
	}
}
