package ledger

import (
	"fmt"
	"strings"
)

// Snapshotter persists table snapshots. Tables call Save after every
// mutation when a Snapshotter is wired in, and Load once at construction.
// The core is agnostic to the backing store; pkg/storage provides a
// Pebble-backed implementation and a nil Snapshotter disables persistence.
type Snapshotter interface {
	// Save stores a snapshot under key, replacing any previous one.
	Save(key string, v any) error

	// Load reads the snapshot stored under key into v. The boolean is
	// false when no snapshot exists.
	Load(key string, v any) (bool, error)
}

// Snapshot key schema: one key per table per ledger, prefix-based so a
// backing KV store can range-scan all state of one kind.
const (
	// KeyPrefixCash is exported for callers enumerating persisted ledgers:
	// every ledger has exactly one cash snapshot, so scanning this prefix
	// yields each ledger once.
	KeyPrefixCash = "cash:"

	prefixOrders    = "orders:"
	prefixPositions = "pos:"
)

func cashKey(owner, name string) string {
	return fmt.Sprintf("%s%s:%s", KeyPrefixCash, owner, name)
}

// SplitCashKey recovers (owner, name) from a cash snapshot key. Owners and
// names containing ':' are not representable and were never written.
func SplitCashKey(key string) (owner, name string, ok bool) {
	rest, found := strings.CutPrefix(key, KeyPrefixCash)
	if !found {
		return "", "", false
	}
	owner, name, found = strings.Cut(rest, ":")
	if !found || owner == "" || name == "" {
		return "", "", false
	}
	return owner, name, true
}

func ordersKey(owner, name string) string {
	return fmt.Sprintf("%s%s:%s", prefixOrders, owner, name)
}

func positionsKey(owner, name string) string {
	return fmt.Sprintf("%s%s:%s", prefixPositions, owner, name)
}
