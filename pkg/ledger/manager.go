package ledger

import (
	"fmt"
	"sync"
)

// Manager owns every live Ledger, keyed by (owner, name), and serializes
// access to each one. Ledgers are created lazily on first use and restored
// from the shared Snapshotter when one is configured.
type Manager struct {
	mu      sync.Mutex
	snap    Snapshotter
	entries map[string]*managedLedger
}

type managedLedger struct {
	mu     sync.Mutex
	ledger *Ledger
}

// NewManager creates an empty manager. snap may be nil for in-memory use.
func NewManager(snap Snapshotter) *Manager {
	return &Manager{
		snap:    snap,
		entries: make(map[string]*managedLedger),
	}
}

func managerKey(owner, name string) string {
	return fmt.Sprintf("%s:%s", owner, name)
}

func (m *Manager) entry(owner, name string) (*managedLedger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := managerKey(owner, name)
	if e, ok := m.entries[key]; ok {
		return e, nil
	}
	l, err := New(owner, name, m.snap)
	if err != nil {
		return nil, err
	}
	e := &managedLedger{ledger: l}
	m.entries[key] = e
	return e, nil
}

// Do runs fn against the (owner, name) ledger while holding its lock.
// Requests for the same ledger run one at a time; distinct ledgers do
// not contend.
func (m *Manager) Do(owner, name string, fn func(*Ledger) error) error {
	e, err := m.entry(owner, name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.ledger)
}

// Len reports how many ledgers have been materialized.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
