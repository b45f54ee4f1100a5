package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/peepeespace/easy-ledger/pkg/ledger"
)

// PebbleStore persists ledger table snapshots in a Pebble database.
// Values are JSON-encoded table snapshots written synchronously, so a
// crash after any acknowledged mutation loses nothing.
//
// Key schema:
//
//	cash:<owner>:<name>   → cash table snapshot
//	orders:<owner>:<name> → order table snapshot
//	pos:<owner>:<name>    → position table snapshot
//
// The owner/name segments come from pkg/ledger; the store treats keys
// as opaque.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

// Save JSON-encodes v and writes it under key with a durable sync.
func (s *PebbleStore) Save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", key, err)
	}
	if err := s.db.Set([]byte(key), data, pebble.Sync); err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}

// Load decodes the value under key into v. Returns (false, nil) when the
// key has never been written.
func (s *PebbleStore) Load(key string, v any) (bool, error) {
	data, closer, err := s.db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get snapshot %s: %w", key, err)
	}
	defer closer.Close()

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal snapshot %s: %w", key, err)
	}
	return true, nil
}

// Delete removes the value under key, if any.
func (s *PebbleStore) Delete(key string) error {
	if err := s.db.Delete([]byte(key), pebble.Sync); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}

// ListKeys returns every stored key with the given prefix, in order.
func (s *PebbleStore) ListKeys(prefix string) ([]string, error) {
	p := []byte(prefix)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: p,
		UpperBound: keyUpperBound(p),
	})
	if err != nil {
		return nil, fmt.Errorf("iterate prefix %s: %w", prefix, err)
	}
	defer iter.Close()

	var keys []string
	for iter.First(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	return keys, nil
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

var _ ledger.Snapshotter = (*PebbleStore)(nil)
