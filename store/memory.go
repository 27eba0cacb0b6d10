package store

import (
	"sync"

	"github.com/tidwall/btree"
)

// Memory is an in-memory Store. Updates work on a copy-on-write clone of
// the tree that replaces the committed tree only on success.
type Memory struct {
	mu   sync.RWMutex
	tree *btree.Map[string, []byte]
}

// NewMemory returns an empty in-memory store
func NewMemory() *Memory {
	return &Memory{tree: new(btree.Map[string, []byte])}
}

// View runs fn against the committed state
func (m *Memory) View(fn func(txn Txn) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memoryTxn{tree: m.tree, readOnly: true})
}

// Update runs fn against a private copy and commits it if fn succeeds
func (m *Memory) Update(fn func(txn Txn) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	working := m.tree.Copy()
	if err := fn(&memoryTxn{tree: working}); err != nil {
		return err
	}
	m.tree = working
	return nil
}

// Close is a no-op
func (m *Memory) Close() error {
	return nil
}

// Len returns the number of committed keys
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Len()
}

type memoryTxn struct {
	tree     *btree.Map[string, []byte]
	readOnly bool
}

func (t *memoryTxn) Get(key []byte) ([]byte, error) {
	v, ok := t.tree.Get(string(key))
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte{}, v...), nil
}

func (t *memoryTxn) Set(key, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	t.tree.Set(string(key), append([]byte{}, value...))
	return nil
}

func (t *memoryTxn) Delete(key []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	t.tree.Delete(string(key))
	return nil
}
