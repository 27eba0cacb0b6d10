// Package store holds the exchange ledger in a transactional key-value
// store. Every exchange operation runs inside a single Update, so a failed
// operation leaves no partial writes behind.
package store

import "errors"

// ErrNotFound is returned by Txn.Get for absent keys
var ErrNotFound = errors.New("key not found")

// ErrReadOnly is returned when writing through a View transaction
var ErrReadOnly = errors.New("read-only transaction")

// Txn is a read/write view of the store scoped to one transaction
type Txn interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
}

// Store runs functions inside transactions. Update commits only when fn
// returns nil.
type Store interface {
	View(fn func(txn Txn) error) error
	Update(fn func(txn Txn) error) error
	Close() error
}
