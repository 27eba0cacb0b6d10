package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// BadgerOptions configures a Badger store
type BadgerOptions struct {
	// Directory holds the database files. Ignored when InMemory is set.
	Directory string
	InMemory  bool
	Logger    *zap.Logger
}

// Badger is a persistent Store backed by badger
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a badger database
func OpenBadger(opts BadgerOptions) (*Badger, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dir := opts.Directory
	if opts.InMemory {
		dir = ""
	}
	badgerOpts := badger.DefaultOptions(dir).
		WithInMemory(opts.InMemory).
		WithLogger(NewBadgerLogger(logger)).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) View(fn func(txn Txn) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn})
	})
}

func (b *Badger) Update(fn func(txn Txn) error) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn})
	})
}

func (b *Badger) Close() error {
	return b.db.Close()
}

type badgerTxn struct {
	txn *badger.Txn
}

func (t *badgerTxn) Get(key []byte) ([]byte, error) {
	item, err := t.txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t *badgerTxn) Set(key, value []byte) error {
	err := t.txn.Set(key, value)
	if errors.Is(err, badger.ErrReadOnlyTxn) {
		return ErrReadOnly
	}
	return err
}

func (t *badgerTxn) Delete(key []byte) error {
	err := t.txn.Delete(key)
	if errors.Is(err, badger.ErrReadOnlyTxn) {
		return ErrReadOnly
	}
	return err
}

// BadgerLogger is a wrapper type to give our logger the expected interface
type BadgerLogger struct {
	logger *zap.SugaredLogger
}

func NewBadgerLogger(logger *zap.Logger) *BadgerLogger {
	return &BadgerLogger{
		logger: logger.Named("badger").Sugar(),
	}
}

func (b *BadgerLogger) Infof(msg string, args ...any) {
	b.logger.Infof(msg, args...)
}

func (b *BadgerLogger) Warningf(msg string, args ...any) {
	b.logger.Warnf(msg, args...)
}

func (b *BadgerLogger) Debugf(msg string, args ...any) {
	b.logger.Debugf(msg, args...)
}

func (b *BadgerLogger) Errorf(msg string, args ...any) {
	b.logger.Errorf(msg, args...)
}
