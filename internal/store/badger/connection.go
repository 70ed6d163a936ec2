// Package badger implements store.Store on top of BadgerDB via badgerhold.
package badger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// Config configures the Badger-backed store.
type Config struct {
	Path           string
	ResetOnStartup bool
}

// DB owns the underlying badgerhold handle plus the per-job-ID write locks
// that give JobStore.UpdateStatus/AppendLog atomicity badgerhold itself does
// not provide (no native compare-and-swap; see DESIGN.md).
type DB struct {
	store  *badgerhold.Store
	logger arbor.ILogger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// Open opens (or creates) the Badger database at cfg.Path.
func Open(cfg Config, logger arbor.ILogger) (*DB, error) {
	if cfg.ResetOnStartup {
		if _, err := os.Stat(cfg.Path); err == nil {
			logger.Debug().Str("path", cfg.Path).Msg("deleting existing database (reset_on_startup=true)")
			if err := os.RemoveAll(cfg.Path); err != nil {
				logger.Warn().Err(err).Str("path", cfg.Path).Msg("failed to delete database directory")
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	logger.Debug().Str("path", cfg.Path).Msg("opening badger database")

	opts := badgerhold.DefaultOptions
	opts.Dir = cfg.Path
	opts.ValueDir = cfg.Path
	opts.Logger = nil

	store, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &DB{
		store:  store,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// Store returns the underlying badgerhold store.
func (d *DB) Store() *badgerhold.Store {
	return d.store
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// lockFor returns the per-key mutex guarding read-modify-write sequences
// against a single job ID, creating it on first use.
func (d *DB) lockFor(key string) *sync.Mutex {
	d.locksMu.Lock()
	defer d.locksMu.Unlock()
	l, ok := d.locks[key]
	if !ok {
		l = &sync.Mutex{}
		d.locks[key] = l
	}
	return l
}
