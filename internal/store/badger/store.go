package badger

import (
	"github.com/ternarybob/arbor"
)

// Store composes JobStore and BatchStore over a single Badger DB handle,
// satisfying store.Store.
type Store struct {
	*JobStore
	*BatchStore
	db *DB
}

// New opens a Badger database at cfg.Path and returns a ready store.Store.
func New(cfg Config, logger arbor.ILogger) (*Store, error) {
	db, err := Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	jobStore := NewJobStore(db, logger)
	batchStore := NewBatchStore(db, jobStore)
	return &Store{
		JobStore:   jobStore,
		BatchStore: batchStore,
		db:         db,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
