package repository

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// OpenBadger opens the embedded store at dir. An empty dir opens an
// in-memory database whose contents are lost on Close.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open badger: %v", ErrRepositoryUnavailable, err)
	}
	return db, nil
}
