package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const auditKeyPrefix = "audit:"

// BadgerAuditRepository implements AuditRepository on BadgerDB
type BadgerAuditRepository struct {
	db *badger.DB
}

// NewBadgerAuditRepository creates an audit log over db
func NewBadgerAuditRepository(db *badger.DB) *BadgerAuditRepository {
	return &BadgerAuditRepository{db: db}
}

// Append stores entry under a time-ordered key.
func (r *BadgerAuditRepository) Append(ctx context.Context, entry AuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	key := []byte(fmt.Sprintf("%s%020d:%s", auditKeyPrefix, entry.CreatedAt.UnixNano(), entry.BatchID))

	if err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	}); err != nil {
		return fmt.Errorf("%w: append audit entry: %v", ErrRepositoryUnavailable, err)
	}
	return nil
}

// Recent returns the newest entries first. limit <= 0 returns all.
func (r *BadgerAuditRepository) Recent(ctx context.Context, limit int) ([]AuditEntry, error) {
	var entries []AuditEntry
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(auditKeyPrefix)
		seek := append([]byte(auditKeyPrefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(entries) >= limit {
				return nil
			}
			var e AuditEntry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: read audit log: %v", ErrRepositoryUnavailable, err)
	}
	return entries, nil
}
