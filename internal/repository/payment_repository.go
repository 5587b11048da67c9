package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const paymentKeyPrefix = "payment:"

// BadgerPaymentRepository implements PaymentRepository on BadgerDB.
//
// Keys are payment:<identity>:<tier>:<completed-at unix nanos, zero padded>
// with identity and tier query-escaped, so a prefix scan returns one
// identity/tier pair in time order.
type BadgerPaymentRepository struct {
	db  *badger.DB
	now func() time.Time
}

// NewBadgerPaymentRepository creates a payment repository over db
func NewBadgerPaymentRepository(db *badger.DB) *BadgerPaymentRepository {
	return &BadgerPaymentRepository{db: db, now: time.Now}
}

func paymentPrefix(identity, tier string) []byte {
	if tier == "" {
		return []byte(paymentKeyPrefix + url.QueryEscape(identity) + ":")
	}
	return []byte(paymentKeyPrefix + url.QueryEscape(identity) + ":" + url.QueryEscape(tier) + ":")
}

func paymentKey(p Payment) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", paymentPrefix(p.Identity, p.Tier), p.CompletedAt.UnixNano(), p.ID))
}

// RecordPayment stores p. Missing ID, status or completion time are filled in.
func (r *BadgerPaymentRepository) RecordPayment(ctx context.Context, p Payment) (*Payment, error) {
	p.Identity = strings.TrimSpace(p.Identity)
	if p.Identity == "" || p.Tier == "" {
		return nil, ErrInvalidPayment
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = PaymentCompleted
	}
	if p.CompletedAt.IsZero() {
		p.CompletedAt = r.now().UTC()
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payment: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(paymentKey(p), data)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: set payment: %v", ErrRepositoryUnavailable, err)
	}
	return &p, nil
}

// LookupRecentPayment scans the identity/tier prefix for a completed payment inside window.
func (r *BadgerPaymentRepository) LookupRecentPayment(ctx context.Context, identity, tierName string, window time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	identity = strings.TrimSpace(identity)
	if identity == "" || tierName == "" {
		return false, nil
	}

	cutoff := r.now().Add(-window)
	found := false

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration needs a seek key past the last entry of the prefix.
		prefix := paymentPrefix(identity, tierName)
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			var p Payment
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return err
			}
			if p.Identity != identity || p.Tier != tierName {
				continue
			}
			if p.CompletedAt.Before(cutoff) {
				return nil
			}
			if p.Status == PaymentCompleted {
				found = true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: lookup payment: %v", ErrRepositoryUnavailable, err)
	}
	return found, nil
}

// ListPayments returns all payments for identity across tiers.
func (r *BadgerPaymentRepository) ListPayments(ctx context.Context, identity string) ([]Payment, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, ErrPaymentNotFound
	}

	var payments []Payment
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := paymentPrefix(identity, "")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var p Payment
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return err
			}
			// identity "a" must not pick up identity "a:b"
			if p.Identity != identity {
				continue
			}
			payments = append(payments, p)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, badger.ErrDBClosed) {
			return nil, ErrRepositoryUnavailable
		}
		return nil, fmt.Errorf("list payments: %w", err)
	}
	if len(payments) == 0 {
		return nil, ErrPaymentNotFound
	}
	return payments, nil
}
