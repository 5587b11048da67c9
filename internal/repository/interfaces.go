package repository

import (
	"context"
	"time"
)

// PaymentStatus is the lifecycle state of a checkout
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment is a checkout record written by the payment collaborator (or the grant command)
type Payment struct {
	ID          string        `json:"id"`
	Identity    string        `json:"identity"`
	Tier        string        `json:"tier"`
	AmountCents int           `json:"amount_cents"`
	Status      PaymentStatus `json:"status"`
	CompletedAt time.Time     `json:"completed_at"`
}

// PaymentRepository defines payment record access
type PaymentRepository interface {
	// RecordPayment stores a payment and returns it with id and timestamp filled in
	RecordPayment(ctx context.Context, p Payment) (*Payment, error)

	// LookupRecentPayment reports whether a completed payment exists for the exact tier within window
	LookupRecentPayment(ctx context.Context, identity, tierName string, window time.Duration) (bool, error)

	// ListPayments returns every payment recorded for identity, oldest first
	ListPayments(ctx context.Context, identity string) ([]Payment, error)
}

// AuditEntry records the common signal of a completed batch
type AuditEntry struct {
	BatchID        string    `json:"batch_id"`
	Identity       string    `json:"identity,omitempty"`
	Tier           string    `json:"tier"`
	ImageCount     int       `json:"image_count"`
	CommonKeywords []string  `json:"common_keywords,omitempty"`
	Confidence     float64   `json:"confidence"`
	CreatedAt      time.Time `json:"created_at"`
}

// AuditRepository defines the append-only batch audit log
type AuditRepository interface {
	// Append stores an entry
	Append(ctx context.Context, entry AuditEntry) error

	// Recent returns up to limit entries, newest first
	Recent(ctx context.Context, limit int) ([]AuditEntry, error)
}
