// Package ledger defines the exactly-once admission gate for payment identifiers.
//
// Claim is the only authoritative answer to "has this payment been used". IsUsed
// exists for fast-fail UX and must never be relied on for correctness, because a
// concurrent Claim can land between the check and the caller's next step.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/esusu/internal/apperr"
)

// ErrAlreadyUsed is returned when a payment identifier was claimed before.
var ErrAlreadyUsed = apperr.New(apperr.CodeAlreadyUsed, "transaction hash already used")

// ErrNotFound is returned by Get for unknown identifiers.
var ErrNotFound = apperr.New(apperr.CodeTxNotFound, "payment record not found")

// Record is the immutable audit entry written when a payment is claimed.
type Record struct {
	PaymentID string
	Payer     string
	Amount    decimal.Decimal
	Token     string
	GroupID   string
	MemberID  string
	ClaimedAt time.Time
}

// Ledger records consumed payment identifiers. Entries are never updated or deleted.
type Ledger interface {
	// Claim atomically records rec. Exactly one of any number of concurrent claims
	// for the same PaymentID succeeds; the others get ErrAlreadyUsed.
	Claim(ctx context.Context, rec Record) error

	// IsUsed is an advisory pre-check.
	IsUsed(ctx context.Context, paymentID string) (bool, error)

	// Get returns the stored record so callers can attribute an AlreadyUsed result.
	Get(ctx context.Context, paymentID string) (*Record, error)
}

// ClaimedBy reports whether rec was claimed for the given group and member, so a
// caller can tell "my own payment was already credited" from a collision.
func (r *Record) ClaimedBy(groupID, memberID string) bool {
	return r.GroupID == groupID && r.MemberID == memberID
}
