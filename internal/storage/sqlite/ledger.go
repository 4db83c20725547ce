package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/esusu/internal/ledger"
)

// Claim records rec. The payment_id primary key makes this the single point of
// mutual exclusion: a conflicting insert affects no rows.
func (s *SQLiteStore) Claim(ctx context.Context, rec ledger.Record) error {
	rec.PaymentID = strings.ToLower(strings.TrimSpace(rec.PaymentID))
	if rec.ClaimedAt.IsZero() {
		rec.ClaimedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO payment_records (payment_id, payer, amount, token, group_id, member_id, claimed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(payment_id) DO NOTHING`,
		rec.PaymentID, rec.Payer, rec.Amount.String(), rec.Token, rec.GroupID, rec.MemberID, rec.ClaimedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to claim payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ledger.ErrAlreadyUsed
	}
	return nil
}

// IsUsed reports whether paymentID has been claimed.
func (s *SQLiteStore) IsUsed(ctx context.Context, paymentID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM payment_records WHERE payment_id = ?",
		strings.ToLower(strings.TrimSpace(paymentID)),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check payment: %w", err)
	}
	return true, nil
}

// Get returns the record for paymentID.
func (s *SQLiteStore) Get(ctx context.Context, paymentID string) (*ledger.Record, error) {
	var (
		rec       ledger.Record
		amount    string
		claimedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payment_id, payer, amount, token, group_id, member_id, claimed_at
		 FROM payment_records WHERE payment_id = ?`,
		strings.ToLower(strings.TrimSpace(paymentID)),
	).Scan(&rec.PaymentID, &rec.Payer, &amount, &rec.Token, &rec.GroupID, &rec.MemberID, &claimedAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if rec.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse payment amount: %w", err)
	}
	rec.ClaimedAt = fromNanos(claimedAt)
	return &rec, nil
}
