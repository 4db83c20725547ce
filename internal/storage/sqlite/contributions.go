package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/esusu/internal/models"
	"github.com/mmynk/esusu/internal/storage"
)

// RecordContribution inserts c and writes group in a single transaction.
// Either both land or neither does.
func (s *SQLiteStore) RecordContribution(ctx context.Context, group *models.Group, c *models.Contribution) error {
	if c.RecordedAt.IsZero() {
		c.RecordedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO contributions (payment_id, group_id, member_id, round, amount, token, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(payment_id) DO NOTHING`,
		c.PaymentID, c.GroupID, c.MemberID, c.Round, c.Amount.String(), c.Token, c.RecordedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert contribution: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return storage.ErrDuplicateContribution.WithCause(fmt.Errorf("payment %s", c.PaymentID))
	}

	if err := updateGroup(ctx, tx, group); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	group.Version++
	return nil
}

// ListContributions returns the contributions for one round in recording order.
// A round of zero or less returns every round, ordered by round first.
func (s *SQLiteStore) ListContributions(ctx context.Context, groupID string, round int) ([]models.Contribution, error) {
	query := `SELECT payment_id, group_id, member_id, round, amount, token, recorded_at
		 FROM contributions WHERE group_id = ?`
	args := []any{groupID}
	if round > 0 {
		query += ` AND round = ?`
		args = append(args, round)
	}
	query += ` ORDER BY round, recorded_at, payment_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	defer rows.Close()

	var out []models.Contribution
	for rows.Next() {
		var (
			c          models.Contribution
			amount     string
			recordedAt int64
		)
		if err := rows.Scan(&c.PaymentID, &c.GroupID, &c.MemberID, &c.Round, &amount, &c.Token, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		if c.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse contribution amount: %w", err)
		}
		c.RecordedAt = fromNanos(recordedAt)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contributions: %w", err)
	}
	return out, nil
}
