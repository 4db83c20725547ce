// Package sqlite provides a SQLite-backed implementation of the storage.Store
// and ledger.Ledger interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/esusu/internal/models"
	"github.com/mmynk/esusu/internal/storage"
)

// Ensure SQLiteStore implements storage.LedgerStore
var _ storage.LedgerStore = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store and ledger.Ledger using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas in the DSN apply to every pooled connection.
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection turns lock contention into
	// queueing inside database/sql instead of SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateGroup persists a new group with its members and schedule.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	// Generate ID if not set
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = group.CreatedAt
	group.Version = 1

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, description, status, paused_from, current_round, total_contributions,
		 contribution_amount, contribution_token, contribution_interval, start_date, max_members,
		 created_at, updated_at, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.Description, string(group.Status), string(group.PausedFrom),
		group.CurrentRound, group.TotalContributions.String(),
		group.Settings.ContributionAmount.String(), group.Settings.ContributionToken,
		string(group.Settings.ContributionInterval), group.Settings.StartDate.UnixNano(),
		group.Settings.MaxMembers, group.CreatedAt.UnixNano(), group.UpdatedAt.UnixNano(), group.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	if err := writeChildren(ctx, tx, group); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID, including members and payout schedule.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return getGroup(ctx, s.db, groupID)
}

func getGroup(ctx context.Context, q execer, groupID string) (*models.Group, error) {
	group := &models.Group{}
	var (
		status, pausedFrom, total, amount, interval string
		startDate, createdAt, updatedAt             int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, name, description, status, paused_from, current_round, total_contributions,
		 contribution_amount, contribution_token, contribution_interval, start_date, max_members,
		 created_at, updated_at, version
		 FROM groups WHERE id = ?`,
		groupID,
	).Scan(&group.ID, &group.Name, &group.Description, &status, &pausedFrom, &group.CurrentRound, &total,
		&amount, &group.Settings.ContributionToken, &interval, &startDate, &group.Settings.MaxMembers,
		&createdAt, &updatedAt, &group.Version)
	if err == sql.ErrNoRows {
		return nil, storage.ErrGroupNotFound.WithCause(fmt.Errorf("group %s", groupID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	group.Status = models.GroupStatus(status)
	group.PausedFrom = models.GroupStatus(pausedFrom)
	if !group.Status.Valid() || (group.PausedFrom != "" && !group.PausedFrom.Valid()) {
		return nil, fmt.Errorf("group %s has unknown status %q (paused from %q)", groupID, status, pausedFrom)
	}
	group.Settings.ContributionInterval = models.Interval(interval)
	group.Settings.StartDate = fromNanos(startDate)
	group.CreatedAt = fromNanos(createdAt)
	group.UpdatedAt = fromNanos(updatedAt)
	if group.TotalContributions, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("failed to parse total contributions: %w", err)
	}
	if group.Settings.ContributionAmount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse contribution amount: %w", err)
	}

	if group.Members, err = loadMembers(ctx, q, groupID); err != nil {
		return nil, err
	}
	if group.PayoutSchedule, err = loadSchedule(ctx, q, groupID); err != nil {
		return nil, err
	}
	return group, nil
}

func loadMembers(ctx context.Context, q execer, groupID string) ([]models.Member, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT member_id, joined_at, role, is_active FROM group_members WHERE group_id = ? ORDER BY position",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var (
			m        models.Member
			joinedAt int64
			role     string
		)
		if err := rows.Scan(&m.UserID, &joinedAt, &role, &m.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.JoinedAt = fromNanos(joinedAt)
		m.Role = models.Role(role)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

func loadSchedule(ctx context.Context, q execer, groupID string) ([]models.PayoutEntry, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT round, recipient, scheduled_date, payout_date, amount, status FROM payout_schedule WHERE group_id = ? ORDER BY round",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get payout schedule: %w", err)
	}
	defer rows.Close()

	var schedule []models.PayoutEntry
	for rows.Next() {
		var (
			e          models.PayoutEntry
			scheduled  int64
			payoutDate sql.NullInt64
			amount     string
			status     string
		)
		if err := rows.Scan(&e.Round, &e.Recipient, &scheduled, &payoutDate, &amount, &status); err != nil {
			return nil, fmt.Errorf("failed to scan payout entry: %w", err)
		}
		e.ScheduledDate = fromNanos(scheduled)
		if payoutDate.Valid {
			t := fromNanos(payoutDate.Int64)
			e.PayoutDate = &t
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse payout amount: %w", err)
		}
		e.Status = models.PayoutStatus(status)
		schedule = append(schedule, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payout schedule: %w", err)
	}
	return schedule, nil
}

// UpdateGroup writes group if the stored version matches group.Version.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, group *models.Group) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := updateGroup(ctx, tx, group); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	group.Version++
	return nil
}

// updateGroup performs the versioned write. The caller bumps group.Version after
// commit so a rolled back transaction leaves the in-memory copy untouched.
func updateGroup(ctx context.Context, tx *sql.Tx, group *models.Group) error {
	updatedAt := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE groups SET name = ?, description = ?, status = ?, paused_from = ?, current_round = ?,
		 total_contributions = ?, contribution_amount = ?, contribution_token = ?, contribution_interval = ?,
		 start_date = ?, max_members = ?, updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		group.Name, group.Description, string(group.Status), string(group.PausedFrom), group.CurrentRound,
		group.TotalContributions.String(), group.Settings.ContributionAmount.String(),
		group.Settings.ContributionToken, string(group.Settings.ContributionInterval),
		group.Settings.StartDate.UnixNano(), group.Settings.MaxMembers, updatedAt.UnixNano(),
		group.ID, group.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	if err := checkVersioned(ctx, tx, res, group.ID); err != nil {
		return err
	}

	// Replace children
	if _, err := tx.ExecContext(ctx, "DELETE FROM group_members WHERE group_id = ?", group.ID); err != nil {
		return fmt.Errorf("failed to clear members: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM payout_schedule WHERE group_id = ?", group.ID); err != nil {
		return fmt.Errorf("failed to clear payout schedule: %w", err)
	}
	if err := writeChildren(ctx, tx, group); err != nil {
		return err
	}
	group.UpdatedAt = updatedAt
	return nil
}

// checkVersioned distinguishes a missing group from a stale version after a
// guarded UPDATE or DELETE touched no rows.
func checkVersioned(ctx context.Context, q execer, res sql.Result, groupID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 1 {
		return nil
	}
	var exists int
	err = q.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", groupID).Scan(&exists)
	if err == sql.ErrNoRows {
		return storage.ErrGroupNotFound.WithCause(fmt.Errorf("group %s", groupID))
	}
	if err != nil {
		return fmt.Errorf("failed to check group: %w", err)
	}
	return storage.ErrVersionConflict
}

func writeChildren(ctx context.Context, tx *sql.Tx, group *models.Group) error {
	for i, m := range group.Members {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO group_members (group_id, member_id, position, joined_at, role, is_active) VALUES (?, ?, ?, ?, ?, ?)",
			group.ID, m.UserID, i, m.JoinedAt.UnixNano(), string(m.Role), m.IsActive,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}
	for _, e := range group.PayoutSchedule {
		var payoutDate any
		if e.PayoutDate != nil {
			payoutDate = e.PayoutDate.UnixNano()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO payout_schedule (group_id, round, recipient, scheduled_date, payout_date, amount, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			group.ID, e.Round, e.Recipient, e.ScheduledDate.UnixNano(), payoutDate, e.Amount.String(), string(e.Status),
		)
		if err != nil {
			return fmt.Errorf("failed to insert payout entry: %w", err)
		}
	}
	return nil
}

// DeleteGroup removes a group and, through cascades, its members and schedule.
// Contributions and payment records are kept as the audit trail.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, groupID string, version int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ? AND version = ?", groupID, version)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return checkVersioned(ctx, s.db, res, groupID)
}

// ListAvailableGroups returns forming groups with free seats, newest first.
func (s *SQLiteStore) ListAvailableGroups(ctx context.Context, limit int) ([]*models.Group, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.listGroups(ctx,
		`SELECT g.id FROM groups g
		 WHERE g.status = ?
		   AND (SELECT COUNT(*) FROM group_members m WHERE m.group_id = g.id) < g.max_members
		 ORDER BY g.created_at DESC LIMIT ?`,
		string(models.StatusForming), limit,
	)
}

// ListGroupsByMember returns the groups memberID actively belongs to, newest first.
func (s *SQLiteStore) ListGroupsByMember(ctx context.Context, memberID string) ([]*models.Group, error) {
	return s.listGroups(ctx,
		`SELECT g.id FROM groups g
		 JOIN group_members m ON m.group_id = g.id
		 WHERE m.member_id = ? AND m.is_active = 1
		 ORDER BY g.created_at DESC`,
		memberID,
	)
}

// listGroups collects ids first so no result set is open while groups load.
func (s *SQLiteStore) listGroups(ctx context.Context, query string, args ...any) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	groups := make([]*models.Group, 0, len(ids))
	for _, id := range ids {
		g, err := s.GetGroup(ctx, id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
