// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/esusu/internal/apperr"
	"github.com/mmynk/esusu/internal/ledger"
	"github.com/mmynk/esusu/internal/models"
)

var (
	// ErrGroupNotFound is returned for unknown group ids.
	ErrGroupNotFound = apperr.New(apperr.CodeGroupNotFound, "group not found")

	// ErrVersionConflict is returned when a group was modified since it was read.
	ErrVersionConflict = apperr.New(apperr.CodeVersionConflict, "group was modified concurrently")

	// ErrDuplicateContribution is returned when a contribution's payment id is
	// already recorded.
	ErrDuplicateContribution = apperr.New(apperr.CodeAlreadyUsed, "contribution already recorded for payment")
)

// Store defines the interface for group and contribution storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the engine.
type Store interface {
	// CreateGroup persists a new group. ID, CreatedAt and Version are populated.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its members and payout schedule.
	// Returns ErrGroupNotFound if it does not exist.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// UpdateGroup replaces the stored group if its Version still matches,
	// then increments group.Version. Returns ErrVersionConflict otherwise.
	UpdateGroup(ctx context.Context, group *models.Group) error

	// DeleteGroup removes a group if version still matches.
	DeleteGroup(ctx context.Context, groupID string, version int64) error

	// ListAvailableGroups returns forming groups below capacity, newest first.
	ListAvailableGroups(ctx context.Context, limit int) ([]*models.Group, error)

	// ListGroupsByMember returns groups where memberID is an active member, newest first.
	ListGroupsByMember(ctx context.Context, memberID string) ([]*models.Group, error)

	// RecordContribution inserts c and applies the group update in one
	// transaction, with the same version check as UpdateGroup.
	RecordContribution(ctx context.Context, group *models.Group, c *models.Contribution) error

	// ListContributions returns the contributions recorded for one round, or for
	// every round when round <= 0.
	ListContributions(ctx context.Context, groupID string, round int) ([]models.Contribution, error)

	// Close releases any resources held by the store.
	Close() error
}

// LedgerStore is a Store that also serves as the payment ledger.
type LedgerStore interface {
	Store
	ledger.Ledger
}
