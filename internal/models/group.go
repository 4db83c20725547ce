package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// GroupStatus is the lifecycle state of a group.
type GroupStatus string

const (
	StatusForming   GroupStatus = "forming"
	StatusActive    GroupStatus = "active"
	StatusCompleted GroupStatus = "completed"
	StatusPaused    GroupStatus = "paused"
)

// Valid reports whether s is a known status.
func (s GroupStatus) Valid() bool {
	switch s {
	case StatusForming, StatusActive, StatusCompleted, StatusPaused:
		return true
	}
	return false
}

// Role is a member's role within a group.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Interval is the contribution cadence of a group.
type Interval string

const (
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
)

// Valid reports whether i is a supported interval.
func (i Interval) Valid() bool {
	return i == IntervalWeekly || i == IntervalMonthly
}

// PayoutStatus is the state of one payout schedule entry.
type PayoutStatus string

const (
	PayoutPending PayoutStatus = "pending"
	PayoutPaid    PayoutStatus = "paid"
	PayoutMissed  PayoutStatus = "missed"
)

// Member is one participant of a group.
type Member struct {
	// UserID is the member's wallet address, lowercased.
	UserID string

	JoinedAt time.Time
	Role     Role
	IsActive bool
}

// Settings are fixed when the group is created and frozen once it leaves forming.
type Settings struct {
	// ContributionAmount is what every member pays each round, in token units.
	ContributionAmount decimal.Decimal

	// ContributionToken is the registry symbol of the token, e.g. "cUSD".
	ContributionToken string

	ContributionInterval Interval

	// StartDate is the scheduled payout date of round 1.
	StartDate time.Time

	MaxMembers int
}

// PayoutEntry is one round of the payout schedule.
type PayoutEntry struct {
	Round         int
	Recipient     string
	ScheduledDate time.Time
	PayoutDate    *time.Time
	Amount        decimal.Decimal
	Status        PayoutStatus
}

// Group is a rotating-savings circle.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	Name        string
	Description string

	// Members keeps insertion order; admin hand-over relies on it.
	Members []Member

	Settings Settings
	Status   GroupStatus

	// PausedFrom is the status a paused group returns to. Empty unless paused.
	PausedFrom GroupStatus

	// CurrentRound counts completed rounds; 0 means none has been paid yet.
	CurrentRound int

	// PayoutSchedule is indexed by round: PayoutSchedule[r-1].Round == r.
	// Generated once, when the group becomes active.
	PayoutSchedule []PayoutEntry

	// TotalContributions is the running sum of every contribution ever recorded.
	TotalContributions decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time

	// Version is bumped by the store on every successful update.
	Version int64
}

// MemberIndex returns the position of userID in Members, or -1.
func (g *Group) MemberIndex(userID string) int {
	for i, m := range g.Members {
		if strings.EqualFold(m.UserID, userID) {
			return i
		}
	}
	return -1
}

// IsActiveMember reports whether userID is an active member of g.
func (g *Group) IsActiveMember(userID string) bool {
	i := g.MemberIndex(userID)
	return i >= 0 && g.Members[i].IsActive
}

// ActiveMembers returns the active members in insertion order.
func (g *Group) ActiveMembers() []Member {
	active := make([]Member, 0, len(g.Members))
	for _, m := range g.Members {
		if m.IsActive {
			active = append(active, m)
		}
	}
	return active
}

// MemberCount is the number of members that contribute each round.
func (g *Group) MemberCount() int {
	return len(g.ActiveMembers())
}

// IsFull reports whether the group reached its configured capacity.
func (g *Group) IsFull() bool {
	return len(g.Members) >= g.Settings.MaxMembers
}

// Admin returns the admin member, if any.
func (g *Group) Admin() (Member, bool) {
	for _, m := range g.Members {
		if m.Role == RoleAdmin {
			return m, true
		}
	}
	return Member{}, false
}

// IsAdmin reports whether userID holds the admin role.
func (g *Group) IsAdmin(userID string) bool {
	i := g.MemberIndex(userID)
	return i >= 0 && g.Members[i].Role == RoleAdmin
}

// Payout returns the schedule entry for round in O(1).
func (g *Group) Payout(round int) (*PayoutEntry, bool) {
	if round < 1 || round > len(g.PayoutSchedule) {
		return nil, false
	}
	entry := &g.PayoutSchedule[round-1]
	if entry.Round != round {
		return nil, false
	}
	return entry, true
}

// NextRound is the round currently collecting contributions.
func (g *Group) NextRound() int {
	return g.CurrentRound + 1
}

// EffectiveStatus is the status that governs membership and accounting rules.
// For a paused group it is the status the group was paused from.
func (g *Group) EffectiveStatus() GroupStatus {
	if g.Status == StatusPaused && g.PausedFrom != "" {
		return g.PausedFrom
	}
	return g.Status
}
