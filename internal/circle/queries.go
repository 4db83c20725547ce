package circle

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/esusu/internal/calculator"
	"github.com/mmynk/esusu/internal/models"
)

// GroupStats summarizes a group's progress.
type GroupStats struct {
	GroupID            string
	Status             models.GroupStatus
	TotalContributions decimal.Decimal
	TotalPaidOut       decimal.Decimal
	CurrentRound       int
	TotalRounds        int
	ActiveMembers      int

	// NextPayoutDate and NextRecipient are unset once every round is paid or
	// before the schedule exists.
	NextPayoutDate *time.Time
	NextRecipient  string
}

// OverdueReport is the result of CheckOverdueRounds.
type OverdueReport struct {
	GroupID  string
	Round    int
	Deadline time.Time
	Overdue  bool

	// Delinquent lists active members that have not contributed to Round.
	Delinquent []string
}

// GetGroup returns a group by id.
func (e *Engine) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return e.store.GetGroup(ctx, groupID)
}

// ListAvailableGroups returns forming groups that still have seats, newest first.
func (e *Engine) ListAvailableGroups(ctx context.Context, limit int) ([]*models.Group, error) {
	return e.store.ListAvailableGroups(ctx, limit)
}

// ListMemberGroups returns the groups memberID belongs to.
func (e *Engine) ListMemberGroups(ctx context.Context, memberID string) ([]*models.Group, error) {
	memberID, err := normalizeMemberID(memberID)
	if err != nil {
		return nil, err
	}
	return e.store.ListGroupsByMember(ctx, memberID)
}

// GroupStats computes a summary for groupID.
func (e *Engine) GroupStats(ctx context.Context, groupID string) (*GroupStats, error) {
	g, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	stats := &GroupStats{
		GroupID:            g.ID,
		Status:             g.Status,
		TotalContributions: g.TotalContributions,
		TotalPaidOut:       calculator.PaidOut(g.PayoutSchedule),
		CurrentRound:       g.CurrentRound,
		TotalRounds:        len(g.PayoutSchedule),
		ActiveMembers:      g.MemberCount(),
	}
	if next, ok := g.Payout(g.NextRound()); ok && next.Status == models.PayoutPending {
		date := next.ScheduledDate
		stats.NextPayoutDate = &date
		stats.NextRecipient = next.Recipient
	}
	return stats, nil
}

// ListContributions returns the contributions recorded for groupID, for one round
// or for every round when round <= 0.
func (e *Engine) ListContributions(ctx context.Context, groupID string, round int) ([]models.Contribution, error) {
	g, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return e.store.ListContributions(ctx, g.ID, round)
}

// CheckOverdueRounds reports whether the current round of an active group is
// past its scheduled date plus the grace period without being funded, and sends
// a contribution_due reminder to each member who has not paid. Nothing is
// written: a late round can still be funded and paid.
func (e *Engine) CheckOverdueRounds(ctx context.Context, groupID string) (*OverdueReport, error) {
	g, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	report := &OverdueReport{GroupID: g.ID, Round: g.NextRound()}
	if g.Status != models.StatusActive {
		return report, nil
	}

	entry, ok := g.Payout(report.Round)
	if !ok {
		err := ErrScheduleNotFound.WithCause(fmt.Errorf("group %s round %d", g.ID, report.Round))
		e.alert("Active group has no schedule entry for its next round", err, "group_id", g.ID, "round", report.Round)
		return nil, err
	}
	report.Deadline = entry.ScheduledDate.Add(e.cfg.OverdueGrace)
	if !e.now().After(report.Deadline) {
		return report, nil
	}

	status, err := e.progress(ctx, g, report.Round)
	if err != nil {
		return nil, err
	}
	if status.Funded {
		return report, nil
	}

	report.Overdue = true
	report.Delinquent = status.Missing
	e.logger.Warn("Round overdue",
		"group_id", g.ID,
		"round", report.Round,
		"deadline", report.Deadline,
		"delinquent", len(report.Delinquent),
	)
	e.publish(ctx, e.dueEvents(g, report.Round, report.Delinquent))
	return report, nil
}
