package circle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/esusu/internal/models"
	"github.com/mmynk/esusu/internal/notify"
)

// CreateGroupParams describes a new group.
type CreateGroupParams struct {
	Name        string
	Description string
	CreatorID   string

	ContributionAmount   decimal.Decimal
	ContributionToken    string
	ContributionInterval models.Interval

	// StartDate is the payout date of round 1. Zero means now.
	StartDate time.Time
}

// LeaveOutcome reports the result of LeaveGroup.
type LeaveOutcome struct {
	// Group is the state after the departure; nil when Deleted.
	Group *models.Group

	// Deleted is set when the last member left and the group was removed.
	Deleted bool

	// NewAdmin is the member that inherited the admin role, if any.
	NewAdmin string
}

// CreateGroup creates a forming group with the creator as its admin.
func (e *Engine) CreateGroup(ctx context.Context, p CreateGroupParams) (*models.Group, error) {
	creator, err := normalizeMemberID(p.CreatorID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, invalidArgument("group name is required")
	}
	if !p.ContributionAmount.IsPositive() {
		return nil, invalidArgument("contribution amount must be positive")
	}
	if !e.registry.Supports(p.ContributionToken) {
		return nil, invalidArgument(fmt.Sprintf("unsupported token %q", p.ContributionToken))
	}
	if !p.ContributionInterval.Valid() {
		return nil, invalidArgument(fmt.Sprintf("unsupported contribution interval %q", p.ContributionInterval))
	}

	now := e.now().UTC()
	start := p.StartDate
	if start.IsZero() {
		start = now
	}

	g := &models.Group{
		Name:        name,
		Description: strings.TrimSpace(p.Description),
		Members: []models.Member{
			{UserID: creator, JoinedAt: now, Role: models.RoleAdmin, IsActive: true},
		},
		Settings: models.Settings{
			ContributionAmount:   p.ContributionAmount,
			ContributionToken:    p.ContributionToken,
			ContributionInterval: p.ContributionInterval,
			StartDate:            start.UTC(),
			MaxMembers:           e.cfg.MaxMembers,
		},
		Status:             models.StatusForming,
		TotalContributions: decimal.Zero,
		CreatedAt:          now,
	}
	if err := e.store.CreateGroup(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	e.logger.Info("Group created", "group_id", g.ID, "admin", creator, "max_members", g.Settings.MaxMembers)
	ev := event(notify.EventGroupCreated, g)
	ev.MemberID = creator
	e.publish(ctx, []notify.Event{ev})
	return g, nil
}

// JoinGroup adds memberID to a forming group. The join that fills the group
// activates it and fixes the payout order.
func (e *Engine) JoinGroup(ctx context.Context, groupID, memberID string) (*models.Group, error) {
	memberID, err := normalizeMemberID(memberID)
	if err != nil {
		return nil, err
	}

	return e.mutate(ctx, groupID, func(ctx context.Context, g *models.Group) ([]notify.Event, error) {
		if g.Status != models.StatusForming {
			return nil, ErrNotAcceptingMembers
		}
		if g.MemberIndex(memberID) >= 0 {
			return nil, ErrAlreadyMember
		}
		if g.IsFull() {
			return nil, ErrGroupFull
		}

		g.Members = append(g.Members, models.Member{
			UserID:   memberID,
			JoinedAt: e.now().UTC(),
			Role:     models.RoleMember,
			IsActive: true,
		})
		joined := event(notify.EventMemberJoined, g)
		joined.MemberID = memberID
		events := []notify.Event{joined}

		if g.IsFull() {
			if err := e.generateSchedule(g); err != nil {
				e.alert("Failed to generate payout schedule", err, "group_id", g.ID)
				return nil, err
			}
			g.Status = models.StatusActive
			events = append(events, event(notify.EventGroupActivated, g))
			events = append(events, e.dueEvents(g, g.NextRound(), memberIDs(g.ActiveMembers()))...)
		}

		if err := e.store.UpdateGroup(ctx, g); err != nil {
			return nil, err
		}

		e.logger.Info("Member joined group", "group_id", g.ID, "member", memberID,
			"members", len(g.Members), "status", g.Status)
		return events, nil
	})
}

// LeaveGroup removes memberID from a group that has not started. The last
// member leaving deletes the group; an admin leaving hands the role to the
// earliest remaining member.
func (e *Engine) LeaveGroup(ctx context.Context, groupID, memberID string) (*LeaveOutcome, error) {
	memberID, err := normalizeMemberID(memberID)
	if err != nil {
		return nil, err
	}

	out := &LeaveOutcome{}
	g, err := e.mutate(ctx, groupID, func(ctx context.Context, g *models.Group) ([]notify.Event, error) {
		*out = LeaveOutcome{}
		if g.EffectiveStatus() != models.StatusForming {
			return nil, ErrGroupLocked
		}
		idx := g.MemberIndex(memberID)
		if idx < 0 {
			return nil, ErrNotAMember
		}

		wasAdmin := g.Members[idx].Role == models.RoleAdmin
		g.Members = append(g.Members[:idx], g.Members[idx+1:]...)

		left := event(notify.EventMemberLeft, g)
		left.MemberID = memberID

		if len(g.Members) == 0 {
			if err := e.store.DeleteGroup(ctx, g.ID, g.Version); err != nil {
				return nil, err
			}
			out.Deleted = true
			e.logger.Info("Last member left, group deleted", "group_id", g.ID, "member", memberID)
			return []notify.Event{left}, nil
		}

		if wasAdmin {
			g.Members[0].Role = models.RoleAdmin
			out.NewAdmin = g.Members[0].UserID
		}
		if err := e.store.UpdateGroup(ctx, g); err != nil {
			return nil, err
		}

		attrs := []any{"group_id", g.ID, "member", memberID, "members", len(g.Members)}
		if out.NewAdmin != "" {
			attrs = append(attrs, "new_admin", out.NewAdmin)
		}
		e.logger.Info("Member left group", attrs...)
		return []notify.Event{left}, nil
	})
	if err != nil {
		return nil, err
	}
	if !out.Deleted {
		out.Group = g
	}
	return out, nil
}

// PauseGroup suspends a forming or active group. Admin only.
func (e *Engine) PauseGroup(ctx context.Context, groupID, actorID string) (*models.Group, error) {
	actorID, err := normalizeMemberID(actorID)
	if err != nil {
		return nil, err
	}
	return e.mutate(ctx, groupID, func(ctx context.Context, g *models.Group) ([]notify.Event, error) {
		if !g.IsAdmin(actorID) {
			return nil, ErrNotAdmin
		}
		if g.Status != models.StatusForming && g.Status != models.StatusActive {
			return nil, ErrInvalidTransition.WithCause(fmt.Errorf("cannot pause a %s group", g.Status))
		}
		g.PausedFrom = g.Status
		g.Status = models.StatusPaused
		if err := e.store.UpdateGroup(ctx, g); err != nil {
			return nil, err
		}
		e.logger.Info("Group paused", "group_id", g.ID, "paused_from", g.PausedFrom)
		ev := event(notify.EventGroupPaused, g)
		ev.MemberID = actorID
		return []notify.Event{ev}, nil
	})
}

// ResumeGroup returns a paused group to the status it was paused from. Admin only.
func (e *Engine) ResumeGroup(ctx context.Context, groupID, actorID string) (*models.Group, error) {
	actorID, err := normalizeMemberID(actorID)
	if err != nil {
		return nil, err
	}
	return e.mutate(ctx, groupID, func(ctx context.Context, g *models.Group) ([]notify.Event, error) {
		if !g.IsAdmin(actorID) {
			return nil, ErrNotAdmin
		}
		if g.Status != models.StatusPaused {
			return nil, ErrInvalidTransition.WithCause(fmt.Errorf("cannot resume a %s group", g.Status))
		}
		resumeTo := g.PausedFrom
		if resumeTo != models.StatusForming && resumeTo != models.StatusActive {
			e.logger.Warn("Paused group has no valid prior status", "group_id", g.ID, "paused_from", resumeTo)
			resumeTo = models.StatusForming
			if len(g.PayoutSchedule) > 0 {
				resumeTo = models.StatusActive
			}
		}
		g.Status = resumeTo
		g.PausedFrom = ""
		if err := e.store.UpdateGroup(ctx, g); err != nil {
			return nil, err
		}
		e.logger.Info("Group resumed", "group_id", g.ID, "status", g.Status)
		ev := event(notify.EventGroupResumed, g)
		ev.MemberID = actorID
		return []notify.Event{ev}, nil
	})
}

func memberIDs(members []models.Member) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	return ids
}

// dueEvents announces that round is collecting contributions from members.
func (e *Engine) dueEvents(g *models.Group, round int, members []string) []notify.Event {
	events := make([]notify.Event, 0, len(members))
	for _, m := range members {
		ev := event(notify.EventContributionDue, g)
		ev.MemberID = m
		ev.Round = round
		ev.Amount = g.Settings.ContributionAmount
		events = append(events, ev)
	}
	return events
}
