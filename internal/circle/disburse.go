package circle

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/esusu/internal/models"
	"github.com/mmynk/esusu/internal/notify"
)

// DisbursementOutcome describes a paid round.
type DisbursementOutcome struct {
	Round      int
	Recipient  string
	Amount     decimal.Decimal
	PayoutDate time.Time

	// AlreadyPaid is set when the round had been paid before this call; nothing
	// changed.
	AlreadyPaid bool

	// Completed is set when this payout was the group's last.
	Completed bool
}

// Disburse marks round as paid once it is funded and advances the group. Calling
// it again for a paid round is a no-op that reports the earlier payout. The
// actual token transfer to the recipient happens outside the engine.
func (e *Engine) Disburse(ctx context.Context, groupID string, round int) (*DisbursementOutcome, error) {
	var out *DisbursementOutcome
	_, err := e.mutate(ctx, groupID, func(ctx context.Context, g *models.Group) ([]notify.Event, error) {
		out = nil
		if entry, ok := g.Payout(round); ok && entry.Status == models.PayoutPaid {
			out = paidOutcome(g, entry)
			out.AlreadyPaid = true
			return nil, nil
		}

		if g.Status != models.StatusActive {
			return nil, ErrGroupNotActive.WithCause(fmt.Errorf("group is %s", g.Status))
		}
		if round != g.NextRound() {
			return nil, ErrRoundNotDue.WithCause(fmt.Errorf("round %d requested, round %d is due", round, g.NextRound()))
		}
		entry, ok := g.Payout(round)
		if !ok {
			err := ErrScheduleNotFound.WithCause(fmt.Errorf("group %s round %d", g.ID, round))
			e.alert("Active group has no schedule entry for its next round", err,
				"group_id", g.ID, "round", round, "schedule_len", len(g.PayoutSchedule))
			return nil, err
		}

		status, err := e.progress(ctx, g, round)
		if err != nil {
			return nil, err
		}
		if !status.Funded {
			return nil, ErrRoundNotFunded.WithCause(fmt.Errorf("collected %s of %s from %d/%d members",
				status.Collected, status.Target, len(status.Contributors), status.MemberCount))
		}

		paidAt := e.now().UTC()
		entry.Status = models.PayoutPaid
		entry.PayoutDate = &paidAt
		g.CurrentRound++
		if g.CurrentRound == g.MemberCount() {
			g.Status = models.StatusCompleted
		}
		if err := e.store.UpdateGroup(ctx, g); err != nil {
			return nil, err
		}

		out = paidOutcome(g, entry)
		if e.observer != nil {
			e.observer.ObservePayout()
		}
		e.logger.Info("Payout disbursed",
			"group_id", g.ID,
			"round", round,
			"recipient", entry.Recipient,
			"amount", entry.Amount.String(),
			"completed", out.Completed,
		)

		paid := event(notify.EventPayoutDisbursed, g)
		paid.MemberID = entry.Recipient
		paid.Round = round
		paid.Amount = entry.Amount
		events := []notify.Event{paid}
		if out.Completed {
			events = append(events, event(notify.EventGroupCompleted, g))
		} else {
			events = append(events, e.dueEvents(g, g.NextRound(), memberIDs(g.ActiveMembers()))...)
		}
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func paidOutcome(g *models.Group, entry *models.PayoutEntry) *DisbursementOutcome {
	out := &DisbursementOutcome{
		Round:     entry.Round,
		Recipient: entry.Recipient,
		Amount:    entry.Amount,
		Completed: g.Status == models.StatusCompleted,
	}
	if entry.PayoutDate != nil {
		out.PayoutDate = *entry.PayoutDate
	}
	return out
}
