package circle

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmynk/esusu/internal/calculator"
	"github.com/mmynk/esusu/internal/models"
	"github.com/mmynk/esusu/internal/notify"
	"github.com/mmynk/esusu/internal/payment"
)

// RoundStatus is the funding state of a round after a contribution.
type RoundStatus = calculator.RoundProgress

// CheckEligibility reports whether memberID may contribute to groupID's current
// round right now. It changes nothing and is only a pre-check: RecordContribution
// re-validates under the group lock.
func (e *Engine) CheckEligibility(ctx context.Context, groupID, memberID string) (*models.Group, error) {
	memberID, err := normalizeMemberID(memberID)
	if err != nil {
		return nil, err
	}
	g, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := checkContributor(g, memberID); err != nil {
		return nil, err
	}
	contributions, err := e.store.ListContributions(ctx, g.ID, g.NextRound())
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	if calculator.HasContributed(contributions, g.NextRound(), memberID) {
		return nil, ErrAlreadyContributed
	}
	return g, nil
}

func checkContributor(g *models.Group, memberID string) error {
	if g.Status != models.StatusActive {
		return ErrGroupNotActive.WithCause(fmt.Errorf("group is %s", g.Status))
	}
	if !g.IsActiveMember(memberID) {
		return ErrNotAMember
	}
	return nil
}

// RecordContribution credits an already verified and claimed payment to the
// member's contribution for the current round. The contribution row and the
// group total are written in one transaction.
func (e *Engine) RecordContribution(ctx context.Context, groupID, memberID string, vp payment.ValidatedPayment) (RoundStatus, error) {
	memberID, err := normalizeMemberID(memberID)
	if err != nil {
		return RoundStatus{}, err
	}

	var status RoundStatus
	_, err = e.mutate(ctx, groupID, func(ctx context.Context, g *models.Group) ([]notify.Event, error) {
		if err := checkContributor(g, memberID); err != nil {
			return nil, err
		}
		if vp.Amount.LessThan(g.Settings.ContributionAmount) {
			return nil, ErrInsufficientContribution.WithCause(
				fmt.Errorf("paid %s, contribution is %s", vp.Amount, g.Settings.ContributionAmount))
		}
		if !strings.EqualFold(vp.Token, g.Settings.ContributionToken) {
			return nil, ErrTokenMismatch.WithCause(
				fmt.Errorf("paid in %s, group collects %s", vp.Token, g.Settings.ContributionToken))
		}

		round := g.NextRound()
		contributions, err := e.store.ListContributions(ctx, g.ID, round)
		if err != nil {
			return nil, fmt.Errorf("failed to list contributions: %w", err)
		}
		if calculator.HasContributed(contributions, round, memberID) {
			return nil, ErrAlreadyContributed
		}

		c := models.Contribution{
			PaymentID:  vp.PaymentID,
			GroupID:    g.ID,
			MemberID:   memberID,
			Round:      round,
			Amount:     vp.Amount,
			Token:      g.Settings.ContributionToken,
			RecordedAt: e.now().UTC(),
		}
		g.TotalContributions = g.TotalContributions.Add(vp.Amount)
		if err := e.store.RecordContribution(ctx, g, &c); err != nil {
			return nil, err
		}

		status = calculator.Progress(g, round, append(contributions, c))
		if e.observer != nil {
			e.observer.ObserveContribution(c.Token)
		}
		e.logger.Info("Contribution recorded",
			"group_id", g.ID,
			"member", memberID,
			"round", round,
			"amount", vp.Amount.String(),
			"collected", status.Collected.String(),
			"target", status.Target.String(),
			"funded", status.Funded,
		)

		recorded := event(notify.EventContributionRecorded, g)
		recorded.MemberID = memberID
		recorded.Round = round
		recorded.Amount = vp.Amount
		events := []notify.Event{recorded}
		if status.Funded {
			funded := event(notify.EventRoundFunded, g)
			funded.Round = round
			funded.Amount = status.Collected
			events = append(events, funded)
		}
		return events, nil
	})
	if err != nil {
		return RoundStatus{}, err
	}
	return status, nil
}

// CurrentRoundStatus returns the funding state of the group's current round.
func (e *Engine) CurrentRoundStatus(ctx context.Context, groupID string) (RoundStatus, error) {
	g, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		return RoundStatus{}, err
	}
	return e.progress(ctx, g, g.NextRound())
}

func (e *Engine) progress(ctx context.Context, g *models.Group, round int) (RoundStatus, error) {
	contributions, err := e.store.ListContributions(ctx, g.ID, round)
	if err != nil {
		return RoundStatus{}, fmt.Errorf("failed to list contributions: %w", err)
	}
	return calculator.Progress(g, round, contributions), nil
}
