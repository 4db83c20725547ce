package calculator

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/esusu/internal/models"
)

// RoundProgress summarizes what a round has collected so far.
type RoundProgress struct {
	Round        int
	Collected    decimal.Decimal
	Target       decimal.Decimal
	Contributors []string
	Missing      []string
	MemberCount  int
	Funded       bool
}

// RoundTarget is the amount a round must collect: one contribution per active member.
func RoundTarget(group *models.Group) decimal.Decimal {
	return PayoutAmount(group.Settings.ContributionAmount, group.MemberCount())
}

// Progress computes the funding state of round from its recorded contributions.
// A round is funded when every active member has contributed to it and the
// collected sum reaches the target. Contributions for other rounds are ignored.
func Progress(group *models.Group, round int, contributions []models.Contribution) RoundProgress {
	p := RoundProgress{
		Round:       round,
		Collected:   decimal.Zero,
		Target:      RoundTarget(group),
		MemberCount: group.MemberCount(),
	}

	paid := make(map[string]bool)
	for _, c := range contributions {
		if c.Round != round {
			continue
		}
		p.Collected = p.Collected.Add(c.Amount)
		id := strings.ToLower(c.MemberID)
		if !paid[id] {
			paid[id] = true
			p.Contributors = append(p.Contributors, c.MemberID)
		}
	}

	for _, m := range group.ActiveMembers() {
		if !paid[strings.ToLower(m.UserID)] {
			p.Missing = append(p.Missing, m.UserID)
		}
	}

	p.Funded = p.MemberCount > 0 && len(p.Missing) == 0 && p.Collected.GreaterThanOrEqual(p.Target)
	return p
}

// HasContributed reports whether memberID already contributed to round.
func HasContributed(contributions []models.Contribution, round int, memberID string) bool {
	for _, c := range contributions {
		if c.Round == round && strings.EqualFold(c.MemberID, memberID) {
			return true
		}
	}
	return false
}

// PaidOut sums the amounts of every paid schedule entry.
func PaidOut(schedule []models.PayoutEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range schedule {
		if e.Status == models.PayoutPaid {
			total = total.Add(e.Amount)
		}
	}
	return total
}
