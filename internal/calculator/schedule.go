// Package calculator holds the pure arithmetic of a savings circle: the payout
// schedule and per-round funding progress.
package calculator

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/esusu/internal/apperr"
	"github.com/mmynk/esusu/internal/models"
)

// ErrScheduleExists is returned when a group already has a payout schedule.
var ErrScheduleExists = apperr.New(apperr.CodeScheduleExists, "payout schedule already generated")

// Shuffler permutes n elements. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// NewShuffler returns a ChaCha8 generator seeded from the operating system.
func NewShuffler() *rand.Rand {
	var seed [32]byte
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = crand.Read(seed[:])
	return rand.New(rand.NewChaCha8(seed))
}

// NewSeededShuffler returns a deterministic generator for tests.
func NewSeededShuffler(seed uint64) *rand.Rand {
	var s [32]byte
	for i := 0; i < 8; i++ {
		s[i] = byte(seed >> (8 * i))
	}
	return rand.New(rand.NewChaCha8(s))
}

// GenerateSchedule assigns every active member exactly one payout round in a
// random order and stores the result on group. It runs once per group; a second
// call returns ErrScheduleExists and leaves the existing schedule untouched.
func GenerateSchedule(group *models.Group, shuffler Shuffler) error {
	if len(group.PayoutSchedule) > 0 {
		return ErrScheduleExists
	}

	members := group.ActiveMembers()
	if len(members) == 0 {
		return apperr.New(apperr.CodeInvalidArgument, "cannot schedule a group without members")
	}

	recipients := make([]string, len(members))
	for i, m := range members {
		recipients[i] = m.UserID
	}
	shuffler.Shuffle(len(recipients), func(i, j int) {
		recipients[i], recipients[j] = recipients[j], recipients[i]
	})

	amount := PayoutAmount(group.Settings.ContributionAmount, len(members))
	schedule := make([]models.PayoutEntry, len(recipients))
	for i, recipient := range recipients {
		round := i + 1
		schedule[i] = models.PayoutEntry{
			Round:         round,
			Recipient:     recipient,
			ScheduledDate: ScheduledDate(group.Settings.StartDate, group.Settings.ContributionInterval, round),
			Amount:        amount,
			Status:        models.PayoutPending,
		}
	}

	if err := validateSchedule(schedule, len(members)); err != nil {
		return err
	}
	group.PayoutSchedule = schedule
	return nil
}

func validateSchedule(schedule []models.PayoutEntry, memberCount int) error {
	if len(schedule) != memberCount {
		return apperr.New(apperr.CodeInvariantViolation,
			fmt.Sprintf("schedule has %d entries for %d members", len(schedule), memberCount))
	}
	seen := make(map[string]bool, len(schedule))
	for i, e := range schedule {
		if e.Round != i+1 {
			return apperr.New(apperr.CodeInvariantViolation, fmt.Sprintf("entry %d has round %d", i, e.Round))
		}
		if seen[e.Recipient] {
			return apperr.New(apperr.CodeInvariantViolation, "recipient "+e.Recipient+" scheduled twice")
		}
		seen[e.Recipient] = true
	}
	return nil
}

// PayoutAmount is the pot one recipient receives.
func PayoutAmount(contribution decimal.Decimal, memberCount int) decimal.Decimal {
	return contribution.Mul(decimal.NewFromInt(int64(memberCount)))
}

// ScheduledDate is the payout date of round (1-based).
// Weekly rounds are seven days apart. Monthly rounds advance by calendar month
// from start, clamping the day to the end of shorter months, so a circle
// starting on Jan 31 pays on Feb 28 (29 in leap years), then Mar 31.
func ScheduledDate(start time.Time, interval models.Interval, round int) time.Time {
	steps := round - 1
	if steps < 0 {
		steps = 0
	}
	switch interval {
	case models.IntervalMonthly:
		return addMonthsClamped(start, steps)
	default:
		return start.AddDate(0, 0, 7*steps)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	// Day 1 never overflows, so normalization only carries months into years.
	first := time.Date(y, m+time.Month(months), 1, hh, mm, ss, t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
