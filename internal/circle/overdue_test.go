package circle

import (
	"context"
	"testing"
	"time"

	"github.com/mmynk/esusu/internal/models"
	"github.com/mmynk/esusu/internal/notify"
)

func TestCheckOverdueRounds(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	g := env.activeGroup(t, alice, bob, carol)
	env.contribute(t, g.ID, alice, 1)
	deadline := t0.Add(DefaultOverdueGrace)

	tests := []struct {
		name        string
		now         time.Time
		wantOverdue bool
	}{
		{"before scheduled date", t0.Add(-time.Hour), false},
		{"within grace", t0.Add(DefaultOverdueGrace - time.Minute), false},
		{"at deadline", deadline, false},
		{"after deadline", deadline.Add(time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.events.Reset()
			env.clock.Set(tt.now)

			report, err := env.engine.CheckOverdueRounds(ctx, g.ID)
			if err != nil {
				t.Fatalf("CheckOverdueRounds failed: %v", err)
			}
			if report.Overdue != tt.wantOverdue {
				t.Errorf("Overdue = %v, want %v", report.Overdue, tt.wantOverdue)
			}
			if !report.Deadline.Equal(deadline) || report.Round != 1 {
				t.Errorf("report = %+v", report)
			}

			due := env.events.OfType(notify.EventContributionDue)
			if !tt.wantOverdue {
				if len(due) != 0 {
					t.Errorf("reminders sent before deadline: %d", len(due))
				}
				return
			}
			if len(report.Delinquent) != 2 || len(due) != 2 {
				t.Errorf("delinquent=%v reminders=%d, want bob and carol", report.Delinquent, len(due))
			}
			for _, ev := range due {
				if ev.MemberID == alice {
					t.Error("alice reminded after paying")
				}
			}
		})
	}

	// The sweep never marks entries missed.
	stored, _ := env.store.GetGroup(ctx, g.ID)
	if entry, _ := stored.Payout(1); entry.Status != models.PayoutPending {
		t.Errorf("round 1 status = %s, want pending", entry.Status)
	}
}

func TestCheckOverdueRoundsFundedOrInactive(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()

	forming := env.createGroup(t, alice)
	env.clock.Set(t0.Add(30 * 24 * time.Hour))
	report, err := env.engine.CheckOverdueRounds(ctx, forming.ID)
	if err != nil || report.Overdue {
		t.Errorf("forming group report = %+v, %v", report, err)
	}

	env.clock.Set(t0)
	g := env.activeGroup(t, bob, carol)
	env.fundRound(t, g.ID, 1)
	env.clock.Set(t0.Add(30 * 24 * time.Hour))
	report, err = env.engine.CheckOverdueRounds(ctx, g.ID)
	if err != nil || report.Overdue {
		t.Errorf("funded round report = %+v, %v", report, err)
	}
}
