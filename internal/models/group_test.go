package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestGroup() *Group {
	now := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	return &Group{
		ID: "g1",
		Members: []Member{
			{UserID: "0xaaa", Role: RoleAdmin, IsActive: true, JoinedAt: now},
			{UserID: "0xbbb", Role: RoleMember, IsActive: true, JoinedAt: now},
			{UserID: "0xccc", Role: RoleMember, IsActive: false, JoinedAt: now},
		},
		Settings: Settings{ContributionAmount: decimal.NewFromInt(10), MaxMembers: 3},
		Status:   StatusForming,
	}
}

func TestMemberLookup(t *testing.T) {
	g := newTestGroup()

	if got := g.MemberIndex("0xBBB"); got != 1 {
		t.Errorf("MemberIndex is case-insensitive: got %d, want 1", got)
	}
	if got := g.MemberIndex("0xddd"); got != -1 {
		t.Errorf("MemberIndex(unknown) = %d, want -1", got)
	}
	if g.IsActiveMember("0xccc") {
		t.Error("inactive member reported as active")
	}
	if got := g.MemberCount(); got != 2 {
		t.Errorf("MemberCount = %d, want 2", got)
	}
	if !g.IsFull() {
		t.Error("expected group at capacity to be full")
	}
	if !g.IsAdmin("0xaaa") || g.IsAdmin("0xbbb") {
		t.Error("admin lookup mismatch")
	}
}

func TestPayoutIndexedByRound(t *testing.T) {
	g := newTestGroup()
	g.PayoutSchedule = []PayoutEntry{
		{Round: 1, Recipient: "0xbbb"},
		{Round: 2, Recipient: "0xaaa"},
	}

	entry, ok := g.Payout(2)
	if !ok || entry.Recipient != "0xaaa" {
		t.Fatalf("Payout(2) = %+v, %v", entry, ok)
	}
	for _, round := range []int{0, 3, -1} {
		if _, ok := g.Payout(round); ok {
			t.Errorf("Payout(%d) should not exist", round)
		}
	}

	// A corrupted arena is reported as missing rather than returning the wrong round.
	g.PayoutSchedule[0].Round = 7
	if _, ok := g.Payout(1); ok {
		t.Error("expected mismatched arena slot to be rejected")
	}

	// Pointer aliases the arena slot.
	entry.Status = PayoutPaid
	if g.PayoutSchedule[1].Status != PayoutPaid {
		t.Error("Payout should return a pointer into the schedule")
	}
}

func TestEffectiveStatus(t *testing.T) {
	g := newTestGroup()
	if g.EffectiveStatus() != StatusForming {
		t.Errorf("got %s, want forming", g.EffectiveStatus())
	}
	g.Status = StatusPaused
	g.PausedFrom = StatusActive
	if g.EffectiveStatus() != StatusActive {
		t.Errorf("got %s, want active", g.EffectiveStatus())
	}
}
