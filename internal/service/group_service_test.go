package service

import (
	"context"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/esusu/internal/apperr"
)

func TestCreateGroup(t *testing.T) {
	ts := setupTestServer(t)
	g := ts.createGroup(t, alice)

	if g.ID == "" {
		t.Error("expected non-empty group ID")
	}
	if g.Name != "Market women" {
		t.Errorf("name: expected 'Market women', got '%s'", g.Name)
	}
	if g.Status != "forming" {
		t.Errorf("status: expected forming, got %s", g.Status)
	}
	if len(g.Members) != 1 || g.Members[0].UserID != alice || g.Members[0].Role != "admin" {
		t.Errorf("members: expected alice as sole admin, got %+v", g.Members)
	}
	if g.Admin != alice {
		t.Errorf("admin: expected alice, got %s", g.Admin)
	}
	if !g.ContributionAmount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("contribution amount: expected 10, got %s", g.ContributionAmount)
	}
	if g.MaxMembers != 3 {
		t.Errorf("max members: expected 3, got %d", g.MaxMembers)
	}
	if !g.StartDate.Equal(t0) {
		t.Errorf("start date: expected %s, got %s", t0, g.StartDate)
	}
}

func TestCreateGroup_Unauthenticated(t *testing.T) {
	ts := setupTestServer(t)

	_, err := ts.groups.CreateGroup(context.Background(), connect.NewRequest(&CreateGroupRequest{
		Name:                 "No token",
		ContributionAmount:   decimal.NewFromInt(10),
		ContributionToken:    "cUSD",
		ContributionInterval: "weekly",
	}))
	expectCode(t, err, connect.CodeUnauthenticated, apperr.CodeUnauthenticated)
}

func TestCreateGroup_InvalidArguments(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name string
		req  CreateGroupRequest
	}{
		{"missing name", CreateGroupRequest{ContributionAmount: decimal.NewFromInt(10), ContributionToken: "cUSD", ContributionInterval: "weekly"}},
		{"zero amount", CreateGroupRequest{Name: "x", ContributionAmount: decimal.Zero, ContributionToken: "cUSD", ContributionInterval: "weekly"}},
		{"unsupported token", CreateGroupRequest{Name: "x", ContributionAmount: decimal.NewFromInt(10), ContributionToken: "DOGE", ContributionInterval: "weekly"}},
		{"unsupported interval", CreateGroupRequest{Name: "x", ContributionAmount: decimal.NewFromInt(10), ContributionToken: "cUSD", ContributionInterval: "daily"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := ts.groups.CreateGroup(context.Background(), as(t, ts, alice, &req))
			expectCode(t, err, connect.CodeInvalidArgument, apperr.CodeInvalidArgument)
		})
	}
}

func TestGetGroup(t *testing.T) {
	ts := setupTestServer(t)
	created := ts.createGroup(t, alice)

	resp, err := ts.groups.GetGroup(context.Background(), as(t, ts, bob, &GroupRequest{GroupID: created.ID}))
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if resp.Msg.Group.ID != created.ID {
		t.Errorf("id: expected %s, got %s", created.ID, resp.Msg.Group.ID)
	}
	if resp.Msg.Round != nil {
		t.Errorf("expected no round status for a forming group, got %+v", resp.Msg.Round)
	}
}

func TestGetGroup_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	_, err := ts.groups.GetGroup(context.Background(), as(t, ts, alice, &GroupRequest{GroupID: "nonexistent-id"}))
	expectCode(t, err, connect.CodeNotFound, apperr.CodeGroupNotFound)
}

func TestJoinGroup_Activates(t *testing.T) {
	ts := setupTestServer(t)
	g := ts.activeGroup(t)

	if len(g.PayoutSchedule) != 3 {
		t.Fatalf("schedule: expected 3 entries, got %d", len(g.PayoutSchedule))
	}
	seen := map[string]bool{}
	for i, e := range g.PayoutSchedule {
		if e.Round != i+1 {
			t.Errorf("entry %d: expected round %d, got %d", i, i+1, e.Round)
		}
		if !e.Amount.Equal(decimal.NewFromInt(30)) {
			t.Errorf("round %d amount: expected 30, got %s", e.Round, e.Amount)
		}
		seen[e.Recipient] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected 3 distinct recipients, got %v", seen)
	}

	resp, err := ts.groups.GetGroup(context.Background(), as(t, ts, alice, &GroupRequest{GroupID: g.ID}))
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if resp.Msg.Round == nil {
		t.Fatal("expected round status for an active group")
	}
	if resp.Msg.Round.Round != 1 || resp.Msg.Round.MemberCount != 3 || resp.Msg.Round.Funded {
		t.Errorf("round status: got %+v", resp.Msg.Round)
	}
	if !resp.Msg.Round.Target.Equal(decimal.NewFromInt(30)) {
		t.Errorf("target: expected 30, got %s", resp.Msg.Round.Target)
	}

	_, err = ts.groups.JoinGroup(context.Background(), as(t, ts, dave, &GroupRequest{GroupID: g.ID}))
	expectCode(t, err, connect.CodeFailedPrecondition, apperr.CodeNotAcceptingMembers)
}

func TestJoinGroup_AlreadyMember(t *testing.T) {
	ts := setupTestServer(t)
	g := ts.createGroup(t, alice)

	_, err := ts.groups.JoinGroup(context.Background(), as(t, ts, alice, &GroupRequest{GroupID: g.ID}))
	expectCode(t, err, connect.CodeFailedPrecondition, apperr.CodeAlreadyMember)
}

func TestListGroups(t *testing.T) {
	ts := setupTestServer(t)
	forming := ts.createGroup(t, dave)
	active := ts.activeGroup(t)

	avail, err := ts.groups.ListAvailableGroups(context.Background(), as(t, ts, bob, &ListAvailableGroupsRequest{}))
	if err != nil {
		t.Fatalf("ListAvailableGroups failed: %v", err)
	}
	if len(avail.Msg.Groups) != 1 || avail.Msg.Groups[0].ID != forming.ID {
		t.Errorf("available: expected only %s, got %d groups", forming.ID, len(avail.Msg.Groups))
	}

	mine, err := ts.groups.ListMyGroups(context.Background(), as(t, ts, bob, &ListMyGroupsRequest{}))
	if err != nil {
		t.Fatalf("ListMyGroups failed: %v", err)
	}
	if len(mine.Msg.Groups) != 1 || mine.Msg.Groups[0].ID != active.ID {
		t.Errorf("my groups: expected only %s, got %d groups", active.ID, len(mine.Msg.Groups))
	}
}

func TestLeaveGroup(t *testing.T) {
	ts := setupTestServer(t)
	g := ts.createGroup(t, alice)
	if _, err := ts.groups.JoinGroup(context.Background(), as(t, ts, bob, &GroupRequest{GroupID: g.ID})); err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}

	resp, err := ts.groups.LeaveGroup(context.Background(), as(t, ts, alice, &GroupRequest{GroupID: g.ID}))
	if err != nil {
		t.Fatalf("LeaveGroup failed: %v", err)
	}
	if resp.Msg.Deleted {
		t.Fatal("group deleted while bob remains")
	}
	if resp.Msg.NewAdmin != bob {
		t.Errorf("new admin: expected bob, got %s", resp.Msg.NewAdmin)
	}
	if resp.Msg.Group == nil || resp.Msg.Group.Admin != bob {
		t.Errorf("group admin: expected bob, got %+v", resp.Msg.Group)
	}

	resp, err = ts.groups.LeaveGroup(context.Background(), as(t, ts, bob, &GroupRequest{GroupID: g.ID}))
	if err != nil {
		t.Fatalf("LeaveGroup failed: %v", err)
	}
	if !resp.Msg.Deleted || resp.Msg.Group != nil {
		t.Errorf("expected group deleted after last member left, got %+v", resp.Msg)
	}

	_, err = ts.groups.GetGroup(context.Background(), as(t, ts, bob, &GroupRequest{GroupID: g.ID}))
	expectCode(t, err, connect.CodeNotFound, apperr.CodeGroupNotFound)
}

func TestLeaveGroup_Locked(t *testing.T) {
	ts := setupTestServer(t)
	g := ts.activeGroup(t)

	_, err := ts.groups.LeaveGroup(context.Background(), as(t, ts, bob, &GroupRequest{GroupID: g.ID}))
	expectCode(t, err, connect.CodeFailedPrecondition, apperr.CodeGroupLocked)
}

func TestPauseResume(t *testing.T) {
	ts := setupTestServer(t)
	g := ts.activeGroup(t)

	_, err := ts.groups.PauseGroup(context.Background(), as(t, ts, bob, &GroupRequest{GroupID: g.ID}))
	expectCode(t, err, connect.CodePermissionDenied, apperr.CodeNotAdmin)

	paused, err := ts.groups.PauseGroup(context.Background(), as(t, ts, alice, &GroupRequest{GroupID: g.ID}))
	if err != nil {
		t.Fatalf("PauseGroup failed: %v", err)
	}
	if paused.Msg.Group.Status != "paused" || paused.Msg.Group.PausedFrom != "active" {
		t.Errorf("expected paused from active, got %s from %s", paused.Msg.Group.Status, paused.Msg.Group.PausedFrom)
	}

	_, err = ts.submit(t, bob, g.ID, ts.pay(1, bob))
	expectCode(t, err, connect.CodeFailedPrecondition, apperr.CodeGroupNotActive)

	resumed, err := ts.groups.ResumeGroup(context.Background(), as(t, ts, alice, &GroupRequest{GroupID: g.ID}))
	if err != nil {
		t.Fatalf("ResumeGroup failed: %v", err)
	}
	if resumed.Msg.Group.Status != "active" {
		t.Errorf("status: expected active, got %s", resumed.Msg.Group.Status)
	}
}

func TestCheckOverdueRounds(t *testing.T) {
	ts := setupTestServer(t)
	g := ts.activeGroup(t)

	_, err := ts.groups.CheckOverdueRounds(context.Background(), as(t, ts, dave, &GroupRequest{GroupID: g.ID}))
	expectCode(t, err, connect.CodeFailedPrecondition, apperr.CodeNotAMember)

	resp, err := ts.groups.CheckOverdueRounds(context.Background(), as(t, ts, bob, &GroupRequest{GroupID: g.ID}))
	if err != nil {
		t.Fatalf("CheckOverdueRounds failed: %v", err)
	}
	if resp.Msg.Report.Overdue {
		t.Error("round overdue before its deadline")
	}
	if want := t0.Add(48 * time.Hour); !resp.Msg.Report.Deadline.Equal(want) {
		t.Errorf("deadline: expected %s, got %s", want, resp.Msg.Report.Deadline)
	}

	if _, err := ts.submit(t, alice, g.ID, ts.pay(1, alice)); err != nil {
		t.Fatalf("SubmitContribution failed: %v", err)
	}
	ts.clock.Advance(49 * time.Hour)

	resp, err = ts.groups.CheckOverdueRounds(context.Background(), as(t, ts, bob, &GroupRequest{GroupID: g.ID}))
	if err != nil {
		t.Fatalf("CheckOverdueRounds failed: %v", err)
	}
	if !resp.Msg.Report.Overdue {
		t.Fatal("expected round to be overdue")
	}
	if len(resp.Msg.Report.Delinquent) != 2 {
		t.Errorf("delinquent: expected bob and carol, got %v", resp.Msg.Report.Delinquent)
	}
	for _, m := range resp.Msg.Report.Delinquent {
		if m == alice {
			t.Error("alice paid but is listed as delinquent")
		}
	}
}

func TestListContributions(t *testing.T) {
	ts := setupTestServer(t)
	g := ts.activeGroup(t)
	ctx := context.Background()

	for i, m := range []string{alice, bob, carol} {
		if _, err := ts.submit(t, m, g.ID, ts.pay(i+1, m)); err != nil {
			t.Fatalf("SubmitContribution(%s) failed: %v", m, err)
		}
	}
	if _, err := ts.submit(t, bob, g.ID, ts.pay(4, bob)); err != nil {
		t.Fatalf("SubmitContribution for round 2 failed: %v", err)
	}

	_, err := ts.groups.ListContributions(ctx, as(t, ts, dave, &ListContributionsRequest{GroupID: g.ID}))
	expectCode(t, err, connect.CodeFailedPrecondition, apperr.CodeNotAMember)

	resp, err := ts.groups.ListContributions(ctx, as(t, ts, carol, &ListContributionsRequest{GroupID: g.ID}))
	if err != nil {
		t.Fatalf("ListContributions failed: %v", err)
	}
	history := resp.Msg.Contributions
	if len(history) != 4 {
		t.Fatalf("contributions: expected 4, got %d", len(history))
	}
	last := history[3]
	if last.Round != 2 || last.MemberID != bob || last.PaymentID != paymentID(4) {
		t.Errorf("last contribution: got %+v", last)
	}
	if !last.Amount.Equal(decimal.NewFromInt(10)) || last.Token != "cUSD" {
		t.Errorf("last contribution amount: got %s %s", last.Amount, last.Token)
	}

	resp, err = ts.groups.ListContributions(ctx, as(t, ts, carol, &ListContributionsRequest{GroupID: g.ID, Round: 1}))
	if err != nil {
		t.Fatalf("ListContributions failed: %v", err)
	}
	if len(resp.Msg.Contributions) != 3 {
		t.Errorf("round 1: expected 3 contributions, got %+v", resp.Msg.Contributions)
	}
	for _, c := range resp.Msg.Contributions {
		if c.Round != 1 {
			t.Errorf("round filter leaked round %d", c.Round)
		}
	}
}
