package notify

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestEncodeDecode(t *testing.T) {
	event := Event{
		Type:       EventPayoutDisbursed,
		GroupID:    "g-1",
		MemberID:   "0xabc",
		Round:      2,
		Amount:     decimal.RequireFromString("150.000001"),
		OccurredAt: time.Date(2026, 5, 1, 8, 0, 0, 123, time.UTC),
	}
	data, err := Encode(event)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Type != event.Type || got.GroupID != event.GroupID || got.MemberID != event.MemberID || got.Round != event.Round {
		t.Errorf("Decode() = %+v, want %+v", got, event)
	}
	if !got.Amount.Equal(event.Amount) {
		t.Errorf("Amount = %s, want %s", got.Amount, event.Amount)
	}
	if !got.OccurredAt.Equal(event.OccurredAt) {
		t.Errorf("OccurredAt = %v, want %v", got.OccurredAt, event.OccurredAt)
	}
}

func TestSubject(t *testing.T) {
	if got := Subject(EventContributionDue); got != "esusu.events.contribution_due" {
		t.Errorf("Subject() = %q", got)
	}
}

func TestNATSPublisher(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}
	pub, err := Connect(url, nil)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer pub.Close()

	sub, err := pub.conn.SubscribeSync(SubjectPrefix + ">")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	if err := pub.Notify(context.Background(), Event{Type: EventGroupCreated, GroupID: "g-2", Amount: decimal.Zero}); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	msg, err := sub.NextMsg(2 * time.Second)
	if err != nil {
		t.Fatalf("NextMsg failed: %v", err)
	}
	if msg.Subject != Subject(EventGroupCreated) {
		t.Errorf("subject = %q", msg.Subject)
	}
	got, err := Decode(msg.Data)
	if err != nil || got.GroupID != "g-2" {
		t.Errorf("Decode() = %+v, %v", got, err)
	}
}
