// Package notify defines the events the engine emits and the sinks that carry
// them out of the process. Delivery to end users is someone else's job.
package notify

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EventType names a lifecycle or accounting event.
type EventType string

const (
	EventGroupCreated         EventType = "group_created"
	EventMemberJoined         EventType = "member_joined"
	EventMemberLeft           EventType = "member_left"
	EventGroupActivated       EventType = "group_activated"
	EventGroupPaused          EventType = "group_paused"
	EventGroupResumed         EventType = "group_resumed"
	EventContributionRecorded EventType = "contribution_recorded"
	EventRoundFunded          EventType = "round_funded"
	EventPayoutDisbursed      EventType = "payout_disbursed"
	EventContributionDue      EventType = "contribution_due"
	EventGroupCompleted       EventType = "group_completed"
)

// Event is one notification. MemberID, Round and Amount are zero when they do
// not apply to the event type.
type Event struct {
	Type       EventType
	GroupID    string
	MemberID   string
	Round      int
	Amount     decimal.Decimal
	OccurredAt time.Time
}

// Notifier publishes events. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Nop discards every event.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Event) error { return nil }
