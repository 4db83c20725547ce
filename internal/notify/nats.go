package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// SubjectPrefix is prepended to the event type to form the NATS subject.
const SubjectPrefix = "esusu.events."

// Subject returns the subject an event type is published on.
func Subject(t EventType) string {
	return SubjectPrefix + string(t)
}

// Ensure NATSPublisher implements Notifier
var _ Notifier = (*NATSPublisher)(nil)

// NATSPublisher publishes events to NATS as protobuf-encoded Structs.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// Connect dials url and returns a publisher that owns the connection.
func Connect(url string, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url,
		nats.Name("esusu"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("Disconnected from NATS", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.Timeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NATSPublisher{conn: conn, logger: logger}, nil
}

// Notify implements Notifier.
func (p *NATSPublisher) Notify(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(event)
	if err != nil {
		return err
	}
	subject := Subject(event.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	p.logger.Debug("Published event", "subject", subject, "group_id", event.GroupID)
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// Encode serializes event as a protobuf Struct.
func Encode(event Event) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"type":        string(event.Type),
		"group_id":    event.GroupID,
		"member_id":   event.MemberID,
		"round":       event.Round,
		"amount":      event.Amount.String(),
		"occurred_at": event.OccurredAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build event: %w", err)
	}
	data, err := proto.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

// Decode is the inverse of Encode.
func Decode(data []byte) (Event, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	fields := s.GetFields()
	event := Event{
		Type:     EventType(fields["type"].GetStringValue()),
		GroupID:  fields["group_id"].GetStringValue(),
		MemberID: fields["member_id"].GetStringValue(),
		Round:    int(fields["round"].GetNumberValue()),
	}
	amount, err := decimal.NewFromString(fields["amount"].GetStringValue())
	if err != nil {
		return Event{}, fmt.Errorf("failed to parse event amount: %w", err)
	}
	event.Amount = amount
	if ts := fields["occurred_at"].GetStringValue(); ts != "" {
		if event.OccurredAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return Event{}, fmt.Errorf("failed to parse event time: %w", err)
		}
	}
	return event, nil
}
