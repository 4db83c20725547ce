// Package redis provides a Redis-backed payment ledger and a distributed
// per-group lock.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/esusu/internal/ledger"
)

const (
	paymentKeyPrefix = "esusu:payment:"
	lockKeyPrefix    = "esusu:lock:group:"
)

// Ensure Ledger implements ledger.Ledger
var _ ledger.Ledger = (*Ledger)(nil)

// Connect dials addr and verifies the connection with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Ledger stores claimed payment identifiers as Redis keys written with SET NX.
type Ledger struct {
	client redis.UniversalClient
}

// NewLedger creates a ledger on client.
func NewLedger(client redis.UniversalClient) *Ledger {
	return &Ledger{client: client}
}

func paymentKey(paymentID string) string {
	return paymentKeyPrefix + strings.ToLower(strings.TrimSpace(paymentID))
}

// Claim writes rec under its payment key if the key does not exist yet.
func (l *Ledger) Claim(ctx context.Context, rec ledger.Record) error {
	rec.PaymentID = strings.ToLower(strings.TrimSpace(rec.PaymentID))
	if rec.ClaimedAt.IsZero() {
		rec.ClaimedAt = time.Now().UTC()
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode payment record: %w", err)
	}

	ok, err := l.client.SetNX(ctx, paymentKey(rec.PaymentID), value, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to claim payment: %w", err)
	}
	if !ok {
		return ledger.ErrAlreadyUsed
	}
	return nil
}

// IsUsed reports whether the payment key exists.
func (l *Ledger) IsUsed(ctx context.Context, paymentID string) (bool, error) {
	n, err := l.client.Exists(ctx, paymentKey(paymentID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check payment: %w", err)
	}
	return n > 0, nil
}

// Get decodes the stored record.
func (l *Ledger) Get(ctx context.Context, paymentID string) (*ledger.Record, error) {
	value, err := l.client.Get(ctx, paymentKey(paymentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	var rec ledger.Record
	if err := json.Unmarshal(value, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode payment record: %w", err)
	}
	return &rec, nil
}
