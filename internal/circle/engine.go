// Package circle implements the rotating-savings engine: group lifecycle,
// contribution accounting, payout disbursement and the contribution pipeline
// that admits on-chain payments into the accounting.
package circle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mmynk/esusu/internal/apperr"
	"github.com/mmynk/esusu/internal/calculator"
	"github.com/mmynk/esusu/internal/models"
	"github.com/mmynk/esusu/internal/notify"
	"github.com/mmynk/esusu/internal/storage"
	"github.com/mmynk/esusu/internal/token"
)

// Defaults for Config.
const (
	DefaultMaxMembers   = 5
	DefaultOverdueGrace = 48 * time.Hour
	DefaultMaxRetries   = 3
)

// Config tunes an Engine. Zero values take the defaults.
type Config struct {
	// MaxMembers is the capacity given to every new group.
	MaxMembers int

	// OverdueGrace is how long after its scheduled date a round may stay unfunded
	// before CheckOverdueRounds reports it.
	OverdueGrace time.Duration

	// MaxRetries bounds re-reads after a version conflict.
	MaxRetries int
}

// Observer receives engine outcomes, e.g. for metrics. It is optional.
type Observer interface {
	ObserveContribution(token string)
	ObservePayout()
	ObserveInvariantViolation(code string)
}

// Engine owns every group mutation. All methods are safe for concurrent use.
type Engine struct {
	store    storage.Store
	registry *token.Registry
	cfg      Config

	locker   Locker
	notifier notify.Notifier
	observer Observer
	logger   *slog.Logger
	now      func() time.Time

	shuffleMu sync.Mutex
	shuffler  calculator.Shuffler
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocker replaces the in-process group lock, e.g. with a distributed one.
func WithLocker(l Locker) Option {
	return func(e *Engine) { e.locker = l }
}

// WithNotifier sets the event sink.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithObserver reports outcomes to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithShuffler sets the source of payout order randomness.
func WithShuffler(s calculator.Shuffler) Option {
	return func(e *Engine) { e.shuffler = s }
}

// NewEngine creates an Engine.
func NewEngine(store storage.Store, registry *token.Registry, cfg Config, opts ...Option) *Engine {
	if cfg.MaxMembers < 2 {
		cfg.MaxMembers = DefaultMaxMembers
	}
	if cfg.OverdueGrace <= 0 {
		cfg.OverdueGrace = DefaultOverdueGrace
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	e := &Engine{
		store:    store,
		registry: registry,
		cfg:      cfg,
		locker:   NewKeyedMutex(),
		notifier: notify.Nop{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.shuffler == nil {
		e.shuffler = calculator.NewShuffler()
	}
	return e
}

// mutation changes a freshly loaded group and persists it. It returns the events
// to publish once the write has landed.
type mutation func(ctx context.Context, g *models.Group) ([]notify.Event, error)

// mutate runs fn on the current state of groupID while holding the group lock.
// A version conflict means another process wrote in between; fn is re-run on a
// fresh read up to MaxRetries times.
func (e *Engine) mutate(ctx context.Context, groupID string, fn mutation) (*models.Group, error) {
	unlock, err := e.locker.Lock(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock group: %w", err)
	}
	defer unlock()

	for attempt := 1; ; attempt++ {
		g, err := e.store.GetGroup(ctx, groupID)
		if err != nil {
			return nil, err
		}

		events, err := fn(ctx, g)
		if errors.Is(err, storage.ErrVersionConflict) && attempt < e.cfg.MaxRetries {
			e.logger.Debug("Retrying after version conflict", "group_id", groupID, "attempt", attempt)
			continue
		}
		if err != nil {
			return g, err
		}

		e.publish(ctx, events)
		return g, nil
	}
}

// publish hands events to the notifier. Delivery failures are logged, never
// returned: the state change already happened.
func (e *Engine) publish(ctx context.Context, events []notify.Event) {
	for _, ev := range events {
		if ev.OccurredAt.IsZero() {
			ev.OccurredAt = e.now().UTC()
		}
		if err := e.notifier.Notify(ctx, ev); err != nil {
			e.logger.Warn("Failed to publish event", "type", ev.Type, "group_id", ev.GroupID, "error", err)
		}
	}
}

// alert logs err as an operator alert and counts it.
func (e *Engine) alert(msg string, err error, attrs ...any) {
	attrs = append(attrs, "alert", true, "code", apperr.CodeOf(err), "error", err)
	e.logger.Error(msg, attrs...)
	if e.observer != nil {
		e.observer.ObserveInvariantViolation(string(apperr.CodeOf(err)))
	}
}

func (e *Engine) generateSchedule(g *models.Group) error {
	e.shuffleMu.Lock()
	defer e.shuffleMu.Unlock()
	return calculator.GenerateSchedule(g, e.shuffler)
}

// normalizeMemberID trims and lowercases a wallet id.
func normalizeMemberID(id string) (string, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return "", invalidArgument("member id is required")
	}
	return id, nil
}

func event(t notify.EventType, g *models.Group) notify.Event {
	return notify.Event{Type: t, GroupID: g.ID}
}
