package circle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/esusu/internal/calculator"
	"github.com/mmynk/esusu/internal/models"
	"github.com/mmynk/esusu/internal/notify/notifytest"
	"github.com/mmynk/esusu/internal/payment"
	"github.com/mmynk/esusu/internal/storage/sqlite"
	"github.com/mmynk/esusu/internal/token"
)

// Wallet ids used across the tests.
var (
	alice = wallet(0xa)
	bob   = wallet(0xb)
	carol = wallet(0xc)
	dave  = wallet(0xd)
	erin  = wallet(0xe)
)

var t0 = time.Date(2026, 4, 6, 9, 0, 0, 0, time.UTC)

func wallet(n int) string {
	return fmt.Sprintf("0x%040x", n)
}

func paymentID(n int) string {
	return fmt.Sprintf("0x%064x", n)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type countingObserver struct {
	mu            sync.Mutex
	contributions int
	payouts       int
	violations    []string
	claims        map[string]int
}

func (o *countingObserver) ObserveContribution(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.contributions++
}

func (o *countingObserver) ObservePayout() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.payouts++
}

func (o *countingObserver) ObserveInvariantViolation(code string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.violations = append(o.violations, code)
}

func (o *countingObserver) ObserveClaim(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.claims == nil {
		o.claims = map[string]int{}
	}
	o.claims[result]++
}

type testEnv struct {
	engine   *Engine
	store    *sqlite.SQLiteStore
	events   *notifytest.Recorder
	clock    *testClock
	observer *countingObserver
}

func newTestEnv(t *testing.T, maxMembers int) *testEnv {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "esusu-circle-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	env := &testEnv{
		store:    store,
		events:   &notifytest.Recorder{},
		clock:    &testClock{now: t0},
		observer: &countingObserver{},
	}
	env.engine = NewEngine(store, token.Default(), Config{MaxMembers: maxMembers},
		WithNotifier(env.events),
		WithClock(env.clock.Now),
		WithShuffler(calculator.NewSeededShuffler(1)),
		WithObserver(env.observer),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return env
}

func (env *testEnv) createGroup(t *testing.T, creator string) *models.Group {
	t.Helper()
	g, err := env.engine.CreateGroup(context.Background(), CreateGroupParams{
		Name:                 "Friday circle",
		CreatorID:            creator,
		ContributionAmount:   decimal.NewFromInt(10),
		ContributionToken:    "cUSD",
		ContributionInterval: models.IntervalWeekly,
		StartDate:            t0,
	})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return g
}

// activeGroup creates a group with members[0] as admin and joins the rest.
func (env *testEnv) activeGroup(t *testing.T, members ...string) *models.Group {
	t.Helper()
	g := env.createGroup(t, members[0])
	for _, m := range members[1:] {
		var err error
		if g, err = env.engine.JoinGroup(context.Background(), g.ID, m); err != nil {
			t.Fatalf("JoinGroup(%s) failed: %v", m, err)
		}
	}
	if g.Status != models.StatusActive {
		t.Fatalf("group status = %s after filling, want active", g.Status)
	}
	return g
}

func validated(id int, amount string) payment.ValidatedPayment {
	return payment.ValidatedPayment{
		PaymentID: paymentID(id),
		Amount:    decimal.RequireFromString(amount),
		Token:     "cUSD",
	}
}

func (env *testEnv) contribute(t *testing.T, groupID, member string, id int) RoundStatus {
	t.Helper()
	status, err := env.engine.RecordContribution(context.Background(), groupID, member, validated(id, "10"))
	if err != nil {
		t.Fatalf("RecordContribution(%s) failed: %v", member, err)
	}
	return status
}

// fundRound has every active member contribute to the current round.
func (env *testEnv) fundRound(t *testing.T, groupID string, firstPayment int) RoundStatus {
	t.Helper()
	g, err := env.engine.GetGroup(context.Background(), groupID)
	if err != nil {
		t.Fatal(err)
	}
	var status RoundStatus
	for i, m := range g.ActiveMembers() {
		status = env.contribute(t, groupID, m.UserID, firstPayment+i)
	}
	return status
}
