package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/esusu/internal/apperr"
	"github.com/mmynk/esusu/internal/auth"
	"github.com/mmynk/esusu/internal/calculator"
	"github.com/mmynk/esusu/internal/chain/chaintest"
	"github.com/mmynk/esusu/internal/circle"
	"github.com/mmynk/esusu/internal/middleware"
	"github.com/mmynk/esusu/internal/payment"
	"github.com/mmynk/esusu/internal/storage/sqlite"
	"github.com/mmynk/esusu/internal/token"
)

const (
	treasury  = "0xb82896c4f251ed65186b416dbdb6f6192dfaf926"
	cUSDToken = "0x765de816845861e75a25fca122bb6898b8b1282a"
)

var (
	alice = wallet(0xa)
	bob   = wallet(0xb)
	carol = wallet(0xc)
	dave  = wallet(0xd)
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

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	groups        *GroupServiceClient
	contributions *ContributionServiceClient
	chain         *chaintest.Reader
	clock         *testClock
	jwt           *auth.JWTManager
}

// setupTestServer serves both services with a three-seat group size, an
// in-memory chain and a temp SQLite database.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "esusu-service-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := &testClock{now: t0}
	reader := chaintest.New(1000)
	registry := token.Default()

	engine := circle.NewEngine(store, registry, circle.Config{MaxMembers: 3},
		circle.WithClock(clock.Now),
		circle.WithShuffler(calculator.NewSeededShuffler(7)),
		circle.WithLogger(logger),
	)
	verifier := payment.NewVerifier(reader, registry, payment.Config{},
		payment.WithClock(clock.Now),
		payment.WithLogger(logger),
	)
	pipeline := circle.NewPipeline(engine, verifier, store,
		circle.PipelineConfig{Treasury: treasury, RequirePayerMatch: true},
		circle.WithPipelineLogger(logger),
	)

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	interceptors := connect.WithInterceptors(middleware.RequireAuth(jwtManager))

	mux := http.NewServeMux()
	mux.Handle(NewGroupServiceHandler(NewGroupService(engine, logger), interceptors))
	mux.Handle(NewContributionServiceHandler(NewContributionService(pipeline, store, logger), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testServer{
		groups:        NewGroupServiceClient(http.DefaultClient, server.URL),
		contributions: NewContributionServiceClient(http.DefaultClient, server.URL),
		chain:         reader,
		clock:         clock,
		jwt:           jwtManager,
	}
}

// as builds a request authenticated as member.
func as[T any](t *testing.T, ts *testServer, member string, msg *T) *connect.Request[T] {
	t.Helper()
	tok, err := ts.jwt.Generate(member)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+tok)
	return req
}

func expectCode(t *testing.T, err error, want connect.Code, wantDomain apperr.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", wantDomain)
	}
	if got := connect.CodeOf(err); got != want {
		t.Errorf("connect code: expected %s, got %s (%v)", want, got, err)
	}
	if got := ErrorCode(err); got != wantDomain {
		t.Errorf("domain code: expected %s, got %s", wantDomain, got)
	}
}

func (ts *testServer) createGroup(t *testing.T, admin string) *Group {
	t.Helper()
	start := t0
	resp, err := ts.groups.CreateGroup(context.Background(), as(t, ts, admin, &CreateGroupRequest{
		Name:                 "Market women",
		ContributionAmount:   decimal.NewFromInt(10),
		ContributionToken:    "cUSD",
		ContributionInterval: "weekly",
		StartDate:            &start,
	}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return resp.Msg.Group
}

func (ts *testServer) activeGroup(t *testing.T) *Group {
	t.Helper()
	g := ts.createGroup(t, alice)
	for _, m := range []string{bob, carol} {
		resp, err := ts.groups.JoinGroup(context.Background(), as(t, ts, m, &GroupRequest{GroupID: g.ID}))
		if err != nil {
			t.Fatalf("JoinGroup(%s) failed: %v", m, err)
		}
		g = resp.Msg.Group
	}
	if g.Status != "active" {
		t.Fatalf("status: expected active, got %s", g.Status)
	}
	return g
}

// pay mines a 10 cUSD transfer from payer to the treasury.
func (ts *testServer) pay(n int, payer string) string {
	hash := paymentID(n)
	ts.chain.AddTransfer(chaintest.TransferTx{
		Hash:      hash,
		From:      payer,
		Token:     cUSDToken,
		To:        treasury,
		Value:     new(big.Int).Mul(big.NewInt(10), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)),
		Block:     995,
		Timestamp: ts.clock.Now().Add(-time.Minute),
	})
	return hash
}

func (ts *testServer) submit(t *testing.T, member, groupID, hash string) (*SubmitContributionResponse, error) {
	t.Helper()
	resp, err := ts.contributions.SubmitContribution(context.Background(), as(t, ts, member, &SubmitContributionRequest{
		GroupID:   groupID,
		PaymentID: hash,
	}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
