// Package app wires the server's components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mmynk/esusu/internal/auth"
	"github.com/mmynk/esusu/internal/chain"
	"github.com/mmynk/esusu/internal/chain/rpc"
	"github.com/mmynk/esusu/internal/circle"
	"github.com/mmynk/esusu/internal/config"
	"github.com/mmynk/esusu/internal/ledger"
	"github.com/mmynk/esusu/internal/metrics"
	"github.com/mmynk/esusu/internal/middleware"
	"github.com/mmynk/esusu/internal/notify"
	"github.com/mmynk/esusu/internal/payment"
	"github.com/mmynk/esusu/internal/service"
	"github.com/mmynk/esusu/internal/storage/redis"
	"github.com/mmynk/esusu/internal/storage/sqlite"
)

// App holds the running components.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    *sqlite.SQLiteStore
	Ledger   ledger.Ledger
	Engine   *circle.Engine
	Pipeline *circle.Pipeline
	Metrics  *metrics.Metrics
	JWT      *auth.JWTManager

	closers []func() error
}

// Option customizes how New builds the App.
type Option func(*options)

type options struct {
	reader   chain.Reader
	notifier notify.Notifier
}

// WithChainReader replaces the JSON-RPC chain client.
func WithChainReader(r chain.Reader) Option {
	return func(o *options) { o.reader = r }
}

// WithNotifier replaces the notifier chosen from NATS_URL.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// New builds every component. On error, whatever was opened is closed again.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (_ *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Logger: logger, Metrics: metrics.New()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	registry, err := cfg.TokenRegistry()
	if err != nil {
		return nil, err
	}
	logger.Info("Token registry loaded", "tokens", registry.Symbols())

	a.Store, err = sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.closers = append(a.closers, a.Store.Close)
	logger.Info("Storage initialized", "database", cfg.DBPath)

	var locker circle.Locker = circle.NewKeyedMutex()
	a.Ledger = a.Store
	if cfg.LedgerBackend == config.LedgerRedis {
		client, err := redis.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		a.Ledger = redis.NewLedger(client)
		locker = redis.NewLocker(client, cfg.LockTTL, 0)
		logger.Info("Redis ledger and group lock enabled", "addr", cfg.RedisAddr)
	}

	notifier := o.notifier
	if notifier == nil && cfg.NATSURL != "" {
		pub, err := notify.Connect(cfg.NATSURL, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pub.Close)
		notifier = pub
		logger.Info("NATS notifier enabled", "url", cfg.NATSURL)
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}

	reader := o.reader
	if reader == nil {
		reader = rpc.New(cfg.ChainRPCURL, &http.Client{Timeout: cfg.ChainTimeout})
	}

	verifier := payment.NewVerifier(reader, registry, payment.Config{
		MinConfirmations: cfg.MinConfirmations,
		MaxAge:           cfg.MaxTxAge,
		Timeout:          cfg.ChainTimeout,
	}, payment.WithLogger(logger), payment.WithObserver(a.Metrics))

	a.Engine = circle.NewEngine(a.Store, registry, circle.Config{
		MaxMembers:   cfg.MaxMembers,
		OverdueGrace: cfg.OverdueGrace,
	},
		circle.WithLocker(locker),
		circle.WithNotifier(notifier),
		circle.WithObserver(a.Metrics),
		circle.WithLogger(logger),
	)
	a.Pipeline = circle.NewPipeline(a.Engine, verifier, a.Ledger, circle.PipelineConfig{
		Treasury:          cfg.TreasuryAddress,
		RequirePayerMatch: cfg.RequirePayerMatch,
	}, circle.WithPipelineLogger(logger), circle.WithClaimObserver(a.Metrics))

	a.JWT = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	return a, nil
}

// Handler returns the HTTP surface: the Connect services plus /healthz and /metrics.
func (a *App) Handler() http.Handler {
	interceptors := connect.WithInterceptors(
		middleware.MetricsInterceptor(a.Metrics),
		middleware.RequireAuth(a.JWT),
		middleware.LoggingInterceptor(a.Logger),
	)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", a.healthz)
	r.Handle("/metrics", a.Metrics.Handler())

	groupPath, groupHandler := service.NewGroupServiceHandler(service.NewGroupService(a.Engine, a.Logger), interceptors)
	r.Handle(groupPath+"*", groupHandler)
	contribPath, contribHandler := service.NewContributionServiceHandler(
		service.NewContributionService(a.Pipeline, a.Ledger, a.Logger), interceptors)
	r.Handle(contribPath+"*", contribHandler)

	return r
}

func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.Store.Ping(ctx); err != nil {
		a.Logger.Warn("Health check failed", "error", err)
		http.Error(w, `{"status":"unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// Close releases everything New opened, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Starter builds the App at most once. Concurrent and repeated Start calls
// share the first call's result, error included.
type Starter struct {
	once   sync.Once
	cfg    *config.Config
	logger *slog.Logger
	opts   []Option

	app *App
	err error
}

// NewStarter prepares a Starter; nothing is built until Start.
func NewStarter(cfg *config.Config, logger *slog.Logger, opts ...Option) *Starter {
	return &Starter{cfg: cfg, logger: logger, opts: opts}
}

// Start builds the App on first use.
func (s *Starter) Start(ctx context.Context) (*App, error) {
	s.once.Do(func() {
		s.app, s.err = New(ctx, s.cfg, s.logger, s.opts...)
	})
	return s.app, s.err
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms, "+middleware.ErrorCodeHeader)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
