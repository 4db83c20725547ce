// Package payment validates that a claimed on-chain ERC20 transfer is real, final,
// fresh, and pays the expected recipient at least the expected amount.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/esusu/internal/apperr"
	"github.com/mmynk/esusu/internal/chain"
	"github.com/mmynk/esusu/internal/token"
)

const (
	DefaultMinConfirmations = 1
	DefaultMaxAge           = 10 * time.Minute
	DefaultTimeout          = 5 * time.Second
)

// Claim is what a caller asserts about a payment.
type Claim struct {
	PaymentID         string
	ExpectedAmount    decimal.Decimal
	ExpectedToken     string
	ExpectedRecipient string
}

// ValidatedPayment is a payment that passed every verification step.
type ValidatedPayment struct {
	PaymentID string
	Payer     string

	// Amount is the transferred value in token units.
	Amount decimal.Decimal
	Token  string

	BlockNumber    uint64
	BlockTimestamp time.Time
}

// Observer receives the outcome of each verification. It is optional.
type Observer interface {
	ObserveVerification(result string)
}

// Config tunes a Verifier. Zero values take the defaults.
type Config struct {
	MinConfirmations uint64
	MaxAge           time.Duration
	Timeout          time.Duration
}

// Verifier checks payments against a chain reader and a token registry.
type Verifier struct {
	reader   chain.Reader
	registry *token.Registry
	cfg      Config
	now      func() time.Time
	logger   *slog.Logger
	observer Observer
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithClock overrides the wall clock used for staleness.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

// WithObserver reports verification outcomes, e.g. to metrics.
func WithObserver(o Observer) Option {
	return func(v *Verifier) { v.observer = o }
}

// NewVerifier creates a Verifier.
func NewVerifier(reader chain.Reader, registry *token.Registry, cfg Config, opts ...Option) *Verifier {
	if cfg.MinConfirmations == 0 {
		cfg.MinConfirmations = DefaultMinConfirmations
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	v := &Verifier{
		reader:   reader,
		registry: registry,
		cfg:      cfg,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify runs every check in order and stops at the first failure.
// The whole call shares one timeout; a reader failure or timeout fails closed.
func (v *Verifier) Verify(ctx context.Context, claim Claim) (*ValidatedPayment, error) {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	vp, err := v.verify(ctx, claim)
	if v.observer != nil {
		v.observer.ObserveVerification(resultLabel(err))
	}
	if err != nil {
		v.logger.Warn("Payment verification failed",
			"payment_id", claim.PaymentID,
			"token", claim.ExpectedToken,
			"error", err,
		)
		return nil, err
	}
	v.logger.Debug("Payment verified",
		"payment_id", vp.PaymentID,
		"payer", vp.Payer,
		"amount", vp.Amount.String(),
		"block", vp.BlockNumber,
	)
	return vp, nil
}

func (v *Verifier) verify(ctx context.Context, claim Claim) (*ValidatedPayment, error) {
	hash, err := chain.NormalizeHash(claim.PaymentID)
	if err != nil {
		return nil, ErrInvalidPaymentID.WithCause(err)
	}

	// 1. transaction exists
	tx, err := v.reader.GetTransaction(ctx, hash)
	if err != nil {
		return nil, readerError(err, ErrNotFound)
	}

	// 2. receipt exists and execution succeeded
	receipt, err := v.reader.GetReceipt(ctx, hash)
	if err != nil {
		return nil, readerError(err, ErrNotConfirmed)
	}
	if !receipt.Succeeded() {
		return nil, ErrNotConfirmed.WithCause(errors.New("on-chain transaction failed"))
	}

	// 3. confirmation depth
	height, err := v.reader.CurrentBlockHeight(ctx)
	if err != nil {
		return nil, ErrUnavailable.WithCause(err)
	}
	if height < receipt.BlockNumber || height-receipt.BlockNumber < v.cfg.MinConfirmations {
		return nil, ErrNotConfirmed.WithCause(fmt.Errorf("block %d at height %d has fewer than %d confirmations",
			receipt.BlockNumber, height, v.cfg.MinConfirmations))
	}

	// 4. freshness; the MaxAge boundary itself is accepted
	blockTime, err := v.reader.GetBlockTimestamp(ctx, receipt.BlockNumber)
	if err != nil {
		return nil, ErrUnavailable.WithCause(fmt.Errorf("unable to fetch block for transaction: %w", err))
	}
	if age := v.now().Sub(blockTime); age > v.cfg.MaxAge {
		return nil, ErrStale.WithCause(fmt.Errorf("age %s exceeds %s", age.Truncate(time.Second), v.cfg.MaxAge))
	}

	// 5. the call targets the expected token contract
	tok, ok := v.registry.Lookup(claim.ExpectedToken)
	if !ok {
		return nil, ErrWrongToken.WithCause(fmt.Errorf("unsupported token %q", claim.ExpectedToken))
	}
	if !chain.SameAddress(tx.To, tok.Address) {
		return nil, ErrWrongToken.WithCause(fmt.Errorf("transaction sent to %s, not %s contract", tx.To, tok.Symbol))
	}

	// 6. call-data is transfer(to, value)
	transfer, err := DecodeTransfer(tx.Data)
	if err != nil {
		return nil, ErrNotATransfer.WithCause(err)
	}

	// 7. value covers the expected amount at the token's precision
	decimals := v.decimals(ctx, tok)
	required := token.ToBaseUnits(claim.ExpectedAmount, decimals)
	if transfer.Value.Cmp(required) < 0 {
		return nil, ErrInsufficientAmount.WithCause(fmt.Errorf("transferred %s base units, need %s", transfer.Value, required))
	}

	// 8. funds go to the expected recipient
	if !chain.SameAddress(transfer.To, claim.ExpectedRecipient) {
		return nil, ErrWrongRecipient.WithCause(fmt.Errorf("transfer pays %s", transfer.To))
	}

	payer, err := chain.NormalizeAddress(tx.From)
	if err != nil {
		return nil, ErrUnavailable.WithCause(fmt.Errorf("reader returned invalid sender: %w", err))
	}

	return &ValidatedPayment{
		PaymentID:      hash,
		Payer:          payer,
		Amount:         token.FromBaseUnits(transfer.Value, decimals),
		Token:          tok.Symbol,
		BlockNumber:    receipt.BlockNumber,
		BlockTimestamp: blockTime,
	}, nil
}

// decimals asks the token contract when the reader supports it and falls back to
// the registry value otherwise.
func (v *Verifier) decimals(ctx context.Context, tok token.Token) int32 {
	dr, ok := v.reader.(chain.DecimalsReader)
	if !ok {
		return tok.Decimals
	}
	d, err := dr.TokenDecimals(ctx, tok.Address)
	if err != nil {
		v.logger.Debug("Falling back to registry decimals", "token", tok.Symbol, "error", err)
		return tok.Decimals
	}
	if d != tok.Decimals {
		v.logger.Warn("Token contract decimals differ from registry",
			"token", tok.Symbol, "contract", d, "registry", tok.Decimals)
	}
	return d
}

// readerError maps chain.ErrNotFound to notFound and anything else, including
// timeouts, to ErrUnavailable.
func readerError(err error, notFound *apperr.Error) error {
	if errors.Is(err, chain.ErrNotFound) {
		return notFound.WithCause(err)
	}
	return ErrUnavailable.WithCause(err)
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperr.CodeOf(err))
}
