package circle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/esusu/internal/apperr"
	"github.com/mmynk/esusu/internal/chain"
	"github.com/mmynk/esusu/internal/ledger"
	"github.com/mmynk/esusu/internal/payment"
)

// PaymentVerifier checks a payment on chain. *payment.Verifier satisfies it.
type PaymentVerifier interface {
	Verify(ctx context.Context, claim payment.Claim) (*payment.ValidatedPayment, error)
}

// ClaimObserver counts ledger claim outcomes. It is optional.
type ClaimObserver interface {
	ObserveClaim(result string)
}

// PipelineConfig tunes a Pipeline.
type PipelineConfig struct {
	// Treasury is the address every contribution must be paid to.
	Treasury string

	// RequirePayerMatch rejects payments whose sender is not the contributing
	// member's wallet.
	RequirePayerMatch bool
}

// SubmitRequest asks to credit an on-chain payment to a member's contribution.
type SubmitRequest struct {
	GroupID   string
	MemberID  string
	PaymentID string
}

// SubmitResult describes an admitted contribution.
type SubmitResult struct {
	PaymentID string
	Payment   *payment.ValidatedPayment
	Round     RoundStatus

	// Disbursement is set when the contribution funded the round and the
	// payout went through.
	Disbursement *DisbursementOutcome
}

// Pipeline is the only path by which a payment becomes a contribution:
// verify, claim exactly once, then record.
type Pipeline struct {
	engine   *Engine
	verifier PaymentVerifier
	ledger   ledger.Ledger
	cfg      PipelineConfig
	logger   *slog.Logger
	observer ClaimObserver
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger sets the logger.
func WithPipelineLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// WithClaimObserver reports claim outcomes.
func WithClaimObserver(o ClaimObserver) PipelineOption {
	return func(p *Pipeline) { p.observer = o }
}

// NewPipeline creates a Pipeline.
func NewPipeline(engine *Engine, verifier PaymentVerifier, l ledger.Ledger, cfg PipelineConfig, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		engine:   engine,
		verifier: verifier,
		ledger:   l,
		cfg:      cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit runs a payment through the ledger pre-check, eligibility, verification,
// the ledger claim and accounting, and disburses the round if this contribution funded it.
//
// Once the claim succeeds the payment identifier is consumed for good. If
// accounting then fails the error is RECONCILIATION_REQUIRED and an operator
// has to credit the contribution by hand. If only the disbursement fails the
// result is returned together with the error; DisburseRound can be retried.
func (p *Pipeline) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	paymentID, err := chain.NormalizeHash(req.PaymentID)
	if err != nil {
		return nil, payment.ErrInvalidPaymentID.WithCause(err)
	}
	memberID, err := normalizeMemberID(req.MemberID)
	if err != nil {
		return nil, err
	}
	logger := p.logger.With("group_id", req.GroupID, "member", memberID, "payment_id", paymentID)

	// Consumed ids fail before eligibility: a redelivery is ALREADY_USED.
	used, err := p.ledger.IsUsed(ctx, paymentID)
	if err != nil {
		// Fail closed: an unreadable ledger must not let a payment through.
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to check payment ledger", err)
	}
	if used {
		return nil, ledger.ErrAlreadyUsed
	}

	g, err := p.engine.CheckEligibility(ctx, req.GroupID, memberID)
	if err != nil {
		return nil, err
	}

	vp, err := p.verifier.Verify(ctx, payment.Claim{
		PaymentID:         paymentID,
		ExpectedAmount:    g.Settings.ContributionAmount,
		ExpectedToken:     g.Settings.ContributionToken,
		ExpectedRecipient: p.cfg.Treasury,
	})
	if err != nil {
		return nil, err
	}

	if p.cfg.RequirePayerMatch && !chain.SameAddress(vp.Payer, memberID) {
		return nil, ErrPayerMismatch.WithCause(fmt.Errorf("sent by %s", vp.Payer))
	}

	err = p.ledger.Claim(ctx, ledger.Record{
		PaymentID: paymentID,
		Payer:     vp.Payer,
		Amount:    vp.Amount,
		Token:     vp.Token,
		GroupID:   g.ID,
		MemberID:  memberID,
	})
	p.observeClaim(err)
	if errors.Is(err, ledger.ErrAlreadyUsed) {
		logger.Info("Payment claimed concurrently")
		return nil, err
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to claim payment", err)
	}

	status, err := p.engine.RecordContribution(ctx, g.ID, memberID, *vp)
	if err != nil {
		rerr := ErrReconciliationRequired.WithCause(err)
		p.engine.alert("Claimed payment could not be credited", rerr,
			"group_id", g.ID, "member", memberID, "payment_id", paymentID, "amount", vp.Amount.String())
		return nil, rerr
	}

	result := &SubmitResult{PaymentID: paymentID, Payment: vp, Round: status}
	if !status.Funded {
		return result, nil
	}

	out, err := p.engine.Disburse(ctx, g.ID, status.Round)
	if err != nil {
		logger.Warn("Funded round could not be disbursed", "round", status.Round, "error", err)
		return result, err
	}
	result.Disbursement = out
	return result, nil
}

func (p *Pipeline) observeClaim(err error) {
	if p.observer == nil {
		return
	}
	switch {
	case err == nil:
		p.observer.ObserveClaim("claimed")
	case errors.Is(err, ledger.ErrAlreadyUsed):
		p.observer.ObserveClaim("already_used")
	default:
		p.observer.ObserveClaim("error")
	}
}
