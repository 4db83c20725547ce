package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/esusu/internal/apperr"
	"github.com/mmynk/esusu/internal/chain"
	"github.com/mmynk/esusu/internal/circle"
	"github.com/mmynk/esusu/internal/ledger"
	"github.com/mmynk/esusu/internal/payment"
)

// ContributionService admits on-chain payments as contributions.
type ContributionService struct {
	pipeline *circle.Pipeline
	ledger   ledger.Ledger
	logger   *slog.Logger
}

// NewContributionService creates a new ContributionService.
func NewContributionService(pipeline *circle.Pipeline, l ledger.Ledger, logger *slog.Logger) *ContributionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContributionService{pipeline: pipeline, ledger: l, logger: logger}
}

// SubmitContribution verifies the caller's payment and credits it to the group.
func (s *ContributionService) SubmitContribution(ctx context.Context, req *connect.Request[SubmitContributionRequest]) (*connect.Response[SubmitContributionResponse], error) {
	caller, err := memberID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("SubmitContribution request received",
		"group_id", req.Msg.GroupID,
		"payment_id", req.Msg.PaymentID,
	)

	res, err := s.pipeline.Submit(ctx, circle.SubmitRequest{
		GroupID:   req.Msg.GroupID,
		MemberID:  caller,
		PaymentID: req.Msg.PaymentID,
	})
	if res == nil {
		return nil, toConnectError(err)
	}

	resp := &SubmitContributionResponse{
		PaymentID:    res.PaymentID,
		Payer:        checksummed(res.Payment.Payer),
		Amount:       res.Payment.Amount,
		Token:        res.Payment.Token,
		BlockNumber:  res.Payment.BlockNumber,
		Round:        toRoundStatus(res.Round),
		Disbursement: toDisbursement(res.Disbursement),
	}
	if err != nil {
		// The contribution is recorded; only the payout failed.
		resp.DisbursementError = string(apperr.CodeOf(err))
	}
	return connect.NewResponse(resp), nil
}

// GetPaymentStatus reports whether a payment id has been consumed. The ledger
// record is only returned to the member it was credited to.
func (s *ContributionService) GetPaymentStatus(ctx context.Context, req *connect.Request[GetPaymentStatusRequest]) (*connect.Response[GetPaymentStatusResponse], error) {
	caller, err := memberID(ctx)
	if err != nil {
		return nil, err
	}
	id, err := chain.NormalizeHash(req.Msg.PaymentID)
	if err != nil {
		return nil, toConnectError(payment.ErrInvalidPaymentID.WithCause(err))
	}

	rec, err := s.ledger.Get(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return connect.NewResponse(&GetPaymentStatusResponse{PaymentID: id}), nil
	}
	if err != nil {
		return nil, toConnectError(apperr.Wrap(apperr.CodeInternal, "failed to read payment ledger", err))
	}

	resp := &GetPaymentStatusResponse{PaymentID: id, Used: true}
	if rec.MemberID == caller {
		resp.Record = toPaymentRecord(rec)
	}
	return connect.NewResponse(resp), nil
}
