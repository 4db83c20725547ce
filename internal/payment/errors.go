package payment

import "github.com/mmynk/esusu/internal/apperr"

// Verification errors. Callers may resubmit with a corrected or newer payment;
// the verifier never retries on its own.
var (
	ErrNotFound           = apperr.New(apperr.CodeTxNotFound, "transaction not found")
	ErrNotConfirmed       = apperr.New(apperr.CodeNotConfirmed, "transaction not confirmed")
	ErrStale              = apperr.New(apperr.CodeStale, "transaction too old")
	ErrWrongToken         = apperr.New(apperr.CodeWrongToken, "invalid payment token")
	ErrNotATransfer       = apperr.New(apperr.CodeNotATransfer, "transaction is not a token transfer")
	ErrInsufficientAmount = apperr.New(apperr.CodeInsufficientAmount, "insufficient payment amount")
	ErrWrongRecipient     = apperr.New(apperr.CodeWrongRecipient, "invalid payment recipient")
	ErrUnavailable        = apperr.New(apperr.CodeChainUnavailable, "payment verification unavailable")
	ErrInvalidPaymentID   = apperr.New(apperr.CodeInvalidPaymentID, "invalid payment identifier")
)
