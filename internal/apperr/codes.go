// Package apperr provides the domain error type with stable machine-readable codes.
package apperr

// Code is a stable, machine-readable error code surfaced to API callers.
type Code string

// Kind groups codes by how a caller is expected to react.
type Kind string

const (
	KindVerification Kind = "verification"
	KindIdempotency  Kind = "idempotency"
	KindAccounting   Kind = "accounting"
	KindLifecycle    Kind = "lifecycle"
	KindNotFound     Kind = "not_found"
	KindPermission   Kind = "permission"
	KindInvalid      Kind = "invalid_argument"
	KindConflict     Kind = "conflict"
	KindFatal        Kind = "fatal"
	KindInternal     Kind = "internal"
)

const (
	// CodeUnknown represents an error that carries no domain code.
	CodeUnknown Code = "UNKNOWN"

	// Payment verification
	CodeTxNotFound         Code = "NOT_FOUND"
	CodeNotConfirmed       Code = "NOT_CONFIRMED"
	CodeStale              Code = "STALE"
	CodeWrongToken         Code = "WRONG_TOKEN"
	CodeNotATransfer       Code = "NOT_A_TRANSFER"
	CodeInsufficientAmount Code = "INSUFFICIENT_AMOUNT"
	CodeWrongRecipient     Code = "WRONG_RECIPIENT"
	CodeChainUnavailable   Code = "VERIFICATION_UNAVAILABLE"
	CodePayerMismatch      Code = "PAYER_MISMATCH"
	CodeInvalidPaymentID   Code = "INVALID_PAYMENT_ID"

	// Ledger
	CodeAlreadyUsed Code = "ALREADY_USED"

	// Accounting
	CodeInsufficientContribution Code = "INSUFFICIENT_CONTRIBUTION"
	CodeGroupNotActive           Code = "GROUP_NOT_ACTIVE"
	CodeNotAMember               Code = "NOT_A_MEMBER"
	CodeAlreadyContributed       Code = "ALREADY_CONTRIBUTED"
	CodeContributionTokenInvalid Code = "CONTRIBUTION_TOKEN_MISMATCH"
	CodeRoundNotFunded           Code = "ROUND_NOT_FUNDED"
	CodeRoundNotDue              Code = "ROUND_NOT_DUE"

	// Lifecycle
	CodeGroupFull           Code = "GROUP_FULL"
	CodeAlreadyMember       Code = "ALREADY_MEMBER"
	CodeNotAcceptingMembers Code = "NOT_ACCEPTING_MEMBERS"
	CodeGroupLocked         Code = "GROUP_LOCKED"
	CodeInvalidTransition   Code = "INVALID_TRANSITION"
	CodeNotAdmin            Code = "NOT_ADMIN"

	// Lookup and input
	CodeGroupNotFound   Code = "GROUP_NOT_FOUND"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeUnauthenticated Code = "UNAUTHENTICATED"

	// Storage
	CodeVersionConflict Code = "VERSION_CONFLICT"

	// Broken invariants
	CodeScheduleNotFound       Code = "SCHEDULE_NOT_FOUND"
	CodeScheduleExists         Code = "SCHEDULE_EXISTS"
	CodeInvariantViolation     Code = "INVARIANT_VIOLATION"
	CodeReconciliationRequired Code = "RECONCILIATION_REQUIRED"

	CodeInternal Code = "INTERNAL"
)

var kinds = map[Code]Kind{
	CodeTxNotFound:         KindVerification,
	CodeNotConfirmed:       KindVerification,
	CodeStale:              KindVerification,
	CodeWrongToken:         KindVerification,
	CodeNotATransfer:       KindVerification,
	CodeInsufficientAmount: KindVerification,
	CodeWrongRecipient:     KindVerification,
	CodeChainUnavailable:   KindVerification,
	CodePayerMismatch:      KindVerification,
	CodeInvalidPaymentID:   KindInvalid,

	CodeAlreadyUsed: KindIdempotency,

	CodeInsufficientContribution: KindAccounting,
	CodeGroupNotActive:           KindAccounting,
	CodeNotAMember:               KindAccounting,
	CodeAlreadyContributed:       KindAccounting,
	CodeContributionTokenInvalid: KindAccounting,
	CodeRoundNotFunded:           KindAccounting,
	CodeRoundNotDue:              KindAccounting,

	CodeGroupFull:           KindLifecycle,
	CodeAlreadyMember:       KindLifecycle,
	CodeNotAcceptingMembers: KindLifecycle,
	CodeGroupLocked:         KindLifecycle,
	CodeInvalidTransition:   KindLifecycle,
	CodeNotAdmin:            KindPermission,

	CodeGroupNotFound:   KindNotFound,
	CodeInvalidArgument: KindInvalid,
	CodeUnauthenticated: KindPermission,

	CodeVersionConflict: KindConflict,

	CodeScheduleNotFound:       KindFatal,
	CodeScheduleExists:         KindFatal,
	CodeInvariantViolation:     KindFatal,
	CodeReconciliationRequired: KindFatal,

	CodeInternal: KindInternal,
}

// KindOf returns the kind registered for code, or KindInternal.
func KindOf(code Code) Kind {
	if k, ok := kinds[code]; ok {
		return k
	}
	return KindInternal
}
