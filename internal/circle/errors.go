package circle

import "github.com/mmynk/esusu/internal/apperr"

// Accounting and lifecycle errors returned by the engine. Compare with errors.Is.
var (
	ErrGroupNotActive           = apperr.New(apperr.CodeGroupNotActive, "group is not active")
	ErrNotAMember               = apperr.New(apperr.CodeNotAMember, "not a member of this group")
	ErrInsufficientContribution = apperr.New(apperr.CodeInsufficientContribution, "payment is below the contribution amount")
	ErrTokenMismatch            = apperr.New(apperr.CodeContributionTokenInvalid, "payment token does not match the group token")
	ErrAlreadyContributed       = apperr.New(apperr.CodeAlreadyContributed, "member already contributed to this round")
	ErrRoundNotFunded           = apperr.New(apperr.CodeRoundNotFunded, "round is not fully funded")
	ErrRoundNotDue              = apperr.New(apperr.CodeRoundNotDue, "round is not the next round due")

	ErrGroupFull           = apperr.New(apperr.CodeGroupFull, "group is full")
	ErrAlreadyMember       = apperr.New(apperr.CodeAlreadyMember, "already a member of this group")
	ErrNotAcceptingMembers = apperr.New(apperr.CodeNotAcceptingMembers, "group is not accepting new members")
	ErrGroupLocked         = apperr.New(apperr.CodeGroupLocked, "cannot leave a group once it has started")
	ErrInvalidTransition   = apperr.New(apperr.CodeInvalidTransition, "invalid status transition")
	ErrNotAdmin            = apperr.New(apperr.CodeNotAdmin, "only the group admin can do this")

	ErrScheduleNotFound       = apperr.New(apperr.CodeScheduleNotFound, "payout schedule entry not found")
	ErrPayerMismatch          = apperr.New(apperr.CodePayerMismatch, "payment was not sent by the contributing member")
	ErrReconciliationRequired = apperr.New(apperr.CodeReconciliationRequired, "payment claimed but not credited")
)

func invalidArgument(msg string) error {
	return apperr.New(apperr.CodeInvalidArgument, msg)
}
