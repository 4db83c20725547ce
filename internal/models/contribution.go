package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Contribution is one admitted payment credited to a group round.
type Contribution struct {
	// PaymentID is the normalized transaction hash. It is unique platform-wide.
	PaymentID string

	GroupID  string
	MemberID string
	Round    int

	// Amount is in token units, not base units.
	Amount decimal.Decimal
	Token  string

	RecordedAt time.Time
}
