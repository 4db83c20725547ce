package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/esusu/internal/chain"
	"github.com/mmynk/esusu/internal/circle"
	"github.com/mmynk/esusu/internal/ledger"
	"github.com/mmynk/esusu/internal/models"
)

// Wire messages. Amounts travel as decimal strings.

type Member struct {
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
	Role     string    `json:"role"`
	IsActive bool      `json:"is_active"`
}

type PayoutEntry struct {
	Round         int             `json:"round"`
	Recipient     string          `json:"recipient"`
	ScheduledDate time.Time       `json:"scheduled_date"`
	PayoutDate    *time.Time      `json:"payout_date,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
}

type Group struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description,omitempty"`
	Status               string          `json:"status"`
	PausedFrom           string          `json:"paused_from,omitempty"`
	Admin                string          `json:"admin,omitempty"`
	CurrentRound         int             `json:"current_round"`
	ContributionAmount   decimal.Decimal `json:"contribution_amount"`
	ContributionToken    string          `json:"contribution_token"`
	ContributionInterval string          `json:"contribution_interval"`
	StartDate            time.Time       `json:"start_date"`
	MaxMembers           int             `json:"max_members"`
	TotalContributions   decimal.Decimal `json:"total_contributions"`
	Members              []Member        `json:"members"`
	PayoutSchedule       []PayoutEntry   `json:"payout_schedule,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

type RoundStatus struct {
	Round        int             `json:"round"`
	Collected    decimal.Decimal `json:"collected"`
	Target       decimal.Decimal `json:"target"`
	Contributors []string        `json:"contributors"`
	Missing      []string        `json:"missing"`
	MemberCount  int             `json:"member_count"`
	Funded       bool            `json:"funded"`
}

type Disbursement struct {
	Round       int             `json:"round"`
	Recipient   string          `json:"recipient"`
	Amount      decimal.Decimal `json:"amount"`
	PayoutDate  time.Time       `json:"payout_date"`
	AlreadyPaid bool            `json:"already_paid"`
	Completed   bool            `json:"completed"`
}

type GroupStats struct {
	GroupID            string          `json:"group_id"`
	Status             string          `json:"status"`
	TotalContributions decimal.Decimal `json:"total_contributions"`
	TotalPaidOut       decimal.Decimal `json:"total_paid_out"`
	CurrentRound       int             `json:"current_round"`
	TotalRounds        int             `json:"total_rounds"`
	ActiveMembers      int             `json:"active_members"`
	NextPayoutDate     *time.Time      `json:"next_payout_date,omitempty"`
	NextRecipient      string          `json:"next_recipient,omitempty"`
}

type OverdueReport struct {
	GroupID    string    `json:"group_id"`
	Round      int       `json:"round"`
	Deadline   time.Time `json:"deadline"`
	Overdue    bool      `json:"overdue"`
	Delinquent []string  `json:"delinquent,omitempty"`
}

type Contribution struct {
	PaymentID  string          `json:"payment_id"`
	MemberID   string          `json:"member_id"`
	Round      int             `json:"round"`
	Amount     decimal.Decimal `json:"amount"`
	Token      string          `json:"token"`
	RecordedAt time.Time       `json:"recorded_at"`
}

type PaymentRecord struct {
	PaymentID string          `json:"payment_id"`
	Payer     string          `json:"payer"`
	Amount    decimal.Decimal `json:"amount"`
	Token     string          `json:"token"`
	GroupID   string          `json:"group_id"`
	MemberID  string          `json:"member_id"`
	ClaimedAt time.Time       `json:"claimed_at"`
}

// GroupService requests and responses.

type CreateGroupRequest struct {
	Name                 string          `json:"name"`
	Description          string          `json:"description,omitempty"`
	ContributionAmount   decimal.Decimal `json:"contribution_amount"`
	ContributionToken    string          `json:"contribution_token"`
	ContributionInterval string          `json:"contribution_interval"`
	StartDate            *time.Time      `json:"start_date,omitempty"`
}

type GroupRequest struct {
	GroupID string `json:"group_id"`
}

type GroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupResponse struct {
	Group *Group       `json:"group"`
	Round *RoundStatus `json:"round,omitempty"`
}

type LeaveGroupResponse struct {
	Group    *Group `json:"group,omitempty"`
	Deleted  bool   `json:"deleted"`
	NewAdmin string `json:"new_admin,omitempty"`
}

type ListAvailableGroupsRequest struct {
	Limit int `json:"limit,omitempty"`
}

type ListMyGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

type GetGroupStatsResponse struct {
	Stats *GroupStats `json:"stats"`
}

type CheckOverdueRoundsResponse struct {
	Report *OverdueReport `json:"report"`
}

// ListContributionsRequest selects one round; zero selects every round.
type ListContributionsRequest struct {
	GroupID string `json:"group_id"`
	Round   int    `json:"round,omitempty"`
}

type ListContributionsResponse struct {
	Contributions []Contribution `json:"contributions"`
}

type DisburseRoundRequest struct {
	GroupID string `json:"group_id"`
	Round   int    `json:"round"`
}

type DisburseRoundResponse struct {
	Disbursement *Disbursement `json:"disbursement"`
}

// ContributionService requests and responses.

type SubmitContributionRequest struct {
	GroupID   string `json:"group_id"`
	PaymentID string `json:"payment_id"`
}

type SubmitContributionResponse struct {
	PaymentID   string          `json:"payment_id"`
	Payer       string          `json:"payer"`
	Amount      decimal.Decimal `json:"amount"`
	Token       string          `json:"token"`
	BlockNumber uint64          `json:"block_number"`
	Round       RoundStatus     `json:"round"`

	Disbursement *Disbursement `json:"disbursement,omitempty"`
	// DisbursementError is set when the contribution was recorded but the payout
	// of the funded round failed; DisburseRound retries it.
	DisbursementError string `json:"disbursement_error,omitempty"`
}

type GetPaymentStatusRequest struct {
	PaymentID string `json:"payment_id"`
}

type GetPaymentStatusResponse struct {
	PaymentID string         `json:"payment_id"`
	Used      bool           `json:"used"`
	Record    *PaymentRecord `json:"record,omitempty"`
}

func toGroup(g *models.Group) *Group {
	if g == nil {
		return nil
	}
	out := &Group{
		ID:                   g.ID,
		Name:                 g.Name,
		Description:          g.Description,
		Status:               string(g.Status),
		PausedFrom:           string(g.PausedFrom),
		CurrentRound:         g.CurrentRound,
		ContributionAmount:   g.Settings.ContributionAmount,
		ContributionToken:    g.Settings.ContributionToken,
		ContributionInterval: string(g.Settings.ContributionInterval),
		StartDate:            g.Settings.StartDate,
		MaxMembers:           g.Settings.MaxMembers,
		TotalContributions:   g.TotalContributions,
		Members:              make([]Member, len(g.Members)),
		CreatedAt:            g.CreatedAt,
		UpdatedAt:            g.UpdatedAt,
	}
	if admin, ok := g.Admin(); ok {
		out.Admin = admin.UserID
	}
	for i, m := range g.Members {
		out.Members[i] = Member{UserID: m.UserID, JoinedAt: m.JoinedAt, Role: string(m.Role), IsActive: m.IsActive}
	}
	for _, e := range g.PayoutSchedule {
		out.PayoutSchedule = append(out.PayoutSchedule, PayoutEntry{
			Round:         e.Round,
			Recipient:     e.Recipient,
			ScheduledDate: e.ScheduledDate,
			PayoutDate:    e.PayoutDate,
			Amount:        e.Amount,
			Status:        string(e.Status),
		})
	}
	return out
}

func toGroups(groups []*models.Group) []*Group {
	out := make([]*Group, len(groups))
	for i, g := range groups {
		out[i] = toGroup(g)
	}
	return out
}

func toContributions(cs []models.Contribution) []Contribution {
	out := make([]Contribution, len(cs))
	for i, c := range cs {
		out[i] = Contribution{
			PaymentID:  c.PaymentID,
			MemberID:   c.MemberID,
			Round:      c.Round,
			Amount:     c.Amount,
			Token:      c.Token,
			RecordedAt: c.RecordedAt,
		}
	}
	return out
}

func toRoundStatus(s circle.RoundStatus) RoundStatus {
	return RoundStatus{
		Round:        s.Round,
		Collected:    s.Collected,
		Target:       s.Target,
		Contributors: s.Contributors,
		Missing:      s.Missing,
		MemberCount:  s.MemberCount,
		Funded:       s.Funded,
	}
}

func toDisbursement(d *circle.DisbursementOutcome) *Disbursement {
	if d == nil {
		return nil
	}
	return &Disbursement{
		Round:       d.Round,
		Recipient:   d.Recipient,
		Amount:      d.Amount,
		PayoutDate:  d.PayoutDate,
		AlreadyPaid: d.AlreadyPaid,
		Completed:   d.Completed,
	}
}

func toPaymentRecord(r *ledger.Record) *PaymentRecord {
	return &PaymentRecord{
		PaymentID: r.PaymentID,
		Payer:     checksummed(r.Payer),
		Amount:    r.Amount,
		Token:     r.Token,
		GroupID:   r.GroupID,
		MemberID:  r.MemberID,
		ClaimedAt: r.ClaimedAt,
	}
}

// checksummed renders an address for display, falling back to addr as stored.
func checksummed(addr string) string {
	if out, err := chain.ChecksumAddress(addr); err == nil {
		return out
	}
	return addr
}
