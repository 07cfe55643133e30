package model

import "time"

// TopUpStatus tracks a contribution through the payment pipeline.
type TopUpStatus string

const (
	TopUpPending TopUpStatus = "Pending"
	TopUpSuccess TopUpStatus = "Success"
	TopUpFailed  TopUpStatus = "Failed"
)

type TopUp struct {
	ID            int64       `json:"id"`
	UserID        int64       `json:"user_id"`
	AmountCents   int64       `json:"amount_cents"`
	Month         string      `json:"month"`
	Status        TopUpStatus `json:"status"`
	TransactionID string      `json:"transaction_id"`
	Notes         string      `json:"notes"`
	CreatedAt     time.Time   `json:"created_at"`
}

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "Pending"
	WithdrawalApproved WithdrawalStatus = "Approved"
	WithdrawalRejected WithdrawalStatus = "Rejected"
)

type WithdrawalRequest struct {
	ID          int64            `json:"id"`
	UserID      int64            `json:"user_id"`
	AmountCents int64            `json:"amount_cents"`
	Reason      string           `json:"reason"`
	Status      WithdrawalStatus `json:"status"`
	ApprovedBy  *int64           `json:"approved_by"`
	Notes       string           `json:"notes"`
	CreatedAt   time.Time        `json:"created_at"`
}

type AuditRecord struct {
	ID                    int64     `json:"id"`
	AuditorID             int64     `json:"auditor_id"`
	Month                 string    `json:"month"`
	TotalTopUpsCents      int64     `json:"total_topups_cents"`
	TotalWithdrawalsCents int64     `json:"total_withdrawals_cents"`
	MemberCount           int       `json:"member_count"`
	Comments              string    `json:"comments"`
	CreatedAt             time.Time `json:"created_at"`
}

// FinanceSummary aggregates a member's contribution position.
type FinanceSummary struct {
	TotalContributionsCents int64 `json:"total_contributions_cents"`
	ThisMonthCents          int64 `json:"this_month_cents"`
	PendingWithdrawalCents  int64 `json:"pending_withdrawal_cents"`
	ApprovedWithdrawalCents int64 `json:"approved_withdrawal_cents"`
}

// Ranking is one row of the contribution leaderboard.
type Ranking struct {
	UserID     int64  `json:"user_id"`
	FullName   string `json:"full_name"`
	TotalCents int64  `json:"total_cents"`
}
