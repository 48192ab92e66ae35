package repository

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type Account struct {
	ID                   pgtype.UUID        `json:"id"`
	Username             string             `json:"username"`
	Email                string             `json:"email"`
	Role                 string             `json:"role"`
	ReferrerID           pgtype.UUID        `json:"referrer_id"`
	Wallet               int64              `json:"wallet"`
	WalletTopup          int64              `json:"wallet_topup"`
	WalletWithdraw       int64              `json:"wallet_withdraw"`
	TotalInvestment      int64              `json:"total_investment"`
	DailyProfitActivated bool               `json:"daily_profit_activated"`
	LastActivationAt     pgtype.Timestamptz `json:"last_activation_at"`
	LastInvestmentAmount int64              `json:"last_investment_amount"`
	Rank                 string             `json:"rank"`
	Blocked              bool               `json:"blocked"`
	DirectReferrals      int32              `json:"direct_referrals"`
	ReferralIncome       int64              `json:"referral_income"`
	TeamBusiness         int64              `json:"team_business"`
	CreatedAt            pgtype.Timestamptz `json:"created_at"`
	UpdatedAt            pgtype.Timestamptz `json:"updated_at"`
}

type AuditLog struct {
	ID         int64              `json:"id"`
	EntityType string             `json:"entity_type"`
	EntityID   pgtype.UUID        `json:"entity_id"`
	ActorID    pgtype.UUID        `json:"actor_id"`
	Action     string             `json:"action"`
	PrevState  *string            `json:"prev_state"`
	NextState  *string            `json:"next_state"`
	Metadata   []byte             `json:"metadata"`
	CreatedAt  pgtype.Timestamptz `json:"created_at"`
}

type Deposit struct {
	ID        pgtype.UUID        `json:"id"`
	UserID    pgtype.UUID        `json:"user_id"`
	Amount    int64              `json:"amount"`
	TxHash    string             `json:"tx_hash"`
	Status    string             `json:"status"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type FundTransfer struct {
	ID         pgtype.UUID        `json:"id"`
	SenderID   pgtype.UUID        `json:"sender_id"`
	ReceiverID pgtype.UUID        `json:"receiver_id"`
	Amount     int64              `json:"amount"`
	Fee        int64              `json:"fee"`
	FromWallet string             `json:"from_wallet"`
	ToWallet   string             `json:"to_wallet"`
	Type       string             `json:"type"`
	Status     string             `json:"status"`
	Error      *string            `json:"error"`
	CreatedAt  pgtype.Timestamptz `json:"created_at"`
	UpdatedAt  pgtype.Timestamptz `json:"updated_at"`
}

type IdempotencyKey struct {
	IdempotencyKey string             `json:"idempotency_key"`
	RequestHash    string             `json:"request_hash"`
	Method         string             `json:"method"`
	Path           string             `json:"path"`
	ResponseStatus int32              `json:"response_status"`
	ResponseBody   []byte             `json:"response_body"`
	ContentType    string             `json:"content_type"`
	InProgress     bool               `json:"in_progress"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
}

type IncomeEntry struct {
	ID         pgtype.UUID        `json:"id"`
	UserID     pgtype.UUID        `json:"user_id"`
	UserIDFrom pgtype.UUID        `json:"user_id_from"`
	Type       string             `json:"type"`
	Amount     int64              `json:"amount"`
	Status     string             `json:"status"`
	Metadata   []byte             `json:"metadata"`
	CreatedAt  pgtype.Timestamptz `json:"created_at"`
}

type Investment struct {
	ID               pgtype.UUID        `json:"id"`
	UserID           pgtype.UUID        `json:"user_id"`
	Amount           int64              `json:"amount"`
	Tier             string             `json:"tier"`
	RoiPercent       decimal.Decimal    `json:"roi_percent"`
	Status           string             `json:"status"`
	CompletionReason *string            `json:"completion_reason"`
	StartDate        pgtype.Date        `json:"start_date"`
	LastProfitDate   pgtype.Date        `json:"last_profit_date"`
	CreatedAt        pgtype.Timestamptz `json:"created_at"`
	UpdatedAt        pgtype.Timestamptz `json:"updated_at"`
}

type TeamReward struct {
	ID          pgtype.UUID        `json:"id"`
	UserID      pgtype.UUID        `json:"user_id"`
	Tier        string             `json:"tier"`
	Amount      int64              `json:"amount"`
	Status      string             `json:"status"`
	EndDate     pgtype.Timestamptz `json:"end_date"`
	CompletedAt pgtype.Timestamptz `json:"completed_at"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
}

type TradeActivation struct {
	ID             pgtype.UUID        `json:"id"`
	UserID         pgtype.UUID        `json:"user_id"`
	ActivationDate pgtype.Date        `json:"activation_date"`
	Status         string             `json:"status"`
	ExpiryDate     pgtype.Timestamptz `json:"expiry_date"`
	ProfitStatus   string             `json:"profit_status"`
	ProfitAmount   int64              `json:"profit_amount"`
	ProfitError    *string            `json:"profit_error"`
	ProcessedAt    pgtype.Timestamptz `json:"processed_at"`
	CommissionPaid bool               `json:"commission_paid"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
}

type Withdrawal struct {
	ID             pgtype.UUID        `json:"id"`
	UserID         pgtype.UUID        `json:"user_id"`
	Amount         int64              `json:"amount"`
	Fee            int64              `json:"fee"`
	NetAmount      int64              `json:"net_amount"`
	Destination    string             `json:"destination"`
	Status         string             `json:"status"`
	Extra          []byte             `json:"extra"`
	ResolvedBy     pgtype.UUID        `json:"resolved_by"`
	ResolutionNote *string            `json:"resolution_note"`
	ResolvedAt     pgtype.Timestamptz `json:"resolved_at"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
}
