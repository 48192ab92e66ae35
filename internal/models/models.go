// Package models holds the JSON shapes the API returns. Amounts are micros.
package models

import (
	"encoding/json"
	"time"

	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Balances struct {
	Main              int64  `json:"main_micros"`
	Topup             int64  `json:"topup_micros"`
	PendingWithdrawal int64  `json:"pending_withdrawal_micros"`
	Stake             int64  `json:"stake_micros"`
	Display           string `json:"main_display"`
}

type Account struct {
	ID                   uuid.UUID  `json:"id"`
	Username             string     `json:"username"`
	Email                string     `json:"email"`
	Role                 string     `json:"role"`
	ReferrerID           *uuid.UUID `json:"referrer_id,omitempty"`
	Balances             Balances   `json:"balances"`
	DailyProfitActivated bool       `json:"daily_profit_activated"`
	LastActivationAt     *time.Time `json:"last_activation_at,omitempty"`
	LastInvestment       int64      `json:"last_investment_micros"`
	Rank                 string     `json:"rank"`
	Blocked              bool       `json:"blocked"`
	DirectReferrals      int32      `json:"direct_referrals"`
	ReferralIncome       int64      `json:"referral_income_micros"`
	TeamBusiness         int64      `json:"team_business_micros"`
	CreatedAt            time.Time  `json:"created_at"`
}

func NewAccount(a repository.Account) Account {
	return Account{
		ID:         repository.FromPgUUID(a.ID),
		Username:   a.Username,
		Email:      a.Email,
		Role:       a.Role,
		ReferrerID: uuidPtr(a.ReferrerID),
		Balances: Balances{
			Main:              a.Wallet,
			Topup:             a.WalletTopup,
			PendingWithdrawal: a.WalletWithdraw,
			Stake:             a.TotalInvestment,
			Display:           domain.NewMoney(a.Wallet).String(),
		},
		DailyProfitActivated: a.DailyProfitActivated,
		LastActivationAt:     timePtr(a.LastActivationAt),
		LastInvestment:       a.LastInvestmentAmount,
		Rank:                 a.Rank,
		Blocked:              a.Blocked,
		DirectReferrals:      a.DirectReferrals,
		ReferralIncome:       a.ReferralIncome,
		TeamBusiness:         a.TeamBusiness,
		CreatedAt:            a.CreatedAt.Time,
	}
}

type Investment struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	Amount           int64     `json:"amount_micros"`
	Tier             string    `json:"tier"`
	ROIPercent       string    `json:"roi_percent"`
	Status           string    `json:"status"`
	CompletionReason string    `json:"completion_reason,omitempty"`
	StartDate        string    `json:"start_date"`
	LastProfitDate   string    `json:"last_profit_date,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func NewInvestment(i repository.Investment) Investment {
	return Investment{
		ID:               repository.FromPgUUID(i.ID),
		UserID:           repository.FromPgUUID(i.UserID),
		Amount:           i.Amount,
		Tier:             i.Tier,
		ROIPercent:       i.RoiPercent.String(),
		Status:           i.Status,
		CompletionReason: deref(i.CompletionReason),
		StartDate:        date(i.StartDate),
		LastProfitDate:   date(i.LastProfitDate),
		CreatedAt:        i.CreatedAt.Time,
	}
}

type Activation struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	Date           string     `json:"activation_date"`
	Status         string     `json:"status"`
	ExpiresAt      time.Time  `json:"expires_at"`
	ProfitStatus   string     `json:"profit_status"`
	ProfitAmount   int64      `json:"profit_amount_micros"`
	ProfitError    string     `json:"profit_error,omitempty"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	CommissionPaid bool       `json:"commission_paid"`
}

func NewActivation(a repository.TradeActivation) Activation {
	return Activation{
		ID:             repository.FromPgUUID(a.ID),
		UserID:         repository.FromPgUUID(a.UserID),
		Date:           date(a.ActivationDate),
		Status:         a.Status,
		ExpiresAt:      a.ExpiryDate.Time,
		ProfitStatus:   a.ProfitStatus,
		ProfitAmount:   a.ProfitAmount,
		ProfitError:    deref(a.ProfitError),
		ProcessedAt:    timePtr(a.ProcessedAt),
		CommissionPaid: a.CommissionPaid,
	}
}

type Withdrawal struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	Amount         int64           `json:"amount_micros"`
	Fee            int64           `json:"fee_micros"`
	NetAmount      int64           `json:"net_amount_micros"`
	Destination    string          `json:"destination"`
	Status         string          `json:"status"`
	Extra          json.RawMessage `json:"extra,omitempty"`
	ResolvedBy     *uuid.UUID      `json:"resolved_by,omitempty"`
	ResolutionNote string          `json:"resolution_note,omitempty"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func NewWithdrawal(w repository.Withdrawal) Withdrawal {
	out := Withdrawal{
		ID:             repository.FromPgUUID(w.ID),
		UserID:         repository.FromPgUUID(w.UserID),
		Amount:         w.Amount,
		Fee:            w.Fee,
		NetAmount:      w.NetAmount,
		Destination:    w.Destination,
		Status:         w.Status,
		ResolvedBy:     uuidPtr(w.ResolvedBy),
		ResolutionNote: deref(w.ResolutionNote),
		ResolvedAt:     timePtr(w.ResolvedAt),
		CreatedAt:      w.CreatedAt.Time,
	}
	if json.Valid(w.Extra) {
		out.Extra = json.RawMessage(w.Extra)
	}
	return out
}

type Income struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	FromUser  *uuid.UUID      `json:"user_id_from,omitempty"`
	Type      string          `json:"type"`
	Amount    int64           `json:"amount_micros"`
	Status    string          `json:"status"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func NewIncome(e repository.IncomeEntry) Income {
	out := Income{
		ID:        repository.FromPgUUID(e.ID),
		UserID:    repository.FromPgUUID(e.UserID),
		FromUser:  uuidPtr(e.UserIDFrom),
		Type:      e.Type,
		Amount:    e.Amount,
		Status:    e.Status,
		CreatedAt: e.CreatedAt.Time,
	}
	if len(e.Metadata) > 0 && json.Valid(e.Metadata) {
		out.Metadata = json.RawMessage(e.Metadata)
	}
	return out
}

type Transfer struct {
	ID         uuid.UUID  `json:"id"`
	SenderID   *uuid.UUID `json:"sender_id,omitempty"`
	ReceiverID uuid.UUID  `json:"receiver_id"`
	Amount     int64      `json:"amount_micros"`
	Fee        int64      `json:"fee_micros"`
	FromWallet string     `json:"from_wallet,omitempty"`
	ToWallet   string     `json:"to_wallet"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

func NewTransfer(t repository.FundTransfer) Transfer {
	return Transfer{
		ID:         repository.FromPgUUID(t.ID),
		SenderID:   uuidPtr(t.SenderID),
		ReceiverID: repository.FromPgUUID(t.ReceiverID),
		Amount:     t.Amount,
		Fee:        t.Fee,
		FromWallet: t.FromWallet,
		ToWallet:   t.ToWallet,
		Type:       t.Type,
		Status:     t.Status,
		CreatedAt:  t.CreatedAt.Time,
	}
}

type TeamReward struct {
	ID          uuid.UUID  `json:"id"`
	Tier        string     `json:"tier"`
	Amount      int64      `json:"amount_micros"`
	Status      string     `json:"status"`
	EndsAt      time.Time  `json:"ends_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func NewTeamReward(r repository.TeamReward) TeamReward {
	return TeamReward{
		ID:          repository.FromPgUUID(r.ID),
		Tier:        r.Tier,
		Amount:      r.Amount,
		Status:      r.Status,
		EndsAt:      r.EndDate.Time,
		CompletedAt: timePtr(r.CompletedAt),
	}
}

type AuditEntry struct {
	Action    string          `json:"action"`
	ActorID   *uuid.UUID      `json:"actor_id,omitempty"`
	PrevState string          `json:"prev_state,omitempty"`
	NextState string          `json:"next_state,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func NewAuditEntry(a repository.AuditLog) AuditEntry {
	out := AuditEntry{
		Action:    a.Action,
		ActorID:   uuidPtr(a.ActorID),
		PrevState: deref(a.PrevState),
		NextState: deref(a.NextState),
		CreatedAt: a.CreatedAt.Time,
	}
	if len(a.Metadata) > 0 && json.Valid(a.Metadata) {
		out.Metadata = json.RawMessage(a.Metadata)
	}
	return out
}

// List converts every row with fn; it never returns nil so empty lists encode as [].
func List[R, M any](rows []R, fn func(R) M) []M {
	out := make([]M, 0, len(rows))
	for _, r := range rows {
		out = append(out, fn(r))
	}
	return out
}

func uuidPtr(id pgtype.UUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	v := uuid.UUID(id.Bytes)
	return &v
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func date(d pgtype.Date) string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(time.DateOnly)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
