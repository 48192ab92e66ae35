package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const accountColumns = `id, username, email, role, referrer_id, wallet, wallet_topup, wallet_withdraw,
    total_investment, daily_profit_activated, last_activation_at, last_investment_amount,
    rank, blocked, direct_referrals, referral_income, team_business, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (Account, error) {
	var i Account
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.Role,
		&i.ReferrerID,
		&i.Wallet,
		&i.WalletTopup,
		&i.WalletWithdraw,
		&i.TotalInvestment,
		&i.DailyProfitActivated,
		&i.LastActivationAt,
		&i.LastInvestmentAmount,
		&i.Rank,
		&i.Blocked,
		&i.DirectReferrals,
		&i.ReferralIncome,
		&i.TeamBusiness,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createAccount = `-- name: CreateAccount :one
INSERT INTO accounts (id, username, email, role, referrer_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + accountColumns

type CreateAccountParams struct {
	ID         pgtype.UUID `json:"id"`
	Username   string      `json:"username"`
	Email      string      `json:"email"`
	Role       string      `json:"role"`
	ReferrerID pgtype.UUID `json:"referrer_id"`
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error) {
	row := q.db.QueryRow(ctx, createAccount, arg.ID, arg.Username, arg.Email, arg.Role, arg.ReferrerID)
	return scanAccount(row)
}

const getAccount = `-- name: GetAccount :one
SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

func (q *Queries) GetAccount(ctx context.Context, id pgtype.UUID) (Account, error) {
	return scanAccount(q.db.QueryRow(ctx, getAccount, id))
}

const getAccountForUpdate = `-- name: GetAccountForUpdate :one
SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

func (q *Queries) GetAccountForUpdate(ctx context.Context, id pgtype.UUID) (Account, error) {
	return scanAccount(q.db.QueryRow(ctx, getAccountForUpdate, id))
}

const getAccountByUsername = `-- name: GetAccountByUsername :one
SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`

func (q *Queries) GetAccountByUsername(ctx context.Context, username string) (Account, error) {
	return scanAccount(q.db.QueryRow(ctx, getAccountByUsername, username))
}

const applyBalanceDelta = `-- name: ApplyBalanceDelta :execrows
UPDATE accounts
SET wallet = wallet + $2,
    wallet_topup = wallet_topup + $3,
    wallet_withdraw = wallet_withdraw + $4,
    total_investment = total_investment + $5,
    updated_at = NOW()
WHERE id = $1
  AND wallet + $2 >= 0
  AND wallet_topup + $3 >= 0
  AND wallet_withdraw + $4 >= 0
  AND total_investment + $5 >= 0`

// ApplyBalanceDeltaParams carries signed deltas per balance column.
type ApplyBalanceDeltaParams struct {
	ID              pgtype.UUID `json:"id"`
	Wallet          int64       `json:"wallet"`
	WalletTopup     int64       `json:"wallet_topup"`
	WalletWithdraw  int64       `json:"wallet_withdraw"`
	TotalInvestment int64       `json:"total_investment"`
}

// ApplyBalanceDelta returns 0 rows when the account is missing or a column
// would go negative.
func (q *Queries) ApplyBalanceDelta(ctx context.Context, arg ApplyBalanceDeltaParams) (int64, error) {
	result, err := q.db.Exec(ctx, applyBalanceDelta,
		arg.ID,
		arg.Wallet,
		arg.WalletTopup,
		arg.WalletWithdraw,
		arg.TotalInvestment,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const setDailyProfitActivated = `-- name: SetDailyProfitActivated :exec
UPDATE accounts
SET daily_profit_activated = $2,
    last_activation_at = COALESCE($3, last_activation_at),
    updated_at = NOW()
WHERE id = $1`

type SetDailyProfitActivatedParams struct {
	ID               pgtype.UUID        `json:"id"`
	Activated        bool               `json:"activated"`
	LastActivationAt pgtype.Timestamptz `json:"last_activation_at"`
}

func (q *Queries) SetDailyProfitActivated(ctx context.Context, arg SetDailyProfitActivatedParams) error {
	_, err := q.db.Exec(ctx, setDailyProfitActivated, arg.ID, arg.Activated, arg.LastActivationAt)
	return err
}

const setLastInvestmentAmount = `-- name: SetLastInvestmentAmount :exec
UPDATE accounts SET last_investment_amount = $2, updated_at = NOW() WHERE id = $1`

type SetLastInvestmentAmountParams struct {
	ID     pgtype.UUID `json:"id"`
	Amount int64       `json:"amount"`
}

func (q *Queries) SetLastInvestmentAmount(ctx context.Context, arg SetLastInvestmentAmountParams) error {
	_, err := q.db.Exec(ctx, setLastInvestmentAmount, arg.ID, arg.Amount)
	return err
}

const incrementReferralCounters = `-- name: IncrementReferralCounters :exec
UPDATE accounts
SET direct_referrals = direct_referrals + $2,
    referral_income = referral_income + $3,
    updated_at = NOW()
WHERE id = $1`

type IncrementReferralCountersParams struct {
	ID              pgtype.UUID `json:"id"`
	DirectReferrals int32       `json:"direct_referrals"`
	ReferralIncome  int64       `json:"referral_income"`
}

func (q *Queries) IncrementReferralCounters(ctx context.Context, arg IncrementReferralCountersParams) error {
	_, err := q.db.Exec(ctx, incrementReferralCounters, arg.ID, arg.DirectReferrals, arg.ReferralIncome)
	return err
}

const addTeamBusiness = `-- name: AddTeamBusiness :exec
UPDATE accounts SET team_business = team_business + $2, updated_at = NOW() WHERE id = $1`

type AddTeamBusinessParams struct {
	ID     pgtype.UUID `json:"id"`
	Amount int64       `json:"amount"`
}

func (q *Queries) AddTeamBusiness(ctx context.Context, arg AddTeamBusinessParams) error {
	_, err := q.db.Exec(ctx, addTeamBusiness, arg.ID, arg.Amount)
	return err
}

const setAccountRank = `-- name: SetAccountRank :exec
UPDATE accounts SET rank = $2, updated_at = NOW() WHERE id = $1`

type SetAccountRankParams struct {
	ID   pgtype.UUID `json:"id"`
	Rank string      `json:"rank"`
}

func (q *Queries) SetAccountRank(ctx context.Context, arg SetAccountRankParams) error {
	_, err := q.db.Exec(ctx, setAccountRank, arg.ID, arg.Rank)
	return err
}

const setAccountBlocked = `-- name: SetAccountBlocked :execrows
UPDATE accounts SET blocked = $2, updated_at = NOW() WHERE id = $1`

type SetAccountBlockedParams struct {
	ID      pgtype.UUID `json:"id"`
	Blocked bool        `json:"blocked"`
}

func (q *Queries) SetAccountBlocked(ctx context.Context, arg SetAccountBlockedParams) (int64, error) {
	result, err := q.db.Exec(ctx, setAccountBlocked, arg.ID, arg.Blocked)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listActivatedAccounts = `-- name: ListActivatedAccounts :many
SELECT ` + accountColumns + ` FROM accounts
WHERE daily_profit_activated
ORDER BY id
LIMIT $1 OFFSET $2`

type ListActivatedAccountsParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListActivatedAccounts(ctx context.Context, arg ListActivatedAccountsParams) ([]Account, error) {
	rows, err := q.db.Query(ctx, listActivatedAccounts, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		i, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listAccountsByMinTeamBusiness = `-- name: ListAccountsByMinTeamBusiness :many
SELECT ` + accountColumns + ` FROM accounts
WHERE team_business >= $1
ORDER BY id
LIMIT $2 OFFSET $3`

type ListAccountsByMinTeamBusinessParams struct {
	MinTeamBusiness int64 `json:"min_team_business"`
	Limit           int32 `json:"limit"`
	Offset          int32 `json:"offset"`
}

func (q *Queries) ListAccountsByMinTeamBusiness(ctx context.Context, arg ListAccountsByMinTeamBusinessParams) ([]Account, error) {
	rows, err := q.db.Query(ctx, listAccountsByMinTeamBusiness, arg.MinTeamBusiness, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		i, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listStakeDrift = `-- name: ListStakeDrift :many
SELECT a.id, a.total_investment, COALESCE(SUM(i.amount) FILTER (WHERE i.status = 'active'), 0)::BIGINT AS active_sum
FROM accounts a
LEFT JOIN investments i ON i.user_id = a.id
GROUP BY a.id, a.total_investment
HAVING a.total_investment <> COALESCE(SUM(i.amount) FILTER (WHERE i.status = 'active'), 0)
ORDER BY a.id
LIMIT $1`

type StakeDriftRow struct {
	UserID          pgtype.UUID `json:"user_id"`
	TotalInvestment int64       `json:"total_investment"`
	ActiveSum       int64       `json:"active_sum"`
}

func (q *Queries) ListStakeDrift(ctx context.Context, limit int32) ([]StakeDriftRow, error) {
	rows, err := q.db.Query(ctx, listStakeDrift, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []StakeDriftRow
	for rows.Next() {
		var i StakeDriftRow
		if err := rows.Scan(&i.UserID, &i.TotalInvestment, &i.ActiveSum); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
