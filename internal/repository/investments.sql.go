package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const investmentColumns = `id, user_id, amount, tier, roi_percent, status, completion_reason,
    start_date, last_profit_date, created_at, updated_at`

func scanInvestment(row interface{ Scan(...any) error }) (Investment, error) {
	var i Investment
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Amount,
		&i.Tier,
		&i.RoiPercent,
		&i.Status,
		&i.CompletionReason,
		&i.StartDate,
		&i.LastProfitDate,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createInvestment = `-- name: CreateInvestment :one
INSERT INTO investments (id, user_id, amount, tier, roi_percent, status, start_date)
VALUES ($1, $2, $3, $4, $5, 'active', $6)
RETURNING ` + investmentColumns

type CreateInvestmentParams struct {
	ID         pgtype.UUID     `json:"id"`
	UserID     pgtype.UUID     `json:"user_id"`
	Amount     int64           `json:"amount"`
	Tier       string          `json:"tier"`
	RoiPercent decimal.Decimal `json:"roi_percent"`
	StartDate  pgtype.Date     `json:"start_date"`
}

func (q *Queries) CreateInvestment(ctx context.Context, arg CreateInvestmentParams) (Investment, error) {
	row := q.db.QueryRow(ctx, createInvestment,
		arg.ID,
		arg.UserID,
		arg.Amount,
		arg.Tier,
		arg.RoiPercent,
		arg.StartDate,
	)
	return scanInvestment(row)
}

const getInvestment = `-- name: GetInvestment :one
SELECT ` + investmentColumns + ` FROM investments WHERE id = $1`

func (q *Queries) GetInvestment(ctx context.Context, id pgtype.UUID) (Investment, error) {
	return scanInvestment(q.db.QueryRow(ctx, getInvestment, id))
}

const listInvestmentsByUser = `-- name: ListInvestmentsByUser :many
SELECT ` + investmentColumns + ` FROM investments
WHERE user_id = $1 AND ($2::TEXT = '' OR status = $2)
ORDER BY created_at, id`

type ListInvestmentsByUserParams struct {
	UserID pgtype.UUID `json:"user_id"`
	Status string      `json:"status"`
}

func (q *Queries) ListInvestmentsByUser(ctx context.Context, arg ListInvestmentsByUserParams) ([]Investment, error) {
	rows, err := q.db.Query(ctx, listInvestmentsByUser, arg.UserID, arg.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Investment
	for rows.Next() {
		i, err := scanInvestment(rows)
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

const releaseInvestmentStake = `-- name: ReleaseInvestmentStake :execrows
UPDATE investments
SET amount = amount - $2,
    status = CASE WHEN $3::BOOLEAN THEN 'completed' ELSE status END,
    completion_reason = CASE WHEN $3::BOOLEAN THEN $4::TEXT ELSE completion_reason END,
    updated_at = NOW()
WHERE id = $1 AND status = 'active' AND amount - $2 >= 0`

type ReleaseInvestmentStakeParams struct {
	ID               pgtype.UUID `json:"id"`
	Amount           int64       `json:"amount"`
	Complete         bool        `json:"complete"`
	CompletionReason *string     `json:"completion_reason"`
}

func (q *Queries) ReleaseInvestmentStake(ctx context.Context, arg ReleaseInvestmentStakeParams) (int64, error) {
	result, err := q.db.Exec(ctx, releaseInvestmentStake, arg.ID, arg.Amount, arg.Complete, arg.CompletionReason)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const restoreInvestmentStake = `-- name: RestoreInvestmentStake :execrows
UPDATE investments
SET amount = amount + $2,
    status = 'active',
    completion_reason = NULL,
    updated_at = NOW()
WHERE id = $1`

type RestoreInvestmentStakeParams struct {
	ID     pgtype.UUID `json:"id"`
	Amount int64       `json:"amount"`
}

func (q *Queries) RestoreInvestmentStake(ctx context.Context, arg RestoreInvestmentStakeParams) (int64, error) {
	result, err := q.db.Exec(ctx, restoreInvestmentStake, arg.ID, arg.Amount)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const touchInvestmentsProfitDate = `-- name: TouchInvestmentsProfitDate :exec
UPDATE investments SET last_profit_date = $2, updated_at = NOW()
WHERE user_id = $1 AND status = 'active'`

type TouchInvestmentsProfitDateParams struct {
	UserID         pgtype.UUID `json:"user_id"`
	LastProfitDate pgtype.Date `json:"last_profit_date"`
}

func (q *Queries) TouchInvestmentsProfitDate(ctx context.Context, arg TouchInvestmentsProfitDateParams) error {
	_, err := q.db.Exec(ctx, touchInvestmentsProfitDate, arg.UserID, arg.LastProfitDate)
	return err
}
