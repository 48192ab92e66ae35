package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const activationColumns = `id, user_id, activation_date, status, expiry_date, profit_status, profit_amount,
    profit_error, processed_at, commission_paid, created_at, updated_at`

func scanTradeActivation(row interface{ Scan(...any) error }) (TradeActivation, error) {
	var i TradeActivation
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.ActivationDate,
		&i.Status,
		&i.ExpiryDate,
		&i.ProfitStatus,
		&i.ProfitAmount,
		&i.ProfitError,
		&i.ProcessedAt,
		&i.CommissionPaid,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createTradeActivation = `-- name: CreateTradeActivation :one
INSERT INTO trade_activations (id, user_id, activation_date, status, expiry_date, profit_status)
VALUES ($1, $2, $3, 'active', $4, 'pending')
ON CONFLICT (user_id, activation_date) DO NOTHING
RETURNING ` + activationColumns

type CreateTradeActivationParams struct {
	ID             pgtype.UUID        `json:"id"`
	UserID         pgtype.UUID        `json:"user_id"`
	ActivationDate pgtype.Date        `json:"activation_date"`
	ExpiryDate     pgtype.Timestamptz `json:"expiry_date"`
}

// CreateTradeActivation returns pgx.ErrNoRows when the owner already has a
// record for the date.
func (q *Queries) CreateTradeActivation(ctx context.Context, arg CreateTradeActivationParams) (TradeActivation, error) {
	row := q.db.QueryRow(ctx, createTradeActivation, arg.ID, arg.UserID, arg.ActivationDate, arg.ExpiryDate)
	return scanTradeActivation(row)
}

const getTradeActivation = `-- name: GetTradeActivation :one
SELECT ` + activationColumns + ` FROM trade_activations WHERE id = $1`

func (q *Queries) GetTradeActivation(ctx context.Context, id pgtype.UUID) (TradeActivation, error) {
	return scanTradeActivation(q.db.QueryRow(ctx, getTradeActivation, id))
}

const getTradeActivationByDate = `-- name: GetTradeActivationByDate :one
SELECT ` + activationColumns + ` FROM trade_activations WHERE user_id = $1 AND activation_date = $2`

type GetTradeActivationByDateParams struct {
	UserID         pgtype.UUID `json:"user_id"`
	ActivationDate pgtype.Date `json:"activation_date"`
}

func (q *Queries) GetTradeActivationByDate(ctx context.Context, arg GetTradeActivationByDateParams) (TradeActivation, error) {
	return scanTradeActivation(q.db.QueryRow(ctx, getTradeActivationByDate, arg.UserID, arg.ActivationDate))
}

func (q *Queries) ListTradeActivations(ctx context.Context, f ActivationFilter) ([]TradeActivation, error) {
	where, args := f.where()
	query := `SELECT ` + activationColumns + ` FROM trade_activations` + where +
		` ORDER BY activation_date, id` + pageClause(f.Limit, f.Offset)
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TradeActivation
	for rows.Next() {
		i, err := scanTradeActivation(rows)
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

const transitionProfitStatus = `-- name: TransitionProfitStatus :execrows
UPDATE trade_activations
SET profit_status = $2,
    profit_amount = $3,
    profit_error = $4,
    processed_at = $5,
    updated_at = NOW()
WHERE id = $1 AND profit_status = 'pending'`

type TransitionProfitStatusParams struct {
	ID           pgtype.UUID        `json:"id"`
	ProfitStatus string             `json:"profit_status"`
	ProfitAmount int64              `json:"profit_amount"`
	ProfitError  *string            `json:"profit_error"`
	ProcessedAt  pgtype.Timestamptz `json:"processed_at"`
}

// TransitionProfitStatus only moves records that are still pending.
func (q *Queries) TransitionProfitStatus(ctx context.Context, arg TransitionProfitStatusParams) (int64, error) {
	result, err := q.db.Exec(ctx, transitionProfitStatus,
		arg.ID,
		arg.ProfitStatus,
		arg.ProfitAmount,
		arg.ProfitError,
		arg.ProcessedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

type OverrideProfitStatusParams struct {
	Filter       ActivationFilter
	ProfitStatus string
	ProfitError  *string
	ProcessedAt  pgtype.Timestamptz
}

// OverrideProfitStatus moves every pending record matched by the filter.
// The filter's own profit status, limit and offset are ignored.
func (q *Queries) OverrideProfitStatus(ctx context.Context, arg OverrideProfitStatusParams) (int64, error) {
	f := arg.Filter
	f.ProfitStatus = "pending"
	f.Limit, f.Offset = 0, 0
	where, args := f.whereFrom(4)
	query := `UPDATE trade_activations SET profit_status = $1, profit_error = $2, processed_at = $3, updated_at = NOW()` + where
	result, err := q.db.Exec(ctx, query, append([]any{arg.ProfitStatus, arg.ProfitError, arg.ProcessedAt}, args...)...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const claimActivationCommission = `-- name: ClaimActivationCommission :execrows
UPDATE trade_activations
SET commission_paid = TRUE, updated_at = NOW()
WHERE id = $1 AND profit_status = 'processed' AND NOT commission_paid`

func (q *Queries) ClaimActivationCommission(ctx context.Context, id pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, claimActivationCommission, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
