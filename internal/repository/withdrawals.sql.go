package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const withdrawalColumns = `id, user_id, amount, fee, net_amount, destination, status, extra,
    resolved_by, resolution_note, resolved_at, created_at, updated_at`

func scanWithdrawal(row interface{ Scan(...any) error }) (Withdrawal, error) {
	var i Withdrawal
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Amount,
		&i.Fee,
		&i.NetAmount,
		&i.Destination,
		&i.Status,
		&i.Extra,
		&i.ResolvedBy,
		&i.ResolutionNote,
		&i.ResolvedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createWithdrawal = `-- name: CreateWithdrawal :one
INSERT INTO withdrawals (id, user_id, amount, fee, net_amount, destination, status, extra)
VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7)
RETURNING ` + withdrawalColumns

type CreateWithdrawalParams struct {
	ID          pgtype.UUID `json:"id"`
	UserID      pgtype.UUID `json:"user_id"`
	Amount      int64       `json:"amount"`
	Fee         int64       `json:"fee"`
	NetAmount   int64       `json:"net_amount"`
	Destination string      `json:"destination"`
	Extra       []byte      `json:"extra"`
}

func (q *Queries) CreateWithdrawal(ctx context.Context, arg CreateWithdrawalParams) (Withdrawal, error) {
	row := q.db.QueryRow(ctx, createWithdrawal,
		arg.ID,
		arg.UserID,
		arg.Amount,
		arg.Fee,
		arg.NetAmount,
		arg.Destination,
		arg.Extra,
	)
	return scanWithdrawal(row)
}

const getWithdrawal = `-- name: GetWithdrawal :one
SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`

func (q *Queries) GetWithdrawal(ctx context.Context, id pgtype.UUID) (Withdrawal, error) {
	return scanWithdrawal(q.db.QueryRow(ctx, getWithdrawal, id))
}

const getWithdrawalForUpdate = `-- name: GetWithdrawalForUpdate :one
SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1 FOR UPDATE`

func (q *Queries) GetWithdrawalForUpdate(ctx context.Context, id pgtype.UUID) (Withdrawal, error) {
	return scanWithdrawal(q.db.QueryRow(ctx, getWithdrawalForUpdate, id))
}

const countWithdrawalsSince = `-- name: CountWithdrawalsSince :one
SELECT COUNT(*) FROM withdrawals
WHERE user_id = $1 AND created_at >= $2 AND status <> 'rejected'`

type CountWithdrawalsSinceParams struct {
	UserID    pgtype.UUID        `json:"user_id"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) CountWithdrawalsSince(ctx context.Context, arg CountWithdrawalsSinceParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countWithdrawalsSince, arg.UserID, arg.CreatedAt).Scan(&count)
	return count, err
}

const resolveWithdrawal = `-- name: ResolveWithdrawal :one
UPDATE withdrawals
SET status = $2,
    resolved_by = $3,
    resolution_note = $4,
    resolved_at = NOW(),
    updated_at = NOW()
WHERE id = $1 AND status = 'pending'
RETURNING ` + withdrawalColumns

type ResolveWithdrawalParams struct {
	ID             pgtype.UUID `json:"id"`
	Status         string      `json:"status"`
	ResolvedBy     pgtype.UUID `json:"resolved_by"`
	ResolutionNote *string     `json:"resolution_note"`
}

// ResolveWithdrawal returns pgx.ErrNoRows when the withdrawal is no longer pending.
func (q *Queries) ResolveWithdrawal(ctx context.Context, arg ResolveWithdrawalParams) (Withdrawal, error) {
	row := q.db.QueryRow(ctx, resolveWithdrawal, arg.ID, arg.Status, arg.ResolvedBy, arg.ResolutionNote)
	return scanWithdrawal(row)
}

func (q *Queries) ListWithdrawals(ctx context.Context, f WithdrawalFilter) ([]Withdrawal, error) {
	where, args := f.where()
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals` + where +
		` ORDER BY created_at DESC, id` + pageClause(f.Limit, f.Offset)
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Withdrawal
	for rows.Next() {
		i, err := scanWithdrawal(rows)
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
