package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const depositColumns = `id, user_id, amount, tx_hash, status, created_at`

func scanDeposit(row interface{ Scan(...any) error }) (Deposit, error) {
	var i Deposit
	err := row.Scan(&i.ID, &i.UserID, &i.Amount, &i.TxHash, &i.Status, &i.CreatedAt)
	return i, err
}

const createDeposit = `-- name: CreateDeposit :one
INSERT INTO deposits (id, user_id, amount, tx_hash, status)
VALUES ($1, $2, $3, $4, 'credited')
ON CONFLICT (tx_hash) DO NOTHING
RETURNING ` + depositColumns

type CreateDepositParams struct {
	ID     pgtype.UUID `json:"id"`
	UserID pgtype.UUID `json:"user_id"`
	Amount int64       `json:"amount"`
	TxHash string      `json:"tx_hash"`
}

// CreateDeposit returns pgx.ErrNoRows when the transaction hash was already seen.
func (q *Queries) CreateDeposit(ctx context.Context, arg CreateDepositParams) (Deposit, error) {
	row := q.db.QueryRow(ctx, createDeposit, arg.ID, arg.UserID, arg.Amount, arg.TxHash)
	return scanDeposit(row)
}

const getDepositByTxHash = `-- name: GetDepositByTxHash :one
SELECT ` + depositColumns + ` FROM deposits WHERE tx_hash = $1`

func (q *Queries) GetDepositByTxHash(ctx context.Context, txHash string) (Deposit, error) {
	return scanDeposit(q.db.QueryRow(ctx, getDepositByTxHash, txHash))
}

const countDepositsByUser = `-- name: CountDepositsByUser :one
SELECT COUNT(*) FROM deposits WHERE user_id = $1`

func (q *Queries) CountDepositsByUser(ctx context.Context, userID pgtype.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countDepositsByUser, userID).Scan(&count)
	return count, err
}
