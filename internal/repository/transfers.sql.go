package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const transferColumns = `id, sender_id, receiver_id, amount, fee, from_wallet, to_wallet, type, status,
    error, created_at, updated_at`

func scanFundTransfer(row interface{ Scan(...any) error }) (FundTransfer, error) {
	var i FundTransfer
	err := row.Scan(
		&i.ID,
		&i.SenderID,
		&i.ReceiverID,
		&i.Amount,
		&i.Fee,
		&i.FromWallet,
		&i.ToWallet,
		&i.Type,
		&i.Status,
		&i.Error,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createFundTransfer = `-- name: CreateFundTransfer :one
INSERT INTO fund_transfers (id, sender_id, receiver_id, amount, fee, from_wallet, to_wallet, type, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + transferColumns

type CreateFundTransferParams struct {
	ID         pgtype.UUID `json:"id"`
	SenderID   pgtype.UUID `json:"sender_id"`
	ReceiverID pgtype.UUID `json:"receiver_id"`
	Amount     int64       `json:"amount"`
	Fee        int64       `json:"fee"`
	FromWallet string      `json:"from_wallet"`
	ToWallet   string      `json:"to_wallet"`
	Type       string      `json:"type"`
	Status     string      `json:"status"`
}

func (q *Queries) CreateFundTransfer(ctx context.Context, arg CreateFundTransferParams) (FundTransfer, error) {
	row := q.db.QueryRow(ctx, createFundTransfer,
		arg.ID,
		arg.SenderID,
		arg.ReceiverID,
		arg.Amount,
		arg.Fee,
		arg.FromWallet,
		arg.ToWallet,
		arg.Type,
		arg.Status,
	)
	return scanFundTransfer(row)
}

const getFundTransfer = `-- name: GetFundTransfer :one
SELECT ` + transferColumns + ` FROM fund_transfers WHERE id = $1`

func (q *Queries) GetFundTransfer(ctx context.Context, id pgtype.UUID) (FundTransfer, error) {
	return scanFundTransfer(q.db.QueryRow(ctx, getFundTransfer, id))
}

const updateFundTransferStatus = `-- name: UpdateFundTransferStatus :execrows
UPDATE fund_transfers
SET status = $3, error = $4, updated_at = NOW()
WHERE id = $1 AND status = $2`

type UpdateFundTransferStatusParams struct {
	ID         pgtype.UUID `json:"id"`
	FromStatus string      `json:"from_status"`
	Status     string      `json:"status"`
	Error      *string     `json:"error"`
}

func (q *Queries) UpdateFundTransferStatus(ctx context.Context, arg UpdateFundTransferStatusParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateFundTransferStatus, arg.ID, arg.FromStatus, arg.Status, arg.Error)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listFundTransfersByStatus = `-- name: ListFundTransfersByStatus :many
SELECT ` + transferColumns + ` FROM fund_transfers
WHERE status = $1 AND updated_at < $2
ORDER BY updated_at, id
LIMIT $3`

type ListFundTransfersByStatusParams struct {
	Status        string             `json:"status"`
	UpdatedBefore pgtype.Timestamptz `json:"updated_before"`
	Limit         int32              `json:"limit"`
}

func (q *Queries) ListFundTransfersByStatus(ctx context.Context, arg ListFundTransfersByStatusParams) ([]FundTransfer, error) {
	rows, err := q.db.Query(ctx, listFundTransfersByStatus, arg.Status, arg.UpdatedBefore, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FundTransfer
	for rows.Next() {
		i, err := scanFundTransfer(rows)
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
