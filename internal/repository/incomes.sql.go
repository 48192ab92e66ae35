package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const incomeColumns = `id, user_id, user_id_from, type, amount, status, metadata, created_at`

func scanIncomeEntry(row interface{ Scan(...any) error }) (IncomeEntry, error) {
	var i IncomeEntry
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.UserIDFrom,
		&i.Type,
		&i.Amount,
		&i.Status,
		&i.Metadata,
		&i.CreatedAt,
	)
	return i, err
}

const createIncomeEntry = `-- name: CreateIncomeEntry :one
INSERT INTO income_entries (id, user_id, user_id_from, type, amount, status, metadata)
VALUES ($1, $2, $3, $4, $5, 'credited', $6)
ON CONFLICT DO NOTHING
RETURNING ` + incomeColumns

type CreateIncomeEntryParams struct {
	ID         pgtype.UUID `json:"id"`
	UserID     pgtype.UUID `json:"user_id"`
	UserIDFrom pgtype.UUID `json:"user_id_from"`
	Type       string      `json:"type"`
	Amount     int64       `json:"amount"`
	Metadata   []byte      `json:"metadata"`
}

// CreateIncomeEntry returns pgx.ErrNoRows when a once-only income type
// (referral bonus per pair, first deposit bonus per user) already exists.
func (q *Queries) CreateIncomeEntry(ctx context.Context, arg CreateIncomeEntryParams) (IncomeEntry, error) {
	row := q.db.QueryRow(ctx, createIncomeEntry,
		arg.ID,
		arg.UserID,
		arg.UserIDFrom,
		arg.Type,
		arg.Amount,
		arg.Metadata,
	)
	return scanIncomeEntry(row)
}

func (q *Queries) ListIncomeEntries(ctx context.Context, f IncomeFilter) ([]IncomeEntry, error) {
	where, args := f.where()
	query := `SELECT ` + incomeColumns + ` FROM income_entries` + where +
		` ORDER BY created_at DESC, id` + pageClause(f.Limit, f.Offset)
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []IncomeEntry
	for rows.Next() {
		i, err := scanIncomeEntry(rows)
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
