package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const teamRewardColumns = `id, user_id, tier, amount, status, end_date, completed_at, created_at`

func scanTeamReward(row interface{ Scan(...any) error }) (TeamReward, error) {
	var i TeamReward
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Tier,
		&i.Amount,
		&i.Status,
		&i.EndDate,
		&i.CompletedAt,
		&i.CreatedAt,
	)
	return i, err
}

const createTeamReward = `-- name: CreateTeamReward :one
INSERT INTO team_rewards (id, user_id, tier, amount, status, end_date)
VALUES ($1, $2, $3, $4, 'pending', $5)
ON CONFLICT (user_id, tier) DO NOTHING
RETURNING ` + teamRewardColumns

type CreateTeamRewardParams struct {
	ID      pgtype.UUID        `json:"id"`
	UserID  pgtype.UUID        `json:"user_id"`
	Tier    string             `json:"tier"`
	Amount  int64              `json:"amount"`
	EndDate pgtype.Timestamptz `json:"end_date"`
}

// CreateTeamReward returns pgx.ErrNoRows when the user already qualified for the tier.
func (q *Queries) CreateTeamReward(ctx context.Context, arg CreateTeamRewardParams) (TeamReward, error) {
	row := q.db.QueryRow(ctx, createTeamReward, arg.ID, arg.UserID, arg.Tier, arg.Amount, arg.EndDate)
	return scanTeamReward(row)
}

const listDueTeamRewards = `-- name: ListDueTeamRewards :many
SELECT ` + teamRewardColumns + ` FROM team_rewards
WHERE status = 'pending' AND end_date <= $1
ORDER BY end_date, id
LIMIT $2`

type ListDueTeamRewardsParams struct {
	EndDate pgtype.Timestamptz `json:"end_date"`
	Limit   int32              `json:"limit"`
}

func (q *Queries) ListDueTeamRewards(ctx context.Context, arg ListDueTeamRewardsParams) ([]TeamReward, error) {
	rows, err := q.db.Query(ctx, listDueTeamRewards, arg.EndDate, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TeamReward
	for rows.Next() {
		i, err := scanTeamReward(rows)
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

const completeTeamReward = `-- name: CompleteTeamReward :execrows
UPDATE team_rewards SET status = 'completed', completed_at = NOW()
WHERE id = $1 AND status = 'pending'`

func (q *Queries) CompleteTeamReward(ctx context.Context, id pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, completeTeamReward, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listTeamRewardsByUser = `-- name: ListTeamRewardsByUser :many
SELECT ` + teamRewardColumns + ` FROM team_rewards WHERE user_id = $1 ORDER BY created_at, id`

func (q *Queries) ListTeamRewardsByUser(ctx context.Context, userID pgtype.UUID) ([]TeamReward, error) {
	rows, err := q.db.Query(ctx, listTeamRewardsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TeamReward
	for rows.Next() {
		i, err := scanTeamReward(rows)
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
