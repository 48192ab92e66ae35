package repository

import "context"

const getSetting = `-- name: GetSetting :one
SELECT value FROM settings WHERE key = $1`

func (q *Queries) GetSetting(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := q.db.QueryRow(ctx, getSetting, key).Scan(&value)
	return value, err
}

const upsertSetting = `-- name: UpsertSetting :exec
INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

type UpsertSettingParams struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

func (q *Queries) UpsertSetting(ctx context.Context, arg UpsertSettingParams) error {
	_, err := q.db.Exec(ctx, upsertSetting, arg.Key, arg.Value)
	return err
}
