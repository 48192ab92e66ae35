package memstore

import (
	"context"
	"slices"

	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

func (q *querier) CreateTeamReward(ctx context.Context, arg repository.CreateTeamRewardParams) (repository.TeamReward, error) {
	var out repository.TeamReward
	err := q.do("CreateTeamReward", func(st *state) error {
		for _, r := range st.rewards {
			if r.UserID.Bytes == arg.UserID.Bytes && r.Tier == arg.Tier {
				return pgx.ErrNoRows
			}
		}
		out = repository.TeamReward{
			ID:        arg.ID,
			UserID:    arg.UserID,
			Tier:      arg.Tier,
			Amount:    arg.Amount,
			Status:    "pending",
			EndDate:   arg.EndDate,
			CreatedAt: ts(q.s.now()),
		}
		st.rewards[arg.ID.Bytes] = out
		return nil
	})
	return out, err
}

func (q *querier) ListDueTeamRewards(ctx context.Context, arg repository.ListDueTeamRewardsParams) ([]repository.TeamReward, error) {
	var out []repository.TeamReward
	err := q.do("ListDueTeamRewards", func(st *state) error {
		sorted := sortedValues(st.rewards, func(a, b repository.TeamReward) int {
			return compareTimeID(a.EndDate.Time, b.EndDate.Time, a.ID.Bytes, b.ID.Bytes)
		})
		for _, r := range sorted {
			if r.Status == "pending" && !r.EndDate.Time.After(arg.EndDate.Time) {
				out = append(out, r)
			}
		}
		out = page(out, arg.Limit, 0)
		return nil
	})
	return out, err
}

func (q *querier) CompleteTeamReward(ctx context.Context, id pgtype.UUID) (int64, error) {
	var rows int64
	err := q.do("CompleteTeamReward", func(st *state) error {
		r, ok := st.rewards[id.Bytes]
		if !ok || r.Status != "pending" {
			return nil
		}
		r.Status = "completed"
		r.CompletedAt = ts(q.s.now())
		st.rewards[id.Bytes] = r
		rows = 1
		return nil
	})
	return rows, err
}

func (q *querier) ListTeamRewardsByUser(ctx context.Context, userID pgtype.UUID) ([]repository.TeamReward, error) {
	var out []repository.TeamReward
	err := q.do("ListTeamRewardsByUser", func(st *state) error {
		sorted := sortedValues(st.rewards, func(a, b repository.TeamReward) int {
			return compareTimeID(a.CreatedAt.Time, b.CreatedAt.Time, a.ID.Bytes, b.ID.Bytes)
		})
		for _, r := range sorted {
			if r.UserID.Bytes == userID.Bytes {
				out = append(out, r)
			}
		}
		return nil
	})
	return out, err
}

func (q *querier) GetSetting(ctx context.Context, k string) ([]byte, error) {
	var out []byte
	err := q.do("GetSetting", func(st *state) error {
		v, ok := st.settings[k]
		if !ok {
			return pgx.ErrNoRows
		}
		out = slices.Clone(v)
		return nil
	})
	return out, err
}

func (q *querier) UpsertSetting(ctx context.Context, arg repository.UpsertSettingParams) error {
	return q.do("UpsertSetting", func(st *state) error {
		st.settings[arg.Key] = slices.Clone(arg.Value)
		return nil
	})
}

func (q *querier) InsertAuditLog(ctx context.Context, arg repository.InsertAuditLogParams) (repository.AuditLog, error) {
	var out repository.AuditLog
	err := q.do("InsertAuditLog", func(st *state) error {
		out = repository.AuditLog{
			ID:         int64(len(st.audit) + 1),
			EntityType: arg.EntityType,
			EntityID:   arg.EntityID,
			ActorID:    arg.ActorID,
			Action:     arg.Action,
			PrevState:  arg.PrevState,
			NextState:  arg.NextState,
			Metadata:   arg.Metadata,
			CreatedAt:  ts(q.s.now()),
		}
		st.audit = append(st.audit, out)
		return nil
	})
	return out, err
}

func (q *querier) ListAuditLogByEntity(ctx context.Context, arg repository.ListAuditLogByEntityParams) ([]repository.AuditLog, error) {
	var out []repository.AuditLog
	err := q.do("ListAuditLogByEntity", func(st *state) error {
		for _, a := range st.audit {
			if a.EntityType == arg.EntityType && a.EntityID.Bytes == arg.EntityID.Bytes {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}

func (q *querier) GetIdempotencyKey(ctx context.Context, k string) (repository.IdempotencyKey, error) {
	var out repository.IdempotencyKey
	err := q.do("GetIdempotencyKey", func(st *state) error {
		rec, ok := st.idempotency[k]
		if !ok {
			return pgx.ErrNoRows
		}
		out = rec
		return nil
	})
	return out, err
}

func (q *querier) ReserveIdempotencyKey(ctx context.Context, arg repository.ReserveIdempotencyKeyParams) (repository.IdempotencyKey, error) {
	var out repository.IdempotencyKey
	err := q.do("ReserveIdempotencyKey", func(st *state) error {
		if _, ok := st.idempotency[arg.IdempotencyKey]; ok {
			return pgx.ErrNoRows
		}
		now := ts(q.s.now())
		out = repository.IdempotencyKey{
			IdempotencyKey: arg.IdempotencyKey,
			RequestHash:    arg.RequestHash,
			Method:         arg.Method,
			Path:           arg.Path,
			ContentType:    "application/json",
			InProgress:     true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		st.idempotency[arg.IdempotencyKey] = out
		return nil
	})
	return out, err
}

func (q *querier) FinalizeIdempotencyKey(ctx context.Context, arg repository.FinalizeIdempotencyKeyParams) (repository.IdempotencyKey, error) {
	var out repository.IdempotencyKey
	err := q.do("FinalizeIdempotencyKey", func(st *state) error {
		rec, ok := st.idempotency[arg.IdempotencyKey]
		if !ok || rec.RequestHash != arg.RequestHash {
			return pgx.ErrNoRows
		}
		rec.ResponseStatus = arg.ResponseStatus
		rec.ResponseBody = slices.Clone(arg.ResponseBody)
		rec.ContentType = arg.ContentType
		rec.InProgress = false
		rec.UpdatedAt = ts(q.s.now())
		st.idempotency[arg.IdempotencyKey] = rec
		out = rec
		return nil
	})
	return out, err
}

var _ repository.Querier = (*querier)(nil)
