package memstore

import (
	"context"

	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

func (q *querier) CreateWithdrawal(ctx context.Context, arg repository.CreateWithdrawalParams) (repository.Withdrawal, error) {
	var out repository.Withdrawal
	err := q.do("CreateWithdrawal", func(st *state) error {
		if _, ok := st.accounts[arg.UserID.Bytes]; !ok {
			return foreignKeyViolation("withdrawals_user_id_fkey")
		}
		if arg.Amount <= 0 {
			return checkViolation("withdrawals_amount_check")
		}
		extra := arg.Extra
		if len(extra) == 0 {
			extra = []byte("{}")
		}
		now := ts(q.s.now())
		out = repository.Withdrawal{
			ID:          arg.ID,
			UserID:      arg.UserID,
			Amount:      arg.Amount,
			Fee:         arg.Fee,
			NetAmount:   arg.NetAmount,
			Destination: arg.Destination,
			Status:      "pending",
			Extra:       extra,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		st.withdrawals[arg.ID.Bytes] = out
		return nil
	})
	return out, err
}

func (q *querier) getWithdrawal(method string, id pgtype.UUID) (repository.Withdrawal, error) {
	var out repository.Withdrawal
	err := q.do(method, func(st *state) error {
		w, ok := st.withdrawals[id.Bytes]
		if !ok {
			return pgx.ErrNoRows
		}
		out = w
		return nil
	})
	return out, err
}

func (q *querier) GetWithdrawal(ctx context.Context, id pgtype.UUID) (repository.Withdrawal, error) {
	return q.getWithdrawal("GetWithdrawal", id)
}

func (q *querier) GetWithdrawalForUpdate(ctx context.Context, id pgtype.UUID) (repository.Withdrawal, error) {
	return q.getWithdrawal("GetWithdrawalForUpdate", id)
}

func (q *querier) CountWithdrawalsSince(ctx context.Context, arg repository.CountWithdrawalsSinceParams) (int64, error) {
	var count int64
	err := q.do("CountWithdrawalsSince", func(st *state) error {
		for _, w := range st.withdrawals {
			if w.UserID.Bytes == arg.UserID.Bytes && w.Status != "rejected" && !w.CreatedAt.Time.Before(arg.CreatedAt.Time) {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (q *querier) ResolveWithdrawal(ctx context.Context, arg repository.ResolveWithdrawalParams) (repository.Withdrawal, error) {
	var out repository.Withdrawal
	err := q.do("ResolveWithdrawal", func(st *state) error {
		w, ok := st.withdrawals[arg.ID.Bytes]
		if !ok || w.Status != "pending" {
			return pgx.ErrNoRows
		}
		now := ts(q.s.now())
		w.Status = arg.Status
		w.ResolvedBy = arg.ResolvedBy
		w.ResolutionNote = arg.ResolutionNote
		w.ResolvedAt = now
		w.UpdatedAt = now
		st.withdrawals[arg.ID.Bytes] = w
		out = w
		return nil
	})
	return out, err
}

func (q *querier) ListWithdrawals(ctx context.Context, f repository.WithdrawalFilter) ([]repository.Withdrawal, error) {
	var out []repository.Withdrawal
	err := q.do("ListWithdrawals", func(st *state) error {
		sorted := sortedValues(st.withdrawals, func(a, b repository.Withdrawal) int {
			return -compareTimeID(a.CreatedAt.Time, b.CreatedAt.Time, a.ID.Bytes, b.ID.Bytes)
		})
		for _, w := range sorted {
			if f.Matches(w) {
				out = append(out, w)
			}
		}
		out = page(out, f.Limit, f.Offset)
		return nil
	})
	return out, err
}
