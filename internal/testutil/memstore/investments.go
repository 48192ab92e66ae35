package memstore

import (
	"context"

	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

func byInvestmentCreated(a, b repository.Investment) int {
	return compareTimeID(a.CreatedAt.Time, b.CreatedAt.Time, a.ID.Bytes, b.ID.Bytes)
}

func (q *querier) CreateInvestment(ctx context.Context, arg repository.CreateInvestmentParams) (repository.Investment, error) {
	var out repository.Investment
	err := q.do("CreateInvestment", func(st *state) error {
		if _, ok := st.accounts[arg.UserID.Bytes]; !ok {
			return foreignKeyViolation("investments_user_id_fkey")
		}
		if _, ok := st.investments[arg.ID.Bytes]; ok {
			return uniqueViolation("investments_pkey")
		}
		if arg.Amount < 0 {
			return checkViolation("investments_amount_check")
		}
		now := ts(q.s.now())
		out = repository.Investment{
			ID:         arg.ID,
			UserID:     arg.UserID,
			Amount:     arg.Amount,
			Tier:       arg.Tier,
			RoiPercent: arg.RoiPercent,
			Status:     "active",
			StartDate:  arg.StartDate,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		st.investments[arg.ID.Bytes] = out
		return nil
	})
	return out, err
}

func (q *querier) GetInvestment(ctx context.Context, id pgtype.UUID) (repository.Investment, error) {
	var out repository.Investment
	err := q.do("GetInvestment", func(st *state) error {
		inv, ok := st.investments[id.Bytes]
		if !ok {
			return pgx.ErrNoRows
		}
		out = inv
		return nil
	})
	return out, err
}

func (q *querier) ListInvestmentsByUser(ctx context.Context, arg repository.ListInvestmentsByUserParams) ([]repository.Investment, error) {
	var out []repository.Investment
	err := q.do("ListInvestmentsByUser", func(st *state) error {
		for _, inv := range sortedValues(st.investments, byInvestmentCreated) {
			if inv.UserID.Bytes != arg.UserID.Bytes {
				continue
			}
			if arg.Status != "" && inv.Status != arg.Status {
				continue
			}
			out = append(out, inv)
		}
		return nil
	})
	return out, err
}

func (q *querier) ReleaseInvestmentStake(ctx context.Context, arg repository.ReleaseInvestmentStakeParams) (int64, error) {
	var rows int64
	err := q.do("ReleaseInvestmentStake", func(st *state) error {
		inv, ok := st.investments[arg.ID.Bytes]
		if !ok || inv.Status != "active" || inv.Amount-arg.Amount < 0 {
			return nil
		}
		inv.Amount -= arg.Amount
		if arg.Complete {
			inv.Status = "completed"
			inv.CompletionReason = arg.CompletionReason
		}
		inv.UpdatedAt = ts(q.s.now())
		st.investments[arg.ID.Bytes] = inv
		rows = 1
		return nil
	})
	return rows, err
}

func (q *querier) RestoreInvestmentStake(ctx context.Context, arg repository.RestoreInvestmentStakeParams) (int64, error) {
	var rows int64
	err := q.do("RestoreInvestmentStake", func(st *state) error {
		inv, ok := st.investments[arg.ID.Bytes]
		if !ok {
			return nil
		}
		inv.Amount += arg.Amount
		inv.Status = "active"
		inv.CompletionReason = nil
		inv.UpdatedAt = ts(q.s.now())
		st.investments[arg.ID.Bytes] = inv
		rows = 1
		return nil
	})
	return rows, err
}

func (q *querier) TouchInvestmentsProfitDate(ctx context.Context, arg repository.TouchInvestmentsProfitDateParams) error {
	return q.do("TouchInvestmentsProfitDate", func(st *state) error {
		for id, inv := range st.investments {
			if inv.UserID.Bytes == arg.UserID.Bytes && inv.Status == "active" {
				inv.LastProfitDate = arg.LastProfitDate
				st.investments[id] = inv
			}
		}
		return nil
	})
}
