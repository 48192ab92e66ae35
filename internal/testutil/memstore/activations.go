package memstore

import (
	"context"

	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

func byActivationDate(a, b repository.TradeActivation) int {
	return compareTimeID(a.ActivationDate.Time, b.ActivationDate.Time, a.ID.Bytes, b.ID.Bytes)
}

func (q *querier) CreateTradeActivation(ctx context.Context, arg repository.CreateTradeActivationParams) (repository.TradeActivation, error) {
	var out repository.TradeActivation
	err := q.do("CreateTradeActivation", func(st *state) error {
		if _, ok := st.accounts[arg.UserID.Bytes]; !ok {
			return foreignKeyViolation("trade_activations_user_id_fkey")
		}
		for _, a := range st.activations {
			if a.UserID.Bytes == arg.UserID.Bytes && repository.SameDate(a.ActivationDate, arg.ActivationDate) {
				return pgx.ErrNoRows
			}
		}
		now := ts(q.s.now())
		out = repository.TradeActivation{
			ID:             arg.ID,
			UserID:         arg.UserID,
			ActivationDate: arg.ActivationDate,
			Status:         "active",
			ExpiryDate:     arg.ExpiryDate,
			ProfitStatus:   "pending",
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		st.activations[arg.ID.Bytes] = out
		return nil
	})
	return out, err
}

func (q *querier) GetTradeActivation(ctx context.Context, id pgtype.UUID) (repository.TradeActivation, error) {
	var out repository.TradeActivation
	err := q.do("GetTradeActivation", func(st *state) error {
		a, ok := st.activations[id.Bytes]
		if !ok {
			return pgx.ErrNoRows
		}
		out = a
		return nil
	})
	return out, err
}

func (q *querier) GetTradeActivationByDate(ctx context.Context, arg repository.GetTradeActivationByDateParams) (repository.TradeActivation, error) {
	var out repository.TradeActivation
	err := q.do("GetTradeActivationByDate", func(st *state) error {
		for _, a := range st.activations {
			if a.UserID.Bytes == arg.UserID.Bytes && repository.SameDate(a.ActivationDate, arg.ActivationDate) {
				out = a
				return nil
			}
		}
		return pgx.ErrNoRows
	})
	return out, err
}

func (q *querier) ListTradeActivations(ctx context.Context, f repository.ActivationFilter) ([]repository.TradeActivation, error) {
	var out []repository.TradeActivation
	err := q.do("ListTradeActivations", func(st *state) error {
		for _, a := range sortedValues(st.activations, byActivationDate) {
			if f.Matches(a) {
				out = append(out, a)
			}
		}
		out = page(out, f.Limit, f.Offset)
		return nil
	})
	return out, err
}

func (q *querier) TransitionProfitStatus(ctx context.Context, arg repository.TransitionProfitStatusParams) (int64, error) {
	var rows int64
	err := q.do("TransitionProfitStatus", func(st *state) error {
		a, ok := st.activations[arg.ID.Bytes]
		if !ok || a.ProfitStatus != "pending" {
			return nil
		}
		if arg.ProfitAmount < 0 {
			return checkViolation("trade_activations_profit_amount_check")
		}
		a.ProfitStatus = arg.ProfitStatus
		a.ProfitAmount = arg.ProfitAmount
		a.ProfitError = arg.ProfitError
		a.ProcessedAt = arg.ProcessedAt
		a.UpdatedAt = ts(q.s.now())
		st.activations[arg.ID.Bytes] = a
		rows = 1
		return nil
	})
	return rows, err
}

func (q *querier) OverrideProfitStatus(ctx context.Context, arg repository.OverrideProfitStatusParams) (int64, error) {
	var rows int64
	err := q.do("OverrideProfitStatus", func(st *state) error {
		f := arg.Filter.WithProfitStatus("pending")
		now := ts(q.s.now())
		for id, a := range st.activations {
			if !f.Matches(a) {
				continue
			}
			a.ProfitStatus = arg.ProfitStatus
			a.ProfitError = arg.ProfitError
			a.ProcessedAt = arg.ProcessedAt
			a.UpdatedAt = now
			st.activations[id] = a
			rows++
		}
		return nil
	})
	return rows, err
}

func (q *querier) ClaimActivationCommission(ctx context.Context, id pgtype.UUID) (int64, error) {
	var rows int64
	err := q.do("ClaimActivationCommission", func(st *state) error {
		a, ok := st.activations[id.Bytes]
		if !ok || a.ProfitStatus != "processed" || a.CommissionPaid {
			return nil
		}
		a.CommissionPaid = true
		a.UpdatedAt = ts(q.s.now())
		st.activations[id.Bytes] = a
		rows = 1
		return nil
	})
	return rows, err
}
