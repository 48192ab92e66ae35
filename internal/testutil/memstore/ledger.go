package memstore

import (
	"context"

	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

func (q *querier) CreateIncomeEntry(ctx context.Context, arg repository.CreateIncomeEntryParams) (repository.IncomeEntry, error) {
	var out repository.IncomeEntry
	err := q.do("CreateIncomeEntry", func(st *state) error {
		if _, ok := st.accounts[arg.UserID.Bytes]; !ok {
			return foreignKeyViolation("income_entries_user_id_fkey")
		}
		for _, e := range st.incomes {
			if e.Type != arg.Type || e.UserID.Bytes != arg.UserID.Bytes {
				continue
			}
			switch arg.Type {
			case "referral_bonus":
				if e.UserIDFrom == arg.UserIDFrom {
					return pgx.ErrNoRows
				}
			case "first_deposit_bonus":
				return pgx.ErrNoRows
			}
		}
		out = repository.IncomeEntry{
			ID:         arg.ID,
			UserID:     arg.UserID,
			UserIDFrom: arg.UserIDFrom,
			Type:       arg.Type,
			Amount:     arg.Amount,
			Status:     "credited",
			Metadata:   arg.Metadata,
			CreatedAt:  ts(q.s.now()),
		}
		st.incomes[arg.ID.Bytes] = out
		return nil
	})
	return out, err
}

func (q *querier) ListIncomeEntries(ctx context.Context, f repository.IncomeFilter) ([]repository.IncomeEntry, error) {
	var out []repository.IncomeEntry
	err := q.do("ListIncomeEntries", func(st *state) error {
		sorted := sortedValues(st.incomes, func(a, b repository.IncomeEntry) int {
			return -compareTimeID(a.CreatedAt.Time, b.CreatedAt.Time, a.ID.Bytes, b.ID.Bytes)
		})
		for _, e := range sorted {
			if f.Matches(e) {
				out = append(out, e)
			}
		}
		out = page(out, f.Limit, f.Offset)
		return nil
	})
	return out, err
}

func (q *querier) CreateFundTransfer(ctx context.Context, arg repository.CreateFundTransferParams) (repository.FundTransfer, error) {
	var out repository.FundTransfer
	err := q.do("CreateFundTransfer", func(st *state) error {
		if _, ok := st.accounts[arg.ReceiverID.Bytes]; !ok {
			return foreignKeyViolation("fund_transfers_receiver_id_fkey")
		}
		if arg.SenderID.Valid {
			if _, ok := st.accounts[arg.SenderID.Bytes]; !ok {
				return foreignKeyViolation("fund_transfers_sender_id_fkey")
			}
		}
		if arg.Amount <= 0 {
			return checkViolation("fund_transfers_amount_check")
		}
		now := ts(q.s.now())
		out = repository.FundTransfer{
			ID:         arg.ID,
			SenderID:   arg.SenderID,
			ReceiverID: arg.ReceiverID,
			Amount:     arg.Amount,
			Fee:        arg.Fee,
			FromWallet: arg.FromWallet,
			ToWallet:   arg.ToWallet,
			Type:       arg.Type,
			Status:     arg.Status,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		st.transfers[arg.ID.Bytes] = out
		return nil
	})
	return out, err
}

func (q *querier) GetFundTransfer(ctx context.Context, id pgtype.UUID) (repository.FundTransfer, error) {
	var out repository.FundTransfer
	err := q.do("GetFundTransfer", func(st *state) error {
		t, ok := st.transfers[id.Bytes]
		if !ok {
			return pgx.ErrNoRows
		}
		out = t
		return nil
	})
	return out, err
}

func (q *querier) UpdateFundTransferStatus(ctx context.Context, arg repository.UpdateFundTransferStatusParams) (int64, error) {
	var rows int64
	err := q.do("UpdateFundTransferStatus", func(st *state) error {
		t, ok := st.transfers[arg.ID.Bytes]
		if !ok || t.Status != arg.FromStatus {
			return nil
		}
		t.Status = arg.Status
		t.Error = arg.Error
		t.UpdatedAt = ts(q.s.now())
		st.transfers[arg.ID.Bytes] = t
		rows = 1
		return nil
	})
	return rows, err
}

func (q *querier) ListFundTransfersByStatus(ctx context.Context, arg repository.ListFundTransfersByStatusParams) ([]repository.FundTransfer, error) {
	var out []repository.FundTransfer
	err := q.do("ListFundTransfersByStatus", func(st *state) error {
		sorted := sortedValues(st.transfers, func(a, b repository.FundTransfer) int {
			return compareTimeID(a.UpdatedAt.Time, b.UpdatedAt.Time, a.ID.Bytes, b.ID.Bytes)
		})
		for _, t := range sorted {
			if t.Status == arg.Status && t.UpdatedAt.Time.Before(arg.UpdatedBefore.Time) {
				out = append(out, t)
			}
		}
		out = page(out, arg.Limit, 0)
		return nil
	})
	return out, err
}

func (q *querier) CreateDeposit(ctx context.Context, arg repository.CreateDepositParams) (repository.Deposit, error) {
	var out repository.Deposit
	err := q.do("CreateDeposit", func(st *state) error {
		if _, ok := st.accounts[arg.UserID.Bytes]; !ok {
			return foreignKeyViolation("deposits_user_id_fkey")
		}
		for _, d := range st.deposits {
			if d.TxHash == arg.TxHash {
				return pgx.ErrNoRows
			}
		}
		out = repository.Deposit{
			ID:        arg.ID,
			UserID:    arg.UserID,
			Amount:    arg.Amount,
			TxHash:    arg.TxHash,
			Status:    "credited",
			CreatedAt: ts(q.s.now()),
		}
		st.deposits[arg.ID.Bytes] = out
		return nil
	})
	return out, err
}

func (q *querier) GetDepositByTxHash(ctx context.Context, txHash string) (repository.Deposit, error) {
	var out repository.Deposit
	err := q.do("GetDepositByTxHash", func(st *state) error {
		for _, d := range st.deposits {
			if d.TxHash == txHash {
				out = d
				return nil
			}
		}
		return pgx.ErrNoRows
	})
	return out, err
}

func (q *querier) CountDepositsByUser(ctx context.Context, userID pgtype.UUID) (int64, error) {
	var count int64
	err := q.do("CountDepositsByUser", func(st *state) error {
		for _, d := range st.deposits {
			if d.UserID.Bytes == userID.Bytes {
				count++
			}
		}
		return nil
	})
	return count, err
}
