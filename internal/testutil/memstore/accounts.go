package memstore

import (
	"context"
	"slices"

	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

func (q *querier) CreateAccount(ctx context.Context, arg repository.CreateAccountParams) (repository.Account, error) {
	var out repository.Account
	err := q.do("CreateAccount", func(st *state) error {
		if _, ok := st.accounts[arg.ID.Bytes]; ok {
			return uniqueViolation("accounts_pkey")
		}
		for _, a := range st.accounts {
			if a.Username == arg.Username {
				return uniqueViolation("accounts_username_key")
			}
			if a.Email == arg.Email {
				return uniqueViolation("accounts_email_key")
			}
		}
		if arg.ReferrerID.Valid {
			if _, ok := st.accounts[arg.ReferrerID.Bytes]; !ok {
				return foreignKeyViolation("accounts_referrer_id_fkey")
			}
		}
		now := ts(q.s.now())
		role := arg.Role
		if role == "" {
			role = "user"
		}
		out = repository.Account{
			ID:         arg.ID,
			Username:   arg.Username,
			Email:      arg.Email,
			Role:       role,
			ReferrerID: arg.ReferrerID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		st.accounts[arg.ID.Bytes] = out
		return nil
	})
	return out, err
}

func (q *querier) getAccount(method string, id pgtype.UUID) (repository.Account, error) {
	var out repository.Account
	err := q.do(method, func(st *state) error {
		a, ok := st.accounts[id.Bytes]
		if !ok || !id.Valid {
			return pgx.ErrNoRows
		}
		out = a
		return nil
	})
	return out, err
}

func (q *querier) GetAccount(ctx context.Context, id pgtype.UUID) (repository.Account, error) {
	return q.getAccount("GetAccount", id)
}

func (q *querier) GetAccountForUpdate(ctx context.Context, id pgtype.UUID) (repository.Account, error) {
	return q.getAccount("GetAccountForUpdate", id)
}

func (q *querier) GetAccountByUsername(ctx context.Context, username string) (repository.Account, error) {
	var out repository.Account
	err := q.do("GetAccountByUsername", func(st *state) error {
		for _, a := range st.accounts {
			if a.Username == username {
				out = a
				return nil
			}
		}
		return pgx.ErrNoRows
	})
	return out, err
}

func (q *querier) ApplyBalanceDelta(ctx context.Context, arg repository.ApplyBalanceDeltaParams) (int64, error) {
	var rows int64
	err := q.do("ApplyBalanceDelta", func(st *state) error {
		a, ok := st.accounts[arg.ID.Bytes]
		if !ok {
			return nil
		}
		if a.Wallet+arg.Wallet < 0 || a.WalletTopup+arg.WalletTopup < 0 ||
			a.WalletWithdraw+arg.WalletWithdraw < 0 || a.TotalInvestment+arg.TotalInvestment < 0 {
			return nil
		}
		a.Wallet += arg.Wallet
		a.WalletTopup += arg.WalletTopup
		a.WalletWithdraw += arg.WalletWithdraw
		a.TotalInvestment += arg.TotalInvestment
		a.UpdatedAt = ts(q.s.now())
		st.accounts[arg.ID.Bytes] = a
		rows = 1
		return nil
	})
	return rows, err
}

func (q *querier) updateAccount(method string, id pgtype.UUID, fn func(a *repository.Account)) (int64, error) {
	var rows int64
	err := q.do(method, func(st *state) error {
		a, ok := st.accounts[id.Bytes]
		if !ok {
			return nil
		}
		fn(&a)
		a.UpdatedAt = ts(q.s.now())
		st.accounts[id.Bytes] = a
		rows = 1
		return nil
	})
	return rows, err
}

func (q *querier) SetDailyProfitActivated(ctx context.Context, arg repository.SetDailyProfitActivatedParams) error {
	_, err := q.updateAccount("SetDailyProfitActivated", arg.ID, func(a *repository.Account) {
		a.DailyProfitActivated = arg.Activated
		if arg.LastActivationAt.Valid {
			a.LastActivationAt = arg.LastActivationAt
		}
	})
	return err
}

func (q *querier) SetLastInvestmentAmount(ctx context.Context, arg repository.SetLastInvestmentAmountParams) error {
	_, err := q.updateAccount("SetLastInvestmentAmount", arg.ID, func(a *repository.Account) {
		a.LastInvestmentAmount = arg.Amount
	})
	return err
}

func (q *querier) IncrementReferralCounters(ctx context.Context, arg repository.IncrementReferralCountersParams) error {
	_, err := q.updateAccount("IncrementReferralCounters", arg.ID, func(a *repository.Account) {
		a.DirectReferrals += arg.DirectReferrals
		a.ReferralIncome += arg.ReferralIncome
	})
	return err
}

func (q *querier) AddTeamBusiness(ctx context.Context, arg repository.AddTeamBusinessParams) error {
	_, err := q.updateAccount("AddTeamBusiness", arg.ID, func(a *repository.Account) {
		a.TeamBusiness += arg.Amount
	})
	return err
}

func (q *querier) SetAccountRank(ctx context.Context, arg repository.SetAccountRankParams) error {
	_, err := q.updateAccount("SetAccountRank", arg.ID, func(a *repository.Account) {
		a.Rank = arg.Rank
	})
	return err
}

func (q *querier) SetAccountBlocked(ctx context.Context, arg repository.SetAccountBlockedParams) (int64, error) {
	return q.updateAccount("SetAccountBlocked", arg.ID, func(a *repository.Account) {
		a.Blocked = arg.Blocked
	})
}

func byAccountID(a, b repository.Account) int {
	return slices.Compare(a.ID.Bytes[:], b.ID.Bytes[:])
}

func (q *querier) ListActivatedAccounts(ctx context.Context, arg repository.ListActivatedAccountsParams) ([]repository.Account, error) {
	var out []repository.Account
	err := q.do("ListActivatedAccounts", func(st *state) error {
		for _, a := range sortedValues(st.accounts, byAccountID) {
			if a.DailyProfitActivated {
				out = append(out, a)
			}
		}
		out = page(out, arg.Limit, arg.Offset)
		return nil
	})
	return out, err
}

func (q *querier) ListAccountsByMinTeamBusiness(ctx context.Context, arg repository.ListAccountsByMinTeamBusinessParams) ([]repository.Account, error) {
	var out []repository.Account
	err := q.do("ListAccountsByMinTeamBusiness", func(st *state) error {
		for _, a := range sortedValues(st.accounts, byAccountID) {
			if a.TeamBusiness >= arg.MinTeamBusiness {
				out = append(out, a)
			}
		}
		out = page(out, arg.Limit, arg.Offset)
		return nil
	})
	return out, err
}

func (q *querier) ListStakeDrift(ctx context.Context, limit int32) ([]repository.StakeDriftRow, error) {
	var out []repository.StakeDriftRow
	err := q.do("ListStakeDrift", func(st *state) error {
		sums := map[key]int64{}
		for _, inv := range st.investments {
			if inv.Status == "active" {
				sums[inv.UserID.Bytes] += inv.Amount
			}
		}
		for _, a := range sortedValues(st.accounts, byAccountID) {
			if a.TotalInvestment != sums[a.ID.Bytes] {
				out = append(out, repository.StakeDriftRow{
					UserID:          a.ID,
					TotalInvestment: a.TotalInvestment,
					ActiveSum:       sums[a.ID.Bytes],
				})
			}
		}
		out = page(out, limit, 0)
		return nil
	})
	return out, err
}
