package service

import (
	"testing"
	"time"

	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/events"
	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/ayo6706/invest-ledger/internal/settings"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withdrawer has a stake of 500 and 100 on main, so the 20% cap allows 100.
func withdrawer(t *testing.T, env *testEnv, name string) uuid.UUID {
	t.Helper()
	id := env.register(t, name, nil)
	env.invest(t, id, units(500))
	env.fund(t, id, domain.WalletMain, units(100))
	return id
}

func TestWithdrawalRequestEscrowsAmount(t *testing.T) {
	env := newTestEnv(t)
	id := withdrawer(t, env, "w-basic")
	before := env.account(t, id)

	w, err := env.withdrawals.Request(env.ctx, RequestWithdrawal{UserID: id, Amount: units(100), Destination: " 0xabc "})
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalPending, w.Status)
	assert.Equal(t, units(5), w.Fee)
	assert.Equal(t, units(95), w.NetAmount)
	assert.Equal(t, "0xabc", w.Destination)

	after := env.account(t, id)
	assert.Equal(t, before.Wallet-units(100), after.Wallet)
	assert.Equal(t, before.WalletWithdraw+units(100), after.WalletWithdraw)
	assert.Equal(t, totalBalance(before), totalBalance(after))
	assert.Contains(t, env.events.Types(), events.WithdrawalRequested)
}

func TestWithdrawalRequestValidation(t *testing.T) {
	env := newTestEnv(t)
	id := withdrawer(t, env, "w-validate")

	cases := []struct {
		name  string
		req   RequestWithdrawal
		field string
	}{
		{"zero amount", RequestWithdrawal{UserID: id, Amount: 0, Destination: "0xabc"}, "amount"},
		{"no destination", RequestWithdrawal{UserID: id, Amount: units(50), Destination: "  "}, "destination"},
		{"bad release", RequestWithdrawal{UserID: id, Amount: units(50), Destination: "0xabc", Release: "half"}, "release"},
		{"below minimum", RequestWithdrawal{UserID: id, Amount: units(5), Destination: "0xabc"}, "amount"},
		{"above cap", RequestWithdrawal{UserID: id, Amount: units(101), Destination: "0xabc"}, "amount"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.withdrawals.Request(env.ctx, tc.req)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
	assert.Equal(t, units(100), env.account(t, id).Wallet)
}

func TestWithdrawalRequiresOTPWhenEnabled(t *testing.T) {
	env := newTestEnv(t)
	env.settings.update(func(s *settings.Settings) { s.WithdrawalOTPRequired = true })
	id := withdrawer(t, env, "w-otp")

	_, err := env.withdrawals.Request(env.ctx, RequestWithdrawal{UserID: id, Amount: units(50), Destination: "0xabc"})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "otp", ve.Field)

	_, err = env.withdrawals.Request(env.ctx, RequestWithdrawal{UserID: id, Amount: units(50), Destination: "0xabc", OTPVerified: true})
	require.NoError(t, err)
}

func TestWithdrawalOncePerDay(t *testing.T) {
	env := newTestEnv(t)
	id := withdrawer(t, env, "w-daily")
	admin := uuid.New()

	first, err := env.withdrawals.Request(env.ctx, RequestWithdrawal{UserID: id, Amount: units(40), Destination: "0xabc"})
	require.NoError(t, err)

	_, err = env.withdrawals.Request(env.ctx, RequestWithdrawal{UserID: id, Amount: units(40), Destination: "0xabc"})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)

	// A rejected request does not count against the day.
	_, err = env.withdrawals.Reject(env.ctx, repository.FromPgUUID(first.ID), admin, "wrong address")
	require.NoError(t, err)
	_, err = env.withdrawals.Request(env.ctx, RequestWithdrawal{UserID: id, Amount: units(40), Destination: "0xdef"})
	require.NoError(t, err)

	env.clock.advance(24 * time.Hour)
	_, err = env.withdrawals.Request(env.ctx, RequestWithdrawal{UserID: id, Amount: units(40), Destination: "0xdef"})
	require.NoError(t, err)
}

func TestWithdrawalApproveSettlesOnce(t *testing.T) {
	env := newTestEnv(t)
	id := withdrawer(t, env, "w-approve")
	admin := uuid.New()

	w, err := env.withdrawals.Request(env.ctx, RequestWithdrawal{UserID: id, Amount: units(100), Destination: "0xabc"})
	require.NoError(t, err)
	wid := repository.FromPgUUID(w.ID)

	approved, err := env.withdrawals.Approve(env.ctx, wid, admin, "ok")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalApproved, approved.Status)
	assert.Equal(t, admin, repository.FromPgUUID(approved.ResolvedBy))
	env.withdrawals.Wait()

	settled := env.account(t, id)
	assert.Zero(t, settled.Wallet)
	assert.Zero(t, settled.WalletWithdraw)
	assert.Equal(t, units(500), settled.TotalInvestment)

	submitted := env.bridge.Submitted()
	require.Len(t, submitted, 1)
	assert.Equal(t, wid, submitted[0].WithdrawalID)
	assert.Equal(t, units(95), submitted[0].NetAmount)

	for _, resolve := range []func() (repository.Withdrawal, error){
		func() (repository.Withdrawal, error) { return env.withdrawals.Approve(env.ctx, wid, admin, "again") },
		func() (repository.Withdrawal, error) { return env.withdrawals.Reject(env.ctx, wid, admin, "too late") },
	} {
		_, err := resolve()
		var conflict *domain.StateConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, domain.WithdrawalApproved, conflict.Current)
	}
	assert.Equal(t, settled, env.account(t, id))
	assert.Len(t, env.bridge.Submitted(), 1)

	history, err := NewAuditService(env.store).History(env.ctx, "withdrawal", wid)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "created", history[0].Action)
	assert.Equal(t, "approved", history[1].Action)
}

func TestWithdrawalRejectRefundsMain(t *testing.T) {
	env := newTestEnv(t)
	id := withdrawer(t, env, "w-reject")
	before := env.account(t, id)

	w, err := env.withdrawals.Request(env.ctx, RequestWithdrawal{UserID: id, Amount: units(100), Destination: "0xabc"})
	require.NoError(t, err)
	rejected, err := env.withdrawals.Reject(env.ctx, repository.FromPgUUID(w.ID), uuid.New(), "")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalRejected, rejected.Status)

	after := env.account(t, id)
	assert.Equal(t, before.Wallet, after.Wallet)
	assert.Zero(t, after.WalletWithdraw)
	assert.Contains(t, env.events.Types(), events.WithdrawalRejected)
}

func TestWithdrawalFullUnlockRejectedRestoresStake(t *testing.T) {
	env := newTestEnv(t)
	id := withdrawer(t, env, "w-full")
	_, err := env.activations.Activate(env.ctx, id)
	require.NoError(t, err)

	w, err := env.withdrawals.Request(env.ctx, RequestWithdrawal{
		UserID: id, Amount: units(100), Destination: "0xabc", Release: domain.ReleaseFull,
	})
	require.NoError(t, err)

	extra, err := DecodeWithdrawalExtra(w.Extra)
	require.NoError(t, err)
	assert.True(t, extra.UnlockStaking)
	assert.Equal(t, units(500), extra.StakingAmount)
	require.Len(t, extra.ReleasedInvestments, 1)

	unlocked := env.account(t, id)
	assert.Zero(t, unlocked.TotalInvestment)
	assert.False(t, unlocked.DailyProfitActivated)
	completed, err := env.investments.ListInvestments(env.ctx, id, domain.InvestmentCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	require.NotNil(t, completed[0].CompletionReason)
	assert.Equal(t, domain.CompletionReasonWithdrawalUnlock, *completed[0].CompletionReason)

	_, err = env.withdrawals.Reject(env.ctx, repository.FromPgUUID(w.ID), uuid.New(), "")
	require.NoError(t, err)

	restored := env.account(t, id)
	assert.Equal(t, units(100), restored.Wallet)
	assert.Zero(t, restored.WalletWithdraw)
	assert.Equal(t, units(500), restored.TotalInvestment)

	active, err := env.investments.ListInvestments(env.ctx, id, domain.InvestmentActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, units(500), active[0].Amount)
	assert.Nil(t, active[0].CompletionReason)
}

func TestWithdrawalFullUnlockApproved(t *testing.T) {
	env := newTestEnv(t)
	id := withdrawer(t, env, "w-full-ok")
	_, err := env.activations.Activate(env.ctx, id)
	require.NoError(t, err)

	w, err := env.withdrawals.Request(env.ctx, RequestWithdrawal{
		UserID: id, Amount: units(100), Destination: "0xabc", Release: domain.ReleaseFull,
	})
	require.NoError(t, err)

	_, err = env.withdrawals.Approve(env.ctx, repository.FromPgUUID(w.ID), uuid.New(), "")
	require.NoError(t, err)
	env.withdrawals.Wait()

	acc := env.account(t, id)
	assert.Zero(t, acc.Wallet)
	assert.Zero(t, acc.WalletWithdraw)
	assert.Zero(t, acc.TotalInvestment)
	assert.False(t, acc.DailyProfitActivated)

	active, err := env.investments.ListInvestments(env.ctx, id, domain.InvestmentActive)
	require.NoError(t, err)
	assert.Empty(t, active)

	submitted := env.bridge.Submitted()
	require.Len(t, submitted, 1)
	assert.Equal(t, units(95), submitted[0].NetAmount)
	assert.Equal(t, units(500), submitted[0].StakeAmount)
}

func TestWithdrawalFullUnlockApproveRecompletesReactivatedStake(t *testing.T) {
	env := newTestEnv(t)
	id := withdrawer(t, env, "w-full-again")

	w, err := env.withdrawals.Request(env.ctx, RequestWithdrawal{
		UserID: id, Amount: units(100), Destination: "0xabc", Release: domain.ReleaseFull,
	})
	require.NoError(t, err)
	extra, err := DecodeWithdrawalExtra(w.Extra)
	require.NoError(t, err)
	require.Len(t, extra.ReleasedInvestments, 1)
	released := extra.ReleasedInvestments[0].ID

	// The released investment comes back to life before the admin acts.
	rows, err := env.store.Queries().RestoreInvestmentStake(env.ctx, repository.RestoreInvestmentStakeParams{
		ID:     repository.ToPgUUID(released),
		Amount: units(500),
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)
	env.fund(t, id, domain.WalletStake, units(500))
	_, err = env.activations.Activate(env.ctx, id)
	require.NoError(t, err)
	require.True(t, env.account(t, id).DailyProfitActivated)

	_, err = env.withdrawals.Approve(env.ctx, repository.FromPgUUID(w.ID), uuid.New(), "")
	require.NoError(t, err)
	env.withdrawals.Wait()

	acc := env.account(t, id)
	assert.Zero(t, acc.TotalInvestment)
	assert.Zero(t, acc.WalletWithdraw)
	assert.False(t, acc.DailyProfitActivated)

	inv, err := env.store.Queries().GetInvestment(env.ctx, repository.ToPgUUID(released))
	require.NoError(t, err)
	assert.Equal(t, domain.InvestmentCompleted, inv.Status)
	assert.Zero(t, inv.Amount)
	require.NotNil(t, inv.CompletionReason)
	assert.Equal(t, domain.CompletionReasonWithdrawalUnlock, *inv.CompletionReason)
}

func TestWithdrawalPartialUnlockApproved(t *testing.T) {
	env := newTestEnv(t)
	id := env.register(t, "w-partial", nil)
	env.invest(t, id, units(300))
	env.invest(t, id, units(200))
	env.fund(t, id, domain.WalletMain, units(40))

	w, err := env.withdrawals.Request(env.ctx, RequestWithdrawal{
		UserID: id, Amount: units(40), Destination: "0xabc", Release: domain.ReleasePartial,
	})
	require.NoError(t, err)
	extra, err := DecodeWithdrawalExtra(w.Extra)
	require.NoError(t, err)
	assert.Equal(t, units(250), extra.StakingAmount)
	assert.Len(t, extra.ReleasedInvestments, 2)

	_, err = env.withdrawals.Approve(env.ctx, repository.FromPgUUID(w.ID), uuid.New(), "")
	require.NoError(t, err)
	env.withdrawals.Wait()

	acc := env.account(t, id)
	assert.Equal(t, units(250), acc.TotalInvestment)
	assert.Zero(t, acc.WalletWithdraw)

	active, err := env.investments.ListInvestments(env.ctx, id, domain.InvestmentActive)
	require.NoError(t, err)
	var sum int64
	for _, inv := range active {
		sum += inv.Amount
	}
	assert.Equal(t, units(250), sum)

	submitted := env.bridge.Submitted()
	require.Len(t, submitted, 1)
	assert.Equal(t, units(250), submitted[0].StakeAmount)
}

func TestWithdrawalReleaseNeedsStake(t *testing.T) {
	env := newTestEnv(t)
	id := withdrawer(t, env, "w-nostake")
	require.NoError(t, env.ledger.Debit(env.ctx, id, domain.WalletStake, units(500)))

	_, err := env.withdrawals.Request(env.ctx, RequestWithdrawal{
		UserID: id, Amount: units(50), Destination: "0xabc", Release: domain.ReleaseFull,
	})
	require.ErrorIs(t, err, domain.ErrNoActiveStake)
	assert.Equal(t, units(100), env.account(t, id).Wallet)
}

func TestWithdrawalNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.withdrawals.Approve(env.ctx, uuid.New(), uuid.New(), "")
	require.ErrorIs(t, err, domain.ErrWithdrawalNotFound)
	_, err = env.withdrawals.Get(env.ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrWithdrawalNotFound)
}

func TestWithdrawalList(t *testing.T) {
	env := newTestEnv(t)
	a := withdrawer(t, env, "w-list-a")
	b := withdrawer(t, env, "w-list-b")
	for _, id := range []uuid.UUID{a, b} {
		_, err := env.withdrawals.Request(env.ctx, RequestWithdrawal{UserID: id, Amount: units(20), Destination: "0xabc"})
		require.NoError(t, err)
	}

	mine, err := env.withdrawals.List(env.ctx, repository.WithdrawalFilter{}.ForUser(a))
	require.NoError(t, err)
	require.Len(t, mine, 1)

	pending, err := env.withdrawals.List(env.ctx, repository.WithdrawalFilter{}.WithStatus(domain.WithdrawalPending))
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = env.withdrawals.List(env.ctx, repository.WithdrawalFilter{}.WithStatus("lost"))
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
}
