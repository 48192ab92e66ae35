package service

import (
	"testing"
	"time"

	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivateOncePerDay(t *testing.T) {
	env := newTestEnv(t)
	id := env.register(t, "trader", nil)
	env.invest(t, id, units(100))

	first, err := env.activations.Activate(env.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ProfitPending, first.ProfitStatus)
	assert.Equal(t, domain.ActivationActive, first.Status)

	second, err := env.activations.Activate(env.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	today, err := env.activations.Today(env.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first.ID, today.ID)

	acc := env.account(t, id)
	assert.True(t, acc.DailyProfitActivated)
	assert.True(t, acc.LastActivationAt.Valid)

	// A new business day opens a new record.
	env.clock.advance(24 * time.Hour)
	_, err = env.activations.Today(env.ctx, id)
	require.ErrorIs(t, err, domain.ErrActivationNotFound)
	next, err := env.activations.Activate(env.ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, next.ID)
}

func TestActivateRequiresEligibleAccount(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.activations.Activate(env.ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	idle := env.register(t, "idle", nil)
	_, err = env.activations.Activate(env.ctx, idle)
	require.ErrorIs(t, err, domain.ErrNoActiveStake)

	blocked := env.register(t, "blocked", nil)
	env.invest(t, blocked, units(100))
	require.NoError(t, env.accounts.SetBlocked(env.ctx, uuid.New(), blocked, true))
	_, err = env.activations.Activate(env.ctx, blocked)
	require.ErrorIs(t, err, domain.ErrAccountBlocked)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestSyncActivations(t *testing.T) {
	env := newTestEnv(t)

	// Three flagged accounts with records span two pages.
	var opted []uuid.UUID
	for _, name := range []string{"sync-a", "sync-b", "sync-c"} {
		id := env.register(t, name, nil)
		env.invest(t, id, units(100))
		_, err := env.activations.Activate(env.ctx, id)
		require.NoError(t, err)
		opted = append(opted, id)
	}
	// Flagged today but the record is missing.
	drifted := env.register(t, "sync-drifted", nil)
	env.invest(t, drifted, units(100))
	require.NoError(t, env.store.Queries().SetDailyProfitActivated(env.ctx, repository.SetDailyProfitActivatedParams{
		ID:               repository.ToPgUUID(drifted),
		Activated:        true,
		LastActivationAt: repository.ToPgTimestamptz(env.clock.Now()),
	}))
	lapsed := env.register(t, "sync-lapsed", nil)
	env.invest(t, lapsed, units(100))
	_, err := env.activations.Activate(env.ctx, lapsed)
	require.NoError(t, err)
	require.NoError(t, env.accounts.SetBlocked(env.ctx, uuid.New(), lapsed, true))

	report, err := env.activations.SyncActivations(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Scanned)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Cleared)
	assert.False(t, env.account(t, lapsed).DailyProfitActivated)

	rec, err := env.activations.Today(env.ctx, drifted)
	require.NoError(t, err)
	assert.Equal(t, domain.ProfitPending, rec.ProfitStatus)

	// A second sweep the same day changes nothing.
	report, err = env.activations.SyncActivations(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Scanned)
	assert.Zero(t, report.Created)
	assert.Zero(t, report.Cleared)

	records, err := env.store.Queries().ListTradeActivations(env.ctx, repository.ActivationFilter{}.On(env.today()))
	require.NoError(t, err)
	assert.Len(t, records, 5)

	// Yesterday's opt-ins expire with the day instead of carrying over.
	env.clock.advance(24 * time.Hour)
	report, err = env.activations.SyncActivations(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Scanned)
	assert.Zero(t, report.Created)
	assert.Equal(t, 4, report.Cleared)

	for _, id := range append(opted, drifted) {
		assert.False(t, env.account(t, id).DailyProfitActivated)
		_, err := env.activations.Today(env.ctx, id)
		assert.ErrorIs(t, err, domain.ErrActivationNotFound)
	}
	records, err = env.store.Queries().ListTradeActivations(env.ctx, repository.ActivationFilter{}.On(env.today()))
	require.NoError(t, err)
	assert.Empty(t, records)

	// Opting in again the new day works as usual.
	_, err = env.activations.Activate(env.ctx, opted[0])
	require.NoError(t, err)
	assert.True(t, env.account(t, opted[0]).DailyProfitActivated)
}

func TestSingleOptInEarnsProfitOnce(t *testing.T) {
	env := newTestEnv(t)
	id := env.register(t, "one-day", nil)
	env.invest(t, id, units(100))
	_, err := env.activations.Activate(env.ctx, id)
	require.NoError(t, err)

	_, err = env.profit.RunDailyProfit(env.ctx, env.today())
	require.NoError(t, err)
	require.Equal(t, units(1), env.account(t, id).Wallet)

	for day := 1; day <= 5; day++ {
		env.clock.advance(24 * time.Hour)
		_, err := env.reconciliation.Run(env.ctx)
		require.NoError(t, err)
		report, err := env.profit.RunDailyProfit(env.ctx, env.today())
		require.NoError(t, err)
		assert.Zero(t, report.Processed, "day %d", day)
	}

	assert.Equal(t, units(1), env.account(t, id).Wallet)
	assert.Len(t, env.incomes(t, id, domain.IncomeDailyProfit), 1)
	assert.False(t, env.account(t, id).DailyProfitActivated)
}
