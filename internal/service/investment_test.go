package service

import (
	"errors"
	"testing"

	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/events"
	"github.com/ayo6706/invest-ledger/internal/settings"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvestMovesTopupIntoStake(t *testing.T) {
	env := newTestEnv(t)
	id := env.register(t, "investor", nil)

	inv := env.invest(t, id, units(250))
	assert.Equal(t, units(250), inv.Amount)
	assert.Equal(t, domain.InvestmentActive, inv.Status)
	assert.Equal(t, "starter", inv.Tier)
	assert.True(t, inv.RoiPercent.Equal(decimal.NewFromInt(1)))

	acc := env.account(t, id)
	assert.Zero(t, acc.WalletTopup)
	assert.Equal(t, units(250), acc.TotalInvestment)
	assert.Equal(t, units(250), acc.LastInvestmentAmount)
	assert.Contains(t, env.events.Types(), events.InvestmentCreated)

	list, err := env.investments.ListInvestments(env.ctx, id, domain.InvestmentActive)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, inv.ID, list[0].ID)
}

func TestInvestPicksTierByAmount(t *testing.T) {
	env := newTestEnv(t)
	env.settings.update(func(s *settings.Settings) {
		s.ROITiers = append(s.ROITiers, settings.Tier{Name: "pro", MinAmount: units(1000), DailyROIPercent: decimal.RequireFromString("1.5")})
	})
	id := env.register(t, "whale", nil)

	inv := env.invest(t, id, units(1000))
	assert.Equal(t, "pro", inv.Tier)
	assert.True(t, inv.RoiPercent.Equal(decimal.RequireFromString("1.5")))
}

func TestInvestValidation(t *testing.T) {
	env := newTestEnv(t)
	id := env.register(t, "small", nil)

	var ve *domain.ValidationError
	_, err := env.investments.Invest(env.ctx, id, 0)
	require.ErrorAs(t, err, &ve)

	_, err = env.investments.Invest(env.ctx, id, units(5))
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "amount", ve.Field)

	_, err = env.investments.Invest(env.ctx, id, units(20))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	_, err = env.investments.Invest(env.ctx, uuid.New(), units(20))
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = env.investments.ListInvestments(env.ctx, id, "paused")
	require.ErrorAs(t, err, &ve)
}

func TestReferralBonusPaidOncePerPair(t *testing.T) {
	env := newTestEnv(t)
	referrer := env.register(t, "referrer", nil)
	investor := env.register(t, "referred", &referrer)

	env.invest(t, investor, units(100))
	env.invest(t, investor, units(300))

	bonuses := env.incomes(t, referrer, domain.IncomeReferralBonus)
	require.Len(t, bonuses, 1)
	assert.Equal(t, units(10), bonuses[0].Amount)

	acc := env.account(t, referrer)
	assert.Equal(t, units(10), acc.Wallet)
	assert.Equal(t, int32(1), acc.DirectReferrals)
	assert.Equal(t, units(10), acc.ReferralIncome)
	assert.Equal(t, units(400), acc.TeamBusiness)
}

func TestInvestWithoutReferrerPaysNothing(t *testing.T) {
	env := newTestEnv(t)
	id := env.register(t, "solo", nil)
	env.invest(t, id, units(100))

	assert.Zero(t, env.store.Calls("IncrementReferralCounters"))
	assert.NotContains(t, env.events.Types(), events.IncomeCredited)
}

func TestInvestRollsBackWithCommissionFailure(t *testing.T) {
	env := newTestEnv(t)
	referrer := env.register(t, "rb-referrer", nil)
	investor := env.register(t, "rb-investor", &referrer)
	env.fund(t, investor, domain.WalletTopup, units(100))

	env.store.FailOn("IncrementReferralCounters", errors.New("deadlock detected"))
	_, err := env.investments.Invest(env.ctx, investor, units(100))
	require.Error(t, err)

	acc := env.account(t, investor)
	assert.Equal(t, units(100), acc.WalletTopup)
	assert.Zero(t, acc.TotalInvestment)
	assert.Zero(t, env.account(t, referrer).Wallet)
	assert.Empty(t, env.incomes(t, referrer, domain.IncomeReferralBonus))
}

func TestTeamBusinessRespectsDepth(t *testing.T) {
	env := newTestEnv(t)
	env.settings.update(func(s *settings.Settings) { s.TeamDepth = 2 })

	top := env.register(t, "top", nil)
	mid := env.register(t, "mid", &top)
	low := env.register(t, "low", &mid)
	leaf := env.register(t, "leaf", &low)

	env.invest(t, leaf, units(100))

	assert.Equal(t, units(100), env.account(t, low).TeamBusiness)
	assert.Equal(t, units(100), env.account(t, mid).TeamBusiness)
	assert.Zero(t, env.account(t, top).TeamBusiness)
}
