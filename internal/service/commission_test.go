package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/ayo6706/invest-ledger/internal/settings"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// levelChain builds top <- mid <- owner where every account invests and the
// owner's activation is processed for today with a profit of 10.
func levelChain(t *testing.T, env *testEnv) (top, mid, owner uuid.UUID) {
	t.Helper()
	top = env.register(t, "lvl-top", nil)
	mid = env.register(t, "lvl-mid", &top)
	owner = env.register(t, "lvl-owner", &mid)
	env.invest(t, mid, units(100))
	env.invest(t, owner, units(1000))

	_, err := env.activations.Activate(env.ctx, owner)
	require.NoError(t, err)
	report, err := env.profit.RunDailyProfit(env.ctx, env.today())
	require.NoError(t, err)
	require.Equal(t, 1, report.Processed)
	return top, mid, owner
}

func TestLevelCommissionPaysQualifiedUplines(t *testing.T) {
	env := newTestEnv(t)
	env.settings.update(func(s *settings.Settings) {
		s.LevelCommission = []settings.Level{
			{Percent: decimal.NewFromInt(10), MinDirectReferrals: 1},
			{Percent: decimal.NewFromInt(5), MinDirectReferrals: 1},
		}
	})
	top, mid, owner := levelChain(t, env)
	topBefore := env.account(t, top).Wallet
	midBefore := env.account(t, mid).Wallet

	report, err := env.commission.RunLevelCommission(env.ctx, env.today())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Claimed)
	assert.Equal(t, 2, report.Payouts)
	assert.Equal(t, units(1)+units(1)/2, report.Credited)

	assert.Equal(t, midBefore+units(1), env.account(t, mid).Wallet)
	assert.Equal(t, topBefore+units(1)/2, env.account(t, top).Wallet)

	entries := env.incomes(t, top, domain.IncomeLevelROI)
	require.Len(t, entries, 1)
	assert.Equal(t, owner, repository.FromPgUUID(entries[0].UserIDFrom))
	var meta map[string]any
	require.NoError(t, json.Unmarshal(entries[0].Metadata, &meta))
	assert.EqualValues(t, 2, meta["level"])

	// A rerun finds nothing left to claim.
	report, err = env.commission.RunLevelCommission(env.ctx, env.today())
	require.NoError(t, err)
	assert.Zero(t, report.Claimed)
	assert.Equal(t, midBefore+units(1), env.account(t, mid).Wallet)
	assert.Len(t, env.incomes(t, mid, domain.IncomeLevelROI), 1)
}

func TestLevelCommissionSkipsUnqualifiedLevel(t *testing.T) {
	env := newTestEnv(t)
	// Defaults need two direct referrals at level two; top has one.
	top, mid, _ := levelChain(t, env)
	topBefore := env.account(t, top).Wallet

	report, err := env.commission.RunLevelCommission(env.ctx, env.today())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Payouts)
	assert.Len(t, env.incomes(t, mid, domain.IncomeLevelROI), 1)
	assert.Equal(t, topBefore, env.account(t, top).Wallet)
}

func TestLevelCommissionSkipsBlockedUpline(t *testing.T) {
	env := newTestEnv(t)
	env.settings.update(func(s *settings.Settings) {
		s.LevelCommission = []settings.Level{
			{Percent: decimal.NewFromInt(10), MinDirectReferrals: 0},
			{Percent: decimal.NewFromInt(5), MinDirectReferrals: 0},
		}
	})
	top, mid, _ := levelChain(t, env)
	require.NoError(t, env.accounts.SetBlocked(env.ctx, uuid.New(), mid, true))

	report, err := env.commission.RunLevelCommission(env.ctx, env.today())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Payouts)
	assert.Empty(t, env.incomes(t, mid, domain.IncomeLevelROI))
	assert.Len(t, env.incomes(t, top, domain.IncomeLevelROI), 1)
}

func TestTeamRewardQualifyAndPromote(t *testing.T) {
	env := newTestEnv(t)
	env.settings.update(func(s *settings.Settings) {
		s.TeamRewardTiers = []settings.TeamRewardTier{
			{Name: "bronze", Threshold: units(100), Reward: units(5), PeriodDays: 7},
			{Name: "silver", Threshold: units(1000), Reward: units(50), PeriodDays: 7},
		}
	})
	leader := env.register(t, "leader", nil)
	member := env.register(t, "member", &leader)
	env.invest(t, member, units(150))

	created, err := env.commission.QualifyTeamRewards(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	created, err = env.commission.QualifyTeamRewards(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, created)

	// Not due yet.
	completed, err := env.commission.PromoteDueTeamRewards(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, completed)

	before := env.account(t, leader).Wallet
	env.clock.advance(8 * 24 * time.Hour)
	completed, err = env.commission.PromoteDueTeamRewards(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)

	acc := env.account(t, leader)
	assert.Equal(t, before+units(5), acc.Wallet)
	assert.Equal(t, "bronze", acc.Rank)
	assert.Len(t, env.incomes(t, leader, domain.IncomeTeamReward), 1)

	rewards, err := env.accounts.TeamRewards(env.ctx, leader)
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	assert.Equal(t, domain.TeamRewardCompleted, rewards[0].Status)

	completed, err = env.commission.PromoteDueTeamRewards(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, completed)
}
