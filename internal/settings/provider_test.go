package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ayo6706/invest-ledger/internal/testutil/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderFallsBackToDefaults(t *testing.T) {
	store := memstore.New()
	p := NewProvider(store.Queries(), nil, Defaults(), time.Minute)

	s, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, s.WithdrawalFeePercent.Equal(decimal.NewFromInt(5)))
	assert.True(t, s.WithdrawalCapPercent.Equal(decimal.NewFromInt(20)))
	assert.Len(t, s.LevelCommission, 5)
}

func TestProviderCachesUntilUpdate(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	p := NewProvider(store.Queries(), nil, Defaults(), time.Hour)

	_, err := p.Get(ctx)
	require.NoError(t, err)
	_, err = p.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Calls("GetSetting"))

	next := Defaults()
	next.WithdrawalFeePercent = decimal.NewFromInt(3)
	require.NoError(t, p.Update(ctx, next))

	s, err := p.Get(ctx)
	require.NoError(t, err)
	assert.True(t, s.WithdrawalFeePercent.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, 2, store.Calls("GetSetting"))
}

func TestProviderReturnsIndependentCopies(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	p := NewProvider(store.Queries(), nil, Defaults(), time.Hour)

	s, err := p.Get(ctx)
	require.NoError(t, err)
	want := s.LevelCommission[0].Percent
	s.LevelCommission[0].Percent = decimal.NewFromInt(99)
	s.ROITiers[0].DailyROIPercent = decimal.NewFromInt(99)
	s.TeamRewardTiers[0].Reward = 1

	again, err := p.Get(ctx)
	require.NoError(t, err)
	assert.True(t, again.LevelCommission[0].Percent.Equal(want))
	assert.True(t, again.ROITiers[0].DailyROIPercent.Equal(Defaults().ROITiers[0].DailyROIPercent))
	assert.Equal(t, Defaults().TeamRewardTiers[0], again.TeamRewardTiers[0])
	assert.Equal(t, 1, store.Calls("GetSetting"))
}

func TestProviderRefreshesAfterTTL(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	p := NewProvider(store.Queries(), nil, Defaults(), time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	_, err := p.Get(ctx)
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, err = p.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Calls("GetSetting"))
}

func TestProviderSurfacesStoreErrors(t *testing.T) {
	store := memstore.New()
	store.FailOn("GetSetting", errors.New("connection refused"))
	p := NewProvider(store.Queries(), nil, Defaults(), time.Minute)

	_, err := p.Get(context.Background())
	require.Error(t, err)
}

func TestUpdateRejectsInvalidSettings(t *testing.T) {
	store := memstore.New()
	p := NewProvider(store.Queries(), nil, Defaults(), time.Minute)

	bad := Defaults()
	bad.WithdrawalFeePercent = decimal.NewFromInt(120)
	require.Error(t, p.Update(context.Background(), bad))
	assert.Zero(t, store.Calls("UpsertSetting"))
}

func TestTierFor(t *testing.T) {
	s := Defaults()
	s.ROITiers = []Tier{
		{Name: "starter", MinAmount: 0, DailyROIPercent: decimal.NewFromInt(1)},
		{Name: "pro", MinAmount: 1_000_000_000, DailyROIPercent: decimal.RequireFromString("1.5")},
	}

	tier, ok := s.TierFor(999_999_999)
	require.True(t, ok)
	assert.Equal(t, "starter", tier.Name)

	tier, ok = s.TierFor(1_000_000_000)
	require.True(t, ok)
	assert.Equal(t, "pro", tier.Name)
}
