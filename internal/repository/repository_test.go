package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/ayo6706/invest-ledger/internal/db"
	"github.com/ayo6706/invest-ledger/internal/testutil/dblock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	_ = godotenv.Load("../../.env") // Load from root
}

func setupStore(t *testing.T) (*Store, *pgxpool.Pool) {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	release := dblock.Acquire()
	t.Cleanup(release)

	ctx := context.Background()
	pool, err := db.Connect(ctx, os.Getenv("DATABASE_URL"))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool))
	return NewStore(pool), pool
}

func createTestAccount(t *testing.T, q Querier, referrer *uuid.UUID) Account {
	t.Helper()
	id := uuid.New()
	acc, err := q.CreateAccount(context.Background(), CreateAccountParams{
		ID:         ToPgUUID(id),
		Username:   "user_" + id.String()[:8],
		Email:      "user_" + id.String()[:8] + "@example.com",
		Role:       "user",
		ReferrerID: NullableUUID(referrer),
	})
	require.NoError(t, err)
	return acc
}

func TestApplyBalanceDeltaGuardsNegativeBalances(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	q := store.Queries()
	acc := createTestAccount(t, q, nil)

	rows, err := q.ApplyBalanceDelta(ctx, ApplyBalanceDeltaParams{ID: acc.ID, WalletTopup: 5_000_000})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	rows, err = q.ApplyBalanceDelta(ctx, ApplyBalanceDeltaParams{ID: acc.ID, WalletTopup: -6_000_000, TotalInvestment: 6_000_000})
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	rows, err = q.ApplyBalanceDelta(ctx, ApplyBalanceDeltaParams{ID: acc.ID, WalletTopup: -5_000_000, TotalInvestment: 5_000_000})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	got, err := q.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.WalletTopup)
	assert.Equal(t, int64(5_000_000), got.TotalInvestment)
}

func TestCreateTradeActivationOncePerDay(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	q := store.Queries()
	acc := createTestAccount(t, q, nil)

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	params := CreateTradeActivationParams{
		ID:             ToPgUUID(uuid.New()),
		UserID:         acc.ID,
		ActivationDate: ToPgDate(day),
		ExpiryDate:     ToPgTimestamptz(day.Add(24 * time.Hour)),
	}
	first, err := q.CreateTradeActivation(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, "pending", first.ProfitStatus)

	params.ID = ToPgUUID(uuid.New())
	_, err = q.CreateTradeActivation(ctx, params)
	assert.True(t, errors.Is(err, pgx.ErrNoRows))

	rows, err := q.TransitionProfitStatus(ctx, TransitionProfitStatusParams{
		ID:           first.ID,
		ProfitStatus: "processed",
		ProfitAmount: 10_000_000,
		ProcessedAt:  ToPgTimestamptz(time.Now()),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	rows, err = q.TransitionProfitStatus(ctx, TransitionProfitStatusParams{ID: first.ID, ProfitStatus: "failed"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	list, err := q.ListTradeActivations(ctx, ActivationFilter{}.ForUser(FromPgUUID(acc.ID)).On(day))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(10_000_000), list[0].ProfitAmount)

	claimed, err := q.ClaimActivationCommission(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claimed)
	claimed, err = q.ClaimActivationCommission(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), claimed)
}

func TestReferralBonusIncomeIsUniquePerPair(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	q := store.Queries()
	referrer := createTestAccount(t, q, nil)
	refID := FromPgUUID(referrer.ID)
	investor := createTestAccount(t, q, &refID)

	params := CreateIncomeEntryParams{
		ID:         ToPgUUID(uuid.New()),
		UserID:     referrer.ID,
		UserIDFrom: investor.ID,
		Type:       "referral_bonus",
		Amount:     100_000_000,
	}
	_, err := q.CreateIncomeEntry(ctx, params)
	require.NoError(t, err)

	params.ID = ToPgUUID(uuid.New())
	_, err = q.CreateIncomeEntry(ctx, params)
	assert.True(t, errors.Is(err, pgx.ErrNoRows))

	list, err := q.ListIncomeEntries(ctx, IncomeFilter{}.ForUser(refID).OfType("referral_bonus"))
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRunInTxRollsBack(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	acc := createTestAccount(t, store.Queries(), nil)

	boom := errors.New("boom")
	err := store.RunInTx(ctx, func(q Querier) error {
		if _, err := q.ApplyBalanceDelta(ctx, ApplyBalanceDeltaParams{ID: acc.ID, Wallet: 1_000_000}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Queries().GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Wallet)
}

func TestInvestmentReleaseAndRestore(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	q := store.Queries()
	acc := createTestAccount(t, q, nil)

	inv, err := q.CreateInvestment(ctx, CreateInvestmentParams{
		ID:         ToPgUUID(uuid.New()),
		UserID:     acc.ID,
		Amount:     500_000_000,
		Tier:       "starter",
		RoiPercent: decimal.NewFromInt(1),
		StartDate:  ToPgDate(time.Now()),
	})
	require.NoError(t, err)

	reason := "withdrawal_unlock"
	rows, err := q.ReleaseInvestmentStake(ctx, ReleaseInvestmentStakeParams{ID: inv.ID, Amount: inv.Amount, Complete: true, CompletionReason: &reason})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	got, err := q.GetInvestment(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, int64(0), got.Amount)

	_, err = q.RestoreInvestmentStake(ctx, RestoreInvestmentStakeParams{ID: inv.ID, Amount: 500_000_000})
	require.NoError(t, err)
	got, err = q.GetInvestment(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "active", got.Status)
	assert.Equal(t, int64(500_000_000), got.Amount)
	assert.True(t, got.RoiPercent.Equal(decimal.NewFromInt(1)))
}
