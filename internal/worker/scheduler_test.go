package worker

import (
	"context"
	"testing"
	"time"

	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/events"
	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/ayo6706/invest-ledger/internal/service"
	"github.com/ayo6706/invest-ledger/internal/settings"
	"github.com/ayo6706/invest-ledger/internal/testutil/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSettings struct{ s settings.Settings }

func (f fixedSettings) Get(context.Context) (settings.Settings, error) { return f.s, nil }

type batchEnv struct {
	ctx        context.Context
	store      *memstore.Store
	now        *time.Time
	clock      service.Clock
	accounts   *service.AccountService
	ledger     *service.LedgerService
	invest     *service.InvestmentService
	activate   *service.ActivationService
	profit     *service.ProfitService
	commission *service.CommissionService
}

func newBatchEnv(t *testing.T) *batchEnv {
	t.Helper()
	now := time.Date(2026, time.April, 2, 22, 0, 0, 0, time.UTC)
	nowFn := func() time.Time { return now }
	store := memstore.New()
	store.SetClock(nowFn)
	clock := service.Clock{Location: time.UTC, Now: nowFn}
	cfg := fixedSettings{s: settings.Defaults()}
	recorder := &events.Recorder{}

	commission := service.NewCommissionService(store, cfg, clock, recorder, 10)
	return &batchEnv{
		ctx:        context.Background(),
		store:      store,
		now:        &now,
		clock:      clock,
		accounts:   service.NewAccountService(store),
		ledger:     service.NewLedgerService(store, recorder),
		invest:     service.NewInvestmentService(store, cfg, clock, recorder, commission),
		activate:   service.NewActivationService(store, clock, 10),
		profit:     service.NewProfitService(store, cfg, clock, recorder, 10),
		commission: commission,
	}
}

func (e *batchEnv) activeInvestor(t *testing.T, name string) repository.Account {
	t.Helper()
	acc, err := e.accounts.Register(e.ctx, service.RegisterInput{Username: name, Email: name + "@example.com"})
	require.NoError(t, err)
	id := repository.FromPgUUID(acc.ID)
	require.NoError(t, e.ledger.Credit(e.ctx, id, domain.WalletTopup, 1_000_000_000))
	_, err = e.invest.Invest(e.ctx, id, 1_000_000_000)
	require.NoError(t, err)
	_, err = e.activate.Activate(e.ctx, id)
	require.NoError(t, err)
	return acc
}

func TestSchedulerRunsBatchesUnderLock(t *testing.T) {
	env := newBatchEnv(t)
	acc := env.activeInvestor(t, "batch-owner")
	locker := NewLocalLocker()
	s, err := NewScheduler(ScheduleConfig{Profit: "0 23 * * *", Commission: "30 23 * * *"}, env.clock, env.profit, env.commission, locker)
	require.NoError(t, err)

	report, err := s.RunProfit(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, int64(10_000_000), report.Credited)

	again, err := s.RunProfit(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Processed)

	run, err := s.RunCommission(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Levels.Claimed)

	owner, err := env.accounts.Get(env.ctx, repository.FromPgUUID(acc.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000), owner.Wallet)
}

func TestSchedulerCarriesOverPreviousDay(t *testing.T) {
	env := newBatchEnv(t)
	acc := env.activeInvestor(t, "late-opt-in")
	s, err := NewScheduler(ScheduleConfig{}, env.clock, env.profit, env.commission, NewLocalLocker())
	require.NoError(t, err)

	// No run happened after the opt-in; the next day's run still pays it.
	*env.now = env.now.Add(24 * time.Hour)
	report, err := s.RunProfit(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-04-03", report.Date)
	assert.Zero(t, report.Scanned)
	require.NotNil(t, report.CarriedOver)
	assert.Equal(t, "2026-04-02", report.CarriedOver.Date)
	assert.Equal(t, 1, report.CarriedOver.Processed)

	owner, err := env.accounts.Get(env.ctx, repository.FromPgUUID(acc.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000), owner.Wallet)

	again, err := s.RunProfit(env.ctx)
	require.NoError(t, err)
	assert.Nil(t, again.CarriedOver)
	owner, err = env.accounts.Get(env.ctx, repository.FromPgUUID(acc.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000), owner.Wallet)
}

func TestSchedulerSkipsWhenLockHeld(t *testing.T) {
	env := newBatchEnv(t)
	env.activeInvestor(t, "batch-locked")
	locker := NewLocalLocker()
	s, err := NewScheduler(ScheduleConfig{}, env.clock, env.profit, env.commission, locker)
	require.NoError(t, err)

	release, ok, err := locker.Acquire(env.ctx, "batch:profit:2026-04-02", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = s.RunProfit(env.ctx)
	require.ErrorIs(t, err, ErrBatchRunning)

	release()
	report, err := s.RunProfit(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	env := newBatchEnv(t)
	_, err := NewScheduler(ScheduleConfig{Profit: "every day"}, env.clock, env.profit, env.commission, nil)
	require.Error(t, err)
}

func TestLocalLockerReleaseIsIdempotent(t *testing.T) {
	l := NewLocalLocker()
	release, ok, err := l.Acquire(context.Background(), "x", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, _ = l.Acquire(context.Background(), "x", time.Second)
	assert.False(t, ok)

	release()
	release()
	_, ok, _ = l.Acquire(context.Background(), "x", time.Second)
	assert.True(t, ok)
}
