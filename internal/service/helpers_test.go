package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/events"
	"github.com/ayo6706/invest-ledger/internal/gateway"
	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/ayo6706/invest-ledger/internal/settings"
	"github.com/ayo6706/invest-ledger/internal/testutil/memstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// units converts whole currency units to micros.
func units(n int64) int64 { return n * 1_000_000 }

type staticSettings struct {
	mu sync.Mutex
	s  settings.Settings
}

func (f *staticSettings) Get(context.Context) (settings.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s, nil
}

func (f *staticSettings) update(fn func(s *settings.Settings)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.s)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	ctx      context.Context
	store    *memstore.Store
	clock    *testClock
	settings *staticSettings
	events   *events.Recorder
	bridge   *gateway.MockBridge

	ledger         *LedgerService
	accounts       *AccountService
	activations    *ActivationService
	commission     *CommissionService
	investments    *InvestmentService
	profit         *ProfitService
	withdrawals    *WithdrawalService
	transfers      *TransferService
	deposits       *DepositService
	reconciliation *ReconciliationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tc := &testClock{now: time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)}
	store := memstore.New()
	store.SetClock(tc.Now)

	clock := Clock{Location: time.UTC, Now: tc.Now}
	cfg := &staticSettings{s: settings.Defaults()}
	recorder := &events.Recorder{}
	bridge := &gateway.MockBridge{}

	env := &testEnv{
		ctx:      context.Background(),
		store:    store,
		clock:    tc,
		settings: cfg,
		events:   recorder,
		bridge:   bridge,
	}
	env.ledger = NewLedgerService(store, recorder)
	env.accounts = NewAccountService(store)
	env.activations = NewActivationService(store, clock, 2)
	env.commission = NewCommissionService(store, cfg, clock, recorder, 2)
	env.investments = NewInvestmentService(store, cfg, clock, recorder, env.commission)
	env.profit = NewProfitService(store, cfg, clock, recorder, 2)
	env.withdrawals = NewWithdrawalService(store, cfg, clock, bridge, recorder)
	env.transfers = NewTransferService(store, env.ledger, cfg)
	env.deposits = NewDepositService(store, cfg, recorder)
	env.reconciliation = NewReconciliationService(store, env.ledger, env.activations, clock, time.Minute, 10)
	return env
}

func (e *testEnv) today() time.Time {
	return startOfDay(e.clock.Now())
}

func (e *testEnv) register(t *testing.T, name string, referrer *uuid.UUID) uuid.UUID {
	t.Helper()
	acc, err := e.accounts.Register(e.ctx, RegisterInput{
		Username:   name,
		Email:      name + "@example.com",
		ReferrerID: referrer,
	})
	require.NoError(t, err)
	return repository.FromPgUUID(acc.ID)
}

func (e *testEnv) fund(t *testing.T, id uuid.UUID, wallet domain.Wallet, amount int64) {
	t.Helper()
	require.NoError(t, e.ledger.Credit(e.ctx, id, wallet, amount))
}

// invest funds topup with amount and stakes it.
func (e *testEnv) invest(t *testing.T, id uuid.UUID, amount int64) repository.Investment {
	t.Helper()
	e.fund(t, id, domain.WalletTopup, amount)
	inv, err := e.investments.Invest(e.ctx, id, amount)
	require.NoError(t, err)
	return inv
}

func (e *testEnv) account(t *testing.T, id uuid.UUID) repository.Account {
	t.Helper()
	acc, err := e.accounts.Get(e.ctx, id)
	require.NoError(t, err)
	return acc
}

func (e *testEnv) incomes(t *testing.T, id uuid.UUID, incomeType string) []repository.IncomeEntry {
	t.Helper()
	items, err := e.accounts.ListIncomes(e.ctx, repository.IncomeFilter{}.ForUser(id).OfType(incomeType))
	require.NoError(t, err)
	return items
}

func totalBalance(a repository.Account) int64 {
	return a.Wallet + a.WalletTopup + a.WalletWithdraw + a.TotalInvestment
}
