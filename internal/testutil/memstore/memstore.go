// Package memstore is an in-memory repository.Querier with transactional
// rollback, used by service and handler tests.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type key = [16]byte

type state struct {
	accounts    map[key]repository.Account
	investments map[key]repository.Investment
	activations map[key]repository.TradeActivation
	incomes     map[key]repository.IncomeEntry
	withdrawals map[key]repository.Withdrawal
	transfers   map[key]repository.FundTransfer
	rewards     map[key]repository.TeamReward
	deposits    map[key]repository.Deposit
	settings    map[string][]byte
	audit       []repository.AuditLog
	idempotency map[string]repository.IdempotencyKey
}

func newState() *state {
	return &state{
		accounts:    map[key]repository.Account{},
		investments: map[key]repository.Investment{},
		activations: map[key]repository.TradeActivation{},
		incomes:     map[key]repository.IncomeEntry{},
		withdrawals: map[key]repository.Withdrawal{},
		transfers:   map[key]repository.FundTransfer{},
		rewards:     map[key]repository.TeamReward{},
		deposits:    map[key]repository.Deposit{},
		settings:    map[string][]byte{},
		idempotency: map[string]repository.IdempotencyKey{},
	}
}

func (s *state) clone() *state {
	return &state{
		accounts:    maps.Clone(s.accounts),
		investments: maps.Clone(s.investments),
		activations: maps.Clone(s.activations),
		incomes:     maps.Clone(s.incomes),
		withdrawals: maps.Clone(s.withdrawals),
		transfers:   maps.Clone(s.transfers),
		rewards:     maps.Clone(s.rewards),
		deposits:    maps.Clone(s.deposits),
		settings:    maps.Clone(s.settings),
		audit:       slices.Clone(s.audit),
		idempotency: maps.Clone(s.idempotency),
	}
}

// Store satisfies the service layer's QueryStore. Transactions are
// serialized and run against a copy that replaces the live state on commit.
type Store struct {
	mu       sync.Mutex
	st       *state
	last     time.Time
	failures map[string]error
	calls    map[string]int
	clock    func() time.Time
}

func New() *Store {
	return &Store{
		st:       newState(),
		failures: map[string]error{},
		calls:    map[string]int{},
	}
}

// SetClock replaces the wall clock used for created/updated timestamps.
func (s *Store) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

// FailOn makes every call to the named Querier method return err until
// cleared with a nil err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

// Calls reports how many times the named method ran, failed calls included.
func (s *Store) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *Store) Queries() repository.Querier {
	return &querier{s: s}
}

func (s *Store) RunInTx(ctx context.Context, fn func(q repository.Querier) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&querier{s: s, tx: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// now is strictly increasing so creation order survives sorting.
func (s *Store) now() time.Time {
	t := time.Now().UTC()
	if s.clock != nil {
		t = s.clock().UTC()
	}
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

type querier struct {
	s  *Store
	tx *state
}

// do runs fn on the transaction's state, or on the live state under the
// store lock when called outside a transaction.
func (q *querier) do(method string, fn func(st *state) error) error {
	if q.tx != nil {
		return q.run(method, q.tx, fn)
	}
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	return q.run(method, q.s.st, fn)
}

func (q *querier) run(method string, st *state, fn func(st *state) error) error {
	q.s.calls[method]++
	if err, ok := q.s.failures[method]; ok {
		return err
	}
	return fn(st)
}

func ts(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

func foreignKeyViolation(constraint string) error {
	return &pgconn.PgError{Code: "23503", ConstraintName: constraint, Message: "insert or update violates foreign key constraint"}
}

func checkViolation(constraint string) error {
	return &pgconn.PgError{Code: "23514", ConstraintName: constraint, Message: "new row violates check constraint"}
}

func sortedValues[V any](m map[key]V, less func(a, b V) int) []V {
	out := slices.Collect(maps.Values(m))
	slices.SortFunc(out, less)
	return out
}

func compareTimeID(at, bt time.Time, aid, bid key) int {
	if c := at.Compare(bt); c != 0 {
		return c
	}
	return slices.Compare(aid[:], bid[:])
}

func page[T any](items []T, limit, offset int32) []T {
	if offset > 0 {
		if int(offset) >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items
}
