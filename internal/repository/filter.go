package repository

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// whereBuilder collects AND-ed predicates written with a single '?'
// placeholder each and numbers them as $n from a starting index.
type whereBuilder struct {
	clauses []string
	args    []any
	next    int
}

func newWhere(start int) *whereBuilder {
	return &whereBuilder{next: start}
}

func (b *whereBuilder) add(clause string, arg any) {
	b.clauses = append(b.clauses, strings.Replace(clause, "?", "$"+strconv.Itoa(b.next), 1))
	b.args = append(b.args, arg)
	b.next++
}

func (b *whereBuilder) addRaw(clause string) {
	b.clauses = append(b.clauses, clause)
}

func (b *whereBuilder) build() (string, []any) {
	if len(b.clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(b.clauses, " AND "), b.args
}

func pageClause(limit, offset int32) string {
	var s string
	if limit > 0 {
		s += fmt.Sprintf(" LIMIT %d", limit)
	}
	if offset > 0 {
		s += fmt.Sprintf(" OFFSET %d", offset)
	}
	return s
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ActivationFilter selects trade activations. Zero fields match everything.
// Dates are compared by calendar day, both bounds inclusive.
type ActivationFilter struct {
	UserID         uuid.UUID
	DateFrom       time.Time
	DateTo         time.Time
	ProfitStatus   string
	CommissionPaid *bool
	Limit          int32
	Offset         int32
}

func (f ActivationFilter) ForUser(id uuid.UUID) ActivationFilter {
	f.UserID = id
	return f
}

func (f ActivationFilter) Between(from, to time.Time) ActivationFilter {
	f.DateFrom, f.DateTo = from, to
	return f
}

func (f ActivationFilter) On(day time.Time) ActivationFilter {
	return f.Between(day, day)
}

func (f ActivationFilter) WithProfitStatus(status string) ActivationFilter {
	f.ProfitStatus = status
	return f
}

func (f ActivationFilter) WithCommissionPaid(paid bool) ActivationFilter {
	f.CommissionPaid = &paid
	return f
}

func (f ActivationFilter) Page(limit, offset int32) ActivationFilter {
	f.Limit, f.Offset = limit, offset
	return f
}

func (f ActivationFilter) where() (string, []any) {
	return f.whereFrom(1)
}

func (f ActivationFilter) whereFrom(start int) (string, []any) {
	b := newWhere(start)
	if f.UserID != uuid.Nil {
		b.add("user_id = ?", ToPgUUID(f.UserID))
	}
	if !f.DateFrom.IsZero() {
		b.add("activation_date >= ?", ToPgDate(f.DateFrom))
	}
	if !f.DateTo.IsZero() {
		b.add("activation_date <= ?", ToPgDate(f.DateTo))
	}
	if f.ProfitStatus != "" {
		b.add("profit_status = ?", f.ProfitStatus)
	}
	if f.CommissionPaid != nil {
		if *f.CommissionPaid {
			b.addRaw("commission_paid")
		} else {
			b.addRaw("NOT commission_paid")
		}
	}
	return b.build()
}

// Matches reports whether a row satisfies the filter; paging is ignored.
func (f ActivationFilter) Matches(a TradeActivation) bool {
	if f.UserID != uuid.Nil && FromPgUUID(a.UserID) != f.UserID {
		return false
	}
	day := calendarDay(a.ActivationDate.Time)
	if !f.DateFrom.IsZero() && day.Before(calendarDay(f.DateFrom)) {
		return false
	}
	if !f.DateTo.IsZero() && day.After(calendarDay(f.DateTo)) {
		return false
	}
	if f.ProfitStatus != "" && a.ProfitStatus != f.ProfitStatus {
		return false
	}
	if f.CommissionPaid != nil && a.CommissionPaid != *f.CommissionPaid {
		return false
	}
	return true
}

// WithdrawalFilter selects withdrawals, newest first.
type WithdrawalFilter struct {
	UserID uuid.UUID
	Status string
	Since  time.Time
	Limit  int32
	Offset int32
}

func (f WithdrawalFilter) ForUser(id uuid.UUID) WithdrawalFilter {
	f.UserID = id
	return f
}

func (f WithdrawalFilter) WithStatus(status string) WithdrawalFilter {
	f.Status = status
	return f
}

func (f WithdrawalFilter) CreatedSince(t time.Time) WithdrawalFilter {
	f.Since = t
	return f
}

func (f WithdrawalFilter) Page(limit, offset int32) WithdrawalFilter {
	f.Limit, f.Offset = limit, offset
	return f
}

func (f WithdrawalFilter) where() (string, []any) {
	b := newWhere(1)
	if f.UserID != uuid.Nil {
		b.add("user_id = ?", ToPgUUID(f.UserID))
	}
	if f.Status != "" {
		b.add("status = ?", f.Status)
	}
	if !f.Since.IsZero() {
		b.add("created_at >= ?", ToPgTimestamptz(f.Since))
	}
	return b.build()
}

func (f WithdrawalFilter) Matches(w Withdrawal) bool {
	if f.UserID != uuid.Nil && FromPgUUID(w.UserID) != f.UserID {
		return false
	}
	if f.Status != "" && w.Status != f.Status {
		return false
	}
	if !f.Since.IsZero() && w.CreatedAt.Time.Before(f.Since) {
		return false
	}
	return true
}

// IncomeFilter selects income entries, newest first.
type IncomeFilter struct {
	UserID     uuid.UUID
	UserIDFrom uuid.UUID
	Type       string
	Limit      int32
	Offset     int32
}

func (f IncomeFilter) ForUser(id uuid.UUID) IncomeFilter {
	f.UserID = id
	return f
}

func (f IncomeFilter) From(id uuid.UUID) IncomeFilter {
	f.UserIDFrom = id
	return f
}

func (f IncomeFilter) OfType(t string) IncomeFilter {
	f.Type = t
	return f
}

func (f IncomeFilter) Page(limit, offset int32) IncomeFilter {
	f.Limit, f.Offset = limit, offset
	return f
}

func (f IncomeFilter) where() (string, []any) {
	b := newWhere(1)
	if f.UserID != uuid.Nil {
		b.add("user_id = ?", ToPgUUID(f.UserID))
	}
	if f.UserIDFrom != uuid.Nil {
		b.add("user_id_from = ?", ToPgUUID(f.UserIDFrom))
	}
	if f.Type != "" {
		b.add("type = ?", f.Type)
	}
	return b.build()
}

func (f IncomeFilter) Matches(e IncomeEntry) bool {
	if f.UserID != uuid.Nil && FromPgUUID(e.UserID) != f.UserID {
		return false
	}
	if f.UserIDFrom != uuid.Nil && FromPgUUID(e.UserIDFrom) != f.UserIDFrom {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	return true
}
