package service

import (
	"errors"
	"testing"

	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterResolvesReferrer(t *testing.T) {
	env := newTestEnv(t)
	root := env.register(t, "a-root", nil)

	byID := env.account(t, env.register(t, "a-by-id", &root))
	assert.Equal(t, root, repository.FromPgUUID(byID.ReferrerID))
	assert.Equal(t, domain.RoleUser, byID.Role)

	byName, err := env.accounts.Register(env.ctx, RegisterInput{
		Username:         "a-by-name",
		Email:            "a-by-name@example.com",
		ReferrerUsername: " a-root ",
	})
	require.NoError(t, err)
	assert.Equal(t, root, repository.FromPgUUID(byName.ReferrerID))
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	missing := uuid.New()

	cases := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"no username", RegisterInput{Email: "x@example.com"}, "username"},
		{"bad email", RegisterInput{Username: "x", Email: "not-an-email"}, "email"},
		{"bad role", RegisterInput{Username: "x", Email: "x@example.com", Role: "root"}, "role"},
		{"unknown referrer id", RegisterInput{Username: "x", Email: "x@example.com", ReferrerID: &missing}, "referrer_id"},
		{"unknown referrer name", RegisterInput{Username: "x", Email: "x@example.com", ReferrerUsername: "ghost"}, "referrer"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.accounts.Register(env.ctx, tc.in)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestRegisterDuplicateUsernameKeepsPgError(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a-dup", nil)

	_, err := env.accounts.Register(env.ctx, RegisterInput{Username: "a-dup", Email: "other@example.com"})
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "23505", pgErr.Code)
}

func TestSetBlockedAudits(t *testing.T) {
	env := newTestEnv(t)
	admin := uuid.New()
	id := env.register(t, "a-block", nil)

	require.NoError(t, env.accounts.SetBlocked(env.ctx, admin, id, true))
	assert.True(t, env.account(t, id).Blocked)
	require.NoError(t, env.accounts.SetBlocked(env.ctx, admin, id, false))
	assert.False(t, env.account(t, id).Blocked)

	history, err := NewAuditService(env.store).History(env.ctx, "account", id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "blocked", history[0].Action)
	assert.Equal(t, "unblocked", history[1].Action)
	require.NotNil(t, history[1].NextState)
	assert.Equal(t, "active", *history[1].NextState)

	require.ErrorIs(t, env.accounts.SetBlocked(env.ctx, admin, uuid.New(), true), domain.ErrAccountNotFound)
}

func TestListIncomesRejectsUnknownType(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.accounts.ListIncomes(env.ctx, repository.IncomeFilter{}.OfType("bogus"))
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "type", ve.Field)
}
