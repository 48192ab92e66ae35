package service

import (
	"testing"

	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/ayo6706/invest-ledger/internal/settings"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserToUserTransferChargesFee(t *testing.T) {
	env := newTestEnv(t)
	env.settings.update(func(s *settings.Settings) { s.TransferFeePercent = decimal.NewFromInt(2) })
	alice := env.register(t, "t-alice", nil)
	bob := env.register(t, "t-bob", nil)
	env.fund(t, alice, domain.WalletMain, units(100))

	transfer, err := env.transfers.UserToUser(env.ctx, alice, bob, units(50), false)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusCompleted, transfer.Status)
	assert.Equal(t, units(1), transfer.Fee)
	assert.Equal(t, domain.TransferUserToUser, transfer.Type)

	assert.Equal(t, units(50), env.account(t, alice).Wallet)
	assert.Equal(t, units(49), env.account(t, bob).Wallet)
}

func TestUserToUserTransferRejections(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "t-sender", nil)
	bob := env.register(t, "t-receiver", nil)
	env.fund(t, alice, domain.WalletMain, units(10))

	_, err := env.transfers.UserToUser(env.ctx, alice, bob, 0, false)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "amount", ve.Field)

	_, err = env.transfers.UserToUser(env.ctx, alice, bob, units(11), false)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	_, err = env.transfers.UserToUser(env.ctx, alice, uuid.New(), units(1), false)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	require.NoError(t, env.accounts.SetBlocked(env.ctx, uuid.New(), alice, true))
	_, err = env.transfers.UserToUser(env.ctx, alice, bob, units(1), false)
	require.ErrorIs(t, err, domain.ErrAccountBlocked)

	assert.Equal(t, units(10), env.account(t, alice).Wallet)
	assert.Zero(t, env.account(t, bob).Wallet)
}

func TestUserToUserTransferRequiresOTPWhenEnabled(t *testing.T) {
	env := newTestEnv(t)
	env.settings.update(func(s *settings.Settings) { s.TransferOTPRequired = true })
	alice := env.register(t, "t-otp-a", nil)
	bob := env.register(t, "t-otp-b", nil)
	env.fund(t, alice, domain.WalletMain, units(10))

	_, err := env.transfers.UserToUser(env.ctx, alice, bob, units(5), false)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "otp", ve.Field)

	_, err = env.transfers.UserToUser(env.ctx, alice, bob, units(5), true)
	require.NoError(t, err)
	assert.Equal(t, units(5), env.account(t, bob).Wallet)
}

func TestSelfTransferMovesMainToTopup(t *testing.T) {
	env := newTestEnv(t)
	id := env.register(t, "t-self", nil)
	env.fund(t, id, domain.WalletMain, units(30))

	transfer, err := env.transfers.Self(env.ctx, id, units(20))
	require.NoError(t, err)
	assert.Equal(t, domain.TransferSelf, transfer.Type)
	assert.Equal(t, domain.TransferStatusCompleted, transfer.Status)

	acc := env.account(t, id)
	assert.Equal(t, units(10), acc.Wallet)
	assert.Equal(t, units(20), acc.WalletTopup)

	_, err = env.transfers.Self(env.ctx, id, units(20))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestAdminCreditWritesAudit(t *testing.T) {
	env := newTestEnv(t)
	admin := uuid.New()
	id := env.register(t, "t-credit", nil)

	transfer, err := env.transfers.AdminCredit(env.ctx, admin, id, domain.WalletTopup, units(15), "promo")
	require.NoError(t, err)
	assert.Equal(t, domain.TransferAdmin, transfer.Type)
	assert.False(t, transfer.SenderID.Valid)
	assert.Equal(t, units(15), env.account(t, id).WalletTopup)

	history, err := NewAuditService(env.store).History(env.ctx, "fund_transfer", repository.FromPgUUID(transfer.ID))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "admin_credit", history[0].Action)
	assert.Equal(t, admin, repository.FromPgUUID(history[0].ActorID))

	_, err = env.transfers.AdminCredit(env.ctx, admin, id, domain.WalletStake, units(1), "")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "wallet", ve.Field)

	_, err = env.transfers.AdminCredit(env.ctx, admin, uuid.New(), domain.WalletMain, units(1), "")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}
