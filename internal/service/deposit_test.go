package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/events"
	"github.com/ayo6706/invest-ledger/internal/settings"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepositCreditsTopupAndFirstBonus(t *testing.T) {
	env := newTestEnv(t)
	env.settings.update(func(s *settings.Settings) { s.FirstDepositBonusPercent = decimal.NewFromInt(10) })
	id := env.register(t, "d-first", nil)

	first, err := env.deposits.Credit(env.ctx, DepositInput{UserID: id, Amount: units(200), TxHash: "0xaaa"})
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.Equal(t, units(20), first.Bonus)

	second, err := env.deposits.Credit(env.ctx, DepositInput{UserID: id, Amount: units(100), TxHash: "0xbbb"})
	require.NoError(t, err)
	assert.Zero(t, second.Bonus)

	acc := env.account(t, id)
	assert.Equal(t, units(300), acc.WalletTopup)
	assert.Equal(t, units(20), acc.Wallet)
	require.Len(t, env.incomes(t, id, domain.IncomeFirstDepositBonus), 1)
	assert.Contains(t, env.events.Types(), events.DepositCredited)
}

func TestDepositReplayIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	id := env.register(t, "d-replay", nil)
	other := env.register(t, "d-other", nil)

	first, err := env.deposits.Credit(env.ctx, DepositInput{UserID: id, Amount: units(50), TxHash: "0xccc"})
	require.NoError(t, err)

	again, err := env.deposits.Credit(env.ctx, DepositInput{UserID: id, Amount: units(50), TxHash: " 0xccc "})
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, first.Deposit.ID, again.Deposit.ID)
	assert.Equal(t, units(50), env.account(t, id).WalletTopup)

	_, err = env.deposits.Credit(env.ctx, DepositInput{UserID: id, Amount: units(60), TxHash: "0xccc"})
	require.ErrorIs(t, err, ErrDepositPayloadMismatch)
	_, err = env.deposits.Credit(env.ctx, DepositInput{UserID: other, Amount: units(50), TxHash: "0xccc"})
	require.ErrorIs(t, err, ErrDepositPayloadMismatch)
	assert.Zero(t, env.account(t, other).WalletTopup)
}

func TestDepositValidation(t *testing.T) {
	env := newTestEnv(t)
	id := env.register(t, "d-validate", nil)

	cases := []struct {
		name  string
		in    DepositInput
		field string
	}{
		{"zero amount", DepositInput{UserID: id, TxHash: "0x1"}, "amount_micros"},
		{"no hash", DepositInput{UserID: id, Amount: units(1), TxHash: " "}, "tx_hash"},
		{"no user", DepositInput{Amount: units(1), TxHash: "0x1"}, "user_id"},
		{"unknown user", DepositInput{UserID: uuid.New(), Amount: units(1), TxHash: "0x1"}, "user_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.deposits.Credit(env.ctx, tc.in)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func sign(key string, body []byte) string {
	h := hmac.New(sha256.New, []byte(key))
	h.Write(body)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

func TestDepositWebhookSignature(t *testing.T) {
	env := newTestEnv(t)
	id := env.register(t, "d-hook", nil)
	hooks := NewWebhookService(env.deposits, "secret", false)
	body := []byte(fmt.Sprintf(`{"user_id":%q,"amount_micros":%d,"tx_hash":"0xhook"}`, id, units(25)))

	_, err := hooks.HandleDepositWebhook(env.ctx, body, "sha256=deadbeef")
	require.ErrorIs(t, err, ErrInvalidSignature)
	assert.Zero(t, env.account(t, id).WalletTopup)

	resp, err := hooks.HandleDepositWebhook(env.ctx, body, sign("secret", body))
	require.NoError(t, err)
	assert.Equal(t, domain.DepositStatusCredited, resp.Status)
	assert.Equal(t, "Deposit processed successfully", resp.Message)

	resp, err = hooks.HandleDepositWebhook(env.ctx, body, sign("secret", body))
	require.NoError(t, err)
	assert.Equal(t, "Deposit already processed", resp.Message)
	assert.Equal(t, units(25), env.account(t, id).WalletTopup)
}

func TestDepositWebhookRejectsBadPayload(t *testing.T) {
	env := newTestEnv(t)
	hooks := NewWebhookService(env.deposits, "", true)

	for name, body := range map[string]string{
		"malformed": `{"user_id":`,
		"no user":   `{"amount_micros":1,"tx_hash":"0x1"}`,
		"bad uuid":  `{"user_id":"nope","amount_micros":1,"tx_hash":"0x1"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := hooks.HandleDepositWebhook(env.ctx, []byte(body), "")
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
		})
	}

	_, err := NewWebhookService(env.deposits, "", false).HandleDepositWebhook(env.ctx, []byte(`{}`), "")
	require.ErrorIs(t, err, ErrInvalidSignature)
}
