package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("WEBHOOK_HMAC_KEY", "hook-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 5*time.Minute, cfg.ReconciliationInterval)
	assert.Equal(t, int32(200), cfg.BatchPageSize)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.True(t, cfg.Engine.WithdrawalFeePercent.Equal(decimal.NewFromInt(5)))
	assert.True(t, cfg.Engine.WithdrawalCapPercent.Equal(decimal.NewFromInt(20)))
}

func TestLoadEngineOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("LEDGER_WITHDRAWAL_FEE_PERCENT", "2.5")
	t.Setenv("DAILY_ROI_PERCENT", "0.8")
	t.Setenv("MIN_INVESTMENT_MICROS", "50000000")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("TIMEZONE", "Asia/Kolkata")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Engine.WithdrawalFeePercent.Equal(decimal.RequireFromString("2.5")))
	require.Len(t, cfg.Engine.ROITiers, 1)
	assert.True(t, cfg.Engine.ROITiers[0].DailyROIPercent.Equal(decimal.RequireFromString("0.8")))
	assert.Equal(t, int64(50_000_000), cfg.Engine.MinInvestment)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "Asia/Kolkata", cfg.Location.String())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"short secret":   {"JWT_SECRET", "short"},
		"bad percent":    {"WITHDRAWAL_CAP_PERCENT", "150"},
		"bad duration":   {"TRANSFER_REPLAY_GRACE", "soon"},
		"bad timezone":   {"TIMEZONE", "Mars/Olympus"},
		"unparsable fee": {"TRANSFER_FEE_PERCENT", "five"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(env[0], env[1])
			_, err := Load()
			require.Error(t, err)
		})
	}
}
