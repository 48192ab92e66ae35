// Package settings holds the engine's tunable business parameters and the
// provider that serves them from Postgres with Redis and in-process caching.
package settings

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Tier maps a stake size to a daily ROI percentage.
type Tier struct {
	Name            string          `json:"name"`
	MinAmount       int64           `json:"min_amount"`
	DailyROIPercent decimal.Decimal `json:"daily_roi_percent"`
}

// Level is one row of the level commission table; index 0 is the direct referrer.
type Level struct {
	Percent            decimal.Decimal `json:"percent"`
	MinDirectReferrals int32           `json:"min_direct_referrals"`
}

// TeamRewardTier is a cumulative team business threshold.
type TeamRewardTier struct {
	Name       string `json:"name"`
	Threshold  int64  `json:"threshold"`
	Reward     int64  `json:"reward"`
	PeriodDays int    `json:"period_days"`
}

// Settings amounts are micros; percents are plain percentages (5 means 5%).
type Settings struct {
	ReferralBonusPercent     decimal.Decimal  `json:"referral_bonus_percent"`
	FirstDepositBonusPercent decimal.Decimal  `json:"first_deposit_bonus_percent"`
	WithdrawalFeePercent     decimal.Decimal  `json:"withdrawal_fee_percent"`
	WithdrawalCapPercent     decimal.Decimal  `json:"withdrawal_cap_percent"`
	TransferFeePercent       decimal.Decimal  `json:"transfer_fee_percent"`
	MinWithdrawal            int64            `json:"min_withdrawal"`
	MinInvestment            int64            `json:"min_investment"`
	ROITiers                 []Tier           `json:"roi_tiers"`
	LevelCommission          []Level          `json:"level_commission"`
	TeamRewardTiers          []TeamRewardTier `json:"team_reward_tiers"`
	TeamDepth                int              `json:"team_depth"`
	WithdrawalOTPRequired    bool             `json:"withdrawal_otp_required"`
	TransferOTPRequired      bool             `json:"transfer_otp_required"`
}

// Defaults returns the built-in engine parameters.
func Defaults() Settings {
	return Settings{
		ReferralBonusPercent:     decimal.NewFromInt(10),
		FirstDepositBonusPercent: decimal.Zero,
		WithdrawalFeePercent:     decimal.NewFromInt(5),
		WithdrawalCapPercent:     decimal.NewFromInt(20),
		TransferFeePercent:       decimal.Zero,
		MinWithdrawal:            10_000_000,
		MinInvestment:            10_000_000,
		ROITiers: []Tier{
			{Name: "starter", MinAmount: 0, DailyROIPercent: decimal.NewFromInt(1)},
		},
		LevelCommission: []Level{
			{Percent: decimal.NewFromInt(10), MinDirectReferrals: 1},
			{Percent: decimal.NewFromInt(5), MinDirectReferrals: 2},
			{Percent: decimal.NewFromInt(3), MinDirectReferrals: 3},
			{Percent: decimal.NewFromInt(2), MinDirectReferrals: 4},
			{Percent: decimal.NewFromInt(1), MinDirectReferrals: 5},
		},
		TeamRewardTiers: []TeamRewardTier{
			{Name: "bronze", Threshold: 10_000_000_000, Reward: 100_000_000, PeriodDays: 30},
			{Name: "silver", Threshold: 50_000_000_000, Reward: 750_000_000, PeriodDays: 30},
			{Name: "gold", Threshold: 100_000_000_000, Reward: 2_000_000_000, PeriodDays: 30},
		},
		TeamDepth: 10,
	}
}

// TierFor returns the highest tier whose minimum is covered by amount.
func (s Settings) TierFor(amount int64) (Tier, bool) {
	var (
		best  Tier
		found bool
	)
	for _, t := range s.ROITiers {
		if amount >= t.MinAmount && (!found || t.MinAmount >= best.MinAmount) {
			best, found = t, true
		}
	}
	return best, found
}

func (s Settings) Validate() error {
	percents := map[string]decimal.Decimal{
		"referral_bonus_percent":      s.ReferralBonusPercent,
		"first_deposit_bonus_percent": s.FirstDepositBonusPercent,
		"withdrawal_fee_percent":      s.WithdrawalFeePercent,
		"withdrawal_cap_percent":      s.WithdrawalCapPercent,
		"transfer_fee_percent":        s.TransferFeePercent,
	}
	names := make([]string, 0, len(percents))
	for name := range percents {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := percents[name]
		if p.IsNegative() || p.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("%s must be between 0 and 100", name)
		}
	}
	if s.MinWithdrawal < 0 || s.MinInvestment < 0 {
		return fmt.Errorf("minimum amounts must not be negative")
	}
	if len(s.ROITiers) == 0 {
		return fmt.Errorf("at least one roi tier is required")
	}
	for _, t := range s.ROITiers {
		if t.Name == "" || t.MinAmount < 0 || t.DailyROIPercent.IsNegative() {
			return fmt.Errorf("invalid roi tier %q", t.Name)
		}
	}
	for i, l := range s.LevelCommission {
		if l.Percent.IsNegative() || l.MinDirectReferrals < 0 {
			return fmt.Errorf("invalid level commission row %d", i+1)
		}
	}
	for _, t := range s.TeamRewardTiers {
		if t.Name == "" || t.Threshold <= 0 || t.Reward < 0 || t.PeriodDays < 0 {
			return fmt.Errorf("invalid team reward tier %q", t.Name)
		}
	}
	if s.TeamDepth < 0 {
		return fmt.Errorf("team_depth must not be negative")
	}
	return nil
}
