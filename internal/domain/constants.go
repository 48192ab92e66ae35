package domain

// Wallet identifies one of the sub-balances carried on an account row.
type Wallet string

const (
	WalletMain     Wallet = "main"
	WalletTopup    Wallet = "topup"
	WalletWithdraw Wallet = "withdraw"
	WalletStake    Wallet = "stake"
)

// Valid reports whether w names a known sub-balance.
func (w Wallet) Valid() bool {
	switch w {
	case WalletMain, WalletTopup, WalletWithdraw, WalletStake:
		return true
	}
	return false
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	// Investment statuses
	InvestmentActive    = "active"
	InvestmentCompleted = "completed"

	CompletionReasonWithdrawalUnlock = "withdrawal_unlock"

	// Trade activation statuses
	ActivationActive    = "active"
	ActivationExpired   = "expired"
	ActivationCancelled = "cancelled"

	// Trade activation profit statuses
	ProfitPending   = "pending"
	ProfitProcessed = "processed"
	ProfitFailed    = "failed"
	ProfitSkipped   = "skipped"

	// Income entry types
	IncomeReferralBonus     = "referral_bonus"
	IncomeLevelROI          = "level_roi_income"
	IncomeTeamReward        = "team_reward"
	IncomeDailyProfit       = "daily_profit"
	IncomeFirstDepositBonus = "first_deposit_bonus"

	IncomeStatusCredited = "credited"

	// Withdrawal statuses
	WithdrawalPending  = "pending"
	WithdrawalApproved = "approved"
	WithdrawalRejected = "rejected"

	// Stake release options bundled with a withdrawal
	ReleaseNone    = ""
	ReleasePartial = "partial"
	ReleaseFull    = "full"

	// Fund transfer types
	TransferUserToUser = "user-to-user"
	TransferSelf       = "self"
	TransferAdmin      = "admin"

	// Fund transfer intent statuses
	TransferStatusPending   = "pending"
	TransferStatusDebited   = "debited"
	TransferStatusCompleted = "completed"
	TransferStatusFailed    = "failed"

	// Team reward statuses
	TeamRewardPending   = "pending"
	TeamRewardCompleted = "completed"

	DepositStatusCredited = "credited"
)

// CanTransitionProfit reports whether an activation's profit status may move
// from current to next. Terminal states never move again.
func CanTransitionProfit(current, next string) bool {
	if current != ProfitPending {
		return false
	}
	switch next {
	case ProfitProcessed, ProfitFailed, ProfitSkipped:
		return true
	}
	return false
}
