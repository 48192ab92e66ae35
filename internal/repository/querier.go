package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type Querier interface {
	AddTeamBusiness(ctx context.Context, arg AddTeamBusinessParams) error
	ApplyBalanceDelta(ctx context.Context, arg ApplyBalanceDeltaParams) (int64, error)
	ClaimActivationCommission(ctx context.Context, id pgtype.UUID) (int64, error)
	CompleteTeamReward(ctx context.Context, id pgtype.UUID) (int64, error)
	CountDepositsByUser(ctx context.Context, userID pgtype.UUID) (int64, error)
	CountWithdrawalsSince(ctx context.Context, arg CountWithdrawalsSinceParams) (int64, error)
	CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error)
	CreateDeposit(ctx context.Context, arg CreateDepositParams) (Deposit, error)
	CreateFundTransfer(ctx context.Context, arg CreateFundTransferParams) (FundTransfer, error)
	CreateIncomeEntry(ctx context.Context, arg CreateIncomeEntryParams) (IncomeEntry, error)
	CreateInvestment(ctx context.Context, arg CreateInvestmentParams) (Investment, error)
	CreateTeamReward(ctx context.Context, arg CreateTeamRewardParams) (TeamReward, error)
	CreateTradeActivation(ctx context.Context, arg CreateTradeActivationParams) (TradeActivation, error)
	CreateWithdrawal(ctx context.Context, arg CreateWithdrawalParams) (Withdrawal, error)
	FinalizeIdempotencyKey(ctx context.Context, arg FinalizeIdempotencyKeyParams) (IdempotencyKey, error)
	GetAccount(ctx context.Context, id pgtype.UUID) (Account, error)
	GetAccountByUsername(ctx context.Context, username string) (Account, error)
	GetAccountForUpdate(ctx context.Context, id pgtype.UUID) (Account, error)
	GetDepositByTxHash(ctx context.Context, txHash string) (Deposit, error)
	GetFundTransfer(ctx context.Context, id pgtype.UUID) (FundTransfer, error)
	GetIdempotencyKey(ctx context.Context, idempotencyKey string) (IdempotencyKey, error)
	GetInvestment(ctx context.Context, id pgtype.UUID) (Investment, error)
	GetSetting(ctx context.Context, key string) ([]byte, error)
	GetTradeActivation(ctx context.Context, id pgtype.UUID) (TradeActivation, error)
	GetTradeActivationByDate(ctx context.Context, arg GetTradeActivationByDateParams) (TradeActivation, error)
	GetWithdrawal(ctx context.Context, id pgtype.UUID) (Withdrawal, error)
	GetWithdrawalForUpdate(ctx context.Context, id pgtype.UUID) (Withdrawal, error)
	IncrementReferralCounters(ctx context.Context, arg IncrementReferralCountersParams) error
	InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) (AuditLog, error)
	ListAccountsByMinTeamBusiness(ctx context.Context, arg ListAccountsByMinTeamBusinessParams) ([]Account, error)
	ListActivatedAccounts(ctx context.Context, arg ListActivatedAccountsParams) ([]Account, error)
	ListAuditLogByEntity(ctx context.Context, arg ListAuditLogByEntityParams) ([]AuditLog, error)
	ListDueTeamRewards(ctx context.Context, arg ListDueTeamRewardsParams) ([]TeamReward, error)
	ListFundTransfersByStatus(ctx context.Context, arg ListFundTransfersByStatusParams) ([]FundTransfer, error)
	ListIncomeEntries(ctx context.Context, f IncomeFilter) ([]IncomeEntry, error)
	ListInvestmentsByUser(ctx context.Context, arg ListInvestmentsByUserParams) ([]Investment, error)
	ListStakeDrift(ctx context.Context, limit int32) ([]StakeDriftRow, error)
	ListTeamRewardsByUser(ctx context.Context, userID pgtype.UUID) ([]TeamReward, error)
	ListTradeActivations(ctx context.Context, f ActivationFilter) ([]TradeActivation, error)
	ListWithdrawals(ctx context.Context, f WithdrawalFilter) ([]Withdrawal, error)
	OverrideProfitStatus(ctx context.Context, arg OverrideProfitStatusParams) (int64, error)
	ReleaseInvestmentStake(ctx context.Context, arg ReleaseInvestmentStakeParams) (int64, error)
	ReserveIdempotencyKey(ctx context.Context, arg ReserveIdempotencyKeyParams) (IdempotencyKey, error)
	ResolveWithdrawal(ctx context.Context, arg ResolveWithdrawalParams) (Withdrawal, error)
	RestoreInvestmentStake(ctx context.Context, arg RestoreInvestmentStakeParams) (int64, error)
	SetAccountBlocked(ctx context.Context, arg SetAccountBlockedParams) (int64, error)
	SetAccountRank(ctx context.Context, arg SetAccountRankParams) error
	SetDailyProfitActivated(ctx context.Context, arg SetDailyProfitActivatedParams) error
	SetLastInvestmentAmount(ctx context.Context, arg SetLastInvestmentAmountParams) error
	TouchInvestmentsProfitDate(ctx context.Context, arg TouchInvestmentsProfitDateParams) error
	TransitionProfitStatus(ctx context.Context, arg TransitionProfitStatusParams) (int64, error)
	UpdateFundTransferStatus(ctx context.Context, arg UpdateFundTransferStatusParams) (int64, error)
	UpsertSetting(ctx context.Context, arg UpsertSettingParams) error
}

var _ Querier = (*Queries)(nil)
