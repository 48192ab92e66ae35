package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/events"
	"github.com/ayo6706/invest-ledger/internal/gateway"
	"github.com/ayo6706/invest-ledger/internal/observability"
	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const bridgeSubmitTimeout = 30 * time.Second

// WithdrawalService runs the withdrawal approval workflow. Requested funds
// sit in the pending-withdrawal wallet until an admin resolves the request.
type WithdrawalService struct {
	store    QueryStore
	settings SettingsSource
	clock    Clock
	bridge   gateway.Bridge
	events   events.Publisher
	audit    *AuditService

	wg sync.WaitGroup
}

func NewWithdrawalService(store QueryStore, source SettingsSource, clock Clock, bridge gateway.Bridge, publisher events.Publisher) *WithdrawalService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &WithdrawalService{
		store:    store,
		settings: source,
		clock:    clock,
		bridge:   bridge,
		events:   publisher,
		audit:    NewAuditService(store),
	}
}

// RequestWithdrawal holds the parameters of a withdrawal request.
type RequestWithdrawal struct {
	UserID      uuid.UUID
	Amount      int64
	Destination string
	// Release optionally unlocks stake with the withdrawal: "", "partial" or "full".
	Release     string
	OTPVerified bool
}

// ReleasedInvestment records how much stake one investment gave up.
type ReleasedInvestment struct {
	ID        uuid.UUID `json:"id"`
	Amount    int64     `json:"amount"`
	Completed bool      `json:"completed"`
}

// WithdrawalExtra is the JSON document kept in withdrawals.extra.
type WithdrawalExtra struct {
	UnlockStaking       bool                 `json:"unlockStaking"`
	StakingAmount       int64                `json:"stakingAmount"`
	ReleaseOption       string               `json:"releaseOption,omitempty"`
	ReleasedInvestments []ReleasedInvestment `json:"releasedInvestments,omitempty"`
}

// DecodeWithdrawalExtra parses a stored extra document; empty input yields a zero value.
func DecodeWithdrawalExtra(raw []byte) (WithdrawalExtra, error) {
	var extra WithdrawalExtra
	if len(raw) == 0 {
		return extra, nil
	}
	if err := json.Unmarshal(raw, &extra); err != nil {
		return extra, fmt.Errorf("decode withdrawal extra: %w", err)
	}
	return extra, nil
}

// Request validates the request, escrows amount from main into the
// pending-withdrawal wallet and optionally releases stake.
func (s *WithdrawalService) Request(ctx context.Context, req RequestWithdrawal) (repository.Withdrawal, error) {
	if req.Amount <= 0 {
		return repository.Withdrawal{}, domain.Invalid("amount", "must be greater than zero")
	}
	req.Destination = strings.TrimSpace(req.Destination)
	if req.Destination == "" {
		return repository.Withdrawal{}, domain.Invalid("destination", "is required")
	}
	switch req.Release {
	case domain.ReleaseNone, domain.ReleasePartial, domain.ReleaseFull:
	default:
		return repository.Withdrawal{}, domain.Invalid("release", "must be empty, partial or full")
	}
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return repository.Withdrawal{}, domain.Upstream("load settings", err)
	}
	if cfg.WithdrawalOTPRequired && !req.OTPVerified {
		return repository.Withdrawal{}, domain.Invalid("otp", "verification is required")
	}
	if req.Amount < cfg.MinWithdrawal {
		return repository.Withdrawal{}, domain.Invalid("amount", "minimum withdrawal is %s", domain.NewMoney(cfg.MinWithdrawal))
	}

	fee := domain.NewMoney(req.Amount).Percent(cfg.WithdrawalFeePercent).Amount
	net := req.Amount - fee

	var withdrawal repository.Withdrawal
	err = s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		account, err := qtx.GetAccountForUpdate(ctx, repository.ToPgUUID(req.UserID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrAccountNotFound
			}
			return fmt.Errorf("lock account: %w", err)
		}
		if account.Blocked {
			return domain.InvalidErr("user_id", domain.ErrAccountBlocked)
		}
		count, err := qtx.CountWithdrawalsSince(ctx, repository.CountWithdrawalsSinceParams{
			UserID:    account.ID,
			CreatedAt: repository.ToPgTimestamptz(s.clock.today()),
		})
		if err != nil {
			return fmt.Errorf("count withdrawals: %w", err)
		}
		if count > 0 {
			return domain.Invalid("amount", "only one withdrawal per day is allowed")
		}
		limit := domain.NewMoney(account.LastInvestmentAmount).Percent(cfg.WithdrawalCapPercent).Amount
		if req.Amount > limit {
			return domain.Invalid("amount", "exceeds the withdrawal limit of %s", domain.NewMoney(limit))
		}

		if err := move(ctx, qtx, req.UserID, domain.WalletMain, domain.WalletWithdraw, req.Amount); err != nil {
			return err
		}

		extra, err := s.releaseStake(ctx, qtx, account, req.Release)
		if err != nil {
			return err
		}
		withdrawalID := uuid.New()
		withdrawal, err = qtx.CreateWithdrawal(ctx, repository.CreateWithdrawalParams{
			ID:          repository.ToPgUUID(withdrawalID),
			UserID:      account.ID,
			Amount:      req.Amount,
			Fee:         fee,
			NetAmount:   net,
			Destination: req.Destination,
			Extra:       mustJSON(extra),
		})
		if err != nil {
			return fmt.Errorf("create withdrawal: %w", err)
		}
		return s.audit.Write(ctx, qtx, "withdrawal", withdrawalID, &req.UserID, "created", "", domain.WithdrawalPending, withdrawal.Extra)
	})
	if err != nil {
		return repository.Withdrawal{}, domain.Upstream("request withdrawal", err)
	}

	observability.IncrementWithdrawalTransition("requested")
	zap.L().Info("withdrawal requested",
		zap.String("withdrawal_id", repository.FromPgUUID(withdrawal.ID).String()),
		zap.String("user_id", req.UserID.String()),
		zap.Int64("amount", req.Amount),
		zap.Int64("fee", fee),
		zap.String("release", req.Release),
	)
	s.events.Publish(ctx, events.New(events.WithdrawalRequested, req.UserID, map[string]any{
		"withdrawal_id": repository.FromPgUUID(withdrawal.ID),
		"amount":        req.Amount,
		"net_amount":    net,
		"release":       req.Release,
	}))
	return withdrawal, nil
}

// releaseStake takes stake out of the owner's investments. A full release
// completes every active investment and removes the whole stake; a partial
// one halves each active investment. The released stake is paid out with the
// withdrawal and never lands in the main wallet.
func (s *WithdrawalService) releaseStake(ctx context.Context, qtx repository.Querier, account repository.Account, option string) (WithdrawalExtra, error) {
	extra := WithdrawalExtra{ReleaseOption: option}
	if option == domain.ReleaseNone {
		return extra, nil
	}
	if account.TotalInvestment <= 0 {
		return extra, domain.InvalidErr("release", domain.ErrNoActiveStake)
	}
	investments, err := qtx.ListInvestmentsByUser(ctx, repository.ListInvestmentsByUserParams{
		UserID: account.ID,
		Status: domain.InvestmentActive,
	})
	if err != nil {
		return extra, fmt.Errorf("list active investments: %w", err)
	}

	extra.UnlockStaking = true
	full := option == domain.ReleaseFull
	reason := textParam(domain.CompletionReasonWithdrawalUnlock)
	for _, inv := range investments {
		amount := inv.Amount
		if !full {
			amount = inv.Amount / 2
		}
		if amount <= 0 && !full {
			continue
		}
		params := repository.ReleaseInvestmentStakeParams{ID: inv.ID, Amount: amount, Complete: full}
		if full {
			params.CompletionReason = reason
		}
		rows, err := qtx.ReleaseInvestmentStake(ctx, params)
		if err != nil {
			return extra, fmt.Errorf("release investment stake: %w", err)
		}
		if err := requireExactlyOne(rows, "release investment stake"); err != nil {
			return extra, err
		}
		extra.ReleasedInvestments = append(extra.ReleasedInvestments, ReleasedInvestment{
			ID:        repository.FromPgUUID(inv.ID),
			Amount:    amount,
			Completed: full,
		})
		if !full {
			extra.StakingAmount += amount
		}
	}
	if full {
		extra.StakingAmount = account.TotalInvestment
	}

	userID := repository.FromPgUUID(account.ID)
	if extra.StakingAmount > 0 {
		if err := debit(ctx, qtx, userID, domain.WalletStake, extra.StakingAmount); err != nil {
			return extra, fmt.Errorf("release stake: %w", err)
		}
	}
	if full {
		if err := qtx.SetDailyProfitActivated(ctx, repository.SetDailyProfitActivatedParams{ID: account.ID, Activated: false}); err != nil {
			return extra, fmt.Errorf("clear activation flag: %w", err)
		}
	}
	return extra, nil
}

// Approve finalizes a pending withdrawal: the escrowed amount leaves the
// ledger and the bridge is asked to broadcast the payout.
func (s *WithdrawalService) Approve(ctx context.Context, withdrawalID, adminID uuid.UUID, note string) (repository.Withdrawal, error) {
	var (
		withdrawal repository.Withdrawal
		extra      WithdrawalExtra
	)
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		current, err := s.lockPending(ctx, qtx, withdrawalID, domain.WithdrawalApproved)
		if err != nil {
			return err
		}
		extra, err = DecodeWithdrawalExtra(current.Extra)
		if err != nil {
			return err
		}
		withdrawal, err = s.resolve(ctx, qtx, current, domain.WithdrawalApproved, adminID, note)
		if err != nil {
			return err
		}
		userID := repository.FromPgUUID(current.UserID)
		if err := debit(ctx, qtx, userID, domain.WalletWithdraw, current.Amount); err != nil {
			return fmt.Errorf("settle pending withdrawal: %w", err)
		}
		if extra.ReleaseOption == domain.ReleaseFull {
			if err := s.recompleteReleased(ctx, qtx, current, extra); err != nil {
				return err
			}
		}
		return s.audit.Write(ctx, qtx, "withdrawal", withdrawalID, &adminID, "approved",
			domain.WithdrawalPending, domain.WithdrawalApproved, mustJSON(map[string]any{"note": note}))
	})
	if err != nil {
		return repository.Withdrawal{}, domain.Upstream("approve withdrawal", err)
	}

	userID := repository.FromPgUUID(withdrawal.UserID)
	observability.IncrementWithdrawalTransition("approved")
	zap.L().Info("withdrawal approved",
		zap.String("withdrawal_id", withdrawalID.String()),
		zap.String("admin_id", adminID.String()),
	)
	s.events.Publish(ctx, events.New(events.WithdrawalApproved, userID, map[string]any{
		"withdrawal_id": withdrawalID,
		"net_amount":    withdrawal.NetAmount,
		"staking":       extra.StakingAmount,
	}))
	s.submit(gateway.WithdrawalRequest{
		WithdrawalID: withdrawalID,
		UserID:       userID,
		Destination:  withdrawal.Destination,
		NetAmount:    withdrawal.NetAmount,
		StakeAmount:  extra.StakingAmount,
	})
	return withdrawal, nil
}

// recompleteReleased completes any released investment that became active
// again since the request and removes its stake once more.
func (s *WithdrawalService) recompleteReleased(ctx context.Context, qtx repository.Querier, w repository.Withdrawal, extra WithdrawalExtra) error {
	userID := repository.FromPgUUID(w.UserID)
	for _, released := range extra.ReleasedInvestments {
		inv, err := qtx.GetInvestment(ctx, repository.ToPgUUID(released.ID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return fmt.Errorf("load released investment: %w", err)
		}
		if inv.Status != domain.InvestmentActive {
			continue
		}
		if _, err := qtx.ReleaseInvestmentStake(ctx, repository.ReleaseInvestmentStakeParams{
			ID:               inv.ID,
			Amount:           inv.Amount,
			Complete:         true,
			CompletionReason: textParam(domain.CompletionReasonWithdrawalUnlock),
		}); err != nil {
			return fmt.Errorf("complete reactivated investment: %w", err)
		}
		if inv.Amount <= 0 {
			continue
		}
		err = debit(ctx, qtx, userID, domain.WalletStake, inv.Amount)
		if errors.Is(err, domain.ErrInsufficientFunds) {
			zap.L().Warn("stake already below reactivated investment",
				zap.String("withdrawal_id", repository.FromPgUUID(w.ID).String()),
				zap.String("investment_id", released.ID.String()),
				zap.Int64("amount", inv.Amount),
			)
			continue
		}
		if err != nil {
			return fmt.Errorf("remove reactivated stake: %w", err)
		}
	}
	return qtx.SetDailyProfitActivated(ctx, repository.SetDailyProfitActivatedParams{ID: w.UserID, Activated: false})
}

// Reject refunds the escrowed amount to main and restores any released stake.
func (s *WithdrawalService) Reject(ctx context.Context, withdrawalID, adminID uuid.UUID, note string) (repository.Withdrawal, error) {
	var withdrawal repository.Withdrawal
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		current, err := s.lockPending(ctx, qtx, withdrawalID, domain.WithdrawalRejected)
		if err != nil {
			return err
		}
		extra, err := DecodeWithdrawalExtra(current.Extra)
		if err != nil {
			return err
		}
		withdrawal, err = s.resolve(ctx, qtx, current, domain.WithdrawalRejected, adminID, note)
		if err != nil {
			return err
		}
		userID := repository.FromPgUUID(current.UserID)
		if err := move(ctx, qtx, userID, domain.WalletWithdraw, domain.WalletMain, current.Amount); err != nil {
			return fmt.Errorf("refund pending withdrawal: %w", err)
		}
		for _, released := range extra.ReleasedInvestments {
			if _, err := qtx.RestoreInvestmentStake(ctx, repository.RestoreInvestmentStakeParams{
				ID:     repository.ToPgUUID(released.ID),
				Amount: released.Amount,
			}); err != nil {
				return fmt.Errorf("restore investment: %w", err)
			}
		}
		if extra.StakingAmount > 0 {
			if err := credit(ctx, qtx, userID, domain.WalletStake, extra.StakingAmount); err != nil {
				return fmt.Errorf("restore stake: %w", err)
			}
		}
		return s.audit.Write(ctx, qtx, "withdrawal", withdrawalID, &adminID, "rejected",
			domain.WithdrawalPending, domain.WithdrawalRejected, mustJSON(map[string]any{"note": note}))
	})
	if err != nil {
		return repository.Withdrawal{}, domain.Upstream("reject withdrawal", err)
	}

	observability.IncrementWithdrawalTransition("rejected")
	zap.L().Info("withdrawal rejected",
		zap.String("withdrawal_id", withdrawalID.String()),
		zap.String("admin_id", adminID.String()),
	)
	s.events.Publish(ctx, events.New(events.WithdrawalRejected, repository.FromPgUUID(withdrawal.UserID), map[string]any{
		"withdrawal_id": withdrawalID,
		"amount":        withdrawal.Amount,
	}))
	return withdrawal, nil
}

func (s *WithdrawalService) lockPending(ctx context.Context, qtx repository.Querier, id uuid.UUID, wanted string) (repository.Withdrawal, error) {
	current, err := qtx.GetWithdrawalForUpdate(ctx, repository.ToPgUUID(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.Withdrawal{}, domain.ErrWithdrawalNotFound
		}
		return repository.Withdrawal{}, fmt.Errorf("lock withdrawal: %w", err)
	}
	if current.Status != domain.WithdrawalPending {
		return repository.Withdrawal{}, &domain.StateConflictError{
			Entity:  "withdrawal",
			ID:      id.String(),
			Current: current.Status,
			Wanted:  wanted,
		}
	}
	return current, nil
}

func (s *WithdrawalService) resolve(ctx context.Context, qtx repository.Querier, current repository.Withdrawal, status string, adminID uuid.UUID, note string) (repository.Withdrawal, error) {
	resolved, err := qtx.ResolveWithdrawal(ctx, repository.ResolveWithdrawalParams{
		ID:             current.ID,
		Status:         status,
		ResolvedBy:     repository.ToPgUUID(adminID),
		ResolutionNote: textParam(note),
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.Withdrawal{}, &domain.StateConflictError{
			Entity:  "withdrawal",
			ID:      repository.FromPgUUID(current.ID).String(),
			Current: "resolved",
			Wanted:  status,
		}
	}
	if err != nil {
		return repository.Withdrawal{}, fmt.Errorf("resolve withdrawal: %w", err)
	}
	return resolved, nil
}

// submit hands an approved withdrawal to the bridge in the background.
// Failures are logged for operators; the ledger is already final.
func (s *WithdrawalService) submit(req gateway.WithdrawalRequest) {
	if s.bridge == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), bridgeSubmitTimeout)
		defer cancel()
		ref, err := s.bridge.SubmitWithdrawal(ctx, req)
		if err != nil {
			zap.L().Error("bridge submission failed",
				zap.String("withdrawal_id", req.WithdrawalID.String()),
				zap.Error(err),
			)
			return
		}
		zap.L().Info("withdrawal submitted to bridge",
			zap.String("withdrawal_id", req.WithdrawalID.String()),
			zap.String("bridge_ref", ref),
		)
	}()
}

// Wait blocks until every background bridge submission returned.
func (s *WithdrawalService) Wait() {
	s.wg.Wait()
}

func (s *WithdrawalService) Get(ctx context.Context, id uuid.UUID) (repository.Withdrawal, error) {
	w, err := s.store.Queries().GetWithdrawal(ctx, repository.ToPgUUID(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.Withdrawal{}, domain.ErrWithdrawalNotFound
		}
		return repository.Withdrawal{}, domain.Upstream("load withdrawal", err)
	}
	return w, nil
}

func (s *WithdrawalService) List(ctx context.Context, filter repository.WithdrawalFilter) ([]repository.Withdrawal, error) {
	switch filter.Status {
	case "", domain.WithdrawalPending, domain.WithdrawalApproved, domain.WithdrawalRejected:
	default:
		return nil, domain.Invalid("status", "unknown withdrawal status %q", filter.Status)
	}
	items, err := s.store.Queries().ListWithdrawals(ctx, filter)
	if err != nil {
		return nil, domain.Upstream("list withdrawals", err)
	}
	return items, nil
}
