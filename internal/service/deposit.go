package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/events"
	"github.com/ayo6706/invest-ledger/internal/observability"
	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var ErrDepositPayloadMismatch = errors.New("deposit payload does not match existing transaction hash")

// DepositService credits verified bridge deposits to the topup wallet.
type DepositService struct {
	store    QueryStore
	settings SettingsSource
	events   events.Publisher
}

func NewDepositService(store QueryStore, source SettingsSource, publisher events.Publisher) *DepositService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &DepositService{store: store, settings: source, events: publisher}
}

// DepositInput is a deposit confirmed on chain.
type DepositInput struct {
	UserID uuid.UUID
	Amount int64
	TxHash string
}

// DepositResult reports what a credit call did.
type DepositResult struct {
	Deposit   repository.Deposit `json:"deposit"`
	Duplicate bool               `json:"duplicate"`
	Bonus     int64              `json:"bonus"`
}

// Credit records the deposit once per transaction hash and credits topup.
// The depositor's first deposit also earns the first deposit bonus on main.
// Replaying a known hash with the same payload returns the stored deposit.
func (s *DepositService) Credit(ctx context.Context, in DepositInput) (DepositResult, error) {
	in.TxHash = strings.TrimSpace(in.TxHash)
	if in.Amount <= 0 {
		return DepositResult{}, domain.Invalid("amount_micros", "must be greater than zero")
	}
	if in.TxHash == "" {
		return DepositResult{}, domain.Invalid("tx_hash", "is required")
	}
	if in.UserID == uuid.Nil {
		return DepositResult{}, domain.Invalid("user_id", "is required")
	}
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return DepositResult{}, domain.Upstream("load settings", err)
	}

	var result DepositResult
	err = s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		if _, err := qtx.GetAccountForUpdate(ctx, repository.ToPgUUID(in.UserID)); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.InvalidErr("user_id", domain.ErrAccountNotFound)
			}
			return fmt.Errorf("lock account: %w", err)
		}
		deposit, err := qtx.CreateDeposit(ctx, repository.CreateDepositParams{
			ID:     repository.ToPgUUID(uuid.New()),
			UserID: repository.ToPgUUID(in.UserID),
			Amount: in.Amount,
			TxHash: in.TxHash,
		})
		if errors.Is(err, pgx.ErrNoRows) {
			existing, err := qtx.GetDepositByTxHash(ctx, in.TxHash)
			if err != nil {
				return fmt.Errorf("load existing deposit: %w", err)
			}
			if repository.FromPgUUID(existing.UserID) != in.UserID || existing.Amount != in.Amount {
				return ErrDepositPayloadMismatch
			}
			result = DepositResult{Deposit: existing, Duplicate: true}
			return nil
		}
		if err != nil {
			return fmt.Errorf("create deposit: %w", err)
		}
		result.Deposit = deposit

		if err := credit(ctx, qtx, in.UserID, domain.WalletTopup, in.Amount); err != nil {
			return fmt.Errorf("credit deposit: %w", err)
		}

		count, err := qtx.CountDepositsByUser(ctx, repository.ToPgUUID(in.UserID))
		if err != nil {
			return fmt.Errorf("count deposits: %w", err)
		}
		if count != 1 || !cfg.FirstDepositBonusPercent.IsPositive() {
			return nil
		}
		bonus := domain.NewMoney(in.Amount).Percent(cfg.FirstDepositBonusPercent).Amount
		if bonus <= 0 {
			return nil
		}
		_, err = qtx.CreateIncomeEntry(ctx, repository.CreateIncomeEntryParams{
			ID:     repository.ToPgUUID(uuid.New()),
			UserID: repository.ToPgUUID(in.UserID),
			Type:   domain.IncomeFirstDepositBonus,
			Amount: bonus,
			Metadata: mustJSON(map[string]any{
				"tx_hash": in.TxHash,
				"percent": cfg.FirstDepositBonusPercent.String(),
			}),
		})
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("record first deposit bonus: %w", err)
		}
		if err := credit(ctx, qtx, in.UserID, domain.WalletMain, bonus); err != nil {
			return fmt.Errorf("credit first deposit bonus: %w", err)
		}
		result.Bonus = bonus
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDepositPayloadMismatch) {
			return DepositResult{}, err
		}
		return DepositResult{}, domain.Upstream("credit deposit", err)
	}
	if result.Duplicate {
		return result, nil
	}

	zap.L().Info("deposit credited",
		zap.String("user_id", in.UserID.String()),
		zap.String("tx_hash", in.TxHash),
		zap.Int64("amount", in.Amount),
		zap.Int64("bonus", result.Bonus),
	)
	s.events.Publish(ctx, events.New(events.DepositCredited, in.UserID, map[string]any{
		"deposit_id": repository.FromPgUUID(result.Deposit.ID),
		"amount":     in.Amount,
		"tx_hash":    in.TxHash,
	}))
	if result.Bonus > 0 {
		observability.AddIncomeCredited(domain.IncomeFirstDepositBonus, result.Bonus)
		s.events.Publish(ctx, events.New(events.IncomeCredited, in.UserID, map[string]any{
			"type":   domain.IncomeFirstDepositBonus,
			"amount": result.Bonus,
		}))
	}
	return result, nil
}
