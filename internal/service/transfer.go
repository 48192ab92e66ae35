package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// TransferService exposes the fund transfer flavors offered to users and admins.
type TransferService struct {
	store    QueryStore
	ledger   *LedgerService
	settings SettingsSource
	audit    *AuditService
}

func NewTransferService(store QueryStore, ledger *LedgerService, source SettingsSource) *TransferService {
	return &TransferService{
		store:    store,
		ledger:   ledger,
		settings: source,
		audit:    NewAuditService(store),
	}
}

// UserToUser moves amount from the sender's main wallet to the receiver's
// main wallet, less the configured transfer fee.
func (s *TransferService) UserToUser(ctx context.Context, from, to uuid.UUID, amount int64, otpVerified bool) (repository.FundTransfer, error) {
	if amount <= 0 {
		return repository.FundTransfer{}, domain.Invalid("amount", "must be greater than zero")
	}
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return repository.FundTransfer{}, domain.Upstream("load settings", err)
	}
	if cfg.TransferOTPRequired && !otpVerified {
		return repository.FundTransfer{}, domain.Invalid("otp", "verification is required")
	}
	if err := s.requireActive(ctx, from, "sender_id"); err != nil {
		return repository.FundTransfer{}, err
	}

	return s.ledger.Transfer(ctx, TransferRequest{
		From:       from,
		To:         to,
		FromWallet: domain.WalletMain,
		ToWallet:   domain.WalletMain,
		Amount:     amount,
		Fee:        domain.NewMoney(amount).Percent(cfg.TransferFeePercent).Amount,
		Type:       domain.TransferUserToUser,
	})
}

// Self moves amount from the owner's main wallet into the topup wallet so it
// can be invested.
func (s *TransferService) Self(ctx context.Context, userID uuid.UUID, amount int64) (repository.FundTransfer, error) {
	if amount <= 0 {
		return repository.FundTransfer{}, domain.Invalid("amount", "must be greater than zero")
	}
	if err := s.requireActive(ctx, userID, "user_id"); err != nil {
		return repository.FundTransfer{}, err
	}

	var transfer repository.FundTransfer
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		if err := move(ctx, qtx, userID, domain.WalletMain, domain.WalletTopup, amount); err != nil {
			return err
		}
		var err error
		transfer, err = qtx.CreateFundTransfer(ctx, repository.CreateFundTransferParams{
			ID:         repository.ToPgUUID(uuid.New()),
			SenderID:   repository.ToPgUUID(userID),
			ReceiverID: repository.ToPgUUID(userID),
			Amount:     amount,
			FromWallet: string(domain.WalletMain),
			ToWallet:   string(domain.WalletTopup),
			Type:       domain.TransferSelf,
			Status:     domain.TransferStatusCompleted,
		})
		if err != nil {
			return fmt.Errorf("record self transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		return repository.FundTransfer{}, domain.Upstream("self transfer", err)
	}
	return transfer, nil
}

// AdminCredit credits an externally sourced amount to any wallet of an account.
func (s *TransferService) AdminCredit(ctx context.Context, adminID, userID uuid.UUID, wallet domain.Wallet, amount int64, note string) (repository.FundTransfer, error) {
	if err := validateMutation(wallet, amount); err != nil {
		return repository.FundTransfer{}, err
	}
	if wallet == domain.WalletStake {
		return repository.FundTransfer{}, domain.Invalid("wallet", "stake is only funded through investments")
	}

	var transfer repository.FundTransfer
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		if _, err := qtx.GetAccountForUpdate(ctx, repository.ToPgUUID(userID)); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrAccountNotFound
			}
			return fmt.Errorf("lock account: %w", err)
		}
		if err := credit(ctx, qtx, userID, wallet, amount); err != nil {
			return err
		}
		var err error
		transfer, err = qtx.CreateFundTransfer(ctx, repository.CreateFundTransferParams{
			ID:         repository.ToPgUUID(uuid.New()),
			ReceiverID: repository.ToPgUUID(userID),
			Amount:     amount,
			ToWallet:   string(wallet),
			Type:       domain.TransferAdmin,
			Status:     domain.TransferStatusCompleted,
		})
		if err != nil {
			return fmt.Errorf("record admin credit: %w", err)
		}
		return s.audit.Write(ctx, qtx, "fund_transfer", repository.FromPgUUID(transfer.ID), &adminID, "admin_credit",
			"", domain.TransferStatusCompleted, mustJSON(map[string]any{
				"user_id": userID,
				"wallet":  wallet,
				"amount":  amount,
				"note":    note,
			}))
	})
	if err != nil {
		return repository.FundTransfer{}, domain.Upstream("admin credit", err)
	}
	zap.L().Info("admin credit applied",
		zap.String("admin_id", adminID.String()),
		zap.String("user_id", userID.String()),
		zap.String("wallet", string(wallet)),
		zap.Int64("amount", amount),
	)
	return transfer, nil
}

func (s *TransferService) requireActive(ctx context.Context, userID uuid.UUID, field string) error {
	account, err := s.store.Queries().GetAccount(ctx, repository.ToPgUUID(userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.InvalidErr(field, domain.ErrAccountNotFound)
		}
		return domain.Upstream("load account", err)
	}
	if account.Blocked {
		return domain.InvalidErr(field, domain.ErrAccountBlocked)
	}
	return nil
}
