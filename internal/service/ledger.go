package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/events"
	"github.com/ayo6706/invest-ledger/internal/observability"
	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// LedgerService owns every balance mutation. Single-account changes are one
// conditional increment statement; cross-account transfers go through a
// FundTransfer intent so a failed receiving leg can be replayed.
type LedgerService struct {
	store  QueryStore
	events events.Publisher
}

func NewLedgerService(store QueryStore, publisher events.Publisher) *LedgerService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &LedgerService{store: store, events: publisher}
}

// TransferRequest moves Amount out of From's FromWallet and credits
// Amount-Fee to To's ToWallet. The fee is captured by the platform.
type TransferRequest struct {
	From       uuid.UUID
	To         uuid.UUID
	FromWallet domain.Wallet
	ToWallet   domain.Wallet
	Amount     int64
	Fee        int64
	Type       string
}

func (s *LedgerService) Credit(ctx context.Context, accountID uuid.UUID, wallet domain.Wallet, amount int64) error {
	if err := validateMutation(wallet, amount); err != nil {
		return err
	}
	return domain.Upstream("credit wallet", credit(ctx, s.store.Queries(), accountID, wallet, amount))
}

func (s *LedgerService) Debit(ctx context.Context, accountID uuid.UUID, wallet domain.Wallet, amount int64) error {
	if err := validateMutation(wallet, amount); err != nil {
		return err
	}
	return domain.Upstream("debit wallet", debit(ctx, s.store.Queries(), accountID, wallet, amount))
}

// Move shifts amount between two sub-balances of one account in a single statement.
func (s *LedgerService) Move(ctx context.Context, accountID uuid.UUID, from, to domain.Wallet, amount int64) error {
	if err := validateMutation(from, amount); err != nil {
		return err
	}
	if !to.Valid() {
		return domain.Invalid("to_wallet", "unknown wallet %q", to)
	}
	if from == to {
		return domain.Invalid("to_wallet", "source and target wallet must differ")
	}
	return domain.Upstream("move funds", move(ctx, s.store.Queries(), accountID, from, to, amount))
}

// Transfer runs the two legs in separate transactions. A failure of the
// receiving leg returns *domain.PartialLedgerFailure and leaves the intent
// debited for reconciliation to replay.
func (s *LedgerService) Transfer(ctx context.Context, req TransferRequest) (repository.FundTransfer, error) {
	if err := validateMutation(req.FromWallet, req.Amount); err != nil {
		return repository.FundTransfer{}, err
	}
	if !req.ToWallet.Valid() {
		return repository.FundTransfer{}, domain.Invalid("to_wallet", "unknown wallet %q", req.ToWallet)
	}
	if req.From == req.To {
		return repository.FundTransfer{}, domain.Invalid("receiver_id", "cannot transfer to the same account")
	}
	if req.Fee < 0 || req.Fee >= req.Amount {
		return repository.FundTransfer{}, domain.Invalid("fee", "fee must be between 0 and the amount")
	}
	if req.Type == "" {
		req.Type = domain.TransferUserToUser
	}

	transferID := uuid.New()
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		if _, err := qtx.GetAccount(ctx, repository.ToPgUUID(req.To)); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.InvalidErr("receiver_id", domain.ErrAccountNotFound)
			}
			return fmt.Errorf("load receiver: %w", err)
		}
		if _, err := qtx.CreateFundTransfer(ctx, repository.CreateFundTransferParams{
			ID:         repository.ToPgUUID(transferID),
			SenderID:   repository.ToPgUUID(req.From),
			ReceiverID: repository.ToPgUUID(req.To),
			Amount:     req.Amount,
			Fee:        req.Fee,
			FromWallet: string(req.FromWallet),
			ToWallet:   string(req.ToWallet),
			Type:       req.Type,
			Status:     domain.TransferStatusPending,
		}); err != nil {
			return fmt.Errorf("create transfer intent: %w", err)
		}
		if err := debit(ctx, qtx, req.From, req.FromWallet, req.Amount); err != nil {
			return err
		}
		rows, err := qtx.UpdateFundTransferStatus(ctx, repository.UpdateFundTransferStatusParams{
			ID:         repository.ToPgUUID(transferID),
			FromStatus: domain.TransferStatusPending,
			Status:     domain.TransferStatusDebited,
		})
		if err != nil {
			return fmt.Errorf("mark transfer debited: %w", err)
		}
		return requireExactlyOne(rows, "mark transfer debited")
	})
	if err != nil {
		return repository.FundTransfer{}, domain.Upstream("debit sender", err)
	}

	if err := s.SettleTransfer(ctx, transferID); err != nil {
		observability.IncrementPartialLedgerFailure()
		zap.L().Error("transfer receiving leg failed; intent left for reconciliation",
			zap.String("transfer_id", transferID.String()),
			zap.String("sender_id", req.From.String()),
			zap.String("receiver_id", req.To.String()),
			zap.Int64("amount", req.Amount),
			zap.Error(err),
		)
		return repository.FundTransfer{}, &domain.PartialLedgerFailure{TransferID: transferID, Err: err}
	}

	transfer, err := s.store.Queries().GetFundTransfer(ctx, repository.ToPgUUID(transferID))
	if err != nil {
		return repository.FundTransfer{}, domain.Upstream("load transfer", err)
	}
	s.events.Publish(ctx, events.New(events.TransferCompleted, req.To, map[string]any{
		"transfer_id": transferID,
		"sender_id":   req.From,
		"amount":      req.Amount,
		"fee":         req.Fee,
	}))
	return transfer, nil
}

// SettleTransfer applies the receiving leg of a debited intent. Settling an
// intent that is no longer debited is a no-op, so replays are safe.
func (s *LedgerService) SettleTransfer(ctx context.Context, transferID uuid.UUID) error {
	return s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		transfer, err := qtx.GetFundTransfer(ctx, repository.ToPgUUID(transferID))
		if err != nil {
			return fmt.Errorf("load transfer intent: %w", err)
		}
		rows, err := qtx.UpdateFundTransferStatus(ctx, repository.UpdateFundTransferStatusParams{
			ID:         transfer.ID,
			FromStatus: domain.TransferStatusDebited,
			Status:     domain.TransferStatusCompleted,
		})
		if err != nil {
			return fmt.Errorf("mark transfer completed: %w", err)
		}
		if rows == 0 {
			return nil
		}
		net := transfer.Amount - transfer.Fee
		if net <= 0 {
			return nil
		}
		return credit(ctx, qtx, repository.FromPgUUID(transfer.ReceiverID), domain.Wallet(transfer.ToWallet), net)
	})
}

func validateMutation(wallet domain.Wallet, amount int64) error {
	if amount <= 0 {
		return domain.Invalid("amount", "must be greater than zero")
	}
	if !wallet.Valid() {
		return domain.Invalid("wallet", "unknown wallet %q", wallet)
	}
	return nil
}

func walletDelta(params *repository.ApplyBalanceDeltaParams, wallet domain.Wallet, delta int64) {
	switch wallet {
	case domain.WalletMain:
		params.Wallet += delta
	case domain.WalletTopup:
		params.WalletTopup += delta
	case domain.WalletWithdraw:
		params.WalletWithdraw += delta
	case domain.WalletStake:
		params.TotalInvestment += delta
	}
}

// applyDelta runs one conditional increment and turns a zero-row result into
// ErrAccountNotFound or ErrInsufficientFunds.
func applyDelta(ctx context.Context, q repository.Querier, params repository.ApplyBalanceDeltaParams) error {
	rows, err := q.ApplyBalanceDelta(ctx, params)
	if err != nil {
		return fmt.Errorf("apply balance delta: %w", err)
	}
	if rows == 1 {
		return nil
	}
	if _, err := q.GetAccount(ctx, params.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAccountNotFound
		}
		return fmt.Errorf("load account: %w", err)
	}
	return domain.ErrInsufficientFunds
}

func credit(ctx context.Context, q repository.Querier, accountID uuid.UUID, wallet domain.Wallet, amount int64) error {
	params := repository.ApplyBalanceDeltaParams{ID: repository.ToPgUUID(accountID)}
	walletDelta(&params, wallet, amount)
	return applyDelta(ctx, q, params)
}

func debit(ctx context.Context, q repository.Querier, accountID uuid.UUID, wallet domain.Wallet, amount int64) error {
	params := repository.ApplyBalanceDeltaParams{ID: repository.ToPgUUID(accountID)}
	walletDelta(&params, wallet, -amount)
	return applyDelta(ctx, q, params)
}

func move(ctx context.Context, q repository.Querier, accountID uuid.UUID, from, to domain.Wallet, amount int64) error {
	params := repository.ApplyBalanceDeltaParams{ID: repository.ToPgUUID(accountID)}
	walletDelta(&params, from, -amount)
	walletDelta(&params, to, amount)
	return applyDelta(ctx, q, params)
}
