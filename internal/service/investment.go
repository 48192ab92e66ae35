package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/events"
	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// InvestmentService moves topup funds into stake and opens an investment at
// the ROI tier that matches its size.
type InvestmentService struct {
	store      QueryStore
	settings   SettingsSource
	clock      Clock
	events     events.Publisher
	commission *CommissionService
}

func NewInvestmentService(store QueryStore, source SettingsSource, clock Clock, publisher events.Publisher, commission *CommissionService) *InvestmentService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &InvestmentService{
		store:      store,
		settings:   source,
		clock:      clock,
		events:     publisher,
		commission: commission,
	}
}

// Invest stakes amount micros from the owner's topup wallet. The referral
// bonus and team business updates commit in the same transaction.
func (s *InvestmentService) Invest(ctx context.Context, userID uuid.UUID, amount int64) (repository.Investment, error) {
	if amount <= 0 {
		return repository.Investment{}, domain.Invalid("amount", "must be greater than zero")
	}
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return repository.Investment{}, domain.Upstream("load settings", err)
	}
	if amount < cfg.MinInvestment {
		return repository.Investment{}, domain.Invalid("amount", "minimum investment is %s", domain.NewMoney(cfg.MinInvestment))
	}
	tier, ok := cfg.TierFor(amount)
	if !ok {
		return repository.Investment{}, domain.Invalid("amount", "no roi tier covers %s", domain.NewMoney(amount))
	}

	var (
		investment repository.Investment
		credits    []incomeCredit
	)
	err = s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		account, err := qtx.GetAccountForUpdate(ctx, repository.ToPgUUID(userID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrAccountNotFound
			}
			return fmt.Errorf("lock account: %w", err)
		}
		if account.Blocked {
			return domain.InvalidErr("user_id", domain.ErrAccountBlocked)
		}
		if err := move(ctx, qtx, userID, domain.WalletTopup, domain.WalletStake, amount); err != nil {
			return err
		}

		investmentID := uuid.New()
		investment, err = qtx.CreateInvestment(ctx, repository.CreateInvestmentParams{
			ID:         repository.ToPgUUID(investmentID),
			UserID:     account.ID,
			Amount:     amount,
			Tier:       tier.Name,
			RoiPercent: tier.DailyROIPercent,
			StartDate:  repository.ToPgDate(s.clock.today()),
		})
		if err != nil {
			return fmt.Errorf("create investment: %w", err)
		}
		if err := qtx.SetLastInvestmentAmount(ctx, repository.SetLastInvestmentAmountParams{
			ID:     account.ID,
			Amount: amount,
		}); err != nil {
			return fmt.Errorf("set last investment amount: %w", err)
		}
		credits, err = s.commission.onInvestment(ctx, qtx, account, investmentID, amount, cfg)
		return err
	})
	if err != nil {
		return repository.Investment{}, domain.Upstream("create investment", err)
	}

	zap.L().Info("investment created",
		zap.String("user_id", userID.String()),
		zap.String("investment_id", repository.FromPgUUID(investment.ID).String()),
		zap.Int64("amount", amount),
		zap.String("tier", tier.Name),
	)
	s.events.Publish(ctx, events.New(events.InvestmentCreated, userID, map[string]any{
		"investment_id": repository.FromPgUUID(investment.ID),
		"amount":        amount,
		"tier":          tier.Name,
	}))
	s.commission.publishCredits(ctx, credits)
	return investment, nil
}

// ListInvestments returns the owner's investments, optionally by status.
func (s *InvestmentService) ListInvestments(ctx context.Context, userID uuid.UUID, status string) ([]repository.Investment, error) {
	switch status {
	case "", domain.InvestmentActive, domain.InvestmentCompleted:
	default:
		return nil, domain.Invalid("status", "unknown investment status %q", status)
	}
	items, err := s.store.Queries().ListInvestmentsByUser(ctx, repository.ListInvestmentsByUserParams{
		UserID: repository.ToPgUUID(userID),
		Status: status,
	})
	if err != nil {
		return nil, domain.Upstream("list investments", err)
	}
	return items, nil
}
