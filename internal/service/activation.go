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

// ActivationService gates daily profit eligibility. An owner opts in once per
// business day; the record expires implicitly when the day rolls over.
type ActivationService struct {
	store    QueryStore
	clock    Clock
	pageSize int32
}

func NewActivationService(store QueryStore, clock Clock, pageSize int32) *ActivationService {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &ActivationService{store: store, clock: clock, pageSize: pageSize}
}

// SyncReport summarizes one activation sweep.
type SyncReport struct {
	Scanned int `json:"scanned"`
	Created int `json:"created"`
	Cleared int `json:"cleared"`
}

// Activate opens today's record for the owner. Calling it again the same day
// returns the existing record.
func (s *ActivationService) Activate(ctx context.Context, userID uuid.UUID) (repository.TradeActivation, error) {
	account, err := s.store.Queries().GetAccount(ctx, repository.ToPgUUID(userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.TradeActivation{}, domain.ErrAccountNotFound
		}
		return repository.TradeActivation{}, domain.Upstream("load account", err)
	}
	if err := activationEligibility(account); err != nil {
		return repository.TradeActivation{}, err
	}

	var activation repository.TradeActivation
	err = s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		var err error
		activation, err = s.openToday(ctx, qtx, userID)
		if err != nil {
			return err
		}
		return qtx.SetDailyProfitActivated(ctx, repository.SetDailyProfitActivatedParams{
			ID:               repository.ToPgUUID(userID),
			Activated:        true,
			LastActivationAt: repository.ToPgTimestamptz(s.clock.now()),
		})
	})
	if err != nil {
		return repository.TradeActivation{}, domain.Upstream("activate trading", err)
	}
	return activation, nil
}

// Today returns the owner's record for the current business day.
func (s *ActivationService) Today(ctx context.Context, userID uuid.UUID) (repository.TradeActivation, error) {
	activation, err := s.store.Queries().GetTradeActivationByDate(ctx, repository.GetTradeActivationByDateParams{
		UserID:         repository.ToPgUUID(userID),
		ActivationDate: repository.ToPgDate(s.clock.today()),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.TradeActivation{}, domain.ErrActivationNotFound
		}
		return repository.TradeActivation{}, domain.Upstream("load activation", err)
	}
	return activation, nil
}

// SyncActivations reconciles the activation flag with the activation log. A
// flag only stands for the business day of last_activation_at: accounts that
// opted in today and still qualify get a missing record recreated, accounts
// that opted in on an earlier day or no longer qualify lose the flag.
func (s *ActivationService) SyncActivations(ctx context.Context) (SyncReport, error) {
	var (
		report SyncReport
		offset int32
	)
	for {
		accounts, err := s.store.Queries().ListActivatedAccounts(ctx, repository.ListActivatedAccountsParams{
			Limit:  s.pageSize,
			Offset: offset,
		})
		if err != nil {
			return report, domain.Upstream("list activated accounts", err)
		}
		if len(accounts) == 0 {
			break
		}

		kept := 0
		for _, account := range accounts {
			report.Scanned++
			userID := repository.FromPgUUID(account.ID)
			if !s.openedToday(account) || activationEligibility(account) != nil {
				err := s.store.Queries().SetDailyProfitActivated(ctx, repository.SetDailyProfitActivatedParams{
					ID:        account.ID,
					Activated: false,
				})
				if err != nil {
					zap.L().Error("clear activation flag failed", zap.String("user_id", userID.String()), zap.Error(err))
					kept++
					continue
				}
				report.Cleared++
				continue
			}
			kept++
			created := false
			err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
				_, err := qtx.CreateTradeActivation(ctx, s.activationParams(userID))
				if errors.Is(err, pgx.ErrNoRows) {
					return nil
				}
				if err != nil {
					return err
				}
				created = true
				return nil
			})
			if err != nil {
				zap.L().Error("create missing activation failed", zap.String("user_id", userID.String()), zap.Error(err))
				continue
			}
			if created {
				report.Created++
			}
		}

		if len(accounts) < int(s.pageSize) {
			break
		}
		offset += int32(kept)
	}

	zap.L().Info("activation sync finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("created", report.Created),
		zap.Int("cleared", report.Cleared),
	)
	return report, nil
}

func (s *ActivationService) openToday(ctx context.Context, qtx repository.Querier, userID uuid.UUID) (repository.TradeActivation, error) {
	params := s.activationParams(userID)
	activation, err := qtx.CreateTradeActivation(ctx, params)
	if err == nil {
		return activation, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return repository.TradeActivation{}, fmt.Errorf("create activation: %w", err)
	}
	activation, err = qtx.GetTradeActivationByDate(ctx, repository.GetTradeActivationByDateParams{
		UserID:         params.UserID,
		ActivationDate: params.ActivationDate,
	})
	if err != nil {
		return repository.TradeActivation{}, fmt.Errorf("load existing activation: %w", err)
	}
	return activation, nil
}

func (s *ActivationService) activationParams(userID uuid.UUID) repository.CreateTradeActivationParams {
	day := s.clock.today()
	return repository.CreateTradeActivationParams{
		ID:             repository.ToPgUUID(uuid.New()),
		UserID:         repository.ToPgUUID(userID),
		ActivationDate: repository.ToPgDate(day),
		ExpiryDate:     repository.ToPgTimestamptz(day.AddDate(0, 0, 1)),
	}
}

// openedToday reports whether the owner's last opt-in falls on the current
// business day.
func (s *ActivationService) openedToday(account repository.Account) bool {
	if !account.LastActivationAt.Valid {
		return false
	}
	today := s.clock.today()
	return startOfDay(account.LastActivationAt.Time.In(today.Location())).Equal(today)
}

func activationEligibility(account repository.Account) error {
	if account.Blocked {
		return domain.InvalidErr("user_id", domain.ErrAccountBlocked)
	}
	if account.TotalInvestment <= 0 {
		return domain.InvalidErr("user_id", domain.ErrNoActiveStake)
	}
	return nil
}
