package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type AccountService struct {
	store QueryStore
	audit *AuditService
}

func NewAccountService(store QueryStore) *AccountService {
	return &AccountService{
		store: store,
		audit: NewAuditService(store),
	}
}

// RegisterInput describes a new account. The referrer may be given by id or
// by username.
type RegisterInput struct {
	Username         string
	Email            string
	Role             string
	ReferrerID       *uuid.UUID
	ReferrerUsername string
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (repository.Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" {
		return repository.Account{}, domain.Invalid("username", "is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return repository.Account{}, domain.Invalid("email", "is not a valid address")
	}
	if in.Role == "" {
		in.Role = domain.RoleUser
	}
	if in.Role != domain.RoleUser && in.Role != domain.RoleAdmin {
		return repository.Account{}, domain.Invalid("role", "unknown role %q", in.Role)
	}

	queries := s.store.Queries()
	var referrer *uuid.UUID
	switch {
	case in.ReferrerID != nil:
		if _, err := queries.GetAccount(ctx, repository.ToPgUUID(*in.ReferrerID)); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return repository.Account{}, domain.InvalidErr("referrer_id", domain.ErrAccountNotFound)
			}
			return repository.Account{}, domain.Upstream("load referrer", err)
		}
		referrer = in.ReferrerID
	case strings.TrimSpace(in.ReferrerUsername) != "":
		acc, err := queries.GetAccountByUsername(ctx, strings.TrimSpace(in.ReferrerUsername))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return repository.Account{}, domain.InvalidErr("referrer", domain.ErrAccountNotFound)
			}
			return repository.Account{}, domain.Upstream("load referrer", err)
		}
		id := repository.FromPgUUID(acc.ID)
		referrer = &id
	}

	account, err := queries.CreateAccount(ctx, repository.CreateAccountParams{
		ID:         repository.ToPgUUID(uuid.New()),
		Username:   in.Username,
		Email:      in.Email,
		Role:       in.Role,
		ReferrerID: repository.NullableUUID(referrer),
	})
	if err != nil {
		return repository.Account{}, domain.Upstream("create account", err)
	}
	return account, nil
}

func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (repository.Account, error) {
	account, err := s.store.Queries().GetAccount(ctx, repository.ToPgUUID(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.Account{}, domain.ErrAccountNotFound
		}
		return repository.Account{}, domain.Upstream("load account", err)
	}
	return account, nil
}

// SetBlocked blocks or unblocks an account. Blocked accounts keep their
// balances but earn nothing and cannot move funds.
func (s *AccountService) SetBlocked(ctx context.Context, adminID, userID uuid.UUID, blocked bool) error {
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		current, err := qtx.GetAccountForUpdate(ctx, repository.ToPgUUID(userID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrAccountNotFound
			}
			return fmt.Errorf("lock account: %w", err)
		}
		rows, err := qtx.SetAccountBlocked(ctx, repository.SetAccountBlockedParams{
			ID:      current.ID,
			Blocked: blocked,
		})
		if err != nil {
			return fmt.Errorf("set blocked: %w", err)
		}
		if err := requireExactlyOne(rows, "set account blocked"); err != nil {
			return err
		}
		action := "unblocked"
		if blocked {
			action = "blocked"
		}
		return s.audit.Write(ctx, qtx, "account", userID, &adminID, action,
			blockState(current.Blocked), blockState(blocked), nil)
	})
	if err != nil {
		return domain.Upstream("set account blocked", err)
	}
	zap.L().Info("account block state changed",
		zap.String("user_id", userID.String()),
		zap.String("admin_id", adminID.String()),
		zap.Bool("blocked", blocked),
	)
	return nil
}

func blockState(blocked bool) string {
	if blocked {
		return "blocked"
	}
	return "active"
}

// ListIncomes pages through income entries, newest first.
func (s *AccountService) ListIncomes(ctx context.Context, filter repository.IncomeFilter) ([]repository.IncomeEntry, error) {
	switch filter.Type {
	case "", domain.IncomeReferralBonus, domain.IncomeLevelROI, domain.IncomeTeamReward,
		domain.IncomeDailyProfit, domain.IncomeFirstDepositBonus:
	default:
		return nil, domain.Invalid("type", "unknown income type %q", filter.Type)
	}
	items, err := s.store.Queries().ListIncomeEntries(ctx, filter)
	if err != nil {
		return nil, domain.Upstream("list income entries", err)
	}
	return items, nil
}

func (s *AccountService) TeamRewards(ctx context.Context, userID uuid.UUID) ([]repository.TeamReward, error) {
	items, err := s.store.Queries().ListTeamRewardsByUser(ctx, repository.ToPgUUID(userID))
	if err != nil {
		return nil, domain.Upstream("list team rewards", err)
	}
	return items, nil
}
