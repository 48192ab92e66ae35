package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/events"
	"github.com/ayo6706/invest-ledger/internal/observability"
	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/ayo6706/invest-ledger/internal/settings"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// CommissionService pays referral bonuses, level commissions on daily profit
// and team business rewards.
type CommissionService struct {
	store    QueryStore
	settings SettingsSource
	clock    Clock
	events   events.Publisher
	pageSize int32
}

func NewCommissionService(store QueryStore, source SettingsSource, clock Clock, publisher events.Publisher, pageSize int32) *CommissionService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return &CommissionService{
		store:    store,
		settings: source,
		clock:    clock,
		events:   publisher,
		pageSize: pageSize,
	}
}

// CommissionReport summarizes one level commission run.
type CommissionReport struct {
	Date     string `json:"date"`
	Scanned  int    `json:"scanned"`
	Claimed  int    `json:"claimed"`
	Payouts  int    `json:"payouts"`
	Credited int64  `json:"credited"`
	Failed   int    `json:"failed"`
}

// incomeCredit is an income paid inside a transaction, published once it commits.
type incomeCredit struct {
	UserID uuid.UUID
	From   uuid.UUID
	Type   string
	Amount int64
	Meta   map[string]any
}

func (s *CommissionService) publishCredits(ctx context.Context, credits []incomeCredit) {
	for _, c := range credits {
		observability.AddIncomeCredited(c.Type, c.Amount)
		payload := map[string]any{
			"type":   c.Type,
			"amount": c.Amount,
		}
		if c.From != uuid.Nil {
			payload["from"] = c.From
		}
		for k, v := range c.Meta {
			payload[k] = v
		}
		s.events.Publish(ctx, events.New(events.IncomeCredited, c.UserID, payload))
	}
}

// onInvestment runs inside the investment transaction: the referral bonus and
// the team business propagation commit or roll back with the stake itself.
func (s *CommissionService) onInvestment(ctx context.Context, qtx repository.Querier, investor repository.Account, investmentID uuid.UUID, amount int64, cfg settings.Settings) ([]incomeCredit, error) {
	var credits []incomeCredit
	bonus, err := payReferralBonus(ctx, qtx, investor, investmentID, amount, cfg)
	if err != nil {
		return nil, err
	}
	if bonus != nil {
		credits = append(credits, *bonus)
	}
	if err := addTeamBusiness(ctx, qtx, investor, amount, cfg.TeamDepth); err != nil {
		return nil, err
	}
	return credits, nil
}

// payReferralBonus credits the direct referrer once per (referrer, investor)
// pair. The unique partial index on income_entries decides the winner.
func payReferralBonus(ctx context.Context, qtx repository.Querier, investor repository.Account, investmentID uuid.UUID, amount int64, cfg settings.Settings) (*incomeCredit, error) {
	if !investor.ReferrerID.Valid {
		return nil, nil
	}
	referrer, err := qtx.GetAccount(ctx, investor.ReferrerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load referrer: %w", err)
	}

	bonus := domain.NewMoney(amount).Percent(cfg.ReferralBonusPercent).Amount
	referrerID := repository.FromPgUUID(referrer.ID)
	investorID := repository.FromPgUUID(investor.ID)
	meta := map[string]any{
		"investment_id": investmentID,
		"percent":       cfg.ReferralBonusPercent.String(),
	}
	_, err = qtx.CreateIncomeEntry(ctx, repository.CreateIncomeEntryParams{
		ID:         repository.ToPgUUID(uuid.New()),
		UserID:     referrer.ID,
		UserIDFrom: investor.ID,
		Type:       domain.IncomeReferralBonus,
		Amount:     bonus,
		Metadata:   mustJSON(meta),
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("record referral bonus: %w", err)
	}

	if bonus > 0 {
		if err := credit(ctx, qtx, referrerID, domain.WalletMain, bonus); err != nil {
			return nil, fmt.Errorf("credit referral bonus: %w", err)
		}
	}
	if err := qtx.IncrementReferralCounters(ctx, repository.IncrementReferralCountersParams{
		ID:              referrer.ID,
		DirectReferrals: 1,
		ReferralIncome:  bonus,
	}); err != nil {
		return nil, fmt.Errorf("update referral counters: %w", err)
	}
	if bonus == 0 {
		return nil, nil
	}
	return &incomeCredit{
		UserID: referrerID,
		From:   investorID,
		Type:   domain.IncomeReferralBonus,
		Amount: bonus,
		Meta:   meta,
	}, nil
}

// addTeamBusiness adds amount to the team business of every upline up to depth.
func addTeamBusiness(ctx context.Context, qtx repository.Querier, investor repository.Account, amount int64, depth int) error {
	visited := map[[16]byte]bool{investor.ID.Bytes: true}
	current := investor
	for level := 0; level < depth; level++ {
		if !current.ReferrerID.Valid || visited[current.ReferrerID.Bytes] {
			return nil
		}
		upline, err := qtx.GetAccount(ctx, current.ReferrerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("load upline: %w", err)
		}
		if err := qtx.AddTeamBusiness(ctx, repository.AddTeamBusinessParams{ID: upline.ID, Amount: amount}); err != nil {
			return fmt.Errorf("add team business: %w", err)
		}
		visited[upline.ID.Bytes] = true
		current = upline
	}
	return nil
}

// RunLevelCommission distributes level commission for every processed
// activation of day that has not been paid yet. Each activation is claimed
// with a conditional update, so reruns pay nothing twice.
func (s *CommissionService) RunLevelCommission(ctx context.Context, day time.Time) (CommissionReport, error) {
	report := CommissionReport{Date: day.Format(time.DateOnly)}
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return report, domain.Upstream("load settings", err)
	}

	filter := repository.ActivationFilter{}.
		On(day).
		WithProfitStatus(domain.ProfitProcessed).
		WithCommissionPaid(false)

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		// Claimed records drop out of the filter; only failures stay behind.
		page, err := s.store.Queries().ListTradeActivations(ctx, filter.Page(s.pageSize, int32(report.Failed)))
		if err != nil {
			return report, domain.Upstream("list processed activations", err)
		}
		if len(page) == 0 {
			break
		}
		for _, activation := range page {
			report.Scanned++
			var credits []incomeCredit
			claimed := false
			err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
				rows, err := qtx.ClaimActivationCommission(ctx, activation.ID)
				if err != nil {
					return fmt.Errorf("claim activation: %w", err)
				}
				if rows == 0 {
					return nil
				}
				claimed = true
				credits, err = distributeLevels(ctx, qtx, activation, cfg)
				return err
			})
			if err != nil {
				report.Failed++
				zap.L().Error("level commission failed",
					zap.String("activation_id", repository.FromPgUUID(activation.ID).String()),
					zap.Error(err),
				)
				continue
			}
			if !claimed {
				continue
			}
			report.Claimed++
			for _, c := range credits {
				report.Payouts++
				report.Credited += c.Amount
			}
			s.publishCredits(ctx, credits)
		}
		if len(page) < int(s.pageSize) {
			break
		}
	}

	zap.L().Info("level commission finished",
		zap.String("date", report.Date),
		zap.Int("claimed", report.Claimed),
		zap.Int("payouts", report.Payouts),
		zap.Int64("credited", report.Credited),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// distributeLevels walks the owner's upline. A level whose upline is blocked
// or lacks direct referrals is skipped; a missing link ends the walk.
func distributeLevels(ctx context.Context, qtx repository.Querier, activation repository.TradeActivation, cfg settings.Settings) ([]incomeCredit, error) {
	if activation.ProfitAmount <= 0 || len(cfg.LevelCommission) == 0 {
		return nil, nil
	}
	owner, err := qtx.GetAccount(ctx, activation.UserID)
	if err != nil {
		return nil, fmt.Errorf("load activation owner: %w", err)
	}

	ownerID := repository.FromPgUUID(owner.ID)
	activationID := repository.FromPgUUID(activation.ID)
	profit := domain.NewMoney(activation.ProfitAmount)
	visited := map[[16]byte]bool{owner.ID.Bytes: true}
	current := owner

	var credits []incomeCredit
	for i, level := range cfg.LevelCommission {
		if !current.ReferrerID.Valid || visited[current.ReferrerID.Bytes] {
			break
		}
		upline, err := qtx.GetAccount(ctx, current.ReferrerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				break
			}
			return nil, fmt.Errorf("load upline level %d: %w", i+1, err)
		}
		visited[upline.ID.Bytes] = true
		current = upline

		if upline.Blocked || upline.DirectReferrals < level.MinDirectReferrals {
			continue
		}
		amount := profit.Percent(level.Percent).Amount
		if amount <= 0 {
			continue
		}
		uplineID := repository.FromPgUUID(upline.ID)
		meta := map[string]any{
			"level":         i + 1,
			"activation_id": activationID,
		}
		if err := credit(ctx, qtx, uplineID, domain.WalletMain, amount); err != nil {
			return nil, fmt.Errorf("credit level %d: %w", i+1, err)
		}
		if _, err := qtx.CreateIncomeEntry(ctx, repository.CreateIncomeEntryParams{
			ID:         repository.ToPgUUID(uuid.New()),
			UserID:     upline.ID,
			UserIDFrom: owner.ID,
			Type:       domain.IncomeLevelROI,
			Amount:     amount,
			Metadata:   mustJSON(meta),
		}); err != nil {
			return nil, fmt.Errorf("record level %d income: %w", i+1, err)
		}
		credits = append(credits, incomeCredit{
			UserID: uplineID,
			From:   ownerID,
			Type:   domain.IncomeLevelROI,
			Amount: amount,
			Meta:   meta,
		})
	}
	return credits, nil
}

// QualifyTeamRewards opens a pending reward for every account whose team
// business reached a tier threshold. Each (account, tier) qualifies once.
func (s *CommissionService) QualifyTeamRewards(ctx context.Context) (int, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return 0, domain.Upstream("load settings", err)
	}

	created := 0
	now := s.clock.now()
	for _, tier := range cfg.TeamRewardTiers {
		var offset int32
		for {
			accounts, err := s.store.Queries().ListAccountsByMinTeamBusiness(ctx, repository.ListAccountsByMinTeamBusinessParams{
				MinTeamBusiness: tier.Threshold,
				Limit:           s.pageSize,
				Offset:          offset,
			})
			if err != nil {
				return created, domain.Upstream("list team business", err)
			}
			for _, account := range accounts {
				if account.Blocked {
					continue
				}
				_, err := s.store.Queries().CreateTeamReward(ctx, repository.CreateTeamRewardParams{
					ID:      repository.ToPgUUID(uuid.New()),
					UserID:  account.ID,
					Tier:    tier.Name,
					Amount:  tier.Reward,
					EndDate: repository.ToPgTimestamptz(now.AddDate(0, 0, tier.PeriodDays)),
				})
				if errors.Is(err, pgx.ErrNoRows) {
					continue
				}
				if err != nil {
					zap.L().Error("team reward qualification failed",
						zap.String("user_id", repository.FromPgUUID(account.ID).String()),
						zap.String("tier", tier.Name),
						zap.Error(err),
					)
					continue
				}
				created++
			}
			if len(accounts) < int(s.pageSize) {
				break
			}
			offset += int32(len(accounts))
		}
	}
	return created, nil
}

// PromoteDueTeamRewards completes every pending reward whose period ended:
// the reward is credited to main and the account rank follows the tier.
func (s *CommissionService) PromoteDueTeamRewards(ctx context.Context) (int, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return 0, domain.Upstream("load settings", err)
	}

	completed := 0
	for {
		due, err := s.store.Queries().ListDueTeamRewards(ctx, repository.ListDueTeamRewardsParams{
			EndDate: repository.ToPgTimestamptz(s.clock.now()),
			Limit:   s.pageSize,
		})
		if err != nil {
			return completed, domain.Upstream("list due team rewards", err)
		}
		progressed := 0
		for _, reward := range due {
			var credits []incomeCredit
			err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
				var err error
				credits, err = completeTeamReward(ctx, qtx, reward, cfg)
				return err
			})
			if err != nil {
				zap.L().Error("team reward promotion failed",
					zap.String("reward_id", repository.FromPgUUID(reward.ID).String()),
					zap.Error(err),
				)
				continue
			}
			progressed++
			if len(credits) > 0 {
				completed++
			}
			s.publishCredits(ctx, credits)
		}
		if len(due) < int(s.pageSize) || progressed == 0 {
			break
		}
	}
	return completed, nil
}

func completeTeamReward(ctx context.Context, qtx repository.Querier, reward repository.TeamReward, cfg settings.Settings) ([]incomeCredit, error) {
	rows, err := qtx.CompleteTeamReward(ctx, reward.ID)
	if err != nil {
		return nil, fmt.Errorf("complete team reward: %w", err)
	}
	if rows == 0 {
		return nil, nil
	}
	account, err := qtx.GetAccount(ctx, reward.UserID)
	if err != nil {
		return nil, fmt.Errorf("load reward owner: %w", err)
	}
	userID := repository.FromPgUUID(reward.UserID)
	meta := map[string]any{"tier": reward.Tier}

	if reward.Amount > 0 {
		if err := credit(ctx, qtx, userID, domain.WalletMain, reward.Amount); err != nil {
			return nil, fmt.Errorf("credit team reward: %w", err)
		}
	}
	if _, err := qtx.CreateIncomeEntry(ctx, repository.CreateIncomeEntryParams{
		ID:       repository.ToPgUUID(uuid.New()),
		UserID:   reward.UserID,
		Type:     domain.IncomeTeamReward,
		Amount:   reward.Amount,
		Metadata: mustJSON(meta),
	}); err != nil {
		return nil, fmt.Errorf("record team reward income: %w", err)
	}
	if rankIndex(cfg, reward.Tier) > rankIndex(cfg, account.Rank) {
		if err := qtx.SetAccountRank(ctx, repository.SetAccountRankParams{ID: reward.UserID, Rank: reward.Tier}); err != nil {
			return nil, fmt.Errorf("set rank: %w", err)
		}
	}
	return []incomeCredit{{
		UserID: userID,
		Type:   domain.IncomeTeamReward,
		Amount: reward.Amount,
		Meta:   meta,
	}}, nil
}

// rankIndex orders ranks by tier threshold; unknown ranks sort first.
func rankIndex(cfg settings.Settings, name string) int64 {
	if name == "" {
		return -1
	}
	for _, t := range cfg.TeamRewardTiers {
		if t.Name == name {
			return t.Threshold
		}
	}
	return -1
}
