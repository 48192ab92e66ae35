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
	"go.uber.org/zap"
)

var errAlreadyTransitioned = errors.New("activation already left pending")

// ProfitService runs the daily profit distribution batch.
type ProfitService struct {
	store    QueryStore
	settings SettingsSource
	clock    Clock
	events   events.Publisher
	audit    *AuditService
	pageSize int32
}

func NewProfitService(store QueryStore, source SettingsSource, clock Clock, publisher events.Publisher, pageSize int32) *ProfitService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return &ProfitService{
		store:    store,
		settings: source,
		clock:    clock,
		events:   publisher,
		audit:    NewAuditService(store),
		pageSize: pageSize,
	}
}

// ProfitReport summarizes one batch run.
type ProfitReport struct {
	Date      string `json:"date"`
	Scanned   int    `json:"scanned"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Credited  int64  `json:"credited"`

	// CarriedOver reports pending records of the previous day that a run
	// picked up before processing its own day.
	CarriedOver *ProfitReport `json:"carried_over,omitempty"`
}

// OverrideRequest moves pending activations selected by owner and/or date
// range to a terminal profit status without crediting anything.
type OverrideRequest struct {
	UserID   *uuid.UUID
	DateFrom time.Time
	DateTo   time.Time
	Status   string
	Reason   string
	ActorID  *uuid.UUID
}

// Today returns the current business day.
func (s *ProfitService) Today() time.Time {
	return s.clock.today()
}

// RunDailyProfit credits the daily profit of every pending activation of day.
// Each record commits on its own; the conditional pending transition keeps a
// rerun from crediting twice.
func (s *ProfitService) RunDailyProfit(ctx context.Context, day time.Time) (ProfitReport, error) {
	report := ProfitReport{Date: day.Format(time.DateOnly)}
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return report, domain.Upstream("load settings", err)
	}

	filter := repository.ActivationFilter{}.On(day).WithProfitStatus(domain.ProfitPending)
	var stuck int32
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		page, err := s.store.Queries().ListTradeActivations(ctx, filter.Page(s.pageSize, stuck))
		if err != nil {
			return report, domain.Upstream("list pending activations", err)
		}
		if len(page) == 0 {
			break
		}
		for _, activation := range page {
			report.Scanned++
			status, amount, err := s.processActivation(ctx, activation, cfg)
			switch {
			case errors.Is(err, errAlreadyTransitioned):
				continue
			case err != nil:
				report.Failed++
				observability.IncrementProfitRecord(domain.ProfitFailed)
				if !s.markFailed(ctx, activation, err) {
					stuck++
				}
				continue
			}
			observability.IncrementProfitRecord(status)
			switch status {
			case domain.ProfitProcessed:
				report.Processed++
				report.Credited += amount
				if amount > 0 {
					observability.AddIncomeCredited(domain.IncomeDailyProfit, amount)
					s.events.Publish(ctx, events.New(events.IncomeCredited, repository.FromPgUUID(activation.UserID), map[string]any{
						"type":          domain.IncomeDailyProfit,
						"amount":        amount,
						"activation_id": repository.FromPgUUID(activation.ID),
					}))
				}
			case domain.ProfitSkipped:
				report.Skipped++
			}
		}
		if len(page) < int(s.pageSize) {
			break
		}
	}

	zap.L().Info("daily profit batch finished",
		zap.String("date", report.Date),
		zap.Int("scanned", report.Scanned),
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int64("credited", report.Credited),
	)
	s.events.Publish(ctx, events.New(events.ProfitBatchFinished, uuid.Nil, report))
	return report, nil
}

func (s *ProfitService) processActivation(ctx context.Context, activation repository.TradeActivation, cfg settings.Settings) (string, int64, error) {
	var (
		status string
		profit int64
	)
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		account, err := qtx.GetAccountForUpdate(ctx, activation.UserID)
		if err != nil {
			return fmt.Errorf("lock owner: %w", err)
		}

		reason := ""
		tier, ok := cfg.TierFor(account.TotalInvestment)
		switch {
		case account.Blocked:
			reason = domain.ErrAccountBlocked.Error()
		case account.TotalInvestment <= 0:
			reason = domain.ErrNoActiveStake.Error()
		case !ok:
			reason = "no roi tier covers the stake"
		}
		if reason != "" {
			status = domain.ProfitSkipped
			return s.transition(ctx, qtx, activation, domain.ProfitSkipped, 0, reason)
		}

		status = domain.ProfitProcessed
		profit = domain.NewMoney(account.TotalInvestment).Percent(tier.DailyROIPercent).Amount
		if err := s.transition(ctx, qtx, activation, domain.ProfitProcessed, profit, ""); err != nil {
			return err
		}
		ownerID := repository.FromPgUUID(account.ID)
		if profit > 0 {
			if err := credit(ctx, qtx, ownerID, domain.WalletMain, profit); err != nil {
				return fmt.Errorf("credit profit: %w", err)
			}
		}
		if _, err := qtx.CreateIncomeEntry(ctx, repository.CreateIncomeEntryParams{
			ID:     repository.ToPgUUID(uuid.New()),
			UserID: account.ID,
			Type:   domain.IncomeDailyProfit,
			Amount: profit,
			Metadata: mustJSON(map[string]any{
				"activation_id": repository.FromPgUUID(activation.ID),
				"tier":          tier.Name,
				"roi_percent":   tier.DailyROIPercent.String(),
				"stake":         account.TotalInvestment,
			}),
		}); err != nil {
			return fmt.Errorf("record profit income: %w", err)
		}
		if err := qtx.TouchInvestmentsProfitDate(ctx, repository.TouchInvestmentsProfitDateParams{
			UserID:         account.ID,
			LastProfitDate: activation.ActivationDate,
		}); err != nil {
			return fmt.Errorf("stamp investments: %w", err)
		}
		return nil
	})
	return status, profit, err
}

func (s *ProfitService) transition(ctx context.Context, qtx repository.Querier, activation repository.TradeActivation, status string, amount int64, reason string) error {
	rows, err := qtx.TransitionProfitStatus(ctx, repository.TransitionProfitStatusParams{
		ID:           activation.ID,
		ProfitStatus: status,
		ProfitAmount: amount,
		ProfitError:  textParam(reason),
		ProcessedAt:  repository.ToPgTimestamptz(s.clock.now()),
	})
	if err != nil {
		return fmt.Errorf("transition profit status: %w", err)
	}
	if rows == 0 {
		return errAlreadyTransitioned
	}
	return nil
}

// markFailed records cause on the activation after its transaction rolled
// back. It reports whether the record left pending.
func (s *ProfitService) markFailed(ctx context.Context, activation repository.TradeActivation, cause error) bool {
	activationID := repository.FromPgUUID(activation.ID).String()
	zap.L().Error("profit distribution failed",
		zap.String("activation_id", activationID),
		zap.String("user_id", repository.FromPgUUID(activation.UserID).String()),
		zap.Error(cause),
	)
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		return s.transition(ctx, qtx, activation, domain.ProfitFailed, 0, cause.Error())
	})
	if errors.Is(err, errAlreadyTransitioned) {
		return true
	}
	if err != nil {
		zap.L().Error("mark activation failed", zap.String("activation_id", activationID), zap.Error(err))
		return false
	}
	return true
}

// OverrideProfitStatus moves matching pending activations to req.Status.
// Records that already left pending are never touched.
func (s *ProfitService) OverrideProfitStatus(ctx context.Context, req OverrideRequest) (int64, error) {
	switch req.Status {
	case domain.ProfitProcessed, domain.ProfitFailed, domain.ProfitSkipped:
	default:
		return 0, domain.Invalid("status", "must be one of processed, failed, skipped")
	}
	if req.UserID == nil && req.DateFrom.IsZero() {
		return 0, domain.Invalid("filter", "a user or a date range is required")
	}
	if !req.DateFrom.IsZero() && req.DateTo.IsZero() {
		req.DateTo = req.DateFrom
	}
	if !req.DateTo.IsZero() && req.DateTo.Before(req.DateFrom) {
		return 0, domain.Invalid("date_to", "must not be before date_from")
	}

	filter := repository.ActivationFilter{}
	entityID := uuid.Nil
	if req.UserID != nil {
		filter = filter.ForUser(*req.UserID)
		entityID = *req.UserID
	}
	if !req.DateFrom.IsZero() {
		filter = filter.Between(req.DateFrom, req.DateTo)
	}

	var rows int64
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		var err error
		rows, err = qtx.OverrideProfitStatus(ctx, repository.OverrideProfitStatusParams{
			Filter:       filter,
			ProfitStatus: req.Status,
			ProfitError:  textParam(req.Reason),
			ProcessedAt:  repository.ToPgTimestamptz(s.clock.now()),
		})
		if err != nil {
			return fmt.Errorf("override profit status: %w", err)
		}
		return s.audit.Write(ctx, qtx, "trade_activation", entityID, req.ActorID, "profit_override",
			domain.ProfitPending, req.Status, mustJSON(map[string]any{
				"date_from": formatDate(req.DateFrom),
				"date_to":   formatDate(req.DateTo),
				"rows":      rows,
				"reason":    req.Reason,
			}))
	})
	if err != nil {
		return 0, domain.Upstream("override profit status", err)
	}
	zap.L().Info("profit status overridden",
		zap.String("status", req.Status),
		zap.Int64("rows", rows),
	)
	return rows, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
