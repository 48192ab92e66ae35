package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/ayo6706/invest-ledger/internal/observability"
	"github.com/ayo6706/invest-ledger/internal/repository"
	"go.uber.org/zap"
)

const driftScanLimit = 500

// ReconciliationService repairs and reports state that is derived from the
// ledger rather than owned by it.
type ReconciliationService struct {
	store       QueryStore
	ledger      *LedgerService
	activations *ActivationService
	clock       Clock
	replayGrace time.Duration
	pageSize    int32
}

// NewReconciliationService creates a reconciliation service.
func NewReconciliationService(store QueryStore, ledger *LedgerService, activations *ActivationService, clock Clock, replayGrace time.Duration, pageSize int32) *ReconciliationService {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &ReconciliationService{
		store:       store,
		ledger:      ledger,
		activations: activations,
		clock:       clock,
		replayGrace: replayGrace,
		pageSize:    pageSize,
	}
}

// ReconciliationReport summarizes one pass.
type ReconciliationReport struct {
	Replayed           int        `json:"replayed"`
	ReplayFailed       int        `json:"replay_failed"`
	StakeDrift         int        `json:"stake_drift"`
	PendingWithdrawals int        `json:"pending_withdrawals"`
	Activations        SyncReport `json:"activations"`
}

// Run replays stale transfer intents, reports stake projection drift and
// resynchronizes activation flags.
func (s *ReconciliationService) Run(ctx context.Context) (ReconciliationReport, error) {
	var report ReconciliationReport

	replayed, failed, err := s.ReplayTransfers(ctx)
	report.Replayed, report.ReplayFailed = replayed, failed
	if err != nil {
		return report, err
	}

	drift, err := s.CheckStakeDrift(ctx)
	if err != nil {
		return report, err
	}
	report.StakeDrift = drift

	pending, err := s.store.Queries().ListWithdrawals(ctx, repository.WithdrawalFilter{}.WithStatus(domain.WithdrawalPending))
	if err != nil {
		return report, domain.Upstream("list pending withdrawals", err)
	}
	report.PendingWithdrawals = len(pending)
	observability.SetPendingWithdrawals(len(pending))

	if s.activations != nil {
		synced, err := s.activations.SyncActivations(ctx)
		if err != nil {
			return report, err
		}
		report.Activations = synced
	}
	return report, nil
}

// ReplayTransfers settles debited intents older than the grace window.
func (s *ReconciliationService) ReplayTransfers(ctx context.Context) (int, int, error) {
	cutoff := s.clock.now().Add(-s.replayGrace)
	intents, err := s.store.Queries().ListFundTransfersByStatus(ctx, repository.ListFundTransfersByStatusParams{
		Status:        domain.TransferStatusDebited,
		UpdatedBefore: repository.ToPgTimestamptz(cutoff),
		Limit:         s.pageSize,
	})
	if err != nil {
		return 0, 0, domain.Upstream("list debited transfers", err)
	}

	replayed, failed := 0, 0
	for _, intent := range intents {
		id := repository.FromPgUUID(intent.ID)
		if err := s.ledger.SettleTransfer(ctx, id); err != nil {
			failed++
			observability.IncrementTransferReplay("failed")
			zap.L().Error("transfer replay failed", zap.String("transfer_id", id.String()), zap.Error(err))
			continue
		}
		replayed++
		observability.IncrementTransferReplay("settled")
		zap.L().Info("transfer replayed", zap.String("transfer_id", id.String()))
	}
	return replayed, failed, nil
}

// CheckStakeDrift reports accounts whose stake column differs from the sum
// of their active investments.
func (s *ReconciliationService) CheckStakeDrift(ctx context.Context) (int, error) {
	rows, err := s.store.Queries().ListStakeDrift(ctx, driftScanLimit)
	if err != nil {
		return 0, domain.Upstream(fmt.Sprintf("scan stake drift (limit %d)", driftScanLimit), err)
	}
	for _, row := range rows {
		zap.L().Error("stake projection drift detected",
			zap.String("user_id", repository.FromPgUUID(row.UserID).String()),
			zap.Int64("total_investment", row.TotalInvestment),
			zap.Int64("active_investments", row.ActiveSum),
		)
	}
	if len(rows) > 0 {
		observability.AddStakeDrift(len(rows))
	}
	return len(rows), nil
}
