package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ayo6706/invest-ledger/internal/observability"
	"github.com/ayo6706/invest-ledger/internal/service"
	"go.uber.org/zap"
)

// Reconciler is one reconciliation pass.
type Reconciler interface {
	Run(ctx context.Context) (service.ReconciliationReport, error)
}

// ReconciliationWorker replays stale transfer intents and checks derived
// projections on a fixed interval.
type ReconciliationWorker struct {
	svc      Reconciler
	interval time.Duration
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewReconciliationWorker constructs a worker with a default interval of five minutes.
func NewReconciliationWorker(svc Reconciler) *ReconciliationWorker {
	return &ReconciliationWorker{
		svc:      svc,
		interval: 5 * time.Minute,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (w *ReconciliationWorker) WithInterval(interval time.Duration) *ReconciliationWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start runs one pass immediately, then one per interval, until ctx ends or
// Stop is called.
func (w *ReconciliationWorker) Start(ctx context.Context) {
	defer close(w.done)
	zap.L().Info("reconciliation worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.runOnce(ctx)
		select {
		case <-ctx.Done():
			zap.L().Info("reconciliation worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("reconciliation worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// Stop signals the loop and waits for an in-flight pass to finish. It must
// only be called after Start.
func (w *ReconciliationWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
	<-w.done
}

// Run starts the worker in a goroutine and returns its Stop.
func (w *ReconciliationWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *ReconciliationWorker) runOnce(ctx context.Context) {
	report, err := w.svc.Run(ctx)
	if err != nil {
		observability.IncrementWorkerRun("reconciliation", "failed")
		zap.L().Error("reconciliation run failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("reconciliation", "success")
	if report.Replayed+report.ReplayFailed+report.StakeDrift+report.Activations.Cleared+report.Activations.Created == 0 {
		return
	}
	zap.L().Info("reconciliation run finished",
		zap.Int("replayed", report.Replayed),
		zap.Int("replay_failed", report.ReplayFailed),
		zap.Int("stake_drift", report.StakeDrift),
		zap.Int("pending_withdrawals", report.PendingWithdrawals),
		zap.Int("activations_created", report.Activations.Created),
		zap.Int("activations_cleared", report.Activations.Cleared),
	)
}
