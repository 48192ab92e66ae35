package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/invest-ledger/internal/observability"
	"github.com/ayo6706/invest-ledger/internal/service"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrBatchRunning is returned by manual runs when another run holds the lock.
var ErrBatchRunning = errors.New("batch already running")

// ScheduleConfig holds the cron expressions of the daily batches, evaluated
// in Location. An empty expression disables the job.
type ScheduleConfig struct {
	Location     *time.Location
	Profit       string
	ProfitBackup string
	Commission   string
	LockTTL      time.Duration
}

type job struct {
	name string
	spec string
	run  func()
}

// Scheduler runs the profit and commission batches on cron schedules. Every
// run, scheduled or manual, goes through the same named lock.
type Scheduler struct {
	cron       *cron.Cron
	clock      service.Clock
	profit     *service.ProfitService
	commission *service.CommissionService
	locker     Locker
	lockTTL    time.Duration
}

func NewScheduler(cfg ScheduleConfig, clock service.Clock, profit *service.ProfitService, commission *service.CommissionService, locker Locker) (*Scheduler, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Minute
	}
	logger := cronLogger{zap.L().Named("cron").Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		clock:      clock,
		profit:     profit,
		commission: commission,
		locker:     locker,
		lockTTL:    cfg.LockTTL,
	}

	jobs := []job{
		{"profit", cfg.Profit, s.scheduledProfit("primary")},
		{"profit backup", cfg.ProfitBackup, s.scheduledProfit("backup")},
		{"commission", cfg.Commission, s.scheduledCommission},
	}
	for _, j := range jobs {
		if j.spec == "" {
			continue
		}
		if _, err := s.cron.AddFunc(j.spec, j.run); err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", j.name, j.spec, err)
		}
		zap.L().Info("batch scheduled", zap.String("job", j.name), zap.String("spec", j.spec))
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running ones until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		zap.L().Warn("scheduler stop timed out with batches still running")
	}
}

// RunProfit distributes profit for today's activations. Records the previous
// day left pending, such as opt-ins after its backup run, are swept first.
func (s *Scheduler) RunProfit(ctx context.Context) (service.ProfitReport, error) {
	day := s.clock.Today()
	var report service.ProfitReport
	err := s.locked(ctx, "batch:profit:"+day.Format("2006-01-02"), func(ctx context.Context) error {
		previous, err := s.profit.RunDailyProfit(ctx, day.AddDate(0, 0, -1))
		if err != nil {
			return err
		}
		report, err = s.profit.RunDailyProfit(ctx, day)
		if previous.Scanned > 0 {
			zap.L().Warn("profit batch carried over previous day",
				zap.String("date", previous.Date),
				zap.Int("scanned", previous.Scanned),
				zap.Int("processed", previous.Processed),
			)
			report.CarriedOver = &previous
		}
		return err
	})
	return report, err
}

// CommissionRun summarizes one commission batch.
type CommissionRun struct {
	Levels           service.CommissionReport `json:"levels"`
	RewardsQualified int                      `json:"rewards_qualified"`
	RewardsCompleted int                      `json:"rewards_completed"`
}

// RunCommission pays level commission on today's processed profit and
// advances team rewards.
func (s *Scheduler) RunCommission(ctx context.Context) (CommissionRun, error) {
	day := s.clock.Today()
	var run CommissionRun
	err := s.locked(ctx, "batch:commission:"+day.Format("2006-01-02"), func(ctx context.Context) error {
		var err error
		if run.Levels, err = s.commission.RunLevelCommission(ctx, day); err != nil {
			return err
		}
		if run.RewardsQualified, err = s.commission.QualifyTeamRewards(ctx); err != nil {
			return err
		}
		run.RewardsCompleted, err = s.commission.PromoteDueTeamRewards(ctx)
		return err
	})
	return run, err
}

func (s *Scheduler) locked(ctx context.Context, name string, fn func(context.Context) error) error {
	release, ok, err := s.locker.Acquire(ctx, name, s.lockTTL)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBatchRunning
	}
	defer release()
	return fn(ctx)
}

func (s *Scheduler) scheduledProfit(run string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.lockTTL)
		defer cancel()
		report, err := s.RunProfit(ctx)
		if errors.Is(err, ErrBatchRunning) {
			observability.IncrementWorkerRun("profit", "skipped")
			zap.L().Info("profit batch already running", zap.String("run", run))
			return
		}
		if err != nil {
			observability.IncrementWorkerRun("profit", "failed")
			zap.L().Error("profit batch failed", zap.String("run", run), zap.Error(err))
			return
		}
		observability.IncrementWorkerRun("profit", "success")
		zap.L().Info("profit batch finished",
			zap.String("run", run),
			zap.Int("scanned", report.Scanned),
			zap.Int("processed", report.Processed),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed),
		)
	}
}

func (s *Scheduler) scheduledCommission() {
	ctx, cancel := context.WithTimeout(context.Background(), s.lockTTL)
	defer cancel()
	run, err := s.RunCommission(ctx)
	if errors.Is(err, ErrBatchRunning) {
		observability.IncrementWorkerRun("commission", "skipped")
		return
	}
	if err != nil {
		observability.IncrementWorkerRun("commission", "failed")
		zap.L().Error("commission batch failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("commission", "success")
	zap.L().Info("commission batch finished",
		zap.Int("claimed", run.Levels.Claimed),
		zap.Int("payouts", run.Levels.Payouts),
		zap.Int("rewards_qualified", run.RewardsQualified),
		zap.Int("rewards_completed", run.RewardsCompleted),
	)
}

// cronLogger routes cron's own messages to zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
