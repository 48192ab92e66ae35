package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	httpDurationHistogram   *prometheus.HistogramVec
	idempotencyCounter      *prometheus.CounterVec
	workerRunCounter        *prometheus.CounterVec
	profitRecordCounter     *prometheus.CounterVec
	incomeCreditedCounter   *prometheus.CounterVec
	withdrawalCounter       *prometheus.CounterVec
	partialLedgerCounter    prometheus.Counter
	stakeDriftCounter       prometheus.Counter
	pendingWithdrawalsGauge prometheus.Gauge
	transferReplayCounter   *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		profitRecordCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profit_records_total",
			Help: "Daily profit records by final status",
		}, []string{"status"})

		incomeCreditedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "income_credited_micros_total",
			Help: "Income credited to main wallets, in micros",
		}, []string{"type"})

		withdrawalCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "withdrawal_transitions_total",
			Help: "Withdrawal requests and resolutions",
		}, []string{"action"})

		partialLedgerCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_partial_failures_total",
			Help: "Transfers whose receiving leg failed after the sending leg applied",
		})

		stakeDriftCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stake_projection_drift_total",
			Help: "Accounts whose total_investment differs from their active investments",
		})

		pendingWithdrawalsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "withdrawals_pending",
			Help: "Current number of withdrawals awaiting resolution",
		})

		transferReplayCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transfer_replays_total",
			Help: "Debited transfer intents replayed by reconciliation",
		}, []string{"result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			idempotencyCounter,
			workerRunCounter,
			profitRecordCounter,
			incomeCreditedCounter,
			withdrawalCounter,
			partialLedgerCounter,
			stakeDriftCounter,
			pendingWithdrawalsGauge,
			transferReplayCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}

func IncrementProfitRecord(status string) {
	if profitRecordCounter == nil {
		return
	}
	profitRecordCounter.WithLabelValues(status).Inc()
}

func AddIncomeCredited(incomeType string, micros int64) {
	if incomeCreditedCounter == nil {
		return
	}
	incomeCreditedCounter.WithLabelValues(incomeType).Add(float64(micros))
}

func IncrementWithdrawalTransition(action string) {
	if withdrawalCounter == nil {
		return
	}
	withdrawalCounter.WithLabelValues(action).Inc()
}

func IncrementPartialLedgerFailure() {
	if partialLedgerCounter == nil {
		return
	}
	partialLedgerCounter.Inc()
}

func AddStakeDrift(accounts int) {
	if stakeDriftCounter == nil {
		return
	}
	stakeDriftCounter.Add(float64(accounts))
}

func SetPendingWithdrawals(size int) {
	if pendingWithdrawalsGauge == nil {
		return
	}
	pendingWithdrawalsGauge.Set(float64(size))
}

func IncrementTransferReplay(result string) {
	if transferReplayCounter == nil {
		return
	}
	transferReplayCounter.WithLabelValues(result).Inc()
}
