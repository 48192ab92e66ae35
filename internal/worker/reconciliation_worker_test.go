package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ayo6706/invest-ledger/internal/service"
	"github.com/stretchr/testify/assert"
)

type countingReconciler struct {
	runs atomic.Int32
	err  error
}

func (c *countingReconciler) Run(context.Context) (service.ReconciliationReport, error) {
	c.runs.Add(1)
	return service.ReconciliationReport{Replayed: 1}, c.err
}

func TestReconciliationWorkerRunsUntilStopped(t *testing.T) {
	rec := &countingReconciler{}
	stop := NewReconciliationWorker(rec).WithInterval(5 * time.Millisecond).Run(context.Background())

	assert.Eventually(t, func() bool { return rec.runs.Load() >= 3 }, time.Second, time.Millisecond)
	stop()
	after := rec.runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, rec.runs.Load())

	stop()
}

func TestReconciliationWorkerSurvivesFailedRuns(t *testing.T) {
	rec := &countingReconciler{err: errors.New("db down")}
	ctx, cancel := context.WithCancel(context.Background())
	w := NewReconciliationWorker(rec).WithInterval(5 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return rec.runs.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit on context cancel")
	}
}
