package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeOrders struct {
	reconcileGrace time.Duration
	abandonWindow  time.Duration
	err            error
}

func (f *fakeOrders) ReconcilePending(_ context.Context, olderThan time.Duration) (int, error) {
	f.reconcileGrace = olderThan
	return 2, f.err
}

func (f *fakeOrders) AbandonStale(_ context.Context, olderThan time.Duration) (int64, error) {
	f.abandonWindow = olderThan
	return 1, f.err
}

func TestNewSchedulerRegistersOnlyAvailableJobs(t *testing.T) {
	if got := len(NewScheduler(Deps{}).cron.Entries()); got != 0 {
		t.Fatalf("expected no jobs without deps, got %d", got)
	}
	if got := len(NewScheduler(Deps{Orders: &fakeOrders{}}).cron.Entries()); got != 2 {
		t.Fatalf("expected 2 order jobs, got %d", got)
	}
}

func TestOrderJobsUseWindows(t *testing.T) {
	orders := &fakeOrders{}
	s := NewScheduler(Deps{Orders: orders, AbandonAfter: func() time.Duration { return 6 * time.Hour }})

	if errReconcile := s.reconcileOrders(context.Background()); errReconcile != nil {
		t.Fatalf("reconcile: %v", errReconcile)
	}
	if errAbandon := s.abandonOrders(context.Background()); errAbandon != nil {
		t.Fatalf("abandon: %v", errAbandon)
	}
	if orders.reconcileGrace != reconcileGrace {
		t.Fatalf("expected grace %s, got %s", reconcileGrace, orders.reconcileGrace)
	}
	if orders.abandonWindow != 6*time.Hour {
		t.Fatalf("expected 6h window, got %s", orders.abandonWindow)
	}
}

func TestRunJobRecoversPanicsAndErrors(t *testing.T) {
	runJob("panics", func(context.Context) error { panic("boom") })
	runJob("fails", func(context.Context) error { return errors.New("nope") })

	called := false
	runJob("ok", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Fatalf("expected job context deadline")
		}
		called = true
		return nil
	})
	if !called {
		t.Fatalf("expected job to run")
	}
}
