package jobs

import (
	"context"
	"time"

	"github.com/IanTiba/unbox-surprise-gifts/internal/settings"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	specSettingsRefresh = "0 * * * * *"
	specReconcile       = "30 */5 * * * *"
	specAbandon         = "0 15 * * * *"

	jobTimeout = 2 * time.Minute
	// reconcileGrace leaves fresh orders to the client that is still completing them.
	reconcileGrace = 5 * time.Minute
)

// OrderTask is the checkout work run in the background.
type OrderTask interface {
	ReconcilePending(ctx context.Context, olderThan time.Duration) (int, error)
	AbandonStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Deps are the scheduler's collaborators. Nil members skip their jobs.
type Deps struct {
	DB     *gorm.DB
	Orders OrderTask
	// AbandonAfter returns the pending window; settings.OrderAbandonAfter when nil.
	AbandonAfter func() time.Duration
}

// Scheduler runs periodic maintenance.
type Scheduler struct {
	cron *cron.Cron
	deps Deps
}

// NewScheduler registers every job. Call Start to run them.
func NewScheduler(deps Deps) *Scheduler {
	if deps.AbandonAfter == nil {
		deps.AbandonAfter = settings.OrderAbandonAfter
	}
	s := &Scheduler{
		cron: cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
		deps: deps,
	}
	if deps.DB != nil {
		s.addFunc(specSettingsRefresh, "settings.refresh", s.refreshSettings)
	}
	if deps.Orders != nil {
		s.addFunc(specReconcile, "orders.reconcile", s.reconcileOrders)
		s.addFunc(specAbandon, "orders.abandon", s.abandonOrders)
	}
	return s
}

// Start runs the scheduler until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil {
		return
	}
	s.cron.Start()
	log.Infof("jobs: scheduler started (%d jobs)", len(s.cron.Entries()))
	go func() {
		<-ctx.Done()
		stopCtx := s.cron.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(10 * time.Second):
			log.Warn("jobs: scheduler stop timed out")
		}
	}()
}

func (s *Scheduler) refreshSettings(ctx context.Context) error {
	return settings.RefreshSnapshot(ctx, s.deps.DB)
}

func (s *Scheduler) reconcileOrders(ctx context.Context) error {
	n, err := s.deps.Orders.ReconcilePending(ctx, reconcileGrace)
	if n > 0 {
		log.Infof("jobs: reconciled %d paid orders", n)
	}
	return err
}

func (s *Scheduler) abandonOrders(ctx context.Context) error {
	window := s.deps.AbandonAfter()
	n, err := s.deps.Orders.AbandonStale(ctx, window)
	if n > 0 {
		log.Infof("jobs: abandoned %d orders pending longer than %s", n, window)
	}
	return err
}

func (s *Scheduler) addFunc(spec, name string, fn func(ctx context.Context) error) {
	if _, err := s.cron.AddFunc(spec, func() { runJob(name, fn) }); err != nil {
		log.WithError(err).Errorf("jobs: register %s (spec=%s) failed", name, spec)
	}
}

func runJob(name string, fn func(ctx context.Context) error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			log.Errorf("jobs: %s panic recovered: %v", name, recovered)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	if err := fn(ctx); err != nil {
		log.WithError(err).Warnf("jobs: %s failed", name)
		return
	}
	log.Debugf("jobs: %s finished in %s", name, time.Since(start))
}
