package worker

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/deskforge/helpdesk/internal/observability"
)

// SubscriptionSweepJob is the name of the subscription expiry job.
const SubscriptionSweepJob = "subscription-expiry-sweep"

// SubscriptionExpirer downgrades organizations whose subscription ended.
type SubscriptionExpirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// Scheduler runs periodic maintenance jobs.
type Scheduler struct {
	scheduler gocron.Scheduler
	expirer   SubscriptionExpirer
	metrics   *observability.Metrics
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler registers the subscription sweep at the given interval. The
// first sweep runs as soon as the scheduler starts.
func NewScheduler(expirer SubscriptionExpirer, interval time.Duration, metrics *observability.Metrics, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		scheduler: scheduler,
		expirer:   expirer,
		metrics:   metrics,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.SweepSubscriptions, ctx),
		gocron.WithName(SubscriptionSweepJob),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cancel()
		_ = scheduler.Shutdown()
		return nil, err
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.logger.Info("starting job scheduler")
	s.scheduler.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() error {
	s.logger.Info("stopping job scheduler")
	s.cancel()
	return s.scheduler.Shutdown()
}

// SweepSubscriptions expires subscriptions whose end date has passed.
func (s *Scheduler) SweepSubscriptions(ctx context.Context) error {
	expired, err := s.expirer.ExpireDue(ctx)
	s.metrics.RecordJob(SubscriptionSweepJob, err)
	if err != nil {
		s.logger.Error("subscription sweep failed", zap.Int("expired", expired), zap.Error(err))
		return err
	}
	if expired > 0 {
		s.logger.Info("subscription sweep finished", zap.Int("expired", expired))
	}
	return nil
}
