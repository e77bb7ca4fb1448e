// Package scheduler drives the billing batch jobs. Each job runs under
// a soft deadline with an in-process overlap guard; a trigger that
// arrives while the previous run is still active is skipped, never
// queued against the same dataset.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/fleetbill/internal/clock"
	invoicedomain "github.com/smallbiznis/fleetbill/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/fleetbill/internal/observability/metrics"
	ratingdomain "github.com/smallbiznis/fleetbill/internal/rating/domain"
	snapshotdomain "github.com/smallbiznis/fleetbill/internal/snapshot/domain"
	subscriptiondomain "github.com/smallbiznis/fleetbill/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobDailySnapshots      = "daily_snapshots"
	JobMonthlyInvoices     = "monthly_invoices"
	JobSubscriptionCharges = "subscription_charges"
	JobCheckPastDue        = "check_past_due"
	JobCancelPastDue       = "cancel_past_due"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type Params struct {
	fx.In

	Log             *zap.Logger
	Clock           clock.Clock
	Collector       snapshotdomain.Collector
	InvoiceSvc      invoicedomain.Service
	SubscriptionSvc subscriptiondomain.Service
	Config          Config `optional:"true"`
}

type Scheduler struct {
	log             *zap.Logger
	cfg             Config
	clock           clock.Clock
	collector       snapshotdomain.Collector
	invoiceSvc      invoicedomain.Service
	subscriptionSvc subscriptiondomain.Service

	mu      sync.Mutex
	running map[string]bool
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.Collector == nil || p.InvoiceSvc == nil || p.SubscriptionSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:             p.Log.Named("scheduler"),
		cfg:             p.Config.withDefaults(),
		clock:           p.Clock,
		collector:       p.Collector,
		invoiceSvc:      p.InvoiceSvc,
		subscriptionSvc: p.SubscriptionSvc,
		running:         make(map[string]bool),
	}, nil
}

// tryAcquire flips the job's running flag. False means another
// invocation of the same job is still active.
func (s *Scheduler) tryAcquire(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[name] {
		return false
	}
	s.running[name] = true
	return true
}

func (s *Scheduler) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = false
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	schedMetrics := obsmetrics.Scheduler()
	if !s.tryAcquire(name) {
		schedMetrics.IncOverlapSkip(name)
		s.log.Warn("job still running, skipping trigger", zap.String("job", name))
		return nil
	}
	defer s.release(name)

	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	schedMetrics.IncJobRun(name)
	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		// Soft deadline: the next trigger resumes where this one
		// stopped, so a timeout is not a run failure.
		schedMetrics.IncJobTimeout(name)
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
		)
		return nil
	}

	schedMetrics.IncJobError(name)
	return fmt.Errorf("%s: %w", name, err)
}

// RunDailySnapshots collects today's resource readings.
func (s *Scheduler) RunDailySnapshots(ctx context.Context) error {
	return s.runJob(ctx, JobDailySnapshots, func(ctx context.Context) error {
		result, err := s.collector.CollectDailySnapshots(ctx, s.clock.Now())
		if err != nil {
			return err
		}
		s.log.Info("daily snapshot job finished",
			zap.Int("created", result.Created),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed()),
		)
		return nil
	})
}

// RunMonthlyInvoices bills the previous calendar month.
func (s *Scheduler) RunMonthlyInvoices(ctx context.Context) error {
	return s.runJob(ctx, JobMonthlyInvoices, func(ctx context.Context) error {
		month := ratingdomain.MonthStart(s.clock.Now()).AddDate(0, -1, 0)
		result, err := s.invoiceSvc.GenerateMonthlyInvoices(ctx, month)
		if err != nil {
			return err
		}
		if result.Failed > 0 {
			return fmt.Errorf("%d of %d companies failed", result.Failed, result.Companies)
		}
		return nil
	})
}

func (s *Scheduler) RunSubscriptionCharges(ctx context.Context) error {
	return s.runJob(ctx, JobSubscriptionCharges, func(ctx context.Context) error {
		_, err := s.subscriptionSvc.ProcessCharges(ctx)
		return err
	})
}

func (s *Scheduler) RunCheckPastDue(ctx context.Context) error {
	return s.runJob(ctx, JobCheckPastDue, func(ctx context.Context) error {
		_, err := s.subscriptionSvc.CheckPastDue(ctx)
		return err
	})
}

func (s *Scheduler) RunCancelPastDue(ctx context.Context) error {
	return s.runJob(ctx, JobCancelPastDue, func(ctx context.Context) error {
		_, err := s.subscriptionSvc.CancelPastDue(ctx)
		return err
	})
}

// RunOnce executes every enabled job in dependency order. Job errors
// are joined, not short-circuited; one broken job never starves the
// others.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobDailySnapshots, s.RunDailySnapshots},
		{JobMonthlyInvoices, s.RunMonthlyInvoices},
		{JobSubscriptionCharges, s.RunSubscriptionCharges},
		{JobCheckPastDue, s.RunCheckPastDue},
		{JobCancelPastDue, s.RunCancelPastDue},
	}

	var err error
	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, job.Run(ctx))
	}
	return err
}

// RunForever drives RunOnce on the configured interval until the
// context is cancelled.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}
