package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/fleetbill/internal/clock"
	invoicedomain "github.com/smallbiznis/fleetbill/internal/invoice/domain"
	snapshotdomain "github.com/smallbiznis/fleetbill/internal/snapshot/domain"
	subscriptiondomain "github.com/smallbiznis/fleetbill/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type collectorStub struct {
	mu      sync.Mutex
	calls   int
	block   chan struct{}
	err     error
	lastDay time.Time
	during  func()
}

func (s *collectorStub) CollectDailySnapshots(ctx context.Context, asOfDay time.Time) (snapshotdomain.CollectResult, error) {
	s.mu.Lock()
	s.calls++
	s.lastDay = asOfDay
	block := s.block
	during := s.during
	s.mu.Unlock()
	if during != nil {
		during()
	}
	if block != nil {
		<-block
	}
	return snapshotdomain.CollectResult{}, s.err
}

func (s *collectorStub) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type invoiceSvcStub struct {
	calls     int
	lastMonth time.Time
	batch     invoicedomain.BatchResult
	err       error
}

func (s *invoiceSvcStub) Generate(ctx context.Context, companyID snowflake.ID, month time.Time, initiatedBy string) (*invoicedomain.GenerateOutcome, error) {
	return nil, nil
}

func (s *invoiceSvcStub) GenerateMonthlyInvoices(ctx context.Context, month time.Time) (invoicedomain.BatchResult, error) {
	s.calls++
	s.lastMonth = month
	return s.batch, s.err
}

func (s *invoiceSvcStub) GetByID(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, []invoicedomain.InvoiceLineItem, error) {
	return nil, nil, invoicedomain.ErrInvoiceNotFound
}

func (s *invoiceSvcStub) ListByCompany(ctx context.Context, companyID snowflake.ID, limit int) ([]invoicedomain.Invoice, error) {
	return nil, nil
}

func (s *invoiceSvcStub) MarkIssued(ctx context.Context, id snowflake.ID) error { return nil }
func (s *invoiceSvcStub) MarkSent(ctx context.Context, id snowflake.ID) error   { return nil }
func (s *invoiceSvcStub) MarkPaid(ctx context.Context, id snowflake.ID) error   { return nil }
func (s *invoiceSvcStub) Void(ctx context.Context, id snowflake.ID) error       { return nil }

type subscriptionSvcStub struct {
	chargeCalls int
	checkCalls  int
	cancelCalls int
	chargeErr   error
}

func (s *subscriptionSvcStub) Start(ctx context.Context, req subscriptiondomain.StartSubscriptionRequest) (*subscriptiondomain.CompanySubscription, error) {
	return nil, nil
}

func (s *subscriptionSvcStub) GetByCompany(ctx context.Context, companyID snowflake.ID) (*subscriptiondomain.CompanySubscription, error) {
	return nil, subscriptiondomain.ErrSubscriptionNotFound
}

func (s *subscriptionSvcStub) ProcessCharges(ctx context.Context) (subscriptiondomain.ChargeResult, error) {
	s.chargeCalls++
	return subscriptiondomain.ChargeResult{}, s.chargeErr
}

func (s *subscriptionSvcStub) CheckPastDue(ctx context.Context) (subscriptiondomain.ReconcileResult, error) {
	s.checkCalls++
	return subscriptiondomain.ReconcileResult{}, nil
}

func (s *subscriptionSvcStub) CancelPastDue(ctx context.Context) (subscriptiondomain.CancelResult, error) {
	s.cancelCalls++
	return subscriptiondomain.CancelResult{}, nil
}

func newScheduler(t *testing.T, cfg Config, collector *collectorStub, invoices *invoiceSvcStub, subs *subscriptionSvcStub) *Scheduler {
	t.Helper()
	sched, err := New(Params{
		Log:             zap.NewNop(),
		Clock:           clock.NewFakeClock(time.Date(2026, 4, 1, 0, 30, 0, 0, time.UTC)),
		Collector:       collector,
		InvoiceSvc:      invoices,
		SubscriptionSvc: subs,
		Config:          cfg,
	})
	require.NoError(t, err)
	return sched
}

func TestRunOnce_RunsAllJobs(t *testing.T) {
	collector := &collectorStub{}
	invoices := &invoiceSvcStub{}
	subs := &subscriptionSvcStub{}
	sched := newScheduler(t, Config{}, collector, invoices, subs)

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1, collector.callCount())
	assert.Equal(t, 1, invoices.calls)
	assert.Equal(t, 1, subs.chargeCalls)
	assert.Equal(t, 1, subs.checkCalls)
	assert.Equal(t, 1, subs.cancelCalls)
}

func TestRunOnce_EnabledJobsFilter(t *testing.T) {
	collector := &collectorStub{}
	invoices := &invoiceSvcStub{}
	subs := &subscriptionSvcStub{}
	sched := newScheduler(t, Config{EnabledJobs: []string{JobDailySnapshots}}, collector, invoices, subs)

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1, collector.callCount())
	assert.Equal(t, 0, invoices.calls)
	assert.Equal(t, 0, subs.chargeCalls)
}

func TestRunOnce_JobErrorsAreJoinedNotShortCircuited(t *testing.T) {
	collector := &collectorStub{err: errors.New("inventory down")}
	invoices := &invoiceSvcStub{}
	subs := &subscriptionSvcStub{chargeErr: subscriptiondomain.ErrGatewayNotConfigured}
	sched := newScheduler(t, Config{}, collector, invoices, subs)

	err := sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, subscriptiondomain.ErrGatewayNotConfigured)
	// Later jobs still ran despite the first failure.
	assert.Equal(t, 1, invoices.calls)
	assert.Equal(t, 1, subs.checkCalls)
}

func TestRunJob_OverlapSkipped(t *testing.T) {
	collector := &collectorStub{block: make(chan struct{})}
	sched := newScheduler(t, Config{}, collector, &invoiceSvcStub{}, &subscriptionSvcStub{})

	done := make(chan error, 1)
	go func() { done <- sched.RunDailySnapshots(context.Background()) }()

	// Wait for the first run to be inside the collector.
	require.Eventually(t, func() bool { return collector.callCount() == 1 },
		time.Second, 5*time.Millisecond)

	// Second trigger while the first is running: skipped, no error, no
	// second collector call.
	require.NoError(t, sched.RunDailySnapshots(context.Background()))
	assert.Equal(t, 1, collector.callCount())

	close(collector.block)
	require.NoError(t, <-done)

	require.NoError(t, sched.RunDailySnapshots(context.Background()))
	assert.Equal(t, 2, collector.callCount(), "job reruns once the flag clears")
}

func TestRunJob_SoftTimeoutIsNotAFailure(t *testing.T) {
	collector := &collectorStub{err: context.DeadlineExceeded}
	sched := newScheduler(t, Config{}, collector, &invoiceSvcStub{}, &subscriptionSvcStub{})

	assert.NoError(t, sched.RunDailySnapshots(context.Background()))
}

// jobDurationSum reads the duration histogram's sample sum for one job
// label from the process-wide registry.
func jobDurationSum(t *testing.T, job string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "fleetbill_scheduler_job_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "job" && label.GetValue() == job {
					return m.GetHistogram().GetSampleSum()
				}
			}
		}
	}
	return 0
}

func TestRunJob_DurationObservedOnInjectedClock(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 4, 1, 0, 30, 0, 0, time.UTC))
	collector := &collectorStub{during: func() { fake.Advance(3 * time.Second) }}
	sched, err := New(Params{
		Log:             zap.NewNop(),
		Clock:           fake,
		Collector:       collector,
		InvoiceSvc:      &invoiceSvcStub{},
		SubscriptionSvc: &subscriptionSvcStub{},
	})
	require.NoError(t, err)

	before := jobDurationSum(t, JobDailySnapshots)
	require.NoError(t, sched.RunDailySnapshots(context.Background()))
	after := jobDurationSum(t, JobDailySnapshots)

	// Both readings come from the fake clock, so the observed duration
	// is exactly the advance, with no wall time mixed in.
	assert.InDelta(t, 3.0, after-before, 0.001)
}

func TestRunMonthlyInvoices_BillsPreviousMonth(t *testing.T) {
	invoices := &invoiceSvcStub{}
	sched := newScheduler(t, Config{}, &collectorStub{}, invoices, &subscriptionSvcStub{})

	require.NoError(t, sched.RunMonthlyInvoices(context.Background()))
	assert.Equal(t, 1, invoices.calls)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), invoices.lastMonth)
}
