// Package metrics exposes prometheus instruments for the batch
// scheduler. Instruments register once against the default registerer;
// Scheduler() is safe from any goroutine.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulerMetrics captures batch job health signals.
type SchedulerMetrics struct {
	jobRuns      *prometheus.CounterVec
	jobErrors    *prometheus.CounterVec
	jobTimeouts  *prometheus.CounterVec
	overlapSkips *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
}

var (
	schedulerOnce sync.Once
	scheduler     *SchedulerMetrics
)

// Scheduler returns the singleton scheduler metrics registry.
func Scheduler() *SchedulerMetrics {
	schedulerOnce.Do(func() {
		scheduler = newSchedulerMetrics(prometheus.DefaultRegisterer)
	})
	return scheduler
}

func newSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	m := &SchedulerMetrics{
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleetbill",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Number of batch job invocations.",
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleetbill",
			Subsystem: "scheduler",
			Name:      "job_errors_total",
			Help:      "Number of batch job invocations that returned an error.",
		}, []string{"job"}),
		jobTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleetbill",
			Subsystem: "scheduler",
			Name:      "job_timeouts_total",
			Help:      "Number of batch jobs cut off by their soft deadline.",
		}, []string{"job"}),
		overlapSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleetbill",
			Subsystem: "scheduler",
			Name:      "job_overlap_skips_total",
			Help:      "Invocations skipped because the previous run was still active.",
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fleetbill",
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Batch job wall time.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"job"}),
	}

	reg.MustRegister(m.jobRuns, m.jobErrors, m.jobTimeouts, m.overlapSkips, m.jobDuration)
	return m
}

func (m *SchedulerMetrics) IncJobRun(job string) { m.jobRuns.WithLabelValues(job).Inc() }

func (m *SchedulerMetrics) IncJobError(job string) { m.jobErrors.WithLabelValues(job).Inc() }

func (m *SchedulerMetrics) IncJobTimeout(job string) { m.jobTimeouts.WithLabelValues(job).Inc() }

func (m *SchedulerMetrics) IncOverlapSkip(job string) { m.overlapSkips.WithLabelValues(job).Inc() }

func (m *SchedulerMetrics) ObserveJobDuration(job string, d time.Duration) {
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}
