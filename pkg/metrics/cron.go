package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics tracks the scheduler. The last-success gauge is what payout
// alerting watches: a payment-release job that stops succeeding means
// suppliers stop being flagged for release.
type CronJobMetrics struct {
	duration    *prometheus.HistogramVec
	outcomes    *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
	skipped     prometheus.Counter
}

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeTimeout = "timeout"
	outcomePanic   = "panic"
)

// NewCronJobMetrics registers the cron job metrics on the provided registerer.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cron_job_duration_seconds",
			Help:    "Duration of cron jobs in seconds.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300, 600},
		}, []string{"job"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_runs_total",
			Help: "Cron job runs by outcome (success, failure, timeout, panic).",
		}, []string{"job", "outcome"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cron_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per job.",
		}, []string{"job"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cron_cycles_skipped_total",
			Help: "Cycles skipped because another worker held the lock.",
		}),
	}
	reg.MustRegister(m.duration, m.outcomes, m.lastSuccess, m.skipped)
	return m
}

// ObserveDuration records the duration for the named job.
func (c *CronJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess counts a successful run and stamps its completion time.
func (c *CronJobMetrics) IncSuccess(job string, at time.Time) {
	if c == nil || c.outcomes == nil {
		return
	}
	job = normalizeLabel(job)
	c.outcomes.WithLabelValues(job, outcomeSuccess).Inc()
	c.lastSuccess.WithLabelValues(job).Set(float64(at.Unix()))
}

func (c *CronJobMetrics) IncFailure(job string) { c.incOutcome(job, outcomeFailure) }

func (c *CronJobMetrics) IncTimeout(job string) { c.incOutcome(job, outcomeTimeout) }

func (c *CronJobMetrics) IncPanic(job string) { c.incOutcome(job, outcomePanic) }

// IncSkipped counts a cycle lost to lock contention.
func (c *CronJobMetrics) IncSkipped() {
	if c == nil || c.skipped == nil {
		return
	}
	c.skipped.Inc()
}

func (c *CronJobMetrics) incOutcome(job, outcome string) {
	if c == nil || c.outcomes == nil {
		return
	}
	c.outcomes.WithLabelValues(normalizeLabel(job), outcome).Inc()
}

func normalizeLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
