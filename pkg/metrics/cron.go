package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics records outcomes of scheduled maintenance jobs.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	purged   *prometheus.CounterVec
}

// NewCronJobMetrics registers the cron collectors on reg.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cron_job_duration_seconds",
		Help:    "Duration of cron jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_job_runs_total",
		Help: "Cron job executions by outcome.",
	}, []string{"job", "result"})
	purged := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_rows_purged_total",
		Help: "Rows removed by retention jobs.",
	}, []string{"job"})
	reg.MustRegister(duration, runs, purged)
	return &CronJobMetrics{duration: duration, runs: runs, purged: purged}
}

func (c *CronJobMetrics) ObserveDuration(job string, d time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(d.Seconds())
}

func (c *CronJobMetrics) IncSuccess(job string) {
	c.incRun(job, ResultSuccess)
}

func (c *CronJobMetrics) IncFailure(job string) {
	c.incRun(job, "failure")
}

// AddPurged counts rows a retention job removed.
func (c *CronJobMetrics) AddPurged(job string, rows int64) {
	if c == nil || c.purged == nil || rows <= 0 {
		return
	}
	c.purged.WithLabelValues(normalizeLabel(job)).Add(float64(rows))
}

func (c *CronJobMetrics) incRun(job, result string) {
	if c == nil || c.runs == nil {
		return
	}
	c.runs.WithLabelValues(normalizeLabel(job), result).Inc()
}
