package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Job holds the metrics of backup job runs.
type Job struct {
	outcomes      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	artifactBytes prometheus.Histogram
}

// NewJob registers the job metrics on reg.
func NewJob(reg prometheus.Registerer) *Job {
	m := &Job{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backup_jobs_total",
			Help: "Backup jobs by terminal outcome",
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backup_job_stage_duration_seconds",
			Help:    "Duration of each backup pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		}, []string{"stage"}),
		artifactBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "backup_artifact_size_bytes",
			Help:    "Size of uploaded backup archives",
			Buckets: prometheus.ExponentialBuckets(1<<10, 4, 12),
		}),
	}
	reg.MustRegister(m.outcomes, m.stageDuration, m.artifactBytes)
	return m
}

// ObserveStage records how long a pipeline stage ran.
func (m *Job) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordOutcome counts a finished job. outcome is "success" or "fail".
func (m *Job) RecordOutcome(outcome string) {
	m.outcomes.WithLabelValues(outcome).Inc()
}

// ObserveArtifact records the size of an uploaded archive.
func (m *Job) ObserveArtifact(sizeBytes int64) {
	m.artifactBytes.Observe(float64(sizeBytes))
}

// Push replaces the metrics of one job instance on a Pushgateway. Short-lived
// job processes exit before any scrape could reach them.
func Push(ctx context.Context, gatewayURL, jobName string, gatherer prometheus.Gatherer, grouping map[string]string) error {
	p := push.New(gatewayURL, jobName).Gatherer(gatherer)
	for k, v := range grouping {
		p = p.Grouping(k, v)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
