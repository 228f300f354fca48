// Package metrics holds the Prometheus collectors for scrape runs and the
// archive served by the dashboard.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"ds-job-scraper/internal/models"
)

const namespace = "jobscraper"

// RunMetrics describes one scrape run. It uses its own registry so a push
// only carries run metrics.
type RunMetrics struct {
	Registry *prometheus.Registry

	sourceRaw      *prometheus.GaugeVec
	sourceKept     *prometheus.GaugeVec
	sourceFailed   *prometheus.GaugeVec
	sourceDuration *prometheus.GaugeVec
	batchRecords   prometheus.Gauge
	archiveRecords prometheus.Gauge
	addedRecords   prometheus.Gauge
	lastSuccessTS  prometheus.Gauge
}

func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{Registry: prometheus.NewRegistry()}
	m.sourceRaw = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "source_postings",
		Help:      "Raw postings returned by a source in the last run",
	}, []string{"source", "kind"})
	m.sourceKept = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "source_records",
		Help:      "Records kept by the normalizer per source in the last run",
	}, []string{"source", "kind"})
	m.sourceFailed = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "source_failed",
		Help:      "1 when the source failed in the last run",
	}, []string{"source", "kind"})
	m.sourceDuration = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "source_duration_seconds",
		Help:      "Time spent in each source in the last run",
	}, []string{"source", "kind"})
	m.batchRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "batch_records",
		Help:      "Records collected in the last run",
	})
	m.archiveRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "archive_records",
		Help:      "Rows in the archive after the last run",
	})
	m.addedRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "added_records",
		Help:      "URLs new to the archive in the last run",
	})
	m.lastSuccessTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last run that persisted the archive",
	})

	m.Registry.MustRegister(
		m.sourceRaw, m.sourceKept, m.sourceFailed, m.sourceDuration,
		m.batchRecords, m.archiveRecords, m.addedRecords, m.lastSuccessTS,
	)
	return m
}

func (m *RunMetrics) ObserveSource(name string, kind models.Source, raw, kept int, failed bool, took time.Duration) {
	labels := []string{name, string(kind)}
	m.sourceRaw.WithLabelValues(labels...).Set(float64(raw))
	m.sourceKept.WithLabelValues(labels...).Set(float64(kept))
	m.sourceDuration.WithLabelValues(labels...).Set(took.Seconds())
	if failed {
		m.sourceFailed.WithLabelValues(labels...).Set(1)
	} else {
		m.sourceFailed.WithLabelValues(labels...).Set(0)
	}
}

func (m *RunMetrics) ObserveRun(batch, archive, added int, at time.Time) {
	m.batchRecords.Set(float64(batch))
	m.archiveRecords.Set(float64(archive))
	m.addedRecords.Set(float64(added))
	m.lastSuccessTS.Set(float64(at.Unix()))
}

// Push sends the run metrics to a Pushgateway under job
func (m *RunMetrics) Push(ctx context.Context, gatewayURL, job string) error {
	if err := push.New(gatewayURL, job).Gatherer(m.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
