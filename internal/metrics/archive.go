package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ds-job-scraper/internal/models"
)

// ArchiveMetrics exposes the dashboard's view of the archive
type ArchiveMetrics struct {
	Registry *prometheus.Registry

	records       *prometheus.GaugeVec
	companies     prometheus.Gauge
	snapshots     prometheus.Gauge
	lastCollected prometheus.Gauge
	loads         *prometheus.CounterVec
}

func NewArchiveMetrics() *ArchiveMetrics {
	m := &ArchiveMetrics{Registry: prometheus.NewRegistry()}
	m.records = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "dashboard",
		Name:      "records",
		Help:      "Archive rows by source kind",
	}, []string{"source"})
	m.companies = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "dashboard",
		Name:      "companies",
		Help:      "Distinct companies in the archive",
	})
	m.snapshots = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "dashboard",
		Name:      "snapshots",
		Help:      "Distinct collection days in the archive",
	})
	m.lastCollected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "dashboard",
		Name:      "last_collected_timestamp_seconds",
		Help:      "Newest collected_at in the archive",
	})
	m.loads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dashboard",
		Name:      "archive_loads_total",
		Help:      "Archive loads by origin and status",
	}, []string{"origin", "status"})

	m.Registry.MustRegister(m.records, m.companies, m.snapshots, m.lastCollected, m.loads)
	return m
}

// SetArchive refreshes the gauges from a freshly loaded archive
func (m *ArchiveMetrics) SetArchive(records []models.JobRecord, companies, snapshots int) {
	m.records.Reset()
	var newest int64
	for _, r := range records {
		m.records.WithLabelValues(string(r.Source)).Inc()
		if ts := r.CollectedAt.Unix(); !r.CollectedAt.IsZero() && ts > newest {
			newest = ts
		}
	}
	m.companies.Set(float64(companies))
	m.snapshots.Set(float64(snapshots))
	m.lastCollected.Set(float64(newest))
}

func (m *ArchiveMetrics) ObserveLoad(origin string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.loads.WithLabelValues(origin, status).Inc()
}

func (m *ArchiveMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
