package exchange

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts GEDCOM import and export activity. A nil *Metrics records
// nothing.
type Metrics struct {
	records  *prometheus.CounterVec
	rejected *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the exchange metrics on reg. A nil reg returns nil,
// which disables metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	factory := promauto.With(reg)

	return &Metrics{
		// Labels: operation (import, export), kind (individual, family, relationship)
		records: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lineage",
			Subsystem: "gedcom",
			Name:      "records_total",
			Help:      "GEDCOM records imported or exported",
		}, []string{"operation", "kind"}),

		// Labels: reason (cycle, duplicate, parent_limit, invalid, unresolved, empty_family)
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lineage",
			Subsystem: "gedcom",
			Name:      "rejected_total",
			Help:      "GEDCOM links skipped during import",
		}, []string{"reason"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lineage",
			Subsystem: "gedcom",
			Name:      "duration_seconds",
			Help:      "Time to import or export one GEDCOM document",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"operation"}),
	}
}

func (m *Metrics) addRecords(operation, kind string, n int) {
	if m == nil || n == 0 {
		return
	}

	m.records.WithLabelValues(operation, kind).Add(float64(n))
}

func (m *Metrics) reject(reason string) {
	if m == nil {
		return
	}

	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) observe(operation string, start time.Time) {
	if m == nil {
		return
	}

	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
