package delta

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the repository's Prometheus collectors.
type Metrics struct {
	openSources  prometheus.Gauge
	documents    prometheus.Gauge
	saves        *prometheus.CounterVec
	bytesWritten prometheus.Counter
	saveDuration *prometheus.HistogramVec
}

// NewMetrics registers the repository collectors on reg.
// A nil reg creates unregistered collectors, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		openSources: factory.NewGauge(prometheus.GaugeOpts{
			Name: "deltabin_file_sources_open",
			Help: "Number of open file sources",
		}),
		documents: factory.NewGauge(prometheus.GaugeOpts{
			Name: "deltabin_delta_documents",
			Help: "Number of live delta documents",
		}),
		saves: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deltabin_document_saves_total",
			Help: "Document saves by strategy and result",
		}, []string{"strategy", "result"}),
		bytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "deltabin_document_bytes_written_total",
			Help: "Bytes written while saving documents",
		}),
		saveDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "deltabin_document_save_duration_seconds",
			Help:    "Time spent saving a document",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"strategy"}),
	}
}
