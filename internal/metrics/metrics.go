// Package metrics exposes Prometheus collectors for conversions.
package metrics

import (
	"net/http"
	"time"

	"github.com/woozymasta/gcjconv/internal/convert"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Document outcomes.
const (
	StatusOK          = "ok"
	StatusUnsupported = "unsupported"
	StatusError       = "error"
)

var (
	// DocumentsTotal counts documents by datum pair and outcome.
	DocumentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gcjconv_documents_total",
		Help: "Total converted documents by outcome",
	}, []string{"pair", "status"})
	// PairsTotal counts coordinate pairs passed through a transform.
	PairsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gcjconv_pairs_total",
		Help: "Total coordinate pairs passed through a transform",
	}, []string{"pair"})
	// SkippedTotal counts malformed geometry nodes left untouched.
	SkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gcjconv_skipped_nodes_total",
		Help: "Total malformed geometry nodes left untouched",
	})
	// PointsTotal counts single-pair conversions by datum pair and outcome.
	PointsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gcjconv_points_total",
		Help: "Total single-pair conversions by outcome",
	}, []string{"pair", "status"})
	// ConversionDurationMs observes document conversion time in milliseconds.
	ConversionDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gcjconv_conversion_duration_ms",
		Help:    "Document conversion duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	})
)

func init() {
	prometheus.MustRegister(DocumentsTotal)
	prometheus.MustRegister(PairsTotal)
	prometheus.MustRegister(SkippedTotal)
	prometheus.MustRegister(PointsTotal)
	prometheus.MustRegister(ConversionDurationMs)
}

// ObserveDocument records one document conversion.
func ObserveDocument(pair string, stats convert.Stats, err error, took time.Duration) {
	status := StatusOK
	switch {
	case err != nil:
		status = StatusError
	case stats.Unsupported:
		status = StatusUnsupported
	}

	DocumentsTotal.WithLabelValues(pair, status).Inc()
	PairsTotal.WithLabelValues(pair).Add(float64(stats.Pairs))
	SkippedTotal.Add(float64(stats.Skipped))
	ConversionDurationMs.Observe(float64(took.Microseconds()) / 1000)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler { return promhttp.Handler() }
