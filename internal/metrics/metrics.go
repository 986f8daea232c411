// Package metrics holds the prometheus collectors for analysis runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
)

type Metrics struct {
	Analyses          *prometheus.CounterVec
	AnalysisDuration  prometheus.Histogram
	DimensionOutcomes *prometheus.CounterVec
	DimensionDuration *prometheus.HistogramVec
	QualityScore      prometheus.Histogram
	Uncertified       prometheus.Counter
	BrokerInFlight    prometheus.Gauge
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Analyses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lectern",
			Name:      "analyses_total",
			Help:      "Completed analyses by outcome.",
		}, []string{"outcome"}),
		AnalysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lectern",
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of a full analysis.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}),
		DimensionOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lectern",
			Name:      "dimension_results_total",
			Help:      "Dimension runs by dimension and outcome.",
		}, []string{"dimension", "outcome"}),
		DimensionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lectern",
			Name:      "dimension_duration_seconds",
			Help:      "Wall time of a single dimension.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		}, []string{"dimension"}),
		QualityScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lectern",
			Name:      "quality_score",
			Help:      "Distribution of overall quality scores.",
			Buckets:   prometheus.LinearBuckets(10, 10, 9),
		}),
		Uncertified: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lectern",
			Name:      "uncertified_total",
			Help:      "Analyses whose weight set failed validation.",
		}),
		BrokerInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "lectern",
			Name:      "broker_in_flight",
			Help:      "Analysis requests currently being processed by the broker.",
		}),
	}
}

// ObserveDimension records one dimension run. Safe on a nil receiver.
func (m *Metrics) ObserveDimension(name, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.DimensionOutcomes.WithLabelValues(name, outcome).Inc()
	m.DimensionDuration.WithLabelValues(name).Observe(d.Seconds())
}

// ObserveAnalysis records a finished analysis. Safe on a nil receiver.
func (m *Metrics) ObserveAnalysis(outcome string, quality float64, certified bool, d time.Duration) {
	if m == nil {
		return
	}
	m.Analyses.WithLabelValues(outcome).Inc()
	m.AnalysisDuration.Observe(d.Seconds())
	if outcome != OutcomeOK {
		return
	}
	m.QualityScore.Observe(quality)
	if !certified {
		m.Uncertified.Inc()
	}
}
