// Package metrics exposes comparison telemetry as Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kozaktomas/face-compare/internal/compare"
	"github.com/kozaktomas/face-compare/internal/facematch"
)

const (
	namespace = "face_compare"
)

// Recorder holds the comparison metrics. It implements compare.Observer.
type Recorder struct {
	registry *prometheus.Registry

	ComparisonsTotal  *prometheus.CounterVec
	Similarity        prometheus.Histogram
	ExtractionSeconds *prometheus.HistogramVec
	ExtractionErrors  *prometheus.CounterVec
}

// New creates a Recorder with all collectors registered on reg.
// A nil reg gets a fresh registry with the Go and process collectors.
func New(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(reg)

	r := &Recorder{
		registry: reg,

		ComparisonsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "comparisons_total",
				Help:      "Total number of comparisons by outcome",
			},
			[]string{"outcome"},
		),

		// Buckets cover the full similarity range [-1, 1]
		Similarity: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "similarity",
				Help:      "Similarity of the best matching face pair",
				Buckets:   prometheus.LinearBuckets(-1, 0.1, 21),
			},
		),

		ExtractionSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "extraction_seconds",
				Help:      "Duration of face extraction per image in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider"},
		),

		ExtractionErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extraction_errors_total",
				Help:      "Total number of failed face extractions",
			},
			[]string{"provider", "image"},
		),
	}

	// Pre-create outcome series so dashboards see zeros instead of gaps.
	for _, o := range compare.Outcomes {
		r.ComparisonsTotal.WithLabelValues(string(o))
	}
	return r
}

// ObserveExtraction records one provider call.
func (r *Recorder) ObserveExtraction(provider string, side facematch.Side, elapsed time.Duration, err error) {
	r.ExtractionSeconds.WithLabelValues(provider).Observe(elapsed.Seconds())
	if err != nil {
		image := "a"
		if side == facematch.SideB {
			image = "b"
		}
		r.ExtractionErrors.WithLabelValues(provider, image).Inc()
	}
}

// ObserveComparison records a finished comparison. Similarity is only
// observed when a verdict was reached.
func (r *Recorder) ObserveComparison(outcome compare.Outcome, similarity float64) {
	r.ComparisonsTotal.WithLabelValues(string(outcome)).Inc()
	if outcome == compare.OutcomeSame || outcome == compare.OutcomeDifferent {
		r.Similarity.Observe(similarity)
	}
}

// Registry returns the registry the collectors live on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
