// Package metrics exposes prometheus instruments for the answer pipeline and
// the embedding cache.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/papercomputeco/vakki/pkg/embeddings/cache"
	"github.com/papercomputeco/vakki/pkg/pipeline"
)

const namespace = "vakki"

// Recorder implements pipeline.Observer and feeds a prometheus registry.
type Recorder struct {
	registry *prometheus.Registry

	StageDuration *prometheus.HistogramVec
	StageErrors   *prometheus.CounterVec
	Answers       *prometheus.CounterVec
	Similarity    prometheus.Histogram
	Faithfulness  prometheus.Histogram
	CacheRequests *prometheus.CounterVec
}

// scoreBuckets cover cosine similarity, [-1, 1].
var scoreBuckets = []float64{-0.5, 0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}

// New registers every instrument on a fresh registry, along with the go and
// process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_stage_duration_seconds",
				Help:      "Duration of each external call made while answering.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),

		StageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_stage_errors_total",
				Help:      "Failed external calls per stage.",
			},
			[]string{"stage"},
		),

		Answers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "answers_total",
				Help:      "Answer calls by outcome.",
			},
			[]string{"outcome"},
		),

		Similarity: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_similarity",
			Help:      "Cosine similarity between query and answer.",
			Buckets:   scoreBuckets,
		}),

		Faithfulness: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_faithfulness",
			Help:      "Cosine similarity between the mean retrieved context and the answer.",
			Buckets:   scoreBuckets,
		}),

		CacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "embedding_cache_requests_total",
				Help:      "Embedding cache lookups by result.",
			},
			[]string{"result"},
		),
	}
}

// StageDone implements pipeline.Observer.
func (r *Recorder) StageDone(stage pipeline.Stage, elapsed time.Duration, err error) {
	r.StageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
	if err != nil {
		r.StageErrors.WithLabelValues(string(stage)).Inc()
	}
}

// AnswerDone implements pipeline.Observer. Scores are only observed for
// answers that were actually scored.
func (r *Recorder) AnswerDone(outcome pipeline.Outcome, similarity, faithfulness float64) {
	r.Answers.WithLabelValues(string(outcome)).Inc()
	if outcome == pipeline.OutcomeAnswered || outcome == pipeline.OutcomeFallback {
		r.Similarity.Observe(similarity)
		r.Faithfulness.Observe(faithfulness)
	}
}

// CacheLookup counts one embedding cache lookup. It matches cache.Config.OnLookup.
func (r *Recorder) CacheLookup(result cache.Result) {
	r.CacheRequests.WithLabelValues(string(result)).Inc()
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

var _ pipeline.Observer = (*Recorder)(nil)
