package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics tracks per-stage timings and answer outcomes of the
// question-answering pipeline.
type PipelineMetrics struct {
	registry *prometheus.Registry
	service  string

	stageTotal     *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	answersTotal   *prometheus.CounterVec
	answerAttempts *prometheus.HistogramVec
	answerScore    *prometheus.HistogramVec
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	stageTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cq",
			Subsystem: "pipeline",
			Name:      "stage_total",
			Help:      "Total pipeline stage executions by status.",
		},
		[]string{"service", "stage", "status"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cq",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "stage"},
	)
	answersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cq",
			Subsystem: "pipeline",
			Name:      "answers_total",
			Help:      "Total produced answers by retrieval strategy.",
		},
		[]string{"service", "strategy"},
	)
	answerAttempts := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cq",
			Subsystem: "pipeline",
			Name:      "answer_attempts",
			Help:      "Generation attempts per answer (0 means no context).",
			Buckets:   []float64{0, 1, 2},
		},
		[]string{"service", "strategy"},
	)
	answerScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cq",
			Subsystem: "pipeline",
			Name:      "answer_score",
			Help:      "Final evaluation score per answer.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service", "strategy"},
	)

	registry.MustRegister(stageTotal, stageDuration, answersTotal, answerAttempts, answerScore)

	return &PipelineMetrics{
		registry:       registry,
		service:        service,
		stageTotal:     stageTotal,
		stageDuration:  stageDuration,
		answersTotal:   answersTotal,
		answerAttempts: answerAttempts,
		answerScore:    answerScore,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PipelineMetrics) ObserveStage(stage string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.stageTotal.WithLabelValues(m.service, stage, status).Inc()
	m.stageDuration.WithLabelValues(m.service, stage).Observe(duration.Seconds())
}

func (m *PipelineMetrics) RecordAnswer(strategy string, attempts int, score *float64) {
	if strategy == "" {
		strategy = "unknown"
	}
	m.answersTotal.WithLabelValues(m.service, strategy).Inc()
	m.answerAttempts.WithLabelValues(m.service, strategy).Observe(float64(attempts))
	if score != nil {
		m.answerScore.WithLabelValues(m.service, strategy).Observe(*score)
	}
}
