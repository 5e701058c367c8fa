package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/kirillkom/paper-grader/internal/core/domain"
)

// BatchMetrics observes a grading run. A batch job has no scrape endpoint,
// so the registry is pushed to a Pushgateway when the run completes.
type BatchMetrics struct {
	registry *prometheus.Registry
	service  string

	itemsTotal          *prometheus.CounterVec
	itemDuration        *prometheus.HistogramVec
	recognitionDuration *prometheus.HistogramVec
	gradingDuration     *prometheus.HistogramVec
	scores              prometheus.Histogram
	itemsPending        prometheus.Gauge
	runDuration         prometheus.Gauge
	lastRunSuccess      prometheus.Gauge
}

func NewBatchMetrics(service string) *BatchMetrics {
	registry := prometheus.NewRegistry()

	itemsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "grader",
			Subsystem: "batch",
			Name:      "items_total",
			Help:      "Total processed answer sheets by record status.",
		},
		[]string{"service", "status"},
	)
	itemDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "grader",
			Subsystem: "batch",
			Name:      "item_duration_seconds",
			Help:      "Per answer sheet processing duration in seconds by record status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	recognitionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "grader",
			Subsystem: "ocr",
			Name:      "duration_seconds",
			Help:      "Handwriting recognition call duration in seconds by outcome.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"service", "outcome"},
	)
	gradingDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "grader",
			Subsystem: "llm",
			Name:      "duration_seconds",
			Help:      "Scoring call duration in seconds by outcome.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"service", "outcome"},
	)
	scores := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "grader",
			Subsystem:   "batch",
			Name:        "score",
			Help:        "Distribution of parsed scores.",
			Buckets:     []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 20, 50, 100},
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	itemsPending := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "grader",
			Subsystem:   "batch",
			Name:        "items_pending",
			Help:        "Answer sheets not yet processed in the current run.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	runDuration := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "grader",
			Subsystem:   "batch",
			Name:        "run_duration_seconds",
			Help:        "Wall-clock duration of the last completed run.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	lastRunSuccess := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "grader",
			Subsystem:   "batch",
			Name:        "last_completion_timestamp_seconds",
			Help:        "Unix time of the last completed run.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)

	registry.MustRegister(itemsTotal, itemDuration, recognitionDuration, gradingDuration, scores, itemsPending, runDuration, lastRunSuccess)

	return &BatchMetrics{
		registry:            registry,
		service:             service,
		itemsTotal:          itemsTotal,
		itemDuration:        itemDuration,
		recognitionDuration: recognitionDuration,
		gradingDuration:     gradingDuration,
		scores:              scores,
		itemsPending:        itemsPending,
		runDuration:         runDuration,
		lastRunSuccess:      lastRunSuccess,
	}
}

func (m *BatchMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *BatchMetrics) RunStarted(total int) {
	m.itemsPending.Set(float64(total))
}

func (m *BatchMetrics) ItemStarted(domain.InputItem, int) {}

func (m *BatchMetrics) RecognitionFinished(_ domain.InputItem, rec domain.Recognition, elapsed time.Duration) {
	m.recognitionDuration.WithLabelValues(m.service, string(rec.Status)).Observe(elapsed.Seconds())
}

func (m *BatchMetrics) GradingFinished(_ domain.InputItem, grade domain.Grade, elapsed time.Duration) {
	outcome := "parsed"
	switch {
	case grade.Cause != nil:
		outcome = "error"
	case !grade.Outcome.Parsed:
		outcome = "unparseable"
	default:
		m.scores.Observe(float64(grade.Score()))
	}
	m.gradingDuration.WithLabelValues(m.service, outcome).Observe(elapsed.Seconds())
}

func (m *BatchMetrics) ItemFinished(_ domain.InputItem, record domain.ResultRecord, elapsed time.Duration) {
	m.itemsPending.Dec()
	m.itemsTotal.WithLabelValues(m.service, string(record.Status)).Inc()
	m.itemDuration.WithLabelValues(m.service, string(record.Status)).Observe(elapsed.Seconds())
}

func (m *BatchMetrics) RunFinished(run domain.RunResult) {
	m.itemsPending.Set(0)
	m.runDuration.Set(run.Duration().Seconds())
	if !run.FinishedAt.IsZero() {
		m.lastRunSuccess.Set(float64(run.FinishedAt.Unix()))
	}
}

// Pusher delivers the run's registry to a Pushgateway, grouped by run id.
type Pusher struct {
	metrics *BatchMetrics
	url     string
	job     string
}

func NewPusher(m *BatchMetrics, url, job string) *Pusher {
	if job == "" {
		job = "paper_grader"
	}
	return &Pusher{metrics: m, url: url, job: job}
}

func (p *Pusher) Persist(ctx context.Context, run domain.RunResult) error {
	pusher := push.New(p.url, p.job).
		Gatherer(p.metrics.registry).
		Grouping("instance", p.metrics.service)
	if run.RunID != "" {
		pusher = pusher.Grouping("run_id", run.RunID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
