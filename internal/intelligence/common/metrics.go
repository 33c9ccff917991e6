package common

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ---------------------------------------------------------------------------
// Interfaces
// ---------------------------------------------------------------------------

// IntelligenceMetrics is the telemetry API of the decision-support layer.
// Implementations: Prometheus (production), in-memory (tests), noop.
type IntelligenceMetrics interface {
	// RecordInference records one model invocation (decision, risk, similarity).
	RecordInference(ctx context.Context, params *InferenceMetricParams)

	// RecordDecision counts recommended actions by label.
	RecordDecision(ctx context.Context, label string)

	// RecordRiskAssessment counts assessments by level and observes latency.
	RecordRiskAssessment(ctx context.Context, riskLevel string, durationMs float64)

	// RecordModelLoad records a generation load from persisted artifacts.
	RecordModelLoad(ctx context.Context, generation string, durationMs float64, success bool)

	// RecordTraining records a training run.
	RecordTraining(ctx context.Context, corpusSize int, durationMs float64, success bool)

	// RecordUnknownCategory counts categorical values outside the vocabulary.
	RecordUnknownCategory(ctx context.Context, field string)

	// RecordAnalysis records one end-to-end claim analysis.
	RecordAnalysis(ctx context.Context, durationMs float64, success bool)
}

// ---------------------------------------------------------------------------
// Parameter structs
// ---------------------------------------------------------------------------

// InferenceMetricParams carries the data for a single inference event.
type InferenceMetricParams struct {
	ModelName  string  `json:"model_name"`
	Generation string  `json:"generation"`
	DurationMs float64 `json:"duration_ms"`
	Success    bool    `json:"success"`
}

// ---------------------------------------------------------------------------
// Prometheus implementation
// ---------------------------------------------------------------------------

var defaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

var trainingBuckets = []float64{100, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000}

type prometheusIntelligenceMetrics struct {
	inferenceLatency  *prometheus.HistogramVec
	inferenceTotal    *prometheus.CounterVec
	decisionTotal     *prometheus.CounterVec
	riskTotal         *prometheus.CounterVec
	riskDuration      *prometheus.HistogramVec
	modelLoadDuration *prometheus.HistogramVec
	trainingDuration  *prometheus.HistogramVec
	trainingCorpus    prometheus.Gauge
	unknownCategory   *prometheus.CounterVec
	analysisDuration  *prometheus.HistogramVec
}

// NewPrometheusIntelligenceMetrics registers the collectors under namespace
// (e.g. "fradss") with registerer. A nil registerer means the default one.
func NewPrometheusIntelligenceMetrics(namespace string, registerer prometheus.Registerer) (IntelligenceMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	const subsystem = "dss"

	m := &prometheusIntelligenceMetrics{}

	m.inferenceLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem,
		Name:    "inference_duration_milliseconds",
		Help:    "Model inference latency in milliseconds.",
		Buckets: defaultLatencyBuckets,
	}, []string{"model_name"})
	m.inferenceTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem,
		Name: "inference_total",
		Help: "Model inferences by status.",
	}, []string{"model_name", "status"})
	m.decisionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem,
		Name: "decision_total",
		Help: "Recommended actions by label.",
	}, []string{"label"})
	m.riskTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem,
		Name: "risk_assessment_total",
		Help: "Risk assessments by level.",
	}, []string{"risk_level"})
	m.riskDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem,
		Name:    "risk_assessment_duration_milliseconds",
		Help:    "Risk assessment latency in milliseconds.",
		Buckets: defaultLatencyBuckets,
	}, []string{"risk_level"})
	m.modelLoadDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem,
		Name:    "model_load_duration_milliseconds",
		Help:    "Artifact generation load latency in milliseconds.",
		Buckets: defaultLatencyBuckets,
	}, []string{"status"})
	m.trainingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem,
		Name:    "training_duration_milliseconds",
		Help:    "Training run duration in milliseconds.",
		Buckets: trainingBuckets,
	}, []string{"status"})
	m.trainingCorpus = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystem,
		Name: "training_corpus_size",
		Help: "Corpus size of the most recent training run.",
	})
	m.unknownCategory = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem,
		Name: "unknown_category_total",
		Help: "Categorical values outside the known vocabulary, by field.",
	}, []string{"field"})
	m.analysisDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem,
		Name:    "analysis_duration_milliseconds",
		Help:    "End-to-end claim analysis latency in milliseconds.",
		Buckets: defaultLatencyBuckets,
	}, []string{"status"})

	collectors := []prometheus.Collector{
		m.inferenceLatency, m.inferenceTotal, m.decisionTotal,
		m.riskTotal, m.riskDuration, m.modelLoadDuration,
		m.trainingDuration, m.trainingCorpus, m.unknownCategory,
		m.analysisDuration,
	}
	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func (m *prometheusIntelligenceMetrics) RecordInference(_ context.Context, p *InferenceMetricParams) {
	if p == nil {
		return
	}
	m.inferenceLatency.WithLabelValues(p.ModelName).Observe(p.DurationMs)
	m.inferenceTotal.WithLabelValues(p.ModelName, statusLabel(p.Success)).Inc()
}

func (m *prometheusIntelligenceMetrics) RecordDecision(_ context.Context, label string) {
	m.decisionTotal.WithLabelValues(label).Inc()
}

func (m *prometheusIntelligenceMetrics) RecordRiskAssessment(_ context.Context, riskLevel string, durationMs float64) {
	m.riskTotal.WithLabelValues(riskLevel).Inc()
	m.riskDuration.WithLabelValues(riskLevel).Observe(durationMs)
}

func (m *prometheusIntelligenceMetrics) RecordModelLoad(_ context.Context, _ string, durationMs float64, success bool) {
	m.modelLoadDuration.WithLabelValues(statusLabel(success)).Observe(durationMs)
}

func (m *prometheusIntelligenceMetrics) RecordTraining(_ context.Context, corpusSize int, durationMs float64, success bool) {
	m.trainingDuration.WithLabelValues(statusLabel(success)).Observe(durationMs)
	if success {
		m.trainingCorpus.Set(float64(corpusSize))
	}
}

func (m *prometheusIntelligenceMetrics) RecordUnknownCategory(_ context.Context, field string) {
	m.unknownCategory.WithLabelValues(field).Inc()
}

func (m *prometheusIntelligenceMetrics) RecordAnalysis(_ context.Context, durationMs float64, success bool) {
	m.analysisDuration.WithLabelValues(statusLabel(success)).Observe(durationMs)
}

// ---------------------------------------------------------------------------
// Noop implementation
// ---------------------------------------------------------------------------

type noopIntelligenceMetrics struct{}

// NewNoopIntelligenceMetrics returns a metrics sink that records nothing.
func NewNoopIntelligenceMetrics() IntelligenceMetrics {
	return noopIntelligenceMetrics{}
}

func (noopIntelligenceMetrics) RecordInference(context.Context, *InferenceMetricParams) {}
func (noopIntelligenceMetrics) RecordDecision(context.Context, string)                  {}
func (noopIntelligenceMetrics) RecordRiskAssessment(context.Context, string, float64)   {}
func (noopIntelligenceMetrics) RecordModelLoad(context.Context, string, float64, bool)  {}
func (noopIntelligenceMetrics) RecordTraining(context.Context, int, float64, bool)      {}
func (noopIntelligenceMetrics) RecordUnknownCategory(context.Context, string)           {}
func (noopIntelligenceMetrics) RecordAnalysis(context.Context, float64, bool)           {}

// ---------------------------------------------------------------------------
// In-memory implementation (tests)
// ---------------------------------------------------------------------------

// InMemoryIntelligenceMetrics keeps every event for assertions.
type InMemoryIntelligenceMetrics struct {
	mu sync.Mutex

	Inferences     []InferenceMetricParams
	Decisions      map[string]int64
	RiskLevels     map[string]int64
	ModelLoads     []ModelLoadRecord
	Trainings      []TrainingRecord
	UnknownFields  map[string]int64
	Analyses       int64
	FailedAnalyses int64
}

// ModelLoadRecord is one recorded generation load.
type ModelLoadRecord struct {
	Generation string
	DurationMs float64
	Success    bool
}

// TrainingRecord is one recorded training run.
type TrainingRecord struct {
	CorpusSize int
	DurationMs float64
	Success    bool
}

// NewInMemoryIntelligenceMetrics returns an empty in-memory recorder.
func NewInMemoryIntelligenceMetrics() *InMemoryIntelligenceMetrics {
	return &InMemoryIntelligenceMetrics{
		Decisions:     make(map[string]int64),
		RiskLevels:    make(map[string]int64),
		UnknownFields: make(map[string]int64),
	}
}

func (m *InMemoryIntelligenceMetrics) RecordInference(_ context.Context, p *InferenceMetricParams) {
	if p == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Inferences = append(m.Inferences, *p)
}

func (m *InMemoryIntelligenceMetrics) RecordDecision(_ context.Context, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Decisions[label]++
}

func (m *InMemoryIntelligenceMetrics) RecordRiskAssessment(_ context.Context, riskLevel string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RiskLevels[riskLevel]++
}

func (m *InMemoryIntelligenceMetrics) RecordModelLoad(_ context.Context, generation string, durationMs float64, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ModelLoads = append(m.ModelLoads, ModelLoadRecord{Generation: generation, DurationMs: durationMs, Success: success})
}

func (m *InMemoryIntelligenceMetrics) RecordTraining(_ context.Context, corpusSize int, durationMs float64, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Trainings = append(m.Trainings, TrainingRecord{CorpusSize: corpusSize, DurationMs: durationMs, Success: success})
}

func (m *InMemoryIntelligenceMetrics) RecordUnknownCategory(_ context.Context, field string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UnknownFields[field]++
}

func (m *InMemoryIntelligenceMetrics) RecordAnalysis(_ context.Context, _ float64, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Analyses++
	if !success {
		m.FailedAnalyses++
	}
}

// TrainingCount returns the number of recorded training runs.
func (m *InMemoryIntelligenceMetrics) TrainingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Trainings)
}

var (
	_ IntelligenceMetrics = (*prometheusIntelligenceMetrics)(nil)
	_ IntelligenceMetrics = noopIntelligenceMetrics{}
	_ IntelligenceMetrics = (*InMemoryIntelligenceMetrics)(nil)
)
