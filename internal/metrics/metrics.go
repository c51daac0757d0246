package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec

	AnalysesTotal     *prometheus.CounterVec
	ImprovementsTotal *prometheus.CounterVec
	PCVStepDuration   *prometheus.HistogramVec
	BatchSize         prometheus.Histogram

	RateLimitHitsTotal *prometheus.CounterVec

	ActiveSessions prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New регистрирует метрики в reg; nil - глобальный registry.
// В тестах передаём prometheus.NewRegistry(), иначе повторная регистрация паникует.
func New(reg prometheus.Registerer) *Metrics {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	f := promauto.With(reg)

	m := &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "efmnb_requests_total",
				Help: "Total number of front-end requests processed",
			},
			[]string{"frontend", "type", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "efmnb_request_duration_seconds",
				Help:    "Front-end request duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"frontend", "type"},
		),
		RequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "efmnb_requests_in_flight",
				Help: "Number of requests currently being processed",
			},
		),

		LLMRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "efmnb_llm_requests_total",
				Help: "Total number of model API requests",
			},
			[]string{"provider", "status"},
		),
		LLMRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "efmnb_llm_request_duration_seconds",
				Help:    "Model request duration in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider"},
		),

		AnalysesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "efmnb_analyses_total",
				Help: "Total number of EFMNB analyses",
			},
			[]string{"status"},
		),
		ImprovementsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "efmnb_improvements_total",
				Help: "Total number of PCV improvement runs",
			},
			[]string{"status"},
		),
		PCVStepDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "efmnb_pcv_step_duration_seconds",
				Help:    "Duration of a single Proposer/Critic/Verifier step",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"step"},
		),
		BatchSize: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "efmnb_batch_size",
				Help:    "Number of texts per batch analysis",
				Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
			},
		),

		RateLimitHitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "efmnb_rate_limit_hits_total",
				Help: "Total number of rate limit hits",
			},
			[]string{"frontend"},
		),

		ActiveSessions: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "efmnb_active_sessions",
				Help: "Number of sessions held in memory",
			},
		),

		gatherer: gatherer,
	}

	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Handler отдаёт именно тот registry, в котором зарегистрированы метрики
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRequest(frontend, reqType, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(frontend, reqType, status).Inc()
	m.RequestDuration.WithLabelValues(frontend, reqType).Observe(duration.Seconds())
}

func (m *Metrics) RecordLLMRequest(provider, status string, duration time.Duration) {
	m.LLMRequestsTotal.WithLabelValues(provider, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func (m *Metrics) RecordAnalysis(status string) {
	m.AnalysesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordImprovement(status string) {
	m.ImprovementsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordPCVStep(step string, duration time.Duration) {
	m.PCVStepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

func (m *Metrics) RecordBatch(size int) {
	m.BatchSize.Observe(float64(size))
}

func (m *Metrics) RecordRateLimitHit(frontend string) {
	m.RateLimitHitsTotal.WithLabelValues(frontend).Inc()
}

func (m *Metrics) SetActiveSessions(count float64) {
	m.ActiveSessions.Set(count)
}

func (m *Metrics) IncRequestsInFlight() {
	m.RequestsInFlight.Inc()
}

func (m *Metrics) DecRequestsInFlight() {
	m.RequestsInFlight.Dec()
}
