package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/agentic-studio/internal/jobs/orchestrator"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
)

// Metrics is nil-safe: every method is a no-op on a nil receiver so callers
// never branch on whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	stageTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	jobTotal      *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	jobsActive    prometheus.Gauge

	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec

	sseClients prometheus.Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Current() *Metrics {
	return instance
}

// Init builds the process-wide instance when enabled; otherwise it returns
// nil and every recording call is a no-op.
func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("prometheus metrics enabled")
		}
	})
	return instance
}

// New builds a Metrics with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studio_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "studio_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		stageTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_stage_total",
			Help: "Pipeline stage completions by stage/class/status.",
		}, []string{"stage", "class", "status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studio_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600, 900},
		}, []string{"stage", "status"}),
		jobTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_jobs_total",
			Help: "Finished production jobs by final state.",
		}, []string{"state"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studio_job_duration_seconds",
			Help:    "Production job wall time in seconds.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
		}, []string{"state"}),
		jobsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "studio_jobs_active",
			Help: "Production jobs currently running.",
		}),
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_provider_requests_total",
			Help: "Outbound provider requests by provider/operation/status.",
		}, []string{"provider", "operation", "status"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studio_provider_request_duration_seconds",
			Help:    "Outbound provider latency in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"provider", "operation"}),
		sseClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "studio_sse_clients",
			Help: "Connected SSE clients.",
		}),
	}
	reg.MustRegister(
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.stageTotal, m.stageDuration, m.jobTotal, m.jobDuration, m.jobsActive,
		m.providerRequests, m.providerLatency, m.sseClients,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	code := strconv.Itoa(status)
	m.apiRequests.WithLabelValues(method, route, code).Inc()
	m.apiLatency.WithLabelValues(method, route, code).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// StageFinished and JobFinished satisfy orchestrator.Observer.
func (m *Metrics) StageFinished(stage string, class orchestrator.StageClass, status orchestrator.StageStatus, d time.Duration) {
	if m == nil {
		return
	}
	m.stageTotal.WithLabelValues(stage, class.String(), string(status)).Inc()
	m.stageDuration.WithLabelValues(stage, string(status)).Observe(d.Seconds())
}

func (m *Metrics) JobFinished(state orchestrator.JobState, d time.Duration) {
	if m == nil {
		return
	}
	m.jobTotal.WithLabelValues(string(state)).Inc()
	m.jobDuration.WithLabelValues(string(state)).Observe(d.Seconds())
}

func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.jobsActive.Inc()
}

func (m *Metrics) JobEnded() {
	if m == nil {
		return
	}
	m.jobsActive.Dec()
}

func (m *Metrics) ObserveProviderRequest(provider, operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.providerRequests.WithLabelValues(provider, operation, status).Inc()
	m.providerLatency.WithLabelValues(provider, operation).Observe(dur.Seconds())
}

func (m *Metrics) SSEClientConnected() {
	if m == nil {
		return
	}
	m.sseClients.Inc()
}

func (m *Metrics) SSEClientDisconnected() {
	if m == nil {
		return
	}
	m.sseClients.Dec()
}
