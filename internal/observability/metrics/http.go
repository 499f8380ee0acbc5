package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	chatRequestsTotal *prometheus.CounterVec
	chatBranchTotal   *prometheus.CounterVec
	chatLabelTotal    *prometheus.CounterVec
	retrievalHitTotal *prometheus.CounterVec
	noContextTotal    *prometheus.CounterVec
	retrievedChunks   *prometheus.HistogramVec
	retrievalDistance *prometheus.HistogramVec
	chatDuration      *prometheus.HistogramVec
	llmTokensTotal    *prometheus.CounterVec
	webSearchTotal    *prometheus.CounterVec
	rateLimitedTotal  *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policy_assistant",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "policy_assistant",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "policy_assistant",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	chatRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policy_assistant",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total completed chat requests.",
		},
		[]string{"service"},
	)
	chatBranchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policy_assistant",
			Subsystem: "chat",
			Name:      "branch_total",
			Help:      "Total chat answers by pipeline branch.",
		},
		[]string{"service", "branch"},
	)
	chatLabelTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policy_assistant",
			Subsystem: "chat",
			Name:      "classification_total",
			Help:      "Total question classifications by label.",
		},
		[]string{"service", "label"},
	)
	retrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policy_assistant",
			Subsystem: "retrieval",
			Name:      "hit_total",
			Help:      "Total chat requests whose retrieved context passed the relevance gate.",
		},
		[]string{"service"},
	)
	noContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policy_assistant",
			Subsystem: "retrieval",
			Name:      "no_context_total",
			Help:      "Total chat requests with no relevant retrieved context.",
		},
		[]string{"service"},
	)
	retrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "policy_assistant",
			Subsystem: "retrieval",
			Name:      "chunks",
			Help:      "Distribution of retrieved chunks per chat request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)
	retrievalDistance := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "policy_assistant",
			Subsystem: "retrieval",
			Name:      "best_distance",
			Help:      "Distribution of the closest retrieved chunk distance per chat request.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0, 1.2, 1.5, 2.0},
		},
		[]string{"service"},
	)
	chatDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "policy_assistant",
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "Chat pipeline execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	llmTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policy_assistant",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Token usage by direction as reported by the provider.",
		},
		[]string{"service", "direction", "model"},
	)
	webSearchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policy_assistant",
			Subsystem: "websearch",
			Name:      "requests_total",
			Help:      "Total web search fallback calls by status.",
		},
		[]string{"service", "status"},
	)
	rateLimitedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policy_assistant",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total requests rejected by the rate limiter.",
		},
		[]string{"service", "path"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		chatRequestsTotal,
		chatBranchTotal,
		chatLabelTotal,
		retrievalHitTotal,
		noContextTotal,
		retrievedChunks,
		retrievalDistance,
		chatDuration,
		llmTokensTotal,
		webSearchTotal,
		rateLimitedTotal,
	)

	return &HTTPServerMetrics{
		registry:          registry,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		chatRequestsTotal: chatRequestsTotal,
		chatBranchTotal:   chatBranchTotal,
		chatLabelTotal:    chatLabelTotal,
		retrievalHitTotal: retrievalHitTotal,
		noContextTotal:    noContextTotal,
		retrievedChunks:   retrievedChunks,
		retrievalDistance: retrievalDistance,
		chatDuration:      chatDuration,
		llmTokensTotal:    llmTokensTotal,
		webSearchTotal:    webSearchTotal,
		rateLimitedTotal:  rateLimitedTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordChatObservation(service, branch string, chunkCount int, relevant bool, duration time.Duration) {
	if branch == "" {
		branch = "unknown"
	}
	m.chatRequestsTotal.WithLabelValues(service).Inc()
	m.chatBranchTotal.WithLabelValues(service, branch).Inc()
	m.retrievedChunks.WithLabelValues(service).Observe(float64(chunkCount))
	m.chatDuration.WithLabelValues(service).Observe(duration.Seconds())

	if relevant {
		m.retrievalHitTotal.WithLabelValues(service).Inc()
		return
	}
	m.noContextTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordClassification(service, label string) {
	if label == "" {
		label = "unknown"
	}
	m.chatLabelTotal.WithLabelValues(service, label).Inc()
}

func (m *HTTPServerMetrics) RecordBestDistance(service string, distance float64) {
	m.retrievalDistance.WithLabelValues(service).Observe(distance)
}

func (m *HTTPServerMetrics) RecordTokenUsage(service, model string, promptTokens, completionTokens int) {
	if model == "" {
		model = "unknown"
	}
	if promptTokens > 0 {
		m.llmTokensTotal.WithLabelValues(service, "in", model).Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.llmTokensTotal.WithLabelValues(service, "out", model).Add(float64(completionTokens))
	}
}

func (m *HTTPServerMetrics) RecordWebSearch(service string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.webSearchTotal.WithLabelValues(service, status).Inc()
}

func (m *HTTPServerMetrics) RecordRateLimited(service, path string) {
	m.rateLimitedTotal.WithLabelValues(service, normalizePath(path)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
