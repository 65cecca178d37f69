// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics collection for the memory layer.
type Metrics struct {
	config   *MetricsConfig
	registry *prometheus.Registry

	// Memory store metrics
	memoryWrites     *prometheus.CounterVec
	memoryWriteDur   *prometheus.HistogramVec
	memoryTierCount  *prometheus.GaugeVec
	memoryTierBytes  *prometheus.GaugeVec
	memoryEvictions  *prometheus.CounterVec

	// Classifier metrics
	classifyCalls     *prometheus.CounterVec
	classifyDuration  *prometheus.HistogramVec
	classifyRetries   *prometheus.CounterVec
	classifyErrors    *prometheus.CounterVec

	// Search metrics
	searchCalls    *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec
	searchResults  *prometheus.HistogramVec

	// Injection metrics
	injectionCalls    *prometheus.CounterVec
	injectionDuration *prometheus.HistogramVec

	// LLM metrics
	llmCalls        *prometheus.CounterVec
	llmCallDuration *prometheus.HistogramVec
	llmTokensInput  *prometheus.CounterVec
	llmTokensOutput *prometheus.CounterVec
	llmErrors       *prometheus.CounterVec

	// Executor metrics
	executorQueueDepth *prometheus.GaugeVec
	executorTasks      *prometheus.CounterVec
	executorTaskDur    *prometheus.HistogramVec

	// Rate limit metrics
	rateLimitDecisions *prometheus.CounterVec

	// HTTP metrics (cmd/memorid)
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	httpRequestSize  *prometheus.HistogramVec
	httpResponseSize *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance from configuration.
func NewMetrics(cfg *MetricsConfig) (*Metrics, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	cfg.SetDefaults()

	m := &Metrics{
		config:   cfg,
		registry: prometheus.NewRegistry(),
	}

	m.initMemoryMetrics()
	m.initClassifyMetrics()
	m.initSearchMetrics()
	m.initInjectionMetrics()
	m.initLLMMetrics()
	m.initExecutorMetrics()
	m.initRateLimitMetrics()
	m.initHTTPMetrics()

	return m, nil
}

func (m *Metrics) initMemoryMetrics() {
	m.memoryWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "memory",
			Name:      "writes_total",
			Help:      "Total number of conversation turns recorded, by tier",
		},
		[]string{"tier"},
	)

	m.memoryWriteDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "memory",
			Name:      "write_duration_seconds",
			Help:      "Time to record and classify a conversation turn",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to 20s
		},
		[]string{"tier"},
	)

	m.memoryTierCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.config.Namespace,
			Subsystem: "memory",
			Name:      "tier_entries",
			Help:      "Current number of entries held per tier",
		},
		[]string{"tier"},
	)

	m.memoryTierBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.config.Namespace,
			Subsystem: "memory",
			Name:      "tier_bytes",
			Help:      "Current approximate byte size held per tier",
		},
		[]string{"tier"},
	)

	m.memoryEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "memory",
			Name:      "evictions_total",
			Help:      "Total number of entries evicted from the short-term working set",
		},
		[]string{"reason"},
	)

	m.registry.MustRegister(m.memoryWrites, m.memoryWriteDur, m.memoryTierCount,
		m.memoryTierBytes, m.memoryEvictions)
}

func (m *Metrics) initClassifyMetrics() {
	m.classifyCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "classify",
			Name:      "calls_total",
			Help:      "Total number of classifier invocations, by decided tier",
		},
		[]string{"decision"},
	)

	m.classifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "classify",
			Name:      "duration_seconds",
			Help:      "Classifier call latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		},
		[]string{"decision"},
	)

	m.classifyRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "classify",
			Name:      "retries_total",
			Help:      "Total number of classifier retries after a malformed response",
		},
		[]string{},
	)

	m.classifyErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "classify",
			Name:      "errors_total",
			Help:      "Total number of classifier calls that failed after retries",
		},
		[]string{"error_type"},
	)

	m.registry.MustRegister(m.classifyCalls, m.classifyDuration, m.classifyRetries, m.classifyErrors)
}

func (m *Metrics) initSearchMetrics() {
	m.searchCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "search",
			Name:      "calls_total",
			Help:      "Total number of long-term store searches, by backend",
		},
		[]string{"backend"},
	)

	m.searchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
		[]string{"backend"},
	)

	m.searchResults = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "search",
			Name:      "result_count",
			Help:      "Number of results returned by a search",
			Buckets:   prometheus.LinearBuckets(0, 5, 11), // 0, 5, 10, ... 50
		},
		[]string{"backend"},
	)

	m.registry.MustRegister(m.searchCalls, m.searchDuration, m.searchResults)
}

func (m *Metrics) initInjectionMetrics() {
	m.injectionCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "injection",
			Name:      "calls_total",
			Help:      "Total number of context injections, by mode",
		},
		[]string{"mode"},
	)

	m.injectionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "injection",
			Name:      "duration_seconds",
			Help:      "Context injection latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to 2s
		},
		[]string{"mode"},
	)

	m.registry.MustRegister(m.injectionCalls, m.injectionDuration)
}

func (m *Metrics) initLLMMetrics() {
	m.llmCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Total number of LLM API calls",
		},
		[]string{"model", "provider"},
	)

	m.llmCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "LLM API call duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to 204s
		},
		[]string{"model", "provider"},
	)

	m.llmTokensInput = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "llm",
			Name:      "tokens_input_total",
			Help:      "Total number of input tokens consumed",
		},
		[]string{"model", "provider"},
	)

	m.llmTokensOutput = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "llm",
			Name:      "tokens_output_total",
			Help:      "Total number of output tokens generated",
		},
		[]string{"model", "provider"},
	)

	m.llmErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "llm",
			Name:      "errors_total",
			Help:      "Total number of LLM API errors",
		},
		[]string{"model", "provider", "error_type"},
	)

	m.registry.MustRegister(m.llmCalls, m.llmCallDuration, m.llmTokensInput, m.llmTokensOutput, m.llmErrors)
}

func (m *Metrics) initExecutorMetrics() {
	m.executorQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.config.Namespace,
			Subsystem: "executor",
			Name:      "queue_depth",
			Help:      "Current number of queued async memory tasks",
		},
		[]string{},
	)

	m.executorTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "executor",
			Name:      "tasks_total",
			Help:      "Total number of async memory tasks processed",
		},
		[]string{"task_type", "outcome"},
	)

	m.executorTaskDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "executor",
			Name:      "task_duration_seconds",
			Help:      "Async memory task duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to 20s
		},
		[]string{"task_type"},
	)

	m.registry.MustRegister(m.executorQueueDepth, m.executorTasks, m.executorTaskDur)
}

func (m *Metrics) initRateLimitMetrics() {
	m.rateLimitDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "rate_limit",
			Name:      "decisions_total",
			Help:      "Total number of rate limit checks, by scope, limit type, and outcome",
		},
		[]string{"scope", "limit_type", "allowed"},
	)

	m.registry.MustRegister(m.rateLimitDecisions)
}

func (m *Metrics) initHTTPMetrics() {
	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.httpRequestSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "http",
			Name:      "request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 7), // 100B to 100MB
		},
		[]string{"method", "path"},
	)

	m.httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 7), // 100B to 100MB
		},
		[]string{"method", "path"},
	)

	m.registry.MustRegister(m.httpRequests, m.httpDuration, m.httpRequestSize, m.httpResponseSize)
}

// =============================================================================
// Memory Metrics
// =============================================================================

// RecordMemoryWrite records a conversation turn being recorded into a tier.
func (m *Metrics) RecordMemoryWrite(tier string, duration time.Duration) {
	if m == nil {
		return
	}
	m.memoryWrites.WithLabelValues(tier).Inc()
	m.memoryWriteDur.WithLabelValues(tier).Observe(duration.Seconds())
}

// SetMemoryTierStats sets the current entry count and byte size for a tier.
func (m *Metrics) SetMemoryTierStats(tier string, entries int, bytes int64) {
	if m == nil {
		return
	}
	m.memoryTierCount.WithLabelValues(tier).Set(float64(entries))
	m.memoryTierBytes.WithLabelValues(tier).Set(float64(bytes))
}

// RecordMemoryEviction records an entry being evicted from the working set.
func (m *Metrics) RecordMemoryEviction(reason string) {
	if m == nil {
		return
	}
	m.memoryEvictions.WithLabelValues(reason).Inc()
}

// =============================================================================
// Classifier Metrics
// =============================================================================

// RecordClassify records a classifier call and its decided tier.
func (m *Metrics) RecordClassify(decision string, duration time.Duration) {
	if m == nil {
		return
	}
	m.classifyCalls.WithLabelValues(decision).Inc()
	m.classifyDuration.WithLabelValues(decision).Observe(duration.Seconds())
}

// RecordClassifyRetry records a classifier retry after a malformed response.
func (m *Metrics) RecordClassifyRetry() {
	if m == nil {
		return
	}
	m.classifyRetries.WithLabelValues().Inc()
}

// RecordClassifyError records a classifier failure after exhausting retries.
func (m *Metrics) RecordClassifyError(errorType string) {
	if m == nil {
		return
	}
	m.classifyErrors.WithLabelValues(errorType).Inc()
}

// =============================================================================
// Search Metrics
// =============================================================================

// RecordSearch records a long-term store search.
func (m *Metrics) RecordSearch(backend string, duration time.Duration, resultCount int) {
	if m == nil {
		return
	}
	m.searchCalls.WithLabelValues(backend).Inc()
	m.searchDuration.WithLabelValues(backend).Observe(duration.Seconds())
	m.searchResults.WithLabelValues(backend).Observe(float64(resultCount))
}

// =============================================================================
// Injection Metrics
// =============================================================================

// RecordInjection records a context injection into an outbound LLM request.
func (m *Metrics) RecordInjection(mode string, duration time.Duration) {
	if m == nil {
		return
	}
	m.injectionCalls.WithLabelValues(mode).Inc()
	m.injectionDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// =============================================================================
// LLM Metrics
// =============================================================================

// RecordLLMCall records an LLM API call.
func (m *Metrics) RecordLLMCall(model, provider string, duration time.Duration) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(model, provider).Inc()
	m.llmCallDuration.WithLabelValues(model, provider).Observe(duration.Seconds())
}

// RecordLLMTokens records token usage.
func (m *Metrics) RecordLLMTokens(model, provider string, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.llmTokensInput.WithLabelValues(model, provider).Add(float64(inputTokens))
	m.llmTokensOutput.WithLabelValues(model, provider).Add(float64(outputTokens))
}

// RecordLLMError records an LLM error.
func (m *Metrics) RecordLLMError(model, provider, errorType string) {
	if m == nil {
		return
	}
	m.llmErrors.WithLabelValues(model, provider, errorType).Inc()
}

// =============================================================================
// Executor Metrics
// =============================================================================

// SetExecutorQueueDepth sets the current async task queue depth.
func (m *Metrics) SetExecutorQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.executorQueueDepth.WithLabelValues().Set(float64(depth))
}

// RecordExecutorTask records an async memory task completing.
func (m *Metrics) RecordExecutorTask(taskType, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.executorTasks.WithLabelValues(taskType, outcome).Inc()
	m.executorTaskDur.WithLabelValues(taskType).Observe(duration.Seconds())
}

// =============================================================================
// Rate Limit Metrics
// =============================================================================

// RecordRateLimitDecision records a rate limit check outcome.
func (m *Metrics) RecordRateLimitDecision(scope, limitType string, allowed bool) {
	if m == nil {
		return
	}
	m.rateLimitDecisions.WithLabelValues(scope, limitType, boolLabel(allowed)).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// =============================================================================
// HTTP Metrics
// =============================================================================

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration, reqSize, respSize int64) {
	if m == nil {
		return
	}
	status := statusCodeLabel(statusCode)
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	if reqSize > 0 {
		m.httpRequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	}
	if respSize > 0 {
		m.httpResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
	}
}

func statusCodeLabel(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

// =============================================================================
// HTTP Handler
// =============================================================================

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
