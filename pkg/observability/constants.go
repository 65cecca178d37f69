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

// Package observability provides OpenTelemetry tracing and Prometheus
// metrics for the memory layer: recording conversation turns, running
// the LLM-backed classifier, searching the long-term store, and
// injecting retrieved context back into a request.
package observability

// =============================================================================
// Service Attributes (OpenTelemetry Semantic Conventions)
// =============================================================================

const (
	AttrServiceName    = "service.name"
	AttrServiceVersion = "service.version"
)

// =============================================================================
// GenAI Semantic Conventions (classifier + injection both call an LLM)
// =============================================================================

const (
	AttrGenAISystem               = "gen_ai.system"
	AttrGenAIOperationName        = "gen_ai.operation.name"
	AttrGenAIRequestModel         = "gen_ai.request.model"
	AttrGenAIRequestTemperature   = "gen_ai.request.temperature"
	AttrGenAIRequestMaxTokens     = "gen_ai.request.max_tokens"
	AttrGenAIResponseFinishReason = "gen_ai.response.finish_reason"
	AttrGenAIUsageInputTokens     = "gen_ai.usage.input_tokens"
	AttrGenAIUsageOutputTokens    = "gen_ai.usage.output_tokens"
)

// =============================================================================
// Tenant / Memory Attributes
// =============================================================================

const (
	AttrUserID      = "memori.user_id"
	AttrAssistantID = "memori.assistant_id"
	AttrSessionID   = "memori.session_id"
	AttrTier        = "memori.tier" // short_term, long_term
	AttrDecision    = "memori.classify.decision"
	AttrRetries     = "memori.classify.retries"

	AttrInjectionMode = "memori.injection.mode" // conscious, auto

	AttrSearchQuery       = "memori.search.query"
	AttrSearchTopK        = "memori.search.top_k"
	AttrSearchResultCount = "memori.search.result_count"
	AttrSearchBackend     = "memori.search.backend" // sql, vector

	AttrRateLimitScope   = "memori.rate_limit.scope"
	AttrRateLimitType    = "memori.rate_limit.type"
	AttrRateLimitAllowed = "memori.rate_limit.allowed"
)

// =============================================================================
// HTTP Attributes
// =============================================================================

const (
	AttrHTTPMethod       = "http.method"
	AttrHTTPPath         = "http.route"
	AttrHTTPStatusCode   = "http.status_code"
	AttrHTTPRequestSize  = "http.request.body.size"
	AttrHTTPResponseSize = "http.response.body.size"
)

// =============================================================================
// Error Attributes
// =============================================================================

const (
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// =============================================================================
// Span Names
// =============================================================================

const (
	SpanMemoryRecord   = "memori.memory.record"
	SpanMemoryClassify = "memori.memory.classify"
	SpanMemorySearch   = "memori.memory.search"
	SpanMemoryInject   = "memori.memory.inject"
	SpanLLMCall        = "memori.llm.call"
	SpanHTTPRequest    = "memori.http.request"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	DefaultServiceName  = "memori"
	DefaultSamplingRate = 1.0
	DefaultOTLPEndpoint = "localhost:4317"
	DefaultMetricsPath  = "/metrics"
)

// =============================================================================
// GenAI Operation Names (for AttrGenAIOperationName)
// =============================================================================

const (
	OpChat       = "chat"
	OpEmbeddings = "embeddings"
	OpClassify   = "classify"
)
