// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// NoopManager returns a no-operation Manager that does nothing.
// Use this when observability is completely disabled.
func NoopManager() *Manager {
	return &Manager{}
}

// NoopTracer returns a no-operation Tracer.
type NoopTracer struct{}

func (NoopTracer) Start(ctx context.Context, _ string, _ ...trace.SpanStartOption) (context.Context, trace.Span) {
	return ctx, noopSpan()
}

func (NoopTracer) StartMemoryRecord(ctx context.Context, _, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan()
}

func (NoopTracer) StartClassify(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan()
}

func (NoopTracer) StartMemorySearch(ctx context.Context, _, _ string, _ int) (context.Context, trace.Span) {
	return ctx, noopSpan()
}

func (NoopTracer) StartInjection(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan()
}

func (NoopTracer) StartLLMCall(ctx context.Context, _ string, _ int, _ float64) (context.Context, trace.Span) {
	return ctx, noopSpan()
}

func (NoopTracer) AddClassifyResult(_ trace.Span, _ string, _ int) {}
func (NoopTracer) AddSearchResults(_ trace.Span, _ int)            {}
func (NoopTracer) AddLLMUsage(_ trace.Span, _, _ int)              {}
func (NoopTracer) AddLLMFinishReason(_ trace.Span, _ string)       {}
func (NoopTracer) AddPayload(_ trace.Span, _, _ string)            {}
func (NoopTracer) RecordError(_ trace.Span, _ error)               {}
func (NoopTracer) DebugExporter() *DebugExporter    { return nil }
func (NoopTracer) Shutdown(_ context.Context) error { return nil }

// Metrics itself is nil-safe on every method (see metrics.go), so there is
// no separate NoopMetrics type: callers pass a nil *Metrics directly.
