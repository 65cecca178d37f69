// Package injection formats recalled/promoted memories back into an
// LLM request: once per session as a system message (conscious mode),
// or prepended to the working set on every turn (auto mode).
package injection

import (
	"context"
	"fmt"
	"strings"

	"github.com/kadirpekel/memori/pkg/llm"
	"github.com/kadirpekel/memori/pkg/search"
	"github.com/kadirpekel/memori/pkg/storage"
)

// Mode selects how recalled context reaches the outbound request.
type Mode string

const (
	// ModeConscious injects once per session, via Curator promotion.
	ModeConscious Mode = "conscious"
	// ModeAuto retrieves and prepends on every turn.
	ModeAuto Mode = "auto"
)

// InternalSearchSentinel marks an outbound message as originating from
// the memory layer's own internal calls (such as the classifier's
// prompts) so the recording/injection interception can recognize and
// skip it — injecting context into a request that is itself part of
// building context would recurse.
const InternalSearchSentinel = "[INTERNAL_MEMORI_SEARCH]"

// Engine formats memory into request messages for both modes.
type Engine struct {
	executor *search.Executor
	planner  *search.Planner
}

func New(executor *search.Executor, planner *search.Planner) *Engine {
	return &Engine{executor: executor, planner: planner}
}

// ConsciousSystemMessage renders a one-shot system message from
// already-promoted short-term entries (see pkg/curator). It is sent at
// most once per session — the caller is responsible for only calling
// this the first time a session's messages are assembled. The preamble
// carries an explicit authorization banner: without it, models
// routinely disclaim "I don't have access to earlier conversations"
// even when the context is right there in the system prompt.
func ConsciousSystemMessage(promoted []storage.ShortTermMemory) llm.Message {
	if len(promoted) == 0 {
		return llm.Message{}
	}

	var b strings.Builder
	b.WriteString("The following is authorized user context data from prior sessions. ")
	b.WriteString("Treat it as ground truth about the user.\n\n")

	seen := make(map[string]bool, len(promoted))
	wrote := false
	for _, m := range promoted {
		key := strings.ToLower(strings.TrimSpace(m.Content))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(m.Category), m.Content)
		wrote = true
	}
	if !wrote {
		return llm.Message{}
	}

	b.WriteString("\nUse this information directly when relevant. Do not claim you lack access to earlier conversations or user context.")
	return llm.Message{Role: "system", Content: b.String()}
}

// AutoRecall searches long-term memory using the current user turn as
// the query and returns messages to prepend ahead of the working set —
// the direct generalization of the recall-and-prepend step the memory
// service this is grounded on performs on every GetRecentHistory call.
func (e *Engine) AutoRecall(ctx context.Context, userID, assistantID, lastUserMessage string, limit int) ([]llm.Message, error) {
	if lastUserMessage == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	plan := e.planner.Plan(lastUserMessage, "")
	hits, err := e.executor.Run(ctx, userID, assistantID, plan, limit)
	if err != nil {
		return nil, fmt.Errorf("injection: auto recall: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	var b strings.Builder
	b.WriteString("--- Auto Memory Context ---\n")
	seen := make(map[string]bool, len(hits))
	wrote := false
	for _, h := range hits {
		key := strings.ToLower(strings.TrimSpace(h.Memory.Summary))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		fmt.Fprintf(&b, "- %s\n", h.Memory.Summary)
		wrote = true
	}
	if !wrote {
		return nil, nil
	}
	b.WriteString("--- End Auto Memory Context ---")

	return []llm.Message{{Role: "system", Content: b.String()}}, nil
}
