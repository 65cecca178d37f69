// Package classifier turns a raw chat exchange into a Classification
// suitable for long-term storage: category, importance, the
// conscious-mode taxonomy, extracted entities/keywords, a summary, and
// (if the LLM recognizes it) the ID of an existing memory this one
// supersedes or duplicates.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kadirpekel/memori/pkg/llm"
	"github.com/kadirpekel/memori/pkg/memerr"
)

// Classification is the structured result of classifying one exchange.
type Classification struct {
	Category   string  `json:"category"`
	Importance float64 `json:"importance"`

	// Taxonomy is the conscious/auto-pathway classification: essential,
	// contextual, conversational, reference, personal, or
	// conscious-info. A row with Taxonomy == "conscious-info" is a
	// candidate for the conscious curator's promotion.
	Taxonomy string `json:"classification"`
	// MemoryImportance is the classifier's coarse importance bucket
	// (critical, high, medium, low), distinct from the numeric
	// Importance score above.
	MemoryImportance string `json:"memory_importance"`
	Topic            string `json:"topic"`

	IsUserContext     bool `json:"is_user_context"`
	IsPreference      bool `json:"is_preference"`
	IsSkillKnowledge  bool `json:"is_skill_knowledge"`
	IsCurrentProject  bool `json:"is_current_project"`
	PromotionEligible bool `json:"promotion_eligible"`

	Entities           []string `json:"entities"`
	Keywords           []string `json:"keywords"`
	Summary            string   `json:"summary"`
	DuplicateOf        string   `json:"duplicate_of,omitempty"`
	Supersedes         []string `json:"supersedes,omitempty"`
	RelatedMemories    []string `json:"related_memories,omitempty"`
	ConfidenceScore    float64  `json:"confidence_score"`
	ClassificationNote string   `json:"classification_reason,omitempty"`
}

var schema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"category":         map[string]any{"type": "string", "enum": []string{"fact", "preference", "skill", "rule", "context"}},
		"importance":       map[string]any{"type": "number"},
		"classification":   map[string]any{"type": "string", "enum": []string{"essential", "contextual", "conversational", "reference", "personal", "conscious-info"}},
		"memory_importance": map[string]any{"type": "string", "enum": []string{"critical", "high", "medium", "low"}},
		"topic":              map[string]any{"type": "string"},
		"is_user_context":    map[string]any{"type": "boolean"},
		"is_preference":      map[string]any{"type": "boolean"},
		"is_skill_knowledge": map[string]any{"type": "boolean"},
		"is_current_project": map[string]any{"type": "boolean"},
		"promotion_eligible": map[string]any{"type": "boolean"},
		"entities":           map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"keywords":           map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"summary":            map[string]any{"type": "string"},
		"duplicate_of":       map[string]any{"type": "string"},
		"supersedes":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"related_memories":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"confidence_score":   map[string]any{"type": "number"},
		"classification_reason": map[string]any{"type": "string"},
	},
	"required": []string{"category", "importance", "classification", "summary"},
}

// promptTemplate opens with the memory layer's internal-call sentinel
// so a wrapped provider neither injects into nor records these calls.
const promptTemplate = `[INTERNAL_MEMORI_SEARCH]
You are a memory classifier for a conversational AI system. Given one
exchange between a user and an assistant, decide what, if anything,
should be remembered long-term.

Guidelines:
- category is one of: fact, preference, skill, rule, context
- importance is a number from 0.0 (forgettable) to 1.0 (critical)
- classification is one of: essential, contextual, conversational, reference, personal, conscious-info
  (use conscious-info for durable facts about the user worth surfacing at the start of every session:
  their name, stated preferences, ongoing projects, skills)
- memory_importance is one of: critical, high, medium, low
- is_user_context/is_preference/is_skill_knowledge/is_current_project flag what kind of durable fact this is
- promotion_eligible is true when this memory should be eligible for conscious-mode promotion
- entities are proper nouns or named concepts mentioned
- keywords are short retrieval terms, lowercase
- summary is a concise, self-contained statement of what to remember
- duplicate_of should reference an existing memory ID only if one of
  the candidate memories below clearly describes the same fact
- confidence_score is a number from 0.0 to 1.0 reflecting how sure you are of this classification

Exchange:
User: %s
Assistant: %s

Candidate existing memories (ID: summary), or none:
%s

Respond with ONLY a JSON object matching the required schema.`

// Classifier wraps an llm.Provider with the classification prompt and
// schema, retrying transient failures before giving up.
type Classifier struct {
	provider   llm.Provider
	maxRetries int
	retryGap   time.Duration
}

// Config configures a Classifier.
type Config struct {
	Provider   llm.Provider
	MaxRetries int           // default 2
	RetryGap   time.Duration // default 2s
}

func New(cfg Config) (*Classifier, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("classifier: provider is required")
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryGap == 0 {
		cfg.RetryGap = 2 * time.Second
	}
	return &Classifier{provider: cfg.Provider, maxRetries: cfg.MaxRetries, retryGap: cfg.RetryGap}, nil
}

// Candidate is an existing long-term memory offered to the classifier
// as deduplication context.
type Candidate struct {
	ID      string
	Summary string
}

// Classify runs the LLM call (with retries) and parses its response.
// The call runs with a 60-second timeout per attempt, per the pipeline's
// classification budget; the context passed in should already carry
// that deadline (or a shorter caller-imposed one).
func (c *Classifier) Classify(ctx context.Context, userInput, assistantResp string, candidates []Candidate) (Classification, error) {
	var candText strings.Builder
	if len(candidates) == 0 {
		candText.WriteString("none")
	}
	for _, cand := range candidates {
		fmt.Fprintf(&candText, "%s: %s\n", cand.ID, cand.Summary)
	}

	prompt := fmt.Sprintf(promptTemplate, userInput, assistantResp, candText.String())
	messages := []llm.Message{{Role: "user", Content: prompt}}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Classification{}, ctx.Err()
			case <-time.After(c.retryGap):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		var text string
		var err error
		if c.provider.SupportsStructuredOutput() {
			text, _, err = c.provider.GenerateStructured(callCtx, messages, llm.StructuredOutputConfig{
				Schema: schema, Name: "memory_classification", Strict: true,
			})
		} else {
			text, _, err = c.provider.GenerateStructured(callCtx, messages, llm.StructuredOutputConfig{Schema: schema})
		}
		cancel()
		if err != nil {
			lastErr = err
			continue
		}

		cls, parseErr := parseClassification(text)
		if parseErr != nil {
			lastErr = parseErr
			continue
		}
		return cls, nil
	}

	return Classification{}, fmt.Errorf("classifier: failed after %d attempts: %w: %w", c.maxRetries+1, memerr.ErrClassifierFailed, lastErr)
}

// parseClassification extracts the JSON object from text, tolerating
// surrounding prose a provider without native structured output might
// still produce despite the schema-in-prompt instruction.
func parseClassification(text string) (Classification, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return Classification{}, fmt.Errorf("classifier: no JSON object in response")
	}

	var cls Classification
	if err := json.Unmarshal([]byte(text[start:end+1]), &cls); err != nil {
		return Classification{}, fmt.Errorf("classifier: invalid JSON: %w", err)
	}
	if cls.Summary == "" {
		return Classification{}, fmt.Errorf("classifier: missing summary")
	}
	return cls, nil
}
