// Package search plans and executes queries over long-term memory: the
// store's own keyword/full-text search always runs, an optional
// semantic (embedding) stage contributes additional candidates, and
// results are merged into one ranked list.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kadirpekel/memori/pkg/storage"
)

// Strategy selects which stages a plan runs.
type Strategy string

const (
	StrategyKeyword  Strategy = "keyword"
	StrategySemantic Strategy = "semantic"
	StrategyHybrid   Strategy = "hybrid"
)

// Plan is the output of the Planner: a normalized query plus the
// strategy to execute it with.
type Plan struct {
	Query    string
	Category string
	Strategy Strategy
}

// Embedder is the optional semantic-search collaborator; nil disables
// the semantic stage entirely.
type Embedder interface {
	Embed(text string) ([]float32, error)
}

// VectorIndex is the optional semantic-search backend paired with an
// Embedder.
type VectorIndex interface {
	Search(ctx context.Context, userID, assistantID string, vector []float32, limit int) ([]storage.SearchHit, error)
}

// Planner extracts keywords from free text and decides a search
// strategy. It has no storage dependency: it is pure text analysis,
// grounded on the same tokenize-and-filter approach the keyword index
// it's paired with uses to build its own terms.
type Planner struct {
	cacheMu sync.Mutex
	cache   map[string]cachedPlan
	ttl     time.Duration
}

type cachedPlan struct {
	plan    Plan
	expires time.Time
}

func NewPlanner() *Planner {
	return &Planner{cache: make(map[string]cachedPlan), ttl: 5 * time.Minute}
}

// Plan builds (or returns a cached) Plan for a query. The cache key is
// the query text and category only — it intentionally excludes tenant,
// since two tenants asking the same question get the same plan shape.
func (p *Planner) Plan(query, category string) Plan {
	key := strings.ToLower(query) + "|" + category

	p.cacheMu.Lock()
	if c, ok := p.cache[key]; ok && time.Now().Before(c.expires) {
		p.cacheMu.Unlock()
		return c.plan
	}
	p.cacheMu.Unlock()

	plan := Plan{
		Query:    strings.TrimSpace(query),
		Category: category,
		Strategy: StrategyHybrid,
	}
	if len(tokenize(query)) <= 2 {
		plan.Strategy = StrategyKeyword
	}

	p.cacheMu.Lock()
	p.cache[key] = cachedPlan{plan: plan, expires: time.Now().Add(p.ttl)}
	p.cacheMu.Unlock()

	return plan
}

func tokenize(text string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if len(w) > 2 {
			out = append(out, w)
		}
	}
	return out
}

// Executor runs a Plan against a Store (required, backend full-text)
// and an optional Embedder+VectorIndex pair (semantic stage), merging
// and ranking results.
type Executor struct {
	store    storage.Store
	embedder Embedder
	index    VectorIndex
}

func NewExecutor(store storage.Store, embedder Embedder, index VectorIndex) *Executor {
	return &Executor{store: store, embedder: embedder, index: index}
}

// Run executes plan for a tenant and returns ranked hits, deduplicated
// by memory ID, keyword and semantic scores summed when both stages
// surface the same memory.
func (e *Executor) Run(ctx context.Context, userID, assistantID string, plan Plan, limit int) ([]storage.SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}

	hits, err := e.store.SearchLongTerm(ctx, storage.SearchQuery{
		UserID: userID, AssistantID: assistantID, Text: plan.Query, Category: plan.Category, Limit: limit * 2,
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*storage.SearchHit, len(hits))
	order := make([]string, 0, len(hits))
	for i := range hits {
		h := hits[i]
		byID[h.Memory.ID] = &h
		order = append(order, h.Memory.ID)
	}

	if plan.Strategy != StrategyKeyword && e.embedder != nil && e.index != nil {
		if vector, err := e.embedder.Embed(plan.Query); err == nil {
			semHits, err := e.index.Search(ctx, userID, assistantID, vector, limit*2)
			if err == nil {
				for _, h := range semHits {
					if existing, ok := byID[h.Memory.ID]; ok {
						existing.Score += h.Score
						continue
					}
					hc := h
					byID[h.Memory.ID] = &hc
					order = append(order, h.Memory.ID)
				}
			}
		}
	}

	merged := make([]storage.SearchHit, 0, len(order))
	for _, id := range order {
		h := *byID[id]
		h.CompositeScore = compositeScore(h)
		merged = append(merged, h)
	}
	sortByCompositeScoreDesc(merged)

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// compositeScore blends the raw backend search score with importance
// and recency: a highly relevant but stale memory still ranks below a
// moderately relevant, important, recent one.
func compositeScore(h storage.SearchHit) float64 {
	return 0.5*h.Score + 0.3*importanceScore(h.Memory.Importance) + 0.2*recencyScore(h.Memory.CreatedAt)
}

// importanceScore clamps the stored 0-1 importance into [0,1]; a
// zero-value (unset) importance contributes nothing rather than being
// read as "most important".
func importanceScore(importance float64) float64 {
	if importance <= 0 {
		return 0
	}
	if importance >= 1 {
		return 1
	}
	return importance
}

// recencyScore decays linearly to zero over 30 days, per the composite
// ranking formula: a memory created "now" scores 1, one 30+ days old
// scores 0.
func recencyScore(createdAt time.Time) float64 {
	if createdAt.IsZero() {
		return 0
	}
	days := time.Since(createdAt).Hours() / 24
	score := 1 - days/30
	if score < 0 {
		return 0
	}
	return score
}

func sortByCompositeScoreDesc(hits []storage.SearchHit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].CompositeScore > hits[j-1].CompositeScore; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}
