package search

import (
	"context"
	"testing"

	"github.com/kadirpekel/memori/pkg/storage"
)

func TestPlanner_ShortQueryUsesKeywordStrategy(t *testing.T) {
	p := NewPlanner()
	plan := p.Plan("tea", "")
	if plan.Strategy != StrategyKeyword {
		t.Errorf("Strategy = %v, want %v", plan.Strategy, StrategyKeyword)
	}
}

func TestPlanner_LongQueryUsesHybridStrategy(t *testing.T) {
	p := NewPlanner()
	plan := p.Plan("what is my favorite kind of tea in the morning", "")
	if plan.Strategy != StrategyHybrid {
		t.Errorf("Strategy = %v, want %v", plan.Strategy, StrategyHybrid)
	}
}

func TestPlanner_CachesByQueryAndCategory(t *testing.T) {
	p := NewPlanner()
	first := p.Plan("Tea Preferences", "preference")
	second := p.Plan("Tea Preferences", "preference")
	if first != second {
		t.Errorf("expected identical plans from the cache, got %+v and %+v", first, second)
	}

	third := p.Plan("Tea Preferences", "fact")
	if third.Category == second.Category {
		t.Errorf("expected a different category to produce a distinct plan")
	}
}

// fakeStore is a minimal storage.Store stub exercising only
// SearchLongTerm, the one method Executor.Run calls.
type fakeStore struct {
	storage.Store
	hits []storage.SearchHit
	err  error
}

func (f *fakeStore) SearchLongTerm(ctx context.Context, q storage.SearchQuery) ([]storage.SearchHit, error) {
	return f.hits, f.err
}

type fakeEmbedder struct{ vec []float32 }

func (f fakeEmbedder) Embed(text string) ([]float32, error) { return f.vec, nil }

type fakeIndex struct{ hits []storage.SearchHit }

func (f fakeIndex) Search(ctx context.Context, userID, assistantID string, vec []float32, limit int) ([]storage.SearchHit, error) {
	return f.hits, nil
}

func TestExecutor_MergesKeywordAndSemanticHits(t *testing.T) {
	store := &fakeStore{hits: []storage.SearchHit{
		{Memory: storage.LongTermMemory{ID: "m1", Summary: "keyword hit"}, Score: 1.0},
	}}
	index := fakeIndex{hits: []storage.SearchHit{
		{Memory: storage.LongTermMemory{ID: "m1", Summary: "keyword hit"}, Score: 0.5}, // boosts m1
		{Memory: storage.LongTermMemory{ID: "m2", Summary: "semantic only"}, Score: 2.0},
	}}
	exec := NewExecutor(store, fakeEmbedder{vec: []float32{0.1}}, index)

	hits, err := exec.Run(context.Background(), "u1", "a1", Plan{Query: "q", Strategy: StrategyHybrid}, 10)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 merged hits, got %d: %+v", len(hits), hits)
	}
	// m2 (score 2.0) should rank above m1 (score 1.0+0.5=1.5).
	if hits[0].Memory.ID != "m2" {
		t.Errorf("expected m2 to rank first, got %+v", hits)
	}
	for _, h := range hits {
		if h.Memory.ID == "m1" && h.Score != 1.5 {
			t.Errorf("expected m1's scores to sum to 1.5, got %v", h.Score)
		}
	}
}

func TestExecutor_KeywordStrategySkipsSemanticStage(t *testing.T) {
	store := &fakeStore{hits: []storage.SearchHit{
		{Memory: storage.LongTermMemory{ID: "m1"}, Score: 1.0},
	}}
	index := fakeIndex{hits: []storage.SearchHit{
		{Memory: storage.LongTermMemory{ID: "m2"}, Score: 99.0},
	}}
	exec := NewExecutor(store, fakeEmbedder{}, index)

	hits, err := exec.Run(context.Background(), "u1", "a1", Plan{Query: "q", Strategy: StrategyKeyword}, 10)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(hits) != 1 || hits[0].Memory.ID != "m1" {
		t.Fatalf("expected only the keyword stage's hit, got %+v", hits)
	}
}

func TestExecutor_NilEmbedderDisablesSemanticStage(t *testing.T) {
	store := &fakeStore{hits: []storage.SearchHit{{Memory: storage.LongTermMemory{ID: "m1"}, Score: 1.0}}}
	exec := NewExecutor(store, nil, nil)

	hits, err := exec.Run(context.Background(), "u1", "a1", Plan{Query: "q", Strategy: StrategyHybrid}, 10)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected the keyword-only result, got %+v", hits)
	}
}
