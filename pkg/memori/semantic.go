package memori

import (
	"context"
	"fmt"

	"github.com/kadirpekel/memori/pkg/embedders"
	"github.com/kadirpekel/memori/pkg/storage"
	"github.com/kadirpekel/memori/pkg/vector"
)

// longTermCollection is the single vector collection every tenant's
// long-term memories are upserted into; isolation between tenants is
// enforced by the user_id/assistant_id metadata filter, the same
// composite-key discipline pkg/storage.Store uses for its own queries.
const longTermCollection = "memori_long_term"

// semanticIndex adapts an embedders.EmbedderProvider and a
// vector.Provider into the two optional collaborators
// pkg/search.Executor and pkg/recording.Pipeline accept: the search
// side answers nearest-neighbor queries, the indexing side keeps the
// vector store in sync with every newly classified long-term memory.
type semanticIndex struct {
	embedder embedders.EmbedderProvider
	provider vector.Provider
}

// Embed satisfies pkg/search.Embedder.
func (s *semanticIndex) Embed(text string) ([]float32, error) {
	return s.embedder.Embed(text)
}

// Search satisfies pkg/search.VectorIndex, filtering hits down to the
// requesting tenant.
func (s *semanticIndex) Search(ctx context.Context, userID, assistantID string, vec []float32, limit int) ([]storage.SearchHit, error) {
	results, err := s.provider.SearchWithFilter(ctx, longTermCollection, vec, limit, map[string]any{
		"user_id": userID, "assistant_id": assistantID,
	})
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	hits := make([]storage.SearchHit, 0, len(results))
	for _, r := range results {
		mem := storage.LongTermMemory{ID: r.ID, UserID: userID, AssistantID: assistantID, Summary: r.Content}
		if cat, ok := r.Metadata["category"].(string); ok {
			mem.Category = cat
		}
		hits = append(hits, storage.SearchHit{Memory: mem, Score: float64(r.Score)})
	}
	return hits, nil
}

// Index satisfies pkg/recording.Indexer: embeds a memory's summary and
// upserts it alongside enough metadata for Search to reconstruct a
// storage.SearchHit without a second round trip to pkg/storage.
func (s *semanticIndex) Index(ctx context.Context, mem storage.LongTermMemory) error {
	vec, err := s.embedder.Embed(mem.Summary)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	metadata := map[string]any{
		"user_id":      mem.UserID,
		"assistant_id": mem.AssistantID,
		"category":     mem.Category,
		"content":      mem.Summary,
	}
	return s.provider.Upsert(ctx, longTermCollection, mem.ID, vec, metadata)
}
