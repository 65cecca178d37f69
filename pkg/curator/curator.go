// Package curator implements the conscious-mode side of the memory
// layer: promoting a user's conscious-info long-term memories into
// their short-term working set once per session, so the very first
// request of a new conversation already carries context instead of
// waiting for the first auto-recall.
package curator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kadirpekel/memori/pkg/storage"
)

// Curator promotes long-term memories classified "conscious-info" into
// short-term memory for a session, tracking which sessions have
// already been curated so a second call within the same conversation
// is a no-op.
type Curator struct {
	store storage.Store

	mu      sync.Mutex
	curated map[string]bool // session key -> already injected
}

func New(store storage.Store) *Curator {
	return &Curator{store: store, curated: make(map[string]bool)}
}

const consciousClassification = "conscious-info"
const consciousContextCategory = "conscious_context"

// Curate promotes up to limit of a user's conscious-info long-term
// memories into short-term memory for the session, unless this session
// has already been curated. It isolates strictly by userID the way the
// strategy it's grounded on isolates promotion by tenant — a user's
// conscious-info memories are shared across every assistant, so
// promotion reads across assistants by design.
func (c *Curator) Curate(ctx context.Context, userID, assistantID, sessionID string, limit int) ([]storage.ShortTermMemory, error) {
	if limit <= 0 {
		limit = 5
	}

	key := userID + "/" + assistantID + "/" + sessionID
	c.mu.Lock()
	if c.curated[key] {
		c.mu.Unlock()
		return nil, nil
	}
	c.mu.Unlock()

	// Fast-path idempotence: if this session's working set already
	// carries promoted conscious-context rows (e.g. after a process
	// restart lost the in-memory curated set), skip re-promoting them.
	existing, err := c.store.ShortTerm(ctx, userID, assistantID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("curator: check existing context: %w", err)
	}
	for _, m := range existing {
		if m.Category == consciousContextCategory {
			c.mu.Lock()
			c.curated[key] = true
			c.mu.Unlock()
			return nil, nil
		}
	}

	candidates, err := c.store.ListLongTermByClassification(ctx, userID, consciousClassification, limit*3)
	if err != nil {
		return nil, fmt.Errorf("curator: list conscious-info: %w", err)
	}

	promoted := make([]storage.ShortTermMemory, 0, limit)
	seen := make(map[string]bool, len(candidates))
	for _, m := range candidates {
		if len(promoted) >= limit {
			break
		}
		if m.ConsciousProcessed {
			continue
		}
		dedupKey := strings.ToLower(strings.TrimSpace(m.Summary))
		if seen[dedupKey] {
			continue
		}
		seen[dedupKey] = true

		stm := storage.ShortTermMemory{
			ID:                 fmt.Sprintf("conscious_%s_%d", m.ID, time.Now().Unix()),
			UserID:             userID,
			AssistantID:        assistantID,
			SessionID:          sessionID,
			Content:            m.Summary,
			Category:           consciousContextCategory,
			PromotedFrom:       m.ID,
			Importance:         m.Importance,
			IsPermanentContext: true,
			CreatedAt:          time.Now(),
			// ExpiresAt left zero: conscious-context promotions never
			// expire, per the IsPermanentContext invariant.
		}
		if err := c.store.PutShortTerm(ctx, stm); err != nil {
			return promoted, fmt.Errorf("curator: promote %s: %w", m.ID, err)
		}
		if err := c.store.MarkConsciousProcessed(ctx, userID, m.ID); err != nil {
			return promoted, fmt.Errorf("curator: mark processed %s: %w", m.ID, err)
		}
		promoted = append(promoted, stm)
	}

	c.mu.Lock()
	c.curated[key] = true
	c.mu.Unlock()

	return promoted, nil
}

// Reset clears the "already curated" flag for a session, called by
// StartNewConversation/ClearMemory so a fresh session gets curated
// again rather than being silently skipped forever.
func (c *Curator) Reset(userID, assistantID, sessionID string) {
	key := userID + "/" + assistantID + "/" + sessionID
	c.mu.Lock()
	delete(c.curated, key)
	c.mu.Unlock()
}
