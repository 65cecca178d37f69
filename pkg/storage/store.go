package storage

import "context"

// Store is the persistence contract every backend (SQL or document)
// implements. All operations are scoped by (userID, assistantID);
// sessionID further scopes short-term and chat-history operations,
// matching the composite-key multi-tenancy discipline the memory
// service this is grounded on enforces throughout.
type Store interface {
	// RecordChat appends a raw exchange to history.
	RecordChat(ctx context.Context, c ChatHistory) error

	// RecentChats returns the last n chat turns for a session, oldest
	// first.
	RecentChats(ctx context.Context, userID, assistantID, sessionID string, n int) ([]ChatHistory, error)

	// PutShortTerm upserts a working-set entry.
	PutShortTerm(ctx context.Context, m ShortTermMemory) error

	// ShortTerm returns the unexpired working set for a session, ordered
	// by importance, then newest first.
	ShortTerm(ctx context.Context, userID, assistantID, sessionID string) ([]ShortTermMemory, error)

	// EvictShortTerm removes a working-set entry (by ID) or, if id is
	// empty, the session's whole working set.
	EvictShortTerm(ctx context.Context, userID, assistantID, sessionID, id string) error

	// PutLongTerm inserts or updates a durable memory.
	PutLongTerm(ctx context.Context, m LongTermMemory) error

	// GetLongTerm fetches a single durable memory by ID.
	GetLongTerm(ctx context.Context, userID, assistantID, id string) (LongTermMemory, error)

	// ListLongTerm returns durable memories for a tenant, optionally
	// filtered to a category, newest first. A long-term memory whose
	// AssistantID is empty is shared across every assistant for
	// userID, so it is returned regardless of assistantID.
	ListLongTerm(ctx context.Context, userID, assistantID, category string, limit int) ([]LongTermMemory, error)

	// ListLongTermByClassification returns every long-term memory for
	// userID (across all assistants — the conscious curator isolates
	// by user, not by assistant) whose Classification matches.
	ListLongTermByClassification(ctx context.Context, userID, classification string, limit int) ([]LongTermMemory, error)

	// MarkConsciousProcessed flips a long-term memory's
	// ConsciousProcessed flag after the curator has promoted it, without
	// touching any other field (the immutability invariant only exempts
	// processing-state flags and relations, never content).
	MarkConsciousProcessed(ctx context.Context, userID, id string) error

	// DeleteLongTerm removes a durable memory.
	DeleteLongTerm(ctx context.Context, userID, assistantID, id string) error

	// SearchLongTerm runs the backend's native full-text/keyword match
	// (FTS5/MATCH.../tsvector/text-index/LIKE, depending on backend)
	// over durable memories and returns ranked hits.
	SearchLongTerm(ctx context.Context, q SearchQuery) ([]SearchHit, error)

	// ClearAll removes every memory (chat history, short-term,
	// long-term) for a tenant. sessionID empty clears the whole user.
	ClearAll(ctx context.Context, userID, assistantID, sessionID string) error

	// Stats reports row/document counts and an estimated byte size for
	// a tenant, for the quota layer and GetStats().
	Stats(ctx context.Context, userID, assistantID string) (Stats, error)

	Close() error
}

// Stats summarizes a tenant's current footprint.
type Stats struct {
	ChatCount      int64
	ShortTermCount int64
	LongTermCount  int64
	ApproxBytes    int64
}
