// Package storage defines the persistence contract for the two memory
// tiers plus the raw chat history they are derived from, and ships
// relational (SQLite/MySQL/PostgreSQL) and document (MongoDB) backends
// behind a single Store interface.
package storage

import "time"

// SchemaVersion is stamped into every persisted row/document's
// schema_version column/field so future migrations can branch on it instead
// of probing for optional keys.
const SchemaVersion = 1

// ChatHistory is one raw user/assistant exchange, recorded before any
// classification has run.
type ChatHistory struct {
	ID            string
	UserID        string
	AssistantID   string
	SessionID     string
	UserInput     string
	AssistantResp string
	Model         string
	Metadata      map[string]any
	CreatedAt     time.Time
}

// ShortTermMemory is a working-set entry: either a raw recent turn kept
// verbatim, or a promoted long-term memory surfaced back into the
// active session.
type ShortTermMemory struct {
	ID                 string
	UserID             string
	AssistantID        string
	SessionID          string
	ChatID             string // originating ChatHistory.ID, if any
	Content            string
	Category           string
	PromotedFrom       string // originating LongTermMemory.ID, if promoted
	Importance         float64
	IsPermanentContext bool // true for conscious-mode promotions: never expires, always visible
	CreatedAt          time.Time
	ExpiresAt          time.Time
}

// LongTermMemory is a durable, classified memory.
type LongTermMemory struct {
	ID          string
	UserID      string
	AssistantID string // empty means shared across every assistant for UserID
	SessionID   string
	ChatID      string
	Summary     string
	Category    string // fact, preference, skill, rule, context
	Importance  float64

	// Classification is the memory taxonomy the conscious/auto
	// pathways key off of: essential, contextual, conversational,
	// reference, personal, or conscious-info.
	Classification string
	// MemoryImportance is the classifier's coarse importance bucket
	// (critical, high, medium, low), distinct from the numeric
	// Importance score used for ranking.
	MemoryImportance string
	Topic            string

	// Conscious-mode flags: IsUserContext/IsPreference/IsSkillKnowledge/
	// IsCurrentProject describe what kind of durable fact this is;
	// PromotionEligible is stored as the classifier reported it. The
	// curator selects by Classification == "conscious-info" only and does
	// not read this flag.
	IsUserContext     bool
	IsPreference      bool
	IsSkillKnowledge  bool
	IsCurrentProject  bool
	PromotionEligible bool

	Entities        []string
	Keywords        []string
	DuplicateOf     string   // ID of the LongTermMemory this duplicates, if any
	Supersedes      []string // IDs of LongTermMemory rows this replaces
	RelatedMemories []string

	// ProcessedForDuplicates/ConsciousProcessed track background
	// processing state; neither ever changes the content fields above,
	// per the immutability invariant on stored long-term memory.
	ProcessedForDuplicates bool
	ConsciousProcessed     bool

	NoveltyScore       float64
	RelevanceScore     float64
	ActionabilityScore float64
	ConfidenceScore    float64

	SchemaVersion int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SearchQuery describes a search request over long-term memory.
type SearchQuery struct {
	UserID      string
	AssistantID string
	Text        string
	Category    string
	Limit       int
}

// SearchHit pairs a LongTermMemory with its backend search score.
type SearchHit struct {
	Memory LongTermMemory
	// Score is the raw search_score contributed by the stage that
	// produced this hit (bm25/MATCH rank, ts_rank, or a fixed 0.4 for
	// the portable LIKE fallback) — never overwritten by ranking.
	Score float64
	// Strategy names the stage that produced this hit (e.g. "fts5",
	// "mysql_fulltext", "postgres_tsvector"); a LIKE-fallback hit's
	// Strategy always ends in "_like_fallback".
	Strategy string
	// CompositeScore is search.Executor's 0.5/0.3/0.2 weighted blend of
	// Score, Memory.Importance, and recency, used to sort merged
	// results. Zero when a hit comes straight from storage.Store.
	CompositeScore float64
}
