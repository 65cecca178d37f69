package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore implements Store over database/sql for sqlite, mysql, and
// postgres, following the same dialect-branching discipline the
// session-store it's grounded on uses: every statement with a LIMIT or
// positional placeholder is built per-dialect at call time rather than
// templated through an ORM.
type SQLStore struct {
	db      *sql.DB
	dialect string
	mu      sync.Mutex
}

// SQLConfig configures a SQLStore.
type SQLConfig struct {
	Driver          string // postgres, mysql, sqlite
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (c *SQLConfig) setDefaults() {
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.Driver == "sqlite" {
		// A single open connection avoids "database is locked" errors
		// against a file-backed SQLite database under concurrent access.
		c.MaxOpenConns = 1
		c.MaxIdleConns = 1
	}
}

// NewSQLStore opens (or reuses) a database/sql connection and ensures
// the memori schema exists.
func NewSQLStore(cfg SQLConfig) (*SQLStore, error) {
	cfg.setDefaults()

	driverName := cfg.Driver
	if driverName == "sqlite" {
		driverName = "sqlite3"
	}

	switch cfg.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q (supported: postgres, mysql, sqlite)", cfg.Driver)
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", cfg.Driver, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: ping %s: %w", cfg.Driver, err)
	}

	s := &SQLStore{db: db, dialect: cfg.Driver}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) ph(n int) string {
	if s.dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// phList returns a comma-joined list of n placeholders starting at
// offset (1-indexed for postgres, ignored otherwise).
func (s *SQLStore) phList(offset, n int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = s.ph(offset + i)
	}
	return strings.Join(parts, ", ")
}

// assistantClause returns the long-term sharing rule: a memory whose
// assistant_id is NULL is visible to every assistant for the same
// user, so a non-null assistant filter must also admit NULL rows.
func (s *SQLStore) assistantClause(ph string) string {
	return fmt.Sprintf("(assistant_id = %s OR assistant_id IS NULL)", ph)
}

// prefixCols splits a comma-joined column list and prefixes each
// column name, for building an aliased SELECT list over a join.
func prefixCols(cols, prefix string) string {
	parts := strings.Split(cols, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(out, ", ")
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS chat_history (
    id VARCHAR(64) NOT NULL,
    user_id VARCHAR(255) NOT NULL,
    assistant_id VARCHAR(255) NOT NULL,
    session_id VARCHAR(255) NOT NULL,
    user_input TEXT NOT NULL,
    assistant_resp TEXT NOT NULL,
    model VARCHAR(255),
    metadata TEXT,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, user_id, assistant_id)
);
CREATE INDEX IF NOT EXISTS idx_chat_session ON chat_history(user_id, assistant_id, session_id, created_at);

CREATE TABLE IF NOT EXISTS short_term_memory (
    id VARCHAR(64) NOT NULL,
    user_id VARCHAR(255) NOT NULL,
    assistant_id VARCHAR(255) NOT NULL,
    session_id VARCHAR(255) NOT NULL,
    chat_id VARCHAR(64),
    content TEXT NOT NULL,
    category VARCHAR(64),
    promoted_from VARCHAR(64),
    importance REAL DEFAULT 0,
    is_permanent_context BOOLEAN DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP,
    PRIMARY KEY (id, user_id, assistant_id)
);
CREATE INDEX IF NOT EXISTS idx_stm_session ON short_term_memory(user_id, assistant_id, session_id);

CREATE TABLE IF NOT EXISTS long_term_memory (
    id VARCHAR(64) NOT NULL,
    user_id VARCHAR(255) NOT NULL,
    assistant_id VARCHAR(255),
    session_id VARCHAR(255),
    chat_id VARCHAR(64),
    summary TEXT NOT NULL,
    category VARCHAR(64),
    importance REAL,
    classification VARCHAR(32),
    memory_importance VARCHAR(16),
    topic VARCHAR(255),
    is_user_context BOOLEAN DEFAULT 0,
    is_preference BOOLEAN DEFAULT 0,
    is_skill_knowledge BOOLEAN DEFAULT 0,
    is_current_project BOOLEAN DEFAULT 0,
    promotion_eligible BOOLEAN DEFAULT 0,
    entities TEXT,
    keywords TEXT,
    duplicate_of VARCHAR(64),
    supersedes TEXT,
    related_memories TEXT,
    processed_for_duplicates BOOLEAN DEFAULT 0,
    conscious_processed BOOLEAN DEFAULT 0,
    novelty_score REAL,
    relevance_score REAL,
    actionability_score REAL,
    confidence_score REAL,
    schema_version INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_ltm_tenant ON long_term_memory(user_id, assistant_id, category);
CREATE INDEX IF NOT EXISTS idx_ltm_classification ON long_term_memory(user_id, classification);
`

// schemaSQLiteFTS is applied only on sqlite, after the base schema: the
// FTS5 virtual table is an external-content index over long_term_memory,
// so it only ever reflects reality via these INSERT/UPDATE/DELETE
// triggers — nothing in application code writes to it directly.
const schemaSQLiteFTS = `
CREATE VIRTUAL TABLE IF NOT EXISTS long_term_memory_fts USING fts5(
    summary, keywords, content='long_term_memory', content_rowid='rowid'
);
CREATE TRIGGER IF NOT EXISTS long_term_memory_ai AFTER INSERT ON long_term_memory BEGIN
  INSERT INTO long_term_memory_fts(rowid, summary, keywords) VALUES (new.rowid, new.summary, new.keywords);
END;
CREATE TRIGGER IF NOT EXISTS long_term_memory_ad AFTER DELETE ON long_term_memory BEGIN
  INSERT INTO long_term_memory_fts(long_term_memory_fts, rowid, summary, keywords) VALUES('delete', old.rowid, old.summary, old.keywords);
END;
CREATE TRIGGER IF NOT EXISTS long_term_memory_au AFTER UPDATE ON long_term_memory BEGIN
  INSERT INTO long_term_memory_fts(long_term_memory_fts, rowid, summary, keywords) VALUES('delete', old.rowid, old.summary, old.keywords);
  INSERT INTO long_term_memory_fts(rowid, summary, keywords) VALUES (new.rowid, new.summary, new.keywords);
END;
`

const schemaPostgresExtra = `
ALTER TABLE long_term_memory ADD COLUMN IF NOT EXISTS search_vector tsvector;
CREATE INDEX IF NOT EXISTS idx_ltm_search ON long_term_memory USING GIN(search_vector);
CREATE OR REPLACE FUNCTION long_term_memory_search_trigger() RETURNS trigger AS $$
begin
  new.search_vector := to_tsvector('english', coalesce(new.summary,'') || ' ' || coalesce(new.keywords,''));
  return new;
end
$$ LANGUAGE plpgsql;
DROP TRIGGER IF EXISTS ltm_search_update ON long_term_memory;
CREATE TRIGGER ltm_search_update BEFORE INSERT OR UPDATE ON long_term_memory
FOR EACH ROW EXECUTE FUNCTION long_term_memory_search_trigger();
`

const schemaMySQLExtra = `
ALTER TABLE long_term_memory ADD FULLTEXT INDEX idx_ltm_fulltext (summary, keywords);
`

func (s *SQLStore) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, schemaSQLite); err != nil {
		return fmt.Errorf("storage: init schema: %w", err)
	}

	switch s.dialect {
	case "sqlite":
		if _, err := s.db.ExecContext(ctx, schemaSQLiteFTS); err != nil {
			return fmt.Errorf("storage: init fts schema: %w", err)
		}
	case "postgres":
		// Best effort: ignore failures from repeated ALTER/TRIGGER
		// creation races, surfaced only as a warning path elsewhere.
		for _, stmt := range splitStatements(schemaPostgresExtra) {
			_, _ = s.db.ExecContext(ctx, stmt)
		}
	case "mysql":
		_, _ = s.db.ExecContext(ctx, schemaMySQLExtra)
	}

	return nil
}

func splitStatements(sqlText string) []string {
	var stmts []string
	for _, s := range strings.Split(sqlText, ";\n") {
		s = strings.TrimSpace(s)
		if s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

func encodeJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func decodeJSONMap(s string) map[string]any {
	if s == "" {
		return nil
	}
	var m map[string]any
	_ = json.Unmarshal([]byte(s), &m)
	return m
}

func decodeJSONStrings(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

// nullStr maps an empty string to SQL NULL, for columns (like
// long_term_memory.assistant_id) where empty means "no value" rather
// than "the empty string".
func nullStr(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func (s *SQLStore) RecordChat(ctx context.Context, c ChatHistory) error {
	q := fmt.Sprintf(`INSERT INTO chat_history
		(id, user_id, assistant_id, session_id, user_input, assistant_resp, model, metadata, created_at)
		VALUES (%s)`, s.phList(1, 9))
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, q,
		c.ID, c.UserID, c.AssistantID, c.SessionID, c.UserInput, c.AssistantResp,
		c.Model, encodeJSON(c.Metadata), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("storage: record chat: %w", err)
	}
	return nil
}

func (s *SQLStore) RecentChats(ctx context.Context, userID, assistantID, sessionID string, n int) ([]ChatHistory, error) {
	q := fmt.Sprintf(`SELECT id, user_id, assistant_id, session_id, user_input, assistant_resp, model, metadata, created_at
		FROM chat_history WHERE user_id = %s AND assistant_id = %s AND session_id = %s
		ORDER BY created_at DESC LIMIT %s`, s.ph(1), s.ph(2), s.ph(3), s.ph(4))

	rows, err := s.db.QueryContext(ctx, q, userID, assistantID, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("storage: recent chats: %w", err)
	}
	defer rows.Close()

	var out []ChatHistory
	for rows.Next() {
		var c ChatHistory
		var meta string
		if err := rows.Scan(&c.ID, &c.UserID, &c.AssistantID, &c.SessionID,
			&c.UserInput, &c.AssistantResp, &c.Model, &meta, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan chat: %w", err)
		}
		c.Metadata = decodeJSONMap(meta)
		out = append(out, c)
	}
	// Reverse to oldest-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

const shortTermCols = `id, user_id, assistant_id, session_id, chat_id, content, category, promoted_from, importance, is_permanent_context`

func (s *SQLStore) PutShortTerm(ctx context.Context, m ShortTermMemory) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	cols := shortTermCols + `, created_at, expires_at`
	args := []any{m.ID, m.UserID, m.AssistantID, m.SessionID, m.ChatID, m.Content, m.Category,
		m.PromotedFrom, m.Importance, m.IsPermanentContext, m.CreatedAt, nullTime(m.ExpiresAt)}

	if s.dialect == "mysql" {
		q := fmt.Sprintf(`REPLACE INTO short_term_memory (%s) VALUES (%s)`, cols, s.phList(1, 12))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("storage: put short-term: %w", err)
		}
		return nil
	}

	q := fmt.Sprintf(`INSERT INTO short_term_memory (%s) VALUES (%s)
		ON CONFLICT (id, user_id, assistant_id) DO UPDATE SET
		content = excluded.content, category = excluded.category, importance = excluded.importance,
		is_permanent_context = excluded.is_permanent_context, expires_at = excluded.expires_at`, cols, s.phList(1, 12))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("storage: put short-term: %w", err)
	}
	return nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// ShortTerm returns a session's working set, expiry-filtered (a row
// that is neither permanent nor still live is invisible to retrieval)
// and ordered by importance, then recency.
func (s *SQLStore) ShortTerm(ctx context.Context, userID, assistantID, sessionID string) ([]ShortTermMemory, error) {
	q := fmt.Sprintf(`SELECT %s, created_at, expires_at
		FROM short_term_memory WHERE user_id = %s AND assistant_id = %s AND session_id = %s
		AND (is_permanent_context = %s OR expires_at IS NULL OR expires_at > %s)
		ORDER BY importance DESC, created_at DESC`, shortTermCols, s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5))

	rows, err := s.db.QueryContext(ctx, q, userID, assistantID, sessionID, true, time.Now())
	if err != nil {
		return nil, fmt.Errorf("storage: short term: %w", err)
	}
	defer rows.Close()

	var out []ShortTermMemory
	for rows.Next() {
		var m ShortTermMemory
		var chatID, category, promotedFrom sql.NullString
		var expiresAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.UserID, &m.AssistantID, &m.SessionID,
			&chatID, &m.Content, &category, &promotedFrom, &m.Importance, &m.IsPermanentContext,
			&m.CreatedAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("storage: scan short-term: %w", err)
		}
		m.ChatID, m.Category, m.PromotedFrom = chatID.String, category.String, promotedFrom.String
		if expiresAt.Valid {
			m.ExpiresAt = expiresAt.Time
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLStore) EvictShortTerm(ctx context.Context, userID, assistantID, sessionID, id string) error {
	var q string
	var args []any
	if id != "" {
		q = fmt.Sprintf(`DELETE FROM short_term_memory WHERE user_id = %s AND assistant_id = %s AND id = %s`,
			s.ph(1), s.ph(2), s.ph(3))
		args = []any{userID, assistantID, id}
	} else {
		q = fmt.Sprintf(`DELETE FROM short_term_memory WHERE user_id = %s AND assistant_id = %s AND session_id = %s`,
			s.ph(1), s.ph(2), s.ph(3))
		args = []any{userID, assistantID, sessionID}
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("storage: evict short-term: %w", err)
	}
	return nil
}

const longTermCols = `id, user_id, assistant_id, session_id, chat_id, summary, category, importance,
	classification, memory_importance, topic, is_user_context, is_preference, is_skill_knowledge,
	is_current_project, promotion_eligible, entities, keywords, duplicate_of, supersedes,
	related_memories, processed_for_duplicates, conscious_processed, novelty_score, relevance_score,
	actionability_score, confidence_score, schema_version, created_at, updated_at`

const longTermColCount = 30

func (s *SQLStore) PutLongTerm(ctx context.Context, m LongTermMemory) error {
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	if m.SchemaVersion == 0 {
		m.SchemaVersion = SchemaVersion
	}

	const updateCols = `summary = excluded.summary, category = excluded.category, importance = excluded.importance,
		classification = excluded.classification, memory_importance = excluded.memory_importance, topic = excluded.topic,
		is_user_context = excluded.is_user_context, is_preference = excluded.is_preference,
		is_skill_knowledge = excluded.is_skill_knowledge, is_current_project = excluded.is_current_project,
		promotion_eligible = excluded.promotion_eligible, entities = excluded.entities, keywords = excluded.keywords,
		duplicate_of = excluded.duplicate_of, supersedes = excluded.supersedes, related_memories = excluded.related_memories,
		processed_for_duplicates = excluded.processed_for_duplicates, conscious_processed = excluded.conscious_processed,
		novelty_score = excluded.novelty_score, relevance_score = excluded.relevance_score,
		actionability_score = excluded.actionability_score, confidence_score = excluded.confidence_score,
		updated_at = excluded.updated_at`
	const updateColsMySQL = `summary=VALUES(summary), category=VALUES(category), importance=VALUES(importance),
		classification=VALUES(classification), memory_importance=VALUES(memory_importance), topic=VALUES(topic),
		is_user_context=VALUES(is_user_context), is_preference=VALUES(is_preference),
		is_skill_knowledge=VALUES(is_skill_knowledge), is_current_project=VALUES(is_current_project),
		promotion_eligible=VALUES(promotion_eligible), entities=VALUES(entities), keywords=VALUES(keywords),
		duplicate_of=VALUES(duplicate_of), supersedes=VALUES(supersedes), related_memories=VALUES(related_memories),
		processed_for_duplicates=VALUES(processed_for_duplicates), conscious_processed=VALUES(conscious_processed),
		novelty_score=VALUES(novelty_score), relevance_score=VALUES(relevance_score),
		actionability_score=VALUES(actionability_score), confidence_score=VALUES(confidence_score),
		updated_at=VALUES(updated_at)`

	var q string
	if s.dialect != "mysql" {
		q = fmt.Sprintf(`INSERT INTO long_term_memory (%s) VALUES (%s) ON CONFLICT (id, user_id) DO UPDATE SET %s`,
			longTermCols, s.phList(1, longTermColCount), updateCols)
	} else {
		q = fmt.Sprintf(`INSERT INTO long_term_memory (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s`,
			longTermCols, s.phList(1, longTermColCount), updateColsMySQL)
	}

	_, err := s.db.ExecContext(ctx, q,
		m.ID, m.UserID, nullStr(m.AssistantID), m.SessionID, m.ChatID, m.Summary, m.Category, m.Importance,
		m.Classification, m.MemoryImportance, m.Topic, m.IsUserContext, m.IsPreference, m.IsSkillKnowledge,
		m.IsCurrentProject, m.PromotionEligible, encodeJSON(m.Entities), encodeJSON(m.Keywords), m.DuplicateOf,
		encodeJSON(m.Supersedes), encodeJSON(m.RelatedMemories), m.ProcessedForDuplicates, m.ConsciousProcessed,
		m.NoveltyScore, m.RelevanceScore, m.ActionabilityScore, m.ConfidenceScore,
		m.SchemaVersion, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("storage: put long-term: %w", err)
	}
	return nil
}

func (s *SQLStore) scanLongTerm(rows *sql.Rows) (LongTermMemory, error) {
	var m LongTermMemory
	var assistantID, sessionID, chatID, category, classification, memImportance, topic sql.NullString
	var entities, keywords, duplicateOf, supersedes, related sql.NullString
	err := rows.Scan(
		&m.ID, &m.UserID, &assistantID, &sessionID, &chatID, &m.Summary, &category, &m.Importance,
		&classification, &memImportance, &topic, &m.IsUserContext, &m.IsPreference, &m.IsSkillKnowledge,
		&m.IsCurrentProject, &m.PromotionEligible, &entities, &keywords, &duplicateOf, &supersedes,
		&related, &m.ProcessedForDuplicates, &m.ConsciousProcessed, &m.NoveltyScore, &m.RelevanceScore,
		&m.ActionabilityScore, &m.ConfidenceScore, &m.SchemaVersion, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return m, err
	}
	populateLongTermFromScan(&m, assistantID, sessionID, chatID, category, classification, memImportance, topic,
		entities, keywords, duplicateOf, supersedes, related)
	return m, nil
}

func populateLongTermFromScan(m *LongTermMemory, assistantID, sessionID, chatID, category, classification,
	memImportance, topic, entities, keywords, duplicateOf, supersedes, related sql.NullString) {
	m.AssistantID, m.SessionID, m.ChatID = assistantID.String, sessionID.String, chatID.String
	m.Category, m.Classification, m.MemoryImportance, m.Topic = category.String, classification.String, memImportance.String, topic.String
	m.DuplicateOf = duplicateOf.String
	m.Entities = decodeJSONStrings(entities.String)
	m.Keywords = decodeJSONStrings(keywords.String)
	m.Supersedes = decodeJSONStrings(supersedes.String)
	m.RelatedMemories = decodeJSONStrings(related.String)
}

func (s *SQLStore) GetLongTerm(ctx context.Context, userID, assistantID, id string) (LongTermMemory, error) {
	q := fmt.Sprintf(`SELECT %s FROM long_term_memory WHERE user_id = %s AND %s AND id = %s`,
		longTermCols, s.ph(1), s.assistantClause(s.ph(2)), s.ph(3))
	rows, err := s.db.QueryContext(ctx, q, userID, assistantID, id)
	if err != nil {
		return LongTermMemory{}, fmt.Errorf("storage: get long-term: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return LongTermMemory{}, fmt.Errorf("storage: long-term memory %q not found", id)
	}
	return s.scanLongTerm(rows)
}

func (s *SQLStore) ListLongTerm(ctx context.Context, userID, assistantID, category string, limit int) ([]LongTermMemory, error) {
	var q string
	var args []any
	if category != "" {
		q = fmt.Sprintf(`SELECT %s FROM long_term_memory WHERE user_id = %s AND %s AND category = %s
			ORDER BY created_at DESC LIMIT %s`, longTermCols, s.ph(1), s.assistantClause(s.ph(2)), s.ph(3), s.ph(4))
		args = []any{userID, assistantID, category, limit}
	} else {
		q = fmt.Sprintf(`SELECT %s FROM long_term_memory WHERE user_id = %s AND %s
			ORDER BY created_at DESC LIMIT %s`, longTermCols, s.ph(1), s.assistantClause(s.ph(2)), s.ph(3))
		args = []any{userID, assistantID, limit}
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list long-term: %w", err)
	}
	defer rows.Close()

	var out []LongTermMemory
	for rows.Next() {
		m, err := s.scanLongTerm(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan long-term: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListLongTermByClassification fetches every long-term memory for
// userID matching classification, across every assistant — the
// conscious curator promotes by user, not by assistant.
func (s *SQLStore) ListLongTermByClassification(ctx context.Context, userID, classification string, limit int) ([]LongTermMemory, error) {
	if limit <= 0 {
		limit = 100
	}
	q := fmt.Sprintf(`SELECT %s FROM long_term_memory WHERE user_id = %s AND classification = %s
		ORDER BY importance DESC, created_at DESC LIMIT %s`, longTermCols, s.ph(1), s.ph(2), s.ph(3))

	rows, err := s.db.QueryContext(ctx, q, userID, classification, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: list long-term by classification: %w", err)
	}
	defer rows.Close()

	var out []LongTermMemory
	for rows.Next() {
		m, err := s.scanLongTerm(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan long-term: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkConsciousProcessed flips conscious_processed on a long-term
// memory after it has been promoted, without touching any other field.
func (s *SQLStore) MarkConsciousProcessed(ctx context.Context, userID, id string) error {
	q := fmt.Sprintf(`UPDATE long_term_memory SET conscious_processed = %s WHERE user_id = %s AND id = %s`,
		s.ph(1), s.ph(2), s.ph(3))
	if _, err := s.db.ExecContext(ctx, q, true, userID, id); err != nil {
		return fmt.Errorf("storage: mark conscious processed: %w", err)
	}
	return nil
}

func (s *SQLStore) DeleteLongTerm(ctx context.Context, userID, assistantID, id string) error {
	q := fmt.Sprintf(`DELETE FROM long_term_memory WHERE user_id = %s AND %s AND id = %s`,
		s.ph(1), s.assistantClause(s.ph(2)), s.ph(3))
	if _, err := s.db.ExecContext(ctx, q, userID, assistantID, id); err != nil {
		return fmt.Errorf("storage: delete long-term: %w", err)
	}
	return nil
}

// SearchLongTerm uses the dialect's native full-text facility where
// available (FTS5 on sqlite, MATCH...AGAINST on mysql, tsvector/GIN on
// postgres) and falls back to a LIKE scan otherwise.
func (s *SQLStore) SearchLongTerm(ctx context.Context, q SearchQuery) ([]SearchHit, error) {
	if q.Limit <= 0 {
		q.Limit = 10
	}

	switch s.dialect {
	case "sqlite":
		return s.searchFTS5(ctx, q)
	case "mysql":
		return s.searchMySQLFulltext(ctx, q)
	case "postgres":
		return s.searchPostgresTSVector(ctx, q)
	default:
		return s.searchLike(ctx, q, "basic")
	}
}

func (s *SQLStore) searchFTS5(ctx context.Context, q SearchQuery) ([]SearchHit, error) {
	where := fmt.Sprintf(`user_id = %s AND %s`, s.ph(2), s.assistantClause(s.ph(3)))
	args := []any{q.Text, q.UserID, q.AssistantID}
	catClause := ""
	if q.Category != "" {
		catClause = fmt.Sprintf(` AND category = %s`, s.ph(4))
		args = append(args, q.Category)
	}
	args = append(args, q.Limit)
	limitPh := s.ph(len(args))

	stmt := fmt.Sprintf(`SELECT %s, bm25(long_term_memory_fts) AS rank
		FROM long_term_memory_fts f JOIN long_term_memory l ON f.rowid = l.rowid
		WHERE long_term_memory_fts MATCH %s AND %s%s
		ORDER BY rank LIMIT %s`, prefixCols(longTermCols, "l."), s.ph(1), where, catClause, limitPh)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		// FTS5 query syntax errors on malformed input; fall back rather
		// than surface a confusing MATCH parse error to callers.
		return s.searchLike(ctx, q, "fts5")
	}
	defer rows.Close()

	var out []SearchHit
	for rows.Next() {
		var rank float64
		m, err := s.scanLongTermWithRank(rows, &rank)
		if err != nil {
			continue
		}
		out = append(out, SearchHit{Memory: m, Score: -rank, Strategy: "fts5"})
	}
	return out, rows.Err()
}

func (s *SQLStore) scanLongTermWithRank(rows *sql.Rows, rank *float64) (LongTermMemory, error) {
	var m LongTermMemory
	var assistantID, sessionID, chatID, category, classification, memImportance, topic sql.NullString
	var entities, keywords, duplicateOf, supersedes, related sql.NullString
	err := rows.Scan(
		&m.ID, &m.UserID, &assistantID, &sessionID, &chatID, &m.Summary, &category, &m.Importance,
		&classification, &memImportance, &topic, &m.IsUserContext, &m.IsPreference, &m.IsSkillKnowledge,
		&m.IsCurrentProject, &m.PromotionEligible, &entities, &keywords, &duplicateOf, &supersedes,
		&related, &m.ProcessedForDuplicates, &m.ConsciousProcessed, &m.NoveltyScore, &m.RelevanceScore,
		&m.ActionabilityScore, &m.ConfidenceScore, &m.SchemaVersion, &m.CreatedAt, &m.UpdatedAt, rank,
	)
	if err != nil {
		return m, err
	}
	populateLongTermFromScan(&m, assistantID, sessionID, chatID, category, classification, memImportance, topic,
		entities, keywords, duplicateOf, supersedes, related)
	return m, nil
}

func (s *SQLStore) searchMySQLFulltext(ctx context.Context, q SearchQuery) ([]SearchHit, error) {
	stmt := fmt.Sprintf(`SELECT %s, MATCH(summary, keywords) AGAINST (%s) AS score
		FROM long_term_memory WHERE user_id = %s AND %s
		AND MATCH(summary, keywords) AGAINST (%s) ORDER BY score DESC LIMIT %s`,
		longTermCols, s.ph(1), s.ph(2), s.assistantClause(s.ph(3)), s.ph(4), s.ph(5))
	rows, err := s.db.QueryContext(ctx, stmt, q.Text, q.UserID, q.AssistantID, q.Text, q.Limit)
	if err != nil {
		return s.searchLike(ctx, q, "mysql_fulltext")
	}
	defer rows.Close()

	var out []SearchHit
	for rows.Next() {
		var score float64
		m, err := s.scanLongTermWithRank(rows, &score)
		if err != nil {
			continue
		}
		out = append(out, SearchHit{Memory: m, Score: score, Strategy: "mysql_fulltext"})
	}
	return out, rows.Err()
}

func (s *SQLStore) searchPostgresTSVector(ctx context.Context, q SearchQuery) ([]SearchHit, error) {
	stmt := fmt.Sprintf(`SELECT %s, ts_rank(search_vector, plainto_tsquery('english', %s)) AS score
		FROM long_term_memory WHERE user_id = %s AND %s
		AND search_vector @@ plainto_tsquery('english', %s)
		ORDER BY score DESC LIMIT %s`,
		longTermCols, s.ph(1), s.ph(2), s.assistantClause(s.ph(3)), s.ph(4), s.ph(5))
	rows, err := s.db.QueryContext(ctx, stmt, q.Text, q.UserID, q.AssistantID, q.Text, q.Limit)
	if err != nil {
		return s.searchLike(ctx, q, "postgres_tsvector")
	}
	defer rows.Close()

	var out []SearchHit
	for rows.Next() {
		var score float64
		m, err := s.scanLongTermWithRank(rows, &score)
		if err != nil {
			continue
		}
		out = append(out, SearchHit{Memory: m, Score: score, Strategy: "postgres_tsvector"})
	}
	return out, rows.Err()
}

// searchLike is the portable fallback: substring match over summary,
// with a fixed search_score (no term-frequency scoring — the LIKE path
// makes no relevance claim stronger than "the text is present") and a
// Strategy tagged "<base>_like_fallback" so callers can tell a result
// came from the degraded path.
func (s *SQLStore) searchLike(ctx context.Context, q SearchQuery, baseStrategy string) ([]SearchHit, error) {
	like := "%" + strings.ToLower(q.Text) + "%"
	stmt := fmt.Sprintf(`SELECT %s FROM long_term_memory
		WHERE user_id = %s AND %s AND LOWER(summary) LIKE %s
		ORDER BY created_at DESC LIMIT %s`, longTermCols, s.ph(1), s.assistantClause(s.ph(2)), s.ph(3), s.ph(4))

	rows, err := s.db.QueryContext(ctx, stmt, q.UserID, q.AssistantID, like, q.Limit*4)
	if err != nil {
		return nil, fmt.Errorf("storage: like search: %w", err)
	}
	defer rows.Close()

	strategy := baseStrategy + "_like_fallback"
	var out []SearchHit
	for rows.Next() {
		m, err := s.scanLongTerm(rows)
		if err != nil {
			continue
		}
		out = append(out, SearchHit{Memory: m, Score: 0.4, Strategy: strategy})
	}
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, rows.Err()
}

func (s *SQLStore) ClearAll(ctx context.Context, userID, assistantID, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: clear all: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	tables := []string{"chat_history", "short_term_memory", "long_term_memory"}
	for _, t := range tables {
		var stmt string
		var args []any
		switch {
		case t == "long_term_memory":
			stmt = fmt.Sprintf(`DELETE FROM %s WHERE user_id = %s AND %s`, t, s.ph(1), s.assistantClause(s.ph(2)))
			args = []any{userID, assistantID}
		case sessionID != "":
			stmt = fmt.Sprintf(`DELETE FROM %s WHERE user_id = %s AND assistant_id = %s AND session_id = %s`,
				t, s.ph(1), s.ph(2), s.ph(3))
			args = []any{userID, assistantID, sessionID}
		default:
			stmt = fmt.Sprintf(`DELETE FROM %s WHERE user_id = %s AND assistant_id = %s`, t, s.ph(1), s.ph(2))
			args = []any{userID, assistantID}
		}
		if _, err = tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("storage: clear %s: %w", t, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("storage: clear all commit: %w", err)
	}
	return nil
}

func (s *SQLStore) Stats(ctx context.Context, userID, assistantID string) (Stats, error) {
	var st Stats

	qChat := fmt.Sprintf(`SELECT COUNT(*) FROM chat_history WHERE user_id = %s AND assistant_id = %s`, s.ph(1), s.ph(2))
	if err := s.db.QueryRowContext(ctx, qChat, userID, assistantID).Scan(&st.ChatCount); err != nil {
		return st, fmt.Errorf("storage: stats chat_history: %w", err)
	}
	qStm := fmt.Sprintf(`SELECT COUNT(*) FROM short_term_memory WHERE user_id = %s AND assistant_id = %s`, s.ph(1), s.ph(2))
	if err := s.db.QueryRowContext(ctx, qStm, userID, assistantID).Scan(&st.ShortTermCount); err != nil {
		return st, fmt.Errorf("storage: stats short_term_memory: %w", err)
	}
	qLtm := fmt.Sprintf(`SELECT COUNT(*) FROM long_term_memory WHERE user_id = %s AND %s`, s.ph(1), s.assistantClause(s.ph(2)))
	if err := s.db.QueryRowContext(ctx, qLtm, userID, assistantID).Scan(&st.LongTermCount); err != nil {
		return st, fmt.Errorf("storage: stats long_term_memory: %w", err)
	}

	// ApproxBytes is a rough estimate (summary length), good enough for
	// the storage-bytes quota dimension without a dialect-specific
	// "pg_total_relation_size"-style query per tenant.
	qBytes := fmt.Sprintf(`SELECT COALESCE(SUM(LENGTH(summary)), 0) FROM long_term_memory WHERE user_id = %s AND %s`,
		s.ph(1), s.assistantClause(s.ph(2)))
	_ = s.db.QueryRowContext(ctx, qBytes, userID, assistantID).Scan(&st.ApproxBytes)
	return st, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection pool so collaborators that need
// their own tables on the same database (see pkg/ratelimit.SQLStore)
// can share it instead of opening a second pool.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Dialect reports the SQL dialect this store was opened with
// ("sqlite", "mysql", or "postgres").
func (s *SQLStore) Dialect() string {
	return s.dialect
}
