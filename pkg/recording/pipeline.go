// Package recording intercepts LLM exchanges and feeds them through
// classification into storage. Interception is done by decoration —
// Wrap returns an llm.Provider that behaves exactly like the one it
// wraps, with recording as a side effect — rather than by patching the
// wrapped client's methods at runtime.
package recording

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/memori/pkg/classifier"
	"github.com/kadirpekel/memori/pkg/executor"
	"github.com/kadirpekel/memori/pkg/storage"
)

// Indexer is the optional semantic-search collaborator: once a
// long-term memory is stored, Index embeds its text and upserts it
// into a vector backend so search.Executor's semantic stage can find
// it. A nil Indexer simply disables that stage; the keyword/full-text
// search pkg/storage already performs is unaffected.
type Indexer interface {
	Index(ctx context.Context, mem storage.LongTermMemory) error
}

// dedupWindow is how long a fingerprint is remembered: two calls to
// Record with the same (user_input, ai_output, session_id) inside this
// window are treated as the same exchange (e.g. a retried request from
// an at-least-once delivery integration) rather than recorded twice.
const dedupWindow = 5 * time.Second

// Pipeline records one exchange: append to chat history, classify, and
// (if not a suppressed duplicate) store as long-term memory. It never
// writes long-term memory before the chat-history append has
// succeeded, the same ordering invariant the batch-and-flush memory
// service this is grounded on enforces.
type Pipeline struct {
	store      storage.Store
	classifier *classifier.Classifier
	exec       *executor.Executor
	indexer    Indexer
	log        *slog.Logger

	seenMu sync.Mutex
	seen   map[string]seenEntry // fingerprint -> (chat_id, first-seen time)
}

type seenEntry struct {
	chatID string
	at     time.Time
}

// Config configures a Pipeline.
type Config struct {
	Store      storage.Store
	Classifier *classifier.Classifier
	Executor   *executor.Executor // optional; nil runs classification inline
	Indexer    Indexer            // optional; nil disables semantic indexing
	Logger     *slog.Logger
}

func New(cfg Config) (*Pipeline, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("recording: store is required")
	}
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("recording: classifier is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		store: cfg.Store, classifier: cfg.Classifier, exec: cfg.Executor,
		indexer: cfg.Indexer, log: cfg.Logger, seen: make(map[string]seenEntry),
	}, nil
}

// fingerprint hashes the first 200 bytes of each side of the exchange
// plus the session ID: long inputs are truncated before hashing
// because the dedup net only needs to recognize a retried call, not
// distinguish exchanges that differ only past that point.
func fingerprint(userInput, assistantResp, sessionID string) string {
	h := sha256.New()
	h.Write([]byte(truncate(userInput, 200)))
	h.Write([]byte{'|'})
	h.Write([]byte(truncate(assistantResp, 200)))
	h.Write([]byte{'|'})
	h.Write([]byte(sessionID))
	return hex.EncodeToString(h.Sum(nil))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// checkAndRemember returns (existingChatID, true) if fingerprint was
// seen within dedupWindow; otherwise it remembers fp -> chatID and
// returns ("", false). Expired entries are swept opportunistically on
// every call rather than via a background ticker, keeping the net
// allocation-free when Record isn't being called.
func (p *Pipeline) checkAndRemember(fp, chatID string) (string, bool) {
	now := time.Now()
	p.seenMu.Lock()
	defer p.seenMu.Unlock()

	for k, e := range p.seen {
		if now.Sub(e.at) > dedupWindow {
			delete(p.seen, k)
		}
	}

	if e, ok := p.seen[fp]; ok && now.Sub(e.at) <= dedupWindow {
		return e.chatID, true
	}
	p.seen[fp] = seenEntry{chatID: chatID, at: now}
	return "", false
}

// Record appends the exchange to chat history, then classifies and
// stores it, returning the chat_id assigned to the exchange. If the
// same (user_input, ai_output, session_id) was recorded within the
// last 5 seconds, Record is a no-op and returns the earlier chat_id
// instead of writing a duplicate row. If an Executor was configured,
// classification runs in the background and Record returns as soon as
// the history append succeeds; otherwise it runs inline and Record
// blocks on it. An inline classification failure is logged and does
// not fail Record, since the history row is already written.
func (p *Pipeline) Record(ctx context.Context, userID, assistantID, sessionID, userInput, assistantResp, model string, metadata map[string]any) (string, error) {
	chatID := uuid.New().String()
	fp := fingerprint(userInput, assistantResp, sessionID)
	if existingID, dup := p.checkAndRemember(fp, chatID); dup {
		return existingID, nil
	}

	chat := storage.ChatHistory{
		ID: chatID, UserID: userID, AssistantID: assistantID, SessionID: sessionID,
		UserInput: userInput, AssistantResp: assistantResp, Model: model, Metadata: metadata,
		CreatedAt: time.Now(),
	}
	if err := p.store.RecordChat(ctx, chat); err != nil {
		return "", fmt.Errorf("recording: append chat: %w", err)
	}

	classify := func(ctx context.Context) error {
		return p.classifyAndStore(ctx, userID, assistantID, sessionID, chatID, userInput, assistantResp)
	}

	if p.exec == nil {
		if err := classify(ctx); err != nil {
			p.log.Warn("recording: classification failed", "chat_id", chatID, "error", err)
		}
		return chatID, nil
	}
	return chatID, p.exec.Submit(classify)
}

func (p *Pipeline) classifyAndStore(ctx context.Context, userID, assistantID, sessionID, chatID, userInput, assistantResp string) error {
	candidates, err := p.store.ListLongTerm(ctx, userID, assistantID, "", 10)
	if err != nil {
		return fmt.Errorf("recording: list candidates: %w", err)
	}
	cands := make([]classifier.Candidate, len(candidates))
	for i, c := range candidates {
		cands[i] = classifier.Candidate{ID: c.ID, Summary: c.Summary}
	}

	cls, err := p.classifier.Classify(ctx, userInput, assistantResp, cands)
	if err != nil {
		return fmt.Errorf("recording: classify: %w", err)
	}

	if cls.DuplicateOf != "" {
		return nil
	}

	mem := storage.LongTermMemory{
		ID: uuid.New().String(), UserID: userID, AssistantID: assistantID, SessionID: sessionID,
		ChatID: chatID, Summary: cls.Summary, Category: cls.Category, Importance: cls.Importance,
		Classification: cls.Taxonomy, MemoryImportance: cls.MemoryImportance, Topic: cls.Topic,
		IsUserContext: cls.IsUserContext, IsPreference: cls.IsPreference,
		IsSkillKnowledge: cls.IsSkillKnowledge, IsCurrentProject: cls.IsCurrentProject,
		PromotionEligible: cls.PromotionEligible,
		Entities:          cls.Entities, Keywords: cls.Keywords, DuplicateOf: cls.DuplicateOf,
		Supersedes: cls.Supersedes, RelatedMemories: cls.RelatedMemories,
		ConfidenceScore: cls.ConfidenceScore,
	}
	if err := p.store.PutLongTerm(ctx, mem); err != nil {
		return fmt.Errorf("recording: store long-term: %w", err)
	}

	if p.indexer != nil {
		if err := p.indexer.Index(ctx, mem); err != nil {
			p.log.Warn("recording: semantic index failed", "memory_id", mem.ID, "error", err)
		}
	}
	return nil
}
