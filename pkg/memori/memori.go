// Package memori wires the memory layer's collaborators (storage,
// search, classification, curation, injection, recording, rate
// limiting, observability) into the single public entry point host
// applications embed: construct a Memori from config.Config, wrap an
// llm.Provider with it, and it records, classifies, and re-injects
// conversational memory without further integration work.
package memori

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/memori/pkg/classifier"
	"github.com/kadirpekel/memori/pkg/config"
	"github.com/kadirpekel/memori/pkg/curator"
	"github.com/kadirpekel/memori/pkg/embedders"
	"github.com/kadirpekel/memori/pkg/executor"
	"github.com/kadirpekel/memori/pkg/injection"
	"github.com/kadirpekel/memori/pkg/llm"
	"github.com/kadirpekel/memori/pkg/logger"
	"github.com/kadirpekel/memori/pkg/memerr"
	"github.com/kadirpekel/memori/pkg/observability"
	"github.com/kadirpekel/memori/pkg/ratelimit"
	"github.com/kadirpekel/memori/pkg/recording"
	"github.com/kadirpekel/memori/pkg/search"
	"github.com/kadirpekel/memori/pkg/storage"
	"github.com/kadirpekel/memori/pkg/tenant"
	"github.com/kadirpekel/memori/pkg/vector"
)

// Memori is the assembled memory layer: a running set of collaborators
// plus the enabled/disabled switch every public operation respects.
type Memori struct {
	cfg *config.Config
	log *slog.Logger

	store   storage.Store
	tenants *tenant.Manager
	limiter ratelimit.RateLimiter // nil when rate limiting is disabled

	pipeline    *recording.Pipeline
	curatorSvc  *curator.Curator
	injector    *injection.Engine
	searchExec  *search.Executor
	planner     *search.Planner
	backgroundQ *executor.Executor
	obs         *observability.Manager
	vectorStore vector.Provider // vector.NilProvider{} when semantic search is disabled
	closeLogFn  func()

	mode        injection.Mode
	injectLimit int

	enabled atomic.Bool
}

// New assembles a Memori from a fully-populated config.Config. Callers
// typically obtain cfg via config.Load, which has already applied
// SetDefaults and Validate.
func New(ctx context.Context, cfg *config.Config) (*Memori, error) {
	if cfg == nil {
		return nil, fmt.Errorf("memori: config is required")
	}

	level, err := logger.ParseLevel(cfg.Logger.Level)
	if err != nil {
		return nil, fmt.Errorf("memori: %w", err)
	}
	out := os.Stderr
	var closeLogFn func()
	if cfg.Logger.File != "" {
		f, cleanup, err := logger.OpenLogFile(cfg.Logger.File)
		if err != nil {
			return nil, fmt.Errorf("memori: open log file: %w", err)
		}
		out, closeLogFn = f, cleanup
	}
	logger.Init(level, out, cfg.Logger.Format)
	log := logger.GetLogger()

	store, err := storage.Open(cfg.Storage.ConnectionString, cfg.Storage.FallbackPath)
	if err != nil {
		return nil, fmt.Errorf("memori: open storage: %w", err)
	}

	obs, err := observability.NewFromConfig(ctx, toObservabilityConfig(cfg.Observability))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("memori: observability: %w", err)
	}

	limiter, err := newRateLimiter(cfg, store, log)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("memori: rate limiter: %w", err)
	}

	classifierCfg, err := resolveClassifierConfig(cfg.LLM)
	if err != nil {
		store.Close()
		return nil, err
	}
	classifierProvider, err := newLLMProvider(classifierCfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	classifierSvc, err := classifier.New(classifier.Config{Provider: classifierProvider})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("memori: classifier: %w", err)
	}

	embedder, vectorProvider, err := newSemanticBackend(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	backgroundQ := executor.New(executor.Config{QueueSize: cfg.Executor.QueueSize, Logger: log})

	var indexer recording.Indexer
	var searchEmbedder search.Embedder
	var searchIndex search.VectorIndex
	if embedder != nil {
		idx := &semanticIndex{embedder: embedder, provider: vectorProvider}
		indexer = idx
		searchEmbedder = idx
		searchIndex = idx
	}

	pipeline, err := recording.New(recording.Config{
		Store: store, Classifier: classifierSvc, Executor: backgroundQ, Indexer: indexer, Logger: log,
	})
	if err != nil {
		backgroundQ.Close()
		store.Close()
		return nil, fmt.Errorf("memori: recording pipeline: %w", err)
	}

	planner := search.NewPlanner()
	searchExec := search.NewExecutor(store, searchEmbedder, searchIndex)

	m := &Memori{
		cfg: cfg, log: log,
		store: store, tenants: tenant.NewManager(log), limiter: limiter,
		pipeline: pipeline, curatorSvc: curator.New(store), injector: injection.New(searchExec, planner),
		searchExec: searchExec, planner: planner, backgroundQ: backgroundQ, obs: obs,
		vectorStore: vectorProvider, closeLogFn: closeLogFn,
		mode: injection.Mode(cfg.Injection.Mode), injectLimit: cfg.Injection.Limit,
	}
	m.enabled.Store(true)
	return m, nil
}

// sqlBackedStore is implemented by storage.Store backends that expose
// their connection pool, so the rate limiter's "sql" backend can share
// it instead of opening a second one (see storage.SQLStore.DB).
type sqlBackedStore interface {
	DB() *sql.DB
	Dialect() string
}

func newRateLimiter(cfg *config.Config, store storage.Store, log *slog.Logger) (ratelimit.RateLimiter, error) {
	if !cfg.RateLimiting.Enabled {
		return nil, nil
	}
	var db *sql.DB
	var dialect string
	if sb, ok := store.(sqlBackedStore); ok {
		db, dialect = sb.DB(), sb.Dialect()
	}
	return ratelimit.NewRateLimiterFromConfig(cfg.RateLimiting, db, dialect)
}

// newSemanticBackend builds the optional embedder + vector.Provider
// pair. Both are nil/NilProvider when cfg.Embedding.Type is empty,
// disabling the semantic search stage without affecting the
// keyword/full-text stage pkg/storage always provides.
func newSemanticBackend(cfg *config.Config) (embedders.EmbedderProvider, vector.Provider, error) {
	embedder, err := embedders.NewFromConfig(&cfg.Embedding)
	if err != nil {
		return nil, nil, fmt.Errorf("memori: embedder: %w", err)
	}
	if embedder == nil {
		return nil, vector.NilProvider{}, nil
	}
	provider, err := vector.NewProvider(&cfg.Vector)
	if err != nil {
		return nil, nil, fmt.Errorf("memori: vector provider: %w", err)
	}
	return embedder, provider, nil
}

// MetricsHandler exposes the assembled observability manager's
// Prometheus endpoint, for hosts (see cmd/memorid) that want to serve
// it themselves rather than have memori own an HTTP listener.
func (m *Memori) MetricsHandler() http.Handler {
	return m.obs.MetricsHandler()
}

// Enable turns recording and injection back on after Disable.
func (m *Memori) Enable() { m.enabled.Store(true) }

// Disable suspends recording and injection; Search/GetStats/ClearMemory
// still work, matching the "observe without mutating" posture a
// disabled instance should have.
func (m *Memori) Disable() { m.enabled.Store(false) }

// Enabled reports whether recording/injection are currently active.
func (m *Memori) Enabled() bool { return m.enabled.Load() }

// Close releases every collaborator's resources: the background
// executor is closed, canceling its pending work without waiting for
// queued tasks, then the store and observability manager are shut down.
func (m *Memori) Close() error {
	m.backgroundQ.Close()
	if m.vectorStore != nil {
		_ = m.vectorStore.Close()
	}
	if err := m.obs.Shutdown(context.Background()); err != nil {
		m.log.Warn("memori: observability shutdown", "error", err)
	}
	if m.closeLogFn != nil {
		m.closeLogFn()
	}
	return m.store.Close()
}

func validateTenant(tc tenant.Context) error {
	if !tc.Valid() {
		return memerr.ErrInvalidTenant
	}
	return nil
}

// RecordConversation appends one exchange to chat history and schedules
// classification into long-term memory, returning the chat_id assigned
// to the exchange.
func (m *Memori) RecordConversation(ctx context.Context, tc tenant.Context, userInput, assistantResp, model string, metadata map[string]any) (string, error) {
	if err := validateTenant(tc); err != nil {
		return "", err
	}
	if !m.Enabled() {
		return "", nil
	}
	if err := m.checkRateLimit(ctx, tc.UserID); err != nil {
		return "", err
	}
	start := time.Now()
	chatID, err := m.pipeline.Record(ctx, tc.UserID, tc.AssistantID, tc.SessionID, userInput, assistantResp, model, metadata)
	if err != nil {
		return "", err
	}
	if metrics := m.obs.Metrics(); metrics != nil {
		metrics.RecordMemoryWrite("chat_history", time.Since(start))
	}
	return chatID, nil
}

// RetrieveContext builds the messages to prepend to an outbound LLM
// request: a one-shot curated system message in conscious mode, or a
// live search over lastUserMessage in auto mode.
func (m *Memori) RetrieveContext(ctx context.Context, tc tenant.Context, lastUserMessage string, limit int) ([]llm.Message, error) {
	if err := validateTenant(tc); err != nil {
		return nil, err
	}
	if !m.Enabled() {
		return nil, nil
	}
	if limit <= 0 {
		limit = m.injectLimit
	}

	switch m.mode {
	case injection.ModeConscious:
		promoted, err := m.curatorSvc.Curate(ctx, tc.UserID, tc.AssistantID, tc.SessionID, limit)
		if err != nil {
			return nil, fmt.Errorf("memori: curate: %w", err)
		}
		msg := injection.ConsciousSystemMessage(promoted)
		if msg.Content == "" {
			return nil, nil
		}
		return []llm.Message{msg}, nil
	default: // ModeAuto
		return m.injector.AutoRecall(ctx, tc.UserID, tc.AssistantID, lastUserMessage, limit)
	}
}

// Search runs an ad hoc query over a tenant's long-term memory,
// independent of the configured injection mode.
func (m *Memori) Search(ctx context.Context, tc tenant.Context, query string, limit int) ([]storage.SearchHit, error) {
	if err := validateTenant(tc); err != nil {
		return nil, err
	}
	plan := m.planner.Plan(query, "")
	hits, err := m.searchExec.Run(ctx, tc.UserID, tc.AssistantID, plan, limit)
	if err != nil {
		// A failed search returns an empty result rather than raising.
		m.log.Warn("memori: search failed, returning empty", "error", err)
		return nil, nil
	}
	return hits, nil
}

// Add stores text directly as a long-term memory, bypassing chat
// history and the classifier — for host applications that already
// know a fact is worth remembering.
func (m *Memori) Add(ctx context.Context, tc tenant.Context, text string, metadata map[string]any) error {
	if err := validateTenant(tc); err != nil {
		return err
	}
	if text == "" {
		return fmt.Errorf("%w: text is required", memerr.ErrValidation)
	}

	category := ""
	if c, ok := metadata["category"].(string); ok {
		category = c
	}
	mem := storage.LongTermMemory{
		ID: uuid.New().String(), UserID: tc.UserID, AssistantID: tc.AssistantID, SessionID: tc.SessionID,
		Summary: text, Category: category, Importance: 1.0, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	if err := m.store.PutLongTerm(ctx, mem); err != nil {
		return fmt.Errorf("memori: add: %w", err)
	}
	return nil
}

// GetStats reports a tenant's current memory footprint.
func (m *Memori) GetStats(ctx context.Context, tc tenant.Context) (storage.Stats, error) {
	if err := validateTenant(tc); err != nil {
		return storage.Stats{}, err
	}
	return m.store.Stats(ctx, tc.UserID, tc.AssistantID)
}

// ClearMemory removes a tenant's memory. tier selects "short_term",
// "long_term", or "" for everything (chat history included).
func (m *Memori) ClearMemory(ctx context.Context, tc tenant.Context, tier string) error {
	if err := validateTenant(tc); err != nil {
		return err
	}
	switch tier {
	case "short_term":
		if err := m.store.EvictShortTerm(ctx, tc.UserID, tc.AssistantID, tc.SessionID, ""); err != nil {
			return fmt.Errorf("memori: clear short-term: %w", err)
		}
	case "long_term":
		for {
			mems, err := m.store.ListLongTerm(ctx, tc.UserID, tc.AssistantID, "", 100)
			if err != nil {
				return fmt.Errorf("memori: clear long-term: %w", err)
			}
			if len(mems) == 0 {
				break
			}
			for _, mem := range mems {
				if err := m.store.DeleteLongTerm(ctx, tc.UserID, tc.AssistantID, mem.ID); err != nil {
					return fmt.Errorf("memori: clear long-term: %w", err)
				}
			}
		}
	case "":
		if err := m.store.ClearAll(ctx, tc.UserID, tc.AssistantID, tc.SessionID); err != nil {
			return fmt.Errorf("memori: clear all: %w", err)
		}
	default:
		return fmt.Errorf("%w: unsupported tier %q", memerr.ErrValidation, tier)
	}
	m.curatorSvc.Reset(tc.UserID, tc.AssistantID, tc.SessionID)
	return nil
}

// StartNewConversation mints a fresh session_id and resets the
// conscious curator's "already injected" flag for it, so the first
// turn of the new session is curated again rather than skipped.
func (m *Memori) StartNewConversation(userID, assistantID string) string {
	sessionID := uuid.New().String()
	m.curatorSvc.Reset(userID, assistantID, sessionID)
	return sessionID
}

// Wrap decorates an llm.Provider so every Generate/GenerateStructured
// call is recorded against whatever tenant context is currently active
// for clientID (see SetActiveContext).
func (m *Memori) Wrap(inner llm.Provider, clientID string) llm.Provider {
	return recording.Wrap(inner, m.pipeline, m.tenants, clientID, m, m.injectLimit)
}

// SetActiveContext registers the tenant context a wrapped client's
// subsequent calls should be recorded against, for multi-instance
// deployments where Wrap's decorator has no per-call tenant parameter.
func (m *Memori) SetActiveContext(clientID string, tc tenant.Context) {
	m.tenants.Set(clientID, tc)
}

// GetActiveContext returns the tenant context currently active for
// clientID, or ok=false if none is registered or it has expired.
func (m *Memori) GetActiveContext(clientID string) (tenant.Context, bool) {
	return m.tenants.Current(clientID)
}

// ClearActiveContext removes the tenant context registered for clientID.
func (m *Memori) ClearActiveContext(clientID string) {
	m.tenants.Clear(clientID)
}

func (m *Memori) checkRateLimit(ctx context.Context, userID string) error {
	if m.limiter == nil {
		return nil
	}
	result, err := m.limiter.CheckAndRecord(ctx, ratelimit.ScopeUser, userID, 0, 1)
	if err != nil {
		if ratelimit.IsRateLimitError(err) {
			return fmt.Errorf("%w: %v", memerr.ErrRateLimitExceeded, err)
		}
		return err
	}
	if result != nil && result.IsExceeded() {
		return memerr.ErrRateLimitExceeded
	}
	return nil
}
