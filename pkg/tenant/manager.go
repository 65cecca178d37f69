package tenant

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// idleExpiry is how long a registered context may sit unused before
// Current treats it as stale and requires an explicit Set.
const idleExpiry = 5 * time.Minute

type ctxKey struct{}

// WithContext attaches a tenant Context to a Go context.Context, for
// call paths that already thread one through (the public Memori API).
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext extracts a tenant Context previously attached with
// WithContext.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}

// Manager is a goroutine-safe registry of "currently active" tenant
// contexts, keyed by client instance, for interception points that have
// no context.Context to carry one through (the wrapped LLM provider).
//
// AutoActivateSingleton controls whether Current() will silently return
// the sole registered context when exactly one has been Set and none was
// requested by key; it defaults to false, so callers that forget to Set
// a context get ok=false from Current rather than a surprising implicit one.
type Manager struct {
	mu                     sync.Mutex
	active                 map[string]entry
	AutoActivateSingleton  bool
	log                    *slog.Logger
}

type entry struct {
	ctx      Context
	lastUsed time.Time
}

// NewManager creates an empty tenant registry.
func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{active: make(map[string]entry), log: log}
}

// Set registers or replaces the active context for key. Replacing a
// different tenant under the same key logs a context-switch warning,
// since it usually indicates a client instance being reused across
// callers without re-registering.
func (m *Manager) Set(key string, tc Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.active[key]; ok && prev.ctx.Key() != tc.Key() {
		m.log.Warn("tenant context switch on active client",
			"key", key, "from", prev.ctx.Key(), "to", tc.Key())
	}

	if tc.CreatedAt.IsZero() {
		tc.CreatedAt = time.Now()
	}
	m.active[key] = entry{ctx: tc, lastUsed: time.Now()}
}

// Current returns the active context for key. It fails closed: an
// expired or missing registration returns ok=false rather than a stale
// or guessed tenant.
func (m *Manager) Current(key string) (Context, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.active[key]
	if !ok {
		if m.AutoActivateSingleton && len(m.active) == 1 {
			for _, only := range m.active {
				e, ok = only, true
			}
		}
		if !ok {
			return Context{}, false
		}
	}

	if time.Since(e.lastUsed) > idleExpiry {
		delete(m.active, key)
		return Context{}, false
	}

	e.lastUsed = time.Now()
	m.active[key] = e
	return e.ctx, true
}

// Clear removes the active context for key.
func (m *Manager) Clear(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, key)
}
