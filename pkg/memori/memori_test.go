package memori

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/memori/pkg/config"
	"github.com/kadirpekel/memori/pkg/memerr"
	"github.com/kadirpekel/memori/pkg/tenant"
)

// newFakeClassifierServer stands in for a real LLM endpoint so tests
// never reach the network: it answers every chat-completions call with
// a fixed classification, matching the OpenAI-compatible response shape
// pkg/llm.OpenAICompatible expects.
func newFakeClassifierServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		classification := map[string]any{
			"category": "preference", "importance": 0.6,
			"entities": []string{}, "keywords": []string{"test"},
			"summary": "the user said hi",
		}
		content, _ := json.Marshal(classification)
		resp := map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": string(content)}}},
			"usage":   map[string]int{"total_tokens": 10},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestMemori(t *testing.T) *Memori {
	t.Helper()

	srv := newFakeClassifierServer(t)
	cfg := &config.Config{
		Storage: config.StorageConfig{ConnectionString: filepath.Join(t.TempDir(), "memori.db")},
		LLM: map[string]config.LLMProviderConfig{
			"classifier": {Type: "openai-compatible", Model: "test-model", APIKey: "test-key", Host: srv.URL},
		},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	m, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)
}

func TestMemori_AddAndSearch(t *testing.T) {
	m := newTestMemori(t)
	ctx := context.Background()
	tc := tenant.Context{UserID: "alice", AssistantID: "helper"}

	err := m.Add(ctx, tc, "prefers dark mode", map[string]any{"category": "preference"})
	require.NoError(t, err)

	stats, err := m.GetStats(ctx, tc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.LongTermCount)

	hits, err := m.Search(ctx, tc, "dark mode", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "prefers dark mode", hits[0].Memory.Summary)
	assert.Equal(t, "preference", hits[0].Memory.Category)
}

func TestMemori_AddRequiresText(t *testing.T) {
	m := newTestMemori(t)
	tc := tenant.Context{UserID: "alice", AssistantID: "helper"}

	err := m.Add(context.Background(), tc, "", nil)
	assert.ErrorIs(t, err, memerr.ErrValidation)
}

func TestMemori_InvalidTenantRejected(t *testing.T) {
	m := newTestMemori(t)
	ctx := context.Background()

	_, err := m.RecordConversation(ctx, tenant.Context{}, "hi", "hello", "test-model", nil)
	assert.ErrorIs(t, err, memerr.ErrInvalidTenant)

	_, err = m.Search(ctx, tenant.Context{}, "x", 1)
	assert.ErrorIs(t, err, memerr.ErrInvalidTenant)

	err = m.Add(ctx, tenant.Context{}, "x", nil)
	assert.ErrorIs(t, err, memerr.ErrInvalidTenant)

	_, err = m.GetStats(ctx, tenant.Context{})
	assert.ErrorIs(t, err, memerr.ErrInvalidTenant)

	err = m.ClearMemory(ctx, tenant.Context{}, "")
	assert.ErrorIs(t, err, memerr.ErrInvalidTenant)
}

func TestMemori_RecordConversationReturnsChatID(t *testing.T) {
	m := newTestMemori(t)
	tc := tenant.Context{UserID: "alice", AssistantID: "helper", SessionID: "s1"}

	chatID, err := m.RecordConversation(context.Background(), tc, "hi", "hello there", "test-model", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, chatID)
}

func TestMemori_DisabledSkipsRecordingButAllowsReads(t *testing.T) {
	m := newTestMemori(t)
	tc := tenant.Context{UserID: "alice", AssistantID: "helper"}

	m.Disable()
	assert.False(t, m.Enabled())

	chatID, err := m.RecordConversation(context.Background(), tc, "hi", "hello", "test-model", nil)
	require.NoError(t, err)
	assert.Empty(t, chatID)

	// Add is not gated by the enabled switch.
	require.NoError(t, m.Add(context.Background(), tc, "still works", nil))

	_, err = m.GetStats(context.Background(), tc)
	assert.NoError(t, err)

	m.Enable()
	assert.True(t, m.Enabled())
}

func TestMemori_ClearMemoryRejectsUnknownTier(t *testing.T) {
	m := newTestMemori(t)
	tc := tenant.Context{UserID: "alice", AssistantID: "helper"}

	err := m.ClearMemory(context.Background(), tc, "bogus")
	assert.ErrorIs(t, err, memerr.ErrValidation)
}

func TestMemori_StartNewConversationMintsUniqueSessions(t *testing.T) {
	m := newTestMemori(t)
	s1 := m.StartNewConversation("alice", "helper")
	s2 := m.StartNewConversation("alice", "helper")
	assert.NotEmpty(t, s1)
	assert.NotEmpty(t, s2)
	assert.NotEqual(t, s1, s2)
}

func TestMemori_ActiveContextRegistry(t *testing.T) {
	m := newTestMemori(t)
	tc := tenant.Context{UserID: "alice", AssistantID: "helper", SessionID: "s1"}

	_, ok := m.GetActiveContext("client-1")
	assert.False(t, ok)

	m.SetActiveContext("client-1", tc)
	got, ok := m.GetActiveContext("client-1")
	require.True(t, ok)
	assert.Equal(t, tc.UserID, got.UserID)

	m.ClearActiveContext("client-1")
	_, ok = m.GetActiveContext("client-1")
	assert.False(t, ok)
}

func TestResolveClassifierConfig(t *testing.T) {
	_, err := resolveClassifierConfig(map[string]config.LLMProviderConfig{
		"a": {Type: "anthropic"}, "b": {Type: "openai"},
	})
	assert.Error(t, err, "ambiguous without a classifier key")

	pc, err := resolveClassifierConfig(map[string]config.LLMProviderConfig{
		"classifier": {Type: "anthropic", Model: "m"},
	})
	require.NoError(t, err)
	assert.Equal(t, "m", pc.Model)

	pc, err = resolveClassifierConfig(map[string]config.LLMProviderConfig{
		"solo": {Type: "openai", Model: "m2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "m2", pc.Model)
}

func TestNewLLMProvider_UnsupportedType(t *testing.T) {
	_, err := newLLMProvider(config.LLMProviderConfig{Type: "bogus"})
	assert.Error(t, err)
}
