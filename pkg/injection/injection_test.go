package injection

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kadirpekel/memori/pkg/search"
	"github.com/kadirpekel/memori/pkg/storage"
)

func TestConsciousSystemMessage_EmptyWhenNothingPromoted(t *testing.T) {
	msg := ConsciousSystemMessage(nil)
	if msg.Content != "" || msg.Role != "" {
		t.Errorf("expected a zero-value message, got %+v", msg)
	}
}

func TestConsciousSystemMessage_RendersPromotedMemories(t *testing.T) {
	promoted := []storage.ShortTermMemory{
		{Content: "likes tea"}, {Content: "works remotely"},
	}
	msg := ConsciousSystemMessage(promoted)
	if msg.Role != "system" {
		t.Errorf("Role = %q, want %q", msg.Role, "system")
	}
	if !strings.Contains(msg.Content, "likes tea") || !strings.Contains(msg.Content, "works remotely") {
		t.Errorf("expected both memories in content, got %q", msg.Content)
	}
}

func TestConsciousSystemMessage_IncludesAuthorizationBanner(t *testing.T) {
	promoted := []storage.ShortTermMemory{{Content: "likes tea", Category: "conscious_context"}}
	msg := ConsciousSystemMessage(promoted)
	if !strings.Contains(msg.Content, "authorized user context data") {
		t.Errorf("expected authorization banner, got %q", msg.Content)
	}
	if !strings.Contains(msg.Content, "[CONSCIOUS_CONTEXT] likes tea") {
		t.Errorf("expected uppercased category-tagged line, got %q", msg.Content)
	}
	if !strings.Contains(msg.Content, "Do not claim you lack access") {
		t.Errorf("expected closing usage instructions, got %q", msg.Content)
	}
}

func TestConsciousSystemMessage_DedupsCaseInsensitively(t *testing.T) {
	promoted := []storage.ShortTermMemory{
		{Content: "Likes Tea", Category: "conscious_context"},
		{Content: "likes tea", Category: "conscious_context"},
	}
	msg := ConsciousSystemMessage(promoted)
	if strings.Count(strings.ToLower(msg.Content), "likes tea") != 1 {
		t.Errorf("expected case-insensitive dedup to keep one line, got %q", msg.Content)
	}
}

func newTestExecutor(t *testing.T) *search.Executor {
	store, err := storage.NewSQLStore(storage.SQLConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "memori.db")})
	if err != nil {
		t.Fatalf("NewSQLStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return search.NewExecutor(store, nil, nil)
}

func newTestExecutorWithStore(t *testing.T) (*search.Executor, storage.Store) {
	t.Helper()
	store, err := storage.NewSQLStore(storage.SQLConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "memori.db")})
	if err != nil {
		t.Fatalf("NewSQLStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return search.NewExecutor(store, nil, nil), store
}

func TestAutoRecall_RendersMatchingMemory(t *testing.T) {
	executor, store := newTestExecutorWithStore(t)
	err := store.PutLongTerm(context.Background(), storage.LongTermMemory{
		ID: "m1", UserID: "u1", AssistantID: "a1", Summary: "user prefers green tea",
	})
	if err != nil {
		t.Fatalf("PutLongTerm() error = %v", err)
	}

	engine := New(executor, search.NewPlanner())
	msgs, err := engine.AutoRecall(context.Background(), "u1", "a1", "green tea", 5)
	if err != nil {
		t.Fatalf("AutoRecall() error = %v", err)
	}
	if len(msgs) != 1 || !strings.Contains(msgs[0].Content, "green tea") {
		t.Fatalf("expected the seeded memory to surface, got %+v", msgs)
	}
	if !strings.Contains(msgs[0].Content, "--- Auto Memory Context ---") {
		t.Errorf("expected the auto-memory header, got %q", msgs[0].Content)
	}
}

func TestAutoRecall_EmptyMessageReturnsNothing(t *testing.T) {
	engine := New(newTestExecutor(t), search.NewPlanner())
	msgs, err := engine.AutoRecall(context.Background(), "u1", "a1", "", 5)
	if err != nil {
		t.Fatalf("AutoRecall() error = %v", err)
	}
	if msgs != nil {
		t.Errorf("expected no messages for an empty user turn, got %+v", msgs)
	}
}

func TestAutoRecall_NoHitsReturnsNothing(t *testing.T) {
	engine := New(newTestExecutor(t), search.NewPlanner())
	msgs, err := engine.AutoRecall(context.Background(), "u1", "a1", "anything at all", 5)
	if err != nil {
		t.Fatalf("AutoRecall() error = %v", err)
	}
	if msgs != nil {
		t.Errorf("expected no messages when nothing matches, got %+v", msgs)
	}
}
