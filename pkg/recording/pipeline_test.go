package recording

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/kadirpekel/memori/pkg/classifier"
	"github.com/kadirpekel/memori/pkg/llm"
	"github.com/kadirpekel/memori/pkg/storage"
)

// fakeProvider answers every call with a fixed classification,
// avoiding any real LLM call in these tests.
type fakeProvider struct {
	summary string
	failing bool
}

func (p *fakeProvider) Generate(ctx context.Context, messages []llm.Message) (string, int, error) {
	return p.GenerateStructured(ctx, messages, llm.StructuredOutputConfig{})
}

func (p *fakeProvider) GenerateStructured(ctx context.Context, messages []llm.Message, cfg llm.StructuredOutputConfig) (string, int, error) {
	if p.failing {
		return "", 0, fmt.Errorf("fake provider: forced failure")
	}
	return fmt.Sprintf(`{"category":"fact","importance":0.5,"classification":"contextual","entities":[],"keywords":[],"summary":%q}`, p.summary), 5, nil
}

func (p *fakeProvider) SupportsStructuredOutput() bool { return true }
func (p *fakeProvider) GetModelName() string           { return "fake-model" }

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.NewSQLStore(storage.SQLConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "memori.db")})
	if err != nil {
		t.Fatalf("NewSQLStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestPipeline(t *testing.T, provider llm.Provider, indexer Indexer) (*Pipeline, storage.Store) {
	t.Helper()
	store := newTestStore(t)
	cls, err := classifier.New(classifier.Config{Provider: provider})
	if err != nil {
		t.Fatalf("classifier.New() error = %v", err)
	}
	p, err := New(Config{Store: store, Classifier: cls, Indexer: indexer})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p, store
}

func TestPipeline_RecordStoresChatAndLongTermMemory(t *testing.T) {
	p, store := newTestPipeline(t, &fakeProvider{summary: "likes tea"}, nil)
	ctx := context.Background()

	chatID, err := p.Record(ctx, "u1", "a1", "s1", "what do I like?", "you like tea", "test-model", nil)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if chatID == "" {
		t.Fatal("expected a non-empty chat_id")
	}

	chats, err := store.RecentChats(ctx, "u1", "a1", "s1", 10)
	if err != nil {
		t.Fatalf("RecentChats() error = %v", err)
	}
	if len(chats) != 1 || chats[0].ID != chatID {
		t.Fatalf("expected the recorded chat to be retrievable, got %+v", chats)
	}

	mems, err := store.ListLongTerm(ctx, "u1", "a1", "", 10)
	if err != nil {
		t.Fatalf("ListLongTerm() error = %v", err)
	}
	if len(mems) != 1 || mems[0].Summary != "likes tea" {
		t.Fatalf("expected one classified long-term memory, got %+v", mems)
	}
}

func TestPipeline_RecordSucceedsEvenIfClassificationFails(t *testing.T) {
	p, store := newTestPipeline(t, &fakeProvider{failing: true}, nil)
	ctx := context.Background()

	chatID, err := p.Record(ctx, "u1", "a1", "s1", "hi", "hello", "test-model", nil)
	if err != nil {
		t.Fatalf("Record() should not fail when only classification fails, got %v", err)
	}
	if chatID == "" {
		t.Fatal("expected a chat_id even when classification fails")
	}

	mems, err := store.ListLongTerm(ctx, "u1", "a1", "", 10)
	if err != nil {
		t.Fatalf("ListLongTerm() error = %v", err)
	}
	if len(mems) != 0 {
		t.Fatalf("expected no long-term memory on classification failure, got %+v", mems)
	}
}

// recordingIndexer captures every memory it is asked to index, so tests
// can assert the write-side semantic indexing side effect fires.
type recordingIndexer struct {
	indexed []storage.LongTermMemory
}

func (r *recordingIndexer) Index(ctx context.Context, mem storage.LongTermMemory) error {
	r.indexed = append(r.indexed, mem)
	return nil
}

func TestPipeline_RecordIndexesNewLongTermMemory(t *testing.T) {
	idx := &recordingIndexer{}
	p, _ := newTestPipeline(t, &fakeProvider{summary: "favorite color is blue"}, idx)

	_, err := p.Record(context.Background(), "u1", "a1", "s1", "q", "a", "test-model", nil)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if len(idx.indexed) != 1 || idx.indexed[0].Summary != "favorite color is blue" {
		t.Fatalf("expected the indexer to observe the new memory, got %+v", idx.indexed)
	}
}

func TestPipeline_RecordSuppressesDuplicateWithinWindow(t *testing.T) {
	p, store := newTestPipeline(t, &fakeProvider{summary: "likes tea"}, nil)
	ctx := context.Background()

	first, err := p.Record(ctx, "u1", "a1", "s1", "what do I like?", "you like tea", "test-model", nil)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	second, err := p.Record(ctx, "u1", "a1", "s1", "what do I like?", "you like tea", "test-model", nil)
	if err != nil {
		t.Fatalf("second Record() error = %v", err)
	}
	if second != first {
		t.Errorf("expected the duplicate call to return the original chat_id, got %q want %q", second, first)
	}

	chats, err := store.RecentChats(ctx, "u1", "a1", "s1", 10)
	if err != nil {
		t.Fatalf("RecentChats() error = %v", err)
	}
	if len(chats) != 1 {
		t.Fatalf("expected the duplicate exchange not to be recorded twice, got %d chats", len(chats))
	}
}

func TestPipeline_RecordAllowsDistinctSessionsWithSameContent(t *testing.T) {
	p, store := newTestPipeline(t, &fakeProvider{summary: "likes tea"}, nil)
	ctx := context.Background()

	if _, err := p.Record(ctx, "u1", "a1", "s1", "hi", "hello", "test-model", nil); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if _, err := p.Record(ctx, "u1", "a1", "s2", "hi", "hello", "test-model", nil); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	chats1, _ := store.RecentChats(ctx, "u1", "a1", "s1", 10)
	chats2, _ := store.RecentChats(ctx, "u1", "a1", "s2", 10)
	if len(chats1) != 1 || len(chats2) != 1 {
		t.Errorf("expected both sessions to record independently, got %d and %d", len(chats1), len(chats2))
	}
}

func TestNew_RequiresStoreAndClassifier(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected New() to fail without a store")
	}

	store := newTestStore(t)
	if _, err := New(Config{Store: store}); err == nil {
		t.Error("expected New() to fail without a classifier")
	}
}
