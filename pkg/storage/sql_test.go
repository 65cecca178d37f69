package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLStore(SQLConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "memori.db")})
	if err != nil {
		t.Fatalf("NewSQLStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLStore_RecordChatAndRecentChatsOrdering(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Minute)
	for i, text := range []string{"first", "second", "third"} {
		err := store.RecordChat(ctx, ChatHistory{
			ID: "c" + string(rune('1'+i)), UserID: "u1", AssistantID: "a1", SessionID: "s1",
			UserInput: text, AssistantResp: "ack", CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("RecordChat(%q) error = %v", text, err)
		}
	}

	chats, err := store.RecentChats(ctx, "u1", "a1", "s1", 10)
	if err != nil {
		t.Fatalf("RecentChats() error = %v", err)
	}
	if len(chats) != 3 {
		t.Fatalf("expected 3 chats, got %d", len(chats))
	}
	if chats[0].UserInput != "first" || chats[2].UserInput != "third" {
		t.Errorf("expected chronological (oldest-first) order, got %+v", chats)
	}
}

func TestSQLStore_PutShortTermAndEvict(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()

	for _, id := range []string{"m1", "m2"} {
		err := store.PutShortTerm(ctx, ShortTermMemory{ID: id, UserID: "u1", AssistantID: "a1", SessionID: "s1", Content: "note " + id})
		if err != nil {
			t.Fatalf("PutShortTerm(%q) error = %v", id, err)
		}
	}

	entries, err := store.ShortTerm(ctx, "u1", "a1", "s1")
	if err != nil {
		t.Fatalf("ShortTerm() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 short-term entries, got %d", len(entries))
	}

	if err := store.EvictShortTerm(ctx, "u1", "a1", "s1", "m1"); err != nil {
		t.Fatalf("EvictShortTerm(id) error = %v", err)
	}
	entries, err = store.ShortTerm(ctx, "u1", "a1", "s1")
	if err != nil {
		t.Fatalf("ShortTerm() error = %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "m2" {
		t.Fatalf("expected only m2 to remain, got %+v", entries)
	}

	if err := store.EvictShortTerm(ctx, "u1", "a1", "s1", ""); err != nil {
		t.Fatalf("EvictShortTerm(session) error = %v", err)
	}
	entries, err = store.ShortTerm(ctx, "u1", "a1", "s1")
	if err != nil {
		t.Fatalf("ShortTerm() error = %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected the session to be empty, got %+v", entries)
	}
}

func TestSQLStore_PutLongTermGetAndList(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()

	mem := LongTermMemory{
		ID: "lt1", UserID: "u1", AssistantID: "a1", Summary: "likes green tea",
		Category: "preference", Importance: 0.6, Entities: []string{"tea"}, Keywords: []string{"green", "tea"},
	}
	if err := store.PutLongTerm(ctx, mem); err != nil {
		t.Fatalf("PutLongTerm() error = %v", err)
	}

	got, err := store.GetLongTerm(ctx, "u1", "a1", "lt1")
	if err != nil {
		t.Fatalf("GetLongTerm() error = %v", err)
	}
	if got.Summary != mem.Summary || got.Category != mem.Category {
		t.Errorf("GetLongTerm() = %+v, want summary/category from %+v", got, mem)
	}
	if len(got.Entities) != 1 || got.Entities[0] != "tea" {
		t.Errorf("expected Entities to round-trip, got %+v", got.Entities)
	}

	list, err := store.ListLongTerm(ctx, "u1", "a1", "", 10)
	if err != nil {
		t.Fatalf("ListLongTerm() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 long-term memory, got %d", len(list))
	}

	if err := store.DeleteLongTerm(ctx, "u1", "a1", "lt1"); err != nil {
		t.Fatalf("DeleteLongTerm() error = %v", err)
	}
	list, err = store.ListLongTerm(ctx, "u1", "a1", "", 10)
	if err != nil {
		t.Fatalf("ListLongTerm() after delete error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected no long-term memories after delete, got %+v", list)
	}
}

func TestSQLStore_SearchLongTermMatchesFullTextQuery(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()

	err := store.PutLongTerm(ctx, LongTermMemory{ID: "lt1", UserID: "u1", AssistantID: "a1", Summary: "user prefers green tea", Category: "preference"})
	if err != nil {
		t.Fatalf("PutLongTerm() error = %v", err)
	}
	err = store.PutLongTerm(ctx, LongTermMemory{ID: "lt2", UserID: "u1", AssistantID: "a1", Summary: "user works remotely", Category: "fact"})
	if err != nil {
		t.Fatalf("PutLongTerm() error = %v", err)
	}

	hits, err := store.SearchLongTerm(ctx, SearchQuery{UserID: "u1", AssistantID: "a1", Text: "green tea", Limit: 10})
	if err != nil {
		t.Fatalf("SearchLongTerm() error = %v", err)
	}
	if len(hits) != 1 || hits[0].Memory.ID != "lt1" {
		t.Fatalf("expected only lt1 to match 'green tea', got %+v", hits)
	}
}

func TestSQLStore_SearchLongTermFiltersByCategory(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()

	err := store.PutLongTerm(ctx, LongTermMemory{ID: "lt1", UserID: "u1", AssistantID: "a1", Summary: "green tea lover", Category: "preference"})
	if err != nil {
		t.Fatalf("PutLongTerm() error = %v", err)
	}
	err = store.PutLongTerm(ctx, LongTermMemory{ID: "lt2", UserID: "u1", AssistantID: "a1", Summary: "green tea farmer", Category: "fact"})
	if err != nil {
		t.Fatalf("PutLongTerm() error = %v", err)
	}

	hits, err := store.SearchLongTerm(ctx, SearchQuery{UserID: "u1", AssistantID: "a1", Text: "green tea", Category: "fact", Limit: 10})
	if err != nil {
		t.Fatalf("SearchLongTerm() error = %v", err)
	}
	if len(hits) != 1 || hits[0].Memory.ID != "lt2" {
		t.Fatalf("expected only the fact-category match, got %+v", hits)
	}
}

func TestSQLStore_ClearAllScopedToSession(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()

	if err := store.RecordChat(ctx, ChatHistory{ID: "c1", UserID: "u1", AssistantID: "a1", SessionID: "s1", UserInput: "hi", AssistantResp: "hey"}); err != nil {
		t.Fatalf("RecordChat() error = %v", err)
	}
	if err := store.PutShortTerm(ctx, ShortTermMemory{ID: "m1", UserID: "u1", AssistantID: "a1", SessionID: "s1", Content: "x"}); err != nil {
		t.Fatalf("PutShortTerm() error = %v", err)
	}
	if err := store.PutLongTerm(ctx, LongTermMemory{ID: "lt1", UserID: "u1", AssistantID: "a1", Summary: "x"}); err != nil {
		t.Fatalf("PutLongTerm() error = %v", err)
	}

	if err := store.ClearAll(ctx, "u1", "a1", "s1"); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}

	chats, _ := store.RecentChats(ctx, "u1", "a1", "s1", 10)
	stm, _ := store.ShortTerm(ctx, "u1", "a1", "s1")
	ltm, _ := store.ListLongTerm(ctx, "u1", "a1", "", 10)
	if len(chats) != 0 || len(stm) != 0 {
		t.Errorf("expected chat history and short-term memory to be cleared, got %d chats, %d short-term", len(chats), len(stm))
	}
	if len(ltm) != 0 {
		t.Errorf("expected long-term memory to be cleared too (ClearAll always clears it), got %+v", ltm)
	}
}

func TestSQLStore_LongTermSharedAcrossAssistantsWhenAssistantIDEmpty(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()

	shared := LongTermMemory{ID: "lt-shared", UserID: "u1", Summary: "shared across assistants", Category: "fact"}
	if err := store.PutLongTerm(ctx, shared); err != nil {
		t.Fatalf("PutLongTerm() error = %v", err)
	}

	got, err := store.GetLongTerm(ctx, "u1", "any-assistant", "lt-shared")
	if err != nil {
		t.Fatalf("GetLongTerm() for a shared memory under an unrelated assistant error = %v", err)
	}
	if got.ID != "lt-shared" {
		t.Fatalf("expected the shared memory visible to any assistant, got %+v", got)
	}

	list, err := store.ListLongTerm(ctx, "u1", "a-unrelated", "", 10)
	if err != nil {
		t.Fatalf("ListLongTerm() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != "lt-shared" {
		t.Fatalf("expected ListLongTerm to include the shared memory, got %+v", list)
	}

	hits, err := store.SearchLongTerm(ctx, SearchQuery{UserID: "u1", AssistantID: "a-unrelated", Text: "shared", Limit: 10})
	if err != nil {
		t.Fatalf("SearchLongTerm() error = %v", err)
	}
	if len(hits) != 1 || hits[0].Memory.ID != "lt-shared" {
		t.Fatalf("expected search to surface the shared memory too, got %+v", hits)
	}
}

func TestSQLStore_ShortTermFiltersExpiredAndOrdersByImportance(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()

	now := time.Now()
	entries := []ShortTermMemory{
		{ID: "expired", UserID: "u1", AssistantID: "a1", SessionID: "s1", Content: "stale", Importance: 9, ExpiresAt: now.Add(-time.Minute)},
		{ID: "low", UserID: "u1", AssistantID: "a1", SessionID: "s1", Content: "low importance", Importance: 1, ExpiresAt: now.Add(time.Hour)},
		{ID: "high", UserID: "u1", AssistantID: "a1", SessionID: "s1", Content: "high importance", Importance: 8, ExpiresAt: now.Add(time.Hour)},
		{ID: "permanent", UserID: "u1", AssistantID: "a1", SessionID: "s1", Content: "permanent", Importance: 0, IsPermanentContext: true},
	}
	for _, e := range entries {
		if err := store.PutShortTerm(ctx, e); err != nil {
			t.Fatalf("PutShortTerm(%q) error = %v", e.ID, err)
		}
	}

	got, err := store.ShortTerm(ctx, "u1", "a1", "s1")
	if err != nil {
		t.Fatalf("ShortTerm() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected the expired entry to be filtered out, got %+v", got)
	}
	wantOrder := []string{"high", "low", "permanent"}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Fatalf("expected importance-descending order %v, got %+v", wantOrder, got)
		}
	}
}

func TestSQLStore_SearchLikeFallbackUsesFixedScoreAndStrategySuffix(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()

	if err := store.PutLongTerm(ctx, LongTermMemory{ID: "lt1", UserID: "u1", AssistantID: "a1", Summary: "plays the guitar"}); err != nil {
		t.Fatalf("PutLongTerm() error = %v", err)
	}

	hits, err := store.searchLike(ctx, SearchQuery{UserID: "u1", AssistantID: "a1", Text: "guitar", Limit: 10}, "basic")
	if err != nil {
		t.Fatalf("searchLike() error = %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected one LIKE match, got %+v", hits)
	}
	if hits[0].Score != 0.4 {
		t.Errorf("expected the fixed LIKE fallback score 0.4, got %v", hits[0].Score)
	}
	if hits[0].Strategy != "basic_like_fallback" {
		t.Errorf("expected strategy %q, got %q", "basic_like_fallback", hits[0].Strategy)
	}
}

func TestSQLStore_ListLongTermByClassificationAndMarkConsciousProcessed(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()

	if err := store.PutLongTerm(ctx, LongTermMemory{ID: "lt1", UserID: "u1", AssistantID: "a1", Summary: "conscious one", Classification: "conscious-info", Importance: 5}); err != nil {
		t.Fatalf("PutLongTerm() error = %v", err)
	}
	if err := store.PutLongTerm(ctx, LongTermMemory{ID: "lt2", UserID: "u1", AssistantID: "a1", Summary: "not conscious", Classification: "contextual"}); err != nil {
		t.Fatalf("PutLongTerm() error = %v", err)
	}

	list, err := store.ListLongTermByClassification(ctx, "u1", "conscious-info", 10)
	if err != nil {
		t.Fatalf("ListLongTermByClassification() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != "lt1" {
		t.Fatalf("expected only the conscious-info memory, got %+v", list)
	}
	if list[0].ConsciousProcessed {
		t.Fatalf("expected ConsciousProcessed to start false, got %+v", list[0])
	}

	if err := store.MarkConsciousProcessed(ctx, "u1", "lt1"); err != nil {
		t.Fatalf("MarkConsciousProcessed() error = %v", err)
	}
	got, err := store.GetLongTerm(ctx, "u1", "a1", "lt1")
	if err != nil {
		t.Fatalf("GetLongTerm() error = %v", err)
	}
	if !got.ConsciousProcessed {
		t.Errorf("expected ConsciousProcessed to be true after marking, got %+v", got)
	}
}

func TestSQLStore_Stats(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()

	if err := store.RecordChat(ctx, ChatHistory{ID: "c1", UserID: "u1", AssistantID: "a1", SessionID: "s1", UserInput: "hi", AssistantResp: "hey"}); err != nil {
		t.Fatalf("RecordChat() error = %v", err)
	}
	if err := store.PutShortTerm(ctx, ShortTermMemory{ID: "m1", UserID: "u1", AssistantID: "a1", SessionID: "s1", Content: "x"}); err != nil {
		t.Fatalf("PutShortTerm() error = %v", err)
	}
	if err := store.PutLongTerm(ctx, LongTermMemory{ID: "lt1", UserID: "u1", AssistantID: "a1", Summary: "hello world"}); err != nil {
		t.Fatalf("PutLongTerm() error = %v", err)
	}

	stats, err := store.Stats(ctx, "u1", "a1")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.ChatCount != 1 || stats.ShortTermCount != 1 || stats.LongTermCount != 1 {
		t.Errorf("Stats() = %+v, want counts of 1 each", stats)
	}
	if stats.ApproxBytes == 0 {
		t.Error("expected ApproxBytes to reflect the stored summary length")
	}
}
