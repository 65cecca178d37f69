package curator

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kadirpekel/memori/pkg/storage"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.NewSQLStore(storage.SQLConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "memori.db")})
	if err != nil {
		t.Fatalf("NewSQLStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedLongTerm(t *testing.T, store storage.Store, importances ...float64) {
	t.Helper()
	for i, imp := range importances {
		err := store.PutLongTerm(context.Background(), storage.LongTermMemory{
			ID: uuidFor(i), UserID: "u1", AssistantID: "a1",
			Summary: uuidFor(i), Importance: imp,
			Classification: "conscious-info",
		})
		if err != nil {
			t.Fatalf("PutLongTerm() error = %v", err)
		}
	}
}

func uuidFor(i int) string {
	return "mem-" + string(rune('a'+i))
}

func TestCurate_PromotesHighestImportanceUpToLimit(t *testing.T) {
	store := newTestStore(t)
	seedLongTerm(t, store, 0.2, 0.9, 0.5, 0.7)
	c := New(store)

	promoted, err := c.Curate(context.Background(), "u1", "a1", "s1", 2)
	if err != nil {
		t.Fatalf("Curate() error = %v", err)
	}
	if len(promoted) != 2 {
		t.Fatalf("expected 2 promoted memories, got %d", len(promoted))
	}

	stm, err := store.ShortTerm(context.Background(), "u1", "a1", "s1")
	if err != nil {
		t.Fatalf("ShortTerm() error = %v", err)
	}
	if len(stm) != 2 {
		t.Fatalf("expected 2 short-term entries, got %d", len(stm))
	}
}

func TestCurate_SkipsSecondCallForSameSession(t *testing.T) {
	store := newTestStore(t)
	seedLongTerm(t, store, 0.9)
	c := New(store)

	first, err := c.Curate(context.Background(), "u1", "a1", "s1", 5)
	if err != nil {
		t.Fatalf("Curate() error = %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 promoted memory, got %d", len(first))
	}

	second, err := c.Curate(context.Background(), "u1", "a1", "s1", 5)
	if err != nil {
		t.Fatalf("second Curate() error = %v", err)
	}
	if second != nil {
		t.Errorf("expected second Curate() in the same session to be a no-op, got %+v", second)
	}
}

func TestCurate_ResetAllowsRecuration(t *testing.T) {
	store := newTestStore(t)
	seedLongTerm(t, store, 0.9)
	c := New(store)

	_, _ = c.Curate(context.Background(), "u1", "a1", "s1", 5)
	// The first pass left promoted rows in the session and flagged its
	// source processed; clear the rows and add a fresh candidate so the
	// store-side guards do not also short-circuit the second pass.
	if err := store.EvictShortTerm(context.Background(), "u1", "a1", "s1", ""); err != nil {
		t.Fatalf("EvictShortTerm() error = %v", err)
	}
	if err := store.PutLongTerm(context.Background(), storage.LongTermMemory{ID: "mem-new", UserID: "u1", AssistantID: "a1", Summary: "mem-new", Importance: 0.8, Classification: "conscious-info"}); err != nil {
		t.Fatalf("PutLongTerm() error = %v", err)
	}
	c.Reset("u1", "a1", "s1")

	second, err := c.Curate(context.Background(), "u1", "a1", "s1", 5)
	if err != nil {
		t.Fatalf("Curate() after Reset error = %v", err)
	}
	if len(second) != 1 {
		t.Errorf("expected Curate() after Reset to promote again, got %+v", second)
	}
}

func TestCurate_PromotedEntryCarriesConsciousFields(t *testing.T) {
	store := newTestStore(t)
	seedLongTerm(t, store, 0.9)
	c := New(store)

	promoted, err := c.Curate(context.Background(), "u1", "a1", "s1", 5)
	if err != nil {
		t.Fatalf("Curate() error = %v", err)
	}
	if len(promoted) != 1 {
		t.Fatalf("expected 1 promoted memory, got %d", len(promoted))
	}
	stm := promoted[0]
	if !strings.HasPrefix(stm.ID, "conscious_"+uuidFor(0)+"_") {
		t.Errorf("ID = %q, want prefix %q", stm.ID, "conscious_"+uuidFor(0)+"_")
	}
	if stm.Category != "conscious_context" {
		t.Errorf("Category = %q, want conscious_context", stm.Category)
	}
	if !stm.IsPermanentContext {
		t.Error("expected IsPermanentContext = true")
	}
	if !stm.ExpiresAt.IsZero() {
		t.Errorf("ExpiresAt = %v, want zero value", stm.ExpiresAt)
	}

	mem, err := store.GetLongTerm(context.Background(), "u1", "a1", uuidFor(0))
	if err != nil {
		t.Fatalf("GetLongTerm() error = %v", err)
	}
	if !mem.ConsciousProcessed {
		t.Error("expected source memory's ConsciousProcessed = true after promotion")
	}
}

func TestCurate_IgnoresNonConsciousClassification(t *testing.T) {
	store := newTestStore(t)
	if err := store.PutLongTerm(context.Background(), storage.LongTermMemory{
		ID: "mem-x", UserID: "u1", AssistantID: "a1", Summary: "not conscious", Importance: 0.9,
		Classification: "essential",
	}); err != nil {
		t.Fatalf("PutLongTerm() error = %v", err)
	}
	c := New(store)

	promoted, err := c.Curate(context.Background(), "u1", "a1", "s1", 5)
	if err != nil {
		t.Fatalf("Curate() error = %v", err)
	}
	if len(promoted) != 0 {
		t.Errorf("expected no promotions for non-conscious classification, got %+v", promoted)
	}
}

func TestCurate_DefaultsLimitWhenNonPositive(t *testing.T) {
	store := newTestStore(t)
	seedLongTerm(t, store, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6)
	c := New(store)

	promoted, err := c.Curate(context.Background(), "u1", "a1", "s1", 0)
	if err != nil {
		t.Fatalf("Curate() error = %v", err)
	}
	if len(promoted) != 5 {
		t.Errorf("expected default limit of 5, got %d promoted", len(promoted))
	}
}
