package tenant

import (
	"context"
	"testing"
)

func TestContext_Valid(t *testing.T) {
	cases := []struct {
		name string
		tc   Context
		want bool
	}{
		{"empty", Context{}, false},
		{"user only", Context{UserID: "u1"}, true},
		{"assistant only", Context{AssistantID: "a1"}, false},
		{"user and assistant", Context{UserID: "u1", AssistantID: "a1"}, true},
		{"full", Context{UserID: "u1", AssistantID: "a1", SessionID: "s1"}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.tc.Valid(); got != c.want {
				t.Errorf("Valid() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestContext_Key(t *testing.T) {
	tc := Context{UserID: "u1", AssistantID: "a1", SessionID: "s1"}
	if got, want := tc.Key(), "u1/a1/s1"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
	if tc.String() != tc.Key() {
		t.Errorf("String() should match Key()")
	}
}

func TestWithContext_FromContext(t *testing.T) {
	tc := Context{UserID: "u1", AssistantID: "a1"}
	ctx := WithContext(context.Background(), tc)

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected a tenant context to be present")
	}
	if got.Key() != tc.Key() {
		t.Errorf("FromContext() = %v, want %v", got, tc)
	}

	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected no tenant context on a bare context")
	}
}
