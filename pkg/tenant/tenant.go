// Package tenant carries the user/assistant/session identity that scopes
// every memory operation. Most callers pass a Context explicitly; the
// Manager exists for interception points (the wrapped LLM client) that
// cannot take an extra parameter without breaking the provider interface
// they're standing in for.
package tenant

import (
	"fmt"
	"time"
)

// Context identifies the tenant a memory operation is scoped to.
type Context struct {
	UserID      string
	AssistantID string
	SessionID   string
	RequestID   string
	CreatedAt   time.Time
}

// Valid reports whether the context carries the minimum identity needed
// to scope a memory operation. AssistantID and SessionID are optional
// refinements of scope, not required identity: a memory operation with
// a user_id but no assistant_id still isolates correctly by user.
func (c Context) Valid() bool {
	return c.UserID != ""
}

// Key returns the storage/partition key for this tenant tuple.
func (c Context) Key() string {
	return fmt.Sprintf("%s/%s/%s", c.UserID, c.AssistantID, c.SessionID)
}

func (c Context) String() string {
	return c.Key()
}
