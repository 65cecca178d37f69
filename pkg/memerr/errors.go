// Package memerr defines the typed error categories callers of memori
// are expected to branch on with errors.Is. Anything else — a driver
// failure from storage, a network error from an LLM provider — is
// forwarded wrapped with %w, not re-typed.
package memerr

import "errors"

var (
	// ErrInvalidTenant is returned when a Context is missing UserID.
	ErrInvalidTenant = errors.New("memori: invalid tenant context")

	// ErrNoActiveContext names the case of no tenant context being
	// registered for the calling client. tenant.Manager.Current reports
	// that case as ok=false and does not return this error.
	ErrNoActiveContext = errors.New("memori: no active tenant context")

	// ErrContextExpired names the case of a registered tenant context
	// exceeding its idle expiry. tenant.Manager.Current reports that case
	// as ok=false and does not return this error.
	ErrContextExpired = errors.New("memori: tenant context expired")

	// ErrClassifierFailed is returned when the memory classifier could
	// not produce a usable classification after retries.
	ErrClassifierFailed = errors.New("memori: classification failed")

	// ErrDuplicateSuppressed names the case of a candidate being
	// recognized as a duplicate and not stored. No function returns it:
	// a duplicate exchange makes Record return the earlier chat_id with a
	// nil error, and a classification marked as a duplicate is skipped
	// without an error.
	ErrDuplicateSuppressed = errors.New("memori: duplicate memory suppressed")

	// ErrRateLimitExceeded is returned when a rate limit rule rejects
	// an operation.
	ErrRateLimitExceeded = errors.New("memori: rate limit exceeded")

	// ErrQuotaExceeded names a rejection by a cumulative quota (storage
	// bytes, memory count). No function returns it: every limiter
	// rejection, cumulative rules included, surfaces as
	// ErrRateLimitExceeded.
	ErrQuotaExceeded = errors.New("memori: quota exceeded")

	// ErrValidation is returned for malformed input to a public
	// operation (empty required field, invalid enum value, ...).
	ErrValidation = errors.New("memori: validation error")
)
