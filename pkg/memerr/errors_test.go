package memerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrors_AreDistinctAndWrappable(t *testing.T) {
	all := []error{
		ErrInvalidTenant, ErrNoActiveContext, ErrContextExpired,
		ErrClassifierFailed, ErrDuplicateSuppressed, ErrRateLimitExceeded,
		ErrQuotaExceeded, ErrValidation,
	}

	for i, e := range all {
		wrapped := fmt.Errorf("operation failed: %w", e)
		if !errors.Is(wrapped, e) {
			t.Errorf("wrapped error should satisfy errors.Is for %v", e)
		}
		for j, other := range all {
			if i == j {
				continue
			}
			if errors.Is(e, other) {
				t.Errorf("%v should not match %v", e, other)
			}
		}
	}
}
