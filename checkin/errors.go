/*
errors.go - Centralized error types for the check-in engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Logical duplicates (double check-in, double claim, over-decrement) are
  NOT errors here; they are defined no-ops. The errors below are real
  failures: the store is unreachable or an input cannot be interpreted.

USAGE:
  if errors.Is(err, checkin.ErrStoreUnavailable) {
      // retry with backoff, then give up
  }
*/
package checkin

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStoreUnavailable is returned when the backing store cannot be
	// reached. Startup retries this with fixed backoff before failing.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrFirstLaunchUnset is returned when the launch-day marker was never
	// seeded. The composition root seeds it right after opening the store,
	// so seeing this means a store was wired up without that step.
	ErrFirstLaunchUnset = errors.New("first launch date not set")

	// ErrUnknownCategory is returned by the debug trigger for a rule
	// category name it does not recognize. Ledger and claim state are
	// untouched when this is returned.
	ErrUnknownCategory = errors.New("unknown rule category")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// StoreError wraps a backend failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }
