/*
store.go - Persistence contract for the check-in engine

PURPOSE:
  Defines the interface between the domain logic and the backing store.
  The engine only requires upsert-with-uniqueness and range scans; it is
  agnostic to whether the backend is an embedded file database, a
  client/server SQL database, or an in-memory map.

UNIQUENESS INVARIANTS THE STORE MUST ENFORCE:
  - checkins:             unique (member, day)
  - claimed rewards:      unique (member, kind, threshold)
  - special date claims:  unique (member, rule)
  - points / slips:       one row per member

IDEMPOTENCY:
  InsertCheckin and MarkClaimed are check-then-insert operations. A write
  that would violate uniqueness reports "already present" instead of
  failing; callers treat duplicates as no-ops.

ATOMICITY:
  Each method is one short transaction. The engine never holds a
  multi-operation transaction across user-visible latency; the make-up
  algorithm issues one InsertCheckin per filled day.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: production SQLite (same SQL works for
    client/server engines with minor dialect changes)
  - checkin/store/memory.go: in-memory for testing

SEE ALSO:
  - ledger.go: Derived metrics over this contract
  - makeup.go: Retroactive fills over this contract
*/
package checkin

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Everything the engine needs from a backend
// =============================================================================

// Store is the persistence contract. All mutations are idempotent or
// clamped; none of them fail on logical duplicates.
type Store interface {
	CheckinStore
	PointsStore
	SlipStore
	ClaimStore
	MetaStore
}

// CheckinStore persists check-in records. Append-only per (member, day).
type CheckinStore interface {
	// InsertCheckin writes a record unless one exists for (member, day).
	// Returns true when a new record was created.
	InsertCheckin(ctx context.Context, member MemberID, day Day, at time.Time) (bool, error)

	// HasCheckin reports whether (member, day) exists.
	HasCheckin(ctx context.Context, member MemberID, day Day) (bool, error)

	// CheckinDays returns the member's distinct recorded days, ascending.
	CheckinDays(ctx context.Context, member MemberID) ([]Day, error)

	// CheckinsOn returns all records for one day, ordered by write time
	// ascending (first to check in is first).
	CheckinsOn(ctx context.Context, day Day) ([]CheckinRecord, error)

	// LastCheckin returns the member's most recent record by write time.
	// ok is false when the member has no records.
	LastCheckin(ctx context.Context, member MemberID) (rec CheckinRecord, ok bool, err error)

	// TotalsTop returns the n members with most distinct recorded days,
	// descending. Ties break by member id ascending.
	TotalsTop(ctx context.Context, n int) ([]RankedMember, error)

	// DaysByMember returns every member's recorded day set. Used by the
	// streak leaderboard, which walks each member's days.
	DaysByMember(ctx context.Context) (map[MemberID][]Day, error)
}

// PointsStore keeps one integer minor-unit balance per member.
type PointsStore interface {
	Points(ctx context.Context, member MemberID) (int64, error)
	SetPoints(ctx context.Context, member MemberID, balance int64) error
	// AddPoints upserts balance += delta and returns the new balance.
	AddPoints(ctx context.Context, member MemberID, delta int64) (int64, error)
}

// SlipStore keeps one non-negative correction-slip count per member.
type SlipStore interface {
	Slips(ctx context.Context, member MemberID) (int, error)
	AddSlips(ctx context.Context, member MemberID, amount int) error
	// DecreaseSlips clamps at zero; over-decrement is not an error.
	DecreaseSlips(ctx context.Context, member MemberID, amount int) error
	ClearSlips(ctx context.Context, member MemberID) error
}

// ClaimStore records which rewards have already been granted.
type ClaimStore interface {
	// HasClaimed / MarkClaimed gate one-shot milestone rewards.
	// MarkClaimed is idempotent; writes are permanent.
	HasClaimed(ctx context.Context, member MemberID, kind ClaimKind, threshold int) (bool, error)
	MarkClaimed(ctx context.Context, member MemberID, kind ClaimKind, threshold int, at time.Time) error

	// SpecialDateTimes / IncrementSpecialDate track repeat counts for
	// calendar-pattern rules. Exact-date rules never touch these.
	SpecialDateTimes(ctx context.Context, member MemberID, ruleKey string) (int, error)
	IncrementSpecialDate(ctx context.Context, member MemberID, ruleKey string, at time.Time) error
}

// MetaStore holds the single process-wide launch-day marker.
type MetaStore interface {
	// SeedFirstLaunch writes the marker only if absent.
	SeedFirstLaunch(ctx context.Context, day Day) error

	// FirstLaunchDate returns the marker. ok is false when never seeded.
	FirstLaunchDate(ctx context.Context) (day Day, ok bool, err error)
}
