/*
Package checkin provides the core check-in ledger engine.

PURPOSE:
  This package contains the domain types and algorithms for tracking daily
  check-in participation: the append-only check-in ledger, its derived
  metrics (totals, streaks, daily rank, missed days), the make-up
  reconciliation algorithm, the idempotent reward-claim registry, and the
  points / correction-slip accounts.

KEY CONCEPTS IN THIS FILE (types.go):
  - MemberID: Stable identifier for a participant
  - Day: A calendar day (all date math is day based, not wall-clock based)
  - CheckinRecord: One check-in event, unique per (member, day)
  - MemberStat: Aggregate view of one member's participation

DESIGN PRINCIPLES:
  1. Immutability: Check-in records are written once, never updated
  2. Idempotency: Duplicate writes are no-ops, never errors
  3. Day arithmetic: Streaks and missed days walk calendar days, so a Day
     is a plain (year, month, day) triple with no clock attached

SEE ALSO:
  - ledger.go: Derived metrics over the record set
  - store.go: Persistence contract
  - clock.go: Time zone aware "today"
*/
package checkin

import (
	"fmt"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// MemberID uniquely identifies a participant.
type MemberID string

// ClaimKind distinguishes the two one-shot milestone reward families.
type ClaimKind string

const (
	ClaimCumulative ClaimKind = "cumulative"
	ClaimStreak     ClaimKind = "streak"
)

// RankNone is the sentinel rank for a member without a record today.
// Rank rules parse the rank numerically, so the sentinel never matches.
const RankNone = "not checked in"

// =============================================================================
// DAY - A calendar day, the ledger's key dimension
// =============================================================================

// Day is a calendar day with no time-of-day or zone attached.
// Comparable, so it can key maps and sets directly.
type Day struct {
	Year  int
	Month time.Month
	Dom   int
}

// NewDay builds a Day from its components.
func NewDay(year int, month time.Month, dom int) Day {
	// Normalize through time.Date so callers may pass overflowed components.
	t := time.Date(year, month, dom, 0, 0, 0, 0, time.UTC)
	return Day{Year: t.Year(), Month: t.Month(), Dom: t.Day()}
}

// DayOf truncates a point in time to its calendar day in the given zone.
func DayOf(t time.Time, loc *time.Location) Day {
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Dom: d}
}

// ParseDay parses the canonical YYYY-MM-DD form.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return Day{Year: t.Year(), Month: t.Month(), Dom: t.Day()}, nil
}

func (d Day) time() time.Time {
	return time.Date(d.Year, d.Month, d.Dom, 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Day) AddDays(n int) Day { t := d.time().AddDate(0, 0, n); return Day{t.Year(), t.Month(), t.Day()} }
func (d Day) Prev() Day         { return d.AddDays(-1) }
func (d Day) Next() Day         { return d.AddDays(1) }

// Comparison
func (d Day) Before(other Day) bool { return d.time().Before(other.time()) }
func (d Day) After(other Day) bool  { return d.time().After(other.time()) }
func (d Day) IsZero() bool          { return d == Day{} }

// Properties
func (d Day) Weekday() time.Weekday { return d.time().Weekday() }

// String renders the canonical YYYY-MM-DD form used by the stores.
func (d Day) String() string { return d.time().Format("2006-01-02") }

// DaysBetween returns the number of calendar days from 'from' to 'to'.
// Negative when 'to' precedes 'from'.
func DaysBetween(from, to Day) int {
	return int(to.time().Sub(from.time()).Hours() / 24)
}

// =============================================================================
// CHECK-IN RECORD - One participation event
// =============================================================================

// CheckinRecord is a single check-in. Unique per (Member, Day).
// Created once, never updated, never deleted.
type CheckinRecord struct {
	Member MemberID
	Day    Day
	At     time.Time // wall-clock time of the write, used for daily ranking
}

// =============================================================================
// MEMBER STAT - Aggregate view served by the query facade
// =============================================================================

// MemberStat is the full derived view of one member's participation.
type MemberStat struct {
	Member        MemberID
	TotalDays     int
	StreakDays    int
	MissedDays    int
	RankToday     string // numeric rank or RankNone
	CheckedIn     bool   // checked in today
	LastCheckinAt time.Time
	PointsBalance int64 // integer minor units; display is balance/100
	Slips         int
}

// RankedMember pairs a member with a metric for top-N listings.
type RankedMember struct {
	Member MemberID
	Count  int
}
