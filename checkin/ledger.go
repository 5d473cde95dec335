/*
ledger.go - Check-in ledger and derived metrics

PURPOSE:
  The Ledger is the source of truth for participation. One record per
  (member, day), written once. Every metric (total, streak, rank, missed
  days, leaderboards) is derived by reading the record set - there is no
  cached counter that can drift.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: records are inserted, never updated or deleted
  2. IDEMPOTENT: writing an existing (member, day) is a no-op
  3. streak(member) <= total(member) for every member

STREAK SEMANTICS:
  The streak is anchored at the member's MOST RECENT recorded day, not at
  today. Walk backward one calendar day at a time while each day exists.
  A member who last checked in yesterday is still "on a streak" until the
  day after tomorrow's midnight makes the gap visible.

MISSED DAYS:
  Counted over [FirstLaunchDate, today), and only for members that have a
  record on FirstLaunchDate itself. A member who joined later is not
  charged for days before they ever participated. This is the
  launch-anchored definition; see DESIGN.md for the alternative.

SEE ALSO:
  - makeup.go: Retroactive fills of missed days
  - store.go: Persistence contract
*/
package checkin

import (
	"context"
	"sort"
	"strconv"
	"time"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger derives participation metrics from the check-in record set.
type Ledger struct {
	Store CheckinStore
	Meta  MetaStore
	Clock Clock
}

func NewLedger(store CheckinStore, meta MetaStore, clock Clock) *Ledger {
	return &Ledger{Store: store, Meta: meta, Clock: clock}
}

// Write records a check-in for today. Safe to call unconditionally:
// a second call on the same day is a no-op. Returns true when a new
// record was created.
func (l *Ledger) Write(ctx context.Context, member MemberID) (bool, error) {
	return l.Store.InsertCheckin(ctx, member, l.Clock.Today(), l.Clock.Now())
}

// WriteDay records a check-in for a specific day (make-up fills).
func (l *Ledger) WriteDay(ctx context.Context, member MemberID, day Day) (bool, error) {
	return l.Store.InsertCheckin(ctx, member, day, l.Clock.Now())
}

// IsCheckedIn reports whether the member has a record for today.
func (l *Ledger) IsCheckedIn(ctx context.Context, member MemberID) (bool, error) {
	return l.Store.HasCheckin(ctx, member, l.Clock.Today())
}

// Total returns the member's distinct-day count.
func (l *Ledger) Total(ctx context.Context, member MemberID) (int, error) {
	days, err := l.Store.CheckinDays(ctx, member)
	if err != nil {
		return 0, err
	}
	return len(days), nil
}

// Streak returns the member's consecutive-day count ending at their most
// recent recorded day.
func (l *Ledger) Streak(ctx context.Context, member MemberID) (int, error) {
	days, err := l.Store.CheckinDays(ctx, member)
	if err != nil {
		return 0, err
	}
	return streakOf(days), nil
}

// streakOf walks backward from the latest day while each day is present.
func streakOf(days []Day) int {
	if len(days) == 0 {
		return 0
	}
	set := make(map[Day]struct{}, len(days))
	latest := days[0]
	for _, d := range days {
		set[d] = struct{}{}
		if d.After(latest) {
			latest = d
		}
	}
	streak := 0
	for d := latest; ; d = d.Prev() {
		if _, ok := set[d]; !ok {
			break
		}
		streak++
	}
	return streak
}

// RankToday returns the member's 1-based position among today's records,
// ordered by check-in time ascending, as a decimal string. Members with
// no record today get RankNone.
func (l *Ledger) RankToday(ctx context.Context, member MemberID) (string, error) {
	recs, err := l.Store.CheckinsOn(ctx, l.Clock.Today())
	if err != nil {
		return "", err
	}
	for i, rec := range recs {
		if rec.Member == member {
			return strconv.Itoa(i + 1), nil
		}
	}
	return RankNone, nil
}

// AmountToday returns the number of distinct members checked in today.
func (l *Ledger) AmountToday(ctx context.Context) (int, error) {
	recs, err := l.Store.CheckinsOn(ctx, l.Clock.Today())
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// MissedDays counts the member's absent days in [FirstLaunchDate, today).
// Returns 0 for members without a record on FirstLaunchDate.
func (l *Ledger) MissedDays(ctx context.Context, member MemberID) (int, error) {
	first, ok, err := l.Meta.FirstLaunchDate(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrFirstLaunchUnset
	}
	days, err := l.Store.CheckinDays(ctx, member)
	if err != nil {
		return 0, err
	}
	set := make(map[Day]struct{}, len(days))
	for _, d := range days {
		set[d] = struct{}{}
	}
	if _, onLaunchDay := set[first]; !onLaunchDay {
		return 0, nil
	}
	missed := 0
	today := l.Clock.Today()
	for d := first; d.Before(today); d = d.Next() {
		if _, ok := set[d]; !ok {
			missed++
		}
	}
	return missed, nil
}

// LastCheckinAt returns the member's most recent check-in time in the
// configured zone. ok is false when the member never checked in.
func (l *Ledger) LastCheckinAt(ctx context.Context, member MemberID) (time.Time, bool, error) {
	rec, ok, err := l.Store.LastCheckin(ctx, member)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return rec.At.In(l.Clock.Location()), true, nil
}

// SignedDates returns the member's recorded days, ascending.
func (l *Ledger) SignedDates(ctx context.Context, member MemberID) ([]Day, error) {
	return l.Store.CheckinDays(ctx, member)
}

// =============================================================================
// LEADERBOARDS
// =============================================================================

// TopTotal returns the n members with most recorded days, descending.
func (l *Ledger) TopTotal(ctx context.Context, n int) ([]RankedMember, error) {
	return l.Store.TotalsTop(ctx, n)
}

// TopStreak returns the n members with the longest current streaks.
// Computed by walking every member's day set - O(members) streak walks,
// acceptable at the expected community scale.
func (l *Ledger) TopStreak(ctx context.Context, n int) ([]RankedMember, error) {
	byMember, err := l.Store.DaysByMember(ctx)
	if err != nil {
		return nil, err
	}
	ranked := make([]RankedMember, 0, len(byMember))
	for member, days := range byMember {
		ranked = append(ranked, RankedMember{Member: member, Count: streakOf(days)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Member < ranked[j].Member
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked, nil
}
