package checkin

import (
	"time"
)

// =============================================================================
// CLOCK - Time zone aware "today" (all date math is calendar-day based)
// =============================================================================

// Clock supplies "now" and "today" in a configured zone.
// Every component takes a Clock explicitly; nothing reads the system zone.
type Clock interface {
	Now() time.Time
	Today() Day
	Location() *time.Location
}

// SystemClock is the production Clock, pinned to one IANA zone.
type SystemClock struct {
	Loc *time.Location
}

// NewSystemClock resolves an IANA zone name. An empty or unknown name
// falls back to UTC rather than failing startup.
func NewSystemClock(zone string) *SystemClock {
	loc, err := time.LoadLocation(zone)
	if err != nil || zone == "" {
		loc = time.UTC
	}
	return &SystemClock{Loc: loc}
}

func (c *SystemClock) Now() time.Time           { return time.Now().In(c.Loc) }
func (c *SystemClock) Today() Day               { return DayOf(time.Now(), c.Loc) }
func (c *SystemClock) Location() *time.Location { return c.Loc }

// FixedClock pins both the instant and the day. Used by tests and by the
// debug trigger path to evaluate rules as of an arbitrary day.
type FixedClock struct {
	Instant time.Time
	Loc     *time.Location
}

func NewFixedClock(instant time.Time) *FixedClock {
	return &FixedClock{Instant: instant, Loc: instant.Location()}
}

func (c *FixedClock) Now() time.Time           { return c.Instant }
func (c *FixedClock) Today() Day               { return DayOf(c.Instant, c.loc()) }
func (c *FixedClock) Location() *time.Location { return c.loc() }

func (c *FixedClock) loc() *time.Location {
	if c.Loc == nil {
		return time.UTC
	}
	return c.Loc
}

// Advance moves the fixed instant forward, for multi-day test scenarios.
func (c *FixedClock) Advance(d time.Duration) { c.Instant = c.Instant.Add(d) }

// AdvanceDays moves the fixed instant forward by whole calendar days.
func (c *FixedClock) AdvanceDays(n int) { c.Instant = c.Instant.AddDate(0, 0, n) }
