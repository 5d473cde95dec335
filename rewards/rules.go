/*
rules.go - Declarative reward rule model

PURPOSE:
  Typed rule sets for every reward category plus the special-date
  pattern matcher. Rules are plain data; evaluation lives in
  evaluator.go and config parsing in the factory package.

CATEGORY ENABLEMENT:
  A threshold or rank category is on only when its FIRST entry that
  declares an enable flag says so. No entry declaring one means the
  category is off. Per-entry flags after the first are ignored.

DATE PATTERNS:
  exact    2025-01-01   fires on that one day, never counter-limited
  yearly   *-01-01      every year on Jan 1
  monthly  *-*-15       the 15th of every month
  weekday  friday       every Friday, case-insensitive
*/
package rewards

import (
	"regexp"
	"strings"
	"time"

	"github.com/warp/checkin-engine/checkin"
)

// Rules holds every reward category for one deployment.
type Rules struct {
	Timezone     string
	Default      []string
	Cumulative   []ThresholdRule
	Streak       []ThresholdRule
	Top          []RankRule
	SpecialDates []SpecialDateRule
}

// ThresholdRule fires when a member's counter reaches an exact value.
type ThresholdRule struct {
	Enable  *bool
	Times   int
	Actions []string
}

// RankRule fires when a member checks in at an exact daily rank.
type RankRule struct {
	Enable  *bool
	Rank    int
	Actions []string
}

// SpecialDateRule fires on days matching a date pattern.
type SpecialDateRule struct {
	Date       string
	Repeat     bool
	RepeatTime int
	Actions    []string
}

// CumulativeEnabled reports whether cumulative rewards are on.
func (r *Rules) CumulativeEnabled() bool { return thresholdEnabled(r.Cumulative) }

// StreakEnabled reports whether streak rewards are on.
func (r *Rules) StreakEnabled() bool { return thresholdEnabled(r.Streak) }

// TopEnabled reports whether rank rewards are on.
func (r *Rules) TopEnabled() bool {
	for _, rule := range r.Top {
		if rule.Enable != nil {
			return *rule.Enable
		}
	}
	return false
}

func thresholdEnabled(rules []ThresholdRule) bool {
	for _, rule := range rules {
		if rule.Enable != nil {
			return *rule.Enable
		}
	}
	return false
}

// =============================================================================
// DATE PATTERNS
// =============================================================================

// PatternKind classifies a special-date pattern.
type PatternKind int

const (
	PatternInvalid PatternKind = iota
	PatternExact
	PatternYearly
	PatternMonthly
	PatternWeekday
)

var (
	exactRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	yearlyRe  = regexp.MustCompile(`^\*-(\d{2})-(\d{2})$`)
	monthlyRe = regexp.MustCompile(`^\*-\*-(\d{2})$`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ClassifyPattern reports the kind of a date pattern.
func ClassifyPattern(pattern string) PatternKind {
	p := strings.TrimSpace(pattern)
	switch {
	case exactRe.MatchString(p):
		if _, err := checkin.ParseDay(p); err != nil {
			return PatternInvalid
		}
		return PatternExact
	case yearlyRe.MatchString(p):
		return PatternYearly
	case monthlyRe.MatchString(p):
		return PatternMonthly
	default:
		if _, ok := weekdays[strings.ToLower(p)]; ok {
			return PatternWeekday
		}
		return PatternInvalid
	}
}

// Kind classifies the rule's pattern.
func (r SpecialDateRule) Kind() PatternKind { return ClassifyPattern(r.Date) }

// Matches reports whether the rule's pattern covers the given day.
func (r SpecialDateRule) Matches(day checkin.Day) bool {
	p := strings.TrimSpace(r.Date)
	switch r.Kind() {
	case PatternExact:
		want, err := checkin.ParseDay(p)
		if err != nil {
			return false
		}
		return want == day
	case PatternYearly:
		m := yearlyRe.FindStringSubmatch(p)
		return int(day.Month) == atoi2(m[1]) && day.Dom == atoi2(m[2])
	case PatternMonthly:
		m := monthlyRe.FindStringSubmatch(p)
		return day.Dom == atoi2(m[1])
	case PatternWeekday:
		return weekdays[strings.ToLower(p)] == day.Weekday()
	default:
		return false
	}
}

// Limit is how many times one member may claim this rule. Exact dates
// report 1 but are never counter-tracked; recurring ones repeat up to
// RepeatTime when Repeat is set, once otherwise.
func (r SpecialDateRule) Limit() int {
	if !r.Repeat {
		return 1
	}
	if r.RepeatTime < 1 {
		return 1
	}
	return r.RepeatTime
}

// atoi2 converts a two-digit numeric string already vetted by regex.
func atoi2(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
