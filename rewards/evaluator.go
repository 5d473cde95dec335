/*
evaluator.go - Reward rule evaluation

PURPOSE:
  Bridges the check-in ledger to the script interpreter. After a
  successful check-in the evaluator walks every rule category in a fixed
  order (default, cumulative, streak, rank, special dates), consults the
  claim registry for one-shot and limited-repeat rules, and hands the
  matching scripts to the interpreter.

FORCE MODE:
  Each category can be driven directly with force set, which bypasses
  both the category enable flag and all claim reads and writes. Nothing
  is recorded, so forced runs leave real entitlements untouched.
*/
package rewards

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/warp/checkin-engine/checkin"
)

// Evaluator matches reward rules against a member's ledger state.
type Evaluator struct {
	Rules  *Rules
	Ledger *checkin.Ledger
	Claims *checkin.ClaimRegistry
	Interp *Interpreter
	Clock  checkin.Clock
	Log    *zap.Logger
}

func NewEvaluator(rules *Rules, ledger *checkin.Ledger, claims *checkin.ClaimRegistry, interp *Interpreter, clock checkin.Clock, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{Rules: rules, Ledger: ledger, Claims: claims, Interp: interp, Clock: clock, Log: log}
}

// OnCheckIn evaluates every category for a freshly recorded check-in.
// Category failures are logged and do not block later categories.
func (e *Evaluator) OnCheckIn(ctx context.Context, member checkin.MemberID) {
	e.RunDefault(member)

	if total, err := e.Ledger.Total(ctx, member); err != nil {
		e.Log.Error("cumulative lookup failed", zap.String("member", string(member)), zap.Error(err))
	} else if err := e.RunCumulative(ctx, member, total, false); err != nil {
		e.Log.Error("cumulative rewards failed", zap.String("member", string(member)), zap.Error(err))
	}

	if streak, err := e.Ledger.Streak(ctx, member); err != nil {
		e.Log.Error("streak lookup failed", zap.String("member", string(member)), zap.Error(err))
	} else if err := e.RunStreak(ctx, member, streak, false); err != nil {
		e.Log.Error("streak rewards failed", zap.String("member", string(member)), zap.Error(err))
	}

	if rank, ok, err := e.rankToday(ctx, member); err != nil {
		e.Log.Error("rank lookup failed", zap.String("member", string(member)), zap.Error(err))
	} else if ok {
		e.RunTop(member, rank, false)
	}

	if err := e.RunSpecialDates(ctx, member); err != nil {
		e.Log.Error("special-date rewards failed", zap.String("member", string(member)), zap.Error(err))
	}
}

// RunDefault fires the unconditional scripts.
func (e *Evaluator) RunDefault(member checkin.MemberID) {
	if len(e.Rules.Default) > 0 {
		e.Interp.Run(member, e.Rules.Default)
	}
}

// RunCumulative fires every cumulative rule whose threshold the
// member's total has reached, at most once per member per threshold.
func (e *Evaluator) RunCumulative(ctx context.Context, member checkin.MemberID, total int, force bool) error {
	return e.runThreshold(ctx, member, e.Rules.Cumulative, e.Rules.CumulativeEnabled(), checkin.ClaimCumulative, total, force)
}

// RunStreak fires every streak rule whose threshold the member's
// current streak has reached, at most once per member per threshold.
func (e *Evaluator) RunStreak(ctx context.Context, member checkin.MemberID, streak int, force bool) error {
	return e.runThreshold(ctx, member, e.Rules.Streak, e.Rules.StreakEnabled(), checkin.ClaimStreak, streak, force)
}

func (e *Evaluator) runThreshold(ctx context.Context, member checkin.MemberID, rules []ThresholdRule, enabled bool, kind checkin.ClaimKind, value int, force bool) error {
	if !force && !enabled {
		return nil
	}
	for _, rule := range rules {
		if value < rule.Times {
			continue
		}
		if !force {
			claimed, err := e.Claims.HasClaimed(ctx, member, kind, rule.Times)
			if err != nil {
				return err
			}
			if claimed {
				continue
			}
			if err := e.Claims.MarkClaimed(ctx, member, kind, rule.Times); err != nil {
				return err
			}
		}
		e.Interp.Run(member, rule.Actions)
	}
	return nil
}

// RunTop fires the first rank rule matching the member's daily rank.
// Rank resets with the calendar day, so no claim is recorded.
func (e *Evaluator) RunTop(member checkin.MemberID, rank int, force bool) {
	if !force && !e.Rules.TopEnabled() {
		return
	}
	for _, rule := range e.Rules.Top {
		if rule.Rank == rank {
			e.Interp.Run(member, rule.Actions)
			return
		}
	}
}

// RunSpecialDates fires every pattern rule matching today. Recurring
// patterns count against the rule's limit; exact dates never do.
func (e *Evaluator) RunSpecialDates(ctx context.Context, member checkin.MemberID) error {
	return e.runSpecialDates(ctx, member, e.Clock.Today(), false)
}

// DebugSpecialDates force-evaluates the pattern rules against an
// arbitrary day without touching the counters.
func (e *Evaluator) DebugSpecialDates(ctx context.Context, member checkin.MemberID, day checkin.Day) error {
	return e.runSpecialDates(ctx, member, day, true)
}

func (e *Evaluator) runSpecialDates(ctx context.Context, member checkin.MemberID, day checkin.Day, force bool) error {
	for _, rule := range e.Rules.SpecialDates {
		kind := rule.Kind()
		if kind == PatternInvalid || !rule.Matches(day) {
			continue
		}
		if !force && kind != PatternExact {
			times, err := e.Claims.SpecialDateTimes(ctx, member, rule.Date)
			if err != nil {
				return err
			}
			if times >= rule.Limit() {
				continue
			}
			if err := e.Claims.IncrementSpecialDate(ctx, member, rule.Date); err != nil {
				return err
			}
		}
		e.Interp.Run(member, rule.Actions)
	}
	return nil
}

// rankToday parses the ledger's display rank into a number. The second
// return is false when the member has no record today.
func (e *Evaluator) rankToday(ctx context.Context, member checkin.MemberID) (int, bool, error) {
	s, err := e.Ledger.RankToday(ctx, member)
	if err != nil {
		return 0, false, err
	}
	rank, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, nil
	}
	return rank, true, nil
}
