/*
interpreter.go - Action-script execution

PURPOSE:
  Executes a parsed script: a fold over the step sequence carrying one
  running delay accumulator. SLEEP adds to the accumulator; every other
  step schedules zero or more effects at the then-current delay. The
  accumulator spans the whole sequence - it is not block scoped.

SCHEDULING MODEL:
  Each effect is handed to the DelayQueue with its accumulated delay and
  fires later on a timer. Scheduling returns immediately; there is no
  cancellation. Delay is wall-clock: one script tick is 50ms.

RANDOMNESS:
  Probability gates, random picks, weighted draws and points ranges all
  draw from one injected Rand source so tests can pin the sequence.
*/
package rewards

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/checkin-engine/checkin"
)

// TickDuration converts script ticks to wall-clock delay.
const TickDuration = 50 * time.Millisecond

// Rand is the random source used by all script draws.
// *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// =============================================================================
// INTERPRETER
// =============================================================================

// Interpreter executes action scripts for a member.
type Interpreter struct {
	Queue   DelayQueue
	Rand    Rand
	Effects Effector
	Points  *checkin.PointsAccount
	Log     *zap.Logger
}

// NewInterpreter wires an interpreter with a time-seeded random source.
func NewInterpreter(queue DelayQueue, effects Effector, points *checkin.PointsAccount, log *zap.Logger) *Interpreter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Interpreter{
		Queue:   queue,
		Rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
		Effects: effects,
		Points:  points,
		Log:     log,
	}
}

// Run executes a script body for the member. Control statements resolve
// immediately; effects are scheduled and fire asynchronously.
func (in *Interpreter) Run(member checkin.MemberID, lines []string) {
	in.RunScript(member, ParseScript(lines))
}

// RunScript executes pre-parsed steps.
func (in *Interpreter) RunScript(member checkin.MemberID, steps []Step) {
	runID := uuid.NewString()
	delay := time.Duration(0)

	for _, step := range steps {
		switch s := step.(type) {
		case SleepStep:
			delay += time.Duration(s.Ticks) * TickDuration

		case ProbStep:
			if in.Rand.Float64() <= s.Chance {
				in.schedule(runID, member, s.Action, delay)
			}

		case PickStep:
			picked := make([]Action, len(s.Actions))
			copy(picked, s.Actions)
			in.Rand.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
			n := s.N
			if n < 0 {
				n = 0
			}
			if n > len(picked) {
				n = len(picked)
			}
			for _, act := range picked[:n] {
				in.schedule(runID, member, act, delay)
			}

		case WeightedStep:
			if act, ok := in.drawWeighted(s.Choices); ok {
				in.schedule(runID, member, act, delay)
			}

		case PlainStep:
			in.schedule(runID, member, s.Action, delay)
		}
	}
}

// drawWeighted picks one choice by cumulative weight over a uniform draw.
func (in *Interpreter) drawWeighted(choices []WeightedChoice) (Action, bool) {
	total := 0
	for _, c := range choices {
		if c.Weight > 0 {
			total += c.Weight
		}
	}
	if total <= 0 {
		return nil, false
	}
	r := in.Rand.Intn(total)
	for _, c := range choices {
		if c.Weight <= 0 {
			continue
		}
		if r < c.Weight {
			return c.Action, true
		}
		r -= c.Weight
	}
	return nil, false
}

func (in *Interpreter) schedule(runID string, member checkin.MemberID, act Action, delay time.Duration) {
	in.Log.Debug("scheduling action",
		zap.String("run", runID),
		zap.String("member", string(member)),
		zap.String("action", act.actionName()),
		zap.Duration("delay", delay))

	in.Queue.Schedule(delay, func() {
		in.execute(member, act)
	})
}

// execute runs one effect at fire time. The triggering request is long
// gone by now, so account writes use a background context.
func (in *Interpreter) execute(member checkin.MemberID, act Action) {
	switch a := act.(type) {
	case MessageAction:
		in.Effects.Message(member, in.expand(member, a.Text))
	case BroadcastAction:
		in.Effects.Broadcast(in.expand(member, a.Text))
	case TitleAction:
		in.Effects.Title(member, a.Main, a.Sub)
	case CommandAction:
		in.Effects.Command(in.expand(member, a.Text))
	case SoundAction:
		in.Effects.Sound(member, a.Name, a.Volume, a.Pitch)
	case StatusEffectAction:
		in.Effects.ApplyEffect(member, a.Name, a.Level, a.Seconds)
	case ItemAction:
		in.giveItem(member, a)
	case PointsAction:
		in.grantPoints(member, a.Spec)
	case UnknownAction:
		in.Log.Debug("ignoring unknown action", zap.String("raw", a.Raw))
	}
}

func (in *Interpreter) giveItem(member checkin.MemberID, a ItemAction) {
	payload := a.Payload
	if a.Force && payload != "" {
		// Best-effort normalization: ensure one enclosing brace pair.
		payload = "{" + strings.Trim(strings.TrimSpace(payload), "{}") + "}"
	}
	if err := in.Effects.GiveItem(member, a.Key, a.Amount, payload); err != nil {
		// Recoverable: the stack was granted without its payload.
		in.Log.Warn("item payload rejected",
			zap.String("member", string(member)),
			zap.String("key", a.Key),
			zap.Error(err))
		in.Effects.Message(member, "Failed to parse item payload: "+err.Error())
	}
}

func (in *Interpreter) grantPoints(member checkin.MemberID, spec PointsSpec) {
	minorUnits := spec.Roll(in.Rand)
	balance, err := in.Points.Add(context.Background(), member, minorUnits)
	if err != nil {
		in.Log.Error("points grant failed",
			zap.String("member", string(member)),
			zap.Int64("minor_units", minorUnits),
			zap.Error(err))
		return
	}
	in.Log.Debug("points granted",
		zap.String("member", string(member)),
		zap.Int64("minor_units", minorUnits),
		zap.String("balance", checkin.FormatPoints(balance)))
}

// expand substitutes member references in effect text.
func (in *Interpreter) expand(member checkin.MemberID, text string) string {
	return strings.ReplaceAll(text, "%member%", string(member))
}
