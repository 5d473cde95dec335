/*
script.go - Statement-sequence parsing (control constructs)

PURPOSE:
  Turns the raw lines of an action-script body into a typed step
  sequence. Control statements (SLEEP, PROB, RANDOM_PICK,
  RANDOM_WEIGHTED) wrap or group plain effect statements; everything
  else parses to a plain step via ParseAction.

BLOCK RULES:
  Random blocks collect every following line until their terminator (or
  end of input) and parse each collected line as a plain effect. Blocks
  do not nest; a control line inside a block is treated as an effect
  line and will execute as an Unknown no-op.
*/
package rewards

import (
	"regexp"
	"strconv"
	"strings"
)

// =============================================================================
// STEP VARIANTS
// =============================================================================

// Step is one parsed script statement.
type Step interface {
	stepName() string
}

// SleepStep adds ticks to the running delay accumulator.
type SleepStep struct{ Ticks int }

// ProbStep executes its action only when a uniform draw is <= Chance.
type ProbStep struct {
	Chance float64
	Action Action
}

// PickStep schedules N randomly chosen actions from its block, all at
// the current delay.
type PickStep struct {
	N       int
	Actions []Action
}

// WeightedStep draws exactly one action by weight.
type WeightedStep struct{ Choices []WeightedChoice }

type WeightedChoice struct {
	Weight int
	Action Action
}

// PlainStep schedules one effect at the current delay.
type PlainStep struct{ Action Action }

func (SleepStep) stepName() string    { return "sleep" }
func (ProbStep) stepName() string     { return "prob" }
func (PickStep) stepName() string     { return "pick" }
func (WeightedStep) stepName() string { return "weighted" }
func (PlainStep) stepName() string    { return "plain" }

// =============================================================================
// SCRIPT PARSER
// =============================================================================

var weightRe = regexp.MustCompile(`^\[WEIGHT=(\d+)\]\s*(.*)$`)

// ParseScript parses an ordered statement list into steps. Parsing never
// fails: malformed arguments fall back to defaults and unknown tags
// become no-op actions.
func ParseScript(lines []string) []Step {
	var steps []Step
	for i := 0; i < len(lines); {
		raw := strings.TrimSpace(lines[i])
		if raw == "" {
			i++
			continue
		}

		switch {
		case strings.HasPrefix(raw, "[RANDOM_PICK="):
			n := bracketInt(raw, "[RANDOM_PICK=", 1)
			block, next := collectBlock(lines, i+1, "[/RANDOM_PICK]")
			steps = append(steps, PickStep{N: n, Actions: parseAll(block)})
			i = next

		case strings.HasPrefix(raw, "[RANDOM_WEIGHTED]"):
			block, next := collectBlock(lines, i+1, "[/RANDOM_WEIGHTED]")
			var choices []WeightedChoice
			for _, line := range block {
				weight := 1
				action := line
				if m := weightRe.FindStringSubmatch(line); m != nil {
					if w, err := strconv.Atoi(m[1]); err == nil {
						weight = w
					}
					action = m[2]
				}
				choices = append(choices, WeightedChoice{Weight: weight, Action: ParseAction(action)})
			}
			steps = append(steps, WeightedStep{Choices: choices})
			i = next

		case strings.HasPrefix(raw, "[PROB="):
			p := bracketFloat(raw, "[PROB=", 1.0)
			_, rest, _ := splitTag(raw)
			steps = append(steps, ProbStep{Chance: p, Action: ParseAction(rest)})
			i++

		case strings.HasPrefix(raw, "[SLEEP]"):
			ticks := 0
			if _, rest, ok := splitTag(raw); ok {
				if v, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil {
					ticks = v
				}
			}
			steps = append(steps, SleepStep{Ticks: ticks})
			i++

		default:
			steps = append(steps, PlainStep{Action: ParseAction(raw)})
			i++
		}
	}
	return steps
}

// collectBlock gathers lines until the terminator; returns the block and
// the index just past it.
func collectBlock(lines []string, start int, terminator string) ([]string, int) {
	var block []string
	j := start
	for ; j < len(lines); j++ {
		s := strings.TrimSpace(lines[j])
		if strings.HasPrefix(s, terminator) {
			j++
			break
		}
		block = append(block, s)
	}
	return block, j
}

func parseAll(lines []string) []Action {
	actions := make([]Action, 0, len(lines))
	for _, line := range lines {
		actions = append(actions, ParseAction(line))
	}
	return actions
}

// bracketInt parses "[PREFIX<n>]" forms, e.g. "[RANDOM_PICK=3]".
// Non-positive counts are as useless as unparseable ones and also fall
// back to the default.
func bracketInt(raw, prefix string, def int) int {
	rest := strings.TrimPrefix(raw, prefix)
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return def
	}
	v, err := strconv.Atoi(rest[:end])
	if err != nil || v < 1 {
		return def
	}
	return v
}

func bracketFloat(raw, prefix string, def float64) float64 {
	rest := strings.TrimPrefix(raw, prefix)
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return def
	}
	v, err := strconv.ParseFloat(rest[:end], 64)
	if err != nil {
		return def
	}
	return v
}
