/*
Package rewards provides the declarative reward engine: rule evaluation
on check-in events and the action-script interpreter that executes
reward effects.

PURPOSE:
  Rewards are expressed as small scripts of bracket-tagged statements.
  This file is the parser stage: it turns raw statement lines into typed
  variants so execution never re-inspects strings. Parsing is separated
  from execution deliberately - the interpreter only type-switches.

SCRIPT GRAMMAR (one statement per line):
  [SLEEP] <ticks>                      add to the running delay
  [PROB=<p>] <effect>                  gate one effect on a uniform draw
  [RANDOM_PICK=<n>] ... [/RANDOM_PICK] schedule n random block lines
  [RANDOM_WEIGHTED] ... [/RANDOM_WEIGHTED]
      [WEIGHT=<w>] <effect>            weighted single draw (default 1)
  [MESSAGE] <text>                     private message
  [BROADCAST] <text>                   message to all online members
  [TITLE] <main>|<sub>                 on-screen text pair
  [COMMAND] <text>                     privileged command
  [SOUND] <name> [vol] [pitch]         named sound effect
  [EFFECT] <name> [level] [seconds]    timed status effect
  [ITEM] <key> [amount] [payload] [force=true]
  [POINTS] <value|a..b> [z|.Nf]        points grant

  Unrecognized tags parse to Unknown and execute as no-ops. Unparseable
  numeric arguments fall back to defaults rather than aborting the line.

SEE ALSO:
  - script.go: Statement-sequence parsing (control constructs)
  - interpreter.go: Execution with delay / probability / random draws
*/
package rewards

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACTION VARIANTS - Parsed effect statements
// =============================================================================

// Action is a parsed effect statement. Exactly one variant per tag.
type Action interface {
	actionName() string
}

type MessageAction struct{ Text string }

type BroadcastAction struct{ Text string }

type TitleAction struct{ Main, Sub string }

type CommandAction struct{ Text string }

type SoundAction struct {
	Name   string
	Volume float64
	Pitch  float64
}

type StatusEffectAction struct {
	Name    string
	Level   int
	Seconds int
}

type ItemAction struct {
	Key     string
	Amount  int
	Payload string // opaque structured payload, applied best-effort
	Force   bool   // normalize the payload instead of dropping it on failure
}

type PointsAction struct{ Spec PointsSpec }

// UnknownAction keeps the raw line for debug logging. Executes as a no-op.
type UnknownAction struct{ Raw string }

func (MessageAction) actionName() string      { return "message" }
func (BroadcastAction) actionName() string    { return "broadcast" }
func (TitleAction) actionName() string        { return "title" }
func (CommandAction) actionName() string      { return "command" }
func (SoundAction) actionName() string        { return "sound" }
func (StatusEffectAction) actionName() string { return "effect" }
func (ItemAction) actionName() string         { return "item" }
func (PointsAction) actionName() string       { return "points" }
func (UnknownAction) actionName() string      { return "unknown" }

// =============================================================================
// ACTION PARSING
// =============================================================================

var forcePayloadRe = regexp.MustCompile(`(?i)\s+force=true$`)

// ParseAction parses one effect statement. Never fails: unrecognized
// tags or missing payloads degrade to UnknownAction.
func ParseAction(line string) Action {
	line = strings.TrimSpace(line)
	tag, rest, ok := splitTag(line)
	if !ok {
		return UnknownAction{Raw: line}
	}

	switch tag {
	case "MESSAGE":
		return MessageAction{Text: rest}
	case "BROADCAST":
		return BroadcastAction{Text: rest}
	case "TITLE":
		main, sub, _ := strings.Cut(rest, "|")
		return TitleAction{Main: strings.TrimSpace(main), Sub: strings.TrimSpace(sub)}
	case "COMMAND":
		return CommandAction{Text: rest}
	case "SOUND":
		args := strings.Fields(rest)
		if len(args) == 0 {
			return UnknownAction{Raw: line}
		}
		return SoundAction{
			Name:   strings.ToUpper(args[0]),
			Volume: floatArg(args, 1, 1.0),
			Pitch:  floatArg(args, 2, 1.0),
		}
	case "EFFECT":
		args := strings.Fields(rest)
		if len(args) == 0 {
			return UnknownAction{Raw: line}
		}
		return StatusEffectAction{
			Name:    strings.ToUpper(args[0]),
			Level:   atLeast(intArg(args, 1, 1), 1),
			Seconds: atLeast(intArg(args, 2, 5), 1),
		}
	case "ITEM":
		return parseItem(rest, line)
	case "POINTS":
		return PointsAction{Spec: ParsePointsSpec(rest)}
	default:
		return UnknownAction{Raw: line}
	}
}

// splitTag extracts a leading [TAG] and the trimmed remainder.
func splitTag(line string) (tag, rest string, ok bool) {
	if !strings.HasPrefix(line, "[") {
		return "", "", false
	}
	end := strings.IndexByte(line, ']')
	if end < 0 {
		return "", "", false
	}
	return line[1:end], strings.TrimSpace(line[end+1:]), true
}

func parseItem(rest, raw string) Action {
	parts := strings.Fields(rest)
	if len(parts) == 0 {
		return UnknownAction{Raw: raw}
	}
	key := parts[0]
	// Namespaced keys collapse to their final segment.
	if i := strings.LastIndexByte(key, ':'); i >= 0 {
		key = key[i+1:]
	}
	act := ItemAction{Key: strings.ToUpper(key), Amount: intArg(parts, 1, 1)}
	if len(parts) > 2 {
		payload := strings.Join(parts[2:], " ")
		if forcePayloadRe.MatchString(payload) {
			act.Force = true
			payload = forcePayloadRe.ReplaceAllString(payload, "")
		}
		act.Payload = strings.Trim(strings.TrimSpace(payload), `"`)
	}
	return act
}

func floatArg(args []string, i int, def float64) float64 {
	if i >= len(args) {
		return def
	}
	v, err := strconv.ParseFloat(args[i], 64)
	if err != nil {
		return def
	}
	return v
}

func intArg(args []string, i int, def int) int {
	if i >= len(args) {
		return def
	}
	v, err := strconv.Atoi(args[i])
	if err != nil {
		return def
	}
	return v
}

func atLeast(v, floor int) int {
	if v < floor {
		return floor
	}
	return v
}

// =============================================================================
// POINTS SPEC - "<value|a..b> [z|.Nf]"
// =============================================================================

var pointsFormatRe = regexp.MustCompile(`^\.?(\d)f$`)

// PointsSpec is a parsed points grant: a literal value or uniform range,
// with optional rounding before the ×100 minor-unit conversion.
type PointsSpec struct {
	Lo, Hi float64
	Round  bool // apply Places rounding before scaling
	Places int  // 0 for "z", capped at 2 for ".Nf"
}

// ParsePointsSpec parses the payload of a [POINTS] statement.
// Unparseable numbers default to zero; an unrecognized format token is
// ignored (raw value used).
func ParsePointsSpec(spec string) PointsSpec {
	parts := strings.Fields(spec)
	var out PointsSpec
	if len(parts) == 0 {
		return out
	}
	rangePart := parts[0]
	if lo, hi, ok := strings.Cut(rangePart, ".."); ok {
		out.Lo = parseFloatDefault(lo, 0)
		out.Hi = parseFloatDefault(hi, out.Lo)
	} else {
		out.Lo = parseFloatDefault(rangePart, 0)
		out.Hi = out.Lo
	}
	if len(parts) > 1 {
		switch fmt := parts[1]; {
		case fmt == "z":
			out.Round, out.Places = true, 0
		case pointsFormatRe.MatchString(fmt):
			n, _ := strconv.Atoi(pointsFormatRe.FindStringSubmatch(fmt)[1])
			if n > 2 {
				n = 2
			}
			out.Round, out.Places = true, n
		}
	}
	return out
}

func parseFloatDefault(s string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return v
}

// Roll draws a value from the range and returns it in integer minor
// units (×100, rounded to nearest).
func (s PointsSpec) Roll(rng Rand) int64 {
	v := s.Lo
	if s.Hi > s.Lo {
		v = s.Lo + rng.Float64()*(s.Hi-s.Lo)
	}
	d := decimal.NewFromFloat(v)
	if s.Round {
		d = d.Round(int32(s.Places))
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
