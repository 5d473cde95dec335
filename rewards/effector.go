/*
effector.go - Presentation-effect boundary

PURPOSE:
  The engine decides WHAT fires; the host decides HOW it looks. Every
  effect type except the points grant is a presentation effect delivered
  through this interface. The engine ships a structured-log Effector for
  headless operation and a Recorder for tests and debug previews.

DEGRADED EXECUTION:
  Member-targeted effects on an unreachable member are silent no-ops at
  the host's discretion; the engine never retries or errors. Item
  payload parse failure is the one noisy case: the host reports it so
  the interpreter can log and notify the member, but the stack is still
  granted without the payload.
*/
package rewards

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/warp/checkin-engine/checkin"
)

// =============================================================================
// EFFECTOR INTERFACE
// =============================================================================

// Effector executes presentation effects. Implementations must tolerate
// unknown members and unknown effect names without failing.
type Effector interface {
	Message(member checkin.MemberID, text string)
	Broadcast(text string)
	Title(member checkin.MemberID, main, sub string)
	Command(text string)
	Sound(member checkin.MemberID, name string, volume, pitch float64)
	ApplyEffect(member checkin.MemberID, name string, level, seconds int)

	// GiveItem grants a stack. A payload that cannot be interpreted is
	// reported as an error AFTER the stack is granted without it.
	GiveItem(member checkin.MemberID, key string, amount int, payload string) error
}

// =============================================================================
// LOG EFFECTOR - headless production implementation
// =============================================================================

// LogEffector writes every effect to a structured log. Payloads must be
// valid JSON to be considered applied.
type LogEffector struct {
	Log *zap.Logger
}

func NewLogEffector(log *zap.Logger) *LogEffector {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogEffector{Log: log}
}

func (e *LogEffector) Message(member checkin.MemberID, text string) {
	e.Log.Info("effect.message", zap.String("member", string(member)), zap.String("text", text))
}

func (e *LogEffector) Broadcast(text string) {
	e.Log.Info("effect.broadcast", zap.String("text", text))
}

func (e *LogEffector) Title(member checkin.MemberID, main, sub string) {
	e.Log.Info("effect.title",
		zap.String("member", string(member)), zap.String("main", main), zap.String("sub", sub))
}

func (e *LogEffector) Command(text string) {
	e.Log.Info("effect.command", zap.String("text", text))
}

func (e *LogEffector) Sound(member checkin.MemberID, name string, volume, pitch float64) {
	e.Log.Info("effect.sound",
		zap.String("member", string(member)), zap.String("name", name),
		zap.Float64("volume", volume), zap.Float64("pitch", pitch))
}

func (e *LogEffector) ApplyEffect(member checkin.MemberID, name string, level, seconds int) {
	e.Log.Info("effect.status",
		zap.String("member", string(member)), zap.String("name", name),
		zap.Int("level", level), zap.Int("seconds", seconds))
}

func (e *LogEffector) GiveItem(member checkin.MemberID, key string, amount int, payload string) error {
	e.Log.Info("effect.item",
		zap.String("member", string(member)), zap.String("key", key), zap.Int("amount", amount))
	if payload != "" && !json.Valid([]byte(payload)) {
		return fmt.Errorf("item payload is not valid JSON: %q", payload)
	}
	return nil
}

// =============================================================================
// RECORDER - test / preview implementation
// =============================================================================

// RecordedEffect is one captured Effector call, normalized to a kind
// plus loose fields.
type RecordedEffect struct {
	Kind    string
	Member  checkin.MemberID
	Text    string
	Main    string
	Sub     string
	Name    string
	Key     string
	Amount  int
	Payload string
}

// Recorder captures effects for assertions. PayloadErr, when set, is
// returned by GiveItem to exercise the recoverable-payload path.
type Recorder struct {
	mu         sync.Mutex
	effects    []RecordedEffect
	PayloadErr error
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) record(e RecordedEffect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects = append(r.effects, e)
}

// Effects returns a snapshot of everything recorded so far.
func (r *Recorder) Effects() []RecordedEffect {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedEffect, len(r.effects))
	copy(out, r.effects)
	return out
}

// Kinds returns just the effect kinds, in execution order.
func (r *Recorder) Kinds() []string {
	effects := r.Effects()
	kinds := make([]string, len(effects))
	for i, e := range effects {
		kinds[i] = e.Kind
	}
	return kinds
}

func (r *Recorder) Message(member checkin.MemberID, text string) {
	r.record(RecordedEffect{Kind: "message", Member: member, Text: text})
}

func (r *Recorder) Broadcast(text string) {
	r.record(RecordedEffect{Kind: "broadcast", Text: text})
}

func (r *Recorder) Title(member checkin.MemberID, main, sub string) {
	r.record(RecordedEffect{Kind: "title", Member: member, Main: main, Sub: sub})
}

func (r *Recorder) Command(text string) {
	r.record(RecordedEffect{Kind: "command", Text: text})
}

func (r *Recorder) Sound(member checkin.MemberID, name string, volume, pitch float64) {
	r.record(RecordedEffect{Kind: "sound", Member: member, Name: name})
}

func (r *Recorder) ApplyEffect(member checkin.MemberID, name string, level, seconds int) {
	r.record(RecordedEffect{Kind: "status", Member: member, Name: name, Amount: level})
}

func (r *Recorder) GiveItem(member checkin.MemberID, key string, amount int, payload string) error {
	r.record(RecordedEffect{Kind: "item", Member: member, Key: key, Amount: amount, Payload: payload})
	return r.PayloadErr
}
