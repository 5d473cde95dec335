/*
queue.go - Delayed-task queue for scheduled effects

PURPOSE:
  Effect statements execute asynchronously relative to the triggering
  check-in: scheduling returns immediately and the task fires after its
  accumulated delay. No cancellation is exposed - once scheduled, a task
  always fires. Delays are best-effort minimum waits, not deadlines.

IMPLEMENTATIONS:
  TimerQueue: production queue on time.AfterFunc. Drain() waits for
  everything already scheduled, used on shutdown so in-flight rewards
  land before the process exits.
  SyncQueue:  runs tasks inline, ignoring delay. Used by tests and by
  the debug preview path where waiting would be pointless.
*/
package rewards

import (
	"sync"
	"time"
)

// DelayQueue schedules a task to run after a delay.
type DelayQueue interface {
	Schedule(delay time.Duration, task func())
}

// =============================================================================
// TIMER QUEUE
// =============================================================================

// TimerQueue schedules tasks on the runtime timer heap. Same-delay tasks
// fire in roughly insertion order but the runtime gives no hard
// guarantee; the only statements without a defined order are random
// picks, which don't need one.
type TimerQueue struct {
	wg sync.WaitGroup
}

func NewTimerQueue() *TimerQueue {
	return &TimerQueue{}
}

func (q *TimerQueue) Schedule(delay time.Duration, task func()) {
	q.wg.Add(1)
	time.AfterFunc(delay, func() {
		defer q.wg.Done()
		task()
	})
}

// Drain blocks until every task scheduled so far has run.
func (q *TimerQueue) Drain() {
	q.wg.Wait()
}

// =============================================================================
// SYNC QUEUE
// =============================================================================

// SyncQueue executes tasks immediately on the calling goroutine.
type SyncQueue struct{}

func (SyncQueue) Schedule(_ time.Duration, task func()) { task() }

// =============================================================================
// RECORDING QUEUE - test support
// =============================================================================

// RecordingQueue captures (delay, task) pairs without running them,
// letting tests assert on accumulated delays and fire tasks manually.
type RecordingQueue struct {
	mu      sync.Mutex
	entries []RecordedTask
}

type RecordedTask struct {
	Delay time.Duration
	Task  func()
}

func NewRecordingQueue() *RecordingQueue {
	return &RecordingQueue{}
}

func (q *RecordingQueue) Schedule(delay time.Duration, task func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, RecordedTask{Delay: delay, Task: task})
}

// Entries returns a snapshot of everything scheduled so far.
func (q *RecordingQueue) Entries() []RecordedTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]RecordedTask, len(q.entries))
	copy(out, q.entries)
	return out
}

// RunAll fires every recorded task in insertion order.
func (q *RecordingQueue) RunAll() {
	for _, e := range q.Entries() {
		e.Task()
	}
}
