// Package progress tracks the ordered steps of a long-running branch switch.
package progress

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Status is the state of a single step.
type Status string

const (
	StatusPending               Status = "pending"
	StatusInProgress            Status = "in_progress"
	StatusCompleted             Status = "completed"
	StatusCompletedWithWarnings Status = "completed_with_warnings"
	StatusFailed                Status = "failed"
)

// TerminalOrdinal sorts after every numbered step. It is used for
// connection-level outcomes that don't belong to a backend step.
const TerminalOrdinal = 999

// Step is one unit of progress reported by the backend.
type Step struct {
	Ordinal int    `json:"step"`
	Action  string `json:"action"`
	Status  Status `json:"status"`
	Details string `json:"details,omitempty"`
}

// Done reports whether the step counts toward completion.
func (s Step) Done() bool {
	return s.Status == StatusCompleted || s.Status == StatusCompletedWithWarnings
}

// Snapshot is a point-in-time copy of the tracker.
type Snapshot struct {
	Steps     []Step
	Completed bool
	Failed    bool
}

// Tracker holds steps sorted by ordinal. Completed and Failed are always
// derived from the step list, never stored.
type Tracker struct {
	mu    sync.Mutex
	steps []Step
	subs  map[int]chan Snapshot
	next  int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{subs: make(map[int]chan Snapshot)}
}

// Reset clears all steps.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.steps = nil
	t.publishLocked()
	t.mu.Unlock()
}

// Upsert inserts the step or replaces the existing step with the same ordinal.
func (t *Tracker) Upsert(step Step) {
	t.mu.Lock()
	t.upsertLocked(step)
	t.publishLocked()
	t.mu.Unlock()
}

// AppendTerminal upserts the step at TerminalOrdinal so it sorts last.
func (t *Tracker) AppendTerminal(step Step) {
	step.Ordinal = TerminalOrdinal
	t.Upsert(step)
}

// Update applies fn to the step with the given ordinal, if present.
// It returns false when no such step exists.
func (t *Tracker) Update(ordinal int, fn func(*Step)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.steps {
		if t.steps[i].Ordinal == ordinal {
			fn(&t.steps[i])
			t.steps[i].Ordinal = ordinal
			t.publishLocked()
			return true
		}
	}
	return false
}

func (t *Tracker) upsertLocked(step Step) {
	i := sort.Search(len(t.steps), func(i int) bool {
		return t.steps[i].Ordinal >= step.Ordinal
	})
	if i < len(t.steps) && t.steps[i].Ordinal == step.Ordinal {
		t.steps[i] = step
		return
	}
	t.steps = append(t.steps, Step{})
	copy(t.steps[i+1:], t.steps[i:])
	t.steps[i] = step
}

// Steps returns a copy of the current steps.
func (t *Tracker) Steps() []Step {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copyLocked()
}

// Completed is true when there is at least one step and none is
// in progress or failed.
func (t *Tracker) Completed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return completed(t.steps)
}

// Failed is true when any step failed.
func (t *Tracker) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return failed(t.steps)
}

// PercentComplete returns the rounded share of done steps, 0 when empty.
func (t *Tracker) PercentComplete() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return percent(t.steps)
}

// ProgressLabel returns "done/total".
func (t *Tracker) ProgressLabel() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return label(t.steps)
}

// Snapshot returns a copy of the steps with their derived flags.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Subscribe returns a channel that receives a snapshot after every mutation,
// and a function that cancels the subscription. A subscriber that falls behind
// only sees the most recent snapshot.
func (t *Tracker) Subscribe() (<-chan Snapshot, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.next
	t.next++
	ch := make(chan Snapshot, 1)
	t.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
			close(ch)
		})
	}
}

func (t *Tracker) publishLocked() {
	if len(t.subs) == 0 {
		return
	}
	snap := t.snapshotLocked()
	for _, ch := range t.subs {
		// Drop the stale snapshot, if any, so the send never blocks.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (t *Tracker) snapshotLocked() Snapshot {
	return Snapshot{
		Steps:     t.copyLocked(),
		Completed: completed(t.steps),
		Failed:    failed(t.steps),
	}
}

func (t *Tracker) copyLocked() []Step {
	if len(t.steps) == 0 {
		return nil
	}
	out := make([]Step, len(t.steps))
	copy(out, t.steps)
	return out
}

// PercentComplete of a snapshot, for renderers that only hold a copy.
func (s Snapshot) PercentComplete() int { return percent(s.Steps) }

// ProgressLabel of a snapshot.
func (s Snapshot) ProgressLabel() string { return label(s.Steps) }

func completed(steps []Step) bool {
	if len(steps) == 0 {
		return false
	}
	for _, s := range steps {
		if s.Status == StatusInProgress || s.Status == StatusFailed {
			return false
		}
	}
	return true
}

func failed(steps []Step) bool {
	for _, s := range steps {
		if s.Status == StatusFailed {
			return true
		}
	}
	return false
}

func doneCount(steps []Step) int {
	n := 0
	for _, s := range steps {
		if s.Done() {
			n++
		}
	}
	return n
}

func percent(steps []Step) int {
	if len(steps) == 0 {
		return 0
	}
	return int(math.Round(100 * float64(doneCount(steps)) / float64(len(steps))))
}

func label(steps []Step) string {
	return fmt.Sprintf("%d/%d", doneCount(steps), len(steps))
}
