package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/henri123lemoine/odoodash/internal/debug"
	"github.com/henri123lemoine/odoodash/internal/mcp"
	"github.com/henri123lemoine/odoodash/internal/progress"
)

// ErrNotFailed is returned by Retry when the last switch did not fail.
var ErrNotFailed = errors.New("branch switch has not failed")

// Step texts shown in the progress dialog.
const (
	connectingAction = "Connecting to server"
	completeAction   = "Branch switch complete"
	failedAction     = "Branch switch failed"

	msgConnectFailed = "Could not connect to server"
	msgConnLost      = "Connection to server lost"
)

// DefaultAutoCloseDelay is how long a completed switch stays on screen.
const DefaultAutoCloseDelay = 2 * time.Second

// Dialer opens a branch-switch stream for a base client.
type Dialer interface {
	Dial(ctx context.Context, base, branch string) (mcp.Stream, error)
}

// State is the lifecycle position of an orchestrator.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Target identifies the branch being switched to.
type Target struct {
	Base   string
	Branch string
}

// Orchestrator runs one streamed branch switch at a time and feeds its
// events into a progress tracker.
type Orchestrator struct {
	dialer    Dialer
	tracker   *progress.Tracker
	autoClose time.Duration
	onReload  func()

	mu        sync.Mutex
	state     State
	target    Target
	hasTarget bool
	lastErr   error
	stream    mcp.Stream
	cancel    context.CancelFunc
	timer     *time.Timer
	gen       uint64
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithAutoClose sets the delay between success and the automatic close.
func WithAutoClose(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.autoClose = d
		}
	}
}

// WithReload registers fn to run after a successful switch auto-closes.
// fn runs on its own goroutine and must not block for long.
func WithReload(fn func()) OrchestratorOption {
	return func(o *Orchestrator) { o.onReload = fn }
}

// NewOrchestrator creates an idle orchestrator reporting into tracker.
func NewOrchestrator(dialer Dialer, tracker *progress.Tracker, opts ...OrchestratorOption) *Orchestrator {
	if tracker == nil {
		tracker = progress.NewTracker()
	}
	o := &Orchestrator{
		dialer:    dialer,
		tracker:   tracker,
		autoClose: DefaultAutoCloseDelay,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Tracker returns the tracker the orchestrator reports into.
func (o *Orchestrator) Tracker() *progress.Tracker { return o.tracker }

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Target returns the parameters of the current or last switch.
func (o *Orchestrator) Target() (Target, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.target, o.hasTarget
}

// LastError returns why the last switch failed, or nil.
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Start switches base to branch. Any stream still open is closed first. The
// call returns once the switch is under way; progress arrives via the tracker.
func (o *Orchestrator) Start(ctx context.Context, base, branch string) {
	o.mu.Lock()
	stale := o.teardownLocked()
	o.gen++
	gen := o.gen
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.state = StateConnecting
	o.target = Target{Base: base, Branch: branch}
	o.hasTarget = true
	o.lastErr = nil

	o.tracker.Reset()
	o.tracker.Upsert(progress.Step{Ordinal: 1, Action: connectingAction, Status: progress.StatusInProgress})
	o.mu.Unlock()
	closeStream(stale)

	debug.Log("switch %s -> %s: connecting (gen %d)", base, branch, gen)
	go o.run(runCtx, gen, base, branch)
}

// Retry re-runs the last switch. It is only valid after a failure.
func (o *Orchestrator) Retry(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateFailed || !o.hasTarget {
		o.mu.Unlock()
		return ErrNotFailed
	}
	t := o.target
	o.mu.Unlock()

	debug.Log("switch %s -> %s: retry", t.Base, t.Branch)
	o.Start(ctx, t.Base, t.Branch)
	return nil
}

// Close tears down the stream, cancels a pending auto-close and returns to
// idle. Closing an idle orchestrator does nothing.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.state == StateIdle {
		o.mu.Unlock()
		return
	}
	stale := o.closeLocked()
	o.mu.Unlock()
	closeStream(stale)
}

// closeLocked returns to idle. The caller closes the returned stream after
// releasing o.mu.
func (o *Orchestrator) closeLocked() mcp.Stream {
	stale := o.teardownLocked()
	o.gen++
	o.state = StateIdle
	o.target = Target{}
	o.hasTarget = false
	o.lastErr = nil
	o.tracker.Reset()
	debug.Log("switch closed")
	return stale
}

// teardownLocked stops the auto-close timer, cancels the run context and
// detaches the stream, which it returns for closing outside the lock.
func (o *Orchestrator) teardownLocked() mcp.Stream {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	return o.releaseStreamLocked()
}

// closeStream closes s, which may block on a stalled socket. Never call it
// with o.mu held.
func closeStream(s mcp.Stream) {
	if s != nil {
		_ = s.Close()
	}
}

func (o *Orchestrator) run(ctx context.Context, gen uint64, base, branch string) {
	stream, err := o.dialer.Dial(ctx, base, branch)
	if err != nil {
		o.fail(gen, msgConnectFailed, err)
		return
	}

	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		_ = stream.Close()
		return
	}
	o.stream = stream
	o.mu.Unlock()

	if err := stream.Send(mcp.SwitchRequest{Branch: branch, Create: false}); err != nil {
		o.fail(gen, msgConnectFailed, err)
		return
	}
	if !o.connected(gen) {
		return
	}

	for {
		ev, err := stream.Recv()
		if err != nil {
			o.fail(gen, msgConnLost, err)
			return
		}
		if done := o.handle(gen, ev); done {
			return
		}
	}
}

// connected completes the connecting step once the request is on the wire.
// It reports false when a newer switch has taken over.
func (o *Orchestrator) connected(gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != gen {
		return false
	}
	o.tracker.Update(1, completeConnecting)
	return true
}

// completeConnecting marks the seeded connecting step completed. A first step
// reported by the server is left alone.
func completeConnecting(s *progress.Step) {
	if s.Action == connectingAction && s.Status == progress.StatusInProgress {
		s.Status = progress.StatusCompleted
	}
}

// handle applies one event. It reports true once the stream needs no more
// reading: a terminal event, or a newer switch has taken over.
func (o *Orchestrator) handle(gen uint64, ev mcp.StreamEvent) bool {
	var stale mcp.Stream
	o.mu.Lock()
	defer func() {
		o.mu.Unlock()
		closeStream(stale)
	}()
	if o.gen != gen {
		return true
	}

	switch ev.Type {
	case mcp.EventStart:
		o.tracker.Update(1, func(s *progress.Step) {
			s.Details = ev.Message
			completeConnecting(s)
		})
		o.state = StateInProgress

	case mcp.EventStep:
		o.tracker.Upsert(*ev.Data)
		o.state = StateInProgress

	case mcp.EventSuccess:
		o.tracker.AppendTerminal(progress.Step{
			Action:  completeAction,
			Status:  progress.StatusCompleted,
			Details: ev.Message,
		})
		o.state = StateCompleted
		stale = o.releaseStreamLocked()
		o.timer = time.AfterFunc(o.autoClose, func() { o.finish(gen) })
		debug.Log("switch %s -> %s: completed (now on %s)", o.target.Base, o.target.Branch, ev.CurrentBranch)
		return true

	case mcp.EventError:
		msg := ev.Message
		if msg == "" {
			msg = failedAction
		}
		o.tracker.AppendTerminal(progress.Step{
			Action:  failedAction,
			Status:  progress.StatusFailed,
			Details: msg,
		})
		o.state = StateFailed
		o.lastErr = errors.New(msg)
		stale = o.releaseStreamLocked()
		debug.Log("switch %s -> %s: failed: %s", o.target.Base, o.target.Branch, msg)
		return true
	}
	return false
}

// fail records a connection-level failure as a terminal failed step.
func (o *Orchestrator) fail(gen uint64, msg string, cause error) {
	var stale mcp.Stream
	o.mu.Lock()
	defer func() {
		o.mu.Unlock()
		closeStream(stale)
	}()
	if o.gen != gen {
		return
	}
	o.tracker.AppendTerminal(progress.Step{
		Action:  failedAction,
		Status:  progress.StatusFailed,
		Details: msg,
	})
	o.state = StateFailed
	o.lastErr = fmt.Errorf("%s: %w", msg, cause)
	stale = o.releaseStreamLocked()
	debug.Log("switch %s -> %s: %v", o.target.Base, o.target.Branch, o.lastErr)
}

// releaseStreamLocked cancels the run context and detaches the stream.
func (o *Orchestrator) releaseStreamLocked() mcp.Stream {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	s := o.stream
	o.stream = nil
	return s
}

// finish is the auto-close after a successful switch.
func (o *Orchestrator) finish(gen uint64) {
	o.mu.Lock()
	if o.gen != gen || o.state != StateCompleted {
		o.mu.Unlock()
		return
	}
	o.timer = nil
	stale := o.closeLocked()
	reload := o.onReload
	o.mu.Unlock()
	closeStream(stale)

	if reload != nil {
		reload()
	}
}
