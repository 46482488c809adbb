package flow

import (
	"context"
	"errors"
	"sync"

	"github.com/henri123lemoine/odoodash/internal/mcp"
)

// fakeBackend records every backend command it receives.
type fakeBackend struct {
	mu sync.Mutex

	status    mcp.GitStatus
	statusErr error
	cmdErr    error
	calls     []string
	shell     []string
	commits   []string
	created   [][3]string
	renamed   [][3]string
}

func (b *fakeBackend) record(name string) {
	b.mu.Lock()
	b.calls = append(b.calls, name)
	b.mu.Unlock()
}

func (b *fakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *fakeBackend) ClientGitStatus(_ context.Context, client string) (mcp.GitStatus, error) {
	b.record("get_client_git_status")
	return b.status, b.statusErr
}

func (b *fakeBackend) CommitClientChanges(_ context.Context, client, message string) (string, error) {
	b.record("commit_client_changes")
	if b.cmdErr != nil {
		return "", b.cmdErr
	}
	b.mu.Lock()
	b.commits = append(b.commits, client+": "+message)
	b.mu.Unlock()
	return "committed", nil
}

func (b *fakeBackend) ExecuteShellCommand(_ context.Context, client, command string) (string, error) {
	b.record("execute_shell_command")
	if b.cmdErr != nil {
		return "", b.cmdErr
	}
	b.mu.Lock()
	b.shell = append(b.shell, client+": "+command)
	b.mu.Unlock()
	return "", nil
}

func (b *fakeBackend) CreateClientBranch(_ context.Context, client, branch, source string) error {
	b.record("create_client_branch")
	if b.cmdErr != nil {
		return b.cmdErr
	}
	b.mu.Lock()
	b.created = append(b.created, [3]string{client, branch, source})
	b.mu.Unlock()
	return nil
}

func (b *fakeBackend) RenameClientBranch(_ context.Context, client, oldBranch, newBranch string) error {
	b.record("rename_client_branch")
	if b.cmdErr != nil {
		return b.cmdErr
	}
	b.mu.Lock()
	b.renamed = append(b.renamed, [3]string{client, oldBranch, newBranch})
	b.mu.Unlock()
	return nil
}

// fakeStarter counts switch starts.
type fakeStarter struct {
	mu     sync.Mutex
	starts []Target
}

func (s *fakeStarter) Start(_ context.Context, base, branch string) {
	s.mu.Lock()
	s.starts = append(s.starts, Target{Base: base, Branch: branch})
	s.mu.Unlock()
}

func (s *fakeStarter) Starts() []Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Target(nil), s.starts...)
}

// fakeStream is fed events by the test through a channel.
type fakeStream struct {
	events chan mcp.StreamEvent
	sent   chan mcp.SwitchRequest
	sendErr error

	// closeGate, when set, holds Close open until it is closed.
	closeGate chan struct{}
	closing   chan struct{}
	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		events: make(chan mcp.StreamEvent, 16),
		sent:    make(chan mcp.SwitchRequest, 1),
		closing: make(chan struct{}),
		closed:  make(chan struct{}),
	}
}

func (s *fakeStream) Send(req mcp.SwitchRequest) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent <- req
	return nil
}

func (s *fakeStream) Recv() (mcp.StreamEvent, error) {
	select {
	case ev, ok := <-s.events:
		if !ok {
			return mcp.StreamEvent{}, mcp.ErrStreamClosed
		}
		return ev, nil
	case <-s.closed:
		return mcp.StreamEvent{}, mcp.ErrStreamClosed
	}
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
		if s.closeGate != nil {
			<-s.closeGate
		}
		close(s.closed)
	})
	return nil
}

func (s *fakeStream) IsClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// fakeDialer hands out prepared streams in order.
type fakeDialer struct {
	mu      sync.Mutex
	streams []*fakeStream
	dials   []Target
	err     error
	// gate, when set, holds Dial until it is closed or ctx ends.
	gate chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context, base, branch string) (mcp.Stream, error) {
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials = append(d.dials, Target{Base: base, Branch: branch})
	if d.err != nil {
		return nil, d.err
	}
	if len(d.streams) == 0 {
		return nil, errors.New("no stream prepared")
	}
	s := d.streams[0]
	d.streams = d.streams[1:]
	return s, nil
}

func (d *fakeDialer) Dials() []Target {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Target(nil), d.dials...)
}
