package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henri123lemoine/odoodash/internal/mcp"
)

func TestGateCleanProceeds(t *testing.T) {
	b := &fakeBackend{status: mcp.GitStatus{CurrentBranch: "dev"}}
	g := NewGate(b, true)

	d, err := g.Check(context.Background(), PendingSwitch{BaseName: "clientA", TargetBranch: "main"})
	require.NoError(t, err)
	assert.Equal(t, DecisionProceed, d)

	_, ok := g.Pending()
	assert.False(t, ok)
	assert.Equal(t, []string{"get_client_git_status"}, b.Calls())
}

func TestGateDirtyAwaits(t *testing.T) {
	b := &fakeBackend{status: mcp.GitStatus{CurrentBranch: "dev", HasUncommittedChanges: true}}
	g := NewGate(b, true)
	p := PendingSwitch{TargetClientName: "clientA-prod", BaseName: "clientA", TargetBranch: "main"}

	d, err := g.Check(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, DecisionAwait, d)

	got, ok := g.Pending()
	require.True(t, ok)
	assert.Equal(t, p, got)
}

func TestGateStatusFailure(t *testing.T) {
	tests := []struct {
		name         string
		blockOnError bool
		want         Decision
		wantErr      bool
	}{
		{"block", true, DecisionBlocked, true},
		{"allow", false, DecisionProceed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{statusErr: errors.New("backend down")}
			g := NewGate(b, tt.blockOnError)

			d, err := g.Check(context.Background(), PendingSwitch{BaseName: "clientA", TargetBranch: "main"})
			assert.Equal(t, tt.want, d)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "backend down")
			} else {
				require.NoError(t, err)
			}
			_, ok := g.Pending()
			assert.False(t, ok)
		})
	}
}

func TestGateCommitAndProceed(t *testing.T) {
	b := &fakeBackend{status: mcp.GitStatus{HasUncommittedChanges: true}}
	g := NewGate(b, true)
	p := PendingSwitch{BaseName: "clientA", TargetBranch: "main"}
	_, err := g.Check(context.Background(), p)
	require.NoError(t, err)

	got, err := g.CommitAndProceed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, []string{"clientA: Auto-commit before switching to main branch"}, b.commits)

	_, ok := g.Pending()
	assert.False(t, ok)
}

func TestGateCommandFailureKeepsPending(t *testing.T) {
	b := &fakeBackend{status: mcp.GitStatus{HasUncommittedChanges: true}}
	g := NewGate(b, true)
	_, err := g.Check(context.Background(), PendingSwitch{BaseName: "clientA", TargetBranch: "main"})
	require.NoError(t, err)

	b.cmdErr = errors.New("reset failed")
	_, err = g.DiscardAndProceed(context.Background())
	require.Error(t, err)

	_, ok := g.Pending()
	assert.True(t, ok, "failed discard must keep the switch pending")
}

func TestGateCancelHasNoBackendCalls(t *testing.T) {
	b := &fakeBackend{status: mcp.GitStatus{HasUncommittedChanges: true}}
	g := NewGate(b, true)
	_, err := g.Check(context.Background(), PendingSwitch{BaseName: "clientA", TargetBranch: "main"})
	require.NoError(t, err)
	before := len(b.Calls())

	_, ok := g.Cancel()
	assert.True(t, ok)
	assert.Len(t, b.Calls(), before)

	_, ok = g.Cancel()
	assert.False(t, ok)
}

func TestGateResolveWithoutPending(t *testing.T) {
	g := NewGate(&fakeBackend{}, true)

	_, err := g.CommitAndProceed(context.Background())
	assert.ErrorIs(t, err, ErrNoPending)
	_, err = g.DiscardAndProceed(context.Background())
	assert.ErrorIs(t, err, ErrNoPending)
}

func TestCommitMessage(t *testing.T) {
	assert.Equal(t, "Auto-commit before switching to main branch", CommitMessage("main"))
	assert.Equal(t, "Auto-commit before switching to default branch", CommitMessage(""))
}
