package progress

import (
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertKeepsSortedAndUnique(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	statuses := []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCompletedWithWarnings, StatusFailed}

	for round := 0; round < 50; round++ {
		tr := NewTracker()
		for i := 0; i < 30; i++ {
			tr.Upsert(Step{
				Ordinal: r.Intn(12) + 1,
				Action:  "step",
				Status:  statuses[r.Intn(len(statuses))],
			})
		}

		steps := tr.Steps()
		assert.True(t, sort.SliceIsSorted(steps, func(i, j int) bool {
			return steps[i].Ordinal < steps[j].Ordinal
		}), "steps must stay sorted")

		seen := make(map[int]bool)
		for _, s := range steps {
			assert.False(t, seen[s.Ordinal], "duplicate ordinal %d", s.Ordinal)
			seen[s.Ordinal] = true
		}
	}
}

func TestUpsertReplacesInPlace(t *testing.T) {
	tr := NewTracker()
	tr.Upsert(Step{Ordinal: 1, Action: "Fetch", Status: StatusInProgress})
	tr.Upsert(Step{Ordinal: 2, Action: "Checkout", Status: StatusPending})
	tr.Upsert(Step{Ordinal: 1, Action: "Fetch", Status: StatusCompleted, Details: "done"})

	steps := tr.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, StatusCompleted, steps[0].Status)
	assert.Equal(t, "done", steps[0].Details)
}

func TestDerivedFlags(t *testing.T) {
	tests := []struct {
		name          string
		steps         []Step
		wantCompleted bool
		wantFailed    bool
	}{
		{name: "empty", steps: nil},
		{
			name:  "in progress",
			steps: []Step{{Ordinal: 1, Status: StatusCompleted}, {Ordinal: 2, Status: StatusInProgress}},
		},
		{
			name:          "all done",
			steps:         []Step{{Ordinal: 1, Status: StatusCompleted}, {Ordinal: 2, Status: StatusCompletedWithWarnings}},
			wantCompleted: true,
		},
		{
			name:          "pending counts as not blocking",
			steps:         []Step{{Ordinal: 1, Status: StatusCompleted}, {Ordinal: 2, Status: StatusPending}},
			wantCompleted: true,
		},
		{
			name:       "failed",
			steps:      []Step{{Ordinal: 1, Status: StatusCompleted}, {Ordinal: 999, Status: StatusFailed}},
			wantFailed: true,
		},
		{
			name:       "failed while in progress",
			steps:      []Step{{Ordinal: 1, Status: StatusInProgress}, {Ordinal: 2, Status: StatusFailed}},
			wantFailed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			for _, s := range tt.steps {
				tr.Upsert(s)
			}
			assert.Equal(t, tt.wantCompleted, tr.Completed())
			assert.Equal(t, tt.wantFailed, tr.Failed())
			assert.False(t, tr.Completed() && tr.Failed(), "completed and failed are exclusive")

			snap := tr.Snapshot()
			assert.Equal(t, tt.wantCompleted, snap.Completed)
			assert.Equal(t, tt.wantFailed, snap.Failed)
		})
	}
}

func TestPercentAndLabel(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, 0, tr.PercentComplete())
	assert.Equal(t, "0/0", tr.ProgressLabel())

	tr.Upsert(Step{Ordinal: 1, Status: StatusCompleted})
	tr.Upsert(Step{Ordinal: 2, Status: StatusInProgress})
	tr.Upsert(Step{Ordinal: 3, Status: StatusPending})
	assert.Equal(t, 33, tr.PercentComplete())
	assert.Equal(t, "1/3", tr.ProgressLabel())

	tr.Upsert(Step{Ordinal: 2, Status: StatusCompletedWithWarnings})
	assert.Equal(t, 67, tr.PercentComplete())

	tr.Upsert(Step{Ordinal: 3, Status: StatusCompleted})
	assert.Equal(t, 100, tr.PercentComplete())
	assert.Equal(t, "3/3", tr.ProgressLabel())
}

func TestUpsertIsIdempotent(t *testing.T) {
	once := NewTracker()
	once.Upsert(Step{Ordinal: 4, Action: "Restart", Status: StatusCompleted})

	twice := NewTracker()
	twice.Upsert(Step{Ordinal: 4, Action: "Restart", Status: StatusCompleted})
	twice.Upsert(Step{Ordinal: 4, Action: "Restart", Status: StatusCompleted})

	assert.Equal(t, once.Snapshot(), twice.Snapshot())
}

func TestOutOfOrderStepsThenTerminal(t *testing.T) {
	tr := NewTracker()
	tr.Upsert(Step{Ordinal: 2, Action: "Checkout", Status: StatusInProgress})
	tr.Upsert(Step{Ordinal: 1, Action: "Fetch", Status: StatusCompleted})

	steps := tr.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, 1, steps[0].Ordinal)
	assert.Equal(t, 2, steps[1].Ordinal)

	tr.AppendTerminal(Step{Action: "Branch switch complete", Status: StatusCompleted})
	steps = tr.Steps()
	require.Len(t, steps, 3)
	assert.Equal(t, TerminalOrdinal, steps[2].Ordinal)
	assert.False(t, tr.Completed(), "ordinal 2 is still in progress")

	tr.Upsert(Step{Ordinal: 2, Action: "Checkout", Status: StatusCompleted})
	assert.True(t, tr.Completed())
}

func TestResetClearsEverything(t *testing.T) {
	tr := NewTracker()
	tr.Upsert(Step{Ordinal: 1, Status: StatusFailed})
	require.True(t, tr.Failed())

	tr.Reset()
	assert.Empty(t, tr.Steps())
	assert.False(t, tr.Failed())
	assert.False(t, tr.Completed())
}

func TestUpdate(t *testing.T) {
	tr := NewTracker()
	tr.Upsert(Step{Ordinal: 1, Action: "Connecting to server", Status: StatusInProgress})

	ok := tr.Update(1, func(s *Step) { s.Details = "Switching to main" })
	require.True(t, ok)
	assert.Equal(t, "Switching to main", tr.Steps()[0].Details)

	assert.False(t, tr.Update(7, func(s *Step) {}))
}

func TestSubscribeReceivesLatestSnapshot(t *testing.T) {
	tr := NewTracker()
	ch, cancel := tr.Subscribe()
	defer cancel()

	tr.Upsert(Step{Ordinal: 1, Status: StatusInProgress})
	tr.Upsert(Step{Ordinal: 1, Status: StatusCompleted})

	select {
	case snap := <-ch:
		require.Len(t, snap.Steps, 1)
		assert.Equal(t, StatusCompleted, snap.Steps[0].Status)
		assert.True(t, snap.Completed)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	tr := NewTracker()
	ch, cancel := tr.Subscribe()
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	// Mutations after unsubscribe must not panic.
	tr.Upsert(Step{Ordinal: 1, Status: StatusCompleted})
}
