package flow

import (
	"context"
	"fmt"

	"github.com/henri123lemoine/odoodash/internal/clients"
	"github.com/henri123lemoine/odoodash/internal/debug"
)

// Starter begins a branch switch.
type Starter interface {
	Start(ctx context.Context, base, branch string)
}

// SelectOutcome says what selecting a client led to.
type SelectOutcome int

const (
	// OutcomeSelected means the selection changed and nothing else happened.
	OutcomeSelected SelectOutcome = iota
	// OutcomeSwitching means a branch switch has started.
	OutcomeSwitching
	// OutcomeAwaitingDecision means the gate holds the switch for the user.
	OutcomeAwaitingDecision
	// OutcomeBlocked means the switch could not be checked and did not start.
	OutcomeBlocked
)

func (o SelectOutcome) String() string {
	switch o {
	case OutcomeSelected:
		return "selected"
	case OutcomeSwitching:
		return "switching"
	case OutcomeAwaitingDecision:
		return "awaiting-decision"
	case OutcomeBlocked:
		return "blocked"
	}
	return fmt.Sprintf("SelectOutcome(%d)", int(o))
}

// Switcher turns client selections into gated branch switches.
type Switcher struct {
	gate    *Gate
	starter Starter
}

// NewSwitcher wires a gate to the starter it releases switches into.
func NewSwitcher(gate *Gate, starter Starter) *Switcher {
	return &Switcher{gate: gate, starter: starter}
}

// Gate returns the gate holding pending switches.
func (s *Switcher) Gate() *Gate { return s.gate }

// Select handles moving from current to target. Only a different branch of
// the same base client switches; everything else is a plain selection.
func (s *Switcher) Select(ctx context.Context, current, target clients.Client) (SelectOutcome, error) {
	if !current.SameBase(target) {
		return OutcomeSelected, nil
	}
	branch := target.BranchOrDerived()
	if branch == current.BranchOrDerived() {
		return OutcomeSelected, nil
	}

	p := PendingSwitch{
		TargetClientName: target.Name,
		BaseName:         target.BaseName,
		TargetBranch:     branch,
	}
	decision, err := s.gate.Check(ctx, p)
	switch decision {
	case DecisionAwait:
		return OutcomeAwaitingDecision, nil
	case DecisionBlocked:
		return OutcomeBlocked, err
	}

	debug.Log("select %s: switching %s to %s", target.Name, p.BaseName, p.TargetBranch)
	s.starter.Start(ctx, p.BaseName, p.TargetBranch)
	return OutcomeSwitching, nil
}

// Commit commits the pending changes, then starts the held switch.
func (s *Switcher) Commit(ctx context.Context) (PendingSwitch, error) {
	p, err := s.gate.CommitAndProceed(ctx)
	if err != nil {
		return PendingSwitch{}, err
	}
	s.starter.Start(ctx, p.BaseName, p.TargetBranch)
	return p, nil
}

// Discard throws the pending changes away, then starts the held switch.
func (s *Switcher) Discard(ctx context.Context) (PendingSwitch, error) {
	p, err := s.gate.DiscardAndProceed(ctx)
	if err != nil {
		return PendingSwitch{}, err
	}
	s.starter.Start(ctx, p.BaseName, p.TargetBranch)
	return p, nil
}

// Cancel drops the held switch.
func (s *Switcher) Cancel() (PendingSwitch, bool) {
	return s.gate.Cancel()
}
