package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/henri123lemoine/odoodash/internal/clients"
	"github.com/henri123lemoine/odoodash/internal/debug"
)

// ErrNotEditing is returned when a rename is committed outside editing.
var ErrNotEditing = errors.New("not editing a branch name")

// BranchRenamer renames branches on the backend.
type BranchRenamer interface {
	RenameClientBranch(ctx context.Context, client, oldBranch, newBranch string) error
}

// RenameOutcome says what committing a rename did.
type RenameOutcome int

const (
	// RenameCancelled means the new name was empty or unchanged.
	RenameCancelled RenameOutcome = iota
	// RenameApplied means the backend renamed the branch.
	RenameApplied
)

// Rename is the inline branch-rename editor.
type Rename struct {
	renamer BranchRenamer

	mu      sync.Mutex
	editing bool
	client  clients.Client
	oldName string
	buffer  string
}

// NewRename creates an idle rename flow.
func NewRename(renamer BranchRenamer) *Rename {
	return &Rename{renamer: renamer}
}

// StartEditing opens the editor on c's branch.
func (r *Rename) StartEditing(c clients.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.editing = true
	r.client = c
	r.oldName = c.BranchOrDerived()
	r.buffer = r.oldName
}

// SetBuffer replaces the edit buffer.
func (r *Rename) SetBuffer(s string) {
	r.mu.Lock()
	r.buffer = s
	r.mu.Unlock()
}

// Buffer returns the edit buffer.
func (r *Rename) Buffer() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buffer
}

// Editing reports whether the editor is open.
func (r *Rename) Editing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.editing
}

// OldName returns the branch being renamed.
func (r *Rename) OldName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.oldName
}

// Client returns the client being edited.
func (r *Rename) Client() clients.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client
}

// Commit applies the buffer. An empty or unchanged name cancels without a
// backend call. Editing ends in every case.
func (r *Rename) Commit(ctx context.Context) (RenameOutcome, error) {
	r.mu.Lock()
	if !r.editing {
		r.mu.Unlock()
		return RenameCancelled, ErrNotEditing
	}
	c, oldName, newName := r.client, r.oldName, strings.TrimSpace(r.buffer)
	r.resetLocked()
	r.mu.Unlock()

	if newName == "" || newName == oldName {
		debug.Log("rename %s: unchanged, cancelled", c.Name)
		return RenameCancelled, nil
	}

	debug.Log("rename %s: %s -> %s", c.BaseName, oldName, newName)
	if err := r.renamer.RenameClientBranch(ctx, c.BaseName, oldName, newName); err != nil {
		return RenameCancelled, fmt.Errorf("rename %s to %s: %w", oldName, newName, err)
	}
	return RenameApplied, nil
}

// Cancel closes the editor without a backend call.
func (r *Rename) Cancel() {
	r.mu.Lock()
	r.resetLocked()
	r.mu.Unlock()
}

func (r *Rename) resetLocked() {
	r.editing = false
	r.client = clients.Client{}
	r.oldName = ""
	r.buffer = ""
}
