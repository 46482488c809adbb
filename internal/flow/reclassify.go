package flow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/henri123lemoine/odoodash/internal/clients"
	"github.com/henri123lemoine/odoodash/internal/debug"
)

// Zone is a drop target for reclassifying a client.
type Zone string

const (
	ZoneNone        Zone = ""
	ZoneStaging     Zone = "staging"
	ZoneDevelopment Zone = "development"
)

// Environment is the tier a zone reclassifies into.
func (z Zone) Environment() clients.Environment {
	switch z {
	case ZoneStaging:
		return clients.Staging
	case ZoneDevelopment:
		return clients.Development
	}
	return ""
}

// BranchCreator creates branches on the backend.
type BranchCreator interface {
	CreateClientBranch(ctx context.Context, client, branch, source string) error
}

// DragPayload is the client being dragged and the zone under the pointer.
type DragPayload struct {
	Source clients.Client
	Zone   Zone
}

// DropResult describes a branch created by a drop.
type DropResult struct {
	Base   string
	Branch string
	Source string
	Zone   Zone
}

// Reclassifier moves a client into another tier by branching it.
type Reclassifier struct {
	creator       BranchCreator
	defaultSource string

	mu      sync.Mutex
	payload *DragPayload
}

// NewReclassifier creates a reclassifier. defaultSource is the ref branched
// from when the dragged client has no branch.
func NewReclassifier(creator BranchCreator, defaultSource string) *Reclassifier {
	return &Reclassifier{creator: creator, defaultSource: defaultSource}
}

// BeginDrag picks up c.
func (r *Reclassifier) BeginDrag(c clients.Client) {
	r.mu.Lock()
	r.payload = &DragPayload{Source: c}
	r.mu.Unlock()
	debug.Log("drag start %s", c.Name)
}

// Hover highlights z while a drag is active.
func (r *Reclassifier) Hover(z Zone) {
	r.mu.Lock()
	if r.payload != nil {
		r.payload.Zone = z
	}
	r.mu.Unlock()
}

// EndDrag clears the drag and any highlight.
func (r *Reclassifier) EndDrag() {
	r.mu.Lock()
	r.payload = nil
	r.mu.Unlock()
}

// Payload returns the active drag, if any.
func (r *Reclassifier) Payload() (DragPayload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.payload == nil {
		return DragPayload{}, false
	}
	return *r.payload, true
}

// Drop creates a branch for the dragged client in zone, falling back to the
// hovered zone when zone is ZoneNone. It reports false when nothing was
// dropped. The drag ends whatever the outcome.
func (r *Reclassifier) Drop(ctx context.Context, zone Zone, now time.Time) (DropResult, bool, error) {
	r.mu.Lock()
	p := r.payload
	r.payload = nil
	r.mu.Unlock()

	if p == nil {
		return DropResult{}, false, nil
	}
	if zone == ZoneNone {
		zone = p.Zone
	}
	if zone.Environment() == "" {
		debug.Log("drop %s: no zone", p.Source.Name)
		return DropResult{}, false, nil
	}

	res := DropResult{
		Base:   p.Source.BaseName,
		Branch: BranchNameFor(zone, now),
		Source: p.Source.Branch,
		Zone:   zone,
	}
	if res.Source == "" {
		res.Source = r.defaultSource
	}

	debug.Log("drop %s on %s: create %s from %s", p.Source.Name, zone, res.Branch, res.Source)
	if err := r.creator.CreateClientBranch(ctx, res.Base, res.Branch, res.Source); err != nil {
		return DropResult{}, true, fmt.Errorf("create branch %s: %w", res.Branch, err)
	}
	return res, true, nil
}

// BranchNameFor derives the branch name a drop on zone creates at now.
func BranchNameFor(zone Zone, now time.Time) string {
	now = now.UTC()
	switch zone {
	case ZoneStaging:
		return "staging-" + now.Format("2006-01-02")
	case ZoneDevelopment:
		stamp := now.Format("2006-01-02T15:04:05.000Z07:00")
		stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
		return "dev-" + stamp[:19]
	}
	return ""
}
