package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henri123lemoine/odoodash/internal/clients"
)

var dropTime = time.Date(2024, 7, 14, 10, 0, 0, 0, time.UTC)

func TestBranchNameFor(t *testing.T) {
	tests := []struct {
		zone Zone
		now  time.Time
		want string
	}{
		{ZoneDevelopment, dropTime, "dev-2024-07-14T10-00-00"},
		{ZoneDevelopment, time.Date(2024, 1, 2, 3, 4, 5, 678e6, time.UTC), "dev-2024-01-02T03-04-05"},
		{ZoneStaging, dropTime, "staging-2024-07-14"},
		{ZoneStaging, time.Date(2024, 7, 14, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600)), "staging-2024-07-15"},
		{ZoneNone, dropTime, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.zone)+"/"+tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, BranchNameFor(tt.zone, tt.now))
		})
	}
}

func TestDropOnDevelopment(t *testing.T) {
	b := &fakeBackend{}
	r := NewReclassifier(b, "main")

	r.BeginDrag(client("acme-prod", "18.0"))
	r.Hover(ZoneDevelopment)
	p, ok := r.Payload()
	require.True(t, ok)
	assert.Equal(t, ZoneDevelopment, p.Zone)

	res, dropped, err := r.Drop(context.Background(), ZoneDevelopment, dropTime)
	require.NoError(t, err)
	require.True(t, dropped)
	assert.Equal(t, DropResult{Base: "acme", Branch: "dev-2024-07-14T10-00-00", Source: "18.0", Zone: ZoneDevelopment}, res)
	assert.Equal(t, [][3]string{{"acme", "dev-2024-07-14T10-00-00", "18.0"}}, b.created)
	assert.Len(t, res.Branch, len("dev-")+19)

	_, ok = r.Payload()
	assert.False(t, ok, "drop always ends the drag")
}

func TestDropWithoutDragIsNoop(t *testing.T) {
	b := &fakeBackend{}
	r := NewReclassifier(b, "main")

	_, dropped, err := r.Drop(context.Background(), ZoneStaging, dropTime)
	require.NoError(t, err)
	assert.False(t, dropped)
	assert.Empty(t, b.Calls())
}

func TestDropUsesHoveredZoneAndDefaultSource(t *testing.T) {
	b := &fakeBackend{}
	r := NewReclassifier(b, "main")

	r.BeginDrag(clients.Client{Name: "acme-dev", BaseName: "acme"}.Normalize())
	r.Hover(ZoneStaging)
	res, dropped, err := r.Drop(context.Background(), ZoneNone, dropTime)
	require.NoError(t, err)
	require.True(t, dropped)
	assert.Equal(t, "staging-2024-07-14", res.Branch)
	assert.Equal(t, "main", res.Source)
	assert.Equal(t, clients.Staging, res.Zone.Environment())
}

func TestDropOutsideZones(t *testing.T) {
	b := &fakeBackend{}
	r := NewReclassifier(b, "main")

	r.BeginDrag(client("acme-prod", "18.0"))
	_, dropped, err := r.Drop(context.Background(), ZoneNone, dropTime)
	require.NoError(t, err)
	assert.False(t, dropped)
	assert.Empty(t, b.Calls())

	_, ok := r.Payload()
	assert.False(t, ok)
}

func TestDropFailureSurfacesError(t *testing.T) {
	b := &fakeBackend{cmdErr: errors.New("branch already exists")}
	r := NewReclassifier(b, "main")

	r.BeginDrag(client("acme-prod", "18.0"))
	_, dropped, err := r.Drop(context.Background(), ZoneStaging, dropTime)
	assert.True(t, dropped)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "branch already exists")

	_, ok := r.Payload()
	assert.False(t, ok)
}

func TestEndDragClearsHighlight(t *testing.T) {
	r := NewReclassifier(&fakeBackend{}, "main")

	r.Hover(ZoneStaging)
	_, ok := r.Payload()
	assert.False(t, ok, "hover without a drag does nothing")

	r.BeginDrag(client("acme-prod", "18.0"))
	r.Hover(ZoneStaging)
	r.EndDrag()
	_, ok = r.Payload()
	assert.False(t, ok)
}
