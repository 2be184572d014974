package graph

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewGraphHasOnlyReservedEndpoints(t *testing.T) {
	g := New(48000, 1, 512)
	require.Len(t, g.Instances(), 2)
	_, ok := g.Instances()[GraphIn]
	require.True(t, ok)
	_, ok = g.Instances()[GraphOut]
	require.True(t, ok)
	require.Empty(t, g.Edges())
}

func TestAddInstanceAllocatesDistinctIDsAndBumpsVersion(t *testing.T) {
	g := New(48000, 1, 512)
	v0 := g.Version
	a := g.AddInstance("a", PluginSaveState{})
	b := g.AddInstance("b", PluginSaveState{})
	require.False(t, a.Equal(b))
	require.Greater(t, g.Version, v0)
}

func TestConnectRejectsUnknownInstance(t *testing.T) {
	g := New(48000, 1, 512)
	ghost := InstanceID{num: 999, Debug: "ghost"}
	err := g.Connect(Edge{Type: PortAudio, From: PortRef{Instance: GraphIn}, To: PortRef{Instance: ghost}})
	require.ErrorIs(t, err, ErrUnknownInstance)
}

func TestConnectRejectsSelfLoopOnSamePort(t *testing.T) {
	g := New(48000, 1, 512)
	id := g.AddInstance("a", PluginSaveState{})
	err := g.Connect(Edge{Type: PortAudio, From: PortRef{Instance: id, PortID: 0}, To: PortRef{Instance: id, PortID: 0}})
	require.ErrorIs(t, err, ErrSelfLoop)
}

func TestRemoveInstanceDropsTouchingEdges(t *testing.T) {
	g := New(48000, 1, 512)
	a := g.AddInstance("a", PluginSaveState{})
	b := g.AddInstance("b", PluginSaveState{})
	require.NoError(t, g.Connect(Edge{Type: PortAudio, From: PortRef{Instance: a}, To: PortRef{Instance: b}}))
	require.NoError(t, g.Connect(Edge{Type: PortAudio, From: PortRef{Instance: GraphIn}, To: PortRef{Instance: a}}))

	require.NoError(t, g.RemoveInstance(a))
	require.Empty(t, g.Edges(), "every edge touching the removed instance must be gone")
	_, ok := g.Instances()[a]
	require.False(t, ok)
}

func TestRemoveInstanceUnknownReturnsError(t *testing.T) {
	g := New(48000, 1, 512)
	err := g.RemoveInstance(InstanceID{num: 12345})
	require.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestDisconnectRemovesExactMatchOnly(t *testing.T) {
	g := New(48000, 1, 512)
	a := g.AddInstance("a", PluginSaveState{})
	e1 := Edge{Type: PortAudio, From: PortRef{Instance: GraphIn}, To: PortRef{Instance: a}}
	e2 := Edge{Type: PortAudio, From: PortRef{Instance: a}, To: PortRef{Instance: GraphOut}}
	require.NoError(t, g.Connect(e1))
	require.NoError(t, g.Connect(e2))

	require.True(t, g.Disconnect(e1))
	require.Len(t, g.Edges(), 1)
	require.Equal(t, e2, g.Edges()[0])
	require.False(t, g.Disconnect(e1), "already removed")
}

func TestSaveStateExcludesReservedEndpointsAndSnapshotsEdges(t *testing.T) {
	g := New(48000, 1, 512)
	a := g.AddInstance("a", PluginSaveState{Key: ScanKey{Format: "internal", ID: "x"}})
	require.NoError(t, g.Connect(Edge{Type: PortAudio, From: PortRef{Instance: GraphIn}, To: PortRef{Instance: a}}))

	snap := g.SaveState(140)
	require.Len(t, snap.Instances, 1)
	_, hasA := snap.Instances[a]
	require.True(t, hasA)
	_, hasGraphIn := snap.Instances[GraphIn]
	require.False(t, hasGraphIn)
	require.Equal(t, 140.0, snap.TempoBPM)
	require.Len(t, snap.Edges, 1)
}

func TestInstanceIDEqualIgnoresDebugAndRunID(t *testing.T) {
	a := InstanceID{runID: uuid.New(), num: 7, Debug: "first-name"}
	b := InstanceID{runID: uuid.New(), num: 7, Debug: "second-name"}
	require.True(t, a.Equal(b))
}
