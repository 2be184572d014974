// Package graph implements the declarative audio graph model owned by the
// main thread: plugin instances, ports, edges, and the two reserved
// endpoint pseudo-plugins. The schedule compiler (pkg/compiler) reduces an
// AudioGraph to a linear task list; this package never runs audio itself.
package graph

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PortType classifies what an Edge or SharedBuffer carries.
type PortType int

const (
	PortAudio PortType = iota
	PortNote
	PortAutomation
)

func (t PortType) String() string {
	switch t {
	case PortAudio:
		return "audio"
	case PortNote:
		return "note"
	case PortAutomation:
		return "automation"
	default:
		return "unknown"
	}
}

// InstanceID is the opaque identity of one plugin instance in a graph: a
// monotonically increasing numeric id (never reused within a graph) and a
// debug name. runID is a uuid stamped by the graph's id allocator so ids
// from two different graphs are told apart if logged side by side.
type InstanceID struct {
	runID uuid.UUID
	num   uint64
	Debug string
}

// GraphIn and GraphOut are the reserved singleton endpoints representing
// the system audio input and output.
var (
	GraphIn  = InstanceID{num: 0, Debug: "graph-in"}
	GraphOut = InstanceID{num: 1, Debug: "graph-out"}
)

// Equal compares two InstanceIDs by their numeric id, the only thing
// equality is defined over.
func (id InstanceID) Equal(other InstanceID) bool { return id.num == other.num }

func (id InstanceID) String() string { return fmt.Sprintf("%s#%d", id.Debug, id.num) }

// IDAllocator hands out InstanceIDs unique within one engine run.
type IDAllocator struct {
	runID uuid.UUID
	next  uint64
}

// NewIDAllocator creates an allocator with its first two ids reserved for
// GraphIn/GraphOut.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{runID: uuid.New(), next: 2}
}

// Alloc returns a fresh InstanceID tagged with debug.
func (a *IDAllocator) Alloc(debug string) InstanceID {
	id := InstanceID{runID: a.runID, num: a.next, Debug: debug}
	a.next++
	return id
}

// ChannelMask and similar port geometry mirror what a plugin reports
// through its audio-ports extension.
type AudioPortInfo struct {
	ID           uint32
	Name         string
	ChannelCount int
	IsMain       bool
	InPlacePair  uint32 // InvalidPortID if none
}

const InvalidPortID = ^uint32(0)

// Note dialects a note port can carry, mirroring the CLAP note-ports
// extension's dialect bitmask.
const (
	NoteDialectCLAP  uint32 = 1 << 0
	NoteDialectMIDI1 uint32 = 1 << 1
	NoteDialectMIDI2 uint32 = 1 << 2
)

type NotePortInfo struct {
	ID                uint32
	Name              string
	SupportedDialects uint32
	PreferredDialect  uint32
}

// PortLayout is the cached shape of one plugin's ports, captured at
// activation time and stored in its PluginSaveState so a reload doesn't
// need to re-activate the plugin just to learn its shape.
type PortLayout struct {
	AudioIn   []AudioPortInfo
	AudioOut  []AudioPortInfo
	NoteIn    []NotePortInfo
	NoteOut   []NotePortInfo
	HasAutomationOut bool
}

// ScanKey identifies a plugin format+id pair well enough for the (external)
// plugin scanner to resolve it back into a factory.
type ScanKey struct {
	Format string // e.g. "clap"
	ID     string // reverse-DNS plugin id
}

// PluginSaveState is the declarative spec for re-creating one plugin
// instance: enough to restore it without knowing anything about how it was
// first instantiated. The opaque Preset bytes are never interpreted here;
// persistent storage formats are out of scope for this engine.
type PluginSaveState struct {
	Key           ScanKey
	Active        bool
	Layout        PortLayout
	PresetVersion uint32
	Preset        []byte
}

// AudioGraphSaveState is a full graph snapshot: every instance's save
// state plus the edges between them, enough for RestoreFromSaveState to
// rebuild an equivalent graph.
type AudioGraphSaveState struct {
	Instances map[InstanceID]PluginSaveState
	Edges     []Edge
	TempoBPM  float64
}

// PortRef addresses one channel of one port on one plugin instance.
type PortRef struct {
	Instance InstanceID
	PortID   uint32
	Channel  int
}

// Edge is a directed connection carrying one PortType from a source
// port-channel to a destination port-channel.
type Edge struct {
	Type PortType
	From PortRef
	To   PortRef
}

var (
	ErrPortTypeMismatch  = errors.New("edge endpoints have mismatched port type")
	ErrChannelMismatch   = errors.New("audio edge endpoints have mismatched channel count")
	ErrSelfLoop          = errors.New("edge would create a self-loop through one plugin's main ports")
	ErrUnknownInstance   = errors.New("edge references an instance not present in the graph")
	ErrInstanceExists    = errors.New("instance already present in the graph")
	ErrInstanceNotFound  = errors.New("instance not found in the graph")
)

// Validate checks the Edge invariant that doesn't require graph
// membership: no edge from a port of an instance back to the same port of
// that instance. It does not check port types.
func (e Edge) Validate() error {
	if e.From.Instance.Equal(e.To.Instance) && e.From.PortID == e.To.PortID {
		return ErrSelfLoop
	}
	return nil
}

// Instance is one plugin instance as held by the graph: its identity,
// cached port layout, and save state. The live plugin object and its
// activation state machine live in pkg/pluginhost, keyed by the same
// InstanceID.
type Instance struct {
	ID         InstanceID
	SaveState  PluginSaveState
}

// AudioGraph is the main thread's mutable view of topology: instances,
// edges, the two reserved endpoints, and the transport parameters that
// flow into every compile.
type AudioGraph struct {
	ids        *IDAllocator
	instances  map[InstanceID]*Instance
	edges      []Edge
	SampleRate float64
	MinBlock   int
	MaxBlock   int
	Version    uint64
}

// New creates an AudioGraph containing only the two reserved endpoints,
// which must always be present and must always compile on their own.
func New(sampleRate float64, minBlock, maxBlock int) *AudioGraph {
	g := &AudioGraph{
		ids:        NewIDAllocator(),
		instances:  make(map[InstanceID]*Instance),
		SampleRate: sampleRate,
		MinBlock:   minBlock,
		MaxBlock:   maxBlock,
	}
	g.instances[GraphIn] = &Instance{ID: GraphIn}
	g.instances[GraphOut] = &Instance{ID: GraphOut}
	return g
}

// AddInstance allocates a fresh InstanceID and adds inst under it.
func (g *AudioGraph) AddInstance(debug string, saveState PluginSaveState) InstanceID {
	id := g.ids.Alloc(debug)
	g.instances[id] = &Instance{ID: id, SaveState: saveState}
	g.Version++
	return id
}

// RemoveInstance drops an instance and every edge touching it.
func (g *AudioGraph) RemoveInstance(id InstanceID) error {
	if _, ok := g.instances[id]; !ok {
		return ErrInstanceNotFound
	}
	delete(g.instances, id)
	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.From.Instance.Equal(id) || e.To.Instance.Equal(id) {
			continue
		}
		kept = append(kept, e)
	}
	g.edges = kept
	g.Version++
	return nil
}

// Connect validates and adds an edge between two live instances.
func (g *AudioGraph) Connect(e Edge) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, ok := g.instances[e.From.Instance]; !ok {
		return ErrUnknownInstance
	}
	if _, ok := g.instances[e.To.Instance]; !ok {
		return ErrUnknownInstance
	}
	g.edges = append(g.edges, e)
	g.Version++
	return nil
}

// Disconnect removes the first edge exactly matching e.
func (g *AudioGraph) Disconnect(e Edge) bool {
	for i, existing := range g.edges {
		if existing == e {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			g.Version++
			return true
		}
	}
	return false
}

// Instances returns every instance currently in the graph.
func (g *AudioGraph) Instances() map[InstanceID]*Instance { return g.instances }

// Edges returns the current edge list.
func (g *AudioGraph) Edges() []Edge { return g.edges }

// SaveState snapshots the graph into an AudioGraphSaveState.
func (g *AudioGraph) SaveState(tempoBPM float64) AudioGraphSaveState {
	snap := AudioGraphSaveState{
		Instances: make(map[InstanceID]PluginSaveState, len(g.instances)),
		Edges:     append([]Edge(nil), g.edges...),
		TempoBPM:  tempoBPM,
	}
	for id, inst := range g.instances {
		if id.Equal(GraphIn) || id.Equal(GraphOut) {
			continue
		}
		snap.Instances[id] = inst.SaveState
	}
	return snap
}
