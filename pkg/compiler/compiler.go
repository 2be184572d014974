// Package compiler reduces a graph.AudioGraph into a schedule.Schedule: a
// linear task list with delay compensation, channel summation, and
// pass-through behavior for inactive plugins. Compilation never mutates
// the graph; on any CompileError the graph is left exactly as it was.
package compiler

import (
	"errors"
	"fmt"
	"sort"

	"github.com/justyntemme/audioengine/pkg/buffer"
	"github.com/justyntemme/audioengine/pkg/graph"
	"github.com/justyntemme/audioengine/pkg/pluginhost"
	"github.com/justyntemme/audioengine/pkg/schedule"
	"github.com/justyntemme/audioengine/pkg/tempo"
	"github.com/justyntemme/audioengine/pkg/threadcheck"
)

var (
	ErrCycle           = errors.New("audio graph contains a cycle")
	ErrMissingHost     = errors.New("edge references an instance with no plugin host")
	ErrChannelMismatch = errors.New("audio edge endpoints have mismatched channel count")
)

// CompileError reports a compile failure along with the participating
// node set, when known (populated for cycle detection).
type CompileError struct {
	Err   error
	Nodes []graph.InstanceID
}

func (e *CompileError) Error() string {
	if len(e.Nodes) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Err, e.Nodes)
}
func (e *CompileError) Unwrap() error { return e.Err }

// Hosts resolves an instance id to its live PluginInstanceHost, the
// compiler's only way to learn current activation state and channel
// counts — it never reaches into pluginhost internals directly.
type Hosts interface {
	Host(id graph.InstanceID) (*pluginhost.PluginInstanceHost, bool)
}

// Compiler holds the SharedBuffer pool and delay-line cache across
// recompiles, so unrelated graph edits don't pay for reallocating delay
// lines whose (source, sink, amount) key hasn't changed. Buffers acquired
// for a schedule are not recycled into the pool, so every compile
// allocates fresh buffers.
type Compiler struct {
	pool       *buffer.Pool
	delayLines map[delayKey]*schedule.DelayCompTask
}

type delayKey struct {
	from, to graph.InstanceID
	port     uint32
	amount   int
}

// New creates a Compiler with a fresh buffer pool.
func New() *Compiler {
	return &Compiler{pool: buffer.NewPool(), delayLines: make(map[delayKey]*schedule.DelayCompTask)}
}

// Compile runs the eight-step algorithm over g and hosts, producing an
// immutable Schedule. tempoCell is attached to the Schedule so whatever
// runs it can read the tempo map without locking.
func (c *Compiler) Compile(g *graph.AudioGraph, hosts Hosts, tempoCell *tempo.Cell) (*schedule.Schedule, error) {
	threadcheck.AssertNotProcess("compiler.Compile")
	order, err := c.topoSort(g)
	if err != nil {
		return nil, err
	}

	incoming := incomingEdgesByDest(g)

	var tasks []schedule.Task
	bufOf := make(map[graph.PortRef]*buffer.Shared)
	latencyOf := make(map[graph.PortRef]int)
	usedDelayKeys := make(map[delayKey]bool)

	// GraphIn has no incoming edges of its own; its buffer is the one the
	// ring bridge writes device input into, so it must be seeded before
	// any edge resolution below can find it by reference.
	graphInBuf := c.pool.Acquire(buffer.Key{Channels: 2, MaxFrames: g.MaxBlock})
	graphInRef := graph.PortRef{Instance: graph.GraphIn, PortID: 0}
	bufOf[graphInRef] = graphInBuf
	latencyOf[graphInRef] = 0

	// One pass in topological order. For every node, first resolve its
	// incoming edges (Sum + delay-compensate any fan-in) to learn its
	// input buffer and latency; then, for a real plugin instance, run its
	// processing task immediately and overwrite both with its output.
	// Because a producer always precedes its consumers in order, a node's
	// bufOf/latencyOf entry is already final by the time any downstream
	// node resolves it as an input — unlike resolving incoming edges for
	// every node in one pass and only running plugin tasks in a second,
	// later pass, which would hand every consumer its producer's *input*
	// instead of its output.
	for _, id := range order {
		edges := incoming[id]
		perPort := groupByDestPort(edges)
		for port, es := range perPort {
			dest := graph.PortRef{Instance: id, PortID: port}
			if len(es) == 1 {
				src, ok := bufOf[es[0].From]
				if !ok {
					src = c.pool.Acquire(buffer.Key{Channels: 2, MaxFrames: g.MaxBlock})
				}
				bufOf[dest] = src
				latencyOf[dest] = latencyOf[es[0].From]
				continue
			}

			// Step 4 (spec.md §4.2): align every branch feeding this Sum
			// to the slowest one before summing, so a node downstream of
			// a fan-in never sees branches arriving at different times.
			target := 0
			for _, e := range es {
				if l := latencyOf[e.From]; l > target {
					target = l
				}
			}

			ins := make([]*buffer.Shared, 0, len(es))
			for _, e := range es {
				b, ok := bufOf[e.From]
				if !ok {
					b = c.pool.Acquire(buffer.Key{Channels: 2, MaxFrames: g.MaxBlock})
				}
				if deficit := target - latencyOf[e.From]; deficit > 0 {
					key := delayKey{from: e.From.Instance, to: id, port: port, amount: deficit}
					delayed := c.pool.Acquire(buffer.Key{Channels: 2, MaxFrames: g.MaxBlock})
					tasks = append(tasks, c.delayTask(key, b, delayed, deficit))
					usedDelayKeys[key] = true
					b = delayed
				}
				ins = append(ins, b)
			}
			out := c.pool.Acquire(buffer.Key{Channels: 2, MaxFrames: g.MaxBlock})
			tasks = append(tasks, &schedule.SumTask{AudioIn: ins, AudioOut: out})
			bufOf[dest] = out
			latencyOf[dest] = target
		}

		if id.Equal(graph.GraphIn) || id.Equal(graph.GraphOut) {
			continue
		}
		host, ok := hosts.Host(id)
		if !ok {
			return nil, &CompileError{Err: ErrMissingHost, Nodes: []graph.InstanceID{id}}
		}

		mainRef := graph.PortRef{Instance: id, PortID: 0}
		mainIn := bufOf[mainRef]
		if mainIn == nil {
			mainIn = c.pool.Acquire(buffer.Key{Channels: 2, MaxFrames: g.MaxBlock})
		}
		mainOut := c.pool.Acquire(buffer.Key{Channels: 2, MaxFrames: g.MaxBlock})

		if host.State() == pluginhost.StateActive && host.AudioThread() != nil {
			tasks = append(tasks, schedule.NewPluginTask(host.AudioThread(), []*buffer.Shared{mainIn}, []*buffer.Shared{mainOut}))
			latencyOf[mainRef] += host.Latency()
		} else {
			tasks = append(tasks, &schedule.DeactivatedPluginTask{
				AudioThrough: [][2]*buffer.Shared{{mainIn, mainOut}},
			})
			// A bypassed or deactivated plugin adds no latency of its own.
		}
		bufOf[mainRef] = mainOut
	}

	for key := range c.delayLines {
		if !usedDelayKeys[key] {
			delete(c.delayLines, key)
		}
	}

	graphOutRef := graph.PortRef{Instance: graph.GraphOut, PortID: 0}
	graphOutIn := bufOf[graphOutRef]
	if graphOutIn == nil {
		graphOutIn = c.pool.Acquire(buffer.Key{Channels: 2, MaxFrames: g.MaxBlock})
	}

	return &schedule.Schedule{
		Version:         g.Version,
		Tasks:           tasks,
		MinBlock:        g.MinBlock,
		MaxBlock:        g.MaxBlock,
		Tempo:           tempoCell,
		GraphInBuffers:  []*buffer.Shared{graphInBuf},
		GraphOutBuffers: []*buffer.Shared{graphOutIn},
		Latency:         latencyOf[graphOutRef],
	}, nil
}

// delayTask returns the cached DelayCompTask for key, rewired onto this
// compile's fresh in/out buffers, or builds a new one (and caches it) if
// key is new or its deficit changed since the last compile. Keeping the
// task alive across recompiles preserves its internal delay-line contents
// instead of restarting from silence on every unrelated graph edit.
func (c *Compiler) delayTask(key delayKey, in, out *buffer.Shared, amount int) *schedule.DelayCompTask {
	if t, ok := c.delayLines[key]; ok {
		t.AudioIn = in
		t.AudioOut = out
		return t
	}
	t := schedule.NewDelayCompTask(in, out, amount)
	c.delayLines[key] = t
	return t
}

// topoSort orders every instance in the graph (Kahn's algorithm), breaking
// ties by InstanceID.String(), which is the debug name followed by the
// numeric id, so ties are ordered by name first, not by insertion order.
// Returns a *CompileError naming the cyclic node set if the audio subgraph
// is not a DAG.
func (c *Compiler) topoSort(g *graph.AudioGraph) ([]graph.InstanceID, error) {
	inDegree := make(map[graph.InstanceID]int)
	adj := make(map[graph.InstanceID][]graph.InstanceID)
	all := make([]graph.InstanceID, 0, len(g.Instances()))
	for id := range g.Instances() {
		all = append(all, id)
		inDegree[id] = 0
	}
	sort.Slice(all, func(i, j int) bool { return all[i].String() < all[j].String() })

	for _, e := range g.Edges() {
		adj[e.From.Instance] = append(adj[e.From.Instance], e.To.Instance)
		inDegree[e.To.Instance]++
	}

	var queue []graph.InstanceID
	for _, id := range all {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	var order []graph.InstanceID
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, next := range adj[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(all) {
		var cyclic []graph.InstanceID
		for _, id := range all {
			if inDegree[id] > 0 {
				cyclic = append(cyclic, id)
			}
		}
		return nil, &CompileError{Err: ErrCycle, Nodes: cyclic}
	}
	return order, nil
}

func incomingEdgesByDest(g *graph.AudioGraph) map[graph.InstanceID][]graph.Edge {
	m := make(map[graph.InstanceID][]graph.Edge)
	for _, e := range g.Edges() {
		m[e.To.Instance] = append(m[e.To.Instance], e)
	}
	return m
}

func groupByDestPort(edges []graph.Edge) map[uint32][]graph.Edge {
	m := make(map[uint32][]graph.Edge)
	for _, e := range edges {
		m[e.To.PortID] = append(m[e.To.PortID], e)
	}
	return m
}
