// Package engine owns the main-thread (M) loop: it drains the request
// channel, mutates the audio graph, recompiles, and publishes a fresh
// Schedule for P to pick up, exactly the M side of spec.md §4.5's state
// machine and request/event contract.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justyntemme/audioengine/pkg/collector"
	"github.com/justyntemme/audioengine/pkg/compiler"
	"github.com/justyntemme/audioengine/pkg/graph"
	"github.com/justyntemme/audioengine/pkg/logging"
	"github.com/justyntemme/audioengine/pkg/metrics"
	"github.com/justyntemme/audioengine/pkg/pluginapi"
	"github.com/justyntemme/audioengine/pkg/pluginhost"
	"github.com/justyntemme/audioengine/pkg/scanner"
	"github.com/justyntemme/audioengine/pkg/schedule"
	"github.com/justyntemme/audioengine/pkg/tempo"
	"github.com/justyntemme/audioengine/pkg/threadcheck"
)

// idleInterval matches the 10ms housekeeping tick the original engine uses
// between idle passes over the plugin set.
const idleInterval = 10 * time.Millisecond

var (
	ErrAlreadyActive   = errors.New("engine is already activated")
	ErrNotActive       = errors.New("engine is not activated")
	ErrUnknownInstance = errors.New("graph op references an unknown instance")
)

// Engine is the main-thread owner of the audio graph, the plugin host set,
// and the compiled schedule. Each Engine owns its own graph and hosts; P and
// A only ever touch the Schedule/tempo cells it publishes.
type Engine struct {
	requestCh chan Request
	eventCh   chan Event

	log       *logging.Logger
	metrics   *metrics.Recorder
	scanner   *scanner.Registry
	collector *collector.Collector
	compiler  *compiler.Compiler

	g            *graph.AudioGraph
	hosts        map[graph.InstanceID]*pluginhost.PluginInstanceHost
	scheduleCell *schedule.Cell
	tempoCell    *tempo.Cell

	activated bool
	settings  pluginapi.ActivateSettings
}

// New creates an Engine with a buffered request/event channel pair.
func New(reg *scanner.Registry, log *logging.Logger, rec *metrics.Recorder, coll *collector.Collector) *Engine {
	return &Engine{
		requestCh: make(chan Request, 64),
		eventCh:   make(chan Event, 64),
		log:       log,
		metrics:   rec,
		scanner:   reg,
		collector: coll,
		compiler:  compiler.New(),
		hosts:     make(map[graph.InstanceID]*pluginhost.PluginInstanceHost),
	}
}

// Send enqueues a request for the next Run loop iteration. Safe from any
// thread; the channel itself is the only synchronization M's public API
// needs.
func (e *Engine) Send(req Request) { e.requestCh <- req }

// Events returns the event channel an embedder should drain.
func (e *Engine) Events() <-chan Event { return e.eventCh }

// ScheduleCell exposes the published schedule for P to read.
func (e *Engine) ScheduleCell() *schedule.Cell { return e.scheduleCell }

// Host implements compiler.Hosts.
func (e *Engine) Host(id graph.InstanceID) (*pluginhost.PluginInstanceHost, bool) {
	h, ok := e.hosts[id]
	return h, ok
}

// Run drives the main-thread loop until ctx is cancelled: drain requests,
// run one idle pass over every plugin host, drain the deferred-drop
// collector, sleep idleInterval.
func (e *Engine) Run(ctx context.Context) {
	threadcheck.SetMainThread()

	ticker := time.NewTicker(idleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-e.requestCh:
			e.handle(req)
		case <-ticker.C:
			e.onIdle()
		}
	}
}

func (e *Engine) handle(req Request) {
	threadcheck.AssertMain("engine.handle")
	switch r := req.(type) {
	case ModifyGraphRequest:
		e.modifyGraph(r)
	case ActivateEngineRequest:
		e.activateEngine(r.Settings)
	case DeactivateEngineRequest:
		e.deactivateEngine()
	case RestoreFromSaveStateRequest:
		e.restoreFromSaveState(r.SaveState)
	case RequestLatestSaveStateRequest:
		e.requestLatestSaveState()
	case RescanPluginDirectoriesRequest:
		e.log.Warn("plugin scanning is an external collaborator; nothing to rescan")
	case UpdateTempoMapRequest:
		if e.tempoCell != nil {
			e.tempoCell.Store(r.Map)
		}
	case PluginRequest:
		e.pluginRequest(r)
	default:
		e.log.Warn("ignored unknown request", "type", fmt.Sprintf("%T", req))
	}
}

func (e *Engine) emit(ev Event) {
	select {
	case e.eventCh <- ev:
	default:
		e.log.Warn("event channel full, dropping event", "type", fmt.Sprintf("%T", ev))
	}
}

// activateEngine constructs the graph, wires the default stereo
// endpoint-to-endpoint connection, compiles, and publishes the first
// schedule — spec.md §4.5's ActivateEngine transition.
func (e *Engine) activateEngine(settings pluginapi.ActivateSettings) {
	if e.activated {
		e.log.Warn("ignored ActivateEngine: already activated")
		return
	}

	e.g = graph.New(float64(settings.SampleRate), int(settings.MinFrames), int(settings.MaxFrames))
	e.tempoCell = tempo.NewCell(tempo.Map{BPM: 120})
	e.settings = settings

	if err := e.g.Connect(graph.Edge{
		Type: graph.PortAudio,
		From: graph.PortRef{Instance: graph.GraphIn, PortID: 0},
		To:   graph.PortRef{Instance: graph.GraphOut, PortID: 0},
	}); err != nil {
		e.log.Warn("failed to wire default passthrough endpoint", "err", err)
	}

	sched, err := e.compiler.Compile(e.g, e, e.tempoCell)
	if err != nil {
		e.failCompile(err)
		return
	}
	e.scheduleCell = schedule.NewCell(sched)
	e.activated = true

	e.emit(EngineActivatedEvent{
		SampleRate: e.g.SampleRate,
		MinFrames:  int(settings.MinFrames),
		MaxFrames:  int(settings.MaxFrames),
		Channels:   settings.MaxChannels,
	})
}

// deactivateEngine collects save state, tears the graph down, and emits
// EngineDeactivated{Graceful: true}.
func (e *Engine) deactivateEngine() {
	if !e.activated {
		e.log.Warn("ignored DeactivateEngine: not activated")
		return
	}
	save := e.g.SaveState(e.tempoCell.Load().BPM)

	for id, h := range e.hosts {
		h.ScheduleDeactivate()
		h.ScheduleRemove()
		delete(e.hosts, id)
	}
	e.g = nil
	e.activated = false

	e.emit(EngineDeactivatedEvent{Graceful: true, SaveState: &save})
	e.emit(AudioGraphClearedEvent{})
}

// failCompile implements the fatal-compile-error transition: the engine
// crashes rather than running a stale or partial schedule.
func (e *Engine) failCompile(err error) {
	e.log.Error("fatal compile error, engine crashed", "err", err)
	e.activated = false
	e.emit(CompileErrorEvent{Err: err})
	e.emit(EngineDeactivatedEvent{Graceful: false, Err: err})
}

func (e *Engine) requestLatestSaveState() {
	if !e.activated {
		e.log.Warn("ignored RequestLatestSaveState: not activated")
		return
	}
	e.emit(NewSaveStateEvent{SaveState: e.g.SaveState(e.tempoCell.Load().BPM)})
}

func (e *Engine) restoreFromSaveState(save graph.AudioGraphSaveState) {
	if !e.activated {
		e.log.Warn("ignored RestoreFromSaveState: engine not activated")
		return
	}
	for id := range e.g.Instances() {
		if id.Equal(graph.GraphIn) || id.Equal(graph.GraphOut) {
			continue
		}
		_ = e.g.RemoveInstance(id)
		delete(e.hosts, id)
	}

	remap := make(map[graph.InstanceID]graph.InstanceID, len(save.Instances))
	for oldID, ss := range save.Instances {
		newID := e.g.AddInstance(oldID.Debug, ss)
		remap[oldID] = newID
		var plugin pluginapi.Plugin
		if factory, err := e.scanner.Lookup(ss.Key); err != nil {
			e.log.Warn("restored instance references an unscanned plugin key", "err", err)
		} else if plugin, err = factory.Create(); err != nil {
			e.log.Warn("plugin factory Create failed", "err", err)
			plugin = nil
		}
		host := pluginhost.New(newID, plugin, ss, e.log)
		if plugin != nil && ss.Active {
			if _, err := host.Activate(e.settings); err != nil {
				e.log.Warn("plugin activation failed, will run as passthrough", "err", err)
			}
		}
		e.hosts[newID] = host
	}
	for _, edge := range save.Edges {
		from, to := edge.From, edge.To
		if r, ok := remap[from.Instance]; ok {
			from.Instance = r
		}
		if r, ok := remap[to.Instance]; ok {
			to.Instance = r
		}
		if err := e.g.Connect(graph.Edge{Type: edge.Type, From: from, To: to}); err != nil {
			e.log.Warn("dropped edge while restoring save state", "err", err)
		}
	}
	e.tempoCell.Store(tempo.Map{BPM: save.TempoBPM})
	e.recompile()
}

func (e *Engine) pluginRequest(r PluginRequest) {
	if _, ok := e.hosts[r.ID]; !ok {
		e.log.Warn("plugin request for unknown instance", "id", r.ID.String())
		return
	}
	// GUI surfaces are out of scope for this engine; acknowledge and no-op.
	switch r.Action {
	case PluginShowGui, PluginCloseGui:
		e.log.Debug("GUI requests are not supported by this host", "id", r.ID.String())
	}
}

// modifyGraph applies a batch of GraphOps atomically: every AddPluginOp
// runs first so ConnectOp/DisconnectOp can address plugins added earlier
// in the same batch via EndpointRef.AddedIndex.
func (e *Engine) modifyGraph(req ModifyGraphRequest) {
	if !e.activated {
		e.log.Warn("ignored ModifyGraph: engine not activated")
		return
	}

	added := make([]graph.InstanceID, 0)
	var removed []graph.InstanceID

	resolve := func(ref EndpointRef) (graph.InstanceID, error) {
		if ref.IsExisting {
			return ref.Existing, nil
		}
		if ref.AddedIndex < 0 || ref.AddedIndex >= len(added) {
			return graph.InstanceID{}, ErrUnknownInstance
		}
		return added[ref.AddedIndex], nil
	}

	ops := make([]GraphOp, 0, len(req.Ops))
	for _, op := range req.Ops {
		if _, ok := op.(AddPluginOp); ok {
			ops = append(ops, op)
		}
	}
	for _, op := range req.Ops {
		if _, ok := op.(AddPluginOp); !ok {
			ops = append(ops, op)
		}
	}

	for _, op := range ops {
		switch o := op.(type) {
		case AddPluginOp:
			factory, err := e.scanner.Lookup(o.Key)
			if err != nil {
				e.log.Warn("AddPlugin referenced an unscanned plugin key", "err", err)
				added = append(added, graph.InstanceID{})
				continue
			}
			main, err := factory.Create()
			if err != nil {
				e.log.Warn("plugin factory Create failed", "err", err)
				added = append(added, graph.InstanceID{})
				continue
			}
			id := e.g.AddInstance(o.Debug, graph.PluginSaveState{Key: o.Key})
			host := pluginhost.New(id, main, graph.PluginSaveState{Key: o.Key}, e.log)
			if _, err := host.Activate(e.settings); err != nil {
				e.log.Warn("plugin activation failed, will run as passthrough", "debug", o.Debug, "err", err)
			}
			e.hosts[id] = host
			added = append(added, id)
		case RemovePluginOp:
			if h, ok := e.hosts[o.ID]; ok {
				h.ScheduleDeactivate()
				h.ScheduleRemove()
			}
			if err := e.g.RemoveInstance(o.ID); err != nil {
				e.log.Warn("RemovePlugin failed", "err", err)
				continue
			}
			removed = append(removed, o.ID)
		case ConnectOp:
			from, err1 := resolve(o.From)
			to, err2 := resolve(o.To)
			if err1 != nil || err2 != nil {
				if o.LogErrorOnFail {
					e.log.Warn("Connect referenced an unresolved endpoint")
				}
				continue
			}
			edge := graph.Edge{
				Type: o.Type,
				From: graph.PortRef{Instance: from, PortID: o.FromPort, Channel: o.FromChannel},
				To:   graph.PortRef{Instance: to, PortID: o.ToPort, Channel: o.ToChannel},
			}
			if err := e.g.Connect(edge); err != nil && o.LogErrorOnFail {
				e.log.Warn("Connect failed", "err", err)
			}
		case DisconnectOp:
			from, err1 := resolve(o.From)
			to, err2 := resolve(o.To)
			if err1 != nil || err2 != nil {
				continue
			}
			edge := graph.Edge{
				Type: o.Type,
				From: graph.PortRef{Instance: from, PortID: o.FromPort, Channel: o.FromChannel},
				To:   graph.PortRef{Instance: to, PortID: o.ToPort, Channel: o.ToChannel},
			}
			e.g.Disconnect(edge)
		}
	}

	e.recompile()
	e.emit(AudioGraphModifiedEvent{NewPlugins: added, RemovedPlugins: removed})
}

// recompile publishes a new schedule if one compiles, otherwise transitions
// to EngineCrashed per spec.md's "CompileError after ActivateEngine is
// fatal" rule.
func (e *Engine) recompile() {
	sched, err := e.compiler.Compile(e.g, e, e.tempoCell)
	if err != nil {
		e.failCompile(err)
		return
	}
	old := e.scheduleCell.Store(sched)
	e.collector.Retire(old)
	for _, h := range e.hosts {
		if h.State() == pluginhost.StateWaitingToDrop && h.AudioThread() != nil {
			e.collector.Retire(h.AudioThread())
		}
	}
}

// onIdle runs one housekeeping pass: every plugin host's OnIdle, then
// drains the deferred-drop collector.
func (e *Engine) onIdle() {
	threadcheck.AssertMain("engine.onIdle")
	if e.activated {
		var toRemove []graph.InstanceID
		for id, h := range e.hosts {
			if h.OnIdle() {
				toRemove = append(toRemove, id)
			}
		}
		for _, id := range toRemove {
			delete(e.hosts, id)
		}
	}
	e.collector.Drain()
}
