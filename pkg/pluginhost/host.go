// Package pluginhost implements the plugin host state machine: the
// main-thread PluginInstanceHost coordinating lifecycle with the
// concurrently running audio-thread PluginInstanceHostAudioThread sibling,
// including the parameter/automation exchange between the two.
package pluginhost

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/justyntemme/audioengine/pkg/event"
	"github.com/justyntemme/audioengine/pkg/graph"
	"github.com/justyntemme/audioengine/pkg/logging"
	"github.com/justyntemme/audioengine/pkg/param"
	"github.com/justyntemme/audioengine/pkg/pluginapi"
	"github.com/justyntemme/audioengine/pkg/threadcheck"
)

// ActivatePluginError enumerates why activation can fail, following the
// same taxonomy as pluginapi.ActivateError but scoped to host-level
// bookkeeping failures rather than the plugin's own Activate call.
var (
	ErrNotLoaded    = errors.New("plugin instance has no main-thread facet loaded")
	ErrAlreadyActive = errors.New("plugin instance is already active")
)

// PluginHandle is returned by Activate: the live parameter manager, cached
// port layouts, and the initial value of every parameter, handed to
// whatever subsystem (e.g. a UI bridge) needs to mirror them.
type PluginHandle struct {
	Params        *param.Manager
	Layout        graph.PortLayout
	InitialValues map[param.ID]float64
}

// PluginInstanceHost is the main-thread-owned half of one plugin instance.
type PluginInstanceHost struct {
	ID graph.InstanceID

	state *SharedState

	main      pluginapi.MainThreadFacet
	audio     *PluginInstanceHostAudioThread // nil unless Active
	saveState graph.PluginSaveState

	params          *param.Manager
	gesturingParams map[param.ID]bool
	latency         uint32

	hostRequest RequestChannel

	removeRequested bool
	saveStateDirty  bool
	restarting      bool

	log *logging.Logger
}

// NewGraphEndpoint builds the host for one of the two reserved pseudo-plugins,
// which are always Inactive and never have a main-thread facet.
func NewGraphEndpoint(id graph.InstanceID, log *logging.Logger) *PluginInstanceHost {
	return &PluginInstanceHost{
		ID:              id,
		state:           NewSharedState(StateInactive),
		gesturingParams: make(map[param.ID]bool),
		log:             log,
	}
}

// New creates a host for a loaded (but not yet activated) plugin instance.
func New(id graph.InstanceID, main pluginapi.MainThreadFacet, saveState graph.PluginSaveState, log *logging.Logger) *PluginInstanceHost {
	h := &PluginInstanceHost{
		ID:              id,
		main:            main,
		saveState:       saveState,
		gesturingParams: make(map[param.ID]bool),
		log:             log,
	}
	if main == nil {
		h.state = NewSharedState(StateInactiveWithError)
	} else {
		h.state = NewSharedState(StateInactive)
	}
	return h
}

// State returns the current lifecycle state.
func (h *PluginInstanceHost) State() State { return h.state.Load() }

// CanActivate reports whether Activate is currently legal.
func (h *PluginInstanceHost) CanActivate() error {
	if h.main == nil {
		return ErrNotLoaded
	}
	if h.state.Load() == StateActive {
		return ErrAlreadyActive
	}
	return nil
}

// Activate queries port layouts and parameters, activates the plugin, and
// on success builds the audio-thread sibling and a PluginHandle. Failure at
// any step sets StateInactiveWithError and returns a typed *pluginapi.ActivateError.
func (h *PluginInstanceHost) Activate(settings pluginapi.ActivateSettings) (PluginHandle, error) {
	threadcheck.AssertNotProcess("PluginInstanceHost.Activate")
	if err := h.CanActivate(); err != nil {
		return PluginHandle{}, err
	}

	layout, err := queryLayout(h.main)
	if err != nil {
		h.state.Store(StateInactiveWithError)
		return PluginHandle{}, &pluginapi.ActivateError{Step: "query_ports", Err: err}
	}
	h.saveState.Layout = layout

	params := param.NewManager()
	count := h.main.ParamCount()
	initial := make(map[param.ID]float64, count)
	for i := 0; i < count; i++ {
		info := h.main.ParamInfo(i)
		if err := params.Register(info); err != nil {
			h.state.Store(StateInactiveWithError)
			return PluginHandle{}, &pluginapi.ActivateError{Step: "enumerate_params", Err: err}
		}
		initial[info.ID] = info.DefaultValue
	}

	if err := h.main.Activate(settings); err != nil {
		h.state.Store(StateInactiveWithError)
		return PluginHandle{}, &pluginapi.ActivateError{Step: "plugin_activate", Err: err}
	}

	audio := newAudioThreadHost(h.main.(pluginapi.AudioThreadFacet), len(initial), settings)
	h.audio = audio
	h.params = params
	h.saveState.Active = true
	h.latency = queryLatency(h.main)
	h.state.Store(StateActive)

	return PluginHandle{Params: params, Layout: layout, InitialValues: initial}, nil
}

// queryLatency asks the plugin for its clap.latency extension, once at
// activation; a plugin that doesn't implement LatencyProvider reports 0.
func queryLatency(main pluginapi.MainThreadFacet) uint32 {
	ext, ok := main.GetExtension(pluginapi.ExtLatency)
	if !ok {
		return 0
	}
	lp, ok := ext.(pluginapi.LatencyProvider)
	if !ok {
		return 0
	}
	return lp.GetLatency()
}

// Latency returns the plugin's last-queried latency in samples, 0 before
// first Activate or for a plugin that doesn't implement LatencyProvider.
func (h *PluginInstanceHost) Latency() int { return int(h.latency) }

func queryLayout(main pluginapi.MainThreadFacet) (graph.PortLayout, error) {
	var layout graph.PortLayout
	for i := 0; i < main.AudioPortCount(true); i++ {
		layout.AudioIn = append(layout.AudioIn, main.AudioPortInfo(i, true))
	}
	for i := 0; i < main.AudioPortCount(false); i++ {
		layout.AudioOut = append(layout.AudioOut, main.AudioPortInfo(i, false))
	}
	for i := 0; i < main.NotePortCount(true); i++ {
		layout.NoteIn = append(layout.NoteIn, main.NotePortInfo(i, true))
	}
	for i := 0; i < main.NotePortCount(false); i++ {
		layout.NoteOut = append(layout.NoteOut, main.NotePortInfo(i, false))
	}
	return layout, nil
}

// ScheduleDeactivate flips state to WaitingToDrop; M keeps its reference to
// the audio-thread sibling until OnIdle sees it dropped. The sibling is
// torn down when the collector releases it after the schedule that
// referenced it is retired; OnIdle observes that via the sibling's dropped
// flag.
func (h *PluginInstanceHost) ScheduleDeactivate() {
	if h.state.Load() != StateActive {
		return
	}
	h.state.Store(StateWaitingToDrop)
}

// ScheduleRemove marks the instance for removal once fully deactivated.
func (h *PluginInstanceHost) ScheduleRemove() {
	h.removeRequested = true
	h.ScheduleDeactivate()
}

// AudioThread returns the audio-thread sibling, or nil if never activated
// or already dropped.
func (h *PluginInstanceHost) AudioThread() *PluginInstanceHostAudioThread { return h.audio }

// OnIdle is called once per main-thread idle tick: it drains host
// requests, observes audio-thread drop completion, and answers RESTART by
// scheduling a deactivate. Once that deactivate completes the plugin is
// left Inactive; OnIdle does not reactivate it.
//
// readyToRemove is true when the instance has fully deactivated after a
// ScheduleRemove and can now be dropped from the graph.
func (h *PluginInstanceHost) OnIdle() (readyToRemove bool) {
	flags := h.hostRequest.TakeAll()

	if flags&RequestCallback != 0 && h.main != nil {
		h.main.OnMainThread()
	}

	if h.state.Load() == StateWaitingToDrop && h.audio != nil && h.audio.dropped.Load() {
		if err := h.main.Deactivate(); err != nil {
			h.log.Warn("plugin deactivate failed", "instance", h.ID, "error", err)
		}
		h.audio = nil
		h.state.Store(StateInactive)

		if h.removeRequested {
			return true
		}
		if h.restarting {
			h.restarting = false
			h.state.Store(StateInactive)
		}
	}

	if flags&RequestRestart != 0 && !h.removeRequested {
		h.restarting = true
		h.ScheduleDeactivate()
	}

	if flags&RequestProcess != 0 && h.audio != nil {
		h.audio.RequestStart()
	}

	return false
}

// CollectSaveState returns the cached PluginSaveState. It does not fetch
// preset bytes from the plugin, whether or not the save-state-dirty flag
// is set.
func (h *PluginInstanceHost) CollectSaveState() graph.PluginSaveState {
	return h.saveState
}

// MarkSaveStateDirty sets the save-state-dirty flag. CollectSaveState does
// not read it.
func (h *PluginInstanceHost) MarkSaveStateDirty() { h.saveStateDirty = true }

// Params returns the live parameter manager, or nil before first Activate.
func (h *PluginInstanceHost) Params() *param.Manager { return h.params }

// DrainParamChanges pulls any parameter value/gesture changes P reported
// since the last call and applies them to the Manager, notifying the
// caller of each newly-gesturing parameter transition.
func (h *PluginInstanceHost) DrainParamChanges() []param.ModifiedInfo {
	if h.audio == nil {
		return nil
	}
	changes := h.audio.audioToMain.Drain()
	for _, c := range changes {
		if c.Value != nil {
			_ = h.params.Set(c.ID, *c.Value)
		}
		if c.IsGesturing != nil {
			if *c.IsGesturing {
				h.gesturingParams[c.ID] = true
			} else {
				delete(h.gesturingParams, c.ID)
			}
		}
	}
	return changes
}

// PluginInstanceHostAudioThread is the audio-side half of one plugin
// instance: the live AudioThreadFacet, its private event buffers, the
// parameter reducing queues, and its own local ProcessingState. M
// constructs it during Activate and holds the only strong reference; the
// schedule only ever borrows it for the lifetime of one Task.Process call.
type PluginInstanceHostAudioThread struct {
	facet pluginapi.AudioThreadFacet

	eventsIn  *event.Queue
	eventsOut *event.Queue

	uiToAudioValue *param.ValueQueue
	uiToAudioMod   *param.ValueQueue
	audioToMain    *param.GestureQueue

	processing     int32 // ProcessingState, atomic
	startRequested int32 // atomic bool
	dropped        atomicBool

	isAdjusting map[param.ID]bool
}

func newAudioThreadHost(facet pluginapi.AudioThreadFacet, paramCount int, settings pluginapi.ActivateSettings) *PluginInstanceHostAudioThread {
	return &PluginInstanceHostAudioThread{
		facet:          facet,
		eventsIn:       event.NewQueue(settings.EventInCap, "plugin-in", nil),
		eventsOut:      event.NewQueue(settings.EventOutCap, "plugin-out", nil),
		uiToAudioValue: param.NewValueQueue(paramCount),
		uiToAudioMod:   param.NewValueQueue(paramCount),
		audioToMain:    param.NewGestureQueue(paramCount),
		isAdjusting:    make(map[param.ID]bool),
	}
}

// RequestStart sets the start-requested flag. Process does not read it: it
// starts a sibling that is not Started on every block regardless, and
// clears the flag after each start check.
func (a *PluginInstanceHostAudioThread) RequestStart() {
	atomic.StoreInt32(&a.startRequested, 1)
}

// ProcessingState returns the audio-thread sibling's local processing state.
func (a *PluginInstanceHostAudioThread) ProcessingState() ProcessingState {
	return ProcessingState(atomic.LoadInt32(&a.processing))
}

// UIToAudioValue, UIToAudioMod, and AudioToMain expose the three reducing
// queues for the schedule executor and the UI bridge to push/drain.
func (a *PluginInstanceHostAudioThread) UIToAudioValue() *param.ValueQueue { return a.uiToAudioValue }
func (a *PluginInstanceHostAudioThread) UIToAudioMod() *param.ValueQueue   { return a.uiToAudioMod }
func (a *PluginInstanceHostAudioThread) AudioToMain() *param.GestureQueue { return a.audioToMain }

// Process runs one block: ensures processing has started, drains the
// UI->Audio reducing queues into the input event buffer, runs the plugin,
// then scans the output event buffer for parameter/gesture changes to push
// onto the Audio->UI queue.
func (a *PluginInstanceHostAudioThread) Process(ctx context.Context, in, out [][]float32, steadyTime int64) (pluginapi.Status, error) {
	if atomic.LoadInt32(&a.processing) != int32(ProcessingStarted) {
		if err := a.facet.StartProcessing(); err != nil {
			atomic.StoreInt32(&a.processing, int32(ProcessingErrored))
			return pluginapi.StatusError, err
		}
		atomic.StoreInt32(&a.processing, int32(ProcessingStarted))
	}
	atomic.StoreInt32(&a.startRequested, 0)

	a.eventsIn.Clear()
	a.drainReducingQueues()

	a.eventsOut.Clear()
	status, err := a.facet.Process(ctx, in, out, a.eventsIn, a.eventsOut, steadyTime)
	if err != nil {
		return status, err
	}

	a.scanOutputEvents()
	return status, nil
}

func (a *PluginInstanceHostAudioThread) drainReducingQueues() {
	for _, iv := range a.uiToAudioValue.Drain() {
		r := event.ParamValueEvent(0, uint32(iv.ID), iv.Value, 0)
		a.eventsIn.Push(r)
	}
	for _, iv := range a.uiToAudioMod.Drain() {
		r := event.ParamModEvent(0, uint32(iv.ID), iv.Value, 0)
		a.eventsIn.Push(r)
	}
}

func (a *PluginInstanceHostAudioThread) scanOutputEvents() {
	for _, r := range a.eventsOut.All() {
		switch r.Header.Kind {
		case event.KindParamGestureBegin:
			id := param.ID(r.ParamID)
			if a.isAdjusting[id] {
				continue // duplicate begin-adjust, dropped
			}
			a.isAdjusting[id] = true
			a.audioToMain.SetGesture(id, true)
		case event.KindParamGestureEnd:
			id := param.ID(r.ParamID)
			if !a.isAdjusting[id] {
				continue // stray end-adjust, dropped
			}
			delete(a.isAdjusting, id)
			a.audioToMain.SetGesture(id, false)
		case event.KindParamValue:
			a.audioToMain.SetValue(param.ID(r.ParamID), r.ParamValue)
		}
	}
}

// StopProcessing transitions to Stopped if currently Started, mirroring
// the audio-thread sibling's destructor behavior on schedule retirement.
func (a *PluginInstanceHostAudioThread) StopProcessing() {
	if atomic.CompareAndSwapInt32(&a.processing, int32(ProcessingStarted), int32(ProcessingStopped)) {
		a.facet.StopProcessing()
	}
}

// Drop marks the sibling as released; called by the collector once the
// schedule referencing it is retired. Breaks the main/audio ownership
// cycle without a back-pointer: M observes dropped on its next OnIdle.
func (a *PluginInstanceHostAudioThread) Drop() {
	a.StopProcessing()
	a.dropped.Store(true)
}

// Close satisfies collector.Droppable.
func (a *PluginInstanceHostAudioThread) Close() { a.Drop() }

type atomicBool struct{ v int32 }

func (b *atomicBool) Store(val bool) {
	if val {
		atomic.StoreInt32(&b.v, 1)
	} else {
		atomic.StoreInt32(&b.v, 0)
	}
}
func (b *atomicBool) Load() bool { return atomic.LoadInt32(&b.v) == 1 }
