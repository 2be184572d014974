package engine

import "github.com/justyntemme/audioengine/pkg/graph"

// Event is anything M emits on its event channel, mirroring spec.md §4.5's
// event union.
type Event interface{ isEvent() }

type EngineActivatedEvent struct {
	SampleRate float64
	MinFrames  int
	MaxFrames  int
	Channels   int
}

type EngineDeactivatedEvent struct {
	Graceful  bool
	SaveState *graph.AudioGraphSaveState // set when Graceful
	Err       error                      // set when !Graceful (EngineCrashed)
}

type AudioGraphModifiedEvent struct {
	NewPlugins     []graph.InstanceID
	RemovedPlugins []graph.InstanceID
}

type AudioGraphClearedEvent struct{}

type NewSaveStateEvent struct{ SaveState graph.AudioGraphSaveState }

type PluginGuiClosedEvent struct{ ID graph.InstanceID }

type CompileErrorEvent struct{ Err error }

func (EngineActivatedEvent) isEvent()     {}
func (EngineDeactivatedEvent) isEvent()   {}
func (AudioGraphModifiedEvent) isEvent()  {}
func (AudioGraphClearedEvent) isEvent()   {}
func (NewSaveStateEvent) isEvent()        {}
func (PluginGuiClosedEvent) isEvent()     {}
func (CompileErrorEvent) isEvent()        {}
