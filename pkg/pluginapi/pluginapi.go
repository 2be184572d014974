// Package pluginapi defines the two facets every plugin implementation
// must satisfy: a main-thread facet (M) for lifecycle and a process-thread
// facet (P) for audio. The binding that turns a concrete third-party
// plugin format into these interfaces is out of scope here; pluginapi is
// the seam the rest of the engine is built against.
package pluginapi

import (
	"context"
	"errors"

	"github.com/justyntemme/audioengine/pkg/event"
	"github.com/justyntemme/audioengine/pkg/graph"
	"github.com/justyntemme/audioengine/pkg/param"
)

// Status is the per-block outcome a plugin reports from Process, mirroring
// CLAP's clap_process_status.
type Status int32

const (
	StatusError Status = iota
	StatusContinue
	StatusContinueIfNotQuiet
	StatusTail
	StatusSleep
)

func (s Status) String() string {
	switch s {
	case StatusError:
		return "error"
	case StatusContinue:
		return "continue"
	case StatusContinueIfNotQuiet:
		return "continue_if_not_quiet"
	case StatusTail:
		return "tail"
	case StatusSleep:
		return "sleep"
	default:
		return "unknown"
	}
}

// ShouldContinue reports whether P should call Process again next block
// without an intervening wake-up request.
func (s Status) ShouldContinue() bool {
	return s == StatusContinue || s == StatusContinueIfNotQuiet
}

// ActivateSettings are the parameters a plugin is activated with. The
// engine's own defaults (used when constructing a fresh AudioGraph) are
// 44100Hz, blocks of 1 to 512 frames, 2 channels (min and max) and 256/256
// event queue capacity; individual activations may differ per block-size
// negotiation with the audio driver.
type ActivateSettings struct {
	SampleRate     float64
	MinFrames      uint32
	MaxFrames      uint32
	MinChannels    int
	MaxChannels    int
	EventInCap     int
	EventOutCap    int
}

// DefaultActivateSettings returns the engine's literal defaults.
func DefaultActivateSettings() ActivateSettings {
	return ActivateSettings{
		SampleRate:  44100,
		MinFrames:   1,
		MaxFrames:   512,
		MinChannels: 2,
		MaxChannels: 2,
		EventInCap:  256,
		EventOutCap: 256,
	}
}

// ActivateError taxonomy: every step of activation that can fail gets its
// own sentinel so PluginInstanceHost can report a typed ActivateError.
var (
	ErrPortQueryFailed    = errors.New("failed to query audio/note port layout")
	ErrParamEnumFailed    = errors.New("failed to enumerate parameters")
	ErrPluginActivate     = errors.New("plugin rejected activation")
	ErrAlreadyActive      = errors.New("plugin instance already active")
	ErrNotActive          = errors.New("plugin instance not active")
	ErrUnsupportedExtension = errors.New("unsupported extension")
)

// ActivateError wraps the step that failed during activation.
type ActivateError struct {
	Step string
	Err  error
}

func (e *ActivateError) Error() string { return "activate: " + e.Step + ": " + e.Err.Error() }
func (e *ActivateError) Unwrap() error { return e.Err }

// Info is the static identity a plugin reports, independent of any
// instance: its scan key, display name, and vendor.
type Info struct {
	Key     graph.ScanKey
	Name    string
	Vendor  string
	Version string
}

// ExtLatency is the extension id a plugin's GetExtension returns a
// LatencyProvider for, mirroring CLAP's clap.latency extension.
const ExtLatency = "clap.latency"

// LatencyProvider is the extension a plugin implements to report its
// processing latency in samples, queried once at activation via
// GetExtension(ExtLatency). The compiler inserts DelayComp tasks so every
// path reaching a downstream node arrives with equal latency.
type LatencyProvider interface {
	GetLatency() uint32
}

// MainThreadFacet is everything about a plugin instance only ever touched
// by M: lifecycle transitions, extension queries, and port/parameter
// enumeration used once at activation.
type MainThreadFacet interface {
	Init() error
	Destroy() error
	Activate(settings ActivateSettings) error
	Deactivate() error
	OnMainThread()

	GetInfo() Info
	GetExtension(id string) (interface{}, bool)

	AudioPortCount(isInput bool) int
	AudioPortInfo(index int, isInput bool) graph.AudioPortInfo
	NotePortCount(isInput bool) int
	NotePortInfo(index int, isInput bool) graph.NotePortInfo

	ParamCount() int
	ParamInfo(index int) param.Info
}

// AudioThreadFacet is everything only ever touched by P, after activation
// succeeds: starting/stopping the realtime processing state and running
// one block.
type AudioThreadFacet interface {
	StartProcessing() error
	StopProcessing()
	Reset()

	// Process runs one block. in/out are already sized to the port
	// layout negotiated at activation; eventsIn/eventsOut are the
	// plugin's private per-block event queues, already drained of the
	// reducing-queue parameter changes for this block. ctx carries only
	// cancellation for a hung plugin watchdog, never used for values.
	Process(ctx context.Context, in, out [][]float32, eventsIn, eventsOut *event.Queue, steadyTime int64) (Status, error)
}

// Plugin is the combination every concrete plugin implementation provides;
// the two facets are still split above because the engine only ever holds
// one or the other depending on which thread it's operating from.
type Plugin interface {
	MainThreadFacet
	AudioThreadFacet
}
