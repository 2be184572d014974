// Package gainplugin is a minimal pluginapi.Plugin implementation: a
// single-parameter stereo gain stage. It exists to drive the engine's
// end-to-end scenarios against something simpler than a real CLAP binary,
// the same role examples/gain plays for clapgo itself.
package gainplugin

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/justyntemme/audioengine/pkg/event"
	"github.com/justyntemme/audioengine/pkg/graph"
	"github.com/justyntemme/audioengine/pkg/param"
	"github.com/justyntemme/audioengine/pkg/pluginapi"
)

// GainParamID is the sole parameter this plugin exposes.
const GainParamID param.ID = 0

// Key is the scan key this plugin registers itself under.
var Key = graph.ScanKey{Format: "internal", ID: "audioengine.gain"}

// Plugin is a stereo gain stage: out[ch][i] = in[ch][i] * gain. SleepNanos,
// when non-zero, is slept at the start of Process before any audio work —
// a deliberate hook for the underrun scenario in spec.md §8.6, not
// something a real plugin would ever expose.
type Plugin struct {
	gain       int64 // atomic float64 bits
	activated  bool
	processing bool

	SleepNanos int64 // atomic, read once per Process call

	// LatencySamples, when non-zero, is reported through the clap.latency
	// extension — a hook for exercising the compiler's delay-compensation
	// pass, not something a unity gain stage would genuinely report.
	LatencySamples int64 // atomic
}

// New creates a Plugin at unity gain.
func New() *Plugin {
	p := &Plugin{}
	atomic.StoreInt64(&p.gain, int64(math.Float64bits(1.0)))
	return p
}

func (p *Plugin) Init() error    { return nil }
func (p *Plugin) Destroy() error { return nil }

func (p *Plugin) Activate(settings pluginapi.ActivateSettings) error {
	p.activated = true
	return nil
}

func (p *Plugin) Deactivate() error {
	p.activated = false
	return nil
}

func (p *Plugin) OnMainThread() {}

func (p *Plugin) GetInfo() pluginapi.Info {
	return pluginapi.Info{Key: Key, Name: "Gain", Vendor: "audioengine", Version: "1.0.0"}
}

func (p *Plugin) GetExtension(id string) (interface{}, bool) {
	if id == pluginapi.ExtLatency {
		return p, true
	}
	return nil, false
}

// GetLatency implements pluginapi.LatencyProvider.
func (p *Plugin) GetLatency() uint32 { return uint32(atomic.LoadInt64(&p.LatencySamples)) }

func (p *Plugin) AudioPortCount(isInput bool) int { return 1 }

func (p *Plugin) AudioPortInfo(index int, isInput bool) graph.AudioPortInfo {
	return graph.AudioPortInfo{ID: 0, Name: "main", ChannelCount: 2, IsMain: true, InPlacePair: graph.InvalidPortID}
}

func (p *Plugin) NotePortCount(isInput bool) int                        { return 0 }
func (p *Plugin) NotePortInfo(index int, isInput bool) graph.NotePortInfo { return graph.NotePortInfo{} }

func (p *Plugin) ParamCount() int { return 1 }

func (p *Plugin) ParamInfo(index int) param.Info {
	return param.NewBuilder(GainParamID, "Gain").
		Range(0.0, 2.0, 1.0).
		Automatable().
		MustBuild()
}

func (p *Plugin) StartProcessing() error {
	p.processing = true
	return nil
}

func (p *Plugin) StopProcessing() { p.processing = false }

func (p *Plugin) Reset() {
	atomic.StoreInt64(&p.gain, int64(math.Float64bits(1.0)))
}

// Process applies the current gain to every channel. It honors SleepNanos
// (set by a test to simulate a stalled plugin) before doing any audio work,
// and applies any queued parameter-value event to its gain before running.
func (p *Plugin) Process(ctx context.Context, in, out [][]float32, eventsIn, eventsOut *event.Queue, steadyTime int64) (pluginapi.Status, error) {
	if n := atomic.LoadInt64(&p.SleepNanos); n > 0 {
		time.Sleep(time.Duration(n))
	}

	if eventsIn != nil {
		for _, r := range eventsIn.All() {
			if r.Header.Kind == event.KindParamValue && r.ParamID == uint32(GainParamID) {
				atomic.StoreInt64(&p.gain, int64(math.Float64bits(r.ParamValue)))
			}
		}
	}

	gain := float32(math.Float64frombits(uint64(atomic.LoadInt64(&p.gain))))
	n := len(in)
	if len(out) < n {
		n = len(out)
	}
	for ch := 0; ch < n; ch++ {
		frames := len(in[ch])
		if len(out[ch]) < frames {
			frames = len(out[ch])
		}
		for i := 0; i < frames; i++ {
			out[ch][i] = in[ch][i] * gain
		}
	}
	return pluginapi.StatusContinue, nil
}
