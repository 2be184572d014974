// Package schedule holds the compiled, immutable output of pkg/compiler: a
// linear list of Tasks P runs once per block, each knowing exactly which
// SharedBuffers it reads and writes.
package schedule

import (
	"context"

	"github.com/justyntemme/audioengine/pkg/buffer"
	"github.com/justyntemme/audioengine/pkg/pluginhost"
	"github.com/justyntemme/audioengine/pkg/threadcheck"
)

// ProcInfo carries the per-block context every Task needs: how many
// frames to process this call and the steady-clock sample position, used
// for tail/latency bookkeeping and event timestamps.
type ProcInfo struct {
	Frames     int
	SteadyTime int64
}

// Task is one scheduled unit of work. Sum, DelayComp and DeactivatedPlugin
// tasks do not allocate in Process; a PluginTask's Process drains the
// plugin's parameter reducing queues, which allocates the drained slices.
type Task interface {
	Process(ctx context.Context, info ProcInfo) error
}

// PluginTask runs one active plugin instance with its assigned buffers.
type PluginTask struct {
	Plugin *pluginhost.PluginInstanceHostAudioThread

	AudioIn  []*buffer.Shared
	AudioOut []*buffer.Shared

	AutomationIn  []*buffer.Shared
	AutomationOut *buffer.Shared

	NoteIn  [][]*buffer.Shared
	NoteOut []*buffer.Shared

	// flatIn/flatOut are AudioIn/AudioOut flattened into the single
	// per-channel slice AudioThreadFacet.Process expects, built once by
	// NewPluginTask and reused for the life of the schedule — a Shared
	// buffer's Audio channels never move, even across pool recycling, so
	// the flattening never goes stale.
	flatIn, flatOut [][]float32
}

// NewPluginTask builds a PluginTask and precomputes its flattened in/out
// channel slices once, at compile time, so Process never allocates.
func NewPluginTask(plugin *pluginhost.PluginInstanceHostAudioThread, audioIn, audioOut []*buffer.Shared) *PluginTask {
	t := &PluginTask{Plugin: plugin, AudioIn: audioIn, AudioOut: audioOut}
	t.rebuildFlat()
	return t
}

// rebuildFlat concatenates every port's channels, in port order, so a
// plugin with two stereo ports sees four channels in the order its
// AudioPortInfo declared them. Called once at construction; AudioIn/AudioOut
// must not be mutated afterward without calling it again.
func (t *PluginTask) rebuildFlat() {
	t.flatIn = make([][]float32, 0, len(t.AudioIn))
	for _, b := range t.AudioIn {
		t.flatIn = append(t.flatIn, b.Audio...)
	}
	t.flatOut = make([][]float32, 0, len(t.AudioOut))
	for _, b := range t.AudioOut {
		t.flatOut = append(t.flatOut, b.Audio...)
	}
}

// Process runs the plugin against the precomputed flat channel slices —
// no allocation on the process thread.
func (t *PluginTask) Process(ctx context.Context, info ProcInfo) error {
	threadcheck.AssertProcess("PluginTask.Process")
	_, err := t.Plugin.Process(ctx, t.flatIn, t.flatOut, info.SteadyTime)
	return err
}

// DelayCompTask copies AudioIn to AudioOut with Delay frames of fixed
// latency, the compiler's answer to a source whose upstream latency is
// lower than a consuming node's.
type DelayCompTask struct {
	AudioIn  *buffer.Shared
	AudioOut *buffer.Shared
	Delay    int

	line [][]float32 // per-channel ring of Delay pending frames
	pos  int
}

// NewDelayCompTask allocates the internal delay line.
func NewDelayCompTask(in, out *buffer.Shared, delay int) *DelayCompTask {
	line := make([][]float32, in.Audio.Channels())
	for ch := range line {
		line[ch] = make([]float32, delay)
	}
	return &DelayCompTask{AudioIn: in, AudioOut: out, Delay: delay, line: line}
}

func (t *DelayCompTask) Process(ctx context.Context, info ProcInfo) error {
	t.AudioOut.Constant = t.AudioIn.Constant
	if t.Delay == 0 {
		t.AudioOut.Audio.CopyFrom(t.AudioIn.Audio, info.Frames)
		return nil
	}
	start := t.pos
	for ch := range t.line {
		src := t.AudioIn.Audio[ch]
		dst := t.AudioOut.Audio[ch]
		pos := start
		for i := 0; i < info.Frames; i++ {
			dst[i] = t.line[ch][pos]
			t.line[ch][pos] = src[i]
			pos = (pos + 1) % t.Delay
		}
	}
	t.pos = (start + info.Frames) % t.Delay
	return nil
}

// SumTask sums K>=2 audio buffers into one destination, marking the
// destination constant only if every input is constant.
type SumTask struct {
	AudioIn  []*buffer.Shared
	AudioOut *buffer.Shared
}

func (t *SumTask) Process(ctx context.Context, info ProcInfo) error {
	allConstant := true
	out := t.AudioOut.Audio
	out.Clear(info.Frames)
	for _, in := range t.AudioIn {
		if !in.Constant {
			allConstant = false
		}
		for ch := 0; ch < out.Channels() && ch < in.Audio.Channels(); ch++ {
			dst := out[ch]
			src := in.Audio[ch]
			for i := 0; i < info.Frames; i++ {
				dst[i] += src[i]
			}
		}
	}
	t.AudioOut.Constant = allConstant
	return nil
}

// DeactivatedPluginTask runs in place of a Plugin task whose plugin is not
// Active: it passes audio straight through paired main ports, propagating
// the constant flag, and clears every other output so downstream readers
// never see stale data.
type DeactivatedPluginTask struct {
	AudioThrough [][2]*buffer.Shared // [in, out] pairs

	ExtraAudioOut []*buffer.Shared
	AutomationOut *buffer.Shared
	NoteOut       []*buffer.Shared
}

func (t *DeactivatedPluginTask) Process(ctx context.Context, info ProcInfo) error {
	for _, pair := range t.AudioThrough {
		in, out := pair[0], pair[1]
		out.Constant = in.Constant
		out.Audio.CopyFrom(in.Audio, info.Frames)
	}
	for _, out := range t.ExtraAudioOut {
		out.Audio.Clear(info.Frames)
	}
	if t.AutomationOut != nil {
		t.AutomationOut.Audio.Clear(info.Frames)
	}
	for _, out := range t.NoteOut {
		if out != nil {
			out.Audio.Clear(info.Frames)
		}
	}
	return nil
}
