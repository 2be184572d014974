// Package ringbridge couples the OS audio callback (A) to the process
// thread (P) through two single-producer/single-consumer ring buffers, one
// per direction, exactly the seam spec.md §4.6 describes. A writes
// interleaved device samples in and reads interleaved samples out; P reads
// planar blocks in and writes planar blocks out.
package ringbridge

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/smallnest/ringbuffer"

	"github.com/justyntemme/audioengine/pkg/logging"
	"github.com/justyntemme/audioengine/pkg/metrics"
)

const bytesPerSample = 4 // float32

// Config sizes one Bridge. MaxSeconds is the ring capacity in seconds of
// audio at SampleRate; spec.md §4.6 asks for a default of at least 3s so a
// slow compile or a stalled P never overruns the ring before A notices.
type Config struct {
	Channels   int
	SampleRate int
	MaxSeconds float64
	PollMargin time.Duration
}

// Option mutates a Config, the builder idiom already used by the teacher's
// options-style constructors.
type Option func(*Config)

func WithMaxSeconds(s float64) Option      { return func(c *Config) { c.MaxSeconds = s } }
func WithPollMargin(d time.Duration) Option { return func(c *Config) { c.PollMargin = d } }

// DefaultConfig returns a Config with spec.md's defaults: a 3s ring and a
// 60µs poll margin subtracted from the frame deadline before declaring
// underrun.
func DefaultConfig(channels, sampleRate int, opts ...Option) Config {
	c := Config{Channels: channels, SampleRate: sampleRate, MaxSeconds: 3, PollMargin: 60 * time.Microsecond}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c Config) capacityBytes() int {
	frames := int(c.MaxSeconds * float64(c.SampleRate))
	return frames * c.Channels * bytesPerSample
}

// Bridge owns the input ring (device -> P) and output ring (P -> device)
// for one active engine run.
type Bridge struct {
	cfg Config
	in  *ringbuffer.RingBuffer
	out *ringbuffer.RingBuffer

	log     *logging.Logger
	metrics *metrics.Recorder
}

// New creates a Bridge sized by cfg.
func New(cfg Config, log *logging.Logger, rec *metrics.Recorder) *Bridge {
	return &Bridge{
		cfg:     cfg,
		in:      ringbuffer.New(cfg.capacityBytes()),
		out:     ringbuffer.New(cfg.capacityBytes()),
		log:     log,
		metrics: rec,
	}
}

// PushInput is called from A with an interleaved device input chunk. Extra
// device channels beyond cfg.Channels are dropped; a device with fewer
// channels than the engine has its missing channels filled with silence by
// interleave below.
func (b *Bridge) PushInput(interleaved []float32, deviceChannels int) {
	buf := interleave(interleaved, deviceChannels, b.cfg.Channels)
	if _, err := b.in.TryWrite(floatsToBytes(buf)); err != nil {
		b.log.Warn("input ring overrun, dropping chunk")
	}
}

// PullInputPlanar is called from P: it makes one non-blocking read of
// frames*channels samples and de-interleaves them into dst, returning
// false without waiting if fewer are available.
func (b *Bridge) PullInputPlanar(dst [][]float32, frames int) bool {
	need := frames * b.cfg.Channels * bytesPerSample
	raw := make([]byte, need)
	n, err := b.in.TryRead(raw)
	if err != nil || n < need {
		return false
	}
	samples := bytesToFloats(raw)
	deinterleave(samples, dst, frames, b.cfg.Channels)
	return true
}

// PushOutputPlanar is called from P after running the schedule: it
// interleaves dst and writes it to the output ring for A to pick up.
func (b *Bridge) PushOutputPlanar(src [][]float32, frames int) {
	out := make([]float32, frames*b.cfg.Channels)
	interleavePlanar(src, out, frames, b.cfg.Channels)
	if _, err := b.out.TryWrite(floatsToBytes(out)); err != nil {
		b.log.Warn("output ring overrun, discarding queued output to resync")
		b.out.Reset()
	}
}

// PullOutput is called from A once per device callback. It polls up to
// frames/sampleRate - PollMargin before declaring underrun; on underrun it
// zeroes dst and returns false, exactly as spec.md §4.6 requires.
func (b *Bridge) PullOutput(dst []float32, deviceChannels, frames int) bool {
	need := frames * b.cfg.Channels * bytesPerSample
	deadline := time.Duration(frames) * time.Second / time.Duration(b.cfg.SampleRate)
	if deadline > b.cfg.PollMargin {
		deadline -= b.cfg.PollMargin
	} else {
		deadline = 0
	}

	raw := make([]byte, need)
	start := time.Now()
	for {
		n, err := b.out.TryRead(raw)
		if err == nil && n == need {
			samples := bytesToFloats(raw)
			interleave2 := planarBytesToDeviceInterleaved(samples, b.cfg.Channels, deviceChannels, frames)
			copy(dst, interleave2)
			if b.metrics != nil {
				b.metrics.RecordEvent()
			}
			return true
		}
		if time.Since(start) >= deadline {
			break
		}
		time.Sleep(5 * time.Microsecond)
	}

	for i := range dst {
		dst[i] = 0
	}
	b.log.Warn("underrun")
	if b.metrics != nil {
		b.metrics.RecordUnderrun()
	}
	return false
}

func floatsToBytes(f []float32) []byte {
	out := make([]byte, len(f)*bytesPerSample)
	for i, v := range f {
		binary.LittleEndian.PutUint32(out[i*bytesPerSample:], math.Float32bits(v))
	}
	return out
}

func bytesToFloats(b []byte) []float32 {
	out := make([]float32, len(b)/bytesPerSample)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*bytesPerSample:]))
	}
	return out
}

// interleave copies an interleaved buffer of deviceChannels channels into a
// flat interleaved buffer of engineChannels channels, zero-filling extra
// engine channels and dropping extra device channels.
func interleave(src []float32, deviceChannels, engineChannels int) []float32 {
	frames := 0
	if deviceChannels > 0 {
		frames = len(src) / deviceChannels
	}
	out := make([]float32, frames*engineChannels)
	for f := 0; f < frames; f++ {
		for ch := 0; ch < engineChannels; ch++ {
			if ch < deviceChannels {
				out[f*engineChannels+ch] = src[f*deviceChannels+ch]
			}
		}
	}
	return out
}

func deinterleave(samples []float32, dst [][]float32, frames, channels int) {
	for f := 0; f < frames; f++ {
		for ch := 0; ch < channels && ch < len(dst); ch++ {
			dst[ch][f] = samples[f*channels+ch]
		}
	}
}

func interleavePlanar(src [][]float32, out []float32, frames, channels int) {
	for f := 0; f < frames; f++ {
		for ch := 0; ch < channels; ch++ {
			if ch < len(src) {
				out[f*channels+ch] = src[ch][f]
			}
		}
	}
}

func planarBytesToDeviceInterleaved(samples []float32, engineChannels, deviceChannels, frames int) []float32 {
	out := make([]float32, frames*deviceChannels)
	for f := 0; f < frames; f++ {
		for ch := 0; ch < deviceChannels; ch++ {
			if ch < engineChannels {
				out[f*deviceChannels+ch] = samples[f*engineChannels+ch]
			}
		}
	}
	return out
}
