// Package buffer implements the SharedBuffer pool the compiler hands out to
// scheduled tasks: fixed-shape, refcounted audio/event storage keyed by
// channel count and maximum block size.
package buffer

import "errors"

var (
	ErrChannelMismatch    = errors.New("channel count mismatch")
	ErrFrameCountMismatch = errors.New("frame count mismatch")
	ErrInvalidRange       = errors.New("invalid sample range")
)

// Audio is multi-channel sample storage: one []float32 per channel, each
// sized to the pool's max frame count. Tasks only ever touch [:frames] of
// each channel in one block.
type Audio [][]float32

// NewAudio allocates an Audio buffer with the given channel and frame counts.
func NewAudio(channels, frames int) Audio {
	buf := make(Audio, channels)
	for i := range buf {
		buf[i] = make([]float32, frames)
	}
	return buf
}

func (a Audio) Channels() int { return len(a) }

func (a Audio) Frames() int {
	if len(a) == 0 {
		return 0
	}
	return len(a[0])
}

// Clear zeros the first n frames of every channel.
func (a Audio) Clear(n int) {
	for ch := range a {
		for i := 0; i < n; i++ {
			a[ch][i] = 0
		}
	}
}

// CopyFrom copies min(frames, src frames) samples per channel, pairing
// channels up to min(channels, src channels) — the shape DeactivatedPlugin
// passthrough needs when input and output port layouts don't match exactly.
func (a Audio) CopyFrom(src Audio, frames int) {
	n := a.Channels()
	if src.Channels() < n {
		n = src.Channels()
	}
	for ch := 0; ch < n; ch++ {
		copy(a[ch][:frames], src[ch][:frames])
	}
}

// ApplyGain scales the first n frames of every channel by gain.
func (a Audio) ApplyGain(gain float32, n int) {
	for ch := range a {
		for i := 0; i < n; i++ {
			a[ch][i] *= gain
		}
	}
}

// Key identifies one pool bucket: SharedBuffers of the same Key are
// interchangeable and get recycled through the same free list.
type Key struct {
	Channels  int
	MaxFrames int
}

// Shared is a pool-owned Audio buffer plus the bookkeeping the schedule
// needs to treat it as a single-writer, multi-reader edge: a refcount so the
// pool knows when every consuming task is done with a generation, and a
// constant-flag the Sum/DelayComp tasks use to skip work on silent input.
type Shared struct {
	Audio    Audio
	Key      Key
	Constant bool
	refs     int32
}

// NewShared allocates a Shared buffer for the given key.
func NewShared(key Key) *Shared {
	return &Shared{Audio: NewAudio(key.Channels, key.MaxFrames), Key: key}
}

// Close satisfies collector.Droppable; a Shared buffer has nothing to
// release beyond Go's GC, but retiring it through the collector still
// matters because freeing it before P's last in-flight read would corrupt
// that read.
func (s *Shared) Close() {}

// Retain and Release implement the pool's refcounting; Release returns true
// when the buffer has no remaining readers and can be recycled.
func (s *Shared) Retain()        { s.refs++ }
func (s *Shared) Release() bool  { s.refs--; return s.refs <= 0 }
func (s *Shared) RefCount() int32 { return s.refs }

// Pool hands out recycled Shared buffers keyed by (channels, max frames),
// the allocation boundary the compiler consults once per compile rather
// than once per block so P never allocates mid-process.
type Pool struct {
	free map[Key][]*Shared
}

// NewPool creates an empty buffer pool.
func NewPool() *Pool {
	return &Pool{free: make(map[Key][]*Shared)}
}

// Acquire returns a recycled buffer for key if one is free, or allocates a
// new one. Called only from the compiler on the main thread, never from P.
func (p *Pool) Acquire(key Key) *Shared {
	if list := p.free[key]; len(list) > 0 {
		buf := list[len(list)-1]
		p.free[key] = list[:len(list)-1]
		buf.refs = 0
		buf.Constant = false
		return buf
	}
	return NewShared(key)
}

// Recycle returns a buffer to the free list for its key, for reuse by a
// later compile.
func (p *Pool) Recycle(buf *Shared) {
	p.free[buf.Key] = append(p.free[buf.Key], buf)
}
