package schedule

import (
	"context"
	"sync/atomic"

	"github.com/justyntemme/audioengine/pkg/buffer"
	"github.com/justyntemme/audioengine/pkg/tempo"
)

// Schedule is the compiler's entire output: an ordered task list plus the
// input/output mappings that connect it to the graph's two reserved
// endpoints. Immutable once published; a recompile produces a brand new
// Schedule and the old one is handed to the collector, never mutated.
type Schedule struct {
	Version  uint64
	Tasks    []Task
	MinBlock int
	MaxBlock int
	Tempo    *tempo.Cell

	// GraphInBuffers/GraphOutBuffers map a graph-in/out channel index to
	// the SharedBuffer the schedule reads/writes for it, so the ring
	// bridge (P<->A) knows exactly where to copy interleaved samples.
	GraphInBuffers  []*buffer.Shared
	GraphOutBuffers []*buffer.Shared

	// Latency is the graph's total reported latency in samples: the
	// upstream latency the compiler computed at graph-out, after every
	// branch feeding it has been delay-compensated into alignment.
	Latency int
}

// Close satisfies collector.Droppable: a retired Schedule itself owns no
// OS resources. The engine retires the audio-thread siblings of plugins
// waiting to drop alongside it; Schedule.Close releases nothing itself.
func (s *Schedule) Close() {}

// Run executes every Task in order for one block of frames frames.
func (s *Schedule) Run(ctx context.Context, frames int, steadyTime int64) error {
	info := ProcInfo{Frames: frames, SteadyTime: steadyTime}
	for _, t := range s.Tasks {
		if err := t.Process(ctx, info); err != nil {
			return err
		}
	}
	return nil
}

// Cell is an atomic single-cell holder for the current *Schedule: M
// publishes a freshly compiled Schedule with Store, P reads it with Load
// once per block. Mirrors tempo.Cell's shape deliberately — both are the
// same "M swaps, P only loads" pattern applied to different payloads.
type Cell struct {
	v atomic.Value
}

// NewCell creates a Cell seeded with an initial Schedule.
func NewCell(initial *Schedule) *Cell {
	c := &Cell{}
	c.v.Store(initial)
	return c
}

// Load returns the current Schedule. Never nil once constructed via NewCell.
func (c *Cell) Load() *Schedule { return c.v.Load().(*Schedule) }

// Store atomically publishes a new Schedule, returning the previous one
// for the caller to hand to the collector.
func (c *Cell) Store(s *Schedule) *Schedule {
	old := c.v.Load().(*Schedule)
	c.v.Store(s)
	return old
}
