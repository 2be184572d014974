// Package tempo holds the engine's shared tempo map: a value any thread can
// read without locking, and that M can swap wholesale when the user changes
// the project's tempo.
package tempo

import "sync/atomic"

// Map is one immutable snapshot of tempo information. UpdateTempoMap
// always replaces the whole value, never mutates one in place.
type Map struct {
	BPM            float64
	TimeSigNumer   int
	TimeSigDenom   int
	SamplePosition int64 // transport position this map was captured at
}

// Cell is an atomic single-cell holder for the current Map: P reads it
// with Load every block, M writes a new Map with Store whenever the tempo
// changes. No mutex, no blocking on either side.
type Cell struct {
	v atomic.Value
}

// NewCell creates a Cell seeded with an initial Map.
func NewCell(initial Map) *Cell {
	c := &Cell{}
	c.v.Store(initial)
	return c
}

// Load returns the current Map.
func (c *Cell) Load() Map { return c.v.Load().(Map) }

// Store atomically replaces the current Map.
func (c *Cell) Store(m Map) { c.v.Store(m) }
