// Package param implements plugin parameter metadata, a thread-safe
// parameter manager for the main thread, and the reducing SPSC queues that
// carry parameter changes between the main thread (M) and the process
// thread (P), each guarded by a short-held mutex.
package param

import (
	"errors"
	"math"
	"sync/atomic"
)

// Common parameter errors.
var (
	ErrInvalidParam         = errors.New("invalid parameter ID")
	ErrListenerLimitReached = errors.New("parameter listener limit reached")
	ErrValueBelowMinimum    = errors.New("value below minimum")
	ErrValueAboveMaximum    = errors.New("value above maximum")
	ErrParamExists          = errors.New("parameter ID already exists")
)

// MaxListeners is the maximum number of parameter change listeners a
// Manager will accept.
const MaxListeners = 16

// Flags describe a parameter's capabilities.
const (
	FlagAutomatable  uint32 = 1 << 0
	FlagModulatable  uint32 = 1 << 1
	FlagStepped      uint32 = 1 << 2
	FlagReadonly     uint32 = 1 << 3
	FlagHidden       uint32 = 1 << 4
	FlagBypass       uint32 = 1 << 5
	FlagBoundedBelow uint32 = 1 << 6
	FlagBoundedAbove uint32 = 1 << 7
)

// ID identifies a parameter within one plugin instance.
type ID uint32

// Info is parameter metadata, returned by a plugin's param_info(index).
type Info struct {
	ID           ID
	Name         string
	Module       string // path for grouping, e.g. "Filter/Cutoff"
	MinValue     float64
	MaxValue     float64
	DefaultValue float64
	Flags        uint32
	Cookie       uint64 // opaque, plugin-assigned fast-lookup token
}

// Parameter is one managed parameter with thread-safe value access.
type Parameter struct {
	Info      Info
	value     int64 // atomic float64 bits
	validator func(float64) error
}

// Value returns the current value atomically.
func (p *Parameter) Value() float64 {
	return bitsToFloat(atomic.LoadInt64(&p.value))
}

// SetValue validates and stores a new value atomically.
func (p *Parameter) SetValue(value float64) error {
	if p.validator != nil {
		if err := p.validator(value); err != nil {
			return err
		}
	}
	atomic.StoreInt64(&p.value, floatToBits(value))
	return nil
}

func floatToBits(f float64) int64 { return int64(math.Float64bits(f)) }
func bitsToFloat(b int64) float64 { return math.Float64frombits(uint64(b)) }
