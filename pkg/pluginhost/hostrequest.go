package pluginhost

import "sync/atomic"

// RequestFlags are the asynchronous requests a plugin can make of the
// host, bitwise-ORed into one atomic cell and drained on each main-thread
// idle tick.
type RequestFlags uint32

const (
	RequestRestart     RequestFlags = 1 << 0
	RequestProcess     RequestFlags = 1 << 1
	RequestCallback    RequestFlags = 1 << 2
	RequestGUIClosed   RequestFlags = 1 << 3
	RequestGUIDestroyed RequestFlags = 1 << 4
)

// RequestChannel is the lock-free bitflag channel a plugin's host-side
// callbacks OR bits into from any thread; M drains it with TakeAll on each
// idle tick.
type RequestChannel struct {
	bits uint32
}

// Request ORs flags into the channel. Safe to call from any thread.
func (c *RequestChannel) Request(flags RequestFlags) {
	for {
		old := atomic.LoadUint32(&c.bits)
		if atomic.CompareAndSwapUint32(&c.bits, old, old|uint32(flags)) {
			return
		}
	}
}

// TakeAll atomically reads and clears the pending flags.
func (c *RequestChannel) TakeAll() RequestFlags {
	return RequestFlags(atomic.SwapUint32(&c.bits, 0))
}
