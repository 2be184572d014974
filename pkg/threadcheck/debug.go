//go:build debug

// Package threadcheck asserts which OS thread is allowed to call which
// part of the engine: M (main), P (process), A (audio callback). Debug
// builds panic on a violation; release builds compile these checks out
// entirely so they cost nothing on the realtime path.
package threadcheck

import (
	"fmt"
	"runtime"
)

type checker struct {
	mainThreadID  uint64
	processThread uint64
}

func getThreadID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	for i := 9; i < n-1; i++ {
		if buf[i] == ' ' {
			var id uint64
			for j := i + 1; j < n; j++ {
				if buf[j] < '0' || buf[j] > '9' {
					break
				}
				id = id*10 + uint64(buf[j]-'0')
			}
			return id
		}
	}
	return 0
}

var c checker

// SetMainThread marks the calling goroutine as M.
func SetMainThread() { c.mainThreadID = getThreadID() }

// SetProcessThread marks the calling goroutine as P.
func SetProcessThread() { c.processThread = getThreadID() }

// AssertMain panics if the caller is not M.
func AssertMain(operation string) {
	if id := getThreadID(); id != c.mainThreadID {
		panic(fmt.Sprintf("thread violation: %s called from %d, expected main thread %d", operation, id, c.mainThreadID))
	}
}

// AssertProcess panics if the caller is not P.
func AssertProcess(operation string) {
	if id := getThreadID(); id != c.processThread {
		panic(fmt.Sprintf("thread violation: %s called from %d, expected process thread %d", operation, id, c.processThread))
	}
}

// AssertNotProcess panics if the caller is P — used on paths that would
// allocate or block and must never run there.
func AssertNotProcess(operation string) {
	if id := getThreadID(); id == c.processThread {
		panic(fmt.Sprintf("thread violation: %s called from process thread, not allowed", operation))
	}
}
