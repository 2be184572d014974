package ringbridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/justyntemme/audioengine/pkg/logging"
	"github.com/justyntemme/audioengine/pkg/metrics"
)

func newTestBridge() *Bridge {
	cfg := DefaultConfig(2, 48000, WithMaxSeconds(1), WithPollMargin(0))
	return New(cfg, logging.Nop(), metrics.NewRecorder(48000, 64))
}

func TestPushInputThenPullInputPlanarRoundTrips(t *testing.T) {
	b := newTestBridge()
	frames := 4
	interleaved := []float32{0, 10, 1, 11, 2, 12, 3, 13} // L/R pairs
	b.PushInput(interleaved, 2)

	dst := [][]float32{make([]float32, frames), make([]float32, frames)}
	ok := b.PullInputPlanar(dst, frames)
	require.True(t, ok)
	require.Equal(t, []float32{0, 1, 2, 3}, dst[0])
	require.Equal(t, []float32{10, 11, 12, 13}, dst[1])
}

func TestPullInputPlanarFalseWhenNotEnoughBuffered(t *testing.T) {
	b := newTestBridge()
	b.PushInput([]float32{0, 10}, 2) // only 1 frame buffered

	dst := [][]float32{make([]float32, 4), make([]float32, 4)}
	require.False(t, b.PullInputPlanar(dst, 4))
}

func TestPushOutputPlanarThenPullOutputRoundTrips(t *testing.T) {
	b := newTestBridge()
	frames := 4
	src := [][]float32{{0, 1, 2, 3}, {10, 11, 12, 13}}
	b.PushOutputPlanar(src, frames)

	dst := make([]float32, frames*2)
	ok := b.PullOutput(dst, 2, frames)
	require.True(t, ok)
	require.Equal(t, []float32{0, 10, 1, 11, 2, 12, 3, 13}, dst)
}

func TestPullOutputUnderrunsAndZeroesWhenNothingPushed(t *testing.T) {
	b := newTestBridge()
	frames := 4
	dst := make([]float32, frames*2)
	for i := range dst {
		dst[i] = 99
	}

	start := time.Now()
	ok := b.PullOutput(dst, 2, frames)
	require.False(t, ok)
	require.Less(t, time.Since(start), 50*time.Millisecond, "zero poll margin and tiny deadline should fail fast")
	for _, v := range dst {
		require.Equal(t, float32(0), v)
	}
}

func TestPushOutputPlanarOverrunResetsRingInsteadOfBlocking(t *testing.T) {
	cfg := DefaultConfig(2, 48000, WithMaxSeconds(0.001), WithPollMargin(0))
	b := New(cfg, logging.Nop(), metrics.NewRecorder(48000, 64))

	src := [][]float32{make([]float32, 4096), make([]float32, 4096)}
	require.NotPanics(t, func() {
		b.PushOutputPlanar(src, 4096)
	})
	require.False(t, b.PullOutput(make([]float32, 8), 2, 4), "the overrun reset the ring, so nothing is left to pull")
}
