package gainplugin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/justyntemme/audioengine/pkg/event"
)

func TestProcessAppliesUnityGainByDefault(t *testing.T) {
	p := New()
	in := [][]float32{{1, 2, 3}, {4, 5, 6}}
	out := [][]float32{make([]float32, 3), make([]float32, 3)}

	status, err := p.Process(context.Background(), in, out, nil, nil, 0)
	require.NoError(t, err)
	require.Equal(t, in, out)
	_ = status
}

func TestProcessAppliesQueuedGainEvent(t *testing.T) {
	p := New()
	in := [][]float32{{1, 1, 1, 1}}
	out := [][]float32{make([]float32, 4)}

	eventsIn := event.NewQueue(8, "test-in", nil)
	eventsIn.Push(event.ParamValueEvent(0, uint32(GainParamID), 0.5, 0))
	eventsOut := event.NewQueue(8, "test-out", nil)

	_, err := p.Process(context.Background(), in, out, eventsIn, eventsOut, 0)
	require.NoError(t, err)
	for _, v := range out[0] {
		require.Equal(t, float32(0.5), v)
	}
}

func TestResetRestoresUnityGain(t *testing.T) {
	p := New()
	eventsIn := event.NewQueue(8, "test-in", nil)
	eventsIn.Push(event.ParamValueEvent(0, uint32(GainParamID), 0, 0))
	in := [][]float32{{1}}
	out := [][]float32{make([]float32, 1)}
	_, err := p.Process(context.Background(), in, out, eventsIn, event.NewQueue(8, "out", nil), 0)
	require.NoError(t, err)
	require.Equal(t, float32(0), out[0][0])

	p.Reset()
	_, err = p.Process(context.Background(), in, out, nil, nil, 0)
	require.NoError(t, err)
	require.Equal(t, float32(1), out[0][0])
}

func TestProcessHonorsSleepNanosBeforeProcessing(t *testing.T) {
	p := New()
	p.SleepNanos = int64(5 * time.Millisecond)

	in := [][]float32{{1}}
	out := [][]float32{make([]float32, 1)}

	start := time.Now()
	_, err := p.Process(context.Background(), in, out, nil, nil, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestParamInfoDeclaresGainRangeAndDefault(t *testing.T) {
	p := New()
	info := p.ParamInfo(0)
	require.Equal(t, GainParamID, info.ID)
	require.Equal(t, 0.0, info.MinValue)
	require.Equal(t, 2.0, info.MaxValue)
	require.Equal(t, 1.0, info.DefaultValue)
}
