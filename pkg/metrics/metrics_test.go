package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEndProcessFlagsUnderrunPastEightyPercentBudget(t *testing.T) {
	r := NewRecorder(48000, 1) // budget: 1 frame / 48000 ~= 20.8us
	start := r.StartProcess()
	time.Sleep(time.Millisecond) // vastly exceeds the 1-frame budget
	r.EndProcess(start)

	snap := r.Snapshot()
	require.Equal(t, uint64(1), snap.ProcessCallCount)
	require.Equal(t, uint64(1), snap.BufferUnderruns)
	require.Greater(t, snap.ProcessTime, time.Duration(0))
}

func TestEndProcessWithinBudgetDoesNotFlagUnderrun(t *testing.T) {
	r := NewRecorder(48000, 512) // budget: 512/48000 ~= 10.6ms, plenty of headroom
	start := r.StartProcess()
	r.EndProcess(start)

	snap := r.Snapshot()
	require.Equal(t, uint64(0), snap.BufferUnderruns)
}

func TestRecordUnderrunIsIndependentOfEndProcessHeuristic(t *testing.T) {
	r := NewRecorder(48000, 512)
	r.RecordUnderrun()
	r.RecordUnderrun()
	require.Equal(t, uint64(2), r.Snapshot().BufferUnderruns)
}

func TestMaxProcessTimeTracksWorstCase(t *testing.T) {
	r := NewRecorder(48000, 512)

	start1 := r.StartProcess()
	time.Sleep(2 * time.Millisecond)
	r.EndProcess(start1)
	firstMax := r.Snapshot().MaxProcessTime

	start2 := r.StartProcess()
	r.EndProcess(start2) // effectively instant, far shorter
	secondMax := r.Snapshot().MaxProcessTime

	require.Equal(t, firstMax, secondMax, "a shorter call must not lower the recorded max")
}

func TestRecordEventTracksPeakPerBuffer(t *testing.T) {
	r := NewRecorder(48000, 512)
	r.RecordEvent()
	r.RecordEvent()
	r.RecordEvent()
	// EndProcess resets the per-buffer counter after folding it into the peak.
	r.EndProcess(r.StartProcess())

	snap := r.Snapshot()
	require.Equal(t, uint64(3), snap.EventsProcessed)
	require.Equal(t, uint64(3), snap.MaxEventsPerBuffer)

	r.RecordEvent()
	r.EndProcess(r.StartProcess())
	require.Equal(t, uint64(3), r.Snapshot().MaxEventsPerBuffer, "one event in the next buffer must not lower the peak")
}
