package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueuePushAndClear(t *testing.T) {
	q := NewQueue(4, "test", nil)
	require.Equal(t, 4, q.Cap())
	require.Equal(t, 0, q.Len())

	q.Push(NoteOn(0, 0, 0, 60, 1.0))
	q.Push(NoteOff(10, 0, 0, 60, 0.0))
	require.Equal(t, 2, q.Len())
	require.Equal(t, KindNoteOn, q.At(0).Header.Kind)
	require.Equal(t, KindNoteOff, q.At(1).Header.Kind)

	q.Clear()
	require.Equal(t, 0, q.Len())
	require.Equal(t, 4, q.Cap(), "Clear must not release the backing array")
}

func TestQueuePushPastCapacityStillAppends(t *testing.T) {
	q := NewQueue(1, "test", nil)
	q.Push(NoteOn(0, 0, 0, 1, 1))
	q.Push(NoteOn(1, 0, 0, 2, 1))
	require.Equal(t, 2, q.Len(), "Push must never drop an event, only warn past capacity")
}

func TestAllReflectsCurrentContentsAfterClear(t *testing.T) {
	q := NewQueue(4, "test", nil)
	q.Push(NoteOn(0, 0, 0, 1, 1))
	q.Clear()
	q.Push(NoteOff(5, 0, 0, 1, 0))
	all := q.All()
	require.Len(t, all, 1)
	require.Equal(t, KindNoteOff, all[0].Header.Kind)
}

func TestParamValueEventTargetsNoNodeByDefault(t *testing.T) {
	r := ParamValueEvent(3, 7, 0.42, 99)
	require.Equal(t, KindParamValue, r.Header.Kind)
	require.Equal(t, uint32(3), r.Header.Time)
	require.Equal(t, uint32(7), r.ParamID)
	require.Equal(t, 0.42, r.ParamValue)
	require.Equal(t, uint64(99), r.ParamCookie)
	require.Equal(t, NoTargetNode, r.TargetNode)
}

func TestParamGestureSetsBeginAndEndKinds(t *testing.T) {
	begin := ParamGesture(0, 5, true)
	require.Equal(t, KindParamGestureBegin, begin.Header.Kind)
	require.True(t, begin.ParamIsBegin)

	end := ParamGesture(0, 5, false)
	require.Equal(t, KindParamGestureEnd, end.Header.Kind)
	require.False(t, end.ParamIsBegin)
}
