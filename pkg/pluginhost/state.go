package pluginhost

import "sync/atomic"

// State is a plugin instance's lifecycle position.
type State int32

const (
	// StateInactive: loaded but idle.
	StateInactive State = iota
	// StateInactiveWithError: last activation attempt failed.
	StateInactiveWithError
	// StateActive: present in the current schedule; may be processing.
	StateActive
	// StateWaitingToDrop: M asked P to release its audio-thread state.
	StateWaitingToDrop
	// StateDroppedAndReadyToDeactivate: P released its audio-thread state.
	StateDroppedAndReadyToDeactivate
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateInactiveWithError:
		return "inactive_with_error"
	case StateActive:
		return "active"
	case StateWaitingToDrop:
		return "waiting_to_drop"
	case StateDroppedAndReadyToDeactivate:
		return "dropped_and_ready_to_deactivate"
	default:
		return "unknown"
	}
}

// SharedState is the atomic cell holding a host's State. M reads/writes it
// under its own single-threaded discipline. The audio-thread sibling's
// teardown does not write it: Drop sets the sibling's own dropped flag,
// which M observes in OnIdle, so StateDroppedAndReadyToDeactivate is never
// stored by this package. No lock: a single int32 is enough.
type SharedState struct {
	v int32
}

func NewSharedState(initial State) *SharedState {
	s := &SharedState{}
	s.Store(initial)
	return s
}

func (s *SharedState) Load() State       { return State(atomic.LoadInt32(&s.v)) }
func (s *SharedState) Store(state State) { atomic.StoreInt32(&s.v, int32(state)) }

// ProcessingState is the audio-thread sibling's own local record of
// whether it has actually started processing, independent of the shared
// PluginState above.
type ProcessingState int32

const (
	ProcessingWaitingForStart ProcessingState = iota
	ProcessingStarted
	ProcessingStopped
	ProcessingErrored
)
