package param

import "sync"

// ValueQueue is a single-producer, single-consumer reducing queue: multiple
// writes to the same parameter ID before a drain coalesce into the latest
// value, so the consumer never sees a backlog larger than the number of
// distinct parameters that changed. It backs the UI->Audio value and
// UI->Audio modulation queues described by the parameter exchange.
//
// The producer adds to the map and the key ring in Set; the consumer's
// Drain copies them out and clears them, so the mutex arbitrates between
// one Set-heavy producer and one Drain-heavy consumer.
type ValueQueue struct {
	mu     sync.Mutex
	values map[ID]float64
	order  []ID
}

// NewValueQueue creates a ValueQueue preallocated for capacity distinct keys.
func NewValueQueue(capacity int) *ValueQueue {
	return &ValueQueue{
		values: make(map[ID]float64, capacity),
		order:  make([]ID, 0, capacity),
	}
}

// Set records a new value for id, overwriting any value already pending.
func (q *ValueQueue) Set(id ID, value float64) {
	q.mu.Lock()
	if _, pending := q.values[id]; !pending {
		q.order = append(q.order, id)
	}
	q.values[id] = value
	q.mu.Unlock()
}

// Drain removes and returns every pending (id, value) pair in the order
// each id first became pending, then clears the queue.
func (q *ValueQueue) Drain() []IDValue {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.order) == 0 {
		return nil
	}
	out := make([]IDValue, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, IDValue{ID: id, Value: q.values[id]})
	}
	q.order = q.order[:0]
	for k := range q.values {
		delete(q.values, k)
	}
	return out
}

// IDValue is one drained (parameter, value) pair.
type IDValue struct {
	ID    ID
	Value float64
}

// Gesture records whether a parameter adjustment is in progress, carried on
// the Audio->UI queue alongside value changes so the UI can highlight a
// knob that is actively being turned by automation or a host control
// surface. A second Set for the same id before Drain overwrites the first,
// same reducing semantics as ValueQueue.
type Gesture struct {
	IsBegin bool
}

// GestureQueue is the Audio->UI reducing queue for per-parameter gesture
// begin/end tokens plus the accompanying value, modeled on
// AudioToMainParamValue's reducing update() in the host's parameter
// exchange: a later Gesture write overwrites an earlier pending one, and a
// nil-vs-set value is merged field by field rather than replacing wholesale.
type GestureQueue struct {
	mu      sync.Mutex
	values  map[ID]*float64
	gesture map[ID]*Gesture
	order   []ID
}

// NewGestureQueue creates a GestureQueue preallocated for capacity keys.
func NewGestureQueue(capacity int) *GestureQueue {
	return &GestureQueue{
		values:  make(map[ID]*float64, capacity),
		gesture: make(map[ID]*Gesture, capacity),
		order:   make([]ID, 0, capacity),
	}
}

// SetValue records a new value for id without touching its gesture state.
func (q *GestureQueue) SetValue(id ID, value float64) {
	q.mu.Lock()
	q.markPending(id)
	v := value
	q.values[id] = &v
	q.mu.Unlock()
}

// SetGesture records a gesture begin/end for id without touching its value.
func (q *GestureQueue) SetGesture(id ID, isBegin bool) {
	q.mu.Lock()
	q.markPending(id)
	q.gesture[id] = &Gesture{IsBegin: isBegin}
	q.mu.Unlock()
}

func (q *GestureQueue) markPending(id ID) {
	if _, pending := q.values[id]; pending {
		return
	}
	if _, pending := q.gesture[id]; pending {
		return
	}
	q.order = append(q.order, id)
}

// ModifiedInfo is one drained parameter change, with the value and gesture
// present independently since a drain can observe either, both, or neither
// having been set since the last one.
type ModifiedInfo struct {
	ID          ID
	Value       *float64
	IsGesturing *bool
}

// Drain removes and returns every pending ModifiedInfo.
func (q *GestureQueue) Drain() []ModifiedInfo {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.order) == 0 {
		return nil
	}
	out := make([]ModifiedInfo, 0, len(q.order))
	for _, id := range q.order {
		info := ModifiedInfo{ID: id, Value: q.values[id]}
		if g := q.gesture[id]; g != nil {
			isBegin := g.IsBegin
			info.IsGesturing = &isBegin
		}
		out = append(out, info)
		delete(q.values, id)
		delete(q.gesture, id)
	}
	q.order = q.order[:0]
	return out
}
