package event

import "github.com/justyntemme/audioengine/pkg/logging"

// Queue is a bounded, preallocated vector of Records for one plugin's input
// or output event buffer in one block. Push never blocks and never resizes
// on the hot path unless capacity is exceeded, in which case it logs a
// warning and appends anyway (spec: "triggering an allocation on P is
// tolerated only as diagnostic").
type Queue struct {
	records []Record
	logger  *logging.Logger
	name    string
}

// NewQueue preallocates a Queue with the given capacity.
func NewQueue(capacity int, name string, logger *logging.Logger) *Queue {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Queue{
		records: make([]Record, 0, capacity),
		logger:  logger,
		name:    name,
	}
}

// Push appends a Record, logging and still appending past capacity.
func (q *Queue) Push(r Record) {
	if len(q.records) >= cap(q.records) {
		q.logger.Warn("event queue exceeded capacity, allocating", "queue", q.name, "capacity", cap(q.records))
	}
	q.records = append(q.records, r)
}

// Len returns the number of queued records.
func (q *Queue) Len() int { return len(q.records) }

// At returns the record at index i.
func (q *Queue) At(i int) *Record { return &q.records[i] }

// All returns the queued records for iteration. The slice is only valid
// until the next Clear.
func (q *Queue) All() []Record { return q.records }

// Clear empties the queue without releasing its backing array.
func (q *Queue) Clear() { q.records = q.records[:0] }

// Cap returns the queue's preallocated capacity.
func (q *Queue) Cap() int { return cap(q.records) }
