// Package metrics exposes the engine's realtime health as Prometheus
// gauges and counters: process-call timing, buffer underruns, and event
// throughput. P only ever touches atomics on the hot path; the Prometheus
// collector reads them on scrape, off the audio thread entirely.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder accumulates realtime stats with atomics and exposes them as
// Prometheus metrics on demand. One Recorder per engine instance.
type Recorder struct {
	sampleRate uint32
	frameCount uint32

	processTimeNanos    int64
	maxProcessTimeNanos int64
	totalProcessTime    int64
	processCallCount    uint64

	bufferUnderruns    uint64
	gcPausesDuringProc uint64

	eventsProcessed     uint64
	maxEventsPerBuffer  uint64
	currentBufferEvents uint64
}

// NewRecorder creates a Recorder for the given block configuration.
func NewRecorder(sampleRate float64, frameCount uint32) *Recorder {
	return &Recorder{sampleRate: uint32(sampleRate), frameCount: frameCount}
}

// StartProcess returns a timestamp to pass to EndProcess.
func (r *Recorder) StartProcess() time.Time { return time.Now() }

// EndProcess records one block's process duration and flags an underrun if
// it exceeded 80% of the block's real-time budget.
func (r *Recorder) EndProcess(start time.Time) {
	duration := time.Since(start).Nanoseconds()

	atomic.StoreInt64(&r.processTimeNanos, duration)
	for {
		max := atomic.LoadInt64(&r.maxProcessTimeNanos)
		if duration <= max || atomic.CompareAndSwapInt64(&r.maxProcessTimeNanos, max, duration) {
			break
		}
	}
	atomic.AddInt64(&r.totalProcessTime, duration)
	atomic.AddUint64(&r.processCallCount, 1)

	budget := int64(r.frameCount) * int64(time.Second) / int64(r.sampleRate)
	if duration > budget*80/100 {
		atomic.AddUint64(&r.bufferUnderruns, 1)
	}

	current := atomic.LoadUint64(&r.currentBufferEvents)
	for {
		max := atomic.LoadUint64(&r.maxEventsPerBuffer)
		if current <= max || atomic.CompareAndSwapUint64(&r.maxEventsPerBuffer, max, current) {
			break
		}
	}
	atomic.StoreUint64(&r.currentBufferEvents, 0)
}

// RecordEvent counts one processed event.
func (r *Recorder) RecordEvent() {
	atomic.AddUint64(&r.eventsProcessed, 1)
	atomic.AddUint64(&r.currentBufferEvents, 1)
}

// RecordGCPause counts a GC pause observed during a process call.
func (r *Recorder) RecordGCPause() { atomic.AddUint64(&r.gcPausesDuringProc, 1) }

// RecordUnderrun counts an explicit ring-bridge underrun, distinct from the
// budget-based heuristic in EndProcess: this one fires when A actually had
// to zero the device output buffer for a cycle.
func (r *Recorder) RecordUnderrun() { atomic.AddUint64(&r.bufferUnderruns, 1) }

// Snapshot is a point-in-time copy of every counter, also used to feed the
// Prometheus collector below.
type Snapshot struct {
	ProcessTime        time.Duration
	MaxProcessTime     time.Duration
	AvgProcessTime     time.Duration
	ProcessCallCount   uint64
	BufferUnderruns    uint64
	GCPausesDuringProc uint64
	EventsProcessed    uint64
	MaxEventsPerBuffer uint64
}

func (r *Recorder) Snapshot() Snapshot {
	count := atomic.LoadUint64(&r.processCallCount)
	total := atomic.LoadInt64(&r.totalProcessTime)
	var avg int64
	if count > 0 {
		avg = total / int64(count)
	}
	return Snapshot{
		ProcessTime:        time.Duration(atomic.LoadInt64(&r.processTimeNanos)),
		MaxProcessTime:     time.Duration(atomic.LoadInt64(&r.maxProcessTimeNanos)),
		AvgProcessTime:     time.Duration(avg),
		ProcessCallCount:   count,
		BufferUnderruns:    atomic.LoadUint64(&r.bufferUnderruns),
		GCPausesDuringProc: atomic.LoadUint64(&r.gcPausesDuringProc),
		EventsProcessed:    atomic.LoadUint64(&r.eventsProcessed),
		MaxEventsPerBuffer: atomic.LoadUint64(&r.maxEventsPerBuffer),
	}
}

// Collector adapts a Recorder to prometheus.Collector so it can be
// registered on the process's default registry and scraped like any other
// service metric.
type Collector struct {
	recorder *Recorder

	processTime     *prometheus.Desc
	maxProcessTime  *prometheus.Desc
	callCount       *prometheus.Desc
	underruns       *prometheus.Desc
	gcPauses        *prometheus.Desc
	eventsProcessed *prometheus.Desc
}

// NewCollector wraps recorder for Prometheus registration.
func NewCollector(recorder *Recorder) *Collector {
	return &Collector{
		recorder:        recorder,
		processTime:     prometheus.NewDesc("audioengine_process_time_seconds", "Duration of the last process block.", nil, nil),
		maxProcessTime:  prometheus.NewDesc("audioengine_process_time_max_seconds", "Worst-case process block duration observed.", nil, nil),
		callCount:       prometheus.NewDesc("audioengine_process_calls_total", "Total process blocks run.", nil, nil),
		underruns:       prometheus.NewDesc("audioengine_buffer_underruns_total", "Process blocks that exceeded their realtime budget.", nil, nil),
		gcPauses:        prometheus.NewDesc("audioengine_gc_pauses_during_process_total", "GC pauses observed during a process block.", nil, nil),
		eventsProcessed: prometheus.NewDesc("audioengine_events_processed_total", "Total plugin events processed.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.processTime
	ch <- c.maxProcessTime
	ch <- c.callCount
	ch <- c.underruns
	ch <- c.gcPauses
	ch <- c.eventsProcessed
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.recorder.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.processTime, prometheus.GaugeValue, snap.ProcessTime.Seconds())
	ch <- prometheus.MustNewConstMetric(c.maxProcessTime, prometheus.GaugeValue, snap.MaxProcessTime.Seconds())
	ch <- prometheus.MustNewConstMetric(c.callCount, prometheus.CounterValue, float64(snap.ProcessCallCount))
	ch <- prometheus.MustNewConstMetric(c.underruns, prometheus.CounterValue, float64(snap.BufferUnderruns))
	ch <- prometheus.MustNewConstMetric(c.gcPauses, prometheus.CounterValue, float64(snap.GCPausesDuringProc))
	ch <- prometheus.MustNewConstMetric(c.eventsProcessed, prometheus.CounterValue, float64(snap.EventsProcessed))
}
