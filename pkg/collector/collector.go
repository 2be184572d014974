// Package collector implements deferred-drop garbage collection for
// objects the process thread may still be referencing: retired schedules,
// audio-thread plugin wrappers, SharedBuffers, and tempo maps. P never
// frees anything itself; M hands retired objects to a Collector and drains
// it on its idle tick, by which point at least one full block has run on
// the new state and no in-flight block can still see the old one.
package collector

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Droppable is anything a Collector can defer the destruction of. Close is
// only ever called from Drain, on M.
type Droppable interface {
	Close()
}

// Collector queues retired objects and frees them one generation later,
// bounding worst-case free latency to one Drain cycle while guaranteeing P
// never observes a use-after-free.
type Collector struct {
	mu         sync.Mutex
	pending    []Droppable
	generation []Droppable

	queueDepth        prometheus.Gauge
	generationsDrained prometheus.Counter
}

// New creates an empty Collector, optionally registering its gauges on reg
// (pass nil to skip Prometheus registration, e.g. in tests).
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "audioengine_collector_queue_depth",
			Help: "Objects awaiting deferred drop.",
		}),
		generationsDrained: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audioengine_collector_generations_drained_total",
			Help: "Drain cycles completed by the deferred-drop collector.",
		}),
	}
	if reg != nil {
		reg.MustRegister(c.queueDepth, c.generationsDrained)
	}
	return c
}

// Retire hands an object to the collector. It will be Closed no sooner
// than the Drain call after next, giving any in-flight block that still
// references it one full cycle to finish.
func (c *Collector) Retire(d Droppable) {
	c.mu.Lock()
	c.pending = append(c.pending, d)
	c.queueDepth.Set(float64(len(c.pending) + len(c.generation)))
	c.mu.Unlock()
}

// Drain frees everything retired before the previous Drain call and
// promotes this cycle's newly retired objects to be freed next time.
func (c *Collector) Drain() {
	c.mu.Lock()
	toFree := c.generation
	c.generation = c.pending
	c.pending = nil
	c.queueDepth.Set(float64(len(c.generation)))
	c.mu.Unlock()

	for _, d := range toFree {
		d.Close()
	}
	c.generationsDrained.Inc()
}

// Pending returns the total number of objects not yet freed, for tests and
// diagnostics.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending) + len(c.generation)
}
