package logging

import (
	"context"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Clock supplies timestamps for events that arrive without one.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function into a Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads wall-clock time.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sink receives routed events on its own goroutine.
type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

// NamedSink pairs a sink with the name used in config and diagnostics.
type NamedSink struct {
	Name string
	Sink Sink
}

// Router fans events out to sinks without blocking publishers. When the
// queue is full events are dropped and counted.
type Router struct {
	cfg         Config
	queue       chan Event
	sinks       []*sinkWorker
	clock       Clock
	fallback    *log.Logger
	minSeverity Severity
	fields      map[string]any
	mute        []string

	closed atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup

	eventsTotal  atomic.Uint64
	droppedTotal atomic.Uint64
	mutedTotal   atomic.Uint64
	lastDropLog  atomic.Int64
}

// RouterStats reports delivery counters.
type RouterStats struct {
	EventsTotal  uint64            `json:"eventsTotal"`
	DroppedTotal uint64            `json:"droppedTotal"`
	MutedTotal   uint64            `json:"mutedTotal"`
	SinkDropped  map[string]uint64 `json:"sinkDropped,omitempty"`
}

// NewRouter starts a router delivering to the provided sinks.
func NewRouter(clock Clock, cfg Config, namedSinks []NamedSink, fallback *log.Logger) *Router {
	if clock == nil {
		clock = SystemClock{}
	}
	if fallback == nil {
		fallback = log.New(os.Stderr, "[logging] ", log.LstdFlags)
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 512
	}
	r := &Router{
		cfg:         cfg,
		queue:       make(chan Event, bufferSize),
		clock:       clock,
		fallback:    fallback,
		minSeverity: cfg.Severity(),
		fields:      cfg.CloneFields(),
		mute:        append([]string(nil), cfg.Mute...),
		done:        make(chan struct{}),
	}

	sinkBuffer := bufferSize
	if sinkBuffer > 1024 {
		sinkBuffer = 1024
	}
	if sinkBuffer < 32 {
		sinkBuffer = 32
	}
	for _, named := range namedSinks {
		if named.Sink == nil {
			continue
		}
		worker := newSinkWorker(named.Name, named.Sink, sinkBuffer, r.fallback)
		worker.minSeverity = cfg.SinkMinimum(named.Name)
		r.sinks = append(r.sinks, worker)
	}

	r.start()
	return r
}

func (r *Router) start() {
	r.wg.Add(1)
	go func() {
		defer func() {
			for _, worker := range r.sinks {
				close(worker.events)
			}
			r.wg.Done()
		}()
		for {
			select {
			case <-r.done:
				r.drain()
				return
			case event := <-r.queue:
				r.forward(event)
			}
		}
	}()

	for _, worker := range r.sinks {
		r.wg.Add(1)
		go func(w *sinkWorker) {
			defer r.wg.Done()
			w.run()
		}(worker)
	}
}

func (r *Router) drain() {
	for {
		select {
		case event := <-r.queue:
			r.forward(event)
		default:
			return
		}
	}
}

func (r *Router) forward(event Event) {
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	event = mergeFields(event, r.fields)
	r.eventsTotal.Add(1)
	for _, worker := range r.sinks {
		worker.enqueue(event)
	}
}

// Publish enqueues an event. Untyped events, events below the minimum
// severity and events published after Close are discarded, as are muted
// event types.
func (r *Router) Publish(ctx context.Context, event Event) {
	if r == nil || event.Type == "" || event.Severity < r.minSeverity {
		return
	}
	if r.closed.Load() {
		return
	}
	if r.muted(event.Type) {
		r.mutedTotal.Add(1)
		return
	}
	select {
	case r.queue <- cloneEvent(event):
	default:
		r.handleDrop(event)
	}
}

func (r *Router) muted(kind EventType) bool {
	for _, prefix := range r.mute {
		if strings.HasPrefix(string(kind), prefix) {
			return true
		}
	}
	return false
}

func (r *Router) handleDrop(event Event) {
	r.droppedTotal.Add(1)
	interval := r.cfg.DropWarnInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	now := time.Now().UnixNano()
	next := r.lastDropLog.Load()
	if next == 0 || now >= next {
		if r.lastDropLog.CompareAndSwap(next, now+interval.Nanoseconds()) {
			r.fallback.Printf("dropping event type=%s tick=%d", event.Type, event.Tick)
		}
	}
}

// Close flushes queued events and closes every sink.
func (r *Router) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.done)
	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		return ctx.Err()
	}
	var firstErr error
	for _, worker := range r.sinks {
		if err := worker.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Stats reports delivery counters.
func (r *Router) Stats() RouterStats {
	if r == nil {
		return RouterStats{}
	}
	stats := RouterStats{
		EventsTotal:  r.eventsTotal.Load(),
		DroppedTotal: r.droppedTotal.Load(),
		MutedTotal:   r.mutedTotal.Load(),
	}
	for _, worker := range r.sinks {
		if dropped := worker.dropped.Load(); dropped > 0 {
			if stats.SinkDropped == nil {
				stats.SinkDropped = make(map[string]uint64)
			}
			stats.SinkDropped[worker.name] = dropped
		}
	}
	return stats
}

// Sink returns the sink registered under name.
func (r *Router) Sink(name string) Sink {
	for _, worker := range r.sinks {
		if worker.name == name {
			return worker.sink
		}
	}
	return nil
}

type sinkWorker struct {
	name        string
	sink        Sink
	events      chan Event
	fallback    *log.Logger
	minSeverity Severity
	dropped     atomic.Uint64
	failures    int
	nextRetry   time.Time
}

func newSinkWorker(name string, sink Sink, buffer int, fallback *log.Logger) *sinkWorker {
	return &sinkWorker{
		name:     name,
		sink:     sink,
		events:   make(chan Event, buffer),
		fallback: fallback,
	}
}

func (w *sinkWorker) enqueue(event Event) {
	if event.Severity < w.minSeverity {
		return
	}
	select {
	case w.events <- cloneEvent(event):
	default:
		if w.dropped.Add(1) == 1 {
			w.fallback.Printf("sink %s backlog full dropping event type=%s", w.name, event.Type)
		}
	}
}

func (w *sinkWorker) run() {
	for event := range w.events {
		if w.failures > 0 {
			if wait := time.Until(w.nextRetry); wait > 0 {
				time.Sleep(wait)
			}
		}
		if err := w.sink.Write(event); err != nil {
			w.fail(err)
			continue
		}
		w.failures = 0
		w.nextRetry = time.Time{}
	}
}

func (w *sinkWorker) fail(err error) {
	w.failures++
	shift := w.failures
	if shift > 5 {
		shift = 5
	}
	delay := time.Duration(1<<shift) * 100 * time.Millisecond
	w.nextRetry = time.Now().Add(delay)
	w.fallback.Printf("sink %s failed: %v (retry in %s)", w.name, err, delay)
}
