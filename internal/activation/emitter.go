package activation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/straja-ai/arrhythmia/internal/redact"
)

// Sink consumes activation events.
type Sink interface {
	Name() string
	Deliver(context.Context, *Event) error
	Close(context.Context) error
}

// Stats is a point-in-time copy of the emitter counters.
type Stats struct {
	Enqueued    uint64
	Dropped     uint64
	SinkSuccess map[string]uint64
	SinkFailure map[string]uint64
}

type sinkCounters struct {
	success atomic.Uint64
	failure atomic.Uint64
}

// EmitterConfig controls worker and queue sizing.
type EmitterConfig struct {
	QueueSize       int
	Workers         int
	ShutdownTimeout time.Duration
	// DeliverTimeout bounds a single sink delivery, retries included.
	DeliverTimeout time.Duration
}

// Emitter buffers events in a bounded queue and delivers them from a fixed
// set of workers. Emit never blocks; a full queue drops the event.
type Emitter struct {
	queue    chan *Event
	sinks    []Sink
	counters map[string]*sinkCounters
	cfg      EmitterConfig

	enqueued atomic.Uint64
	dropped  atomic.Uint64

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewEmitter starts the delivery workers.
func NewEmitter(cfg EmitterConfig, sinks []Sink) *Emitter {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 2 * time.Second
	}
	if cfg.DeliverTimeout <= 0 {
		cfg.DeliverTimeout = 5 * time.Second
	}

	e := &Emitter{
		queue:    make(chan *Event, cfg.QueueSize),
		sinks:    sinks,
		counters: make(map[string]*sinkCounters, len(sinks)),
		cfg:      cfg,
	}
	for _, s := range sinks {
		e.counters[s.Name()] = &sinkCounters{}
	}
	for i := 0; i < cfg.Workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	return e
}

// Emit enqueues ev without blocking the caller.
func (e *Emitter) Emit(ev *Event) {
	if e == nil || ev == nil {
		return
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		e.dropped.Add(1)
		return
	}
	select {
	case e.queue <- ev:
		e.enqueued.Add(1)
	default:
		e.dropped.Add(1)
	}
}

// Close stops accepting events, drains the queue within the shutdown timeout
// and closes every sink.
func (e *Emitter) Close(ctx context.Context) {
	if e == nil {
		return
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	waitCtx, cancel := context.WithTimeout(ctx, e.cfg.ShutdownTimeout)
	defer cancel()

	select {
	case <-done:
	case <-waitCtx.Done():
		redact.Logf("activation: shutdown timeout, %d events left in queue", len(e.queue))
	}

	for _, s := range e.sinks {
		if err := s.Close(waitCtx); err != nil {
			redact.Logf("activation: sink %s close error: %v", s.Name(), err)
		}
	}
}

// Stats copies the current counters.
func (e *Emitter) Stats() Stats {
	if e == nil {
		return Stats{}
	}
	out := Stats{
		Enqueued:    e.enqueued.Load(),
		Dropped:     e.dropped.Load(),
		SinkSuccess: make(map[string]uint64, len(e.counters)),
		SinkFailure: make(map[string]uint64, len(e.counters)),
	}
	for name, c := range e.counters {
		out.SinkSuccess[name] = c.success.Load()
		out.SinkFailure[name] = c.failure.Load()
	}
	return out
}

func (e *Emitter) worker() {
	defer e.wg.Done()
	for ev := range e.queue {
		for _, s := range e.sinks {
			e.deliver(s, ev)
		}
	}
}

func (e *Emitter) deliver(s Sink, ev *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.DeliverTimeout)
	defer cancel()

	c := e.counters[s.Name()]
	if err := s.Deliver(ctx, ev); err != nil {
		redact.Logf("activation: sink %s failed for %s: %v", s.Name(), ev.RequestID, err)
		c.failure.Add(1)
		return
	}
	c.success.Add(1)
}
