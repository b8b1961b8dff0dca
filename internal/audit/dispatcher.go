package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering and failure hooks.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool

	// Now stamps events that arrive without a Timestamp. Defaults to time.Now.
	Now func() time.Time

	// OnDrop runs on the emitting goroutine for every event discarded
	// because the buffer was full.
	OnDrop func(Event)

	// OnSinkPanic runs on the worker when the sink panics. The event is lost
	// and the worker keeps delivering.
	OnSinkPanic func(event Event, recovered any)
}

// queued carries the emitter's context values to the sink. Cancellation is
// stripped: a request ending must not abort its own audit record.
type queued struct {
	ctx   context.Context
	event Event
}

// Dispatcher forwards events to a sink from a single background goroutine.
// A nil *Dispatcher is valid and discards everything.
type Dispatcher struct {
	cfg     Config
	sink    Sink
	queue   chan queued
	stop    chan struct{}
	stopped chan struct{}
	dropped atomic.Uint64
	closing sync.Once
}

// NewDispatcher starts a dispatcher, or returns nil when cfg is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:     cfg,
		sink:    sink,
		queue:   make(chan queued, cfg.BufferSize),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer close(d.stopped)

	for {
		select {
		case q := <-d.queue:
			d.deliver(q)
		case <-d.stop:
			for {
				select {
				case q := <-d.queue:
					d.deliver(q)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(q queued) {
	defer func() {
		if r := recover(); r != nil && d.cfg.OnSinkPanic != nil {
			d.cfg.OnSinkPanic(q.event, r)
		}
	}()
	d.sink.Emit(q.ctx, q.event)
}

// Emit queues event. With DropIfFull a full buffer drops and counts the
// event; otherwise Emit blocks until there is room, ctx ends, or Close.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	select {
	case <-d.stop:
		return
	default:
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.cfg.Now().UTC()
	}
	q := queued{ctx: context.WithoutCancel(ctx), event: event}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- q:
		case <-d.stop:
		default:
			d.drop(event)
		}
		return
	}

	select {
	case d.queue <- q:
	case <-ctx.Done():
		d.drop(event)
	case <-d.stop:
	}
}

func (d *Dispatcher) drop(event Event) {
	d.dropped.Add(1)
	if d.cfg.OnDrop != nil {
		d.cfg.OnDrop(event)
	}
}

// Close stops accepting events, flushes the buffer, and waits for the worker.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closing.Do(func() {
		close(d.stop)
		<-d.stopped
	})
}

// Dropped returns the number of events discarded because the buffer was
// full or the emitter gave up waiting.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
