package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"library-service/internal/logger"
)

type message struct {
	text     string
	queuedAt time.Time
}

// Stats counts dispatcher outcomes since creation.
type Stats struct {
	Delivered int64
	Failed    int64
	Dropped   int64
}

// Dispatcher queues notifications and delivers them from background workers.
// Delivery is best-effort: there are no retries and failures are only logged.
type Dispatcher struct {
	sender  Sender
	jobs    chan message
	workers int

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64

	log *slog.Logger
}

func NewDispatcher(sender Sender, workers, queueSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		sender:  sender,
		jobs:    make(chan message, queueSize),
		workers: workers,
		log:     logger.WithService("notification"),
	}
}

// Start launches the workers. ctx is handed to the sender on every delivery.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	d.log.Debug("notification worker started", "worker", id)

	for {
		select {
		case <-ctx.Done():
			d.log.Debug("notification worker stopping", "worker", id)
			return
		case msg, ok := <-d.jobs:
			if !ok {
				return
			}
			d.deliver(ctx, msg)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg message) {
	defer func() {
		if r := recover(); r != nil {
			d.failed.Add(1)
			d.log.Error("notification sender panicked", "panic", fmt.Sprint(r))
		}
	}()

	if err := d.sender.Send(ctx, msg.text); err != nil {
		d.failed.Add(1)
		d.log.Error("failed to deliver notification",
			"error", err, "queued_for_ms", time.Since(msg.queuedAt).Milliseconds())
		return
	}
	d.delivered.Add(1)
}

// Notify queues text for delivery and returns immediately. When the queue is full or
// the dispatcher is stopped the message is dropped with a warning.
func (d *Dispatcher) Notify(ctx context.Context, text string) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		d.log.WarnContext(ctx, "notification dropped: dispatcher stopped")
		return
	}

	select {
	case d.jobs <- message{text: text, queuedAt: time.Now()}:
	default:
		d.dropped.Add(1)
		d.log.WarnContext(ctx, "notification dropped: queue is full", "capacity", cap(d.jobs))
	}
}

// Stop refuses new messages, lets the workers drain the queue and waits for them.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}
