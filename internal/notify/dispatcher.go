package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const deliverTimeout = 30 * time.Second

// Dispatcher queues events on a buffered channel drained by worker
// goroutines. Each event is handed to every sink; sink failures are logged
// and never reach the publisher.
type Dispatcher struct {
	sinks  []Sink
	logger *zap.Logger
	queue  chan RewardEarned

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(logger *zap.Logger, workers, queueSize int, sinks ...Sink) *Dispatcher {
	d := &Dispatcher{
		sinks:  sinks,
		logger: logger,
		queue:  make(chan RewardEarned, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for ev := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		d.Deliver(ctx, ev)
		cancel()
	}
}

// Publish enqueues without blocking. A full queue drops the event.
func (d *Dispatcher) Publish(ctx context.Context, ev RewardEarned) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	select {
	case d.queue <- ev:
		return nil
	default:
		d.logger.Warn("notification queue full, dropping event",
			zap.String("user_id", ev.UserID.String()),
			zap.String("pledge_id", ev.PledgeID.String()),
		)
		return ErrQueueFull
	}
}

// Deliver runs every sink synchronously.
func (d *Dispatcher) Deliver(ctx context.Context, ev RewardEarned) {
	for _, s := range d.sinks {
		if err := s.Deliver(ctx, ev); err != nil {
			d.logger.Error("notification sink failed",
				zap.String("sink", s.Name()),
				zap.String("user_id", ev.UserID.String()),
				zap.String("pledge_id", ev.PledgeID.String()),
				zap.Error(err),
			)
		}
	}
}

// Close stops accepting events and waits for queued ones to be delivered
// or for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
