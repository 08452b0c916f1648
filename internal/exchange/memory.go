package exchange

import (
	"context"
	"fmt"
	"sync"
)

const defaultMemoryQueueSize = 256

// MemoryQueue delivers messages in-process. Messages are dispatched one at
// a time, in append order, by the goroutine running Run.
type MemoryQueue struct {
	dispatcher *Dispatcher
	validator  *Validator
	logger     Logger

	ch        chan Envelope
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewMemoryQueue creates a queue with room for size pending messages. A
// nil validator skips data validation.
func NewMemoryQueue(d *Dispatcher, v *Validator, size int) *MemoryQueue {
	if size <= 0 {
		size = defaultMemoryQueueSize
	}
	return &MemoryQueue{
		dispatcher: d,
		validator:  v,
		logger:     noopLogger{},
		ch:         make(chan Envelope, size),
	}
}

// SetLogger sets the logger for the queue.
func (q *MemoryQueue) SetLogger(logger Logger) {
	q.logger = logger
}

// Append enqueues env without blocking. Consumers append from the dispatch
// goroutine, so a full queue is reported as ErrQueueFull.
func (q *MemoryQueue) Append(ctx context.Context, env Envelope) error {
	if q.validator != nil {
		if err := q.validator.Check(env); err != nil {
			return err
		}
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("appending %s: %w", env.RoutingKey, err)
	}

	select {
	case q.ch <- env:
		q.logger.Debug("message appended", "type", env.RoutingKey, "source", env.Source, "id", env.ID)
		return nil
	default:
		return fmt.Errorf("%w: dropping %s", ErrQueueFull, env.RoutingKey)
	}
}

// Pending returns the number of messages waiting for dispatch.
func (q *MemoryQueue) Pending() int {
	return len(q.ch)
}

// Run dispatches messages until ctx is done or the queue is closed and
// drained.
func (q *MemoryQueue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-q.ch:
			if !ok {
				return
			}
			q.dispatcher.Dispatch(ctx, env)
		}
	}
}

// Close stops accepting messages. Messages already queued are still
// dispatched by Run.
func (q *MemoryQueue) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.ch)
		q.mu.Unlock()
	})
}
