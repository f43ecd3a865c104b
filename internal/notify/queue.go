package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/visitrelay/internal/logger"
)

// ErrQueueFull is returned by Queue.Send when the buffer is saturated and the
// notification was dropped.
var ErrQueueFull = errors.New("notification queue full")

// ErrQueueStopped is returned by Queue.Send after Stop.
var ErrQueueStopped = errors.New("notification queue stopped")

// Sender delivers one formatted notification.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Queue moves delivery off the request path. Send only enqueues; a single
// worker drains the buffer into the wrapped Sender. Nothing is retried.
type Queue struct {
	sender Sender
	logger logger.Logger
	items  chan string

	mu      sync.RWMutex
	stopped bool
	done    chan struct{}
	cancel  context.CancelFunc

	sent    atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
}

// QueueStats is a snapshot of delivery counters.
type QueueStats struct {
	Pending  int    `json:"pending"`
	Capacity int    `json:"capacity"`
	Sent     uint64 `json:"sent"`
	Failed   uint64 `json:"failed"`
	Dropped  uint64 `json:"dropped"`
}

// NewQueue creates a queue holding up to size pending notifications.
func NewQueue(sender Sender, size int, log logger.Logger) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{
		sender: sender,
		logger: log,
		items:  make(chan string, size),
		done:   make(chan struct{}),
	}
}

// Start launches the worker. It returns immediately.
func (q *Queue) Start(ctx context.Context) {
	wctx, cancel := context.WithCancel(ctx)
	q.mu.Lock()
	q.cancel = cancel
	q.mu.Unlock()
	go q.run(wctx)
}

// Send enqueues text without blocking.
func (q *Queue) Send(_ context.Context, text string) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		return ErrQueueStopped
	}

	select {
	case q.items <- text:
		return nil
	default:
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

// Stop refuses new items and waits for the worker to flush what is pending,
// or for ctx to expire.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	close(q.items)
	started := q.cancel != nil
	q.mu.Unlock()

	// Never started: nothing will drain, count what was buffered as dropped.
	if !started {
		for range q.items {
			q.dropped.Add(1)
		}
		return nil
	}

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		q.cancel()
		return ctx.Err()
	}
}

// Stats returns current counters.
func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Pending:  len(q.items),
		Capacity: cap(q.items),
		Sent:     q.sent.Load(),
		Failed:   q.failed.Load(),
		Dropped:  q.dropped.Load(),
	}
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.done)
	for text := range q.items {
		// Once cancelled, drain without sending so Stop can return.
		if ctx.Err() != nil {
			q.dropped.Add(1)
			continue
		}
		q.deliver(ctx, text)
	}
}

func (q *Queue) deliver(ctx context.Context, text string) {
	start := time.Now()
	if err := q.sender.Send(ctx, text); err != nil {
		q.failed.Add(1)
		q.logger.Warn("notification delivery failed",
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err))
		return
	}
	q.sent.Add(1)
	q.logger.Debug("notification delivered",
		logger.Duration("elapsed", time.Since(start)))
}
