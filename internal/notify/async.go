package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrQueueFull       = errors.New("celebration queue full")
	ErrPublisherClosed = errors.New("publisher closed")
)

const (
	DefaultQueueSize      = 64
	DefaultDeliverTimeout = 5 * time.Second
)

// AsyncPublisher queues events and delivers them to the next publisher from a
// background goroutine, so cart changes never wait on the broker. Events that
// do not fit in the queue are dropped.
type AsyncPublisher struct {
	next    Publisher
	timeout time.Duration
	log     *zap.Logger

	mu     sync.RWMutex
	closed bool
	events chan Event
	done   chan struct{}
}

func NewAsyncPublisher(next Publisher, queueSize int, timeout time.Duration, log *zap.Logger) *AsyncPublisher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if timeout <= 0 {
		timeout = DefaultDeliverTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	p := &AsyncPublisher{
		next:    next,
		timeout: timeout,
		log:     log,
		events:  make(chan Event, queueSize),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *AsyncPublisher) CouponsEarned(_ context.Context, event Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	select {
	case p.events <- event:
		return nil
	default:
		p.log.Warn("dropping coupons earned event", zap.String("session_id", event.SessionID))
		return ErrQueueFull
	}
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for event := range p.events {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.next.CouponsEarned(ctx, event); err != nil {
			p.log.Warn("failed to deliver coupons earned event",
				zap.String("session_id", event.SessionID),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// Close stops accepting events and waits until the queue drains or ctx ends.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
