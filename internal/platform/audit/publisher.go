package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Publisher decouples event emission from the sink. In the default
// synchronous mode Emit appends inline; with WithAsyncBuffer a worker drains
// a bounded channel and Emit never blocks the request path. When the buffer
// is full the event is dropped and counted in the log, not the request.
type Publisher struct {
	store  Store
	logger *slog.Logger

	buffer chan Event
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

type PublisherOption func(*Publisher)

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithAsyncBuffer switches the publisher to asynchronous delivery with the
// given channel capacity.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		p.buffer = make(chan Event, size)
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an event, stamping ID and timestamp if unset. Asynchronous
// mode drops when the buffer is full; the caller never waits.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if p.buffer == nil {
		p.append(ctx, event)
		return
	}

	select {
	case p.buffer <- event:
	default:
		p.logger.WarnContext(ctx, "audit buffer full, event dropped",
			"action", event.Action,
			"event_id", event.ID,
		)
	}
}

// Close stops the worker after draining buffered events. Safe to call on a
// synchronous publisher and safe to call more than once.
func (p *Publisher) Close() {
	p.once.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for {
		select {
		case event := <-p.buffer:
			p.append(context.Background(), event)
		case <-p.done:
			for {
				select {
				case event := <-p.buffer:
					p.append(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) append(ctx context.Context, event Event) {
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "audit append failed",
			"action", event.Action,
			"event_id", event.ID,
			"error", err,
		)
	}
}
