// Package publisher fans audit events out to a Store and any number of Sinks.
// In async mode events are queued and written by a background worker that
// drains on Close.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	id "rekam/pkg/domain"
	audit "rekam/pkg/platform/audit"
	"rekam/pkg/requestcontext"
)

var (
	// ErrClosed is returned by Emit after Close.
	ErrClosed = errors.New("audit publisher closed")
	// ErrQueueFull is returned by Emit in async mode when the buffer is full.
	// The event is dropped.
	ErrQueueFull = errors.New("audit queue full")
)

// Store is the persistence Publisher writes to and lists from.
type Store interface {
	audit.Store
	audit.Reader
}

// Publisher captures structured audit events.
type Publisher struct {
	store  Store
	sinks  []audit.Sink
	logger *slog.Logger

	queue  chan queued
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

type queued struct {
	ctx   context.Context
	event audit.Event
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer queues events for a background worker, up to n at a time.
// Emit never blocks; once the queue is full events are dropped with ErrQueueFull.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.queue = make(chan queued, n)
		}
	}
}

// WithSink adds a downstream sink (e.g. Kafka).
func WithSink(sink audit.Sink) Option {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

// WithLogger sets a logger for sink failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.queue != nil {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit enriches event from the request context and records it.
// In sync mode store failures are returned; sink failures are only logged.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	event = enrich(ctx, event)

	if p.queue == nil {
		return p.write(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	// Detach from request cancellation; the worker outlives the request.
	select {
	case p.queue <- queued{ctx: context.WithoutCancel(ctx), event: event}:
		return nil
	default:
		return ErrQueueFull
	}
}

func enrich(ctx context.Context, event audit.Event) audit.Event {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.UserAgent == "" {
		event.UserAgent = requestcontext.UserAgent(ctx)
	}
	return event
}

func (p *Publisher) write(ctx context.Context, event audit.Event) error {
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			p.logger.WarnContext(ctx, "audit sink publish failed",
				"action", event.Action,
				"subject", event.Subject,
				"error", err,
			)
		}
	}
	return nil
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for item := range p.queue {
		if err := p.write(item.ctx, item.event); err != nil {
			p.logger.ErrorContext(item.ctx, "audit append failed",
				"action", item.event.Action,
				"subject", item.event.Subject,
				"error", err,
			)
		}
	}
}

// List returns the most recent events performed by userID.
func (p *Publisher) List(ctx context.Context, userID id.UserID, limit int) ([]audit.Event, error) {
	return p.store.ListByUser(ctx, userID, limit)
}

// ListRecent returns the most recent events across all users.
func (p *Publisher) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	return p.store.ListRecent(ctx, limit)
}

// Close stops accepting events and waits for queued ones to be written.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.queue != nil {
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(10 * time.Second):
		return errors.New("timed out draining audit queue")
	}
}
