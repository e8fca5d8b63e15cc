package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/garyjia/expense-approval/internal/domain/event"
)

// ErrClosed is returned when publishing on a closed dispatcher
var ErrClosed = errors.New("dispatcher is closed")

// Dispatcher fans claim events out to subscribed handlers
type Dispatcher interface {
	// Subscribe registers a named handler for an event type
	Subscribe(eventType event.Type, name string, handler Handler)

	// PublishAsync runs the handlers in the background. Handler errors are logged.
	// The handlers do not inherit the cancellation of ctx.
	PublishAsync(ctx context.Context, evt *event.Event)

	// Subscribers returns the handler names registered for an event type
	Subscribers(eventType event.Type) []string

	// Close stops accepting events and waits for running handlers
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type eventDispatcher struct {
	mu            sync.RWMutex
	subscriptions map[event.Type][]subscription
	logger        Logger

	// lifecycle orders wg.Add in PublishAsync against wg.Wait in Close
	lifecycle sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		subscriptions: make(map[event.Type][]subscription),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *eventDispatcher) Subscribe(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if name == "" {
		name = fmt.Sprintf("%s#%d", eventType, len(d.subscriptions[eventType]))
	}
	d.subscriptions[eventType] = append(d.subscriptions[eventType], subscription{name: name, handler: handler})

	d.logInfo("Handler subscribed", "event_type", eventType, "handler", name)
}

func (d *eventDispatcher) PublishAsync(ctx context.Context, evt *event.Event) {
	d.lifecycle.RLock()
	defer d.lifecycle.RUnlock()

	if d.closed {
		d.logError("Event dropped, dispatcher is closed", "event_type", evt.Type, "claim_id", evt.ClaimID)
		return
	}

	subs := d.snapshot(evt.Type)
	if len(subs) == 0 {
		return
	}

	detached := context.WithoutCancel(ctx)
	d.wg.Add(len(subs))
	for _, sub := range subs {
		go func(s subscription) {
			defer d.wg.Done()
			_ = d.run(detached, evt, s)
		}(sub)
	}
}

func (d *eventDispatcher) Subscribers(eventType event.Type) []string {
	subs := d.snapshot(eventType)
	names := make([]string, len(subs))
	for i, s := range subs {
		names[i] = s.name
	}
	return names
}

func (d *eventDispatcher) Close() error {
	d.lifecycle.Lock()
	if d.closed {
		d.lifecycle.Unlock()
		return ErrClosed
	}
	d.closed = true
	d.lifecycle.Unlock()

	d.wg.Wait()
	d.logInfo("Dispatcher closed")
	return nil
}

func (d *eventDispatcher) snapshot(eventType event.Type) []subscription {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]subscription(nil), d.subscriptions[eventType]...)
}

// run executes one handler, turning a panic into an error
func (d *eventDispatcher) run(ctx context.Context, evt *event.Event, sub subscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
		if err != nil {
			d.logError("Event handler failed",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"claim_id", evt.ClaimID,
				"handler", sub.name,
				"error", err,
			)
		}
	}()
	return sub.handler(ctx, evt)
}

func (d *eventDispatcher) logInfo(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Info(msg, kv...)
	}
}

func (d *eventDispatcher) logError(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Error(msg, kv...)
	}
}
