package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/workshop/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrBusStopped is returned by Publish once the bus has been stopped
var ErrBusStopped = errors.New("event bus stopped")

// InMemoryEventBus delivers outbox events to in-process handlers
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger

	mu       sync.RWMutex
	stopped  bool
	inFlight sync.WaitGroup
}

// NewInMemoryEventBus creates a bus that routes by event type and family
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Publish runs every subscribed handler synchronously. A failing handler
// does not stop the others; failures are joined so the outbox retries the entry.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	b.mu.RLock()
	if b.stopped {
		b.mu.RUnlock()
		return ErrBusStopped
	}
	b.inFlight.Add(1)
	b.mu.RUnlock()
	defer b.inFlight.Done()

	var errs []error
	for _, event := range events {
		family, _ := FamilyOf(event)
		for _, handler := range b.registry.HandlersFor(event) {
			if err := b.deliver(ctx, handler, event); err != nil {
				b.logger.Error("Event handler failed",
					zap.String("event_type", event.EventType()),
					zap.String("event_family", family),
					zap.String("event_id", event.EventID().String()),
					zap.Error(err),
				)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers handler under keys, or under handler.EventTypes()
// when no keys are given
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, keys ...string) {
	if len(keys) == 0 {
		keys = handler.EventTypes()
	}
	b.registry.Register(handler, keys...)

	resolved := make([]string, 0, len(keys))
	for _, key := range keys {
		if family, ok := shared.ParseFamilySubscription(key); ok {
			resolved = append(resolved, EventTypesOf(family)...)
			continue
		}
		resolved = append(resolved, key)
	}
	b.logger.Debug("Event handler subscribed",
		zap.String("handler", fmt.Sprintf("%T", handler)),
		zap.Strings("keys", keys),
		zap.Strings("event_types", resolved),
	)
}

// Unsubscribe removes every subscription of handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start opens the bus for publishing
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	b.stopped = false
	b.mu.Unlock()

	b.logger.Info("Event bus started", zap.Int("handlers", b.registry.Count()))
	return nil
}

// Stop rejects new publishes and waits for in-flight ones or ctx
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus stop: %w", ctx.Err())
	}
}

// deliver runs one handler, turning a panic into an error
func (b *InMemoryEventBus) deliver(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("handler %T panicked on %s: %v", handler, event.EventType(), r)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
