package shared

import (
	"context"
	"strings"
)

// EventHandler handles domain events
type EventHandler interface {
	// Handle processes a domain event
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes returns the event types this handler is interested in.
	// A FamilySubscription key matches every type of that family.
	// An empty slice means the handler receives all events.
	EventTypes() []string
}

const familySuffix = ".*"

// FamilySubscription returns the subscription key matching every event of
// one family, e.g. "closing.*"
func FamilySubscription(family string) string {
	return family + familySuffix
}

// ParseFamilySubscription returns the family named by a subscription key
func ParseFamilySubscription(key string) (string, bool) {
	family, ok := strings.CutSuffix(key, familySuffix)
	if !ok || family == "" {
		return "", false
	}
	return family, true
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber subscribes to domain events
type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus combines publisher and subscriber capabilities
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// OutboxWriter stores events in the outbox as part of the caller's transaction.
// Implementations are obtained from a transaction scope, never shared across transactions.
type OutboxWriter interface {
	Append(ctx context.Context, events ...DomainEvent) error
}
