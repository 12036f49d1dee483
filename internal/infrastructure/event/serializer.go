package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/workshop/backend/internal/domain/shared"
)

// ErrUnregisteredEvent is returned for event types the serializer does not know.
// The outbox refuses them at publish time because the relay could never decode them.
var ErrUnregisteredEvent = errors.New("unregistered event type")

// EventSerializer converts domain events to and from outbox payloads
type EventSerializer struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewEventSerializer creates an empty serializer; see RegisterAllEvents
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{types: make(map[string]reflect.Type)}
}

// Register binds an event type name to the Go type of prototype
func (s *EventSerializer) Register(eventType string, prototype shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[eventType] = structType(prototype)
}

// Serialize encodes event as JSON. The event type must be registered and
// bound to the event's own Go type.
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	want, ok := s.lookup(event.EventType())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnregisteredEvent, event.EventType())
	}
	if got := structType(event); got != want {
		return nil, fmt.Errorf("event %s is registered as %s, got %s", event.EventType(), want, got)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", event.EventType(), err)
	}
	return data, nil
}

// Deserialize decodes an outbox payload into a new event of the registered type
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	t, ok := s.lookup(eventType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnregisteredEvent, eventType)
	}

	ptr := reflect.New(t).Interface()
	if err := json.Unmarshal(data, ptr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", eventType, err)
	}
	event, ok := ptr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("%s does not implement DomainEvent", t)
	}
	return event, nil
}

// IsRegistered reports whether eventType can be serialized
func (s *EventSerializer) IsRegistered(eventType string) bool {
	_, ok := s.lookup(eventType)
	return ok
}

// RegisteredTypes returns the registered type names, sorted
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.types))
	for name := range s.types {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (s *EventSerializer) lookup(eventType string) (reflect.Type, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[eventType]
	return t, ok
}

func structType(v any) reflect.Type {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
