package event

import (
	"slices"
	"sync"

	"github.com/workshop/backend/internal/domain/shared"
)

// FamilyResolver maps an event to its family ("order", "payment", "closing").
// ok is false for events outside every family.
type FamilyResolver func(event shared.DomainEvent) (family string, ok bool)

// HandlerRegistry routes events to subscribers. A handler is subscribed by
// exact event type, by family key ("closing.*") or to everything.
type HandlerRegistry struct {
	mu       sync.RWMutex
	familyOf FamilyResolver
	byType   map[string][]shared.EventHandler
	byFamily map[string][]shared.EventHandler
	catchAll []shared.EventHandler
}

// NewHandlerRegistry creates a registry that resolves families with FamilyOf
func NewHandlerRegistry() *HandlerRegistry {
	return NewHandlerRegistryWithResolver(FamilyOf)
}

// NewHandlerRegistryWithResolver creates a registry with a custom family resolver
func NewHandlerRegistryWithResolver(familyOf FamilyResolver) *HandlerRegistry {
	if familyOf == nil {
		familyOf = func(shared.DomainEvent) (string, bool) { return "", false }
	}
	return &HandlerRegistry{
		familyOf: familyOf,
		byType:   make(map[string][]shared.EventHandler),
		byFamily: make(map[string][]shared.EventHandler),
	}
}

// Register subscribes handler to each key. Keys are event types or
// shared.FamilySubscription values; no keys means every event.
func (r *HandlerRegistry) Register(handler shared.EventHandler, keys ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(keys) == 0 {
		r.catchAll = appendOnce(r.catchAll, handler)
		return
	}
	for _, key := range keys {
		if family, ok := shared.ParseFamilySubscription(key); ok {
			r.byFamily[family] = appendOnce(r.byFamily[family], handler)
			continue
		}
		r.byType[key] = appendOnce(r.byType[key], handler)
	}
}

// Unregister drops every subscription of handler
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.catchAll = without(r.catchAll, handler)
	pruneSubscriptions(r.byType, handler)
	pruneSubscriptions(r.byFamily, handler)
}

// HandlersFor returns the handlers an event is delivered to, each once, in
// the order: exact type, family, catch-all
func (r *HandlerRegistry) HandlersFor(event shared.DomainEvent) []shared.EventHandler {
	family, inFamily := r.familyOf(event)

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]shared.EventHandler, 0, len(r.byType[event.EventType()])+len(r.catchAll))
	for _, h := range r.byType[event.EventType()] {
		result = appendOnce(result, h)
	}
	if inFamily {
		for _, h := range r.byFamily[family] {
			result = appendOnce(result, h)
		}
	}
	for _, h := range r.catchAll {
		result = appendOnce(result, h)
	}
	return result
}

// Count returns how many distinct handlers are subscribed
func (r *HandlerRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var distinct []shared.EventHandler
	for _, h := range r.catchAll {
		distinct = appendOnce(distinct, h)
	}
	for _, subs := range []map[string][]shared.EventHandler{r.byType, r.byFamily} {
		for _, handlers := range subs {
			for _, h := range handlers {
				distinct = appendOnce(distinct, h)
			}
		}
	}
	return len(distinct)
}

func appendOnce(handlers []shared.EventHandler, h shared.EventHandler) []shared.EventHandler {
	if slices.Contains(handlers, h) {
		return handlers
	}
	return append(handlers, h)
}

func without(handlers []shared.EventHandler, target shared.EventHandler) []shared.EventHandler {
	return slices.DeleteFunc(slices.Clone(handlers), func(h shared.EventHandler) bool { return h == target })
}

func pruneSubscriptions(subs map[string][]shared.EventHandler, target shared.EventHandler) {
	for key, handlers := range subs {
		if rest := without(handlers, target); len(rest) > 0 {
			subs[key] = rest
		} else {
			delete(subs, key)
		}
	}
}
