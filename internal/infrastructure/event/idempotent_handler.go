package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/workshop/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotencyStats is a snapshot of IdempotencyMetrics
type IdempotencyStats struct {
	EventsProcessed int64                  `json:"events_processed"`
	EventsDuplicate int64                  `json:"events_duplicate"`
	EventsFailed    int64                  `json:"events_failed"`
	Families        map[string]FamilyStats `json:"families,omitempty"`
}

// FamilyStats counts outcomes for one event family
type FamilyStats struct {
	Processed int64 `json:"processed"`
	Duplicate int64 `json:"duplicate"`
	Failed    int64 `json:"failed"`
}

// IdempotencyMetrics counts handler outcomes in total and per event family.
// Events without a family are counted under "other".
type IdempotencyMetrics struct {
	mu       sync.Mutex
	families map[string]*FamilyStats
}

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeDuplicate
	outcomeFailed
)

func (m *IdempotencyMetrics) record(event shared.DomainEvent, o outcome) {
	family, ok := FamilyOf(event)
	if !ok {
		family = "other"
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.families == nil {
		m.families = make(map[string]*FamilyStats)
	}
	s, ok := m.families[family]
	if !ok {
		s = &FamilyStats{}
		m.families[family] = s
	}
	switch o {
	case outcomeProcessed:
		s.Processed++
	case outcomeDuplicate:
		s.Duplicate++
	case outcomeFailed:
		s.Failed++
	}
}

// Stats returns totals and a copy of the per-family counters
func (m *IdempotencyMetrics) Stats() IdempotencyStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := IdempotencyStats{Families: make(map[string]FamilyStats, len(m.families))}
	for family, s := range m.families {
		stats.Families[family] = *s
		stats.EventsProcessed += s.Processed
		stats.EventsDuplicate += s.Duplicate
		stats.EventsFailed += s.Failed
	}
	return stats
}

// GlobalIdempotencyMetrics is shared by the handlers the server wraps and
// logged on shutdown
var GlobalIdempotencyMetrics = &IdempotencyMetrics{}

// namedHandler lets a handler choose its idempotency namespace
type namedHandler interface {
	Name() string
}

// keyReleaser is implemented by stores that can forget a key early
type keyReleaser interface {
	Release(ctx context.Context, key string) error
}

// IdempotentHandler runs the wrapped handler at most once per event. Keys are
// namespaced by consumer, so two handlers receiving the same event both run.
type IdempotentHandler struct {
	handler  shared.EventHandler
	consumer string
	store    shared.IdempotencyStore
	config   shared.IdempotencyConfig
	logger   *zap.Logger
	metrics  *IdempotencyMetrics
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

func WithIdempotencyMetrics(metrics *IdempotencyMetrics) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.metrics = metrics
	}
}

// NewIdempotentHandler wraps handler. The consumer name is handler.Name()
// when it has one, else its Go type.
func NewIdempotentHandler(
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	consumer := fmt.Sprintf("%T", handler)
	if n, ok := handler.(namedHandler); ok && n.Name() != "" {
		consumer = n.Name()
	}

	h := &IdempotentHandler{
		handler:  handler,
		consumer: consumer,
		store:    store,
		config:   shared.DefaultIdempotencyConfig(),
		logger:   logger.With(zap.String("consumer", consumer)),
		metrics:  &IdempotencyMetrics{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Key is the store key for event under this consumer
func (h *IdempotentHandler) Key(event shared.DomainEvent) string {
	return h.consumer + ":" + event.EventID().String()
}

// Handle claims the key, runs the handler and releases the key again when
// the handler fails so the outbox retry is not swallowed. A store error does
// not block delivery.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, event)
	}

	key := h.Key(event)
	log := h.logger.With(
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
	)

	fresh, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	switch {
	case err != nil:
		log.Warn("Idempotency store unavailable, handling anyway", zap.Error(err))
	case !fresh:
		h.metrics.record(event, outcomeDuplicate)
		log.Debug("Duplicate event skipped")
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		h.metrics.record(event, outcomeFailed)
		if r, ok := h.store.(keyReleaser); ok {
			if relErr := r.Release(ctx, key); relErr != nil {
				log.Warn("Failed to release idempotency key", zap.Error(relErr))
			}
		}
		return err
	}

	h.metrics.record(event, outcomeProcessed)
	return nil
}

func (h *IdempotentHandler) Unwrap() shared.EventHandler {
	return h.handler
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)

// WrapHandlersWithIdempotency wraps each handler with the same store and options
func WrapHandlersWithIdempotency(
	handlers []shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) []shared.EventHandler {
	wrapped := make([]shared.EventHandler, len(handlers))
	for i, h := range handlers {
		wrapped[i] = NewIdempotentHandler(h, store, logger, opts...)
	}
	return wrapped
}
