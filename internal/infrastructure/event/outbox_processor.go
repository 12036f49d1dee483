package event

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// OutboxProcessorConfig tunes the relay loop and the retention sweep
type OutboxProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultOutboxProcessorConfig relays every 5s and keeps sent entries a week
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// NewOutboxProcessorConfig maps the [outbox] config section onto the processor
func NewOutboxProcessorConfig(cfg config.OutboxConfig) OutboxProcessorConfig {
	c := DefaultOutboxProcessorConfig()
	if cfg.BatchSize > 0 {
		c.BatchSize = cfg.BatchSize
	}
	if cfg.PollInterval > 0 {
		c.PollInterval = cfg.PollInterval
	}
	c.CleanupEnabled = cfg.CleanupEnabled
	if cfg.CleanupRetention > 0 {
		c.CleanupRetention = cfg.CleanupRetention
	}
	return c
}

// ErrProcessorRunning is returned by Start on a processor already started
var ErrProcessorRunning = errors.New("outbox processor already running")

// BatchResult counts the outcome of one relay pass
type BatchResult struct {
	Sent    int
	Retried int
	Dead    int
}

// Total is the number of entries the pass touched
func (r BatchResult) Total() int {
	return r.Sent + r.Retried + r.Dead
}

type relayOutcome int

const (
	relaySent relayOutcome = iota
	relayRetry
	relayDead
)

// OutboxProcessor relays committed outbox entries to the event bus, oldest first
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	eventBus   shared.EventBus
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutboxProcessor creates a stopped processor
func NewOutboxProcessor(
	repo shared.OutboxRepository,
	eventBus shared.EventBus,
	serializer *EventSerializer,
	cfg OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxProcessor{
		repo:       repo,
		eventBus:   eventBus,
		serializer: serializer,
		config:     cfg,
		logger:     logger,
	}
}

// Start relays whatever is pending right away, then polls
func (p *OutboxProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return ErrProcessorRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.every(ctx, p.config.PollInterval, true, func(ctx context.Context) { p.ProcessOnce(ctx) })
	if p.config.CleanupEnabled {
		p.wg.Add(1)
		go p.every(ctx, p.config.CleanupInterval, false, p.cleanup)
	}

	p.logger.Info("Outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Bool("cleanup_enabled", p.config.CleanupEnabled),
	)
	return nil
}

// Stop cancels the loops and waits for the current pass or ctx. Safe to
// call on a processor that never started.
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) every(ctx context.Context, interval time.Duration, now bool, fn func(context.Context)) {
	defer p.wg.Done()

	if now {
		fn(ctx)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// ProcessOnce claims one batch of pending and due entries and relays it
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) BatchResult {
	var result BatchResult

	pending, err := p.repo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.Error("Failed to load pending outbox entries", zap.Error(err))
		return result
	}
	due, err := p.repo.FindRetryable(ctx, time.Now(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("Failed to load retryable outbox entries", zap.Error(err))
		return result
	}

	batch := commitOrder(pending, due)
	if len(batch) == 0 {
		return result
	}

	ids := make([]uuid.UUID, len(batch))
	for i, e := range batch {
		ids[i] = e.ID
	}
	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		p.logger.Error("Failed to claim outbox entries", zap.Error(err))
		return result
	}

	for _, entry := range commitOrder(claimed) {
		switch p.relay(ctx, entry) {
		case relaySent:
			result.Sent++
		case relayRetry:
			result.Retried++
		case relayDead:
			result.Dead++
		}
	}

	if result.Total() > 0 {
		p.logger.Info("Outbox batch relayed",
			zap.Int("sent", result.Sent),
			zap.Int("retried", result.Retried),
			zap.Int("dead", result.Dead),
		)
	}
	return result
}

// commitOrder merges entry lists oldest first, dropping repeated IDs
func commitOrder(lists ...[]*shared.OutboxEntry) []*shared.OutboxEntry {
	seen := make(map[uuid.UUID]bool)
	var merged []*shared.OutboxEntry
	for _, list := range lists {
		for _, e := range list {
			if !seen[e.ID] {
				seen[e.ID] = true
				merged = append(merged, e)
			}
		}
	}
	slices.SortStableFunc(merged, func(a, b *shared.OutboxEntry) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return merged
}

func (p *OutboxProcessor) relay(ctx context.Context, entry *shared.OutboxEntry) relayOutcome {
	family := familyByAggregate[entry.AggregateType]
	log := p.logger.With(
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.String("event_family", family),
	)

	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if errors.Is(err, ErrUnregisteredEvent) {
		// No retry can decode it
		entry.MarkDead(err.Error())
		log.Error("Outbox entry has an unregistered event type, dead-lettered")
		p.save(ctx, entry, log)
		return relayDead
	}
	if err != nil {
		log.Error("Failed to decode outbox entry", zap.Error(err))
		return p.fail(ctx, entry, err, log)
	}

	if err := p.eventBus.Publish(ctx, event); err != nil {
		log.Warn("Event delivery failed", zap.Int("attempt", entry.RetryCount+1), zap.Error(err))
		return p.fail(ctx, entry, err, log)
	}

	entry.MarkSent()
	p.save(ctx, entry, log)
	log.Debug("Event relayed")
	return relaySent
}

// fail spends one retry; the entry is dead-lettered once the budget is gone
func (p *OutboxProcessor) fail(ctx context.Context, entry *shared.OutboxEntry, cause error, log *zap.Logger) relayOutcome {
	entry.MarkFailed(cause.Error())
	p.save(ctx, entry, log)
	if entry.IsDead() {
		log.Warn("Event moved to dead letter queue",
			zap.String("aggregate_id", entry.AggregateID.String()),
			zap.Int("retry_count", entry.RetryCount),
			zap.String("last_error", entry.LastError),
		)
		return relayDead
	}
	return relayRetry
}

func (p *OutboxProcessor) save(ctx context.Context, entry *shared.OutboxEntry, log *zap.Logger) {
	if err := p.repo.Update(ctx, entry); err != nil {
		log.Error("Failed to update outbox entry",
			zap.String("status", string(entry.Status)),
			zap.Error(err),
		)
	}
}

func (p *OutboxProcessor) cleanup(ctx context.Context) {
	cutoff := time.Now().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error("Failed to purge sent outbox entries", zap.Error(err))
		return
	}
	if deleted > 0 {
		p.logger.Info("Purged sent outbox entries",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
}
