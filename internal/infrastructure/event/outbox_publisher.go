package event

import (
	"context"
	"fmt"

	"github.com/workshop/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher stages domain events as outbox rows in the caller's transaction
type OutboxPublisher struct {
	serializer *EventSerializer
	maxRetries int
}

func NewOutboxPublisher(serializer *EventSerializer) *OutboxPublisher {
	return &OutboxPublisher{
		serializer: serializer,
		maxRetries: shared.DefaultOutboxMaxRetries,
	}
}

// SetMaxRetries sets the delivery attempts given to new entries; n <= 0 is ignored
func (p *OutboxPublisher) SetMaxRetries(n int) {
	if n > 0 {
		p.maxRetries = n
	}
}

// Stage serializes every event into an outbox entry. Nothing is returned
// unless all of them encode, so an unregistered event rejects the whole batch.
func (p *OutboxPublisher) Stage(events ...shared.DomainEvent) ([]*shared.OutboxEntry, error) {
	entries := make([]*shared.OutboxEntry, 0, len(events))
	for i, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return nil, fmt.Errorf("outbox event %d of %d: %w", i+1, len(events), err)
		}
		entry := shared.NewOutboxEntry(event, payload)
		entry.Family, _ = FamilyOf(event)
		entry.MaxRetries = p.maxRetries
		entries = append(entries, entry)
	}
	return entries, nil
}

// PublishWithTx writes the events through tx, committing or rolling back
// with the aggregate rows written in the same transaction
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	entries, err := p.Stage(events...)
	if err != nil {
		return err
	}
	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}
