package shared

import "time"

// BaseAggregateRoot is embedded by orders, payments and closings. Version
// starts at 1; repositories compare it on update and bump it on success.
// Events recorded by the aggregate wait here until the service drains them
// into the outbox of the same transaction.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
	pending []DomainEvent
}

func NewBaseAggregateRoot() BaseAggregateRoot {
	return NewBaseAggregateRootAt(time.Now())
}

func NewBaseAggregateRootAt(at time.Time) BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntityAt(at), Version: 1}
}

// RecordEvent queues an event for the outbox
func (a *BaseAggregateRoot) RecordEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// PendingEvents returns the recorded events without draining them
func (a *BaseAggregateRoot) PendingEvents() []DomainEvent {
	return a.pending
}

// PullDomainEvents drains the recorded events
func (a *BaseAggregateRoot) PullDomainEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}
