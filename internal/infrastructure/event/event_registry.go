package event

import (
	"github.com/workshop/backend/internal/domain/billing"
	"github.com/workshop/backend/internal/domain/closing"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/domain/workshop"
)

type catalogEntry struct {
	family    string
	eventType string
	prototype shared.DomainEvent
}

// eventCatalog lists every event that goes through the outbox
var eventCatalog = []catalogEntry{
	{workshop.EventFamily, workshop.EventTypeOrderCreated, &workshop.OrderCreatedEvent{}},
	{workshop.EventFamily, workshop.EventTypeOrderStatusChanged, &workshop.OrderStatusChangedEvent{}},
	{workshop.EventFamily, workshop.EventTypeOrderMechanicAssigned, &workshop.OrderMechanicAssignedEvent{}},
	{workshop.EventFamily, workshop.EventTypeOrderDetailAdded, &workshop.OrderDetailAddedEvent{}},
	{workshop.EventFamily, workshop.EventTypeOrderDetailPriced, &workshop.OrderDetailPricedEvent{}},
	{workshop.EventFamily, workshop.EventTypeOrderDetailStatusChanged, &workshop.OrderDetailStatusChangedEvent{}},
	{workshop.EventFamily, workshop.EventTypeInspectionRecorded, &workshop.InspectionRecordedEvent{}},

	{billing.EventFamily, billing.EventTypePaymentRecorded, &billing.PaymentRecordedEvent{}},

	{closing.EventFamily, closing.EventTypeDailyClosed, &closing.DailyClosedEvent{}},
	{closing.EventFamily, closing.EventTypeMonthlyClosed, &closing.MonthlyClosedEvent{}},
}

var familyByAggregate = map[string]string{
	workshop.AggregateTypeOrder:         workshop.EventFamily,
	billing.AggregateTypePayment:        billing.EventFamily,
	closing.AggregateTypeDailyClosing:   closing.EventFamily,
	closing.AggregateTypeMonthlyClosing: closing.EventFamily,
}

// RegisterAllEvents registers every order, payment and closing event.
// Publishing a type missing here fails with ErrUnregisteredEvent.
func RegisterAllEvents(serializer *EventSerializer) {
	for _, e := range eventCatalog {
		serializer.Register(e.eventType, e.prototype)
	}
}

// FamilyOf resolves an event's family from the aggregate that raised it
func FamilyOf(event shared.DomainEvent) (string, bool) {
	family, ok := familyByAggregate[event.AggregateType()]
	return family, ok
}

// EventTypesOf returns the catalogued event types of one family
func EventTypesOf(family string) []string {
	var types []string
	for _, e := range eventCatalog {
		if e.family == family {
			types = append(types, e.eventType)
		}
	}
	return types
}
