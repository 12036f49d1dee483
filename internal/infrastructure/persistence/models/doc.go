// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel and the versioned AggregateModel
//   - workshop.go: orders, order details, inspections, folio sequences
//   - directory.go: customers, vehicles, catalog services
//   - billing.go: payments
//   - closing.go: daily and monthly closings
//   - audit.go: audit entries
//   - outbox.go: outbox pattern model for event delivery
//   - all.go: the model list used for SQLite schemas
package models
