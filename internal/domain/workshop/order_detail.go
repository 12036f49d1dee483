package workshop

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/workshop/backend/internal/domain/shared"
)

const maxDescriptionLength = 500

// DetailStatus represents the work state of an order line
type DetailStatus string

const (
	DetailStatusPending    DetailStatus = "pending"
	DetailStatusInProgress DetailStatus = "in_progress"
	DetailStatusPaused     DetailStatus = "paused"
	DetailStatusDone       DetailStatus = "done"
)

// ParseDetailStatus parses a detail status name
func ParseDetailStatus(s string) (DetailStatus, error) {
	status := DetailStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", shared.NewFieldValidationError("status", "unknown detail status "+s)
	}
	return status, nil
}

// IsValid checks if the status is a valid DetailStatus
func (s DetailStatus) IsValid() bool {
	switch s {
	case DetailStatusPending, DetailStatusInProgress, DetailStatusPaused, DetailStatusDone:
		return true
	}
	return false
}

func (s DetailStatus) String() string {
	return string(s)
}

// CanTransitionTo checks the pending -> in_progress <-> paused, in_progress -> done graph
func (s DetailStatus) CanTransitionTo(target DetailStatus) bool {
	switch s {
	case DetailStatusPending:
		return target == DetailStatusInProgress
	case DetailStatusInProgress:
		return target == DetailStatusPaused || target == DetailStatusDone
	case DetailStatusPaused:
		return target == DetailStatusInProgress
	case DetailStatusDone:
		return false
	}
	return false
}

// Category classifies an order line
type Category string

const (
	CategoryService Category = "service"
	CategoryPart    Category = "part"
)

// ParseCategory parses a category, defaulting empty input to service
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return CategoryService, nil
	}
	if c != CategoryService && c != CategoryPart {
		return "", shared.NewFieldValidationError("category", "must be service or part")
	}
	return c, nil
}

// OrderDetail is one billable or trackable line of work within an Order.
// It is a child entity of the Order aggregate and is persisted with it.
type OrderDetail struct {
	ID               uuid.UUID
	OrderID          uuid.UUID
	Description      string
	Category         Category
	Price            *decimal.Decimal // nil until quoted
	CustomerSupplied bool
	CatalogServiceID *uuid.UUID
	Status           DetailStatus
	StartedAt        *time.Time
	CompletedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewDetailInput carries the data for a new order line
type NewDetailInput struct {
	Description      string
	Category         Category
	CustomerSupplied bool
	CatalogServiceID *uuid.UUID
	// Price is an optional initial quote, ignored for customer-supplied lines
	Price *decimal.Decimal
}

// NewOrderDetail creates a pending order line
func NewOrderDetail(orderID uuid.UUID, in NewDetailInput) (*OrderDetail, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, shared.NewFieldValidationError("description", "cannot be empty")
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return nil, shared.NewFieldValidationError("description", "cannot exceed 500 characters")
	}
	category := in.Category
	if category == "" {
		category = CategoryService
	}
	if category != CategoryService && category != CategoryPart {
		return nil, shared.NewFieldValidationError("category", "must be service or part")
	}

	var price *decimal.Decimal
	switch {
	case in.CustomerSupplied:
		zero := decimal.Zero
		price = &zero
	case in.Price != nil:
		if in.Price.IsNegative() {
			return nil, shared.NewFieldValidationError("price", "cannot be negative")
		}
		p := *in.Price
		price = &p
	}

	now := time.Now()
	return &OrderDetail{
		ID:               uuid.New(),
		OrderID:          orderID,
		Description:      description,
		Category:         category,
		Price:            price,
		CustomerSupplied: in.CustomerSupplied,
		CatalogServiceID: in.CatalogServiceID,
		Status:           DetailStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// SetPrice quotes the line. Customer-supplied lines are fixed at zero.
func (d *OrderDetail) SetPrice(price decimal.Decimal) error {
	if d.CustomerSupplied {
		return shared.NewPreconditionError("price of a customer-supplied item is fixed at zero").
			WithDetail("detail_id", d.ID.String())
	}
	if price.IsNegative() {
		return shared.NewFieldValidationError("price", "cannot be negative")
	}
	p := price
	d.Price = &p
	d.UpdatedAt = time.Now()
	return nil
}

// TransitionTo moves the line along its work graph.
// Re-entering the current state is a no-op and reports false.
func (d *OrderDetail) TransitionTo(target DetailStatus) (bool, error) {
	if !target.IsValid() {
		return false, shared.NewFieldValidationError("status", "unknown detail status "+string(target))
	}
	if d.Status == target {
		return false, nil
	}
	if !d.Status.CanTransitionTo(target) {
		return false, shared.NewInvalidTransitionError("order detail", string(d.Status), string(target))
	}

	now := time.Now()
	if target == DetailStatusInProgress && d.StartedAt == nil {
		d.StartedAt = &now
	}
	if target == DetailStatusDone {
		d.CompletedAt = &now
	}
	d.Status = target
	d.UpdatedAt = now
	return true, nil
}

// IsBillable reports whether the line counts toward the payable total
func (d *OrderDetail) IsBillable() bool {
	return !d.CustomerSupplied
}

// BillableAmount returns the price counted toward the total, zero when unquoted or customer-supplied
func (d *OrderDetail) BillableAmount() decimal.Decimal {
	if !d.IsBillable() || d.Price == nil {
		return decimal.Zero
	}
	return *d.Price
}

// IsDone reports whether the line reached its terminal state
func (d *OrderDetail) IsDone() bool {
	return d.Status == DetailStatusDone
}
