package workshop

import (
	"strings"

	"github.com/google/uuid"
	"github.com/workshop/backend/internal/domain/shared"
)

// Rating is a condition answer on the intake checklist.
// RatingUnknown marks an item the inspector did not answer.
type Rating string

const (
	RatingGood    Rating = "good"
	RatingFair    Rating = "fair"
	RatingPoor    Rating = "poor"
	RatingUnknown Rating = "unknown"
)

// IsValid checks if the rating is a known value
func (r Rating) IsValid() bool {
	switch r {
	case RatingGood, RatingFair, RatingPoor, RatingUnknown:
		return true
	}
	return false
}

// Transmission of the vehicle
type Transmission string

const (
	TransmissionManual    Transmission = "manual"
	TransmissionAutomatic Transmission = "automatic"
)

// FuelType of the vehicle
type FuelType string

const (
	FuelGasoline FuelType = "gasoline"
	FuelDiesel   FuelType = "diesel"
	FuelHybrid   FuelType = "hybrid"
	FuelElectric FuelType = "electric"
	FuelGas      FuelType = "gas"
)

// Origin tells whether the vehicle is nationally registered or imported
type Origin string

const (
	OriginNational Origin = "national"
	OriginImported Origin = "imported"
)

// Documents flags the paperwork handed over at intake
type Documents struct {
	Invoice          bool `json:"invoice"`
	RegistrationCard bool `json:"registration_card"`
	OwnerID          bool `json:"owner_id"`
	EmissionsCheck   bool `json:"emissions_check"`
	Insurance        bool `json:"insurance"`
}

// ExteriorCondition rates the body of the vehicle
type ExteriorCondition struct {
	Paint         Rating `json:"paint"`
	Headlights    Rating `json:"headlights"`
	Taillights    Rating `json:"taillights"`
	Tires         Rating `json:"tires"`
	SpareTire     Rating `json:"spare_tire"`
	VisibleDamage bool   `json:"visible_damage"`
	DamageNotes   string `json:"damage_notes,omitempty"`
}

// InteriorCondition rates the cabin
type InteriorCondition struct {
	Seats           Rating `json:"seats"`
	Dashboard       Rating `json:"dashboard"`
	AirConditioning Rating `json:"air_conditioning"`
	Odors           string `json:"odors,omitempty"`
}

// MechanicalCondition rates the drivetrain at a glance
type MechanicalCondition struct {
	Engine     Rating `json:"engine"`
	Brakes     Rating `json:"brakes"`
	OilLevels  Rating `json:"oil_levels"`
	FluidLeaks bool   `json:"fluid_leaks"`
}

// Accessories counts loose items left with the vehicle
type Accessories struct {
	KeyCount  int  `json:"key_count"`
	Jack      bool `json:"jack"`
	LugWrench bool `json:"lug_wrench"`
}

// Checklist holds the structured intake answers
type Checklist struct {
	Transmission    Transmission        `json:"transmission"`
	FuelType        FuelType            `json:"fuel_type"`
	Doors           int                 `json:"doors"`
	Origin          Origin              `json:"origin"`
	Mileage         int                 `json:"mileage"`
	FuelLevel       int                 `json:"fuel_level"`
	Documents       Documents           `json:"documents"`
	Exterior        ExteriorCondition   `json:"exterior"`
	Interior        InteriorCondition   `json:"interior"`
	Mechanical      MechanicalCondition `json:"mechanical"`
	Accessories     Accessories         `json:"accessories"`
	AestheticNotes  string              `json:"aesthetic_notes,omitempty"`
	MechanicalNotes string              `json:"mechanical_notes,omitempty"`
	ResponsibleName string              `json:"responsible_name"`
}

// Normalize fills unanswered items. Vehicle facts take neutral defaults;
// condition ratings become RatingUnknown rather than an assumed good state.
func (c *Checklist) Normalize() {
	if c.Transmission == "" {
		c.Transmission = TransmissionManual
	}
	if c.FuelType == "" {
		c.FuelType = FuelGasoline
	}
	if c.Doors == 0 {
		c.Doors = 4
	}
	if c.Origin == "" {
		c.Origin = OriginNational
	}
	if c.Accessories.KeyCount == 0 {
		c.Accessories.KeyCount = 1
	}
	for _, r := range c.ratings() {
		if *r == "" {
			*r = RatingUnknown
		}
	}
	c.ResponsibleName = strings.TrimSpace(c.ResponsibleName)
}

// Validate checks required answers and enumerations
func (c *Checklist) Validate() error {
	if c.ResponsibleName == "" {
		return shared.NewFieldValidationError("responsible_name", "is required")
	}
	if err := validateGauges(c.Mileage, c.FuelLevel); err != nil {
		return err
	}
	switch c.Transmission {
	case TransmissionManual, TransmissionAutomatic:
	default:
		return shared.NewFieldValidationError("transmission", "must be manual or automatic")
	}
	switch c.FuelType {
	case FuelGasoline, FuelDiesel, FuelHybrid, FuelElectric, FuelGas:
	default:
		return shared.NewFieldValidationError("fuel_type", "unknown fuel type "+string(c.FuelType))
	}
	switch c.Origin {
	case OriginNational, OriginImported:
	default:
		return shared.NewFieldValidationError("origin", "must be national or imported")
	}
	if c.Doors < 0 || c.Doors > 8 {
		return shared.NewFieldValidationError("doors", "must be between 0 and 8")
	}
	if c.Accessories.KeyCount < 0 {
		return shared.NewFieldValidationError("key_count", "cannot be negative")
	}
	for _, r := range c.ratings() {
		if !r.IsValid() {
			return shared.NewFieldValidationError("rating", "unknown rating "+string(*r))
		}
	}
	return nil
}

// MapText rewrites every free-text answer with fn
func (c *Checklist) MapText(fn func(string) string) {
	c.Exterior.DamageNotes = fn(c.Exterior.DamageNotes)
	c.Interior.Odors = fn(c.Interior.Odors)
	c.AestheticNotes = fn(c.AestheticNotes)
	c.MechanicalNotes = fn(c.MechanicalNotes)
	c.ResponsibleName = fn(c.ResponsibleName)
}

// UnknownItems counts ratings left unanswered
func (c *Checklist) UnknownItems() int {
	n := 0
	for _, r := range c.ratings() {
		if *r == RatingUnknown {
			n++
		}
	}
	return n
}

func (c *Checklist) ratings() []*Rating {
	return []*Rating{
		&c.Exterior.Paint, &c.Exterior.Headlights, &c.Exterior.Taillights,
		&c.Exterior.Tires, &c.Exterior.SpareTire,
		&c.Interior.Seats, &c.Interior.Dashboard, &c.Interior.AirConditioning,
		&c.Mechanical.Engine, &c.Mechanical.Brakes, &c.Mechanical.OilLevels,
	}
}

// Inspection is the one-time intake record of a vehicle's condition.
// It is immutable once created.
type Inspection struct {
	shared.BaseEntity
	OrderID           uuid.UUID
	Checklist         Checklist
	SignatureAccepted bool
	RecordedBy        uuid.UUID
}

// NewInspection normalizes and validates the checklist
func NewInspection(orderID uuid.UUID, checklist Checklist, signatureAccepted bool, recordedBy uuid.UUID) (*Inspection, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewFieldValidationError("order_id", "cannot be empty")
	}
	checklist.Normalize()
	if err := checklist.Validate(); err != nil {
		return nil, err
	}
	return &Inspection{
		BaseEntity:        shared.NewBaseEntity(),
		OrderID:           orderID,
		Checklist:         checklist,
		SignatureAccepted: signatureAccepted,
		RecordedBy:        recordedBy,
	}, nil
}
