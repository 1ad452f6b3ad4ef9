package domain

import (
	"time"

	"github.com/google/uuid"
)

// ShipmentStatus is the closed set of shipment lifecycle states.
type ShipmentStatus string

const (
	ShipmentStatusActive    ShipmentStatus = "ACTIVE"
	ShipmentStatusCompleted ShipmentStatus = "COMPLETED"
	ShipmentStatusCancelled ShipmentStatus = "CANCELLED"
)

// BoxStatus has exactly one transition: OPEN -> CONCLUDED.
type BoxStatus string

const (
	BoxStatusOpen      BoxStatus = "OPEN"
	BoxStatusConcluded BoxStatus = "CONCLUDED"
)

// Shipment is the aggregate root of the fulfillment graph.
// Items and Boxes are owned by it and never outlive it.
type Shipment struct {
	ShipmentID uuid.UUID
	Name       string
	ShipperID  uuid.UUID
	Status     ShipmentStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (s Shipment) IsActive() bool { return s.Status == ShipmentStatusActive }

// Item is one manifest line with a required quantity.
// PickedQty is derived state: it must always equal the sum of this item's
// BoxItem quantities, and only the quantity ledger may move it.
type Item struct {
	ItemID     uuid.UUID
	ShipmentID uuid.UUID
	SKU        string
	FNSKU      string
	ExternalID string
	Quantity   int
	PickedQty  int
	CreatedAt  time.Time
}

// Remaining is the quantity still available for reservation.
// Never negative while the ledger invariant holds.
func (i Item) Remaining() int { return i.Quantity - i.PickedQty }

func (i Item) IsFullyPicked() bool { return i.Remaining() == 0 }

// Box is a physical container being packed under a shipment.
// Once concluded its contents are immutable and reportable.
type Box struct {
	BoxID       uuid.UUID
	ShipmentID  uuid.UUID
	Name        string
	Status      BoxStatus
	ConcludedAt *time.Time
	CreatedAt   time.Time
}

func (b Box) IsOpen() bool { return b.Status == BoxStatusOpen }

// BoxItem records how many units of one item went into one box.
// There is at most one row per (box, item); repeated picks add to Quantity.
type BoxItem struct {
	BoxItemID uuid.UUID
	BoxID     uuid.UUID
	ItemID    uuid.UUID
	Quantity  int
	CreatedAt time.Time
}
