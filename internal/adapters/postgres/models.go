package postgres

import (
	"time"

	"github.com/google/uuid"
)

type shipmentModel struct {
	ShipmentID uuid.UUID `gorm:"column:shipment_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string    `gorm:"column:name"`
	ShipperID  uuid.UUID `gorm:"column:shipper_id"`
	Status     string    `gorm:"column:status"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (shipmentModel) TableName() string { return "shipments" }

type itemModel struct {
	ItemID     uuid.UUID `gorm:"column:item_id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShipmentID uuid.UUID `gorm:"column:shipment_id"`
	SKU        string    `gorm:"column:sku"`
	FNSKU      string    `gorm:"column:fnsku"`
	ExternalID string    `gorm:"column:external_id"`
	Quantity   int       `gorm:"column:quantity"`
	PickedQty  int       `gorm:"column:picked_qty"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (itemModel) TableName() string { return "items" }

type boxModel struct {
	BoxID       uuid.UUID  `gorm:"column:box_id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShipmentID  uuid.UUID  `gorm:"column:shipment_id"`
	Name        string     `gorm:"column:name"`
	Status      string     `gorm:"column:status"`
	ConcludedAt *time.Time `gorm:"column:concluded_at"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
}

func (boxModel) TableName() string { return "boxes" }

type boxItemModel struct {
	BoxItemID uuid.UUID `gorm:"column:box_item_id;type:uuid;default:gen_random_uuid();primaryKey"`
	BoxID     uuid.UUID `gorm:"column:box_id"`
	ItemID    uuid.UUID `gorm:"column:item_id"`
	Quantity  int       `gorm:"column:quantity"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (boxItemModel) TableName() string { return "box_items" }

type pickerLinkModel struct {
	LinkID     uuid.UUID  `gorm:"column:link_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Token      uuid.UUID  `gorm:"column:token;type:uuid"`
	ShipmentID uuid.UUID  `gorm:"column:shipment_id"`
	PackerID   *uuid.UUID `gorm:"column:packer_id"`
	IsActive   bool       `gorm:"column:is_active"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
}

func (pickerLinkModel) TableName() string { return "picker_links" }

type auditRecordModel struct {
	RecordID   uuid.UUID  `gorm:"column:record_id;type:uuid;primaryKey"`
	ActorID    string     `gorm:"column:actor_id"`
	ShipmentID *uuid.UUID `gorm:"column:shipment_id"`
	Action     string     `gorm:"column:action"`
	Details    string     `gorm:"column:details"`
	Level      string     `gorm:"column:level"`
	RecordedAt time.Time  `gorm:"column:recorded_at"`
}

func (auditRecordModel) TableName() string { return "audit_records" }

type outboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (outboxModel) TableName() string { return "fulfillment_outbox" }
