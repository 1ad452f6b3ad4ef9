package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/packlane/fulfillment-service/internal/domain"
)

// ImportItemParams is one validated manifest line ready for persistence.
type ImportItemParams struct {
	SKU        string
	FNSKU      string
	ExternalID string
	Quantity   int
}

// CreateShipmentTxParams captures atomic shipment-import inputs.
// Items and the shipment header commit together or not at all.
type CreateShipmentTxParams struct {
	Name      string
	ShipperID uuid.UUID
	Items     []ImportItemParams
	CreatedAt time.Time
}

// ShipmentRepository defines persistence operations for shipments.
// The transactional methods exist to enforce shipment+items+outbox consistency.
type ShipmentRepository interface {
	CreateWithItemsTx(ctx context.Context, params CreateShipmentTxParams, outboxEvent OutboxEvent) (domain.Shipment, error)
	AppendItemsTx(ctx context.Context, shipmentID uuid.UUID, items []ImportItemParams, at time.Time, outboxEvent OutboxEvent) (int, error)
	GetByID(ctx context.Context, shipmentID uuid.UUID) (domain.Shipment, error)
	List(ctx context.Context, shipperID *uuid.UUID, limit, offset int) ([]domain.Shipment, error)
	CancelTx(ctx context.Context, shipmentID uuid.UUID, cancelledAt time.Time, outboxEvent OutboxEvent) (domain.Shipment, error)
}

// ItemRepository reads manifest items. All quantity mutation goes through
// LedgerRepository so the picked-quantity invariant has a single owner.
type ItemRepository interface {
	GetByID(ctx context.Context, itemID uuid.UUID) (domain.Item, error)
	ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]domain.Item, error)
}

// ReserveParams captures one pick operation against an item.
type ReserveParams struct {
	BoxID    uuid.UUID
	ItemID   uuid.UUID
	Quantity int
	At       time.Time
}

// LedgerRepository owns the picked-quantity ledger. Reserve and Release
// run read-check-write inside one transaction with the item row locked,
// so concurrent picks against the same item serialize instead of overselling.
type LedgerRepository interface {
	Reserve(ctx context.Context, params ReserveParams) (domain.BoxItem, error)
	Release(ctx context.Context, boxItemID uuid.UUID, at time.Time) (domain.BoxItem, error)
}

// BoxRepository manages box lifecycle state. ConcludeTx flips the box,
// evaluates "all boxes concluded" in the same transaction, and enqueues
// the matching outbox event; it reports whether the shipment completed.
type BoxRepository interface {
	Create(ctx context.Context, shipmentID uuid.UUID, name string, createdAt time.Time) (domain.Box, error)
	GetByID(ctx context.Context, boxID uuid.UUID) (domain.Box, error)
	ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]domain.Box, error)
	ListItems(ctx context.Context, boxID uuid.UUID) ([]domain.BoxItem, error)
	ConcludeTx(ctx context.Context, boxID uuid.UUID, concludedAt time.Time, boxEvent, completionEvent OutboxEvent) (domain.Box, bool, error)
}

// PickerLinkRepository manages shareable shipment access tokens.
// Deactivation is a soft flag so link history stays queryable.
type PickerLinkRepository interface {
	Create(ctx context.Context, shipmentID uuid.UUID, token uuid.UUID, createdAt time.Time) (domain.PickerLink, error)
	GetByID(ctx context.Context, linkID uuid.UUID) (domain.PickerLink, error)
	GetActiveByToken(ctx context.Context, token uuid.UUID) (domain.PickerLink, error)
	List(ctx context.Context, shipmentID *uuid.UUID, limit, offset int) ([]domain.PickerLink, error)
	Deactivate(ctx context.Context, linkID uuid.UUID) error
	AssignPackerTx(ctx context.Context, linkID, packerID uuid.UUID, outboxEvent OutboxEvent) (domain.PickerLink, error)
	NewestActiveForPacker(ctx context.Context, packerID uuid.UUID) (domain.PickerLink, error)
}

// AuditRepository stores fulfillment audit records.
// Writes are best-effort from the caller's point of view.
type AuditRepository interface {
	Insert(ctx context.Context, record domain.AuditRecord) error
	ListByShipment(ctx context.Context, shipmentID uuid.UUID, limit, offset int) ([]domain.AuditRecord, error)
}

// OutboxEvent is the write-side event payload prior to storage.
// It is adapter-neutral to keep application code independent of broker specifics.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls publish-retry workflow for domain events.
// Enqueueing happens inside the repository Tx methods, so this contract
// only covers the worker side: claim, publish, retry bookkeeping.
type OutboxRepository interface {
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}
