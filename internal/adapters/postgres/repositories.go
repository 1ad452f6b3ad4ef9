package postgres

import (
	"github.com/packlane/fulfillment-service/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Shipments ports.ShipmentRepository
	Items     ports.ItemRepository
	Ledger    ports.LedgerRepository
	Boxes     ports.BoxRepository
	Links     ports.PickerLinkRepository
	Audit     ports.AuditRepository
	Outbox    ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Shipments: &shipmentRepository{db: db},
		Items:     &itemRepository{db: db},
		Ledger:    &ledgerRepository{db: db},
		Boxes:     &boxRepository{db: db},
		Links:     &pickerLinkRepository{db: db},
		Audit:     &auditRepository{db: db},
		Outbox:    &outboxRepository{db: db},
	}
}

func enqueueOutboxTx(tx *gorm.DB, event ports.OutboxEvent) error {
	payload := event.Payload
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	rec := outboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      string(payload),
		CreatedAt:    event.OccurredAt,
	}
	return tx.Create(&rec).Error
}
