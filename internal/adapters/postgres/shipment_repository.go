package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/packlane/fulfillment-service/internal/domain"
	"github.com/packlane/fulfillment-service/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type shipmentRepository struct {
	db *gorm.DB
}

// CreateWithItemsTx persists the shipment header, every manifest item and
// the import event in one transaction. Any failure rolls back the whole
// import; there is no partial shipment.
func (r *shipmentRepository) CreateWithItemsTx(ctx context.Context, params ports.CreateShipmentTxParams, outboxEvent ports.OutboxEvent) (domain.Shipment, error) {
	var result domain.Shipment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := shipmentModel{
			Name:      params.Name,
			ShipperID: params.ShipperID,
			Status:    string(domain.ShipmentStatusActive),
			CreatedAt: params.CreatedAt,
			UpdatedAt: params.CreatedAt,
		}
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}

		if err := insertItemsTx(tx, rec.ShipmentID, params.Items, params.CreatedAt); err != nil {
			return err
		}
		if err := enqueueOutboxTx(tx, outboxEvent); err != nil {
			return err
		}

		result = toDomainShipment(rec)
		return nil
	})
	if err != nil {
		return domain.Shipment{}, err
	}
	return result, nil
}

// AppendItemsTx adds manifest items to an existing shipment. The shipment
// row is locked so the active check and the inserts see one state.
func (r *shipmentRepository) AppendItemsTx(ctx context.Context, shipmentID uuid.UUID, items []ports.ImportItemParams, at time.Time, outboxEvent ports.OutboxEvent) (int, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec shipmentModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("shipment_id = ?", shipmentID).
			Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if rec.Status != string(domain.ShipmentStatusActive) {
			return fmt.Errorf("%w: shipment %s is %s", domain.ErrShipmentNotActive, rec.ShipmentID, rec.Status)
		}

		if err := insertItemsTx(tx, rec.ShipmentID, items, at); err != nil {
			return err
		}
		return enqueueOutboxTx(tx, outboxEvent)
	})
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (r *shipmentRepository) GetByID(ctx context.Context, shipmentID uuid.UUID) (domain.Shipment, error) {
	var rec shipmentModel
	if err := r.db.WithContext(ctx).Where("shipment_id = ?", shipmentID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Shipment{}, domain.ErrNotFound
		}
		return domain.Shipment{}, err
	}
	return toDomainShipment(rec), nil
}

func (r *shipmentRepository) List(ctx context.Context, shipperID *uuid.UUID, limit, offset int) ([]domain.Shipment, error) {
	query := r.db.WithContext(ctx).Model(&shipmentModel{})
	if shipperID != nil {
		query = query.Where("shipper_id = ?", *shipperID)
	}

	var rows []shipmentModel
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Shipment, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainShipment(row))
	}
	return result, nil
}

// CancelTx cancels a shipment that has not completed. The row lock keeps
// the state check and the flip atomic against a concurrent last-box
// conclusion.
func (r *shipmentRepository) CancelTx(ctx context.Context, shipmentID uuid.UUID, cancelledAt time.Time, outboxEvent ports.OutboxEvent) (domain.Shipment, error) {
	var result domain.Shipment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec shipmentModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("shipment_id = ?", shipmentID).
			Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		switch rec.Status {
		case string(domain.ShipmentStatusCompleted):
			return fmt.Errorf("%w: shipment %s already completed", domain.ErrConflict, rec.ShipmentID)
		case string(domain.ShipmentStatusCancelled):
			return fmt.Errorf("%w: shipment %s already cancelled", domain.ErrConflict, rec.ShipmentID)
		}

		if err := tx.Model(&shipmentModel{}).
			Where("shipment_id = ?", rec.ShipmentID).
			Updates(map[string]any{
				"status":     string(domain.ShipmentStatusCancelled),
				"updated_at": cancelledAt,
			}).Error; err != nil {
			return err
		}
		if err := enqueueOutboxTx(tx, outboxEvent); err != nil {
			return err
		}

		rec.Status = string(domain.ShipmentStatusCancelled)
		rec.UpdatedAt = cancelledAt
		result = toDomainShipment(rec)
		return nil
	})
	if err != nil {
		return domain.Shipment{}, err
	}
	return result, nil
}

func insertItemsTx(tx *gorm.DB, shipmentID uuid.UUID, items []ports.ImportItemParams, at time.Time) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: no items to persist", domain.ErrInvalidInput)
	}
	records := make([]itemModel, 0, len(items))
	for _, item := range items {
		records = append(records, itemModel{
			ShipmentID: shipmentID,
			SKU:        item.SKU,
			FNSKU:      item.FNSKU,
			ExternalID: item.ExternalID,
			Quantity:   item.Quantity,
			PickedQty:  0,
			CreatedAt:  at,
		})
	}
	return tx.Create(&records).Error
}

type itemRepository struct {
	db *gorm.DB
}

func (r *itemRepository) GetByID(ctx context.Context, itemID uuid.UUID) (domain.Item, error) {
	var rec itemModel
	if err := r.db.WithContext(ctx).Where("item_id = ?", itemID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Item{}, domain.ErrNotFound
		}
		return domain.Item{}, err
	}
	return toDomainItem(rec), nil
}

func (r *itemRepository) ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]domain.Item, error) {
	var rows []itemModel
	if err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("created_at ASC, item_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Item, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainItem(row))
	}
	return result, nil
}
