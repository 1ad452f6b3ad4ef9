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

type boxRepository struct {
	db *gorm.DB
}

func (r *boxRepository) Create(ctx context.Context, shipmentID uuid.UUID, name string, createdAt time.Time) (domain.Box, error) {
	rec := boxModel{
		ShipmentID: shipmentID,
		Name:       name,
		Status:     string(domain.BoxStatusOpen),
		CreatedAt:  createdAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Box{}, err
	}
	return toDomainBox(rec), nil
}

func (r *boxRepository) GetByID(ctx context.Context, boxID uuid.UUID) (domain.Box, error) {
	var rec boxModel
	if err := r.db.WithContext(ctx).Where("box_id = ?", boxID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Box{}, domain.ErrNotFound
		}
		return domain.Box{}, err
	}
	return toDomainBox(rec), nil
}

func (r *boxRepository) ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]domain.Box, error) {
	var rows []boxModel
	if err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("created_at ASC, box_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Box, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainBox(row))
	}
	return result, nil
}

func (r *boxRepository) ListItems(ctx context.Context, boxID uuid.UUID) ([]domain.BoxItem, error) {
	var rows []boxItemModel
	if err := r.db.WithContext(ctx).
		Where("box_id = ?", boxID).
		Order("created_at ASC, box_item_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.BoxItem, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainBoxItem(row))
	}
	return result, nil
}

// ConcludeTx finalizes a box and, when it was the last open box of its
// shipment, promotes the shipment to COMPLETED. The shipment row is
// locked first so concurrent conclusions of sibling boxes evaluate the
// "all boxes concluded" count against a consistent snapshot. Events go
// to the outbox in the same transaction; actual publishing happens after
// commit and cannot roll the conclusion back.
func (r *boxRepository) ConcludeTx(ctx context.Context, boxID uuid.UUID, concludedAt time.Time, boxEvent, completionEvent ports.OutboxEvent) (domain.Box, bool, error) {
	var (
		result    boxModel
		completed bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var box boxModel
		if err := tx.Where("box_id = ?", boxID).Take(&box).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		var shipment shipmentModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("shipment_id = ?", box.ShipmentID).
			Take(&shipment).Error; err != nil {
			return err
		}

		// Re-read under the shipment lock; a sibling transaction may have
		// concluded this box in the meantime.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("box_id = ?", boxID).
			Take(&box).Error; err != nil {
			return err
		}
		if box.Status == string(domain.BoxStatusConcluded) {
			return fmt.Errorf("%w: box %s", domain.ErrBoxAlreadyConcluded, box.Name)
		}

		if err := tx.Model(&boxModel{}).
			Where("box_id = ?", box.BoxID).
			Updates(map[string]any{
				"status":       string(domain.BoxStatusConcluded),
				"concluded_at": concludedAt,
			}).Error; err != nil {
			return err
		}

		var openCount int64
		if err := tx.Model(&boxModel{}).
			Where("shipment_id = ?", box.ShipmentID).
			Where("status <> ?", string(domain.BoxStatusConcluded)).
			Count(&openCount).Error; err != nil {
			return err
		}
		completed = openCount == 0 && shipment.Status == string(domain.ShipmentStatusActive)

		if completed {
			if err := tx.Model(&shipmentModel{}).
				Where("shipment_id = ?", shipment.ShipmentID).
				Updates(map[string]any{
					"status":     string(domain.ShipmentStatusCompleted),
					"updated_at": concludedAt,
				}).Error; err != nil {
				return err
			}
		}

		if err := enqueueOutboxTx(tx, boxEvent); err != nil {
			return err
		}
		if completed {
			if err := enqueueOutboxTx(tx, completionEvent); err != nil {
				return err
			}
		}

		box.Status = string(domain.BoxStatusConcluded)
		box.ConcludedAt = &concludedAt
		result = box
		return nil
	})
	if err != nil {
		return domain.Box{}, false, err
	}
	return toDomainBox(result), completed, nil
}
