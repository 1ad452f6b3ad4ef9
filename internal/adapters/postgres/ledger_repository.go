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

type ledgerRepository struct {
	db *gorm.DB
}

// Reserve picks a quantity of an item into a box. The item row is locked
// for the whole read-check-write cycle, so two concurrent reservations
// against the same item serialize and cannot jointly exceed the required
// quantity. Requesting exactly the remaining amount succeeds; one more
// fails without applying anything.
func (r *ledgerRepository) Reserve(ctx context.Context, params ports.ReserveParams) (domain.BoxItem, error) {
	if params.Quantity <= 0 {
		return domain.BoxItem{}, fmt.Errorf("%w: quantity must be positive", domain.ErrInsufficientQuantity)
	}

	var result boxItemModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var box boxModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("box_id = ?", params.BoxID).
			Take(&box).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if box.Status != string(domain.BoxStatusOpen) {
			return fmt.Errorf("%w: box %s is %s", domain.ErrBoxNotOpen, box.Name, box.Status)
		}

		var item itemModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("item_id = ?", params.ItemID).
			Take(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		available := item.Quantity - item.PickedQty
		if params.Quantity > available {
			return fmt.Errorf("%w: requested %d, available %d", domain.ErrInsufficientQuantity, params.Quantity, available)
		}

		// One association per (box, item); repeated picks accumulate.
		var assoc boxItemModel
		findErr := tx.Where("box_id = ?", params.BoxID).
			Where("item_id = ?", params.ItemID).
			Take(&assoc).Error
		switch {
		case findErr == nil:
			if err := tx.Model(&boxItemModel{}).
				Where("box_item_id = ?", assoc.BoxItemID).
				Update("quantity", gorm.Expr("quantity + ?", params.Quantity)).Error; err != nil {
				return err
			}
			assoc.Quantity += params.Quantity
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			assoc = boxItemModel{
				BoxID:     params.BoxID,
				ItemID:    params.ItemID,
				Quantity:  params.Quantity,
				CreatedAt: params.At,
			}
			if err := tx.Create(&assoc).Error; err != nil {
				return err
			}
		default:
			return findErr
		}

		if err := tx.Model(&itemModel{}).
			Where("item_id = ?", params.ItemID).
			Update("picked_qty", gorm.Expr("picked_qty + ?", params.Quantity)).Error; err != nil {
			return err
		}

		result = assoc
		return nil
	})
	if err != nil {
		return domain.BoxItem{}, err
	}
	return toDomainBoxItem(result), nil
}

// Release removes an association from an open box and returns its
// quantity to the item, inside the same transaction that verifies the
// owning box is still open.
func (r *ledgerRepository) Release(ctx context.Context, boxItemID uuid.UUID, at time.Time) (domain.BoxItem, error) {
	var result boxItemModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Resolve the owning box without a lock, then take locks in the
		// same box -> box_item order Reserve uses.
		var assoc boxItemModel
		if err := tx.Where("box_item_id = ?", boxItemID).
			Take(&assoc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		var box boxModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("box_id = ?", assoc.BoxID).
			Take(&box).Error; err != nil {
			return err
		}
		if box.Status != string(domain.BoxStatusOpen) {
			return fmt.Errorf("%w: box %s is concluded", domain.ErrBoxAlreadyConcluded, box.Name)
		}

		// Re-take the association under lock; it may have been released
		// while waiting on the box.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("box_item_id = ?", boxItemID).
			Take(&assoc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		if err := tx.Model(&itemModel{}).
			Where("item_id = ?", assoc.ItemID).
			Update("picked_qty", gorm.Expr("picked_qty - ?", assoc.Quantity)).Error; err != nil {
			return err
		}
		if err := tx.Where("box_item_id = ?", assoc.BoxItemID).Delete(&boxItemModel{}).Error; err != nil {
			return err
		}

		result = assoc
		return nil
	})
	if err != nil {
		return domain.BoxItem{}, err
	}
	return toDomainBoxItem(result), nil
}
