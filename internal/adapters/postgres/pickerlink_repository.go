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

type pickerLinkRepository struct {
	db *gorm.DB
}

func (r *pickerLinkRepository) Create(ctx context.Context, shipmentID uuid.UUID, token uuid.UUID, createdAt time.Time) (domain.PickerLink, error) {
	rec := pickerLinkModel{
		Token:      token,
		ShipmentID: shipmentID,
		IsActive:   true,
		CreatedAt:  createdAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.PickerLink{}, domain.ErrConflict
		}
		return domain.PickerLink{}, err
	}
	return toDomainPickerLink(rec), nil
}

func (r *pickerLinkRepository) GetByID(ctx context.Context, linkID uuid.UUID) (domain.PickerLink, error) {
	var rec pickerLinkModel
	if err := r.db.WithContext(ctx).Where("link_id = ?", linkID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.PickerLink{}, domain.ErrNotFound
		}
		return domain.PickerLink{}, err
	}
	return toDomainPickerLink(rec), nil
}

func (r *pickerLinkRepository) GetActiveByToken(ctx context.Context, token uuid.UUID) (domain.PickerLink, error) {
	var rec pickerLinkModel
	if err := r.db.WithContext(ctx).
		Where("token = ?", token).
		Where("is_active = TRUE").
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.PickerLink{}, domain.ErrNotFound
		}
		return domain.PickerLink{}, err
	}
	return toDomainPickerLink(rec), nil
}

func (r *pickerLinkRepository) List(ctx context.Context, shipmentID *uuid.UUID, limit, offset int) ([]domain.PickerLink, error) {
	query := r.db.WithContext(ctx).Model(&pickerLinkModel{})
	if shipmentID != nil {
		query = query.Where("shipment_id = ?", *shipmentID)
	}

	var rows []pickerLinkModel
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.PickerLink, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainPickerLink(row))
	}
	return result, nil
}

// Deactivate flips the active flag. The row survives for audit history.
func (r *pickerLinkRepository) Deactivate(ctx context.Context, linkID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&pickerLinkModel{}).
		Where("link_id = ?", linkID).
		Where("is_active = TRUE").
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := r.db.WithContext(ctx).Model(&pickerLinkModel{}).Where("link_id = ?", linkID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrNotFound
		}
	}
	return nil
}

func (r *pickerLinkRepository) AssignPackerTx(ctx context.Context, linkID, packerID uuid.UUID, outboxEvent ports.OutboxEvent) (domain.PickerLink, error) {
	var result pickerLinkModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec pickerLinkModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("link_id = ?", linkID).
			Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if !rec.IsActive {
			return fmt.Errorf("%w: link %s is inactive", domain.ErrConflict, rec.LinkID)
		}

		if err := tx.Model(&pickerLinkModel{}).
			Where("link_id = ?", rec.LinkID).
			Update("packer_id", packerID).Error; err != nil {
			return err
		}
		if err := enqueueOutboxTx(tx, outboxEvent); err != nil {
			return err
		}

		rec.PackerID = &packerID
		result = rec
		return nil
	})
	if err != nil {
		return domain.PickerLink{}, err
	}
	return toDomainPickerLink(result), nil
}

func (r *pickerLinkRepository) NewestActiveForPacker(ctx context.Context, packerID uuid.UUID) (domain.PickerLink, error) {
	var rec pickerLinkModel
	if err := r.db.WithContext(ctx).
		Where("packer_id = ?", packerID).
		Where("is_active = TRUE").
		Order("created_at DESC").
		First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.PickerLink{}, domain.ErrNotFound
		}
		return domain.PickerLink{}, err
	}
	return toDomainPickerLink(rec), nil
}

type auditRepository struct {
	db *gorm.DB
}

func (r *auditRepository) Insert(ctx context.Context, record domain.AuditRecord) error {
	rec := auditRecordModel{
		RecordID:   record.RecordID,
		ActorID:    record.ActorID,
		ShipmentID: record.ShipmentID,
		Action:     record.Action,
		Details:    record.Details,
		Level:      string(record.Level),
		RecordedAt: record.RecordedAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *auditRepository) ListByShipment(ctx context.Context, shipmentID uuid.UUID, limit, offset int) ([]domain.AuditRecord, error) {
	var rows []auditRecordModel
	if err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("recorded_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.AuditRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainAuditRecord(row))
	}
	return result, nil
}
