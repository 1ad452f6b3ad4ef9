package postgres

import (
	"errors"

	"github.com/packlane/fulfillment-service/internal/domain"
	"gorm.io/gorm"
)

func toDomainShipment(row shipmentModel) domain.Shipment {
	return domain.Shipment{
		ShipmentID: row.ShipmentID,
		Name:       row.Name,
		ShipperID:  row.ShipperID,
		Status:     domain.ShipmentStatus(row.Status),
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

func toDomainItem(row itemModel) domain.Item {
	return domain.Item{
		ItemID:     row.ItemID,
		ShipmentID: row.ShipmentID,
		SKU:        row.SKU,
		FNSKU:      row.FNSKU,
		ExternalID: row.ExternalID,
		Quantity:   row.Quantity,
		PickedQty:  row.PickedQty,
		CreatedAt:  row.CreatedAt,
	}
}

func toDomainBox(row boxModel) domain.Box {
	return domain.Box{
		BoxID:       row.BoxID,
		ShipmentID:  row.ShipmentID,
		Name:        row.Name,
		Status:      domain.BoxStatus(row.Status),
		ConcludedAt: row.ConcludedAt,
		CreatedAt:   row.CreatedAt,
	}
}

func toDomainBoxItem(row boxItemModel) domain.BoxItem {
	return domain.BoxItem{
		BoxItemID: row.BoxItemID,
		BoxID:     row.BoxID,
		ItemID:    row.ItemID,
		Quantity:  row.Quantity,
		CreatedAt: row.CreatedAt,
	}
}

func toDomainPickerLink(row pickerLinkModel) domain.PickerLink {
	return domain.PickerLink{
		LinkID:     row.LinkID,
		Token:      row.Token,
		ShipmentID: row.ShipmentID,
		PackerID:   row.PackerID,
		IsActive:   row.IsActive,
		CreatedAt:  row.CreatedAt,
	}
}

func toDomainAuditRecord(row auditRecordModel) domain.AuditRecord {
	return domain.AuditRecord{
		RecordID:   row.RecordID,
		ActorID:    row.ActorID,
		ShipmentID: row.ShipmentID,
		Action:     row.Action,
		Details:    row.Details,
		Level:      domain.AuditLevel(row.Level),
		RecordedAt: row.RecordedAt,
	}
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
