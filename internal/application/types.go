package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/packlane/fulfillment-service/internal/domain"
)

type Config struct {
	MaxManifestBytes   int64
	ImportGuardTTL     time.Duration
	AssignmentCacheTTL time.Duration
	TokenTTL           time.Duration
	ReportListLimit    int
}

// RowError describes one rejected manifest line. Row numbers are 1-based
// and count the header, so the first data row is row 2.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	ShipmentID   uuid.UUID  `json:"shipment_id"`
	ShipmentName string     `json:"shipment_name"`
	ItemCount    int        `json:"item_count"`
	Appended     bool       `json:"appended"`
	RowErrors    []RowError `json:"row_errors,omitempty"`
}

type CreateBoxRequest struct {
	ShipmentID uuid.UUID `json:"shipment_id"`
	Name       string    `json:"name"`
}

type AddBoxItemRequest struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
}

type BoxItemView struct {
	BoxItemID uuid.UUID `json:"box_item_id"`
	ItemID    uuid.UUID `json:"item_id"`
	SKU       string    `json:"sku"`
	FNSKU     string    `json:"fnsku"`
	Quantity  int       `json:"quantity"`
}

type BoxDetail struct {
	Box   domain.Box    `json:"box"`
	Items []BoxItemView `json:"items"`
}

type ShipmentDetail struct {
	Shipment domain.Shipment `json:"shipment"`
	Items    []domain.Item   `json:"items"`
	Boxes    []domain.Box    `json:"boxes"`
}

type ConcludeBoxResult struct {
	Box               domain.Box `json:"box"`
	ShipmentCompleted bool       `json:"shipment_completed"`
}

type CreateLinkRequest struct {
	ShipmentID uuid.UUID `json:"shipment_id"`
}

type AssignPackerRequest struct {
	PackerID uuid.UUID `json:"packer_id"`
}

type ReportResult struct {
	FileName    string              `json:"file_name"`
	Format      domain.ReportFormat `json:"format"`
	RecordCount int                 `json:"record_count"`
	FileSize    int                 `json:"file_size"`
	ShipmentID  uuid.UUID           `json:"shipment_id"`
	BoxID       *uuid.UUID          `json:"box_id,omitempty"`
	GeneratedAt time.Time           `json:"generated_at"`
}

type ReportFileInfo struct {
	FileName    string              `json:"file_name"`
	ShipmentID  uuid.UUID           `json:"shipment_id"`
	BoxID       *uuid.UUID          `json:"box_id,omitempty"`
	Format      domain.ReportFormat `json:"format"`
	GeneratedAt time.Time           `json:"generated_at"`
}

type ShipmentSummary struct {
	ShipmentID          uuid.UUID `json:"shipment_id"`
	ShipmentName        string    `json:"shipment_name"`
	TotalItems          int       `json:"total_items"`
	TotalQuantity       int       `json:"total_quantity"`
	BoxesCount          int       `json:"boxes_count"`
	ConcludedBoxesCount int       `json:"concluded_boxes_count"`
	GeneratedAt         time.Time `json:"generated_at"`
}

type ListQuery struct {
	Page  int
	Limit int
}
