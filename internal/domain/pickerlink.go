package domain

import (
	"time"

	"github.com/google/uuid"
)

// PickerLink grants bearer-token style access to a single shipment.
// Deactivation is a soft state flip, never a delete, so audit history
// referencing the link stays queryable.
type PickerLink struct {
	LinkID     uuid.UUID
	Token      uuid.UUID
	ShipmentID uuid.UUID
	PackerID   *uuid.UUID
	IsActive   bool
	CreatedAt  time.Time
}

// AuditLevel classifies audit records the way the log sinks expect.
type AuditLevel string

const (
	AuditLevelInfo    AuditLevel = "INFO"
	AuditLevelWarning AuditLevel = "WARNING"
	AuditLevelError   AuditLevel = "ERROR"
)

// AuditRecord is one fulfillment action trail entry.
// ShipmentID is optional because some actions (listing, link lookups) have no target shipment.
type AuditRecord struct {
	RecordID   uuid.UUID
	ActorID    string
	ShipmentID *uuid.UUID
	Action     string
	Details    string
	Level      AuditLevel
	RecordedAt time.Time
}
