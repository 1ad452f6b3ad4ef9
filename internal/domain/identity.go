package domain

import "github.com/google/uuid"

// Identity is the resolved caller for one request. It is produced either
// from a signed session token or from an active picker link token, never
// constructed by handlers themselves.
type Identity struct {
	ActorID string
	Role    Role

	// AssignedShipmentID is set only for link-resolved packers and pins
	// the identity to the shipment its link belongs to.
	AssignedShipmentID *uuid.UUID

	// ViaLink marks identities resolved from a picker link token rather
	// than a session token.
	ViaLink bool
}

// Can reports whether this identity may perform the capability.
func (id Identity) Can(cap Capability) bool {
	return id.Role.Allows(cap)
}

// BoundTo reports whether the identity is restricted to a single
// shipment and, if so, whether shipmentID matches it.
func (id Identity) BoundTo(shipmentID uuid.UUID) bool {
	if id.AssignedShipmentID == nil {
		return true
	}
	return *id.AssignedShipmentID == shipmentID
}
