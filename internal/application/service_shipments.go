package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/packlane/fulfillment-service/internal/domain"
	"github.com/packlane/fulfillment-service/internal/ports"
)

// ListShipments returns shipments visible to the caller. Shippers see
// their own, admins see all, link-bound packers see the assigned one.
func (s *Service) ListShipments(ctx context.Context, identity domain.Identity, q ListQuery) ([]domain.Shipment, error) {
	if err := requireCapability(identity, domain.CapViewShipment); err != nil {
		return nil, err
	}

	if identity.AssignedShipmentID != nil {
		shipment, err := s.shipments.GetByID(ctx, *identity.AssignedShipmentID)
		if err != nil {
			return nil, err
		}
		return []domain.Shipment{shipment}, nil
	}

	limit, offset := clampQuery(q)
	var shipperID *uuid.UUID
	if identity.Role == domain.RoleShipper {
		id, err := uuid.Parse(identity.ActorID)
		if err != nil {
			return nil, fmt.Errorf("%w: actor id is not a shipper id", domain.ErrInvalidInput)
		}
		shipperID = &id
	}
	return s.shipments.List(ctx, shipperID, limit, offset)
}

// GetShipment returns one shipment with its items and boxes.
func (s *Service) GetShipment(ctx context.Context, identity domain.Identity, shipmentID uuid.UUID) (ShipmentDetail, error) {
	if err := requireCapability(identity, domain.CapViewShipment); err != nil {
		return ShipmentDetail{}, err
	}
	if err := requireShipmentAccess(identity, shipmentID); err != nil {
		return ShipmentDetail{}, err
	}

	shipment, err := s.shipments.GetByID(ctx, shipmentID)
	if err != nil {
		return ShipmentDetail{}, err
	}
	items, err := s.items.ListByShipment(ctx, shipmentID)
	if err != nil {
		return ShipmentDetail{}, err
	}
	boxes, err := s.boxes.ListByShipment(ctx, shipmentID)
	if err != nil {
		return ShipmentDetail{}, err
	}
	return ShipmentDetail{Shipment: shipment, Items: items, Boxes: boxes}, nil
}

// ListShipmentLog returns the audit trail of a shipment, newest first.
func (s *Service) ListShipmentLog(ctx context.Context, identity domain.Identity, shipmentID uuid.UUID, q ListQuery) ([]domain.AuditRecord, error) {
	if err := requireCapability(identity, domain.CapViewAuditLog); err != nil {
		return nil, err
	}
	if err := requireShipmentAccess(identity, shipmentID); err != nil {
		return nil, err
	}
	if _, err := s.shipments.GetByID(ctx, shipmentID); err != nil {
		return nil, err
	}

	limit, offset := clampQuery(q)
	return s.audit.ListByShipment(ctx, shipmentID, limit, offset)
}

// CancelShipment cancels a shipment that has not yet completed.
func (s *Service) CancelShipment(ctx context.Context, identity domain.Identity, shipmentID uuid.UUID) (domain.Shipment, error) {
	if err := requireCapability(identity, domain.CapCancelShipment); err != nil {
		return domain.Shipment{}, err
	}
	if err := requireShipmentAccess(identity, shipmentID); err != nil {
		return domain.Shipment{}, err
	}

	now := s.nowFn()
	payload, _ := json.Marshal(map[string]any{
		"shipment_id":  shipmentID,
		"cancelled_by": identity.ActorID,
		"cancelled_at": now,
	})
	shipment, err := s.shipments.CancelTx(ctx, shipmentID, now, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "shipment.cancelled",
		PartitionKey: shipmentID.String(),
		Payload:      payload,
		OccurredAt:   now,
	})
	if err != nil {
		return domain.Shipment{}, err
	}

	s.recordAudit(ctx, identity, &shipmentID, "SHIPMENT_CANCELLED",
		fmt.Sprintf("Cancelled shipment %s", shipment.Name), domain.AuditLevelWarning)
	return shipment, nil
}
