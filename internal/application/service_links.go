package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/packlane/fulfillment-service/internal/domain"
	"github.com/packlane/fulfillment-service/internal/ports"
)

// CreatePickerLink mints a shareable access token for one shipment.
func (s *Service) CreatePickerLink(ctx context.Context, identity domain.Identity, req CreateLinkRequest) (domain.PickerLink, error) {
	if err := requireCapability(identity, domain.CapManageLinks); err != nil {
		return domain.PickerLink{}, err
	}
	if err := requireShipmentAccess(identity, req.ShipmentID); err != nil {
		return domain.PickerLink{}, err
	}

	shipment, err := s.shipments.GetByID(ctx, req.ShipmentID)
	if err != nil {
		return domain.PickerLink{}, err
	}
	if !shipment.IsActive() {
		return domain.PickerLink{}, fmt.Errorf("%w: shipment %s is %s", domain.ErrShipmentNotActive, shipment.ShipmentID, shipment.Status)
	}

	link, err := s.links.Create(ctx, shipment.ShipmentID, uuid.New(), s.nowFn())
	if err != nil {
		return domain.PickerLink{}, err
	}
	s.recordAudit(ctx, identity, &shipment.ShipmentID, "PICKER_LINK_CREATED",
		fmt.Sprintf("Created picker link for shipment %s", shipment.Name), domain.AuditLevelInfo)
	return link, nil
}

// ListPickerLinks lists links, optionally filtered to one shipment.
// Inactive links stay visible; deactivation is a flag, not a delete.
func (s *Service) ListPickerLinks(ctx context.Context, identity domain.Identity, shipmentID *uuid.UUID, q ListQuery) ([]domain.PickerLink, error) {
	if err := requireCapability(identity, domain.CapManageLinks); err != nil {
		return nil, err
	}
	limit, offset := clampQuery(q)
	return s.links.List(ctx, shipmentID, limit, offset)
}

// DeactivatePickerLink soft-deletes a link and evicts its cached
// resolution so the token stops working immediately.
func (s *Service) DeactivatePickerLink(ctx context.Context, identity domain.Identity, linkID uuid.UUID) error {
	if err := requireCapability(identity, domain.CapManageLinks); err != nil {
		return err
	}
	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return err
	}
	if err := requireShipmentAccess(identity, link.ShipmentID); err != nil {
		return err
	}

	if err := s.links.Deactivate(ctx, link.LinkID); err != nil {
		return err
	}
	_ = s.assignments.Invalidate(ctx, link.Token)

	s.recordAudit(ctx, identity, &link.ShipmentID, "PICKER_LINK_DEACTIVATED",
		fmt.Sprintf("Deactivated picker link %s", link.LinkID), domain.AuditLevelInfo)
	return nil
}

// AssignPacker attaches a packer to a link and announces the assignment.
func (s *Service) AssignPacker(ctx context.Context, identity domain.Identity, linkID uuid.UUID, req AssignPackerRequest) (domain.PickerLink, error) {
	if err := requireCapability(identity, domain.CapManageLinks); err != nil {
		return domain.PickerLink{}, err
	}
	if req.PackerID == uuid.Nil {
		return domain.PickerLink{}, fmt.Errorf("%w: packer id is required", domain.ErrInvalidInput)
	}
	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return domain.PickerLink{}, err
	}
	if err := requireShipmentAccess(identity, link.ShipmentID); err != nil {
		return domain.PickerLink{}, err
	}
	if !link.IsActive {
		return domain.PickerLink{}, fmt.Errorf("%w: link %s is inactive", domain.ErrConflict, link.LinkID)
	}

	now := s.nowFn()
	payload, _ := json.Marshal(map[string]any{
		"link_id":     link.LinkID,
		"shipment_id": link.ShipmentID,
		"packer_id":   req.PackerID,
		"assigned_at": now,
	})
	updated, err := s.links.AssignPackerTx(ctx, link.LinkID, req.PackerID, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "picker.assigned",
		PartitionKey: link.ShipmentID.String(),
		Payload:      payload,
		OccurredAt:   now,
	})
	if err != nil {
		return domain.PickerLink{}, err
	}
	_ = s.assignments.Invalidate(ctx, link.Token)

	s.recordAudit(ctx, identity, &link.ShipmentID, "PACKER_ASSIGNED",
		fmt.Sprintf("Assigned packer %s to link %s", req.PackerID, link.LinkID), domain.AuditLevelInfo)
	return updated, nil
}
