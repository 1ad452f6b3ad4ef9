package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/packlane/fulfillment-service/internal/domain"
	"github.com/packlane/fulfillment-service/internal/ports"
)

// CreateBox opens a new box under an active shipment.
func (s *Service) CreateBox(ctx context.Context, identity domain.Identity, req CreateBoxRequest) (domain.Box, error) {
	if err := requireCapability(identity, domain.CapManageBoxes); err != nil {
		return domain.Box{}, err
	}
	if err := requireShipmentAccess(identity, req.ShipmentID); err != nil {
		return domain.Box{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Box{}, fmt.Errorf("%w: box name is required", domain.ErrInvalidInput)
	}

	shipment, err := s.shipments.GetByID(ctx, req.ShipmentID)
	if err != nil {
		return domain.Box{}, err
	}
	if !shipment.IsActive() {
		return domain.Box{}, fmt.Errorf("%w: shipment %s is %s", domain.ErrShipmentNotActive, shipment.ShipmentID, shipment.Status)
	}

	box, err := s.boxes.Create(ctx, shipment.ShipmentID, name, s.nowFn())
	if err != nil {
		return domain.Box{}, err
	}
	s.recordAudit(ctx, identity, &shipment.ShipmentID, "BOX_CREATED",
		fmt.Sprintf("Created box %s", box.Name), domain.AuditLevelInfo)
	return box, nil
}

// GetBox returns a box with its item associations resolved to SKUs.
func (s *Service) GetBox(ctx context.Context, identity domain.Identity, boxID uuid.UUID) (BoxDetail, error) {
	box, err := s.boxes.GetByID(ctx, boxID)
	if err != nil {
		return BoxDetail{}, err
	}
	if err := requireShipmentAccess(identity, box.ShipmentID); err != nil {
		return BoxDetail{}, err
	}
	views, err := s.boxItemViews(ctx, box)
	if err != nil {
		return BoxDetail{}, err
	}
	return BoxDetail{Box: box, Items: views}, nil
}

// ListBoxes returns the boxes of one shipment.
func (s *Service) ListBoxes(ctx context.Context, identity domain.Identity, shipmentID uuid.UUID) ([]domain.Box, error) {
	if err := requireShipmentAccess(identity, shipmentID); err != nil {
		return nil, err
	}
	return s.boxes.ListByShipment(ctx, shipmentID)
}

// AddBoxItem places a quantity of an item into an open box. The pick is
// a ledger reservation: it fails whole if the remaining quantity is too
// small, and repeated picks of the same item into the same box accumulate
// onto one association.
func (s *Service) AddBoxItem(ctx context.Context, identity domain.Identity, boxID uuid.UUID, req AddBoxItemRequest) (domain.BoxItem, error) {
	if err := requireCapability(identity, domain.CapManageBoxes); err != nil {
		return domain.BoxItem{}, err
	}
	if req.Quantity <= 0 {
		return domain.BoxItem{}, fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidInput)
	}

	box, err := s.boxes.GetByID(ctx, boxID)
	if err != nil {
		return domain.BoxItem{}, err
	}
	if err := requireShipmentAccess(identity, box.ShipmentID); err != nil {
		return domain.BoxItem{}, err
	}
	item, err := s.items.GetByID(ctx, req.ItemID)
	if err != nil {
		return domain.BoxItem{}, err
	}
	if item.ShipmentID != box.ShipmentID {
		return domain.BoxItem{}, fmt.Errorf("%w: item belongs to a different shipment", domain.ErrInvalidInput)
	}

	boxItem, err := s.ledger.Reserve(ctx, ports.ReserveParams{
		BoxID:    box.BoxID,
		ItemID:   item.ItemID,
		Quantity: req.Quantity,
		At:       s.nowFn(),
	})
	if err != nil {
		return domain.BoxItem{}, err
	}

	s.recordAudit(ctx, identity, &box.ShipmentID, "BOX_ITEM_ADDED",
		fmt.Sprintf("Added %d x %s to box %s", req.Quantity, item.SKU, box.Name), domain.AuditLevelInfo)
	return boxItem, nil
}

// RemoveBoxItem removes an association from an open box and returns the
// reserved quantity to the item.
func (s *Service) RemoveBoxItem(ctx context.Context, identity domain.Identity, boxID, boxItemID uuid.UUID) error {
	if err := requireCapability(identity, domain.CapManageBoxes); err != nil {
		return err
	}
	box, err := s.boxes.GetByID(ctx, boxID)
	if err != nil {
		return err
	}
	if err := requireShipmentAccess(identity, box.ShipmentID); err != nil {
		return err
	}

	released, err := s.ledger.Release(ctx, boxItemID, s.nowFn())
	if err != nil {
		return err
	}
	if released.BoxID != box.BoxID {
		// The association was real but belongs elsewhere; report it the
		// same way as an unknown id.
		return domain.ErrNotFound
	}

	s.recordAudit(ctx, identity, &box.ShipmentID, "BOX_ITEM_REMOVED",
		fmt.Sprintf("Removed %d units from box %s", released.Quantity, box.Name), domain.AuditLevelInfo)
	return nil
}

// ConcludeBox finalizes a box. When the last open box of a shipment
// concludes, the shipment is promoted to COMPLETED in the same
// transaction; the matching event is enqueued to the outbox and published
// after commit, so publish failures never undo a conclusion.
func (s *Service) ConcludeBox(ctx context.Context, identity domain.Identity, boxID uuid.UUID) (ConcludeBoxResult, error) {
	if err := requireCapability(identity, domain.CapManageBoxes); err != nil {
		return ConcludeBoxResult{}, err
	}
	box, err := s.boxes.GetByID(ctx, boxID)
	if err != nil {
		return ConcludeBoxResult{}, err
	}
	if err := requireShipmentAccess(identity, box.ShipmentID); err != nil {
		return ConcludeBoxResult{}, err
	}

	now := s.nowFn()
	boxPayload, _ := json.Marshal(map[string]any{
		"box_id":       box.BoxID,
		"box_name":     box.Name,
		"shipment_id":  box.ShipmentID,
		"concluded_at": now,
	})
	completionPayload, _ := json.Marshal(map[string]any{
		"shipment_id":  box.ShipmentID,
		"completed_at": now,
	})

	concluded, shipmentCompleted, err := s.boxes.ConcludeTx(ctx, box.BoxID, now,
		ports.OutboxEvent{
			EventID:      uuid.New(),
			EventType:    "box.concluded",
			PartitionKey: box.ShipmentID.String(),
			Payload:      boxPayload,
			OccurredAt:   now,
		},
		ports.OutboxEvent{
			EventID:      uuid.New(),
			EventType:    "shipment.completed",
			PartitionKey: box.ShipmentID.String(),
			Payload:      completionPayload,
			OccurredAt:   now,
		},
	)
	if err != nil {
		return ConcludeBoxResult{}, err
	}

	details := fmt.Sprintf("Concluded box %s", concluded.Name)
	if shipmentCompleted {
		details += "; all boxes concluded, shipment completed"
	}
	s.recordAudit(ctx, identity, &box.ShipmentID, "BOX_CONCLUDED", details, domain.AuditLevelInfo)

	return ConcludeBoxResult{Box: concluded, ShipmentCompleted: shipmentCompleted}, nil
}

func (s *Service) boxItemViews(ctx context.Context, box domain.Box) ([]BoxItemView, error) {
	boxItems, err := s.boxes.ListItems(ctx, box.BoxID)
	if err != nil {
		return nil, err
	}
	items, err := s.items.ListByShipment(ctx, box.ShipmentID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]domain.Item, len(items))
	for _, item := range items {
		byID[item.ItemID] = item
	}

	views := make([]BoxItemView, 0, len(boxItems))
	for _, bi := range boxItems {
		view := BoxItemView{
			BoxItemID: bi.BoxItemID,
			ItemID:    bi.ItemID,
			Quantity:  bi.Quantity,
		}
		if item, ok := byID[bi.ItemID]; ok {
			view.SKU = item.SKU
			view.FNSKU = item.FNSKU
		}
		views = append(views, view)
	}
	return views, nil
}
