package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/packlane/fulfillment-service/internal/domain"
	"github.com/packlane/fulfillment-service/internal/ports"
)

// ResolveSessionIdentity turns a signed bearer token into a caller identity.
func (s *Service) ResolveSessionIdentity(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := s.tokenSigner.ParseAndValidate(token)
	if err != nil {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	if claims.ExpiresAt.Before(s.nowFn()) {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	role, ok := domain.ParseRole(string(claims.Role))
	if !ok {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	return domain.Identity{
		ActorID: claims.ActorID,
		Role:    role,
	}, nil
}

// ResolvePickerIdentity turns a picker link token into a caller identity
// scoped to that link's shipment. Resolutions are cached with a short TTL;
// the cache is invalidated on deactivation.
func (s *Service) ResolvePickerIdentity(ctx context.Context, rawToken string) (domain.Identity, error) {
	token, err := uuid.Parse(strings.TrimSpace(rawToken))
	if err != nil {
		return domain.Identity{}, domain.ErrUnauthorized
	}

	if envelope, cacheErr := s.assignments.Get(ctx, token); cacheErr == nil && envelope != nil {
		return pickerIdentity(envelope.LinkID, envelope.ShipmentID, envelope.PackerID), nil
	}

	link, err := s.links.GetActiveByToken(ctx, token)
	if err != nil {
		return domain.Identity{}, domain.ErrUnauthorized
	}

	_ = s.assignments.Put(ctx, token, ports.AssignmentEnvelope{
		LinkID:     link.LinkID,
		ShipmentID: link.ShipmentID,
		PackerID:   link.PackerID,
		CachedAt:   s.nowFn(),
	}, s.cfg.AssignmentCacheTTL)

	return pickerIdentity(link.LinkID, link.ShipmentID, link.PackerID), nil
}

// IssueSessionToken signs a session identity token. Account management is
// owned elsewhere; this exists for service-to-service and test issuance.
func (s *Service) IssueSessionToken(actorID string, role domain.Role) (string, error) {
	if strings.TrimSpace(actorID) == "" {
		return "", fmt.Errorf("%w: actor id is required", domain.ErrInvalidInput)
	}
	now := s.nowFn()
	return s.tokenSigner.Sign(ports.AuthClaims{
		ActorID:   actorID,
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.TokenTTL),
	})
}

func pickerIdentity(linkID, shipmentID uuid.UUID, packerID *uuid.UUID) domain.Identity {
	actorID := "link:" + linkID.String()
	if packerID != nil {
		actorID = packerID.String()
	}
	bound := shipmentID
	return domain.Identity{
		ActorID:            actorID,
		Role:               domain.RolePacker,
		AssignedShipmentID: &bound,
		ViaLink:            true,
	}
}

// requireCapability is the single authorization gate for service operations.
func requireCapability(identity domain.Identity, cap domain.Capability) error {
	if !identity.Can(cap) {
		return fmt.Errorf("%w: role %s may not perform %s", domain.ErrForbidden, identity.Role, cap)
	}
	return nil
}

// requireShipmentAccess enforces link-scoped identities staying inside
// their assigned shipment.
func requireShipmentAccess(identity domain.Identity, shipmentID uuid.UUID) error {
	if !identity.BoundTo(shipmentID) {
		return fmt.Errorf("%w: identity is bound to a different shipment", domain.ErrForbidden)
	}
	return nil
}
