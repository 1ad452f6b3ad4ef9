package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/packlane/fulfillment-service/internal/domain"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	token, err := f.service.IssueSessionToken("shipper-7", domain.RoleShipper)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	identity, err := f.service.ResolveSessionIdentity(ctx, token)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if identity.ActorID != "shipper-7" || identity.Role != domain.RoleShipper {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if identity.AssignedShipmentID != nil || identity.ViaLink {
		t.Fatalf("session identity must not be link-scoped: %+v", identity)
	}
}

func TestExpiredSessionTokenRejected(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	token, err := f.service.IssueSessionToken("admin-1", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	f.advance(defaultTestConfig().TokenTTL + time.Minute)

	if _, err := f.service.ResolveSessionIdentity(ctx, token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for expired token, got %v", err)
	}
}

func TestIssueSessionTokenRequiresActor(t *testing.T) {
	t.Parallel()

	f := newFixture()
	if _, err := f.service.IssueSessionToken("  ", domain.RoleAdmin); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for blank actor, got %v", err)
	}
}

func TestResolvePickerIdentityCachesResolution(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	admin := adminIdentity()
	seeded := f.seedShipment(ctx, shipperIdentity(uuid.New()), validManifest)

	link, err := f.service.CreatePickerLink(ctx, admin, CreateLinkRequest{ShipmentID: seeded.ShipmentID})
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}

	identity, err := f.service.ResolvePickerIdentity(ctx, link.Token.String())
	if err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	if !identity.ViaLink || identity.Role != domain.RolePacker {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if identity.AssignedShipmentID == nil || *identity.AssignedShipmentID != seeded.ShipmentID {
		t.Fatalf("identity not bound to shipment: %+v", identity)
	}

	if _, err := f.service.ResolvePickerIdentity(ctx, link.Token.String()); err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if f.assignments.hits != 1 {
		t.Fatalf("expected 1 cache hit, got %d", f.assignments.hits)
	}
}

func TestResolvePickerIdentityRejectsBadTokens(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	if _, err := f.service.ResolvePickerIdentity(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for malformed token, got %v", err)
	}
	if _, err := f.service.ResolvePickerIdentity(ctx, uuid.NewString()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unknown token, got %v", err)
	}
}

func TestDeactivateLinkRevokesCachedToken(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	admin := adminIdentity()
	seeded := f.seedShipment(ctx, shipperIdentity(uuid.New()), validManifest)

	link, err := f.service.CreatePickerLink(ctx, admin, CreateLinkRequest{ShipmentID: seeded.ShipmentID})
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	if _, err := f.service.ResolvePickerIdentity(ctx, link.Token.String()); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if err := f.service.DeactivatePickerLink(ctx, admin, link.LinkID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	// The cached envelope is evicted, so the token dies immediately
	// instead of living out the cache TTL.
	if _, err := f.service.ResolvePickerIdentity(ctx, link.Token.String()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized after deactivation, got %v", err)
	}
}

func TestLinkIdentityIsShipmentScoped(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	shipmentA := f.seedShipment(ctx, shipperIdentity(uuid.New()), "QTY,SKU,FNSKU,ID\n5,SKU-A,FN-A,\n")
	shipmentB := f.seedShipment(ctx, shipperIdentity(uuid.New()), "QTY,SKU,FNSKU,ID\n5,SKU-B,FN-B,\n")

	bound := linkedPackerIdentity(shipmentA.ShipmentID)
	if _, err := f.service.GetShipment(ctx, bound, shipmentA.ShipmentID); err != nil {
		t.Fatalf("bound shipment access failed: %v", err)
	}
	if _, err := f.service.GetShipment(ctx, bound, shipmentB.ShipmentID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden across shipments, got %v", err)
	}
}

func TestAssignPackerUpdatesLinkAndAnnounces(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	admin := adminIdentity()
	seeded := f.seedShipment(ctx, shipperIdentity(uuid.New()), validManifest)

	link, err := f.service.CreatePickerLink(ctx, admin, CreateLinkRequest{ShipmentID: seeded.ShipmentID})
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	packerID := uuid.New()
	updated, err := f.service.AssignPacker(ctx, admin, link.LinkID, AssignPackerRequest{PackerID: packerID})
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if updated.PackerID == nil || *updated.PackerID != packerID {
		t.Fatalf("packer not recorded: %+v", updated)
	}
	if got := countOf(f.outboxEventTypes(), "picker.assigned"); got != 1 {
		t.Fatalf("expected 1 picker.assigned event, got %d", got)
	}
}

func TestAssignPackerRejectsInactiveLink(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	admin := adminIdentity()
	seeded := f.seedShipment(ctx, shipperIdentity(uuid.New()), validManifest)

	link, err := f.service.CreatePickerLink(ctx, admin, CreateLinkRequest{ShipmentID: seeded.ShipmentID})
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	if err := f.service.DeactivatePickerLink(ctx, admin, link.LinkID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if _, err := f.service.AssignPacker(ctx, admin, link.LinkID, AssignPackerRequest{PackerID: uuid.New()}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for inactive link, got %v", err)
	}
}

func TestCreatePickerLinkRequiresActiveShipment(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	admin := adminIdentity()
	seeded := f.seedShipment(ctx, shipperIdentity(uuid.New()), validManifest)

	if _, err := f.service.CancelShipment(ctx, admin, seeded.ShipmentID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := f.service.CreatePickerLink(ctx, admin, CreateLinkRequest{ShipmentID: seeded.ShipmentID}); !errors.Is(err, domain.ErrShipmentNotActive) {
		t.Fatalf("expected shipment not active, got %v", err)
	}
}

func TestListPickerLinksFiltersByShipment(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	admin := adminIdentity()
	shipmentA := f.seedShipment(ctx, shipperIdentity(uuid.New()), "QTY,SKU,FNSKU,ID\n5,SKU-A,FN-A,\n")
	shipmentB := f.seedShipment(ctx, shipperIdentity(uuid.New()), "QTY,SKU,FNSKU,ID\n5,SKU-B,FN-B,\n")

	if _, err := f.service.CreatePickerLink(ctx, admin, CreateLinkRequest{ShipmentID: shipmentA.ShipmentID}); err != nil {
		t.Fatalf("create link A failed: %v", err)
	}
	if _, err := f.service.CreatePickerLink(ctx, admin, CreateLinkRequest{ShipmentID: shipmentB.ShipmentID}); err != nil {
		t.Fatalf("create link B failed: %v", err)
	}

	all, err := f.service.ListPickerLinks(ctx, admin, nil, ListQuery{})
	if err != nil {
		t.Fatalf("list all failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 links, got %d", len(all))
	}

	scoped, err := f.service.ListPickerLinks(ctx, admin, &shipmentA.ShipmentID, ListQuery{})
	if err != nil {
		t.Fatalf("scoped list failed: %v", err)
	}
	if len(scoped) != 1 || scoped[0].ShipmentID != shipmentA.ShipmentID {
		t.Fatalf("scoped listing wrong: %+v", scoped)
	}
}
