package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/packlane/fulfillment-service/internal/domain"
)

const validManifest = "QTY,SKU,FNSKU,ID\n3,SKU-A,FN-A,EXT-1\n5,SKU-B,FN-B,\n"

func TestImportShipmentCreatesShipmentAndItems(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	shipperID := uuid.New()

	res, err := f.service.ImportShipment(ctx, shipperIdentity(shipperID), "manifest.csv", []byte(validManifest))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if res.ItemCount != 2 {
		t.Fatalf("expected 2 items, got %d", res.ItemCount)
	}
	wantName := fmt.Sprintf("Import-2025-03-14-%d", f.now.UnixMilli())
	if res.ShipmentName != wantName {
		t.Fatalf("expected shipment name %q, got %q", wantName, res.ShipmentName)
	}

	shipment, err := f.service.GetShipment(ctx, adminIdentity(), res.ShipmentID)
	if err != nil {
		t.Fatalf("get shipment failed: %v", err)
	}
	if shipment.Shipment.Status != domain.ShipmentStatusActive {
		t.Fatalf("expected ACTIVE shipment, got %s", shipment.Shipment.Status)
	}
	if len(shipment.Items) != 2 {
		t.Fatalf("expected 2 persisted items, got %d", len(shipment.Items))
	}
	first := shipment.Items[0]
	if first.SKU != "SKU-A" || first.FNSKU != "FN-A" || first.ExternalID != "EXT-1" || first.Quantity != 3 {
		t.Fatalf("unexpected first item: %+v", first)
	}
	if first.PickedQty != 0 {
		t.Fatalf("new items must start unpicked, got %d", first.PickedQty)
	}

	if got := countOf(f.outboxEventTypes(), "shipment.imported"); got != 1 {
		t.Fatalf("expected one shipment.imported event, got %d", got)
	}
}

func TestImportShipmentRejectsMissingColumns(t *testing.T) {
	t.Parallel()

	f := newFixture()
	manifest := "QTY,SKU\n3,SKU-A\n"

	_, err := f.service.ImportShipment(context.Background(), shipperIdentity(uuid.New()), "m.csv", []byte(manifest))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing required columns: FNSKU, ID") {
		t.Fatalf("expected missing column detail, got %q", err.Error())
	}
}

func TestImportShipmentHeaderIsCaseSensitive(t *testing.T) {
	t.Parallel()

	f := newFixture()
	manifest := "qty,sku,fnsku,id\n3,SKU-A,FN-A,\n"

	_, err := f.service.ImportShipment(context.Background(), shipperIdentity(uuid.New()), "m.csv", []byte(manifest))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for lowercase header, got %v", err)
	}
}

func TestImportShipmentIsAllOrNothing(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	// Five valid rows plus one invalid quantity on the first data row.
	manifest := "QTY,SKU,FNSKU,ID\n" +
		"abc,SKU-0,FN-0,\n" +
		"1,SKU-1,FN-1,\n1,SKU-2,FN-2,\n1,SKU-3,FN-3,\n1,SKU-4,FN-4,\n1,SKU-5,FN-5,\n"

	res, err := f.service.ImportShipment(ctx, shipperIdentity(uuid.New()), "m.csv", []byte(manifest))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(res.RowErrors) != 1 {
		t.Fatalf("expected one row error, got %d", len(res.RowErrors))
	}
	// The header counts as row 1, so the first data row reports as row 2.
	if res.RowErrors[0].Row != 2 || res.RowErrors[0].Message != "Invalid quantity" {
		t.Fatalf("unexpected row error: %+v", res.RowErrors[0])
	}

	shipments, err := f.service.ListShipments(ctx, adminIdentity(), ListQuery{})
	if err != nil {
		t.Fatalf("list shipments failed: %v", err)
	}
	if len(shipments) != 0 {
		t.Fatalf("no shipment may exist after a failed import, got %d", len(shipments))
	}
}

func TestImportShipmentReportsAtMostTenRowErrors(t *testing.T) {
	t.Parallel()

	f := newFixture()
	var sb strings.Builder
	sb.WriteString("QTY,SKU,FNSKU,ID\n")
	for i := 0; i < 12; i++ {
		sb.WriteString("0,SKU,FN,\n")
	}

	res, err := f.service.ImportShipment(context.Background(), shipperIdentity(uuid.New()), "m.csv", []byte(sb.String()))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(res.RowErrors) != 10 {
		t.Fatalf("expected errors truncated to 10, got %d", len(res.RowErrors))
	}
	if res.RowErrors[0].Row != 2 || res.RowErrors[9].Row != 11 {
		t.Fatalf("unexpected row numbering: first %d last %d", res.RowErrors[0].Row, res.RowErrors[9].Row)
	}
}

func TestImportShipmentRowValidationMessages(t *testing.T) {
	t.Parallel()

	f := newFixture()
	manifest := "QTY,SKU,FNSKU,ID\n" +
		"-1,SKU-A,FN-A,\n" +
		"2,,FN-B,\n" +
		"2,SKU-C,,\n"

	res, err := f.service.ImportShipment(context.Background(), shipperIdentity(uuid.New()), "m.csv", []byte(manifest))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	want := []string{"Invalid quantity", "SKU is required", "FNSKU is required"}
	if len(res.RowErrors) != len(want) {
		t.Fatalf("expected %d row errors, got %d", len(want), len(res.RowErrors))
	}
	for i, msg := range want {
		if res.RowErrors[i].Message != msg {
			t.Fatalf("row %d: expected %q, got %q", i, msg, res.RowErrors[i].Message)
		}
	}
}

func TestImportShipmentRejectsOversizePayload(t *testing.T) {
	t.Parallel()

	cfg := defaultTestConfig()
	cfg.MaxManifestBytes = 64
	f := newFixtureWithConfig(cfg)

	payload := []byte("QTY,SKU,FNSKU,ID\n" + strings.Repeat("1,S,F,\n", 20))
	_, err := f.service.ImportShipment(context.Background(), shipperIdentity(uuid.New()), "m.csv", payload)
	if !errors.Is(err, domain.ErrPayloadTooLarge) {
		t.Fatalf("expected payload too large, got %v", err)
	}
}

func TestImportShipmentRejectsEmptyPayload(t *testing.T) {
	t.Parallel()

	f := newFixture()
	for _, payload := range []string{"", "   \n  ", "QTY,SKU,FNSKU,ID\n"} {
		_, err := f.service.ImportShipment(context.Background(), shipperIdentity(uuid.New()), "m.csv", []byte(payload))
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("payload %q: expected invalid input, got %v", payload, err)
		}
	}
}

func TestImportShipmentSuppressesDuplicateSubmission(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	identity := shipperIdentity(uuid.New())

	if _, err := f.service.ImportShipment(ctx, identity, "m.csv", []byte(validManifest)); err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	_, err := f.service.ImportShipment(ctx, identity, "m.csv", []byte(validManifest))
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on identical resubmission, got %v", err)
	}
	if f.guard.releases != 0 {
		t.Fatalf("guard must be kept after a successful commit, got %d releases", f.guard.releases)
	}
}

func TestImportShipmentRejectedManifestCanBeResubmitted(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	identity := shipperIdentity(uuid.New())
	manifest := "QTY,SKU,FNSKU,ID\nabc,SKU-0,FN-0,\n"

	// A manifest that fails row validation must not occupy the duplicate
	// window; the corrected-too-late case is retrying the same bad file.
	for attempt := 0; attempt < 2; attempt++ {
		res, err := f.service.ImportShipment(ctx, identity, "m.csv", []byte(manifest))
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("attempt %d: expected invalid input, got %v", attempt, err)
		}
		if len(res.RowErrors) != 1 {
			t.Fatalf("attempt %d: expected the row error again, got %d", attempt, len(res.RowErrors))
		}
	}
	if len(f.guard.reserved) != 0 {
		t.Fatalf("rejected manifest must not reserve the guard, got %d reservations", len(f.guard.reserved))
	}

	if _, err := f.service.ImportShipment(ctx, identity, "m.csv", []byte(validManifest)); err != nil {
		t.Fatalf("corrected manifest failed: %v", err)
	}
}

func TestImportShipmentEmptyBeatsMissingColumns(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := f.service.ImportShipment(context.Background(), shipperIdentity(uuid.New()), "m.csv", []byte("FOO,BAR\n"))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if !strings.Contains(err.Error(), "CSV file is empty") {
		t.Fatalf("a header with no data rows reports as empty, got %q", err.Error())
	}
}

func TestImportShipmentForbiddenForPacker(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := f.service.ImportShipment(context.Background(), packerIdentity(uuid.New()), "m.csv", []byte(validManifest))
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestImportForAssignmentWithoutLink(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := f.service.ImportForAssignment(context.Background(), packerIdentity(uuid.New()), "m.csv", []byte(validManifest))
	if !errors.Is(err, domain.ErrNoActiveAssignment) {
		t.Fatalf("expected no active assignment, got %v", err)
	}
}

func TestImportForAssignmentAppendsToBoundShipment(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	seeded := f.seedShipment(ctx, shipperIdentity(uuid.New()), validManifest)

	res, err := f.service.ImportForAssignment(ctx, linkedPackerIdentity(seeded.ShipmentID), "extra.csv",
		[]byte("QTY,SKU,FNSKU,ID\n4,SKU-C,FN-C,EXT-9\n"))
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if !res.Appended || res.ItemCount != 1 || res.ShipmentID != seeded.ShipmentID {
		t.Fatalf("unexpected append result: %+v", res)
	}

	detail, err := f.service.GetShipment(ctx, adminIdentity(), seeded.ShipmentID)
	if err != nil {
		t.Fatalf("get shipment failed: %v", err)
	}
	if len(detail.Items) != 3 {
		t.Fatalf("expected 3 items after append, got %d", len(detail.Items))
	}
}

func TestImportForAssignmentResolvesNewestActiveLink(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	admin := adminIdentity()
	packerID := uuid.New()

	older := f.seedShipment(ctx, shipperIdentity(uuid.New()), validManifest)
	f.advance(time.Second)
	newer := f.seedShipment(ctx, shipperIdentity(uuid.New()), "QTY,SKU,FNSKU,ID\n1,SKU-X,FN-X,\n")

	for _, shipmentID := range []uuid.UUID{older.ShipmentID, newer.ShipmentID} {
		link, err := f.service.CreatePickerLink(ctx, admin, CreateLinkRequest{ShipmentID: shipmentID})
		if err != nil {
			t.Fatalf("create link failed: %v", err)
		}
		if _, err := f.service.AssignPacker(ctx, admin, link.LinkID, AssignPackerRequest{PackerID: packerID}); err != nil {
			t.Fatalf("assign packer failed: %v", err)
		}
		f.advance(time.Second)
	}

	res, err := f.service.ImportForAssignment(ctx, packerIdentity(packerID), "extra.csv",
		[]byte("QTY,SKU,FNSKU,ID\n2,SKU-Y,FN-Y,\n"))
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if res.ShipmentID != newer.ShipmentID {
		t.Fatalf("expected append to newest assignment %s, got %s", newer.ShipmentID, res.ShipmentID)
	}
}

func TestImportForAssignmentRejectsInactiveShipment(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	seeded := f.seedShipment(ctx, shipperIdentity(uuid.New()), validManifest)

	if _, err := f.service.CancelShipment(ctx, adminIdentity(), seeded.ShipmentID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	_, err := f.service.ImportForAssignment(ctx, linkedPackerIdentity(seeded.ShipmentID), "m.csv",
		[]byte("QTY,SKU,FNSKU,ID\n1,SKU-Z,FN-Z,\n"))
	if !errors.Is(err, domain.ErrShipmentNotActive) {
		t.Fatalf("expected shipment not active, got %v", err)
	}
}
