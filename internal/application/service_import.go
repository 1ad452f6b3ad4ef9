package application

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/packlane/fulfillment-service/internal/domain"
	"github.com/packlane/fulfillment-service/internal/ports"
)

// manifestColumns is the exact, case-sensitive header contract.
var manifestColumns = []string{"QTY", "SKU", "FNSKU", "ID"}

// ImportShipment creates a new shipment from a CSV manifest. All rows are
// validated before anything is written; a single invalid row aborts the
// whole import.
func (s *Service) ImportShipment(ctx context.Context, identity domain.Identity, fileName string, payload []byte) (ImportResult, error) {
	if err := requireCapability(identity, domain.CapImportShipment); err != nil {
		return ImportResult{}, err
	}

	shipperID, err := uuid.Parse(identity.ActorID)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: actor id is not a shipper id", domain.ErrInvalidInput)
	}

	rows, result, err := s.validateManifest(ctx, identity, payload)
	if err != nil {
		return result, err
	}

	now := s.nowFn()
	name := fmt.Sprintf("Import-%s-%d", now.Format("2006-01-02"), now.UnixMilli())

	eventPayload, _ := json.Marshal(map[string]any{
		"shipment_name": name,
		"shipper_id":    shipperID,
		"item_count":    len(rows),
		"imported_at":   now,
	})
	shipment, err := s.shipments.CreateWithItemsTx(ctx, ports.CreateShipmentTxParams{
		Name:      name,
		ShipperID: shipperID,
		Items:     rows,
		CreatedAt: now,
	}, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "shipment.imported",
		PartitionKey: name,
		Payload:      eventPayload,
		OccurredAt:   now,
	})
	if err != nil {
		// A failed commit releases the duplicate guard so the caller can retry.
		s.releaseGuard(ctx, identity, payload)
		s.recordAudit(ctx, identity, nil, "SHIPMENT_IMPORT_ERROR",
			fmt.Sprintf("CSV import failed: %v", err), domain.AuditLevelError)
		return ImportResult{}, err
	}

	s.recordAudit(ctx, identity, &shipment.ShipmentID, "IMPORTED_SHIPMENT",
		fmt.Sprintf("Imported shipment %s with %d items from CSV file: %s", shipment.Name, len(rows), fileName),
		domain.AuditLevelInfo)

	return ImportResult{
		ShipmentID:   shipment.ShipmentID,
		ShipmentName: shipment.Name,
		ItemCount:    len(rows),
	}, nil
}

// ImportForAssignment appends manifest rows to the packer's active
// assignment. Link-resolved identities append to their bound shipment;
// session packers resolve their newest active link.
func (s *Service) ImportForAssignment(ctx context.Context, identity domain.Identity, fileName string, payload []byte) (ImportResult, error) {
	if err := requireCapability(identity, domain.CapAppendAssignment); err != nil {
		return ImportResult{}, err
	}

	shipmentID, err := s.resolveAssignment(ctx, identity)
	if err != nil {
		return ImportResult{}, err
	}

	shipment, err := s.shipments.GetByID(ctx, shipmentID)
	if err != nil {
		return ImportResult{}, err
	}
	if !shipment.IsActive() {
		return ImportResult{}, fmt.Errorf("%w: shipment %s is %s", domain.ErrShipmentNotActive, shipment.ShipmentID, shipment.Status)
	}

	rows, result, err := s.validateManifest(ctx, identity, payload)
	if err != nil {
		return result, err
	}

	now := s.nowFn()
	eventPayload, _ := json.Marshal(map[string]any{
		"shipment_id": shipment.ShipmentID,
		"actor_id":    identity.ActorID,
		"item_count":  len(rows),
		"imported_at": now,
	})
	count, err := s.shipments.AppendItemsTx(ctx, shipment.ShipmentID, rows, now, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "shipment.imported",
		PartitionKey: shipment.ShipmentID.String(),
		Payload:      eventPayload,
		OccurredAt:   now,
	})
	if err != nil {
		s.releaseGuard(ctx, identity, payload)
		s.recordAudit(ctx, identity, &shipment.ShipmentID, "SHIPMENT_IMPORT_ERROR",
			fmt.Sprintf("CSV append failed: %v", err), domain.AuditLevelError)
		return ImportResult{}, err
	}

	s.recordAudit(ctx, identity, &shipment.ShipmentID, "IMPORTED_SHIPMENT",
		fmt.Sprintf("Appended %d items to shipment %s from CSV file: %s", count, shipment.Name, fileName),
		domain.AuditLevelInfo)

	return ImportResult{
		ShipmentID:   shipment.ShipmentID,
		ShipmentName: shipment.Name,
		ItemCount:    count,
		Appended:     true,
	}, nil
}

func (s *Service) resolveAssignment(ctx context.Context, identity domain.Identity) (uuid.UUID, error) {
	if identity.AssignedShipmentID != nil {
		return *identity.AssignedShipmentID, nil
	}
	packerID, err := uuid.Parse(identity.ActorID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: actor id is not a packer id", domain.ErrInvalidInput)
	}
	link, err := s.links.NewestActiveForPacker(ctx, packerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return uuid.Nil, domain.ErrNoActiveAssignment
		}
		return uuid.Nil, err
	}
	return link.ShipmentID, nil
}

// validateManifest runs the read-only phase of an import: size cap,
// header contract, then per-row validation collecting every error rather
// than stopping at the first. The duplicate guard arms only for a fully
// valid manifest, so a rejected submission can be corrected and
// resubmitted immediately without tripping the conflict window.
func (s *Service) validateManifest(ctx context.Context, identity domain.Identity, payload []byte) ([]ports.ImportItemParams, ImportResult, error) {
	if int64(len(payload)) > s.cfg.MaxManifestBytes {
		return nil, ImportResult{}, fmt.Errorf("%w: manifest exceeds %d bytes", domain.ErrPayloadTooLarge, s.cfg.MaxManifestBytes)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, ImportResult{}, fmt.Errorf("%w: CSV file is empty", domain.ErrInvalidInput)
	}

	header, records, err := parseManifestCSV(payload)
	if err != nil {
		return nil, ImportResult{}, err
	}
	if len(records) == 0 {
		return nil, ImportResult{}, fmt.Errorf("%w: CSV file is empty", domain.ErrInvalidInput)
	}
	if missing := missingManifestColumns(header); len(missing) > 0 {
		return nil, ImportResult{}, fmt.Errorf("%w: missing required columns: %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(col)] = i
	}

	rows := make([]ports.ImportItemParams, 0, len(records))
	var rowErrors []RowError
	for i, record := range records {
		// Header is row 1, so the first data row reports as row 2.
		rowNum := i + 2
		row, msg := validateManifestRow(record, index)
		if msg != "" {
			rowErrors = append(rowErrors, RowError{Row: rowNum, Message: msg})
			continue
		}
		rows = append(rows, row)
	}
	if len(rowErrors) > 0 {
		if len(rowErrors) > 10 {
			rowErrors = rowErrors[:10]
		}
		return nil, ImportResult{RowErrors: rowErrors},
			fmt.Errorf("%w: %d manifest rows failed validation", domain.ErrInvalidInput, len(rowErrors))
	}

	if s.importGuard != nil {
		ok, err := s.importGuard.Reserve(ctx, fingerprintPayload(identity.ActorID, payload), s.cfg.ImportGuardTTL)
		if err == nil && !ok {
			return nil, ImportResult{}, fmt.Errorf("%w: identical manifest was just submitted", domain.ErrConflict)
		}
	}
	return rows, ImportResult{}, nil
}

func (s *Service) releaseGuard(ctx context.Context, identity domain.Identity, payload []byte) {
	if s.importGuard != nil {
		_ = s.importGuard.Release(ctx, fingerprintPayload(identity.ActorID, payload))
	}
}

func parseManifestCSV(payload []byte) ([]string, [][]string, error) {
	reader := csv.NewReader(bytes.NewReader(payload))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = false

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: unreadable CSV header: %v", domain.ErrInvalidInput, err)
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: malformed CSV: %v", domain.ErrInvalidInput, err)
		}
		records = append(records, record)
	}
	return header, records, nil
}

// missingManifestColumns compares the header against the contract.
// Matching is exact and case-sensitive.
func missingManifestColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[strings.TrimSpace(col)] = true
	}
	var missing []string
	for _, col := range manifestColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

func validateManifestRow(record []string, index map[string]int) (ports.ImportItemParams, string) {
	field := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	qty, err := strconv.Atoi(field("QTY"))
	if err != nil || qty <= 0 {
		return ports.ImportItemParams{}, "Invalid quantity"
	}
	sku := field("SKU")
	if sku == "" {
		return ports.ImportItemParams{}, "SKU is required"
	}
	fnsku := field("FNSKU")
	if fnsku == "" {
		return ports.ImportItemParams{}, "FNSKU is required"
	}

	return ports.ImportItemParams{
		SKU:        sku,
		FNSKU:      fnsku,
		ExternalID: field("ID"),
		Quantity:   qty,
	}, ""
}
