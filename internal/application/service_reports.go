package application

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/packlane/fulfillment-service/internal/domain"
)

// GenerateBoxReport writes a CSV export of one concluded box. Only
// finalized contents are reportable; an open box fails the request.
func (s *Service) GenerateBoxReport(ctx context.Context, identity domain.Identity, boxID uuid.UUID, format domain.ReportFormat) (ReportResult, error) {
	if err := requireCapability(identity, domain.CapGenerateReports); err != nil {
		return ReportResult{}, err
	}
	box, err := s.boxes.GetByID(ctx, boxID)
	if err != nil {
		return ReportResult{}, err
	}
	if err := requireShipmentAccess(identity, box.ShipmentID); err != nil {
		return ReportResult{}, err
	}
	if box.Status != domain.BoxStatusConcluded {
		return ReportResult{}, fmt.Errorf("%w: box %s is %s", domain.ErrBoxNotConcluded, box.Name, box.Status)
	}

	itemsBySKU, err := s.itemIndex(ctx, box.ShipmentID)
	if err != nil {
		return ReportResult{}, err
	}
	boxItems, err := s.boxes.ListItems(ctx, box.BoxID)
	if err != nil {
		return ReportResult{}, err
	}

	rows := make([]domain.ReportRow, 0, len(boxItems))
	for _, bi := range boxItems {
		item, ok := itemsBySKU.byID[bi.ItemID]
		if !ok {
			continue
		}
		rows = append(rows, reportRowFor(item, bi.Quantity))
	}

	result, err := s.writeReport(ctx, box.ShipmentID, &box.BoxID, format, rows)
	if err != nil {
		s.recordAudit(ctx, identity, &box.ShipmentID, "REPORT_GENERATION_FAILED",
			fmt.Sprintf("Box: %s, Error: %v", box.Name, err), domain.AuditLevelError)
		return ReportResult{}, err
	}

	s.recordAudit(ctx, identity, &box.ShipmentID, "REPORT_GENERATED",
		fmt.Sprintf("Box: %s, Format: %s, Records: %d, File: %s", box.Name, format, result.RecordCount, result.FileName),
		domain.AuditLevelInfo)
	return result, nil
}

// GenerateShipmentReport writes a summary CSV over every concluded box of
// a shipment. Quantities are aggregated per SKU, one output row per
// distinct SKU, in first-seen order.
func (s *Service) GenerateShipmentReport(ctx context.Context, identity domain.Identity, shipmentID uuid.UUID, format domain.ReportFormat) (ReportResult, error) {
	if err := requireCapability(identity, domain.CapGenerateReports); err != nil {
		return ReportResult{}, err
	}
	if err := requireShipmentAccess(identity, shipmentID); err != nil {
		return ReportResult{}, err
	}
	shipment, err := s.shipments.GetByID(ctx, shipmentID)
	if err != nil {
		return ReportResult{}, err
	}

	rows, err := s.aggregateConcludedBoxes(ctx, shipment.ShipmentID)
	if err != nil {
		return ReportResult{}, err
	}

	result, err := s.writeReport(ctx, shipment.ShipmentID, nil, format, rows)
	if err != nil {
		s.recordAudit(ctx, identity, &shipment.ShipmentID, "REPORT_GENERATION_FAILED",
			fmt.Sprintf("Shipment: %s, Error: %v", shipment.Name, err), domain.AuditLevelError)
		return ReportResult{}, err
	}

	s.recordAudit(ctx, identity, &shipment.ShipmentID, "REPORT_GENERATED",
		fmt.Sprintf("Shipment: %s, Format: %s, Records: %d, File: %s", shipment.Name, format, result.RecordCount, result.FileName),
		domain.AuditLevelInfo)
	return result, nil
}

// GetShipmentSummary returns aggregate pick statistics without writing a file.
func (s *Service) GetShipmentSummary(ctx context.Context, identity domain.Identity, shipmentID uuid.UUID) (ShipmentSummary, error) {
	if err := requireCapability(identity, domain.CapViewShipment); err != nil {
		return ShipmentSummary{}, err
	}
	if err := requireShipmentAccess(identity, shipmentID); err != nil {
		return ShipmentSummary{}, err
	}
	shipment, err := s.shipments.GetByID(ctx, shipmentID)
	if err != nil {
		return ShipmentSummary{}, err
	}
	boxes, err := s.boxes.ListByShipment(ctx, shipment.ShipmentID)
	if err != nil {
		return ShipmentSummary{}, err
	}

	rows, err := s.aggregateConcludedBoxes(ctx, shipment.ShipmentID)
	if err != nil {
		return ShipmentSummary{}, err
	}
	totalQuantity := 0
	for _, row := range rows {
		totalQuantity += row.Quantity
	}
	concluded := 0
	for _, box := range boxes {
		if box.Status == domain.BoxStatusConcluded {
			concluded++
		}
	}

	return ShipmentSummary{
		ShipmentID:          shipment.ShipmentID,
		ShipmentName:        shipment.Name,
		TotalItems:          len(rows),
		TotalQuantity:       totalQuantity,
		BoxesCount:          len(boxes),
		ConcludedBoxesCount: concluded,
		GeneratedAt:         s.nowFn(),
	}, nil
}

// ListReports lists stored report files, newest first. Files whose names
// do not parse are skipped rather than failing the listing.
func (s *Service) ListReports(ctx context.Context, identity domain.Identity) ([]ReportFileInfo, error) {
	if err := requireCapability(identity, domain.CapGenerateReports); err != nil {
		return nil, err
	}
	names, err := s.reports.List(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]ReportFileInfo, 0, len(names))
	for _, name := range names {
		parsed, ok := domain.ParseReportFileName(name)
		if !ok {
			continue
		}
		infos = append(infos, ReportFileInfo{
			FileName:    name,
			ShipmentID:  parsed.ShipmentID,
			BoxID:       parsed.BoxID,
			Format:      parsed.Format,
			GeneratedAt: parsed.GeneratedAt,
		})
	}
	// Names embed the timestamp, so reverse-lexical is newest first.
	sort.Slice(infos, func(i, j int) bool { return infos[i].FileName > infos[j].FileName })
	if limit := s.cfg.ReportListLimit; limit > 0 && len(infos) > limit {
		infos = infos[:limit]
	}
	return infos, nil
}

// ReadReport returns the raw contents of a stored report file.
func (s *Service) ReadReport(ctx context.Context, identity domain.Identity, fileName string) ([]byte, error) {
	if err := requireCapability(identity, domain.CapGenerateReports); err != nil {
		return nil, err
	}
	if _, ok := domain.ParseReportFileName(fileName); !ok {
		return nil, fmt.Errorf("%w: unknown report file", domain.ErrNotFound)
	}
	return s.reports.Read(ctx, fileName)
}

// DeleteReport deletes a stored report file.
func (s *Service) DeleteReport(ctx context.Context, identity domain.Identity, fileName string) error {
	if err := requireCapability(identity, domain.CapGenerateReports); err != nil {
		return err
	}
	parsed, ok := domain.ParseReportFileName(fileName)
	if !ok {
		return fmt.Errorf("%w: unknown report file", domain.ErrNotFound)
	}
	if err := s.reports.Delete(ctx, fileName); err != nil {
		return err
	}
	s.recordAudit(ctx, identity, &parsed.ShipmentID, "REPORT_DELETED",
		fmt.Sprintf("Deleted file: %s", fileName), domain.AuditLevelInfo)
	return nil
}

type itemIndex struct {
	byID map[uuid.UUID]domain.Item
}

func (s *Service) itemIndex(ctx context.Context, shipmentID uuid.UUID) (itemIndex, error) {
	items, err := s.items.ListByShipment(ctx, shipmentID)
	if err != nil {
		return itemIndex{}, err
	}
	byID := make(map[uuid.UUID]domain.Item, len(items))
	for _, item := range items {
		byID[item.ItemID] = item
	}
	return itemIndex{byID: byID}, nil
}

// aggregateConcludedBoxes reduces every concluded box of a shipment to
// one report row per distinct SKU, summing box-local quantities.
func (s *Service) aggregateConcludedBoxes(ctx context.Context, shipmentID uuid.UUID) ([]domain.ReportRow, error) {
	boxes, err := s.boxes.ListByShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	index, err := s.itemIndex(ctx, shipmentID)
	if err != nil {
		return nil, err
	}

	var rows []domain.ReportRow
	position := make(map[string]int)
	for _, box := range boxes {
		if box.Status != domain.BoxStatusConcluded {
			continue
		}
		boxItems, err := s.boxes.ListItems(ctx, box.BoxID)
		if err != nil {
			return nil, err
		}
		for _, bi := range boxItems {
			item, ok := index.byID[bi.ItemID]
			if !ok {
				continue
			}
			if at, seen := position[item.SKU]; seen {
				rows[at].Quantity += bi.Quantity
				continue
			}
			position[item.SKU] = len(rows)
			rows = append(rows, reportRowFor(item, bi.Quantity))
		}
	}
	return rows, nil
}

func reportRowFor(item domain.Item, quantity int) domain.ReportRow {
	seller := item.ExternalID
	if seller == "" {
		seller = "Unknown"
	}
	return domain.ReportRow{
		SKU:      item.SKU,
		FNSKU:    item.FNSKU,
		Quantity: quantity,
		Seller:   seller,
	}
}

func (s *Service) writeReport(ctx context.Context, shipmentID uuid.UUID, boxID *uuid.UUID, format domain.ReportFormat, rows []domain.ReportRow) (ReportResult, error) {
	generatedAt := s.nowFn()
	name := domain.ReportName{
		ShipmentID:  shipmentID,
		BoxID:       boxID,
		Format:      format,
		GeneratedAt: generatedAt,
	}
	content := renderReportCSV(format, rows)
	if err := s.reports.Write(ctx, name.FileName(), content); err != nil {
		return ReportResult{}, err
	}
	return ReportResult{
		FileName:    name.FileName(),
		Format:      format,
		RecordCount: len(rows),
		FileSize:    len(content),
		ShipmentID:  shipmentID,
		BoxID:       boxID,
		GeneratedAt: generatedAt,
	}, nil
}

// renderReportCSV renders header and rows. An empty result still yields a
// readable file: the header plus an explicit no-items marker line.
func renderReportCSV(format domain.ReportFormat, rows []domain.ReportRow) []byte {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, joinCSV(format.Header()))
	if len(rows) == 0 {
		lines = append(lines, domain.NoItemsMarker)
	} else {
		for _, row := range rows {
			lines = append(lines, joinCSV(format.Render(row)))
		}
	}
	return []byte(strings.Join(lines, "\n"))
}

func joinCSV(fields []string) string {
	escaped := make([]string, len(fields))
	for i, field := range fields {
		escaped[i] = escapeCSVField(field)
	}
	return strings.Join(escaped, ",")
}

// escapeCSVField quotes fields containing separators, quotes, newlines or
// surrounding whitespace, doubling any embedded quotes.
func escapeCSVField(field string) string {
	if strings.ContainsAny(field, ",\"\n\r") || strings.TrimSpace(field) != field {
		return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
	}
	return field
}
