package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReportFormat selects the column layout of a generated CSV report.
type ReportFormat string

const (
	ReportFormatFBA       ReportFormat = "fba"
	ReportFormatInventory ReportFormat = "inventory"
	ReportFormatCustom    ReportFormat = "custom"
)

// ParseReportFormat maps a caller-supplied format tag to the enum.
// An empty tag selects the custom layout.
func ParseReportFormat(raw string) (ReportFormat, bool) {
	switch ReportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case ReportFormatFBA:
		return ReportFormatFBA, true
	case ReportFormatInventory:
		return ReportFormatInventory, true
	case ReportFormatCustom, "":
		return ReportFormatCustom, true
	default:
		return "", false
	}
}

// NoItemsMarker is appended after the header when a report has no rows,
// so an empty report is still a readable file rather than an absent one.
const NoItemsMarker = "# No items found for this report"

// ReportRow is one normalized line of report output before layout.
type ReportRow struct {
	SKU         string
	FNSKU       string
	Quantity    int
	Description string
	Seller      string
}

// Header returns the column names for the format.
// The custom layout repeats the seller column twice; downstream consumers
// depend on that column position, so it is reproduced verbatim.
func (f ReportFormat) Header() []string {
	switch f {
	case ReportFormatFBA:
		return []string{"SKU", "Quantity", "FN SKU", "Seller SKU"}
	case ReportFormatInventory:
		return []string{"SKU", "FN SKU", "Quantity", "Description", "Seller"}
	default:
		return []string{"SKU", "QTY", "seller", "seller"}
	}
}

// Render lays out one row according to the format.
func (f ReportFormat) Render(row ReportRow) []string {
	qty := strconv.Itoa(row.Quantity)
	switch f {
	case ReportFormatFBA:
		return []string{row.SKU, qty, row.FNSKU, row.Seller}
	case ReportFormatInventory:
		return []string{row.SKU, row.FNSKU, qty, row.Description, row.Seller}
	default:
		return []string{row.SKU, qty, row.Seller, row.Seller}
	}
}

// ReportName is the parsed identity of a stored report file. Every
// generated file name embeds it so listings can be read back without a
// metadata table.
type ReportName struct {
	ShipmentID  uuid.UUID
	BoxID       *uuid.UUID
	Format      ReportFormat
	GeneratedAt time.Time
}

const reportNameTimeLayout = "2006-01-02_15-04-05"

// FileName renders the deterministic on-disk name:
// <shipmentID>_<boxID|summary>_<YYYY-MM-DD>_<HH-MM-SS>_<format>.csv
func (n ReportName) FileName() string {
	scope := "summary"
	if n.BoxID != nil {
		scope = n.BoxID.String()
	}
	return fmt.Sprintf("%s_%s_%s_%s.csv",
		n.ShipmentID, scope, n.GeneratedAt.UTC().Format(reportNameTimeLayout), n.Format)
}

// ParseReportFileName inverts FileName. It returns false for names that
// do not match the expected shape; listings skip those instead of failing.
func ParseReportFileName(name string) (ReportName, bool) {
	base, ok := strings.CutSuffix(name, ".csv")
	if !ok {
		return ReportName{}, false
	}
	parts := strings.Split(base, "_")
	if len(parts) != 5 {
		return ReportName{}, false
	}
	shipmentID, err := uuid.Parse(parts[0])
	if err != nil {
		return ReportName{}, false
	}
	var boxID *uuid.UUID
	if parts[1] != "summary" {
		id, err := uuid.Parse(parts[1])
		if err != nil {
			return ReportName{}, false
		}
		boxID = &id
	}
	generatedAt, err := time.Parse(reportNameTimeLayout, parts[2]+"_"+parts[3])
	if err != nil {
		return ReportName{}, false
	}
	format, ok := ParseReportFormat(parts[4])
	if !ok || parts[4] == "" {
		return ReportName{}, false
	}
	return ReportName{
		ShipmentID:  shipmentID,
		BoxID:       boxID,
		Format:      format,
		GeneratedAt: generatedAt.UTC(),
	}, true
}
