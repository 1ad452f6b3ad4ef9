package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/packlane/fulfillment-service/internal/domain"
)

var errUnknownReportFormat = errors.New("unknown report format")

func (h *Handler) generateBoxReport(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	boxID, err := pathUUID(r, "box_id")
	if err != nil {
		writeValidationError(r.Context(), w, "generate_box_report", err)
		return
	}
	format, ok := domain.ParseReportFormat(r.URL.Query().Get("format"))
	if !ok {
		writeValidationError(r.Context(), w, "generate_box_report", errUnknownReportFormat)
		return
	}

	res, err := h.service.GenerateBoxReport(r.Context(), identity, boxID, format)
	if err != nil {
		writeMappedError(r.Context(), w, "generate_box_report", err)
		return
	}

	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) generateShipmentReport(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	shipmentID, err := pathUUID(r, "shipment_id")
	if err != nil {
		writeValidationError(r.Context(), w, "generate_shipment_report", err)
		return
	}
	format, ok := domain.ParseReportFormat(r.URL.Query().Get("format"))
	if !ok {
		writeValidationError(r.Context(), w, "generate_shipment_report", errUnknownReportFormat)
		return
	}

	res, err := h.service.GenerateShipmentReport(r.Context(), identity, shipmentID, format)
	if err != nil {
		writeMappedError(r.Context(), w, "generate_shipment_report", err)
		return
	}

	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	reports, err := h.service.ListReports(r.Context(), identity)
	if err != nil {
		writeMappedError(r.Context(), w, "list_reports", err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"reports": reports,
		"count":   len(reports),
	})
}

func (h *Handler) downloadReport(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	fileName := chi.URLParam(r, "file_name")

	data, err := h.service.ReadReport(r.Context(), identity, fileName)
	if err != nil {
		writeMappedError(r.Context(), w, "download_report", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) deleteReport(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	fileName := chi.URLParam(r, "file_name")

	if err := h.service.DeleteReport(r.Context(), identity, fileName); err != nil {
		writeMappedError(r.Context(), w, "delete_report", err)
		return
	}

	writeMessage(w, http.StatusOK, "report deleted")
}
