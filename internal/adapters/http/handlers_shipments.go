package http

import (
	"net/http"
)

func (h *Handler) listShipments(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	shipments, err := h.service.ListShipments(r.Context(), identity, listQueryFromRequest(r))
	if err != nil {
		writeMappedError(r.Context(), w, "list_shipments", err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"shipments": shipments,
		"count":     len(shipments),
	})
}

func (h *Handler) getShipment(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	shipmentID, err := pathUUID(r, "shipment_id")
	if err != nil {
		writeValidationError(r.Context(), w, "get_shipment", err)
		return
	}

	detail, err := h.service.GetShipment(r.Context(), identity, shipmentID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_shipment", err)
		return
	}

	writeSuccess(w, http.StatusOK, detail)
}

func (h *Handler) cancelShipment(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	shipmentID, err := pathUUID(r, "shipment_id")
	if err != nil {
		writeValidationError(r.Context(), w, "cancel_shipment", err)
		return
	}

	shipment, err := h.service.CancelShipment(r.Context(), identity, shipmentID)
	if err != nil {
		writeMappedError(r.Context(), w, "cancel_shipment", err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"shipment": shipment})
}

func (h *Handler) listShipmentLog(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	shipmentID, err := pathUUID(r, "shipment_id")
	if err != nil {
		writeValidationError(r.Context(), w, "list_shipment_log", err)
		return
	}

	records, err := h.service.ListShipmentLog(r.Context(), identity, shipmentID, listQueryFromRequest(r))
	if err != nil {
		writeMappedError(r.Context(), w, "list_shipment_log", err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"logs":  records,
		"count": len(records),
	})
}

func (h *Handler) shipmentSummary(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	shipmentID, err := pathUUID(r, "shipment_id")
	if err != nil {
		writeValidationError(r.Context(), w, "shipment_summary", err)
		return
	}

	summary, err := h.service.GetShipmentSummary(r.Context(), identity, shipmentID)
	if err != nil {
		writeMappedError(r.Context(), w, "shipment_summary", err)
		return
	}

	writeSuccess(w, http.StatusOK, summary)
}
