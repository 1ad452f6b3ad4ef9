package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/packlane/fulfillment-service/internal/application"
)

func (h *Handler) createPickerLink(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req application.CreateLinkRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_picker_link", err)
		return
	}

	link, err := h.service.CreatePickerLink(r.Context(), identity, req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_picker_link", err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{"picker_link": link})
}

func (h *Handler) listPickerLinks(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var shipmentID *uuid.UUID
	if raw := r.URL.Query().Get("shipment_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeValidationError(r.Context(), w, "list_picker_links", errInvalidShipmentFilter)
			return
		}
		shipmentID = &id
	}

	links, err := h.service.ListPickerLinks(r.Context(), identity, shipmentID, listQueryFromRequest(r))
	if err != nil {
		writeMappedError(r.Context(), w, "list_picker_links", err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"picker_links": links,
		"count":        len(links),
	})
}

func (h *Handler) deactivatePickerLink(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	linkID, err := pathUUID(r, "link_id")
	if err != nil {
		writeValidationError(r.Context(), w, "deactivate_picker_link", err)
		return
	}

	if err := h.service.DeactivatePickerLink(r.Context(), identity, linkID); err != nil {
		writeMappedError(r.Context(), w, "deactivate_picker_link", err)
		return
	}

	writeMessage(w, http.StatusOK, "picker link deactivated")
}

func (h *Handler) assignPacker(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	linkID, err := pathUUID(r, "link_id")
	if err != nil {
		writeValidationError(r.Context(), w, "assign_packer", err)
		return
	}

	var req application.AssignPackerRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "assign_packer", err)
		return
	}

	link, err := h.service.AssignPacker(r.Context(), identity, linkID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "assign_packer", err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"picker_link": link})
}
