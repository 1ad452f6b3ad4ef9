package http

import (
	"net/http"

	"github.com/packlane/fulfillment-service/internal/application"
)

func (h *Handler) createBox(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req application.CreateBoxRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_box", err)
		return
	}

	box, err := h.service.CreateBox(r.Context(), identity, req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_box", err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{"box": box})
}

func (h *Handler) getBox(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	boxID, err := pathUUID(r, "box_id")
	if err != nil {
		writeValidationError(r.Context(), w, "get_box", err)
		return
	}

	detail, err := h.service.GetBox(r.Context(), identity, boxID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_box", err)
		return
	}

	writeSuccess(w, http.StatusOK, detail)
}

func (h *Handler) listBoxes(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	shipmentID, err := pathUUID(r, "shipment_id")
	if err != nil {
		writeValidationError(r.Context(), w, "list_boxes", err)
		return
	}

	boxes, err := h.service.ListBoxes(r.Context(), identity, shipmentID)
	if err != nil {
		writeMappedError(r.Context(), w, "list_boxes", err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"boxes": boxes,
		"count": len(boxes),
	})
}

func (h *Handler) addBoxItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	boxID, err := pathUUID(r, "box_id")
	if err != nil {
		writeValidationError(r.Context(), w, "add_box_item", err)
		return
	}

	var req application.AddBoxItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "add_box_item", err)
		return
	}

	boxItem, err := h.service.AddBoxItem(r.Context(), identity, boxID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "add_box_item", err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{"box_item": boxItem})
}

func (h *Handler) removeBoxItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	boxID, err := pathUUID(r, "box_id")
	if err != nil {
		writeValidationError(r.Context(), w, "remove_box_item", err)
		return
	}
	boxItemID, err := pathUUID(r, "box_item_id")
	if err != nil {
		writeValidationError(r.Context(), w, "remove_box_item", err)
		return
	}

	if err := h.service.RemoveBoxItem(r.Context(), identity, boxID, boxItemID); err != nil {
		writeMappedError(r.Context(), w, "remove_box_item", err)
		return
	}

	writeMessage(w, http.StatusOK, "box item removed")
}

func (h *Handler) concludeBox(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	boxID, err := pathUUID(r, "box_id")
	if err != nil {
		writeValidationError(r.Context(), w, "conclude_box", err)
		return
	}

	res, err := h.service.ConcludeBox(r.Context(), identity, boxID)
	if err != nil {
		writeMappedError(r.Context(), w, "conclude_box", err)
		return
	}

	writeSuccess(w, http.StatusOK, res)
}
