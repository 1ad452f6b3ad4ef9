package http

import (
	"errors"
	"net/http"

	"github.com/packlane/fulfillment-service/internal/application"
	"github.com/packlane/fulfillment-service/internal/domain"
)

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}

func (h *Handler) importShipment(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	fileName, payload, err := readManifest(r, h.service.MaxManifestBytes())
	if err != nil {
		writeValidationError(r.Context(), w, "import_shipment", err)
		return
	}

	res, err := h.service.ImportShipment(r.Context(), identity, fileName, payload)
	if err != nil {
		writeImportError(w, r, "import_shipment", res, err)
		return
	}

	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) importForAssignment(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	fileName, payload, err := readManifest(r, h.service.MaxManifestBytes())
	if err != nil {
		writeValidationError(r.Context(), w, "import_for_assignment", err)
		return
	}

	res, err := h.service.ImportForAssignment(r.Context(), identity, fileName, payload)
	if err != nil {
		writeImportError(w, r, "import_for_assignment", res, err)
		return
	}

	writeSuccess(w, http.StatusOK, res)
}

// writeImportError surfaces row-level validation failures in the error
// body so callers can show which manifest lines to fix.
func writeImportError(w http.ResponseWriter, r *http.Request, operation string, res application.ImportResult, err error) {
	status, code, msg := mapDomainError(err)
	logHTTPOperationError(r.Context(), operation, status, code, msg, err)
	if errors.Is(err, domain.ErrInvalidInput) && len(res.RowErrors) > 0 {
		writeErrorDetails(w, status, code, msg, map[string]any{"row_errors": res.RowErrors})
		return
	}
	writeError(w, status, code, msg)
}
