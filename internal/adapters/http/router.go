package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/packlane/fulfillment-service/internal/application"
)

// Handler is the HTTP adapter entrypoint for fulfillment use-cases.
// Keeping only application dependency here preserves clean adapter boundaries.
type Handler struct {
	service *application.Service
}

// NewHandler constructs an HTTP handler bound to application service.
func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

// NewRouter registers fulfillment HTTP routes and middleware stack.
// Centralizing routes here ensures consistent auth and error behavior across endpoints.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/fulfillment/v1", func(r chi.Router) {
		r.Use(handler.identityMiddleware)

		r.Post("/shipments/import", handler.importShipment)
		r.Post("/packer/import", handler.importForAssignment)

		r.Get("/shipments", handler.listShipments)
		r.Get("/shipments/{shipment_id}", handler.getShipment)
		r.Post("/shipments/{shipment_id}/cancel", handler.cancelShipment)
		r.Get("/shipments/{shipment_id}/boxes", handler.listBoxes)
		r.Get("/shipments/{shipment_id}/summary", handler.shipmentSummary)
		r.Get("/shipments/{shipment_id}/logs", handler.listShipmentLog)
		r.Post("/shipments/{shipment_id}/reports", handler.generateShipmentReport)

		r.Post("/boxes", handler.createBox)
		r.Get("/boxes/{box_id}", handler.getBox)
		r.Post("/boxes/{box_id}/items", handler.addBoxItem)
		r.Delete("/boxes/{box_id}/items/{box_item_id}", handler.removeBoxItem)
		r.Post("/boxes/{box_id}/conclude", handler.concludeBox)
		r.Post("/boxes/{box_id}/reports", handler.generateBoxReport)

		r.Post("/picker-links", handler.createPickerLink)
		r.Get("/picker-links", handler.listPickerLinks)
		r.Post("/picker-links/{link_id}/deactivate", handler.deactivatePickerLink)
		r.Post("/picker-links/{link_id}/assign", handler.assignPacker)

		r.Get("/reports", handler.listReports)
		r.Get("/reports/{file_name}", handler.downloadReport)
		r.Delete("/reports/{file_name}", handler.deleteReport)
	})

	return r
}
