package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput marks request-level validation failures the caller can fix.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInsufficientQuantity signals a reservation larger than the item's remaining quantity.
	// The reservation is rejected whole; there is no partial application.
	ErrInsufficientQuantity = errors.New("insufficient remaining quantity")
	// ErrBoxNotOpen guards every BoxItem mutation against concluded boxes.
	ErrBoxNotOpen = errors.New("box is not open")
	// ErrBoxAlreadyConcluded is returned when conclude is called twice.
	// CONCLUDED is terminal, so the second call can never be a retryable race.
	ErrBoxAlreadyConcluded = errors.New("box already concluded")
	// ErrBoxNotConcluded blocks report generation for boxes still being packed.
	ErrBoxNotConcluded = errors.New("box is not concluded")
	// ErrShipmentNotActive rejects box creation and imports against completed or cancelled shipments.
	ErrShipmentNotActive = errors.New("shipment is not active")
	// ErrNoActiveAssignment is returned when a packer imports without an active picker link.
	ErrNoActiveAssignment = errors.New("no active assignment")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	// ErrPayloadTooLarge rejects oversize manifests before any parsing work.
	ErrPayloadTooLarge = errors.New("payload too large")
)
