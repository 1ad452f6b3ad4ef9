package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AssignmentEnvelope is the cached resolution of a picker token.
// Caching it keeps scan-heavy packer traffic off the link table.
type AssignmentEnvelope struct {
	LinkID     uuid.UUID  `json:"link_id"`
	ShipmentID uuid.UUID  `json:"shipment_id"`
	PackerID   *uuid.UUID `json:"packer_id,omitempty"`
	CachedAt   time.Time  `json:"cached_at"`
}

// AssignmentStore caches picker-token resolutions with a short TTL.
// Invalidate is called on deactivation so a dead link stops resolving
// without waiting for expiry.
type AssignmentStore interface {
	Put(ctx context.Context, token uuid.UUID, envelope AssignmentEnvelope, ttl time.Duration) error
	Get(ctx context.Context, token uuid.UUID) (*AssignmentEnvelope, error)
	Invalidate(ctx context.Context, token uuid.UUID) error
}

// ImportGuard suppresses accidental duplicate manifest submissions.
// A fingerprint of the payload is reserved for a window; a second submit
// with the same fingerprint inside the window fails fast before parsing.
type ImportGuard interface {
	Reserve(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, fingerprint string) error
}
