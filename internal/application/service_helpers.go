package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"github.com/google/uuid"
	"github.com/packlane/fulfillment-service/internal/domain"
)

// recordAudit stores a fulfillment audit record. Audit is best-effort:
// a failed write is logged and never surfaced to the primary operation.
func (s *Service) recordAudit(ctx context.Context, identity domain.Identity, shipmentID *uuid.UUID, action, details string, level domain.AuditLevel) {
	record := domain.AuditRecord{
		RecordID:   uuid.New(),
		ActorID:    identity.ActorID,
		ShipmentID: shipmentID,
		Action:     action,
		Details:    details,
		Level:      level,
		RecordedAt: s.nowFn(),
	}
	if err := s.audit.Insert(ctx, record); err != nil {
		slog.Default().WarnContext(ctx, "failed to persist audit record",
			"service", "fulfillment-service",
			"module", "application",
			"layer", "application",
			"operation", "record_audit",
			"outcome", "failure",
			"action", action,
			"error", err,
		)
	}
}

// fingerprintPayload computes a deterministic fingerprint for duplicate
// manifest detection.
func fingerprintPayload(actorID string, payload []byte) string {
	sum := sha256.New()
	sum.Write([]byte(actorID))
	sum.Write([]byte{0})
	sum.Write(payload)
	return hex.EncodeToString(sum.Sum(nil))
}

// clampQuery normalizes pagination inputs.
func clampQuery(q ListQuery) (limit, offset int) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit = q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return limit, (page - 1) * limit
}
