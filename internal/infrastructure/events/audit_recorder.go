package events

import (
	"context"

	"github.com/hilthontt/collaby/internal/domain"
)

// AuditRecorder writes room events straight into the audit journal. It stands
// in for the broker round trip when messaging is disabled.
type AuditRecorder struct {
	audit domain.RoomAuditRepository
}

func NewAuditRecorder(audit domain.RoomAuditRepository) *AuditRecorder {
	return &AuditRecorder{audit: audit}
}

func (r *AuditRecorder) Publish(ctx context.Context, event domain.RoomEvent) error {
	return r.audit.Log(ctx, domain.NewAuditLogFromEvent(event))
}
