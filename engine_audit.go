package bruteguard

import (
	"context"

	internalaudit "github.com/MrEthical07/bruteguard/internal/audit"
)

// event builds an audit event for id, copying request metadata from ctx.
func (e *Engine) event(ctx context.Context, eventType, id string) AuditEvent {
	ev := internalaudit.NewEvent(eventType, id)

	if ip := ClientIPFromContext(ctx); ip != "" && ip != id {
		ev.Metadata = map[string]string{"client_ip": ip}
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		if ev.Metadata == nil {
			ev.Metadata = make(map[string]string, 1)
		}
		ev.Metadata["request_id"] = rid
	}
	return ev
}

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	e.audit.Emit(ctx, event)
}
