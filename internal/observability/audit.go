package observability

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	auditEventVersion = 1
	anonymousActor    = "anonymous"
)

type AuditInput struct {
	EventName   string
	ActorUserID string
	TargetType  string
	TargetID    string
	Action      string
	Outcome     string
	Reason      string
}

// AuditEvent is the stable shape of an audit log line. Downstream consumers key on
// event_version, so fields are only ever added.
type AuditEvent struct {
	EventVersion int    `json:"event_version"`
	EventID      string `json:"event_id"`
	EventName    string `json:"event_name"`
	ActorUserID  string `json:"actor_user_id"`
	ActorIP      string `json:"actor_ip"`
	TargetType   string `json:"target_type"`
	TargetID     string `json:"target_id"`
	Action       string `json:"action"`
	Outcome      string `json:"outcome"`
	Reason       string `json:"reason"`
	RequestID    string `json:"request_id"`
	TS           string `json:"ts"`
}

func BuildAuditEvent(r *http.Request, in AuditInput) AuditEvent {
	actor := strings.TrimSpace(in.ActorUserID)
	if actor == "" {
		actor = anonymousActor
	}
	return AuditEvent{
		EventVersion: auditEventVersion,
		EventID:      uuid.NewString(),
		EventName:    in.EventName,
		ActorUserID:  actor,
		ActorIP:      clientIP(r),
		TargetType:   in.TargetType,
		TargetID:     in.TargetID,
		Action:       in.Action,
		Outcome:      in.Outcome,
		Reason:       in.Reason,
		RequestID:    requestID(r),
		TS:           time.Now().UTC().Format(time.RFC3339),
	}
}

func (e AuditEvent) Validate() error {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"event_id", e.EventID},
		{"event_name", e.EventName},
		{"actor_user_id", e.ActorUserID},
		{"target_type", e.TargetType},
		{"action", e.Action},
		{"outcome", e.Outcome},
		{"ts", e.TS},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if e.EventVersion != auditEventVersion {
		missing = append(missing, "event_version")
	}
	if len(missing) > 0 {
		return errors.New("audit event missing fields: " + strings.Join(missing, ","))
	}
	return nil
}

// EmitAudit writes one structured audit record through the default logger. Extra
// key/value pairs land next to the event fields.
func EmitAudit(r *http.Request, in AuditInput, extra ...any) {
	ev := BuildAuditEvent(r, in)
	ctx := r.Context()
	if err := ev.Validate(); err != nil {
		slog.WarnContext(ctx, "audit event dropped", "event_name", ev.EventName, "error", err)
		return
	}
	attrs := []any{
		"event_version", ev.EventVersion,
		"event_id", ev.EventID,
		"event_name", ev.EventName,
		"actor_user_id", ev.ActorUserID,
		"actor_ip", ev.ActorIP,
		"target_type", ev.TargetType,
		"target_id", ev.TargetID,
		"action", ev.Action,
		"outcome", ev.Outcome,
		"reason", ev.Reason,
		"request_id", ev.RequestID,
		"ts", ev.TS,
		"method", r.Method,
		"path", r.URL.Path,
	}
	attrs = append(attrs, extra...)
	slog.InfoContext(ctx, "audit", attrs...)
}

func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return r.Header.Get(middleware.RequestIDHeader)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
