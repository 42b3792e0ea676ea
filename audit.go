package eduAuth

import (
	"context"
	"io"
	"log/slog"

	"github.com/MrEthical07/eduAuth/internal/audit"
	"github.com/MrEthical07/eduAuth/transport"
)

// Audit event types.
const (
	AuditEventLoginSuccess       = "login_success"
	AuditEventLoginFailure       = "login_failure"
	AuditEventRegisterSuccess    = "register_success"
	AuditEventRegisterFailure    = "register_failure"
	AuditEventLogout             = "logout"
	AuditEventSessionInvalidated = "session_invalidated"
	AuditEventSessionRehydrated  = "session_rehydrated"
)

type (
	// AuditEvent is one audit record. It never carries passwords or tokens.
	AuditEvent = audit.Event
	// AuditSink receives audit events on the dispatcher goroutine.
	AuditSink = audit.Sink

	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
	LogSink        = audit.LogSink
)

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

func NewLogSink(l *slog.Logger) *LogSink {
	return audit.NewLogSink(l)
}

func (c *Client) emitAudit(ctx context.Context, eventType string, success bool, userID, email string, err error, metadata func() map[string]string) {
	if c == nil || c.audit == nil {
		return
	}
	ev := AuditEvent{
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		Success:   success,
	}
	if err != nil {
		ev.Code = string(ErrorCode(err))
		ev.Error = ErrorMessage(err)
		if te, ok := transport.AsError(err); ok {
			ev.RequestID = te.RequestID
		}
	}
	if metadata != nil {
		ev.Metadata = metadata()
	}
	c.audit.Emit(ctx, ev)
}
