package logging

import (
	"context"
	"log/slog"
	"strings"
)

// RedactedValue replaces sensitive attribute values.
const RedactedValue = "[REDACTED]"

var sensitiveKeys = map[string]bool{
	"password":         true,
	"confirm_password": true,
	"confirmpassword":  true,
	"token":            true,
	"access_token":     true,
	"authorization":    true,
	"bearer":           true,
	"secret":           true,
	"cookie":           true,
}

// Redactor wraps a handler and masks attributes whose key names a credential,
// including inside groups.
type Redactor struct {
	next slog.Handler
}

// NewRedactor wraps next.
func NewRedactor(next slog.Handler) *Redactor {
	return &Redactor{next: next}
}

func (h *Redactor) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Redactor) Handle(ctx context.Context, record slog.Record) error {
	out := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redact(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *Redactor) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = redact(a)
	}
	return &Redactor{next: h.next.WithAttrs(masked)}
}

func (h *Redactor) WithGroup(name string) slog.Handler {
	return &Redactor{next: h.next.WithGroup(name)}
}

func redact(a slog.Attr) slog.Attr {
	if isSensitive(a.Key) {
		return slog.String(a.Key, RedactedValue)
	}
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]any, len(group))
		for i, g := range group {
			masked[i] = redact(g)
		}
		return slog.Group(a.Key, masked...)
	}
	return a
}

func isSensitive(key string) bool {
	k := strings.ToLower(strings.ReplaceAll(key, "-", "_"))
	return sensitiveKeys[k]
}
