package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/mcp-calendar/internal/logging"
)

// ToolInvocation captures one tool call for the audit log.
type ToolInvocation struct {
	// ID correlates the audit record with spans and error logs.
	ID   string
	Tool string

	// Attendees holds the invitee addresses of a calendar call. Only their
	// domains are logged unless PII logging is enabled.
	Attendees []string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string
	ErrorKind string

	TraceID string
	SpanID  string
}

// NewToolInvocation starts timing an invocation of tool under a fresh ID.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		ID:        uuid.NewString(),
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithAttendees records the invitee addresses.
func (ti *ToolInvocation) WithAttendees(attendees []string) *ToolInvocation {
	ti.Attendees = attendees
	return ti
}

// WithSpanContext copies the trace context of the span in ctx.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	ti.TraceID = GetTraceID(ctx)
	ti.SpanID = GetSpanID(ctx)
	return ti
}

// Complete stops the timer and records the outcome. kind classifies the
// failure and is ignored for successful calls.
func (ti *ToolInvocation) Complete(success bool, message, kind string) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if !success {
		ti.Error = message
		ti.ErrorKind = kind
	}
	return ti
}

// Status returns "success" or "error".
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the structured fields of the record.
func (ti *ToolInvocation) LogAttrs(includePII bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("invocation_id", ti.ID),
		logging.Tool(ti.Tool),
		logging.Status(ti.Status()),
		slog.Duration("duration", ti.Duration),
	}

	if len(ti.Attendees) > 0 {
		if includePII {
			attrs = append(attrs, slog.Any("attendees", ti.Attendees))
		} else {
			attrs = append(attrs, slog.Any("attendee_domains", AttendeeDomains(ti.Attendees)))
		}
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID), slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String(logging.KeyError, ti.Error))
	}
	if ti.ErrorKind != "" {
		attrs = append(attrs, slog.String(logging.KeyKind, ti.ErrorKind))
	}
	return attrs
}

// AuditLogger writes one record per tool invocation.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an AuditLogger. A nil logger falls back to slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogToolInvocation logs ti at info level on success and warn level on failure.
func (al *AuditLogger) LogToolInvocation(ctx context.Context, ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	level := slog.LevelInfo
	msg := "tool_executed"
	if !ti.Success {
		level = slog.LevelWarn
		msg = "tool_failed"
	}
	al.logger.LogAttrs(ctx, level, msg, ti.LogAttrs(al.includePII)...)
}
