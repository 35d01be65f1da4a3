package server

import (
	"context"
	"log/slog"

	"github.com/teemow/mcp-calendar/internal/calendar"
	"github.com/teemow/mcp-calendar/internal/instrumentation"
)

// EventCreator creates calendar events. *calendar.Client implements it.
type EventCreator interface {
	CreateEvent(ctx context.Context, in calendar.EventInput) (string, error)
}

// ServerContext holds the dependencies shared by tool handlers.
type ServerContext struct {
	calendar EventCreator
	metrics  *instrumentation.Metrics
	audit    *instrumentation.AuditLogger
	logger   *slog.Logger
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithMetrics sets the metrics recorder used by instrumented handlers.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(sc *ServerContext) {
		sc.metrics = m
	}
}

// WithAuditLogger sets the audit logger used by instrumented handlers.
func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) {
		sc.audit = al
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) {
		if logger != nil {
			sc.logger = logger
		}
	}
}

// NewServerContext creates a new server context around the calendar client.
func NewServerContext(cal EventCreator, opts ...Option) *ServerContext {
	sc := &ServerContext{
		calendar: cal,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// CalendarClient returns the client used to create events.
func (sc *ServerContext) CalendarClient() EventCreator {
	return sc.calendar
}

// Metrics returns the metrics recorder, which may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, which may be nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.audit
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}
