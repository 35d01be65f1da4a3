package instrumentation

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Environment variables read by DefaultConfig.
const (
	envEnabled          = "INSTRUMENTATION_ENABLED"
	envServiceName      = "OTEL_SERVICE_NAME"
	envMetricsExporter  = "METRICS_EXPORTER"
	envTracingExporter  = "TRACING_EXPORTER"
	envOTLPEndpoint     = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOTLPInsecure     = "OTEL_EXPORTER_OTLP_INSECURE"
	envSamplingRate     = "OTEL_TRACES_SAMPLER_ARG"
	envAuditEnabled     = "AUDIT_LOGGING_ENABLED"
	envAuditIncludePII  = "AUDIT_LOGGING_INCLUDE_PII"
	defaultServiceName  = "mcp-calendar"
	defaultSamplingRate = 1.0
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	// ServiceName is the name of the service (default: mcp-calendar)
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Enabled determines if instrumentation is active. A local stdio server
	// has nobody scraping it by default, so this is false unless
	// INSTRUMENTATION_ENABLED=true or a metrics address is configured.
	Enabled bool

	// MetricsExporter specifies the metrics exporter type
	// Options: "prometheus", "otlp", "stdout" (default: "prometheus")
	MetricsExporter string

	// TracingExporter specifies the tracing exporter type
	// Options: "otlp", "stdout", "none" (default: "none")
	TracingExporter string

	// OTLPEndpoint is the OTLP collector endpoint, e.g. "localhost:4318".
	OTLPEndpoint string

	// OTLPInsecure switches OTLP export to plain HTTP.
	OTLPInsecure bool

	// TraceSamplingRate is the sampling rate for traces (0.0 to 1.0).
	TraceSamplingRate float64

	// ConsoleWriter receives the output of the stdout exporters. It defaults
	// to os.Stderr because stdout carries the MCP protocol.
	ConsoleWriter io.Writer

	// AuditLogging configures audit logging behavior.
	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	// Enabled determines if audit logging is active (default: true)
	Enabled bool

	// IncludePII adds attendee addresses to audit records. Without it only
	// their domains are logged.
	IncludePII bool
}

// DefaultConfig returns a Config populated from the environment.
func DefaultConfig() Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(envEnabled, false)
	v.SetDefault(envServiceName, defaultServiceName)
	v.SetDefault(envMetricsExporter, ExporterPrometheus)
	v.SetDefault(envTracingExporter, ExporterNone)
	v.SetDefault(envOTLPInsecure, false)
	v.SetDefault(envSamplingRate, defaultSamplingRate)
	v.SetDefault(envAuditEnabled, true)
	v.SetDefault(envAuditIncludePII, false)

	return Config{
		ServiceName:       v.GetString(envServiceName),
		ServiceVersion:    "unknown",
		Enabled:           v.GetBool(envEnabled),
		MetricsExporter:   v.GetString(envMetricsExporter),
		TracingExporter:   v.GetString(envTracingExporter),
		OTLPEndpoint:      v.GetString(envOTLPEndpoint),
		OTLPInsecure:      v.GetBool(envOTLPInsecure),
		TraceSamplingRate: v.GetFloat64(envSamplingRate),
		ConsoleWriter:     os.Stderr,
		AuditLogging: AuditLoggingConfig{
			Enabled:    v.GetBool(envAuditEnabled),
			IncludePII: v.GetBool(envAuditIncludePII),
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case "", ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if (c.TracingExporter == ExporterOTLP || c.MetricsExporter == ExporterOTLP) && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using an OTLP exporter")
	}

	return nil
}

// Constants for metric label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	OAuthResultSuccess = "success"
	OAuthResultFailure = "failure"
	OAuthResultDenied  = "denied"

	ServiceCalendar = "calendar"

	OperationInsert = "insert"

	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"

	DefaultMetricInterval = 10 * time.Second
)
