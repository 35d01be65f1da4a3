// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for the calendar MCP server.
//
// # Metrics
//
// Authorization callback listener:
//   - http_requests_total, http_request_duration_seconds
//
// Google API:
//   - google_api_operations_total: by service, operation, status
//   - google_api_operation_duration_seconds
//
// OAuth:
//   - oauth_auth_total: interactive authorizations by result
//   - oauth_token_refresh_total: access token refreshes by result
//
// MCP tools:
//   - mcp_tool_invocations_total: by tool, status and error kind
//   - mcp_tool_duration_seconds
//
// # Tracing
//
// Spans are created for tool invocations (tool.<name>) and Google API calls
// (google.<service>.<operation>).
//
// # Configuration
//
// Instrumentation is off unless INSTRUMENTATION_ENABLED=true or the serve
// command is given a metrics address. Other variables:
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG: sampling rate (default: 1.0)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII
//
// The stdout exporters write to stderr: stdout is the MCP protocol channel.
package instrumentation
