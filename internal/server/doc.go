// Package server provides the MCP tool server: the shared ServerContext, the
// tool Dispatcher, the stdio transport and an optional Prometheus metrics
// endpoint.
//
// # Key Components
//
// Dispatcher owns the tool catalog. CallTool validates arguments against the
// tool's input schema, runs the handler and converts every fault (invalid
// input, provider failure, panic) into an error result, so each call yields
// exactly one result.
//
// StdioTransport reads newline-delimited JSON-RPC from stdin and writes one
// response line per request to stdout, processing messages sequentially.
// tools/call is routed to the Dispatcher; initialize, ping, tools/list and
// notifications are answered by mcp-go's MCPServer.
//
// MetricsServer exposes /metrics on a separate address when instrumentation
// uses the Prometheus exporter. Nothing but protocol messages is ever written
// to stdout.
package server
