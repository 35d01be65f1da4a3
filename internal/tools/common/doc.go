// Package common provides helpers shared by the MCP tool packages: argument
// decoding and the instrumentation wrapper every tool handler runs inside.
package common
