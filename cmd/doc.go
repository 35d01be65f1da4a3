// Package cmd implements the command-line interface for mcp-calendar.
//
// This package provides the following commands:
//   - serve: Run the MCP server on stdio (default when no command is given)
//   - auth: Authorize calendar access and store the refresh token in .env
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for the MCP tools
//
// stdout belongs to the MCP protocol while serving, so every command logs to
// stderr.
package cmd
