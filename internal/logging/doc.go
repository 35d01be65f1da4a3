// Package logging provides structured logging utilities for mcp-calendar.
//
// All output goes through log/slog. The tool server speaks its protocol on
// stdout, so New always writes to the writer it is given (stderr in practice)
// and never to stdout.
//
// # Usage Patterns
//
//	logger := logging.New("debug", os.Stderr)
//	logger = logging.WithOperation(logger, "calendar.create")
//	logger.Info("event created", logging.Status(logging.StatusSuccess))
//
// Tokens are never logged directly; use SanitizeToken.
package logging
