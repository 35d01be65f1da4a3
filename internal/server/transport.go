package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/mcp-calendar/internal/logging"
)

const methodToolsCall = "tools/call"

// StdioTransport serves newline-delimited JSON-RPC. Messages are handled
// strictly one at a time and each request gets exactly one response line,
// in arrival order. tools/call goes to the Dispatcher; everything else is
// answered by the mcp-go server.
type StdioTransport struct {
	mcp        *mcpserver.MCPServer
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewStdioTransport creates a transport. The dispatcher's catalog is
// registered with s so that tools/list matches what CallTool accepts.
func NewStdioTransport(s *mcpserver.MCPServer, d *Dispatcher, logger *slog.Logger) *StdioTransport {
	if logger == nil {
		logger = slog.Default()
	}
	d.Register(s)
	return &StdioTransport{mcp: s, dispatcher: d, logger: logger}
}

// Serve reads from r until EOF or until ctx is cancelled. EOF is a clean
// shutdown and returns nil.
func (t *StdioTransport) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		reader := bufio.NewReader(r)
		for {
			line, err := reader.ReadBytes('\n')
			if len(line) > 0 {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- err
				}
				return
			}
		}
	}()

	out := bufio.NewWriter(w)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return fmt.Errorf("failed to read request: %w", err)
				default:
					t.logger.Info("input closed, shutting down")
					return nil
				}
			}
			if err := t.handleLine(ctx, line, out); err != nil {
				return err
			}
		}
	}
}

func (t *StdioTransport) handleLine(ctx context.Context, line []byte, out *bufio.Writer) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	response := t.handleMessage(ctx, json.RawMessage(line))
	if response == nil {
		return nil
	}

	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	if _, err := out.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return out.Flush()
}

func (t *StdioTransport) handleMessage(ctx context.Context, raw json.RawMessage) mcp.JSONRPCMessage {
	var base struct {
		ID     *mcp.RequestId  `json:"id,omitempty"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params,omitempty"`
	}
	if err := json.Unmarshal(raw, &base); err != nil || base.Method != methodToolsCall {
		return t.mcp.HandleMessage(ctx, raw)
	}

	if base.ID == nil {
		t.logger.Warn("ignoring tools/call notification without id")
		return nil
	}

	var params mcp.CallToolParams
	if len(base.Params) > 0 {
		if err := json.Unmarshal(base.Params, &params); err != nil {
			t.logger.Warn("malformed tools/call params", logging.Err(err))
			return mcp.NewJSONRPCError(*base.ID, mcp.INVALID_PARAMS, "Invalid params", err.Error())
		}
	}

	request := mcp.CallToolRequest{Params: params}
	request.Method = methodToolsCall

	return mcp.NewJSONRPCResultResponse(*base.ID, t.dispatcher.CallTool(ctx, request))
}
