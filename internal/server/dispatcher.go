package server

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/mcp-calendar/internal/errs"
	"github.com/teemow/mcp-calendar/internal/logging"
)

type toolEntry struct {
	tool    mcp.Tool
	handler mcpserver.ToolHandlerFunc
}

// Dispatcher owns the tool catalog and turns every call into exactly one
// result. Faults never escape as Go errors: they become error results whose
// text is the fault's message.
type Dispatcher struct {
	tools  map[string]toolEntry
	order  []string
	logger *slog.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		tools:  make(map[string]toolEntry),
		logger: logger,
	}
}

// AddTool registers a tool. Registering a name twice replaces the handler.
func (d *Dispatcher) AddTool(tool mcp.Tool, handler mcpserver.ToolHandlerFunc) {
	if _, exists := d.tools[tool.Name]; !exists {
		d.order = append(d.order, tool.Name)
	}
	d.tools[tool.Name] = toolEntry{tool: tool, handler: handler}
}

// ListTools returns the catalog in registration order.
func (d *Dispatcher) ListTools() []mcp.Tool {
	tools := make([]mcp.Tool, 0, len(d.order))
	for _, name := range d.order {
		tools = append(tools, d.tools[name].tool)
	}
	return tools
}

// Register exposes the catalog through s so that tools/list is answered by
// mcp-go. Calls arriving through s are routed back to CallTool.
func (d *Dispatcher) Register(s *mcpserver.MCPServer) {
	for _, tool := range d.ListTools() {
		s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return d.CallTool(ctx, request), nil
		})
	}
}

// CallTool validates the request against the tool's input schema and runs
// its handler.
func (d *Dispatcher) CallTool(ctx context.Context, request mcp.CallToolRequest) (result *mcp.CallToolResult) {
	name := request.Params.Name
	logger := logging.WithTool(d.logger, name)

	if request.Params.Arguments == nil {
		return d.fail(ctx, logger, errs.New(errs.Validation, "No arguments provided"))
	}

	entry, ok := d.tools[name]
	if !ok {
		return d.fail(ctx, logger, errs.New(errs.Validation, "Unknown tool: "+name))
	}

	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return d.fail(ctx, logger, errs.New(errs.Validation, "Invalid arguments: expected an object"))
	}
	if err := validateArguments(entry.tool.InputSchema, args); err != nil {
		return d.fail(ctx, logger, err)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("tool handler panicked", slog.Any("panic", r))
			result = mcp.NewToolResultError(fmt.Sprint(r))
		}
	}()

	result, err := entry.handler(ctx, request)
	if err != nil {
		return d.fail(ctx, logger, err)
	}
	if result == nil {
		return d.fail(ctx, logger, fmt.Errorf("tool %s returned no result", name))
	}
	return result
}

func (d *Dispatcher) fail(ctx context.Context, logger *slog.Logger, err error) *mcp.CallToolResult {
	logger.LogAttrs(ctx, slog.LevelWarn, "tool call rejected",
		logging.Status(logging.StatusError),
		logging.Kind(errs.KindOf(err)),
		logging.Err(err),
	)
	return mcp.NewToolResultError(err.Error())
}

// validateArguments checks required presence and JSON types of args against
// schema. Properties the schema does not declare are ignored.
func validateArguments(schema mcp.ToolInputSchema, args map[string]any) error {
	for _, name := range schema.Required {
		if v, ok := args[name]; !ok || v == nil {
			return errs.New(errs.Validation, fmt.Sprintf("Invalid arguments: %s is required", name))
		}
	}

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop, ok := schema.Properties[name].(map[string]any)
		if !ok {
			continue
		}
		if err := checkType(name, prop, args[name]); err != nil {
			return err
		}
	}
	return nil
}

func checkType(name string, prop map[string]any, value any) error {
	want, _ := prop["type"].(string)
	if value == nil {
		return nil
	}

	switch want {
	case "string":
		if _, ok := value.(string); !ok {
			return errs.New(errs.Validation, fmt.Sprintf("Invalid arguments: %s must be a string", name))
		}
	case "number":
		if _, ok := value.(float64); !ok {
			return errs.New(errs.Validation, fmt.Sprintf("Invalid arguments: %s must be a number", name))
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return errs.New(errs.Validation, fmt.Sprintf("Invalid arguments: %s must be a boolean", name))
		}
	case "array":
		items, ok := value.([]any)
		if !ok {
			return errs.New(errs.Validation, fmt.Sprintf("Invalid arguments: %s must be an array", name))
		}
		itemSchema, _ := prop["items"].(map[string]any)
		for i, item := range items {
			if err := checkType(fmt.Sprintf("%s[%d]", name, i), itemSchema, item); err != nil {
				return err
			}
		}
	}
	return nil
}
