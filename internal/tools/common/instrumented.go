package common

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/mcp-calendar/internal/errs"
	"github.com/teemow/mcp-calendar/internal/instrumentation"
	"github.com/teemow/mcp-calendar/internal/server"
)

// ToolHandler is the signature shared by all tool handlers. It is the
// handler type the dispatcher registers.
type ToolHandler = mcpserver.ToolHandlerFunc

// InstrumentedToolHandler wraps a tool handler with a span, metrics and an
// audit record. The handler's result and error are returned unchanged.
//
// Usage:
//
//	d.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		invocation := instrumentation.NewToolInvocation(toolName).
			WithAttendees(StringSliceArg(request.GetArguments(), "attendees"))

		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			attribute.String(instrumentation.SpanAttrInvocationID, invocation.ID))
		defer span.End()
		invocation.WithSpanContext(ctx)

		result, err := handler(ctx, request)

		switch {
		case err != nil:
			kind := errs.KindOf(err).String()
			invocation.Complete(false, err.Error(), kind)
			instrumentation.SetSpanError(span, err)
		case result == nil || result.IsError:
			msg := resultText(result)
			invocation.Complete(false, msg, errs.Unknown.String())
			span.SetAttributes(attribute.Bool("mcp.result_error", true))
		default:
			invocation.Complete(true, "", "")
			instrumentation.SetSpanSuccess(span)
		}

		sc.Metrics().RecordToolInvocation(ctx, toolName, invocation.Status(), invocation.ErrorKind, invocation.Duration)
		sc.AuditLogger().LogToolInvocation(ctx, invocation)

		return result, err
	}
}

func resultText(result *mcp.CallToolResult) string {
	if result == nil {
		return "no result"
	}
	for _, c := range result.Content {
		if text, ok := mcp.AsTextContent(c); ok {
			return text.Text
		}
	}
	return ""
}
