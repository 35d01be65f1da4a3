package calendar_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/mcp-calendar/internal/calendar"
	"github.com/teemow/mcp-calendar/internal/server"
	"github.com/teemow/mcp-calendar/internal/tools/common"
)

// ToolCreateEvent is the name of the event creation tool.
const ToolCreateEvent = "create_event"

// CreateEventTool describes the create_event tool and its input schema.
func CreateEventTool() mcp.Tool {
	return mcp.NewTool(ToolCreateEvent,
		mcp.WithDescription("Create a calendar event with specified details"),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("Event title"),
		),
		mcp.WithString("start_time",
			mcp.Required(),
			mcp.Description("Start time (ISO format)"),
		),
		mcp.WithString("end_time",
			mcp.Required(),
			mcp.Description("End time (ISO format)"),
		),
		mcp.WithString("description",
			mcp.Description("Event description"),
		),
		mcp.WithArray("attendees",
			mcp.Description("List of attendee emails"),
			mcp.WithStringItems(),
		),
	)
}

// RegisterCalendarTools adds the calendar tools to d.
func RegisterCalendarTools(d *server.Dispatcher, sc *server.ServerContext) {
	d.AddTool(CreateEventTool(), common.InstrumentedToolHandler(ToolCreateEvent, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateEvent(ctx, request, sc)
		}))
}

func handleCreateEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	var in calendar.EventInput
	if err := common.DecodeArguments(request, &in); err != nil {
		return nil, err
	}

	msg, err := sc.CalendarClient().CreateEvent(ctx, in)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(msg), nil
}
