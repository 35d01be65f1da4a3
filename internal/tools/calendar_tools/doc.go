// Package calendar_tools exposes calendar operations as MCP tools.
//
// The only tool is create_event, which inserts an event into the authorized
// user's primary calendar and answers with the event link:
//
//	{"summary": "Planning", "start_time": "2025-02-06T15:00:00Z",
//	 "end_time": "2025-02-06T16:00:00Z", "attendees": ["jane@example.com"]}
//
// Input is checked twice: the dispatcher enforces the JSON schema declared
// here, and the calendar client validates date formats, ordering and
// attendee addresses before any provider call is made.
package calendar_tools
