package google

import (
	calendar "google.golang.org/api/calendar/v3"
)

// DefaultOAuthScopes are the scopes requested during authorization. Event
// creation is the only capability, so the narrower events scope is enough.
var DefaultOAuthScopes = []string{
	calendar.CalendarEventsScope,
}
