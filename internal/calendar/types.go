package calendar

// PrimaryCalendarID addresses the authorized user's main calendar.
const PrimaryCalendarID = "primary"

// EventInput is the caller-supplied description of an event. Times are ISO
// 8601 date-times; values without an offset are read in the client's time zone.
type EventInput struct {
	Summary     string   `json:"summary" validate:"required"`
	StartTime   string   `json:"start_time" validate:"required"`
	EndTime     string   `json:"end_time" validate:"required"`
	Description string   `json:"description,omitempty"`
	Attendees   []string `json:"attendees,omitempty" validate:"omitempty,dive,email"`
}

// CreatedEvent is what the provider returns for an inserted event.
type CreatedEvent struct {
	ID       string
	HTMLLink string
}

// Message is the user-facing confirmation for the event.
func (e *CreatedEvent) Message() string {
	return "Event created: " + e.HTMLLink
}
