// Package calendar creates events in the user's primary Google Calendar.
//
// The client validates input locally before any network activity, maps it to
// a calendar/v3 Event in the configured time zone and inserts it:
//
//	client, err := calendar.NewClient(ctx, provider, calendar.Options{TimeZone: "Asia/Singapore"})
//	if err != nil {
//	    return err
//	}
//	msg, err := client.CreateEvent(ctx, calendar.EventInput{
//	    Summary:   "Planning",
//	    StartTime: "2025-02-06T15:00:00Z",
//	    EndTime:   "2025-02-06T16:00:00Z",
//	})
//
// Failures are *errs.Error values of kind Validation or ProviderCall.
package calendar
