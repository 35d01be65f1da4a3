package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
	_ "time/tzdata"

	"go.opentelemetry.io/otel/attribute"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/mcp-calendar/internal/errs"
	"github.com/teemow/mcp-calendar/internal/google"
	"github.com/teemow/mcp-calendar/internal/instrumentation"
	"github.com/teemow/mcp-calendar/internal/logging"
)

// Options configures a Client.
type Options struct {
	// TimeZone is the IANA zone attached to event times.
	TimeZone string

	// Timeout bounds each provider call. Zero means no extra bound.
	Timeout time.Duration

	// Endpoint overrides the Calendar API base URL.
	Endpoint string

	// HTTPClient replaces the token-authorized client built from the provider.
	HTTPClient *http.Client

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Client wraps the Google Calendar service.
type Client struct {
	svc      *calendar.Service
	timeZone string
	location *time.Location
	timeout  time.Duration
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
}

// NewClient creates a Calendar client authorized with tokens from provider.
// No network activity happens until the first call.
func NewClient(ctx context.Context, provider google.TokenProvider, opts Options) (*Client, error) {
	if opts.TimeZone == "" {
		return nil, errs.New(errs.Configuration, "time zone must not be empty")
	}
	loc, err := time.LoadLocation(opts.TimeZone)
	if err != nil {
		return nil, errs.Wrap(errs.Configuration, fmt.Sprintf("unknown time zone %q", opts.TimeZone), err)
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		if provider == nil {
			return nil, errs.New(errs.Configuration, "token provider cannot be nil")
		}
		ts, err := provider.TokenSource(ctx)
		if err != nil {
			return nil, err
		}
		httpClient = google.NewHTTPClient(ts, nil)
	}

	svcOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if opts.Endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(opts.Endpoint))
	}

	svc, err := calendar.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, errs.Wrap(errs.Configuration, fmt.Sprintf("failed to create Calendar service: %v", err), err)
	}

	return &Client{
		svc:      svc,
		timeZone: opts.TimeZone,
		location: loc,
		timeout:  opts.Timeout,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}, nil
}

// CreateEvent validates in, inserts it into the primary calendar and returns
// the confirmation message "Event created: <link>".
func (c *Client) CreateEvent(ctx context.Context, in EventInput) (string, error) {
	created, err := c.InsertEvent(ctx, in)
	if err != nil {
		return "", err
	}
	return created.Message(), nil
}

// InsertEvent validates in and inserts it into the primary calendar.
func (c *Client) InsertEvent(ctx context.Context, in EventInput) (*CreatedEvent, error) {
	start, end, err := validateInput(in, c.location)
	if err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationInsert,
		attribute.String(instrumentation.SpanAttrCalendarID, PrimaryCalendarID),
		attribute.Int(instrumentation.SpanAttrAttendeeCount, len(in.Attendees)),
	)
	defer span.End()

	began := time.Now()
	event, err := c.svc.Events.Insert(PrimaryCalendarID, c.toEvent(in, start, end)).Context(ctx).Do()
	if err != nil {
		c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, instrumentation.OperationInsert,
			instrumentation.StatusError, time.Since(began))
		instrumentation.SetSpanError(span, err)
		c.logger.Debug("calendar insert failed", logging.Operation(instrumentation.OperationInsert), logging.Err(err))
		return nil, errs.Wrap(errs.ProviderCall, "Failed to create event: "+providerMessage(err), err)
	}

	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, instrumentation.OperationInsert,
		instrumentation.StatusSuccess, time.Since(began))
	span.SetAttributes(attribute.String(instrumentation.SpanAttrEventID, event.Id))
	instrumentation.SetSpanSuccess(span)

	return &CreatedEvent{ID: event.Id, HTMLLink: event.HtmlLink}, nil
}

func (c *Client) toEvent(in EventInput, start, end dateTime) *calendar.Event {
	event := &calendar.Event{
		Summary:     in.Summary,
		Description: in.Description,
		Start: &calendar.EventDateTime{
			DateTime: start.value,
			TimeZone: c.timeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: end.value,
			TimeZone: c.timeZone,
		},
	}

	if len(in.Attendees) > 0 {
		event.Attendees = make([]*calendar.EventAttendee, len(in.Attendees))
		for i, email := range in.Attendees {
			event.Attendees[i] = &calendar.EventAttendee{Email: email}
		}
	}

	return event
}

// providerMessage returns the provider's own description of a failure.
func providerMessage(err error) string {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Message != "" {
		return gerr.Message
	}
	return err.Error()
}
