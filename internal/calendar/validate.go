package calendar

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/teemow/mcp-calendar/internal/errs"
)

// InvalidDateMessage is reported for start or end times that are not ISO date-times.
const InvalidDateMessage = `Invalid date format. Please use ISO format (e.g., "2025-02-06T15:00:00Z")`

// Accepted date-time layouts. The first carries its own offset; the others
// are local to the configured time zone.
const (
	layoutLocal        = "2006-01-02T15:04:05"
	layoutLocalMinutes = "2006-01-02T15:04"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// dateTime is a parsed event time together with the wire value sent to the
// provider.
type dateTime struct {
	t     time.Time
	value string
}

func parseDateTime(s string, loc *time.Location) (dateTime, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "T") {
		return dateTime{}, errs.New(errs.Validation, InvalidDateMessage)
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return dateTime{t: t, value: s}, nil
	}
	if t, err := time.ParseInLocation(layoutLocal, s, loc); err == nil {
		return dateTime{t: t, value: s}, nil
	}
	if t, err := time.ParseInLocation(layoutLocalMinutes, s, loc); err == nil {
		return dateTime{t: t, value: t.Format(layoutLocal)}, nil
	}
	return dateTime{}, errs.New(errs.Validation, InvalidDateMessage)
}

// validateInput checks in and returns the normalized start and end times.
func validateInput(in EventInput, loc *time.Location) (start, end dateTime, err error) {
	var emailErr error
	if verr := validate.Struct(in); verr != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(verr, &fieldErrs) {
			return start, end, errs.Wrap(errs.Validation, verr.Error(), verr)
		}
		for _, fe := range fieldErrs {
			switch fe.Tag() {
			case "required":
				return start, end, errs.New(errs.Validation, fmt.Sprintf("%s is required", fe.Field()))
			case "email":
				if emailErr == nil {
					emailErr = errs.New(errs.Validation, fmt.Sprintf("Invalid attendee email: %q", fe.Value()))
				}
			default:
				return start, end, errs.Wrap(errs.Validation, fmt.Sprintf("%s is invalid", fe.Field()), fe)
			}
		}
	}

	if start, err = parseDateTime(in.StartTime, loc); err != nil {
		return start, end, err
	}
	if end, err = parseDateTime(in.EndTime, loc); err != nil {
		return start, end, err
	}
	if end.t.Before(start.t) {
		return start, end, errs.New(errs.Validation, "end_time must not be before start_time")
	}
	if emailErr != nil {
		return start, end, emailErr
	}
	return start, end, nil
}
