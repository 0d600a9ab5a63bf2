package domain

import (
	"regexp"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var flightNumberPattern = regexp.MustCompile(`^([A-Z0-9]{2})[- ]?(\d{1,4})$`)

func ValidateDraft(v DraftClaim) ValidationResult {
	failed := make([]string, 0)

	flightNumber := strings.ToUpper(strings.TrimSpace(v.FlightNumber))
	if flightNumber == "" {
		failed = append(failed, "draft.flight_number_required")
	} else if !flightNumberPattern.MatchString(flightNumber) {
		failed = append(failed, "draft.flight_number_format")
	}

	if strings.TrimSpace(v.FlightDate) == "" {
		failed = append(failed, "draft.flight_date_required")
	} else if _, err := ParseFlightDate(v.FlightDate); err != nil {
		failed = append(failed, "draft.flight_date_parseable")
	}

	if strings.TrimSpace(v.AirlineName) == "" {
		failed = append(failed, "draft.airline_name_required")
	}
	if !v.Reason.IsValid() {
		failed = append(failed, "draft.reason_allowed")
	}

	return ValidationResult{FailedRules: failed}
}

func ValidationPassed(r ValidationResult) bool {
	return len(r.FailedRules) == 0
}

// ParseFlightDate accepts a plain date or a full RFC 3339 timestamp.
func ParseFlightDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(dateLayout, v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}
