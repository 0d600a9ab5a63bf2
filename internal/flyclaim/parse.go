package flyclaim

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"flyclaim-tracker/internal/domain"
)

// extractionKeys maps every accepted scanner key to its canonical field.
var extractionKeys = map[string]string{
	"flight_number":   "flight_number",
	"flight_no":       "flight_number",
	"flight_date":     "flight_date",
	"date":            "flight_date",
	"airline_name":    "airline_name",
	"airline":         "airline_name",
	"pnr":             "pnr",
	"passenger_name":  "passenger_name",
	"passenger":       "passenger_name",
	"route_from":      "route_from",
	"departure":       "route_from",
	"route_to":        "route_to",
	"arrival":         "route_to",
	"disruption_type": "disruption_type",
}

var disruptionAliases = map[string]domain.Reason{
	"delay":           domain.ReasonDelay,
	"delayed":         domain.ReasonDelay,
	"cancellation":    domain.ReasonCancellation,
	"cancelled":       domain.ReasonCancellation,
	"canceled":        domain.ReasonCancellation,
	"denied":          domain.ReasonDenied,
	"denied_boarding": domain.ReasonDenied,
}

// ParseExtraction decodes a scanner payload. Unknown keys are ignored, blank
// strings become absent and unrecognised disruption types are dropped.
func ParseExtraction(raw []byte) (domain.ExtractionResult, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return domain.ExtractionResult{}, fmt.Errorf("empty extraction payload")
	}

	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &rawMap); err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("decode extraction: %w", err)
	}

	values := make(map[string]string, len(rawMap))
	for key, value := range rawMap {
		key = strings.ToLower(key)
		canonical, ok := extractionKeys[key]
		if !ok {
			continue
		}
		s, ok := decodeString(value)
		if !ok || s == "" {
			continue
		}
		// The canonical key wins over an alias.
		if _, seen := values[canonical]; seen && key != canonical {
			continue
		}
		values[canonical] = s
	}

	var out domain.ExtractionResult
	out.FlightNumber = optional(values, "flight_number")
	out.FlightDate = optional(values, "flight_date")
	out.AirlineName = optional(values, "airline_name")
	out.PNR = optional(values, "pnr")
	out.PassengerName = optional(values, "passenger_name")
	out.RouteFrom = optional(values, "route_from")
	out.RouteTo = optional(values, "route_to")
	if v, ok := values["disruption_type"]; ok {
		if reason, known := disruptionAliases[strings.ToLower(v)]; known {
			s := string(reason)
			out.DisruptionType = &s
		}
	}
	if out.FlightNumber != nil {
		upper := strings.ToUpper(*out.FlightNumber)
		out.FlightNumber = &upper
	}
	return out, nil
}

func decodeString(value json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return "", false
	}
	return strings.TrimSpace(s), true
}

func optional(values map[string]string, key string) *string {
	v, ok := values[key]
	if !ok {
		return nil
	}
	return &v
}
