package domain

import "strings"

var airlineNames = map[string]string{
	"6E": "IndiGo",
	"AI": "Air India",
	"SG": "SpiceJet",
	"UK": "Vistara",
	"I5": "AirAsia India",
	"G8": "Go First",
	"QP": "Akasa Air",
	"9I": "Alliance Air",
	"EK": "Emirates",
	"QR": "Qatar Airways",
	"SQ": "Singapore Airlines",
	"TG": "Thai Airways",
	"BA": "British Airways",
	"LH": "Lufthansa",
}

// AirlineName returns the carrier name for an IATA code, or the code itself.
func AirlineName(code string) string {
	if name, ok := airlineNames[strings.ToUpper(code)]; ok {
		return name
	}
	return code
}

// SplitFlightNumber parses "6E-234" into ("6E", "234"). ok is false when the
// number does not look like a flight number.
func SplitFlightNumber(flightNumber string) (code string, number string, ok bool) {
	m := flightNumberPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(flightNumber)))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// FillAirline sets the airline name from the flight number when the user left it blank.
func FillAirline(draft DraftClaim) DraftClaim {
	if strings.TrimSpace(draft.AirlineName) != "" {
		return draft
	}
	if code, _, ok := SplitFlightNumber(draft.FlightNumber); ok {
		draft.AirlineName = AirlineName(code)
	}
	return draft
}
