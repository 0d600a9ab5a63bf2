package domain

// Merge folds a ticket scan into the user's draft and returns a new draft.
//
// A scanned field replaces the draft value only when it is present and non-empty.
// Reason is the exception: it takes the scanned disruption type or resets to
// ReasonDelay, even if the user had picked something else.
func Merge(draft DraftClaim, extraction *ExtractionResult) DraftClaim {
	merged := draft
	merged.Reason = ReasonDelay
	if extraction == nil {
		return merged
	}

	merged.FlightNumber = pick(extraction.FlightNumber, draft.FlightNumber)
	merged.FlightDate = pick(extraction.FlightDate, draft.FlightDate)
	merged.AirlineName = pick(extraction.AirlineName, draft.AirlineName)
	merged.PNR = pick(extraction.PNR, draft.PNR)
	merged.PassengerName = pick(extraction.PassengerName, draft.PassengerName)
	merged.RouteFrom = pick(extraction.RouteFrom, draft.RouteFrom)
	merged.RouteTo = pick(extraction.RouteTo, draft.RouteTo)

	if extraction.DisruptionType != nil && *extraction.DisruptionType != "" {
		merged.Reason = Reason(*extraction.DisruptionType)
	}
	return merged
}

func pick(scanned *string, current string) string {
	if scanned == nil || *scanned == "" {
		return current
	}
	return *scanned
}
