package domain

import "time"

const (
	ReminderAfterDays   = 15
	EscalationAfterDays = 30
)

type FollowUpAction string

const (
	FollowUpNone              FollowUpAction = "none"
	FollowUpSendReminder      FollowUpAction = "send_reminder"
	FollowUpEscalateToAirSewa FollowUpAction = "escalate_to_airsewa"
)

type FollowUp struct {
	Action              FollowUpAction `json:"action"`
	DaysSinceSubmission *int           `json:"days_since_submission,omitempty"`
	Reason              string         `json:"reason,omitempty"`
}

// AssessFollowUp checks the airline's 30-day response window for a claim that
// has been sent to the airline.
func AssessFollowUp(claim Claim, now time.Time) FollowUp {
	if claim.Status != StatusSubmittedToAirline || claim.SubmittedAt == nil {
		return FollowUp{Action: FollowUpNone}
	}
	submittedAt, err := parseTimestamp(*claim.SubmittedAt)
	if err != nil {
		return FollowUp{Action: FollowUpNone}
	}

	days := int(now.Sub(submittedAt).Hours() / 24)
	out := FollowUp{Action: FollowUpNone, DaysSinceSubmission: &days}
	switch {
	case days >= EscalationAfterDays:
		out.Action = FollowUpEscalateToAirSewa
		out.Reason = "Airline response deadline (30 days) exceeded"
	case days >= ReminderAfterDays:
		out.Action = FollowUpSendReminder
		out.Reason = "15 days passed without response"
	}
	return out
}

// Upstream timestamps are ISO 8601, usually without a zone.
func parseTimestamp(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05", dateLayout} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Parse(time.RFC3339, v)
}
