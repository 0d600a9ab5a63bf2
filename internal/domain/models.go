package domain

import "time"

type Claim struct {
	ID                 int64               `json:"id,omitempty"`
	ClaimReference     string              `json:"claim_reference"`
	Status             ClaimStatus         `json:"status"`
	AirlineName        string              `json:"airline_name"`
	FlightNumber       string              `json:"flight_number"`
	FlightDate         string              `json:"flight_date"`
	Route              *string             `json:"route,omitempty"`
	DisruptionType     string              `json:"disruption_type,omitempty"`
	DelayHours         *float64            `json:"delay_hours,omitempty"`
	CompensationAmount float64             `json:"compensation_amount"`
	IsEligible         *bool               `json:"is_eligible,omitempty"`
	ResolutionNotes    *string             `json:"resolution_notes,omitempty"`
	EligibilityDetails *EligibilityDetails `json:"eligibility_details,omitempty"`
	SubmittedAt        *string             `json:"submitted_at,omitempty"`
	CreatedAt          *string             `json:"created_at,omitempty"`
}

type EligibilityDetails struct {
	IsEligible         bool            `json:"is_eligible"`
	CompensationAmount float64         `json:"compensation_amount"`
	Currency           string          `json:"currency"`
	Reason             string          `json:"reason"`
	LegalBasis         string          `json:"legal_basis,omitempty"`
	AirlineObligations map[string]bool `json:"airline_obligations,omitempty"`
	ExemptionApplied   bool            `json:"exemption_applied,omitempty"`
	ExemptionReason    *string         `json:"exemption_reason,omitempty"`
}

// DraftClaim is the intake form before submission.
type DraftClaim struct {
	FlightNumber  string `json:"flight_number"`
	FlightDate    string `json:"flight_date"`
	AirlineName   string `json:"airline_name"`
	Reason        Reason `json:"reason"`
	PNR           string `json:"pnr"`
	PassengerName string `json:"passenger_name"`
	RouteFrom     string `json:"route_from"`
	RouteTo       string `json:"route_to"`
}

// ExtractionResult is scanner output. Any field may be nil.
type ExtractionResult struct {
	FlightNumber   *string `json:"flight_number"`
	FlightDate     *string `json:"flight_date"`
	AirlineName    *string `json:"airline_name"`
	PNR            *string `json:"pnr"`
	PassengerName  *string `json:"passenger_name"`
	RouteFrom      *string `json:"route_from"`
	RouteTo        *string `json:"route_to"`
	DisruptionType *string `json:"disruption_type"`
}

type Draft struct {
	ID              string     `json:"id"`
	UserID          int64      `json:"user_id"`
	Fields          DraftClaim `json:"fields"`
	ScanStatus      ScanStatus `json:"scan_status"`
	ScanMessage     *string    `json:"scan_message,omitempty"`
	TicketObjectKey *string    `json:"ticket_object_key,omitempty"`
	ClaimReference  *string    `json:"claim_reference,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type ClaimSnapshot struct {
	ClaimReference string         `json:"claim_reference"`
	Status         ClaimStatus    `json:"status"`
	Submitted      PhaseState     `json:"submitted"`
	InReview       PhaseState     `json:"in_review"`
	Decision       PhaseState     `json:"decision"`
	DecisionTitle  string         `json:"decision_title"`
	FollowUpAction FollowUpAction `json:"follow_up_action"`
	RecordedAt     time.Time      `json:"recorded_at"`
}

type ValidationResult struct {
	FailedRules []string `json:"failed_rules"`
}
