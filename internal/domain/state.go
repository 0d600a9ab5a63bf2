package domain

import "strings"

type ClaimStatus string

const (
	StatusInitiated          ClaimStatus = "initiated"
	StatusEligibilityChecked ClaimStatus = "eligibility_checked"
	StatusDocumentGenerated  ClaimStatus = "document_generated"
	StatusSubmittedToAirline ClaimStatus = "submitted_to_airline"
	StatusAwaitingResponse   ClaimStatus = "awaiting_response"
	StatusAirlineResponded   ClaimStatus = "airline_responded"
	StatusEscalatedAirSewa   ClaimStatus = "escalated_airsewa"
	StatusEscalatedDGCA      ClaimStatus = "escalated_dgca"
	StatusResolved           ClaimStatus = "resolved"
	StatusRejected           ClaimStatus = "rejected"
	StatusPaid               ClaimStatus = "paid"
	StatusCancelled          ClaimStatus = "cancelled"
)

// AllStatuses lists the closed status vocabulary in lifecycle order.
var AllStatuses = []ClaimStatus{
	StatusInitiated,
	StatusEligibilityChecked,
	StatusDocumentGenerated,
	StatusSubmittedToAirline,
	StatusAwaitingResponse,
	StatusAirlineResponded,
	StatusEscalatedAirSewa,
	StatusEscalatedDGCA,
	StatusResolved,
	StatusRejected,
	StatusPaid,
	StatusCancelled,
}

func (s ClaimStatus) IsKnown() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Label renders the status the way the dashboard badge shows it.
func (s ClaimStatus) Label() string {
	return strings.ReplaceAll(string(s), "_", " ")
}

type PhaseState string

const (
	PhaseCompleted PhaseState = "completed"
	PhaseCurrent   PhaseState = "current"
	PhaseUpcoming  PhaseState = "upcoming"
	PhaseError     PhaseState = "error"
)

type Reason string

const (
	ReasonDelay        Reason = "delay"
	ReasonCancellation Reason = "cancellation"
	ReasonDenied       Reason = "denied"
)

func (r Reason) IsValid() bool {
	switch r {
	case ReasonDelay, ReasonCancellation, ReasonDenied:
		return true
	default:
		return false
	}
}

type ScanStatus string

const (
	ScanNone      ScanStatus = "none"
	ScanPending   ScanStatus = "pending"
	ScanCompleted ScanStatus = "completed"
	ScanFailed    ScanStatus = "failed"
)

type DraftEventState string

const (
	DraftEventCreated      DraftEventState = "CREATED"
	DraftEventEdited       DraftEventState = "EDITED"
	DraftEventTicketStored DraftEventState = "TICKET_STORED"
	DraftEventScanMerged   DraftEventState = "SCAN_MERGED"
	DraftEventScanFailed   DraftEventState = "SCAN_FAILED"
	DraftEventSubmitted    DraftEventState = "SUBMITTED"
)
