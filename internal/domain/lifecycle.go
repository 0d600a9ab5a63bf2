package domain

const (
	PhaseTitleSubmitted = "Submitted"
	PhaseTitleInReview  = "In Review"
	PhaseTitleDecision  = "Decision"
	PhaseTitleApproved  = "Approved"
	PhaseTitleRejected  = "Rejected"
)

type Phase struct {
	Title string     `json:"title"`
	State PhaseState `json:"status"`
}

// Progress is the ordered Submitted, In Review, Decision triple.
type Progress [3]Phase

func (p Progress) Submitted() Phase { return p[0] }
func (p Progress) InReview() Phase { return p[1] }
func (p Progress) Decision() Phase { return p[2] }

// IsSettled reports whether the decision phase has reached a final state.
func (p Progress) IsSettled() bool {
	s := p.Decision().State
	return s == PhaseCompleted || s == PhaseError
}

// Statuses the upstream workflow uses while the airline or a regulator is handling the claim.
var reviewStatuses = map[ClaimStatus]struct{}{
	StatusSubmittedToAirline: {},
	StatusAwaitingResponse:   {},
	StatusAirlineResponded:   {},
	StatusEscalatedAirSewa:   {},
	StatusEscalatedDGCA:      {},
}

var terminalStatuses = map[ClaimStatus]struct{}{
	StatusResolved:  {},
	StatusRejected:  {},
	StatusPaid:      {},
	StatusCancelled: {},
}

type decisionOutcome struct {
	State PhaseState
	Title string
}

var decisionOutcomes = map[ClaimStatus]decisionOutcome{
	StatusResolved:  {State: PhaseCompleted, Title: PhaseTitleApproved},
	StatusPaid:      {State: PhaseCompleted, Title: PhaseTitleApproved},
	StatusRejected:  {State: PhaseError, Title: PhaseTitleRejected},
	StatusCancelled: {State: PhaseError, Title: PhaseTitleRejected},
}

func IsReviewStatus(status ClaimStatus) bool {
	_, ok := reviewStatuses[status]
	return ok
}

func IsTerminalStatus(status ClaimStatus) bool {
	_, ok := terminalStatuses[status]
	return ok
}

// ProjectPhases collapses a raw claim status into the three-step progress view.
// Unknown and empty statuses fall into the early bucket.
func ProjectPhases(status ClaimStatus) Progress {
	progress := Progress{
		{Title: PhaseTitleSubmitted, State: PhaseCompleted},
		{Title: PhaseTitleInReview, State: PhaseCurrent},
		{Title: PhaseTitleDecision, State: PhaseUpcoming},
	}

	switch {
	case IsReviewStatus(status):
		progress[1].State = PhaseCurrent
	case IsTerminalStatus(status):
		progress[1].State = PhaseCompleted
	default:
		progress[1].State = PhaseCurrent
	}

	if outcome, ok := decisionOutcomes[status]; ok {
		progress[2] = Phase{Title: outcome.Title, State: outcome.State}
	} else if progress[1].State == PhaseCompleted {
		// Reached only if a terminal status is added without a decision outcome.
		progress[2].State = PhaseCurrent
	}

	return progress
}
