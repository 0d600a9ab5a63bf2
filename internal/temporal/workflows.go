package temporal

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"flyclaim-tracker/internal/domain"
)

const (
	TicketScanWorkflowName    = "TicketScanWorkflow"
	ClaimTrackingWorkflowName = "ClaimTrackingWorkflow"

	defaultPollInterval = 10 * time.Minute
	defaultMaxPolls     = 200
)

type TicketScanInput struct {
	DraftID   string
	ObjectKey string
	Filename  string
}

type TicketScanResult struct {
	DraftID    string
	ScanStatus domain.ScanStatus
	Fields     domain.DraftClaim
}

// TicketScanWorkflow reads an archived ticket through the upstream scanner and
// merges the result into the draft. Scanner failures degrade to manual entry.
func TicketScanWorkflow(ctx workflow.Context, input TicketScanInput) (TicketScanResult, error) {
	ctxScan := mustActivityContext(ctx, ActivityPolicyScanTicket)
	ctxMerge := mustActivityContext(ctx, ActivityPolicyMergeDraft)
	ctxFailed := mustActivityContext(ctx, ActivityPolicyMarkScanFailed)

	var scanned ScanTicketOutput
	if err := workflow.ExecuteActivity(ctxScan, (*Activities).ScanTicketActivity, ScanTicketInput(input)).Get(ctx, &scanned); err != nil {
		workflow.GetLogger(ctx).Warn("ticket scan failed", "draft_id", input.DraftID, "error", err)
		if markErr := workflow.ExecuteActivity(ctxFailed, (*Activities).MarkScanFailedActivity, MarkScanFailedInput{
			DraftID: input.DraftID,
			Cause:   err.Error(),
		}).Get(ctx, nil); markErr != nil {
			return TicketScanResult{}, markErr
		}
		return TicketScanResult{DraftID: input.DraftID, ScanStatus: domain.ScanFailed}, nil
	}

	var merged MergeDraftOutput
	if err := workflow.ExecuteActivity(ctxMerge, (*Activities).MergeDraftActivity, MergeDraftInput{
		DraftID:    input.DraftID,
		Extraction: scanned.Extraction,
	}).Get(ctx, &merged); err != nil {
		return TicketScanResult{}, err
	}

	return TicketScanResult{DraftID: input.DraftID, ScanStatus: domain.ScanCompleted, Fields: merged.Fields}, nil
}

type ClaimTrackingInput struct {
	Reference    string
	PollInterval time.Duration
	MaxPolls     int
}

type ClaimTrackingResult struct {
	Reference     string
	Status        domain.ClaimStatus
	DecisionTitle string
	Polls         int
}

// ClaimTrackingState is served by the trackingState query.
type ClaimTrackingState struct {
	Reference   string
	LastStatus  domain.ClaimStatus
	LastChecked time.Time
	Polls       int
	Settled     bool
}

// ClaimTrackingWorkflow polls a submitted claim until its decision phase
// settles. A refreshClaim signal triggers an immediate poll. After MaxPolls
// polls the workflow continues as new.
func ClaimTrackingWorkflow(ctx workflow.Context, input ClaimTrackingInput) (ClaimTrackingResult, error) {
	if input.PollInterval <= 0 {
		input.PollInterval = defaultPollInterval
	}
	if input.MaxPolls <= 0 {
		input.MaxPolls = defaultMaxPolls
	}

	state := ClaimTrackingState{Reference: input.Reference}
	if err := workflow.SetQueryHandler(ctx, TrackingStateQueryName, func() (ClaimTrackingState, error) {
		return state, nil
	}); err != nil {
		return ClaimTrackingResult{}, err
	}

	ctxFetch := mustActivityContext(ctx, ActivityPolicyFetchClaim)
	ctxRecord := mustActivityContext(ctx, ActivityPolicyRecordSnapshot)
	refreshCh := workflow.GetSignalChannel(ctx, RefreshClaimSignalName)
	logger := workflow.GetLogger(ctx)

	for state.Polls < input.MaxPolls {
		state.Polls++

		var claim domain.Claim
		err := workflow.ExecuteActivity(ctxFetch, (*Activities).FetchClaimActivity, FetchClaimInput{Reference: input.Reference}).Get(ctx, &claim)
		switch {
		case isClaimNotFound(err):
			return ClaimTrackingResult{}, err
		case err != nil:
			logger.Warn("claim fetch failed, waiting for next poll", "reference", input.Reference, "error", err)
		default:
			var recorded RecordSnapshotOutput
			if err := workflow.ExecuteActivity(ctxRecord, (*Activities).RecordSnapshotActivity, RecordSnapshotInput{Claim: claim}).Get(ctx, &recorded); err != nil {
				return ClaimTrackingResult{}, err
			}
			state.LastStatus = claim.Status
			state.LastChecked = recorded.Snapshot.RecordedAt
			if recorded.Settled {
				state.Settled = true
				return ClaimTrackingResult{
					Reference:     input.Reference,
					Status:        claim.Status,
					DecisionTitle: recorded.Snapshot.DecisionTitle,
					Polls:         state.Polls,
				}, nil
			}
		}

		waitForNextPoll(ctx, refreshCh, input.PollInterval)
	}

	// The next run polls immediately, so pending refreshes are consumed here.
	var pending RefreshClaimSignal
	for refreshCh.ReceiveAsync(&pending) {
	}
	return ClaimTrackingResult{}, workflow.NewContinueAsNewError(ctx, ClaimTrackingWorkflowName, input)
}

func waitForNextPoll(ctx workflow.Context, refreshCh workflow.ReceiveChannel, interval time.Duration) {
	timerCtx, cancelTimer := workflow.WithCancel(ctx)
	defer cancelTimer()

	selector := workflow.NewSelector(ctx)
	selector.AddFuture(workflow.NewTimer(timerCtx, interval), func(workflow.Future) {})
	selector.AddReceive(refreshCh, func(c workflow.ReceiveChannel, _ bool) {
		var signal RefreshClaimSignal
		c.Receive(ctx, &signal)
		workflow.GetLogger(ctx).Info("claim refresh requested", "requested_by", signal.RequestedBy)
	})
	selector.Select(ctx)
}

func isClaimNotFound(err error) bool {
	var appErr *temporal.ApplicationError
	return errors.As(err, &appErr) && appErr.Type() == ClaimNotFoundErrorType
}
