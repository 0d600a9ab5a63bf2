package temporal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"flyclaim-tracker/internal/domain"
	"flyclaim-tracker/internal/flyclaim"
)

const (
	ClaimNotFoundErrorType = "ClaimNotFound"

	// ScanFailedMessage is shown to the passenger when a ticket cannot be read.
	ScanFailedMessage = "Failed to scan ticket. Please enter details manually."
)

type ActivityStore interface {
	GetDraft(ctx context.Context, draftID string) (domain.Draft, error)
	SaveDraft(ctx context.Context, draftID string, fields domain.DraftClaim) error
	SetScanStatus(ctx context.Context, draftID string, status domain.ScanStatus, message *string) error
	InsertDraftEvent(ctx context.Context, draftID string, state domain.DraftEventState, detail any) error
	InsertSnapshot(ctx context.Context, snap domain.ClaimSnapshot) (bool, error)
}

type TicketStore interface {
	GetTicketImage(ctx context.Context, objectKey string) ([]byte, string, error)
}

// Upstream is the slice of the FlyClaim API the workers call.
type Upstream interface {
	ExtractTicket(ctx context.Context, filename string, contentType string, image []byte) (domain.ExtractionResult, error)
	GetClaim(ctx context.Context, reference string) (domain.Claim, error)
}

type Activities struct {
	Store    ActivityStore
	Tickets  TicketStore
	Upstream Upstream
	Now      func() time.Time
}

type ScanTicketInput struct {
	DraftID   string
	ObjectKey string
	Filename  string
}

type ScanTicketOutput struct {
	Extraction domain.ExtractionResult
}

type MergeDraftInput struct {
	DraftID    string
	Extraction domain.ExtractionResult
}

type MergeDraftOutput struct {
	Fields  domain.DraftClaim
	Skipped bool
}

type MarkScanFailedInput struct {
	DraftID string
	Cause   string
}

type FetchClaimInput struct {
	Reference string
}

type RecordSnapshotInput struct {
	Claim domain.Claim
}

type RecordSnapshotOutput struct {
	Snapshot domain.ClaimSnapshot
	Changed  bool
	Settled  bool
}

func (a *Activities) ScanTicketActivity(ctx context.Context, input ScanTicketInput) (ScanTicketOutput, error) {
	image, contentType, err := a.Tickets.GetTicketImage(ctx, input.ObjectKey)
	if err != nil {
		return ScanTicketOutput{}, fmt.Errorf("load ticket %s: %w", input.ObjectKey, err)
	}
	extraction, err := a.Upstream.ExtractTicket(ctx, input.Filename, contentType, image)
	if err != nil {
		return ScanTicketOutput{}, fmt.Errorf("extract ticket %s: %w", input.ObjectKey, err)
	}
	return ScanTicketOutput{Extraction: extraction}, nil
}

func (a *Activities) MergeDraftActivity(ctx context.Context, input MergeDraftInput) (MergeDraftOutput, error) {
	draft, err := a.Store.GetDraft(ctx, input.DraftID)
	if err != nil {
		return MergeDraftOutput{}, err
	}
	// A submitted draft is frozen; a late scan must not rewrite it.
	if draft.ClaimReference != nil {
		activity.GetLogger(ctx).Info("draft already submitted, skipping scan merge", "draft_id", input.DraftID)
		return MergeDraftOutput{Fields: draft.Fields, Skipped: true}, nil
	}

	merged := domain.FillAirline(domain.Merge(draft.Fields, &input.Extraction))
	if err := a.Store.SaveDraft(ctx, input.DraftID, merged); err != nil {
		return MergeDraftOutput{}, err
	}
	if err := a.Store.SetScanStatus(ctx, input.DraftID, domain.ScanCompleted, nil); err != nil {
		return MergeDraftOutput{}, err
	}
	if err := a.Store.InsertDraftEvent(ctx, input.DraftID, domain.DraftEventScanMerged, input.Extraction); err != nil {
		return MergeDraftOutput{}, err
	}
	return MergeDraftOutput{Fields: merged}, nil
}

func (a *Activities) MarkScanFailedActivity(ctx context.Context, input MarkScanFailedInput) error {
	message := ScanFailedMessage
	if err := a.Store.SetScanStatus(ctx, input.DraftID, domain.ScanFailed, &message); err != nil {
		return err
	}
	return a.Store.InsertDraftEvent(ctx, input.DraftID, domain.DraftEventScanFailed, map[string]any{"cause": input.Cause})
}

func (a *Activities) FetchClaimActivity(ctx context.Context, input FetchClaimInput) (domain.Claim, error) {
	claim, err := a.Upstream.GetClaim(ctx, input.Reference)
	if err != nil {
		if errors.Is(err, flyclaim.ErrNotFound) {
			return domain.Claim{}, temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("claim %s not found", input.Reference), ClaimNotFoundErrorType, err)
		}
		return domain.Claim{}, err
	}
	return claim, nil
}

func (a *Activities) RecordSnapshotActivity(ctx context.Context, input RecordSnapshotInput) (RecordSnapshotOutput, error) {
	now := a.now()
	progress := domain.ProjectPhases(input.Claim.Status)
	followUp := domain.AssessFollowUp(input.Claim, now)

	snap := domain.ClaimSnapshot{
		ClaimReference: input.Claim.ClaimReference,
		Status:         input.Claim.Status,
		Submitted:      progress.Submitted().State,
		InReview:       progress.InReview().State,
		Decision:       progress.Decision().State,
		DecisionTitle:  progress.Decision().Title,
		FollowUpAction: followUp.Action,
		RecordedAt:     now,
	}
	changed, err := a.Store.InsertSnapshot(ctx, snap)
	if err != nil {
		return RecordSnapshotOutput{}, err
	}
	if changed && followUp.Action != domain.FollowUpNone {
		activity.GetLogger(ctx).Info("claim needs follow-up",
			"reference", snap.ClaimReference,
			"action", string(followUp.Action),
			"reason", followUp.Reason)
	}
	return RecordSnapshotOutput{Snapshot: snap, Changed: changed, Settled: progress.IsSettled()}, nil
}

func (a *Activities) now() time.Time {
	if a.Now != nil {
		return a.Now().UTC()
	}
	return time.Now().UTC()
}
