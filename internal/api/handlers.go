package api

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"flyclaim-tracker/internal/config"
	"flyclaim-tracker/internal/domain"
	"flyclaim-tracker/internal/flyclaim"
	"flyclaim-tracker/internal/storage"
	appTemporal "flyclaim-tracker/internal/temporal"
	"flyclaim-tracker/pkg/logger"
)

const claimNotFoundMessage = "Claim not found. Please check the reference number."

type DraftStore interface {
	Ping(ctx context.Context) error
	CreateDraft(ctx context.Context, draft domain.Draft) error
	GetDraft(ctx context.Context, draftID string) (domain.Draft, error)
	SaveDraft(ctx context.Context, draftID string, fields domain.DraftClaim) error
	SetTicketObjectKey(ctx context.Context, draftID, objectKey string) error
	SetScanStatus(ctx context.Context, draftID string, status domain.ScanStatus, message *string) error
	MarkDraftSubmitted(ctx context.Context, draftID, reference string) error
	InsertDraftEvent(ctx context.Context, draftID string, state domain.DraftEventState, detail any) error
	SubmittedReference(ctx context.Context, draftID string) (string, error)
	ListSnapshots(ctx context.Context, reference string) ([]domain.ClaimSnapshot, error)
}

type TicketStore interface {
	PutTicketImage(ctx context.Context, draftID, filename, contentType string, content []byte) (string, error)
}

// WorkflowClient is the part of the Temporal client the API uses.
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	SignalWorkflow(ctx context.Context, workflowID string, runID string, signalName string, arg interface{}) error
}

type Handler struct {
	cfg       config.Config
	store     DraftStore
	tickets   TicketStore
	upstream  flyclaim.Client
	workflows WorkflowClient
	log       *logger.Logger
	now       func() time.Time
}

func NewHandler(cfg config.Config, store DraftStore, tickets TicketStore, upstream flyclaim.Client, workflows WorkflowClient, log *logger.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		store:     store,
		tickets:   tickets,
		upstream:  upstream,
		workflows: workflows,
		log:       log.Named("api"),
		now:       time.Now,
	}
}

type createDraftRequest struct {
	UserID int64 `json:"user_id"`
}

type claimView struct {
	Claim       domain.Claim           `json:"claim"`
	StatusLabel string                 `json:"status_label"`
	Progress    domain.Progress        `json:"progress"`
	Eligibility domain.EligibilityView `json:"eligibility"`
	FollowUp    domain.FollowUp        `json:"follow_up"`
}

type claimSummary struct {
	Claim       domain.Claim    `json:"claim"`
	StatusLabel string          `json:"status_label"`
	Progress    domain.Progress `json:"progress"`
}

type submitResponse struct {
	Claim      domain.Claim    `json:"claim"`
	Progress   domain.Progress `json:"progress"`
	WorkflowID string          `json:"workflow_id"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req flyclaim.Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Password == "" || (req.Phone == "" && req.Email == "") {
		writeError(w, http.StatusBadRequest, "phone or email and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.UpstreamTimeout())
	defer cancel()
	user, err := h.upstream.Login(ctx, req)
	if err != nil {
		h.writeUpstreamError(w, err, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req flyclaim.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Phone == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "phone and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.UpstreamTimeout())
	defer cancel()
	user, err := h.upstream.Signup(ctx, req)
	if err != nil {
		h.writeUpstreamError(w, err, "signup failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req createDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	now := h.now().UTC()
	draft := domain.Draft{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		Fields:     domain.DraftClaim{Reason: domain.ReasonDelay},
		ScanStatus: domain.ScanNone,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.store.CreateDraft(ctx, draft); err != nil {
		h.log.Error("create draft", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create draft")
		return
	}
	if err := h.store.InsertDraftEvent(ctx, draft.ID, domain.DraftEventCreated, map[string]any{"user_id": req.UserID}); err != nil {
		h.log.Warn("record draft event", logger.String("draft_id", draft.ID), logger.Error(err))
	}
	writeJSON(w, http.StatusCreated, draft)
}

func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request, draftID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	draft, ok := h.loadDraft(ctx, w, draftID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request, draftID string) {
	var fields domain.DraftClaim
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if fields.Reason == "" {
		fields.Reason = domain.ReasonDelay
	}
	if !fields.Reason.IsValid() {
		writeError(w, http.StatusBadRequest, "reason must be one of delay, cancellation, denied")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	draft, ok := h.loadDraft(ctx, w, draftID)
	if !ok {
		return
	}
	if draft.ClaimReference != nil {
		writeJSON(w, http.StatusConflict, map[string]any{"error": "draft already submitted", "claim_reference": *draft.ClaimReference})
		return
	}

	if err := h.store.SaveDraft(ctx, draftID, fields); err != nil {
		h.log.Error("save draft", logger.String("draft_id", draftID), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save draft")
		return
	}
	if err := h.store.InsertDraftEvent(ctx, draftID, domain.DraftEventEdited, fields); err != nil {
		h.log.Warn("record draft event", logger.String("draft_id", draftID), logger.Error(err))
	}
	draft.Fields = fields
	draft.UpdatedAt = h.now().UTC()
	writeJSON(w, http.StatusOK, draft)
}

func (h *Handler) UploadTicket(w http.ResponseWriter, r *http.Request, draftID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.AllowedUploadBytes+1<<20)
	if err := r.ParseMultipartForm(h.cfg.AllowedUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart payload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file form field is required")
		return
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, h.cfg.AllowedUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if int64(len(body)) > h.cfg.AllowedUploadBytes {
		writeError(w, http.StatusBadRequest, "file exceeds size limit")
		return
	}
	filename := storage.TicketFilename(header.Filename)
	if filename == "" {
		writeError(w, http.StatusBadRequest, "file name is required")
		return
	}
	contentType, ok := detectTicketContentType(filename, body)
	if !ok {
		writeError(w, http.StatusUnsupportedMediaType, "ticket must be a JPEG, PNG, WEBP or HEIC image")
		return
	}

	draft, ok := h.loadDraft(ctx, w, draftID)
	if !ok {
		return
	}
	if draft.ClaimReference != nil {
		writeJSON(w, http.StatusConflict, map[string]any{"error": "draft already submitted", "claim_reference": *draft.ClaimReference})
		return
	}

	objectKey, err := h.tickets.PutTicketImage(ctx, draftID, filename, contentType, body)
	if err != nil {
		h.log.Error("store ticket", logger.String("draft_id", draftID), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to upload ticket")
		return
	}
	if err := h.store.SetTicketObjectKey(ctx, draftID, objectKey); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record upload")
		return
	}
	if err := h.store.SetScanStatus(ctx, draftID, domain.ScanPending, nil); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record upload")
		return
	}
	if err := h.store.InsertDraftEvent(ctx, draftID, domain.DraftEventTicketStored, map[string]any{"object_key": objectKey, "content_type": contentType}); err != nil {
		h.log.Warn("record draft event", logger.String("draft_id", draftID), logger.Error(err))
	}

	// The scan workflow is started by the event handler from the bucket notification.
	writeJSON(w, http.StatusAccepted, map[string]any{
		"draft_id":    draftID,
		"object_key":  objectKey,
		"scan_status": domain.ScanPending,
		"workflow_id": appTemporal.TicketScanWorkflowID(h.cfg.WorkflowIDPrefix, draftID, objectKey),
	})
}

func (h *Handler) SubmitDraft(w http.ResponseWriter, r *http.Request, draftID string) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.UpstreamTimeout()+5*time.Second)
	defer cancel()

	draft, ok := h.loadDraft(ctx, w, draftID)
	if !ok {
		return
	}
	if draft.ClaimReference != nil {
		writeJSON(w, http.StatusConflict, map[string]any{"error": "draft already submitted", "claim_reference": *draft.ClaimReference})
		return
	}

	// A claim filed earlier whose reference never reached the draft row.
	filed, err := h.store.SubmittedReference(ctx, draftID)
	if err != nil {
		h.log.Error("load submission events", logger.String("draft_id", draftID), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch draft")
		return
	}
	if filed != "" {
		if err := h.store.MarkDraftSubmitted(ctx, draftID, filed); err != nil {
			h.log.Error("mark draft submitted", logger.String("draft_id", draftID), logger.String("reference", filed), logger.Error(err))
		}
		writeJSON(w, http.StatusConflict, map[string]any{"error": "draft already submitted", "claim_reference": filed})
		return
	}

	fields := domain.FillAirline(draft.Fields)
	if validation := domain.ValidateDraft(fields); !domain.ValidationPassed(validation) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "draft is incomplete", "failed_rules": validation.FailedRules})
		return
	}

	claim, err := h.upstream.SubmitClaim(ctx, draft.UserID, fields)
	if err != nil {
		h.writeUpstreamError(w, err, "failed to submit claim")
		return
	}

	// The event goes first so a retry finds the reference even if the draft update fails.
	if err := h.store.InsertDraftEvent(ctx, draftID, domain.DraftEventSubmitted, map[string]any{"claim_reference": claim.ClaimReference}); err != nil {
		h.log.Error("record draft event", logger.String("draft_id", draftID), logger.String("reference", claim.ClaimReference), logger.Error(err))
	}
	markErr := h.store.MarkDraftSubmitted(ctx, draftID, claim.ClaimReference)
	if markErr != nil {
		h.log.Error("mark draft submitted", logger.String("draft_id", draftID), logger.String("reference", claim.ClaimReference), logger.Error(markErr))
	}

	workflowID := h.startTracking(ctx, claim.ClaimReference)
	if markErr != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":           "claim was filed but the draft could not be updated",
			"claim_reference": claim.ClaimReference,
			"workflow_id":     workflowID,
		})
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{
		Claim:      claim,
		Progress:   domain.ProjectPhases(claim.Status),
		WorkflowID: workflowID,
	})
}

func (h *Handler) GetClaim(w http.ResponseWriter, r *http.Request, reference string) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.UpstreamTimeout())
	defer cancel()

	claim, err := h.upstream.GetClaim(ctx, reference)
	if err != nil {
		if !errors.Is(err, flyclaim.ErrNotFound) {
			h.log.Warn("fetch claim", logger.String("reference", reference), logger.Error(err))
		}
		writeError(w, http.StatusNotFound, claimNotFoundMessage)
		return
	}
	writeJSON(w, http.StatusOK, h.viewOf(claim))
}

func (h *Handler) ProcessClaim(w http.ResponseWriter, r *http.Request, reference string) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.UpstreamTimeout())
	defer cancel()

	claim, err := h.upstream.ProcessClaim(ctx, reference)
	if err != nil {
		if errors.Is(err, flyclaim.ErrNotFound) {
			writeError(w, http.StatusNotFound, claimNotFoundMessage)
			return
		}
		h.writeUpstreamError(w, err, "failed to process claim")
		return
	}

	workflowID := appTemporal.ClaimTrackingWorkflowID(h.cfg.WorkflowIDPrefix, reference)
	if err := h.workflows.SignalWorkflow(ctx, workflowID, "", appTemporal.RefreshClaimSignalName, appTemporal.RefreshClaimSignal{RequestedBy: "process"}); err != nil {
		var notFound *serviceerror.NotFound
		if !errors.As(err, &notFound) {
			h.log.Warn("signal tracking workflow", logger.String("workflow_id", workflowID), logger.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, h.viewOf(claim))
}

func (h *Handler) ClaimHistory(w http.ResponseWriter, r *http.Request, reference string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	snapshots, err := h.store.ListSnapshots(ctx, reference)
	if err != nil {
		h.log.Error("list snapshots", logger.String("reference", reference), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch claim history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"claim_reference": reference, "snapshots": snapshots})
}

func (h *Handler) ListUserClaims(w http.ResponseWriter, r *http.Request, rawUserID string) {
	userID, err := strconv.ParseInt(rawUserID, 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.UpstreamTimeout())
	defer cancel()

	claims, err := h.upstream.ListUserClaims(ctx, userID)
	if err != nil {
		h.writeUpstreamError(w, err, "failed to fetch claims")
		return
	}

	items := make([]claimSummary, 0, len(claims))
	for _, c := range claims {
		items = append(items, claimSummary{Claim: c, StatusLabel: c.Status.Label(), Progress: domain.ProjectPhases(c.Status)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) viewOf(claim domain.Claim) claimView {
	return claimView{
		Claim:       claim,
		StatusLabel: claim.Status.Label(),
		Progress:    domain.ProjectPhases(claim.Status),
		Eligibility: domain.Present(claim.EligibilityDetails),
		FollowUp:    domain.AssessFollowUp(claim, h.now().UTC()),
	}
}

// startTracking starts the polling workflow for a newly submitted claim and
// returns its id. Failures are logged; the claim is already filed upstream.
func (h *Handler) startTracking(ctx context.Context, reference string) string {
	workflowID := appTemporal.ClaimTrackingWorkflowID(h.cfg.WorkflowIDPrefix, reference)
	_, err := h.workflows.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: h.cfg.TemporalTaskQueue,
	}, appTemporal.ClaimTrackingWorkflowName, appTemporal.ClaimTrackingInput{
		Reference:    reference,
		PollInterval: h.cfg.TrackPollInterval,
		MaxPolls:     h.cfg.TrackMaxPolls,
	})
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if !errors.As(err, &alreadyStarted) {
			h.log.Error("start tracking workflow", logger.String("workflow_id", workflowID), logger.Error(err))
		}
	}
	return workflowID
}

func (h *Handler) loadDraft(ctx context.Context, w http.ResponseWriter, draftID string) (domain.Draft, bool) {
	draft, err := h.store.GetDraft(ctx, draftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "draft not found")
			return domain.Draft{}, false
		}
		h.log.Error("load draft", logger.String("draft_id", draftID), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch draft")
		return domain.Draft{}, false
	}
	return draft, true
}

// writeUpstreamError passes client errors from the FlyClaim API through and
// reports everything else as a bad gateway.
func (h *Handler) writeUpstreamError(w http.ResponseWriter, err error, fallback string) {
	var apiErr *flyclaim.APIError
	switch {
	case errors.Is(err, flyclaim.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &apiErr) && apiErr.StatusCode < 500:
		msg := apiErr.Message
		if msg == "" {
			msg = fallback
		}
		writeError(w, apiErr.StatusCode, msg)
	default:
		h.log.Error(fallback, logger.Error(err))
		writeError(w, http.StatusBadGateway, fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
