package temporal

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"flyclaim-tracker/internal/domain"
	"flyclaim-tracker/internal/flyclaim"
)

type activityTrace struct {
	mu      sync.Mutex
	started []string
}

func (t *activityTrace) record(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = append(t.started, name)
}

func (t *activityTrace) order() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.started...)
}

func newTracedEnv(acts *Activities) (*testsuite.TestWorkflowEnvironment, *activityTrace) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	trace := &activityTrace{}
	env.SetOnActivityStartedListener(func(info *activity.Info, _ context.Context, _ converter.EncodedValues) {
		trace.record(info.ActivityType.Name)
	})

	env.RegisterWorkflow(TicketScanWorkflow)
	env.RegisterWorkflow(ClaimTrackingWorkflow)
	env.RegisterActivity(acts.ScanTicketActivity)
	env.RegisterActivity(acts.MergeDraftActivity)
	env.RegisterActivity(acts.MarkScanFailedActivity)
	env.RegisterActivity(acts.FetchClaimActivity)
	env.RegisterActivity(acts.RecordSnapshotActivity)
	return env, trace
}

var _ = Describe("TicketScanWorkflow", func() {
	var (
		store    *fakeStore
		upstream *stubUpstream
		acts     *Activities
	)

	BeforeEach(func() {
		store = newFakeStore()
		store.drafts["draft-1"] = domain.Draft{
			ID:         "draft-1",
			UserID:     42,
			ScanStatus: domain.ScanPending,
			Fields: domain.DraftClaim{
				FlightNumber: "AI-101",
				PNR:          "KEEP01",
				Reason:       domain.ReasonDenied,
			},
		}
		upstream = &stubUpstream{}
		acts = &Activities{
			Store:    store,
			Tickets:  &fakeTickets{images: map[string][]byte{"draft-1/boarding.png": []byte("png")}},
			Upstream: upstream,
		}
	})

	It("merges scanned fields into the draft", func() {
		upstream.extraction = domain.ExtractionResult{
			FlightNumber:   strPtr("6E-2341"),
			FlightDate:     strPtr("2024-01-15"),
			RouteFrom:      strPtr("Delhi"),
			RouteTo:        strPtr("Mumbai"),
			PNR:            strPtr(""),
			DisruptionType: strPtr("cancellation"),
		}
		env, trace := newTracedEnv(acts)

		By("running the scan for an uploaded ticket")
		env.ExecuteWorkflow(TicketScanWorkflow, TicketScanInput{
			DraftID:   "draft-1",
			ObjectKey: "draft-1/boarding.png",
			Filename:  "boarding.png",
		})

		Expect(env.IsWorkflowCompleted()).To(BeTrue())
		Expect(env.GetWorkflowError()).ToNot(HaveOccurred())

		var result TicketScanResult
		Expect(env.GetWorkflowResult(&result)).To(Succeed())
		Expect(result.ScanStatus).To(Equal(domain.ScanCompleted))
		Expect(trace.order()).To(Equal([]string{"ScanTicketActivity", "MergeDraftActivity"}))

		By("checking the persisted draft")
		saved := store.draft("draft-1")
		Expect(saved.ScanStatus).To(Equal(domain.ScanCompleted))
		Expect(saved.Fields).To(Equal(domain.DraftClaim{
			FlightNumber: "6E-2341",
			FlightDate:   "2024-01-15",
			AirlineName:  "IndiGo",
			Reason:       domain.ReasonCancellation,
			PNR:          "KEEP01",
			RouteFrom:    "Delhi",
			RouteTo:      "Mumbai",
		}))
		Expect(result.Fields).To(Equal(saved.Fields))
	})

	It("falls back to manual entry when the scanner fails", func() {
		upstream.extractErr = errors.New("ocr service unavailable")
		env, trace := newTracedEnv(acts)

		env.ExecuteWorkflow(TicketScanWorkflow, TicketScanInput{
			DraftID:   "draft-1",
			ObjectKey: "draft-1/boarding.png",
			Filename:  "boarding.png",
		})

		Expect(env.IsWorkflowCompleted()).To(BeTrue())
		Expect(env.GetWorkflowError()).ToNot(HaveOccurred())

		var result TicketScanResult
		Expect(env.GetWorkflowResult(&result)).To(Succeed())
		Expect(result.ScanStatus).To(Equal(domain.ScanFailed))
		Expect(trace.order()).To(Equal([]string{"ScanTicketActivity", "MarkScanFailedActivity"}))

		saved := store.draft("draft-1")
		Expect(saved.ScanStatus).To(Equal(domain.ScanFailed))
		Expect(*saved.ScanMessage).To(Equal(ScanFailedMessage))
		Expect(saved.Fields.FlightNumber).To(Equal("AI-101"))
		Expect(saved.Fields.Reason).To(Equal(domain.ReasonDenied))
		Expect(store.events["draft-1"]).To(Equal([]domain.DraftEventState{domain.DraftEventScanFailed}))
	})
})

var _ = Describe("ClaimTrackingWorkflow", func() {
	var (
		store    *fakeStore
		upstream *stubUpstream
		acts     *Activities
	)

	claimWith := func(status domain.ClaimStatus) domain.Claim {
		return domain.Claim{ClaimReference: "FC-20240115-6E2341-0001", Status: status}
	}

	BeforeEach(func() {
		store = newFakeStore()
		upstream = &stubUpstream{}
		acts = &Activities{
			Store:    store,
			Upstream: upstream,
			Now:      func() time.Time { return time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC) },
		}
	})

	It("polls until the claim is approved and keeps only transitions", func() {
		upstream.claims = []domain.Claim{
			claimWith(domain.StatusSubmittedToAirline),
			claimWith(domain.StatusSubmittedToAirline),
			claimWith(domain.StatusAirlineResponded),
			claimWith(domain.StatusResolved),
		}
		env, _ := newTracedEnv(acts)

		env.ExecuteWorkflow(ClaimTrackingWorkflow, ClaimTrackingInput{
			Reference:    "FC-20240115-6E2341-0001",
			PollInterval: time.Hour,
			MaxPolls:     10,
		})

		Expect(env.IsWorkflowCompleted()).To(BeTrue())
		Expect(env.GetWorkflowError()).ToNot(HaveOccurred())

		var result ClaimTrackingResult
		Expect(env.GetWorkflowResult(&result)).To(Succeed())
		Expect(result.Status).To(Equal(domain.StatusResolved))
		Expect(result.DecisionTitle).To(Equal(domain.PhaseTitleApproved))
		Expect(result.Polls).To(Equal(4))

		history := store.history("FC-20240115-6E2341-0001")
		Expect(history).To(HaveLen(3))
		Expect(history[0].InReview).To(Equal(domain.PhaseCurrent))
		Expect(history[2].InReview).To(Equal(domain.PhaseCompleted))
		Expect(history[2].Decision).To(Equal(domain.PhaseCompleted))

		By("answering the tracking state query after completion")
		encoded, err := env.QueryWorkflow(TrackingStateQueryName)
		Expect(err).ToNot(HaveOccurred())
		var state ClaimTrackingState
		Expect(encoded.Get(&state)).To(Succeed())
		Expect(state.Settled).To(BeTrue())
		Expect(state.LastStatus).To(Equal(domain.StatusResolved))
	})

	It("polls early when a refresh is signalled", func() {
		upstream.claims = []domain.Claim{
			claimWith(domain.StatusAwaitingResponse),
			claimWith(domain.StatusPaid),
		}
		env, _ := newTracedEnv(acts)
		start := env.Now()

		env.RegisterDelayedCallback(func() {
			env.SignalWorkflow(RefreshClaimSignalName, RefreshClaimSignal{RequestedBy: "passenger"})
		}, time.Minute)

		env.ExecuteWorkflow(ClaimTrackingWorkflow, ClaimTrackingInput{
			Reference:    "FC-20240115-6E2341-0001",
			PollInterval: 24 * time.Hour,
			MaxPolls:     10,
		})

		Expect(env.IsWorkflowCompleted()).To(BeTrue())
		Expect(env.GetWorkflowError()).ToNot(HaveOccurred())
		Expect(upstream.calls()).To(Equal(2))
		Expect(env.Now().Sub(start)).To(BeNumerically("<", 24*time.Hour))
	})

	It("stops on a rejection", func() {
		upstream.claims = []domain.Claim{claimWith(domain.StatusCancelled)}
		env, _ := newTracedEnv(acts)

		env.ExecuteWorkflow(ClaimTrackingWorkflow, ClaimTrackingInput{Reference: "FC-20240115-6E2341-0001", PollInterval: time.Hour})

		var result ClaimTrackingResult
		Expect(env.GetWorkflowResult(&result)).To(Succeed())
		Expect(result.DecisionTitle).To(Equal(domain.PhaseTitleRejected))
		Expect(result.Polls).To(Equal(1))
	})

	It("fails when the claim does not exist", func() {
		upstream.claimErrs = []error{flyclaim.ErrNotFound}
		env, _ := newTracedEnv(acts)

		env.ExecuteWorkflow(ClaimTrackingWorkflow, ClaimTrackingInput{Reference: "FC-MISSING", PollInterval: time.Hour})

		Expect(env.IsWorkflowCompleted()).To(BeTrue())
		Expect(env.GetWorkflowError()).To(HaveOccurred())
		Expect(upstream.calls()).To(Equal(1))
		Expect(store.history("FC-MISSING")).To(BeEmpty())
	})

	It("continues as new after the poll budget", func() {
		upstream.claims = []domain.Claim{claimWith(domain.StatusAwaitingResponse)}
		env, _ := newTracedEnv(acts)

		env.ExecuteWorkflow(ClaimTrackingWorkflow, ClaimTrackingInput{
			Reference:    "FC-20240115-6E2341-0001",
			PollInterval: time.Hour,
			MaxPolls:     3,
		})

		Expect(env.IsWorkflowCompleted()).To(BeTrue())
		var canErr *workflow.ContinueAsNewError
		Expect(errors.As(env.GetWorkflowError(), &canErr)).To(BeTrue())
		Expect(upstream.calls()).To(Equal(3))
		Expect(store.history("FC-20240115-6E2341-0001")).To(HaveLen(1))
	})
})
