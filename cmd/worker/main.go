package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"flyclaim-tracker/internal/config"
	"flyclaim-tracker/internal/domain"
	"flyclaim-tracker/internal/flyclaim"
	"flyclaim-tracker/internal/storage"
	appTemporal "flyclaim-tracker/internal/temporal"
	"flyclaim-tracker/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	store, err := storage.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("connect postgres", logger.Error(err))
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tickets, err := storage.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.MinioBucket)
	if err != nil {
		log.Fatal("connect minio", logger.Error(err))
	}

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    log.Named("temporal").Temporal(),
	})
	if err != nil {
		log.Fatal("connect temporal", logger.Error(err))
	}
	defer temporalClient.Close()

	activities := &appTemporal.Activities{
		Store:    store,
		Tickets:  tickets,
		Upstream: flyclaim.NewHTTPClient(cfg.FlyClaimAPIURL, cfg.UpstreamTimeout()),
	}

	w := worker.New(temporalClient, cfg.TemporalTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(appTemporal.TicketScanWorkflow, workflow.RegisterOptions{Name: appTemporal.TicketScanWorkflowName})
	w.RegisterWorkflowWithOptions(appTemporal.ClaimTrackingWorkflow, workflow.RegisterOptions{Name: appTemporal.ClaimTrackingWorkflowName})
	w.RegisterActivity(activities.ScanTicketActivity)
	w.RegisterActivity(activities.MergeDraftActivity)
	w.RegisterActivity(activities.MarkScanFailedActivity)
	w.RegisterActivity(activities.FetchClaimActivity)
	w.RegisterActivity(activities.RecordSnapshotActivity)

	resumeTracking(cfg, store, temporalClient, log)

	log.Info("worker running", logger.String("task_queue", cfg.TemporalTaskQueue))
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal("worker stopped with error", logger.Error(err))
	}
}

// resumeTracking restarts polling for claims whose last recorded snapshot has
// no decision yet. Workflows that are still running are left alone.
func resumeTracking(cfg config.Config, store *storage.PostgresStore, c client.Client, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	refs, err := store.ListTrackedReferences(ctx, []domain.PhaseState{domain.PhaseCompleted, domain.PhaseError})
	if err != nil {
		log.Warn("list tracked claims", logger.Error(err))
		return
	}

	resumed := 0
	for _, ref := range refs {
		workflowID := appTemporal.ClaimTrackingWorkflowID(cfg.WorkflowIDPrefix, ref)
		_, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:        workflowID,
			TaskQueue: cfg.TemporalTaskQueue,
		}, appTemporal.ClaimTrackingWorkflowName, appTemporal.ClaimTrackingInput{
			Reference:    ref,
			PollInterval: cfg.TrackPollInterval,
			MaxPolls:     cfg.TrackMaxPolls,
		})
		if err != nil {
			var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
			if !errors.As(err, &alreadyStarted) {
				log.Warn("resume tracking", logger.String("workflow_id", workflowID), logger.Error(err))
			}
			continue
		}
		resumed++
	}
	log.Info("claim tracking resumed", logger.Int("candidates", len(refs)), logger.Int("started", resumed))
}
