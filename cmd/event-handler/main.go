package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"flyclaim-tracker/internal/config"
	"flyclaim-tracker/internal/events"
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

	minioClient, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
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

	source := events.NewMinioTicketUploadSource(minioClient, cfg.MinioBucket, log)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("listening for ticket uploads", logger.String("bucket", cfg.MinioBucket))
	err = source.Run(ctx, func(parent context.Context, event events.TicketUploadEvent) error {
		workflowID := appTemporal.TicketScanWorkflowID(cfg.WorkflowIDPrefix, event.DraftID, event.ObjectKey)
		execCtx, cancel := context.WithTimeout(parent, 15*time.Second)
		defer cancel()

		_, startErr := temporalClient.ExecuteWorkflow(execCtx, client.StartWorkflowOptions{
			ID:        workflowID,
			TaskQueue: cfg.TemporalTaskQueue,
		}, appTemporal.TicketScanWorkflowName, appTemporal.TicketScanInput{
			DraftID:   event.DraftID,
			ObjectKey: event.ObjectKey,
			Filename:  event.Filename,
		})
		if startErr != nil {
			var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
			if errors.As(startErr, &alreadyStarted) {
				log.Info("scan already started", logger.String("object_key", event.ObjectKey), logger.String("workflow_id", workflowID))
				return nil
			}
			return fmt.Errorf("start scan for object %s: %w", event.ObjectKey, startErr)
		}

		log.Info("scan started", logger.String("workflow_id", workflowID), logger.String("object_key", event.ObjectKey))
		return nil
	})
	if err != nil {
		log.Fatal("event-handler stopped with error", logger.Error(err))
	}
}
