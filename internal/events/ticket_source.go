package events

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"

	"flyclaim-tracker/pkg/logger"
)

const objectCreatedEvent = "s3:ObjectCreated:*"

// TicketUploadEvent describes a ticket image that landed in the archive bucket.
type TicketUploadEvent struct {
	DraftID   string
	Filename  string
	ObjectKey string
	ETag      string
	EventName string
}

type TicketUploadSource interface {
	Run(ctx context.Context, handler func(context.Context, TicketUploadEvent) error) error
}

type MinioTicketUploadSource struct {
	client *minio.Client
	bucket string
	log    *logger.Logger
}

func NewMinioTicketUploadSource(client *minio.Client, bucket string, log *logger.Logger) *MinioTicketUploadSource {
	return &MinioTicketUploadSource{
		client: client,
		bucket: bucket,
		log:    log.Named("ticket-events"),
	}
}

func (s *MinioTicketUploadSource) Run(ctx context.Context, handler func(context.Context, TicketUploadEvent) error) error {
	notificationCh := s.client.ListenBucketNotification(ctx, s.bucket, "", "", []string{objectCreatedEvent})
	for {
		select {
		case <-ctx.Done():
			return nil
		case info, ok := <-notificationCh:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("minio notification stream closed")
			}
			if info.Err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("minio notification stream error: %w", info.Err)
			}
			for _, record := range info.Records {
				event, err := toTicketUploadEvent(record.S3.Object.Key, record.S3.Object.ETag, record.EventName)
				if err != nil {
					s.log.Warn("skipping bucket notification", logger.String("key", record.S3.Object.Key), logger.Error(err))
					continue
				}
				if err := handler(ctx, event); err != nil {
					return err
				}
			}
		}
	}
}

func toTicketUploadEvent(encodedKey, etag, eventName string) (TicketUploadEvent, error) {
	objectKey, err := decodeObjectKey(encodedKey)
	if err != nil {
		return TicketUploadEvent{}, err
	}
	draftID, filename, err := parseObjectKey(objectKey)
	if err != nil {
		return TicketUploadEvent{}, err
	}
	return TicketUploadEvent{
		DraftID:   draftID,
		Filename:  filename,
		ObjectKey: objectKey,
		ETag:      strings.Trim(etag, `"`),
		EventName: eventName,
	}, nil
}

func decodeObjectKey(encoded string) (string, error) {
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		return "", err
	}
	decoded = strings.TrimSpace(decoded)
	if decoded == "" {
		return "", fmt.Errorf("object key is empty")
	}
	return decoded, nil
}

// parseObjectKey splits <draftId>/<filename>. Deeper paths are not tickets.
func parseObjectKey(objectKey string) (string, string, error) {
	cleaned := strings.Trim(strings.ReplaceAll(objectKey, "\\", "/"), "/")
	parts := strings.Split(cleaned, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("object key %q does not match draft_id/filename", objectKey)
	}
	draftID := strings.TrimSpace(parts[0])
	filename := strings.TrimSpace(parts[1])
	if draftID == "" || filename == "" {
		return "", "", fmt.Errorf("object key %q missing draft id or filename", objectKey)
	}
	return draftID, filename, nil
}
