package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/ignite/warmup-engine/internal/domain"
)

// s3Putter is the slice of the S3 client the archive needs.
type s3Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// EventArchive writes expired delivery events to S3 as newline-delimited
// JSON, one object per retention batch.
type EventArchive struct {
	client s3Putter
	bucket string
	prefix string
	now    func() time.Time
}

// NewEventArchive creates an S3-backed archive using the default AWS
// credential chain, optionally pinned to a shared-config profile.
func NewEventArchive(ctx context.Context, bucket, prefix, region, profile string) (*EventArchive, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return newEventArchive(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func newEventArchive(client s3Putter, bucket, prefix string) *EventArchive {
	return &EventArchive{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

// Archive uploads the batch and returns the object key. An empty batch
// uploads nothing.
func (a *EventArchive) Archive(ctx context.Context, events []domain.ArchivedEvent) (string, error) {
	if len(events) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			return "", fmt.Errorf("encoding archived event %s: %w", events[i].ID, err)
		}
	}

	key := a.objectKey()
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return "", fmt.Errorf("putting object to S3 bucket %s: %w", a.bucket, err)
	}
	return key, nil
}

// objectKey is <prefix>/delivery-events/YYYY/MM/DD/<uuid>.ndjson.
func (a *EventArchive) objectKey() string {
	day := a.now().UTC().Format("2006/01/02")
	return path.Join(a.prefix, "delivery-events", day, uuid.New().String()+".ndjson")
}
