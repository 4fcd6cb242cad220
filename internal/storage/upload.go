package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultRegion is used when the configuration leaves the region empty.
const DefaultRegion = "us-east-1"

// ContentTypeMP3 is the media type of uploaded workouts.
const ContentTypeMP3 = "audio/mpeg"

// S3Config locates the bucket that receives finished workouts.
// Endpoint is optional; set it for S3-compatible stores (MinIO, SeaweedFS),
// which are then addressed path-style.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Uploader puts finished workouts into S3.
type Uploader struct {
	client   *s3.Client
	bucket   string
	endpoint string
	tracer   trace.Tracer
}

// NewUploader loads AWS configuration and builds an S3 client.
// Static credentials are used when both keys are set; otherwise the SDK's
// default chain (env, shared config, instance role) applies.
func NewUploader(ctx context.Context, cfg S3Config) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Uploader{
		client:   client,
		bucket:   cfg.Bucket,
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
		tracer:   otel.Tracer(tracerName),
	}, nil
}

// NewObjectKey returns a unique, time-sortable key for a workout MP3.
func NewObjectKey() string {
	return ulid.Make().String() + ".mp3"
}

// EnsureBucket creates the bucket when HeadBucket cannot see it.
func (u *Uploader) EnsureBucket(ctx context.Context) error {
	if _, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(u.bucket)}); err == nil {
		return nil
	}
	if _, err := u.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(u.bucket)}); err != nil {
		return fmt.Errorf("create bucket %s: %w", u.bucket, err)
	}
	return nil
}

// Upload stores data under key and returns the object's location.
func (u *Uploader) Upload(ctx context.Context, key string, data []byte) (string, error) {
	ctx, span := u.tracer.Start(ctx, "storage.Upload",
		trace.WithAttributes(
			attribute.String("s3.bucket", u.bucket),
			attribute.String("s3.key", key),
			attribute.Int("s3.bytes", len(data)),
		),
	)
	defer span.End()

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(ContentTypeMP3),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "put object failed")
		return "", fmt.Errorf("%w: s3://%s/%s: %w", ErrUploadFailed, u.bucket, key, err)
	}

	return u.location(key), nil
}

// location formats an endpoint URL for custom stores and an s3:// URI otherwise.
func (u *Uploader) location(key string) string {
	if u.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", u.endpoint, u.bucket, key)
	}
	return fmt.Sprintf("s3://%s/%s", u.bucket, key)
}
