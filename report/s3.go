package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/jadesonbruno/dataquality/rules"
)

var (
	ErrInvalidS3Config = errors.New("invalid s3 configuration")
	ErrBucketNotFound  = errors.New("bucket not found")
	ErrAccessDenied    = errors.New("access denied")
)

// S3Client is the subset of the S3 API used by S3Sink.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config locates the bucket run records are uploaded to.
type S3Config struct {
	Bucket         string `koanf:"bucket"`
	Region         string `koanf:"region"`
	Prefix         string `koanf:"prefix"`
	Endpoint       string `koanf:"endpoint"` // for S3-compatible services
	AccessKeyID    string `koanf:"access_key_id"`
	SecretKey      string `koanf:"secret_key"`
	ForcePathStyle bool   `koanf:"force_path_style"` // for MinIO and similar
}

// S3Option configures an S3Sink.
type S3Option func(*s3Options)

type s3Options struct {
	client        S3Client
	uploadTimeout time.Duration
}

// WithS3Client sets a pre-configured client, e.g. a mock.
func WithS3Client(client S3Client) S3Option {
	return func(o *s3Options) {
		o.client = client
	}
}

// WithUploadTimeout bounds each upload.
func WithUploadTimeout(d time.Duration) S3Option {
	return func(o *s3Options) {
		o.uploadTimeout = d
	}
}

// S3Sink uploads each run record as JSON to
// s3://<bucket>/<prefix>/<run>/<suite>.json.
type S3Sink struct {
	client        S3Client
	bucket        string
	prefix        string
	uploadTimeout time.Duration
}

// NewS3Sink creates an S3 sink, loading the default AWS configuration
// unless a client is supplied.
func NewS3Sink(ctx context.Context, cfg S3Config, opts ...S3Option) (*S3Sink, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("%w: bucket and region are required", ErrInvalidS3Config)
	}

	options := &s3Options{}
	for _, opt := range opts {
		opt(options)
	}

	client := options.client
	if client == nil {
		awsOptions := []func(*config.LoadOptions) error{
			config.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOptions = append(awsOptions, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
			))
		}

		awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidS3Config, err)
		}

		client = s3.NewFromConfig(awsConfig, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.ForcePathStyle
		})
	}

	return &S3Sink{
		client:        client,
		bucket:        cfg.Bucket,
		prefix:        strings.Trim(cfg.Prefix, "/"),
		uploadTimeout: options.uploadTimeout,
	}, nil
}

func (s *S3Sink) Name() string { return "s3" }

// Key returns the object key a result is stored under.
func (s *S3Sink) Key(r *rules.RunResult) string {
	return path.Join(s.prefix, pathSegment(r.RunName), pathSegment(r.Suite)+".json")
}

func (s *S3Sink) Publish(ctx context.Context, r *rules.RunResult) error {
	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}

	data, err := MarshalRecord(r)
	if err != nil {
		return fmt.Errorf("failed to encode run record: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(r)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"run-id":  r.RunID,
			"suite":   r.Suite,
			"success": fmt.Sprint(r.Success),
		},
	})
	if err != nil {
		return classifyS3Error(err)
	}
	return nil
}

// classifyS3Error maps S3 failures onto the package errors.
func classifyS3Error(err error) error {
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return fmt.Errorf("%w: %v", ErrBucketNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket":
			return fmt.Errorf("%w: %v", ErrBucketNotFound, err)
		case "AccessDenied":
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		default:
			return fmt.Errorf("upload failed (code: %s): %w", apiErr.ErrorCode(), err)
		}
	}
	return fmt.Errorf("upload failed: %w", err)
}

var _ rules.Sink = (*S3Sink)(nil)
