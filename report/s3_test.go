package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockS3Client is a mock implementation of S3Client
type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func newTestS3Sink(t *testing.T, client S3Client, prefix string) *S3Sink {
	t.Helper()
	sink, err := NewS3Sink(context.Background(), S3Config{
		Bucket: "dq-results",
		Region: "us-east-1",
		Prefix: prefix,
	}, WithS3Client(client), WithUploadTimeout(5*time.Second))
	require.NoError(t, err)
	return sink
}

func TestNewS3Sink_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  S3Config
	}{
		{"missing bucket", S3Config{Region: "us-east-1"}},
		{"missing region", S3Config{Bucket: "dq-results"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3Sink(context.Background(), tt.cfg, WithS3Client(&MockS3Client{}))
			assert.ErrorIs(t, err, ErrInvalidS3Config)
		})
	}
}

func TestS3Sink_Key(t *testing.T) {
	res := sampleResult(t, "expectation", "demo run")

	assert.Equal(t, "results/demo_run/expectation.json", newTestS3Sink(t, &MockS3Client{}, "/results/").Key(res))
	assert.Equal(t, "demo_run/expectation.json", newTestS3Sink(t, &MockS3Client{}, "").Key(res))
}

func TestS3Sink_Publish(t *testing.T) {
	res := sampleResult(t, "expectation", "demo_run")
	client := &MockS3Client{}

	var body []byte
	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "dq-results" &&
			*in.Key == "results/demo_run/expectation.json" &&
			*in.ContentType == "application/json" &&
			in.Metadata["success"] == "false"
	}), mock.Anything).Run(func(args mock.Arguments) {
		in := args.Get(1).(*s3.PutObjectInput)
		body, _ = io.ReadAll(in.Body)
	}).Return(&s3.PutObjectOutput{}, nil)

	sink := newTestS3Sink(t, client, "results")
	require.NoError(t, sink.Publish(context.Background(), res))
	client.AssertExpectations(t)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, res.RunID, rec["run_id"])
	assert.Contains(t, rec, "statistics")
}

func TestS3Sink_PublishErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"no such bucket", &types.NoSuchBucket{}, ErrBucketNotFound},
		{"no such bucket code", &smithy.GenericAPIError{Code: "NoSuchBucket"}, ErrBucketNotFound},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}, ErrAccessDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockS3Client{}
			client.On("PutObject", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			err := newTestS3Sink(t, client, "").Publish(context.Background(), sampleResult(t, "expectation", "demo_run"))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("other api error", func(t *testing.T) {
		client := &MockS3Client{}
		client.On("PutObject", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "SlowDown"})

		err := newTestS3Sink(t, client, "").Publish(context.Background(), sampleResult(t, "expectation", "demo_run"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SlowDown")
	})

	t.Run("network error", func(t *testing.T) {
		netErr := errors.New("connection reset")
		client := &MockS3Client{}
		client.On("PutObject", mock.Anything, mock.Anything, mock.Anything).Return(nil, netErr)

		err := newTestS3Sink(t, client, "").Publish(context.Background(), sampleResult(t, "expectation", "demo_run"))
		assert.ErrorIs(t, err, netErr)
	})
}
