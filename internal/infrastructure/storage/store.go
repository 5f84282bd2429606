package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"go.uber.org/zap"

	"github.com/joymathews/my-daily-log-app/pkg/logger"
)

// API is the slice of the S3 API the store needs.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutBucketAcl(ctx context.Context, params *s3.PutBucketAclInput, optFns ...func(*s3.Options)) (*s3.PutBucketAclOutput, error)
}

// Store wraps blob operations against a single bucket.
type Store struct {
	client API
	bucket string
	log    *logger.Logger
}

func NewStore(client API, bucket string, log *logger.Logger) *Store {
	return &Store{client: client, bucket: bucket, log: log}
}

// Bucket returns the bucket name the store operates on.
func (s *Store) Bucket() string {
	return s.bucket
}

// Upload writes a blob under the given key.
func (s *Store) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// Ping probes bucket reachability.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

// EnsureBucketExists idempotently provisions the bucket. A not-found response
// triggers creation plus a public-read ACL; any other error surfaces as a
// failure for the caller to log. Startup proceeds regardless.
func (s *Store) EnsureBucketExists(ctx context.Context) error {
	s.log.Info("Checking if bucket exists", zap.String("bucket", s.bucket))

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		s.log.Info("Bucket exists", zap.String("bucket", s.bucket))
		return nil
	}
	if !isBucketNotFound(err) {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}

	s.log.Info("Bucket doesn't exist, creating it", zap.String("bucket", s.bucket))

	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	if _, err := s.client.PutBucketAcl(ctx, &s3.PutBucketAclInput{
		Bucket: aws.String(s.bucket),
		ACL:    s3types.BucketCannedACLPublicRead,
	}); err != nil {
		return fmt.Errorf("failed to set ACL on bucket %s: %w", s.bucket, err)
	}

	s.log.Info("Bucket created successfully", zap.String("bucket", s.bucket))
	return nil
}

func isBucketNotFound(err error) bool {
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchBucket"
	}
	return false
}
