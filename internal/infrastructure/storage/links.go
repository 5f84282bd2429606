package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	signerv4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/joymathews/my-daily-log-app/pkg/config"
)

// signedLinkExpiry is the lifetime of presigned file links.
const signedLinkExpiry = time.Hour

// LinkResolver turns a storage key into a URL a client can fetch. The variant
// is selected once at startup from the deployment mode.
type LinkResolver interface {
	ResolveLink(ctx context.Context, key string) (string, error)
}

// DirectLinkResolver builds plain endpoint URLs. Only suitable for local
// development where the bucket is reachable without signing.
type DirectLinkResolver struct {
	endpoint string
	bucket   string
}

func NewDirectLinkResolver(endpoint, bucket string) *DirectLinkResolver {
	return &DirectLinkResolver{endpoint: strings.TrimRight(endpoint, "/"), bucket: bucket}
}

func (r *DirectLinkResolver) ResolveLink(ctx context.Context, key string) (string, error) {
	return fmt.Sprintf("%s/%s/%s", r.endpoint, r.bucket, key), nil
}

// Presigner is the slice of the S3 presign API the signed resolver needs.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*signerv4.PresignedHTTPRequest, error)
}

// SignedLinkResolver produces time-boxed presigned GET URLs, one per request.
type SignedLinkResolver struct {
	presigner Presigner
	bucket    string
	expiry    time.Duration
}

func NewSignedLinkResolver(presigner Presigner, bucket string) *SignedLinkResolver {
	return &SignedLinkResolver{presigner: presigner, bucket: bucket, expiry: signedLinkExpiry}
}

func (r *SignedLinkResolver) ResolveLink(ctx context.Context, key string) (string, error) {
	req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(r.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

// NewLinkResolver selects the resolver variant for the deployment mode.
func NewLinkResolver(cfg *config.Config, client *s3.Client) LinkResolver {
	if cfg.Mode() == config.ModeLocal {
		return NewDirectLinkResolver(cfg.Storage.Endpoint, cfg.Storage.BucketName)
	}
	return NewSignedLinkResolver(s3.NewPresignClient(client), cfg.Storage.BucketName)
}
