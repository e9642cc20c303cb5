// Package storage uploads proof screenshots to Cloudflare R2 through
// its S3-compatible API.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// MaxProofSize caps a single proof upload.
const MaxProofSize = 5 << 20

// imageTypes maps the content types accepted as proof to file extensions.
var imageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Uploader stores an object and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// PutObjectAPI is the subset of *s3.Client used here.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2Options configures NewR2.
type R2Options struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	// CDNBaseURL is the public prefix for uploaded keys. Defaults to the
	// account's r2.cloudflarestorage.com endpoint.
	CDNBaseURL string
}

// R2 is an Uploader backed by an R2 bucket.
type R2 struct {
	client  PutObjectAPI
	bucket  string
	baseURL string
}

// NewR2 builds an S3 client pointed at the account's R2 endpoint.
func NewR2(ctx context.Context, opts R2Options) (*R2, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", opts.AccountID)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID, opts.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	baseURL := opts.CDNBaseURL
	if baseURL == "" {
		baseURL = endpoint + "/" + opts.Bucket
	}
	return NewR2WithClient(client, opts.Bucket, baseURL), nil
}

// NewR2WithClient wraps an existing client.
func NewR2WithClient(client PutObjectAPI, bucket, baseURL string) *R2 {
	return &R2{client: client, bucket: bucket, baseURL: baseURL}
}

// Upload puts data at key and returns the public URL.
func (r *R2) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}
	return r.baseURL + "/" + key, nil
}

// DetectImage sniffs data and reports its content type and extension.
// ok is false for anything that is not an accepted image type.
func DetectImage(data []byte) (contentType, ext string, ok bool) {
	contentType = http.DetectContentType(data)
	ext, ok = imageTypes[contentType]
	return contentType, ext, ok
}

// ProofKey returns a fresh object key for an ambassador's proof upload.
func ProofKey(ambassadorID, ext string) string {
	return path.Join("proofs", ambassadorID, uuid.NewString()+ext)
}
