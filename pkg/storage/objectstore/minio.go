package objectstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// minioClient serves self-hosted deployments backed by an S3-compatible
// store. It signs with static credentials instead of the job's policy.
type minioClient struct {
	client *minio.Client
}

func newMinioClient(cfg Config) (Client, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("init minio client: access and secret key are required")
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	if cfg.HTTPClient != nil && cfg.HTTPClient.Transport != nil {
		opts.Transport = cfg.HTTPClient.Transport
	}

	cl, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	return &minioClient{client: cl}, nil
}

func (m *minioClient) Put(ctx context.Context, job Job) error {
	opts := minio.PutObjectOptions{
		ContentType:  "application/octet-stream",
		UserMetadata: map[string]string{"original_filename": job.FileName},
	}
	_, err := m.client.PutObject(ctx, job.Bucket, job.Key, bytes.NewReader(job.Data), int64(len(job.Data)), opts)
	if err == nil {
		return nil
	}
	if resp := minio.ToErrorResponse(err); resp.StatusCode != 0 {
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Code}
	}
	return fmt.Errorf("put object: %w", err)
}

func (m *minioClient) Close() error {
	return nil
}
