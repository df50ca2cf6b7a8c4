package objectstore

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Config contains the information required to talk to an object store.
// AccessKey and SecretKey are only read by the minio provider; the oss
// provider authenticates every upload with the server-issued policy carried
// by the Job.
type Config struct {
	Provider  string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PathStyle bool

	// HTTPClient is used for every request when set.
	HTTPClient *http.Client
}

// Object references a file that is present in the store.
type Object struct {
	Key    string `json:"key"`
	Bucket string `json:"bucket"`
}

// Job is everything needed to upload one file. It lives for one Put call.
type Job struct {
	Key         string
	Bucket      string
	Destination string
	AccessKeyID string
	Policy      string
	Signature   string
	FileName    string
	Data        []byte
}

// Object returns the reference the job produces once uploaded.
func (j Job) Object() Object {
	return Object{Key: j.Key, Bucket: j.Bucket}
}

// StatusError reports a store response outside the 2xx range.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status: %d %s", e.StatusCode, e.Status)
}

// Client represents the capabilities the submission pipeline expects.
type Client interface {
	Put(ctx context.Context, job Job) error
	Close() error
}

// New creates an object store client based on the given configuration.
func New(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "oss", "":
		return newOSSClient(cfg), nil
	case "minio", "s3":
		return newMinioClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported object store provider: %s", cfg.Provider)
	}
}

// Destination returns the upload URL for bucket: virtual-hosted style
// (https://bucket.endpoint) unless PathStyle is set.
func Destination(cfg Config, bucket string) string {
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	if cfg.PathStyle {
		return fmt.Sprintf("%s://%s/%s", scheme, endpoint, bucket)
	}
	return fmt.Sprintf("%s://%s.%s", scheme, bucket, endpoint)
}
