package submission

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/your-org/checker/pkg/storage/objectstore"
)

// BuildJob prepares the upload of one local file under the bundle's
// directory. destination is the store URL for the bundle's bucket.
func BuildJob(bundle *CredentialBundle, path, destination string) (objectstore.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return objectstore.Job{}, &Error{
			Kind:    ErrNotFound,
			Message: fmt.Sprintf("File not found. Please double check the file path: %s", path),
			Err:     err,
		}
	}
	name := filepath.Base(path)
	return objectstore.Job{
		Key:         fmt.Sprintf("%s/%s", bundle.Dir, name),
		Bucket:      bundle.Bucket,
		Destination: destination,
		AccessKeyID: bundle.AccessKeyID,
		Policy:      bundle.Policy,
		Signature:   bundle.Signature,
		FileName:    name,
		Data:        data,
	}, nil
}

// BuildJobs calls BuildJob for every path, keeping their order.
func BuildJobs(bundle *CredentialBundle, paths []string, destination string) ([]objectstore.Job, error) {
	jobs := make([]objectstore.Job, 0, len(paths))
	for _, path := range paths {
		job, err := BuildJob(bundle, path, destination)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Uploader puts jobs into the object store one after another.
type Uploader struct {
	store  objectstore.Client
	logger *zap.Logger
}

// NewUploader constructs an Uploader over store.
func NewUploader(store objectstore.Client, logger *zap.Logger) *Uploader {
	return &Uploader{store: store, logger: logger}
}

// Upload sends jobs in order and stops at the first failure. Objects already
// stored stay where they are; their keys are unreachable once the bundle
// expires. On success the result holds one object per job, in job order.
func (u *Uploader) Upload(ctx context.Context, jobs []objectstore.Job) ([]objectstore.Object, error) {
	objects := make([]objectstore.Object, 0, len(jobs))
	for _, job := range jobs {
		if err := u.store.Put(ctx, job); err != nil {
			u.logger.Error("upload failed", zap.String("key", job.Key), zap.Error(err))
			kind := ErrTransport
			var se *objectstore.StatusError
			if errors.As(err, &se) {
				kind = ErrServer
			}
			return nil, &Error{Kind: kind, Message: msgImpeded, Err: err}
		}
		u.logger.Debug("uploaded", zap.String("key", job.Key), zap.Int("size_bytes", len(job.Data)))
		objects = append(objects, job.Object())
	}
	return objects, nil
}
