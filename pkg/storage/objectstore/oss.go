package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// ossClient uploads through the POST Object form API, signed by a policy the
// platform issued for the submission.
type ossClient struct {
	httpClient *http.Client
}

func newOSSClient(cfg Config) *ossClient {
	cl := cfg.HTTPClient
	if cl == nil {
		cl = &http.Client{}
	}
	return &ossClient{httpClient: cl}
}

func (o *ossClient) Put(ctx context.Context, job Job) error {
	body, contentType, err := encodeForm(job)
	if err != nil {
		return fmt.Errorf("encode form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.Destination, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post object: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}
	return nil
}

func (o *ossClient) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

// encodeForm writes the policy fields ahead of the file part; the store
// ignores any field that follows the file.
func encodeForm(job Job) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"key", job.Key},
		{"OSSAccessKeyId", job.AccessKeyID},
		{"policy", job.Policy},
		{"Signature", job.Signature},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	part, err := w.CreateFormFile("file", job.FileName)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(job.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
