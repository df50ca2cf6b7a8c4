package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/your-org/checker/pkg/storage/objectstore"
)

// Runner submits uploaded files to the test runner named by a bundle.
type Runner struct {
	client *http.Client
	stream io.Writer
	logger *zap.Logger
}

// NewRunner constructs a Runner. When stream is non-nil the runner's output
// is copied to it as it arrives.
func NewRunner(client *http.Client, stream io.Writer, logger *zap.Logger) *Runner {
	return &Runner{client: client, stream: stream, logger: logger}
}

// Run posts files together with the bundle's test environment and entry
// point and returns the runner's answer unmodified.
func (r *Runner) Run(ctx context.Context, bundle *CredentialBundle, files []objectstore.Object) (string, error) {
	body := RunRequest{
		Files:     nonNil(files),
		TestEnv:   nonNil(bundle.TestEnv),
		TestEntry: bundle.TestEntry,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal run request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, bundle.RunnerLocation, bytes.NewReader(payload))
	if err != nil {
		return "", &Error{Kind: ErrTransport, Err: fmt.Errorf("build run request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", &Error{Kind: ErrTransport, Err: err}
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		text, _ := io.ReadAll(resp.Body)
		return "", &Error{
			Kind: ErrServer,
			Err:  fmt.Errorf("test runner responded %s: %s", resp.Status, strings.TrimSpace(string(text))),
		}
	}

	var src io.Reader = resp.Body
	if r.stream != nil {
		src = io.TeeReader(resp.Body, r.stream)
	}
	var out strings.Builder
	if _, err := io.Copy(&out, src); err != nil {
		r.logger.Warn("runner output truncated", zap.Int("bytes_read", out.Len()), zap.Error(err))
		return out.String(), &Error{Kind: ErrTransport, Err: fmt.Errorf("read runner output: %w", err)}
	}
	return out.String(), nil
}

func nonNil(objs []objectstore.Object) []objectstore.Object {
	if objs == nil {
		return []objectstore.Object{}
	}
	return objs
}
