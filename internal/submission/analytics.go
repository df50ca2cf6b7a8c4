package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Reporter forwards an analytics Record. Failures are never fatal to a run.
type Reporter interface {
	Report(ctx context.Context, rec Record) error
}

// HTTPReporter posts records as JSON to the analytics endpoint.
type HTTPReporter struct {
	client   *http.Client
	endpoint string
}

// NewHTTPReporter constructs an HTTPReporter posting to endpoint.
func NewHTTPReporter(client *http.Client, endpoint string) *HTTPReporter {
	return &HTTPReporter{client: client, endpoint: endpoint}
}

// Report posts rec; a non-2xx answer is an error.
func (h *HTTPReporter) Report(ctx context.Context, rec Record) error {
	rec.Files = nonNil(rec.Files)
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal analytics record: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build analytics request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("post analytics: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if !isSuccess(resp.StatusCode) {
		return fmt.Errorf("post analytics: bad status %s", resp.Status)
	}
	return nil
}

// Publisher is the subset of the Kafka producer used for analytics.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any, headers map[string]string) error
	Close(ctx context.Context) error
}

// KafkaReporter publishes records keyed by submission id.
type KafkaReporter struct {
	producer Publisher
}

// NewKafkaReporter constructs a KafkaReporter over producer.
func NewKafkaReporter(producer Publisher) *KafkaReporter {
	return &KafkaReporter{producer: producer}
}

// Report publishes rec with submission_id and event_type headers.
func (k *KafkaReporter) Report(ctx context.Context, rec Record) error {
	rec.Files = nonNil(rec.Files)
	headers := map[string]string{
		"submission_id": rec.SubmissionID,
		"event_type":    EventTypeResult,
	}
	if err := k.producer.PublishJSON(ctx, rec.SubmissionID, rec, headers); err != nil {
		return fmt.Errorf("publish analytics record: %w", err)
	}
	return nil
}

// Close flushes and closes the producer.
func (k *KafkaReporter) Close(ctx context.Context) error {
	return k.producer.Close(ctx)
}

// MultiReporter sends to every reporter in order and joins their errors.
type MultiReporter []Reporter

func (m MultiReporter) Report(ctx context.Context, rec Record) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiReporter) Close(ctx context.Context) error {
	var errs []error
	for _, r := range m {
		if c, ok := r.(closer); ok {
			if err := c.Close(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

type closer interface {
	Close(ctx context.Context) error
}
