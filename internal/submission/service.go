package submission

import (
	"context"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/your-org/checker/internal/fingerprint"
	"github.com/your-org/checker/pkg/storage/objectstore"
)

const tracerName = "github.com/your-org/checker/internal/submission"

// DefaultStore addresses the platform's accelerated OSS endpoint.
var DefaultStore = objectstore.Config{Endpoint: "oss-accelerate.aliyuncs.com", UseSSL: true}

// Service wires together authentication, storage, the runner and analytics
// for one submission flow.
type Service struct {
	auth        *Authenticator
	uploader    *Uploader
	runner      *Runner
	store       objectstore.Client
	reporter    Reporter
	destination func(bucket string) string
	emitter     Emitter
	logger      *zap.Logger
	tracer      trace.Tracer
}

type Params struct {
	HTTPClient  *http.Client
	Store       objectstore.Client
	Reporter    Reporter
	Fingerprint fingerprint.Provider
	AuthURL     string
	// Destination maps a bucket to its upload URL.
	Destination func(bucket string) string
	// RunnerOutput receives the runner's answer while it streams in.
	RunnerOutput io.Writer
	Emitter      Emitter
	Logger       *zap.Logger
}

// Outcome is what a completed run produced. AnalyticsErr is set when the
// result could not be reported; the run itself still succeeded.
type Outcome struct {
	SubmissionID string
	Files        []objectstore.Object
	Result       string
	AnalyticsErr error
}

// NewService constructs a submission Service.
func NewService(p Params) *Service {
	client := p.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	emitter := p.Emitter
	if emitter == nil {
		emitter = NopEmitter{}
	}
	destination := p.Destination
	if destination == nil {
		destination = func(bucket string) string {
			return objectstore.Destination(DefaultStore, bucket)
		}
	}
	return &Service{
		auth:        NewAuthenticator(client, p.AuthURL, p.Fingerprint, logger),
		uploader:    NewUploader(p.Store, logger),
		runner:      NewRunner(client, p.RunnerOutput, logger),
		store:       p.Store,
		reporter:    p.Reporter,
		destination: destination,
		emitter:     emitter,
		logger:      logger,
		tracer:      otel.Tracer(tracerName),
	}
}

// Submit runs the whole pipeline for sc. Every stage but reporting aborts
// the run on failure; files are validated before any request is made.
func (s *Service) Submit(ctx context.Context, sc Context) (*Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "submission.submit", trace.WithAttributes(
		attribute.String("checker.test_set_id", sc.TestSetID),
		attribute.Int("checker.files", len(sc.Paths)),
	))
	defer span.End()

	err := s.stage(ctx, StageValidating, func(context.Context) error {
		return ValidateFiles(sc.Paths)
	})
	if err != nil {
		return nil, s.fail(span, err)
	}

	var bundle *CredentialBundle
	err = s.stage(ctx, StageAuthorizing, func(ctx context.Context) error {
		var err error
		bundle, err = s.auth.Authenticate(ctx, sc)
		return err
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	span.SetAttributes(attribute.String("checker.submission_id", bundle.SubmissionID))
	logger := s.logger.With(zap.String("submission_id", bundle.SubmissionID))

	var files []objectstore.Object
	err = s.stage(ctx, StageSubmitting, func(ctx context.Context) error {
		jobs, err := BuildJobs(bundle, sc.Paths, s.destination(bundle.Bucket))
		if err != nil {
			return err
		}
		files, err = s.uploader.Upload(ctx, jobs)
		return err
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	logger.Info("files uploaded", zap.Int("count", len(files)))

	var result string
	err = s.stage(ctx, StageJudging, func(ctx context.Context) error {
		var err error
		result, err = s.runner.Run(ctx, bundle, files)
		return err
	})
	if err != nil {
		return nil, s.fail(span, err)
	}

	out := &Outcome{
		SubmissionID: bundle.SubmissionID,
		Files:        files,
		Result:       result,
	}
	if s.reporter == nil {
		return out, nil
	}
	out.AnalyticsErr = s.stage(ctx, StageReporting, func(ctx context.Context) error {
		return s.reporter.Report(ctx, Record{
			Files:        files,
			SubmissionID: bundle.SubmissionID,
			Result:       result,
		})
	})
	if out.AnalyticsErr != nil {
		logger.Warn("analytics not delivered", zap.Error(out.AnalyticsErr))
	}
	return out, nil
}

// stage runs fn inside its own span and reports progress to the emitter.
func (s *Service) stage(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "submission."+strings.ReplaceAll(string(stage), " ", "_"))
	defer span.End()

	s.emitter.OnStage(stage)
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Debug("stage failed", zap.String("stage", string(stage)), zap.Error(err))
		s.emitter.OnFailure(stage, err)
		return err
	}
	return nil
}

func (s *Service) fail(span trace.Span, err error) error {
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Close releases the store and any reporter holding resources.
func (s *Service) Close(ctx context.Context) error {
	if c, ok := s.reporter.(closer); ok {
		if err := c.Close(ctx); err != nil {
			return err
		}
	}
	return s.store.Close()
}
