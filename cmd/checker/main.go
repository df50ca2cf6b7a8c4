package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/checker/internal/fingerprint"
	"github.com/your-org/checker/internal/submission"
	"github.com/your-org/checker/pkg/config"
	"github.com/your-org/checker/pkg/kafka"
	"github.com/your-org/checker/pkg/logger"
	"github.com/your-org/checker/pkg/storage/objectstore"
	"github.com/your-org/checker/pkg/tracing"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitAnalytics = 2
)

const traceFlushTimeout = 5 * time.Second

// errAnalytics marks a run whose result was printed but not reported.
var errAnalytics = errors.New("analytics not delivered")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errAnalytics):
		return exitAnalytics
	default:
		return exitFailure
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var phone, testSetID string

	cmd := &cobra.Command{
		Use:   "checker FILES...",
		Short: "Submit solution files to the grading platform",
		Long: "checker uploads solution files for a test set, runs the remote tests\n" +
			"and prints the result.",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return submit(cmd.Context(), submission.Context{
				Phone:     phone,
				TestSetID: testSetID,
				Paths:     args,
			}, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.Flags().StringVarP(&phone, "phone", "p", "", "phone number registered with the platform")
	cmd.Flags().StringVarP(&testSetID, "test_id", "i", "", "id of the test set to run")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("test_id")
	return cmd
}

func submit(ctx context.Context, sc submission.Context, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logr, err := logger.New(cfg.App.LogLevel, cfg.App.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck
	logr = logr.With(zap.String("run_id", uuid.NewString()))

	traceShutdown, err := tracing.Init(ctx, tracing.Config{
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
		Attributes:     tracing.ParseResourceAttributes(cfg.Tracing.ResourceAttr),
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), traceFlushTimeout)
		defer cancel()
		if err := traceShutdown(shutdownCtx); err != nil {
			logr.Warn("flush traces", zap.Error(err))
		}
	}()

	httpClient := &http.Client{Timeout: cfg.Platform.HTTPTimeout}
	storeCfg := objectstore.Config{
		Provider:   cfg.Storage.Provider,
		Endpoint:   cfg.Storage.Endpoint,
		Region:     cfg.Storage.Region,
		AccessKey:  cfg.Storage.AccessKey,
		SecretKey:  cfg.Storage.SecretKey,
		UseSSL:     cfg.Storage.UseSSL,
		PathStyle:  cfg.Storage.PathStyle,
		HTTPClient: httpClient,
	}
	store, err := objectstore.New(storeCfg)
	if err != nil {
		return fmt.Errorf("init object store: %w", err)
	}

	reporter, err := newReporter(cfg, httpClient)
	if err != nil {
		return fmt.Errorf("init analytics: %w", err)
	}

	var fp fingerprint.Provider = fingerprint.Hardware{}
	if cfg.App.Fingerprint != "" {
		fp = fingerprint.Static(cfg.App.Fingerprint)
	}

	progress, err := newDisplay(stderr)
	if err != nil {
		return err
	}
	defer progress.Finish()

	service := submission.NewService(submission.Params{
		HTTPClient:   httpClient,
		Store:        store,
		Reporter:     reporter,
		Fingerprint:  fp,
		AuthURL:      cfg.Platform.AuthURL,
		Destination:  func(bucket string) string { return objectstore.Destination(storeCfg, bucket) },
		RunnerOutput: stdout,
		Emitter:      progress,
		Logger:       logr,
	})
	defer func() {
		if err := service.Close(context.Background()); err != nil {
			logr.Warn("close service", zap.Error(err))
		}
	}()

	out, err := service.Submit(ctx, sc)
	if err != nil {
		return err
	}
	if out.AnalyticsErr != nil {
		return fmt.Errorf("%w: %w", errAnalytics, out.AnalyticsErr)
	}
	return nil
}

// newReporter returns nil when no analytics sink is configured.
func newReporter(cfg *config.Config, client *http.Client) (submission.Reporter, error) {
	var reporters submission.MultiReporter
	if cfg.Platform.AnalyticsURL != "" {
		reporters = append(reporters, submission.NewHTTPReporter(client, cfg.Platform.AnalyticsURL))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.AnalyticsTopic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			Compression:  kafka.CompressionFromString(cfg.Kafka.CompressionCodec),
			RequiredAcks: kafkago.RequireOne,
			MaxAttempts:  cfg.Kafka.Retries,
		})
		if err != nil {
			return nil, err
		}
		reporters = append(reporters, submission.NewKafkaReporter(producer))
	}
	if len(reporters) == 0 {
		return nil, nil
	}
	return reporters, nil
}
