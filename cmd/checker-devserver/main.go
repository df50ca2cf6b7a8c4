package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/your-org/checker/internal/devserver"
	"github.com/your-org/checker/internal/submission"
	"github.com/your-org/checker/pkg/config"
	"github.com/your-org/checker/pkg/kafka"
	"github.com/your-org/checker/pkg/logger"
)

const formMemBytes = 1 << 20

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logr, err := logger.New("info", cfg.App.LogFormat)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	var publisher submission.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.AnalyticsTopic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			Compression:  kafka.CompressionFromString(cfg.Kafka.CompressionCodec),
			RequiredAcks: kafkago.RequireAll,
			MaxAttempts:  cfg.Kafka.Retries,
		})
		if err != nil {
			logr.Fatal("init kafka producer", zap.Error(err))
		}
		publisher = producer
	}

	service := devserver.NewService(devserver.Params{
		Phones:    cfg.DevServer.Phones,
		TestSetID: cfg.DevServer.TestSetID,
		Bucket:    cfg.DevServer.Bucket,
		TestEntry: cfg.DevServer.TestEntry,
		PublicURL: cfg.DevServer.PublicURL,
		Publisher: publisher,
		Logger:    logr,
	})

	handler := devserver.NewHTTPHandler(service, logr, submission.MaxFileSize, formMemBytes)

	server := &http.Server{
		Addr:              cfg.DevServer.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logr.Error("http server shutdown failed", zap.Error(err))
		}
		if err := service.Close(shutdownCtx); err != nil {
			logr.Error("service shutdown failed", zap.Error(err))
		}
	}()

	logr.Info("dev platform starting",
		zap.String("addr", cfg.DevServer.Addr),
		zap.String("bucket", cfg.DevServer.Bucket),
		zap.String("test_set_id", cfg.DevServer.TestSetID),
	)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Fatal("http server failed", zap.Error(err))
	}
}
