package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures the full runtime configuration for the checker CLI and the
// local dev platform.
type Config struct {
	App       AppConfig
	Platform  PlatformConfig
	Storage   StorageConfig
	Kafka     KafkaConfig
	Tracing   TracingConfig
	DevServer DevServerConfig
}

type AppConfig struct {
	Name      string `env:"APP_NAME" envDefault:"checker"`
	Version   string `env:"APP_VERSION" envDefault:"0.1.0"`
	LogLevel  string `env:"CHECKER_LOG_LEVEL" envDefault:"warn"`
	LogFormat string `env:"CHECKER_LOG_FORMAT" envDefault:"console"`
	// Fingerprint overrides the hardware address lookup when set.
	Fingerprint string `env:"CHECKER_FINGERPRINT"`
}

// PlatformConfig locates the grading platform. The runner endpoint is not
// configured here: every credential bundle names its own runner.
type PlatformConfig struct {
	AuthURL      string        `env:"CHECKER_AUTH_URL" envDefault:"https://checker.savvyuni.com/auth"`
	AnalyticsURL string        `env:"CHECKER_ANALYTICS_URL" envDefault:"https://checker.savvyuni.com/report"`
	HTTPTimeout  time.Duration `env:"CHECKER_HTTP_TIMEOUT" envDefault:"0s"`
}

type StorageConfig struct {
	Provider  string `env:"STORAGE_PROVIDER" envDefault:"oss"`
	Endpoint  string `env:"STORAGE_ENDPOINT" envDefault:"oss-accelerate.aliyuncs.com"`
	Region    string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	AccessKey string `env:"STORAGE_ACCESS_KEY"`
	SecretKey string `env:"STORAGE_SECRET_KEY"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"true"`
	PathStyle bool   `env:"STORAGE_PATH_STYLE" envDefault:"false"`
}

// KafkaConfig enables the Kafka analytics sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers          []string      `env:"KAFKA_BROKERS" envSeparator:","`
	AnalyticsTopic   string        `env:"KAFKA_ANALYTICS_TOPIC" envDefault:"checker.results"`
	Retries          int           `env:"KAFKA_RETRIES" envDefault:"1"`
	CompressionCodec string        `env:"KAFKA_COMPRESSION_CODEC" envDefault:"snappy"`
	BatchTimeout     time.Duration `env:"KAFKA_BATCH_TIMEOUT" envDefault:"10ms"`
}

// TracingConfig is empty-endpoint by default, which disables export.
type TracingConfig struct {
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1.0"`
	ResourceAttr string  `env:"OTEL_RESOURCE_ATTRIBUTES" envDefault:"service.namespace=checker"`
}

// DevServerConfig drives cmd/checker-devserver. An empty PublicURL makes the
// server advertise its runner on the host each auth request arrived on.
type DevServerConfig struct {
	Addr      string   `env:"DEVSERVER_ADDR" envDefault:":8080"`
	PublicURL string   `env:"DEVSERVER_PUBLIC_URL"`
	Phones    []string `env:"DEVSERVER_PHONES" envSeparator:"," envDefault:"13800000000"`
	TestSetID string   `env:"DEVSERVER_TEST_SET_ID" envDefault:"abc123"`
	Bucket    string   `env:"DEVSERVER_BUCKET" envDefault:"submissions"`
	TestEntry string   `env:"DEVSERVER_TEST_ENTRY" envDefault:"main"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
