package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"postgres"`
	DBPass string `envconfig:"DB_PASS" default:"postgres"`
	DBName string `envconfig:"DB_NAME" default:"doccompare"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	BlobBucket string `envconfig:"BLOB_BUCKET" default:"documents"`
	GCPProject string `envconfig:"GCP_PROJECT"`

	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"weaviate:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	EngineURL             string `envconfig:"ENGINE_URL" default:"http://comparator:8001"`
	CompareTimeoutSeconds int    `envconfig:"COMPARE_TIMEOUT_SECONDS" default:"300"`

	EmbeddingProvider string `envconfig:"EMBEDDING_PROVIDER" default:"gemini"`
	EmbeddingModel    string `envconfig:"EMBEDDING_MODEL" default:"all-MiniLM-L6-v2"`
	GeminiAPIKey      string `envconfig:"GEMINI_API_KEY"`
	OpenAIBaseURL     string `envconfig:"OPENAI_BASE_URL" default:"http://embedder:11434/v1"`
	EmbedConcurrency  int    `envconfig:"EMBED_CONCURRENCY" default:"8"`

	OutboxIntervalSeconds int `envconfig:"OUTBOX_INTERVAL_SECONDS" default:"1"`
	OutboxBatchSize       int `envconfig:"OUTBOX_BATCH_SIZE" default:"50"`

	ServerPort      int    `envconfig:"SERVER_PORT" default:"8000"`
	MaxUploadSizeMB int64  `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`
	MigrationPath   string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars may come from the shell instead; a missing .env is not an error.
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.EngineURL == "" {
		return fmt.Errorf("%w: ENGINE_URL", ErrMissingRequired)
	}
	if c.CompareTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: COMPARE_TIMEOUT_SECONDS must be positive", ErrMissingRequired)
	}
	return nil
}
