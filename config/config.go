package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type (
	Config struct {
		HTTP          HTTP
		Log           Log
		PG            PG
		S3            S3
		Kafka         Kafka
		LLM           LLM
		JWT           JWT
		CostRelay     CostRelay
		UsageConsumer UsageConsumer
		Swagger       Swagger
	}

	HTTP struct {
		Port           string `env:"HTTP_PORT,required"`
		UsePreforkMode bool   `env:"HTTP_USE_PREFORK_MODE" envDefault:"false"`
	}

	Log struct {
		Level string `env:"LOG_LEVEL,required"`
	}

	PG struct {
		PoolMax int    `env:"PG_POOL_MAX,required"`
		URL     string `env:"PG_URL,required"`
	}

	S3 struct {
		Endpoint       string        `env:"S3_ENDPOINT,required"`
		AccessKey      string        `env:"S3_ACCESS_KEY,required"`
		SecretKey      string        `env:"S3_SECRET_KEY,required"`
		Bucket         string        `env:"S3_BUCKET,required"`
		CfgLoadTimeout time.Duration `env:"S3_LOAD_CFG_TIMEOUT" envDefault:"10s"`
	}

	Kafka struct {
		Brokers []string `env:"KAFKA_BROKERS,required"`
		GroupID string   `env:"KAFKA_GROUP_ID,required"`
		Topic   string   `env:"KAFKA_TOPIC,required"`
	}

	LLM struct {
		BaseURL string        `env:"LLM_BASE_URL,required"`
		APIKey  string        `env:"LLM_API_KEY,required"`
		Model   string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
		Timeout time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	}

	JWT struct {
		Secret string        `env:"JWT_SECRET,required"`
		TTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`
	}

	CostRelay struct {
		PollInterval        time.Duration `env:"COST_RELAY_POLL_INTERVAL" envDefault:"2s"`
		MarkFailedInterval  time.Duration `env:"COST_RELAY_MARK_FAILED_INTERVAL" envDefault:"2m"`
		CleanupInterval     time.Duration `env:"COST_RELAY_CLEANUP_INTERVAL" envDefault:"24h"`
		ProcessBatchTimeout time.Duration `env:"COST_RELAY_PROCESS_BATCH_TIMEOUT" envDefault:"15s"`
		ShutdownTimeout     time.Duration `env:"COST_RELAY_SHUTDOWN_TIMEOUT" envDefault:"5s"`
		BatchSize           int           `env:"COST_RELAY_BATCH_SIZE" envDefault:"100"`
		MaxRetries          int           `env:"COST_RELAY_MAX_RETRIES" envDefault:"3"`
	}

	UsageConsumer struct {
		CommitTimeout   time.Duration `env:"USAGE_CONSUMER_COMMIT_TIMEOUT" envDefault:"2s"`
		ProcessTimeout  time.Duration `env:"USAGE_CONSUMER_PROCESS_TIMEOUT" envDefault:"15s"`
		ShutdownTimeout time.Duration `env:"USAGE_CONSUMER_SHUTDOWN_TIMEOUT" envDefault:"5s"`
		Workers         int           `env:"USAGE_CONSUMER_WORKERS" envDefault:"4"`
	}

	Swagger struct {
		Enabled bool `env:"SWAGGER_ENABLED" envDefault:"false"`
	}
)

func New() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return cfg, nil
}
