// Package app wires configuration, storage, workers and transport
// together and runs the service until a shutdown signal.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/okushnikov/structured-query/config"
	kafkactrl "github.com/okushnikov/structured-query/internal/controller/kafka"
	"github.com/okushnikov/structured-query/internal/controller/restapi"
	"github.com/okushnikov/structured-query/internal/controller/worker/outbox"
	infrakafka "github.com/okushnikov/structured-query/internal/infrastructure/kafka"
	"github.com/okushnikov/structured-query/internal/infrastructure/llm"
	"github.com/okushnikov/structured-query/internal/infrastructure/processor"
	"github.com/okushnikov/structured-query/internal/repo/persistent"
	"github.com/okushnikov/structured-query/internal/usecase/auth"
	"github.com/okushnikov/structured-query/internal/usecase/cost"
	"github.com/okushnikov/structured-query/internal/usecase/image"
	"github.com/okushnikov/structured-query/internal/usecase/query"
	"github.com/okushnikov/structured-query/internal/usecase/usage"
	"github.com/okushnikov/structured-query/pkg/httpserver"
	"github.com/okushnikov/structured-query/pkg/kafka/consumer"
	"github.com/okushnikov/structured-query/pkg/kafka/producer"
	"github.com/okushnikov/structured-query/pkg/llmclient"
	"github.com/okushnikov/structured-query/pkg/logger"
	"github.com/okushnikov/structured-query/pkg/postgres"
	"github.com/okushnikov/structured-query/pkg/s3client"
)

func Run(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Logger
	l := logger.New(cfg.Log.Level)

	// Repository

	// s3
	s3Ctx, s3Cancel := context.WithTimeout(ctx, cfg.S3.CfgLoadTimeout)
	defer s3Cancel()
	s3c, err := s3client.New(s3Ctx, cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - s3client.New: %w", err))
	}

	// postgres
	pg, err := postgres.New(cfg.PG.URL, postgres.MaxPoolSize(cfg.PG.PoolMax))
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - postgres.New: %w", err))
	}
	defer pg.Close()

	costOutboxRepo := persistent.NewCostOutboxRepo(pg)
	usageRepo := persistent.NewUsageRepo(pg)

	// Use-Case

	authUseCase := auth.New(persistent.NewUserRepo(pg), cfg.JWT.Secret, cfg.JWT.TTL, l)

	imageUseCase := image.New(
		persistent.NewBlobRepo(s3c, cfg.S3.Bucket),
		persistent.NewImageRepo(pg),
		processor.New(),
		l,
	)

	queryUseCase := query.New(
		imageUseCase,
		persistent.NewCacheRepo(pg),
		costOutboxRepo,
		pg,
		llm.New(llmclient.New(cfg.LLM.APIKey, cfg.LLM.Model, llmclient.BaseURL(cfg.LLM.BaseURL), llmclient.Timeout(cfg.LLM.Timeout)), cfg.LLM.Model),
		l,
	)

	costEventsUseCase := cost.New(costOutboxRepo, l)
	usageUseCase := usage.New(usageRepo, l)

	// Kafka Producer
	kafkaProducer, err := producer.New(ctx, cfg.Kafka.Brokers)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - producer.New: %w", err))
	}

	// Cost Relay Worker
	costRelayWorker := outbox.New(
		costEventsUseCase,
		infrakafka.NewEventProducer(kafkaProducer, cfg.Kafka.Topic),
		l,
		cfg.CostRelay.PollInterval,
		cfg.CostRelay.CleanupInterval,
		cfg.CostRelay.MarkFailedInterval,
		cfg.CostRelay.ProcessBatchTimeout,
		cfg.CostRelay.BatchSize,
		cfg.CostRelay.MaxRetries,
	)

	// Kafka Consumer
	kafkaConsumer, err := consumer.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - consumer.New: %w", err))
	}

	// Kafka as Controller
	usageController := kafkactrl.New(
		usageUseCase,
		infrakafka.NewEventConsumer(kafkaConsumer),
		l,
		cfg.UsageConsumer.CommitTimeout,
		cfg.UsageConsumer.ProcessTimeout,
		cfg.UsageConsumer.Workers,
	)

	// HTTP Server
	httpServer := httpserver.New(l, httpserver.Port(cfg.HTTP.Port), httpserver.Prefork(cfg.HTTP.UsePreforkMode))
	restapi.NewRouter(httpServer.App, cfg, authUseCase, imageUseCase, queryUseCase, usageUseCase, l)

	// Start Components
	err = costRelayWorker.Start(ctx)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - costRelayWorker.Start: %w", err))
	}
	err = usageController.Start(ctx)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - usageController.Start: %w", err))
	}
	httpServer.Start()

	// Waiting Signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		l.Info("app - Run - signal: %s", s.String())
	case err = <-httpServer.Notify():
		l.Error(fmt.Errorf("app - Run - httpServer.Notify: %w", err))
	}

	// Shutdown
	err = httpServer.Shutdown()
	if err != nil {
		l.Error(fmt.Errorf("app - Run - httpServer.Shutdown: %w", err))
	}

	crShutdownCtx, crShutdownCancel := context.WithTimeout(ctx, cfg.CostRelay.ShutdownTimeout)
	defer crShutdownCancel()
	err = costRelayWorker.Shutdown(crShutdownCtx)
	if err != nil {
		l.Error(fmt.Errorf("app - Run - costRelayWorker.Shutdown: %w", err))
	}

	ucShutdownCtx, ucShutdownCancel := context.WithTimeout(ctx, cfg.UsageConsumer.ShutdownTimeout)
	defer ucShutdownCancel()
	err = usageController.Shutdown(ucShutdownCtx)
	if err != nil {
		l.Error(fmt.Errorf("app - Run - usageController.Shutdown: %w", err))
	}
}
