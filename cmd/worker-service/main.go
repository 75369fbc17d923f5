package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/hireval/evaluator-be/internal/config"
	"github.com/hireval/evaluator-be/internal/evaluation/embedding"
	"github.com/hireval/evaluator-be/internal/evaluation/extract"
	"github.com/hireval/evaluator-be/internal/evaluation/ingest"
	"github.com/hireval/evaluator-be/internal/evaluation/llm"
	"github.com/hireval/evaluator-be/internal/evaluation/retrieval"
	"github.com/hireval/evaluator-be/internal/worker"
	workerstorage "github.com/hireval/evaluator-be/internal/worker/storage"
	"github.com/hireval/evaluator-be/shared/logger"
	"github.com/hireval/evaluator-be/shared/postgresql"
	"github.com/hireval/evaluator-be/shared/qdrant"
	"github.com/hireval/evaluator-be/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	// Initialize RabbitMQ client
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	// Initialize vector index client
	qdrantClient := qdrant.NewClient(&qdrant.Config{
		BaseURL:    cfg.Qdrant.URL,
		VectorSize: cfg.Qdrant.VectorSize,
		Distance:   cfg.Qdrant.Distance,
		Timeout:    cfg.Qdrant.Timeout,
	}, appLogger.Logger)

	// SDK retries stay off, the evaluation service owns the retry policy
	openaiClient := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)

	var embedder embedding.Provider
	switch cfg.Evaluation.EmbeddingProvider {
	case "openai":
		embedder = embedding.NewOpenAIProvider(openaiClient, cfg.OpenAI.EmbeddingModel)
	default:
		embedder = embedding.NewMockProvider()
	}

	appLogger.Info("Embedding provider configured",
		slog.String("provider", cfg.Evaluation.EmbeddingProvider),
	)

	extractor := extract.NewPDFExtractor()

	indexer := ingest.NewIndexer(&ingest.Config{
		Index:     qdrantClient,
		Embedder:  embedder,
		Extractor: extractor,
		ChunkSize: cfg.Evaluation.ChunkSize,
		Logger:    appLogger.Logger,
	})

	chatClient := llm.NewOpenAIChatClient(
		openaiClient,
		cfg.OpenAI.Model,
		cfg.OpenAI.Temperature,
		int64(cfg.OpenAI.MaxCompletionTokens),
	)

	evaluator := llm.NewService(&llm.Config{
		Client:      chatClient,
		Logger:      appLogger.Logger,
		CallTimeout: cfg.OpenAI.RequestTimeout,
	})

	retrievalLimit := cfg.Evaluation.RetrievalLimit

	workerID := fmt.Sprintf("worker-%s", uuid.New().String()[:8])

	// Create worker instance
	workerInstance := worker.NewWorker(&worker.Config{
		Logger:               appLogger.Logger,
		RabbitClient:         rabbitClient,
		Storage:              workerstorage.NewStorage(dbClient.GetDB(), appLogger.Logger),
		Indexer:              indexer,
		Extractor:            extractor,
		Embedder:             embedder,
		Evaluator:            evaluator,
		JobDescriptionSource: retrieval.NewRetriever(qdrantClient, retrieval.CollectionJobDescription, retrievalLimit, appLogger.Logger),
		RubricSource:         retrieval.NewRetriever(qdrantClient, retrieval.CollectionRubric, retrievalLimit, appLogger.Logger),
		CaseStudySource:      retrieval.NewRetriever(qdrantClient, retrieval.CollectionCaseStudy, retrievalLimit, appLogger.Logger),
		WorkerID:             workerID,
		QueueName:            cfg.RabbitMQ.Queue.Name,
		Concurrency:          cfg.Worker.Concurrency,
		PrefetchCount:        cfg.RabbitMQ.Consumer.PrefetchCount,
		JobTimeout:           cfg.Worker.JobTimeout,
		StepMaxAttempts:      cfg.Evaluation.StepMaxAttempts,
	})

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start worker in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := workerInstance.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Worker service started successfully",
		slog.String("worker_id", workerID),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Worker error",
			slog.Any("error", err),
		)
		return err
	}

	// Cancel context to stop worker
	cancel()

	// Give worker time to shutdown gracefully
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	// Stop worker
	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	// Cleanup function to close all resources
	cleanup := func() {
		if dbClient != nil {
			dbClient.Close()
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
	}
	cleanup()

	appLogger.Info("Worker service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
