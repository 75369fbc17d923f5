package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hireval/evaluator-be/internal/evaluation/embedding"
	"github.com/hireval/evaluator-be/internal/evaluation/extract"
	"github.com/hireval/evaluator-be/internal/evaluation/llm"
	"github.com/hireval/evaluator-be/internal/worker/domain"
	"github.com/hireval/evaluator-be/shared/rabbitmq"
)

const defaultStepMaxAttempts = 3

// Storage is the persistence surface the worker needs
type Storage interface {
	GetJobByID(ctx context.Context, jobID string) (*domain.Job, error)
	MarkProcessing(ctx context.Context, jobID string) error
	UpdateJobStatus(ctx context.Context, jobID, status, errorMsg string) error
	SetJobError(ctx context.Context, jobID, errorMsg string) error
	GetJobDetails(ctx context.Context, jobID string) ([]domain.JobDetail, error)
	GetUploadedFile(ctx context.Context, fileID string) (*domain.UploadedFile, error)
	CreateResult(ctx context.Context, result *domain.Result) error
}

// Ingester indexes one stored document into the vector index
type Ingester interface {
	Ingest(ctx context.Context, path, fileID, docType string) error
}

// Evaluator runs the three model evaluation steps
type Evaluator interface {
	EvaluateCV(ctx context.Context, cvText, contextText string) (llm.CVEvaluation, error)
	EvaluateProject(ctx context.Context, projectText, contextText string) (llm.ProjectEvaluation, error)
	EvaluateFinal(ctx context.Context, cv llm.CVEvaluation, project llm.ProjectEvaluation) (llm.FinalEvaluation, error)
}

// ContextSource retrieves ground-truth context chunks for a query vector
type ContextSource interface {
	Search(ctx context.Context, vector []float32) ([]string, error)
}

// Config holds worker configuration
type Config struct {
	Logger       *slog.Logger
	RabbitClient *rabbitmq.Client
	Storage      Storage
	Indexer      Ingester
	Extractor    extract.Extractor
	Embedder     embedding.Provider
	Evaluator    Evaluator

	JobDescriptionSource ContextSource
	RubricSource         ContextSource
	CaseStudySource      ContextSource

	WorkerID        string
	QueueName       string
	Concurrency     int
	PrefetchCount   int
	JobTimeout      time.Duration
	StepMaxAttempts int
}

// Worker consumes evaluation jobs from RabbitMQ and runs the pipeline
type Worker struct {
	logger       *slog.Logger
	rabbitClient *rabbitmq.Client
	storage      Storage
	indexer      Ingester
	extractor    extract.Extractor
	embedder     embedding.Provider
	evaluator    Evaluator

	jobDescriptionSource ContextSource
	rubricSource         ContextSource
	caseStudySource      ContextSource

	workerID          string
	rabbitMQQueueName string
	concurrency       int
	prefetchCount     int
	jobTimeout        time.Duration
	stepMaxAttempts   int

	jobsChan chan *domain.JobMessage
	wg       sync.WaitGroup
	stopChan chan struct{}

	// injectable for tests
	sleep func(time.Duration)
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	stepMaxAttempts := cfg.StepMaxAttempts
	if stepMaxAttempts <= 0 {
		stepMaxAttempts = defaultStepMaxAttempts
	}

	return &Worker{
		logger:               cfg.Logger,
		rabbitClient:         cfg.RabbitClient,
		storage:              cfg.Storage,
		indexer:              cfg.Indexer,
		extractor:            cfg.Extractor,
		embedder:             cfg.Embedder,
		evaluator:            cfg.Evaluator,
		jobDescriptionSource: cfg.JobDescriptionSource,
		rubricSource:         cfg.RubricSource,
		caseStudySource:      cfg.CaseStudySource,
		workerID:             cfg.WorkerID,
		rabbitMQQueueName:    cfg.QueueName,
		concurrency:          cfg.Concurrency,
		prefetchCount:        cfg.PrefetchCount,
		jobTimeout:           cfg.JobTimeout,
		stepMaxAttempts:      stepMaxAttempts,
		jobsChan:             make(chan *domain.JobMessage, cfg.Concurrency),
		stopChan:             make(chan struct{}),
		sleep:                time.Sleep,
	}
}

// Start begins consuming and processing jobs. It blocks until the context
// is canceled or the delivery channel closes.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer(ctx)
	if err != nil {
		return err
	}

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
