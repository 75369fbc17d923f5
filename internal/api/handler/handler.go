package handler

import (
	"log/slog"

	"github.com/hireval/evaluator-be/internal/api/storage"
	"github.com/hireval/evaluator-be/shared/postgresql"
	"github.com/hireval/evaluator-be/shared/rabbitmq"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	DBClient     *postgresql.Client
	RabbitClient *rabbitmq.Client
	UploadDir    string
}

// UploadHandler handles document upload requests
type UploadHandler struct {
	logger    *slog.Logger
	storage   *storage.Storage
	uploadDir string
}

// NewUploadHandler creates a new UploadHandler instance
func NewUploadHandler(deps *Dependencies) *UploadHandler {
	return &UploadHandler{
		logger:    deps.Logger,
		storage:   storage.NewStorage(deps.DBClient),
		uploadDir: deps.UploadDir,
	}
}

// EvaluationHandler handles evaluation job HTTP requests
type EvaluationHandler struct {
	logger       *slog.Logger
	storage      *storage.Storage
	rabbitClient *rabbitmq.Client
}

// NewEvaluationHandler creates a new EvaluationHandler instance
func NewEvaluationHandler(deps *Dependencies) *EvaluationHandler {
	return &EvaluationHandler{
		logger:       deps.Logger,
		storage:      storage.NewStorage(deps.DBClient),
		rabbitClient: deps.RabbitClient,
	}
}
