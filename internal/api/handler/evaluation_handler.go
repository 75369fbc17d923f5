package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hireval/evaluator-be/internal/api/domain"
	"github.com/hireval/evaluator-be/internal/api/dto"
	"github.com/hireval/evaluator-be/internal/api/model"
	"github.com/hireval/evaluator-be/internal/api/storage"
)

// CreateEvaluation handles POST /api/v1/evaluations
// Creates an evaluation job over two previously uploaded files and enqueues it
func (h *EvaluationHandler) CreateEvaluation(c *gin.Context) {
	var req dto.CreateEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if _, err := uuid.Parse(req.CVFileID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "cv_file_id must be a valid UUID",
		})
		return
	}
	if _, err := uuid.Parse(req.ProjectFileID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "project_file_id must be a valid UUID",
		})
		return
	}

	ctx := c.Request.Context()

	if _, err := h.storage.GetUploadedFile(ctx, req.CVFileID); err != nil {
		if errors.Is(err, domain.ErrFileNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cv_file_id does not reference an uploaded file"})
			return
		}
		h.logger.Error("Failed to look up cv file", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create evaluation"})
		return
	}

	if _, err := h.storage.GetUploadedFile(ctx, req.ProjectFileID); err != nil {
		if errors.Is(err, domain.ErrFileNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "project_file_id does not reference an uploaded file"})
			return
		}
		h.logger.Error("Failed to look up project file", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create evaluation"})
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = defaultUserID
	}

	job := model.Job{
		JobID:  uuid.New().String(),
		UserID: userID,
		Status: domain.JobStatusQueued,
	}

	if err := h.storage.CreateJobWithDetails(ctx, &job, req.CVFileID, req.ProjectFileID); err != nil {
		h.logger.Error("Failed to create evaluation job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create evaluation",
		})
		return
	}

	body, err := json.Marshal(map[string]string{"job_id": job.JobID})
	if err != nil {
		h.logger.Error("Failed to encode job message", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue evaluation",
		})
		return
	}

	if err := h.rabbitClient.PublishWithRetry(ctx, body, "application/json"); err != nil {
		h.logger.Error("Failed to publish evaluation job",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
		if markErr := h.storage.MarkJobFailed(ctx, job.JobID, "failed to enqueue evaluation job"); markErr != nil {
			h.logger.Error("Failed to mark unenqueued job failed",
				slog.String("job_id", job.JobID),
				slog.String("error", markErr.Error()),
			)
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue evaluation",
		})
		return
	}

	h.logger.Info("Evaluation job queued",
		slog.String("job_id", job.JobID),
		slog.String("user_id", userID),
	)

	c.JSON(http.StatusAccepted, dto.CreateEvaluationResponse{
		JobID:  job.JobID,
		Status: job.Status,
	})
}

// GetEvaluation handles GET /api/v1/evaluations/:job_id
// Returns the job status and, when present, its latest result
func (h *EvaluationHandler) GetEvaluation(c *gin.Context) {
	jobID := c.Param("job_id")

	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	ctx := c.Request.Context()

	job, err := h.storage.GetJobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Evaluation not found",
			})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get evaluation",
		})
		return
	}

	result, err := h.storage.GetLatestResult(ctx, jobID)
	if err != nil {
		h.logger.Error("Failed to get result", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get evaluation",
		})
		return
	}

	response := dto.EvaluationResponse{
		JobID:        job.JobID,
		Status:       job.Status,
		ErrorMessage: job.ErrorMessage.String,
		Result:       buildResultDTO(result),
	}

	c.JSON(http.StatusOK, response)
}

// ListEvaluations handles GET /api/v1/evaluations
// Lists evaluation jobs with optional filtering and cursor pagination
func (h *EvaluationHandler) ListEvaluations(c *gin.Context) {
	var req dto.ListEvaluationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.JobFilter{
		UserID:   req.UserID,
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}

	jobs, err := h.storage.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list evaluations",
		})
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	evaluations := make([]dto.EvaluationDTO, len(jobs))
	for i, job := range jobs {
		evaluations[i] = dto.EvaluationDTO{
			JobID:        job.JobID,
			UserID:       job.UserID,
			Status:       job.Status,
			ErrorMessage: job.ErrorMessage.String,
			CreatedAt:    job.CreatedAt.Format(time.RFC3339),
			UpdatedAt:    job.UpdatedAt.Format(time.RFC3339),
		}
	}

	var nextCursor string
	if hasMore {
		lastJob := jobs[len(jobs)-1]
		cursorObj := storage.JobCursor{
			CreatedAt: lastJob.CreatedAt,
			JobID:     lastJob.JobID,
		}
		nextCursor, err = EncodeJobCursor(&cursorObj)
		if err != nil {
			h.logger.Error("Failed to encode next cursor", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to encode next cursor",
			})
			return
		}
	}

	c.JSON(http.StatusOK, dto.ListEvaluationsResponse{
		Evaluations: evaluations,
		NextCursor:  nextCursor,
	})
}

// buildResultDTO maps a result row to its response shape, decoding the raw
// model response blob when it is valid JSON
func buildResultDTO(result *model.Result) *dto.ResultDTO {
	if result == nil {
		return nil
	}

	out := &dto.ResultDTO{
		CVMatchRate:     result.CVMatchRate,
		CVFeedback:      result.CVFeedback,
		ProjectScore:    result.ProjectScore,
		ProjectFeedback: result.ProjectFeedback,
		OverallSummary:  result.OverallSummary,
	}

	if result.RawLLMResponse != nil {
		var raw any
		if err := json.Unmarshal([]byte(*result.RawLLMResponse), &raw); err == nil {
			out.RawLLMResponse = raw
		} else {
			out.RawLLMResponse = *result.RawLLMResponse
		}
	}

	return out
}
