package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hireval/evaluator-be/internal/evaluation/llm"
	"github.com/hireval/evaluator-be/internal/worker/domain"
)

// processJob runs the full evaluation pipeline for one queued job.
// Infrastructure failures before the job is marked failed come back as
// RetryableError so the message can be requeued; evaluation failures mark
// the job failed and are terminal.
func (w *Worker) processJob(ctx context.Context, msg *domain.JobMessage) error {
	w.logger.Info("Processing job",
		slog.String("job_id", msg.JobID),
		slog.String("worker_id", w.workerID),
	)

	jobCtx := ctx
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	job, err := w.storage.GetJobByID(jobCtx, msg.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			w.logger.Warn("Job not found, dropping message",
				slog.String("job_id", msg.JobID),
			)
			return err
		}
		return domain.NewRetryableError(fmt.Errorf("failed to load job: %w", err))
	}

	if err := w.storage.MarkProcessing(jobCtx, job.JobID); err != nil {
		return domain.NewRetryableError(fmt.Errorf("failed to mark job processing: %w", err))
	}

	resultWritten, err := w.evaluate(jobCtx, job)
	if err != nil {
		w.failJob(jobCtx, job.JobID, err, resultWritten)
		return err
	}

	w.logger.Info("Evaluation completed",
		slog.String("job_id", job.JobID),
	)

	return nil
}

// evaluate runs ingest, extraction, retrieval, and the three model steps,
// then persists the result and completes the job. The bool reports whether
// the success result reached storage, so a later failure does not write a
// second result row for the job.
func (w *Worker) evaluate(ctx context.Context, job *domain.Job) (bool, error) {
	details, err := w.storage.GetJobDetails(ctx, job.JobID)
	if err != nil {
		return false, fmt.Errorf("failed to load job details: %w", err)
	}

	cvDetail := detailForRole(details, domain.RoleCV, 0)
	projectDetail := detailForRole(details, domain.RoleProject, 1)
	if cvDetail == nil {
		return false, domain.ErrCVFileMissing
	}
	if projectDetail == nil {
		return false, domain.ErrProjectFileMissing
	}

	cvFile, err := w.storage.GetUploadedFile(ctx, cvDetail.FileID)
	if err != nil {
		return false, domain.ErrCVFileMissing
	}

	projectFile, err := w.storage.GetUploadedFile(ctx, projectDetail.FileID)
	if err != nil {
		return false, domain.ErrProjectFileMissing
	}

	// Ingest is idempotent, re-running a job re-indexes the same points
	for _, file := range []*domain.UploadedFile{cvFile, projectFile} {
		if err := w.indexer.Ingest(ctx, file.Path, file.FileID, file.FileType); err != nil {
			return false, fmt.Errorf("failed to ingest file %s: %w", file.FileID, err)
		}
	}

	cvText, err := w.extractor.Extract(cvFile.Path)
	if err != nil {
		return false, fmt.Errorf("failed to extract CV text: %w", err)
	}

	projectText, err := w.extractor.Extract(projectFile.Path)
	if err != nil {
		return false, fmt.Errorf("failed to extract project text: %w", err)
	}

	if strings.TrimSpace(cvText) == "" {
		return false, domain.ErrEmptyCVFile
	}
	if strings.TrimSpace(projectText) == "" {
		return false, domain.ErrEmptyProjectFile
	}

	cvVector, err := w.embedder.Embed(ctx, cvText)
	if err != nil {
		return false, fmt.Errorf("failed to embed CV text: %w", err)
	}

	projectVector, err := w.embedder.Embed(ctx, projectText)
	if err != nil {
		return false, fmt.Errorf("failed to embed project text: %w", err)
	}

	// Retrieval failures degrade to empty context instead of failing the job
	jobDescContext := w.searchOrEmpty(ctx, w.jobDescriptionSource, cvVector)
	rubricContext := w.searchOrEmpty(ctx, w.rubricSource, cvVector)
	caseStudyContext := w.searchOrEmpty(ctx, w.caseStudySource, projectVector)

	cvContext := joinContext(jobDescContext, rubricContext)
	projectContext := joinContext(caseStudyContext, rubricContext)

	var cvResult llm.CVEvaluation
	err = w.safeLLMCall(ctx, job.JobID, domain.StepEvaluateCV, func() error {
		var callErr error
		cvResult, callErr = w.evaluator.EvaluateCV(ctx, cvText, cvContext)
		return callErr
	})
	if err != nil {
		return false, err
	}

	var projectResult llm.ProjectEvaluation
	err = w.safeLLMCall(ctx, job.JobID, domain.StepEvaluateProject, func() error {
		var callErr error
		projectResult, callErr = w.evaluator.EvaluateProject(ctx, projectText, projectContext)
		return callErr
	})
	if err != nil {
		return false, err
	}

	var finalResult llm.FinalEvaluation
	err = w.safeLLMCall(ctx, job.JobID, domain.StepFinalEvaluation, func() error {
		var callErr error
		finalResult, callErr = w.evaluator.EvaluateFinal(ctx, cvResult, projectResult)
		return callErr
	})
	if err != nil {
		return false, err
	}

	var validation []string
	for _, warning := range []string{cvResult.ValidationWarning, projectResult.ValidationWarning} {
		if warning != "" {
			validation = append(validation, warning)
		}
	}

	rawBlob, err := json.Marshal(map[string]any{
		"cv":         cvResult.Raw,
		"project":    projectResult.Raw,
		"final":      finalResult.Raw,
		"validation": validation,
	})
	if err != nil {
		return false, fmt.Errorf("failed to encode raw responses: %w", err)
	}

	result := &domain.Result{
		ResultID:        uuid.NewString(),
		JobID:           job.JobID,
		CVMatchRate:     &cvResult.MatchRate,
		CVFeedback:      &cvResult.Feedback,
		ProjectScore:    &projectResult.Score,
		ProjectFeedback: &projectResult.Feedback,
		OverallSummary:  &finalResult.OverallSummary,
		RawResponse:     string(rawBlob),
	}

	if err := w.storage.CreateResult(ctx, result); err != nil {
		return false, err
	}

	if err := w.storage.UpdateJobStatus(ctx, job.JobID, domain.JobStatusCompleted, ""); err != nil {
		return true, err
	}

	return true, nil
}

// safeLLMCall retries one evaluation step with exponential backoff. On
// exhaustion the step failure is recorded on the job and the returned error
// carries the step label, so the terminal error message names the step that
// gave out.
func (w *Worker) safeLLMCall(ctx context.Context, jobID, step string, call func() error) error {
	attempts := 0
	for {
		attempts++

		err := call()
		if err == nil {
			return nil
		}

		w.logger.Warn("LLM step failed",
			slog.String("job_id", jobID),
			slog.String("step", step),
			slog.Int("attempt", attempts),
			slog.String("error", err.Error()),
		)

		if attempts >= w.stepMaxAttempts {
			stepErr := fmt.Errorf("LLM %s failed after %d attempts: %w", step, attempts, err)
			if setErr := w.storage.SetJobError(ctx, jobID, stepErr.Error()); setErr != nil {
				w.logger.Error("Failed to record step failure",
					slog.String("job_id", jobID),
					slog.String("error", setErr.Error()),
				)
			}
			return stepErr
		}

		w.sleep(time.Duration(math.Pow(2, float64(attempts))) * time.Second)
	}
}

// failJob marks the job failed and writes a diagnostic result. Failures
// while writing the diagnostic are logged, not propagated. When the success
// result already reached storage only the status flips; a job carries at
// most one result row.
func (w *Worker) failJob(ctx context.Context, jobID string, cause error, resultExists bool) {
	w.logger.Error("Evaluation failed",
		slog.String("job_id", jobID),
		slog.String("error", cause.Error()),
	)

	if err := w.storage.UpdateJobStatus(ctx, jobID, domain.JobStatusFailed, cause.Error()); err != nil {
		w.logger.Error("Failed to mark job failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}

	if resultExists {
		return
	}

	blob, err := json.Marshal(map[string]any{
		"error":     cause.Error(),
		"backtrace": stackLines(5),
	})
	if err != nil {
		w.logger.Error("Failed to encode failure diagnostic",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return
	}

	result := &domain.Result{
		ResultID:    uuid.NewString(),
		JobID:       jobID,
		RawResponse: string(blob),
	}

	if err := w.storage.CreateResult(ctx, result); err != nil {
		w.logger.Error("Failed to create result record after job failure",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

// searchOrEmpty degrades retrieval failures to an empty context
func (w *Worker) searchOrEmpty(ctx context.Context, source ContextSource, vector []float32) []string {
	contents, err := source.Search(ctx, vector)
	if err != nil {
		w.logger.Warn("Context retrieval failed, continuing without context",
			slog.String("error", err.Error()),
		)
		return nil
	}
	return contents
}

// detailForRole finds the detail with the given role, falling back to the
// row at fallbackIndex for legacy jobs created without roles
func detailForRole(details []domain.JobDetail, role string, fallbackIndex int) *domain.JobDetail {
	for i := range details {
		if details[i].Role == role {
			return &details[i]
		}
	}

	if fallbackIndex < len(details) {
		return &details[fallbackIndex]
	}
	return nil
}

func joinContext(groups ...[]string) string {
	var all []string
	for _, group := range groups {
		all = append(all, group...)
	}
	return strings.Join(all, "\n\n")
}

// stackLines returns the first n lines of the current stack trace
func stackLines(n int) []string {
	lines := strings.Split(strings.TrimSpace(string(debug.Stack())), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}
