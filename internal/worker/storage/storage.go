package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/hireval/evaluator-be/internal/worker/domain"
)

// Storage handles all database operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// GetJobByID retrieves a job from the database by its ID
func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
		SELECT job_id, user_id, status, error_message
		FROM jobs
		WHERE job_id = $1
	`

	var job domain.Job
	var errorMessage sql.NullString

	err := s.db.QueryRowContext(ctx, query, jobID).Scan(
		&job.JobID,
		&job.UserID,
		&job.Status,
		&errorMessage,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	if errorMessage.Valid {
		job.ErrorMessage = errorMessage.String
	}

	return &job, nil
}

// MarkProcessing moves the job into processing and clears any prior error
func (s *Storage) MarkProcessing(ctx context.Context, jobID string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    error_message = NULL,
		    updated_at = NOW()
		WHERE job_id = $2
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusProcessing, jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrJobNotFound
	}

	s.logger.Info("Job marked processing", slog.String("job_id", jobID))

	return nil
}

// UpdateJobStatus sets the job status and replaces the error message.
// An empty errorMsg clears the column.
func (s *Storage) UpdateJobStatus(ctx context.Context, jobID, status, errorMsg string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    error_message = NULLIF($2, ''),
		    updated_at = NOW()
		WHERE job_id = $3
	`

	_, err := s.db.ExecContext(ctx, query, status, errorMsg, jobID)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	s.logger.Info("Job status updated",
		slog.String("job_id", jobID),
		slog.String("status", status),
	)

	return nil
}

// SetJobError records an error message without changing the job status
func (s *Storage) SetJobError(ctx context.Context, jobID, errorMsg string) error {
	query := `
		UPDATE jobs
		SET error_message = $1,
		    updated_at = NOW()
		WHERE job_id = $2
	`

	_, err := s.db.ExecContext(ctx, query, errorMsg, jobID)
	if err != nil {
		return fmt.Errorf("failed to set job error: %w", err)
	}

	return nil
}

// GetJobDetails returns the job's document links in insertion order
func (s *Storage) GetJobDetails(ctx context.Context, jobID string) ([]domain.JobDetail, error) {
	query := `
		SELECT id, job_id, file_id, role
		FROM job_details
		WHERE job_id = $1
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job details: %w", err)
	}
	defer rows.Close()

	var details []domain.JobDetail
	for rows.Next() {
		var detail domain.JobDetail
		if err := rows.Scan(&detail.ID, &detail.JobID, &detail.FileID, &detail.Role); err != nil {
			return nil, fmt.Errorf("failed to scan job detail: %w", err)
		}
		details = append(details, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read job details: %w", err)
	}

	return details, nil
}

// GetUploadedFile retrieves an uploaded file row by its ID
func (s *Storage) GetUploadedFile(ctx context.Context, fileID string) (*domain.UploadedFile, error) {
	query := `
		SELECT file_id, user_id, file_type, path
		FROM uploaded_files
		WHERE file_id = $1
	`

	var file domain.UploadedFile
	err := s.db.QueryRowContext(ctx, query, fileID).Scan(
		&file.FileID,
		&file.UserID,
		&file.FileType,
		&file.Path,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get uploaded file: %w", err)
	}

	return &file, nil
}

// CreateResult persists an evaluation result row
func (s *Storage) CreateResult(ctx context.Context, result *domain.Result) error {
	query := `
		INSERT INTO results (
			result_id, job_id,
			cv_match_rate, cv_feedback,
			project_score, project_feedback,
			overall_summary, raw_llm_response
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		result.ResultID,
		result.JobID,
		result.CVMatchRate,
		result.CVFeedback,
		result.ProjectScore,
		result.ProjectFeedback,
		result.OverallSummary,
		result.RawResponse,
	)
	if err != nil {
		return fmt.Errorf("failed to create result: %w", err)
	}

	s.logger.Info("Result created",
		slog.String("result_id", result.ResultID),
		slog.String("job_id", result.JobID),
	)

	return nil
}
