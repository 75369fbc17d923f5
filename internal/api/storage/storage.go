package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hireval/evaluator-be/internal/api/domain"
	"github.com/hireval/evaluator-be/internal/api/model"
	"github.com/hireval/evaluator-be/shared/postgresql"
)

type Storage struct {
	pg *postgresql.Client
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		pg: pg,
		db: pg.GetDB(),
	}
}

func (s *Storage) CreateUploadedFile(ctx context.Context, file *model.UploadedFile) error {
	query := `
		INSERT INTO uploaded_files (file_id, user_id, file_type, path)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.db.ExecContext(ctx, query, file.FileID, file.UserID, file.FileType, file.Path)
	if err != nil {
		return fmt.Errorf("failed to create uploaded file: %w", err)
	}

	return nil
}

func (s *Storage) GetUploadedFile(ctx context.Context, fileID string) (*model.UploadedFile, error) {
	var file model.UploadedFile
	query := `
		SELECT file_id, user_id, file_type, path, created_at
		FROM uploaded_files
		WHERE file_id = $1
	`

	err := s.db.GetContext(ctx, &file, query, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get uploaded file: %w", err)
	}

	return &file, nil
}

// CreateJobWithDetails inserts the job and both document links in one
// transaction so a half-created job can never be queued
func (s *Storage) CreateJobWithDetails(ctx context.Context, job *model.Job, cvFileID, projectFileID string) error {
	tx, err := s.pg.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	jobQuery := `
		INSERT INTO jobs (job_id, user_id, status)
		VALUES ($1, $2, $3)
	`
	if _, err := tx.ExecContext(ctx, jobQuery, job.JobID, job.UserID, job.Status); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	detailQuery := `
		INSERT INTO job_details (job_id, file_id, role)
		VALUES ($1, $2, $3)
	`
	if _, err := tx.ExecContext(ctx, detailQuery, job.JobID, cvFileID, domain.DocTypeCV); err != nil {
		return fmt.Errorf("failed to create cv job detail: %w", err)
	}
	if _, err := tx.ExecContext(ctx, detailQuery, job.JobID, projectFileID, domain.DocTypeProject); err != nil {
		return fmt.Errorf("failed to create project job detail: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit job creation: %w", err)
	}

	return nil
}

func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*model.Job, error) {
	var job model.Job
	query := `
		SELECT job_id, user_id, status, error_message, created_at, updated_at
		FROM jobs
		WHERE job_id = $1
	`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// MarkJobFailed records an enqueue failure so the job does not sit queued
// forever with no message behind it
func (s *Storage) MarkJobFailed(ctx context.Context, jobID, errorMsg string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    error_message = $2,
		    updated_at = NOW()
		WHERE job_id = $3
	`

	_, err := s.db.ExecContext(ctx, query, domain.JobStatusFailed, errorMsg, jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	return nil
}

// GetLatestResult returns the newest result row for a job, or nil when no
// result exists yet
func (s *Storage) GetLatestResult(ctx context.Context, jobID string) (*model.Result, error) {
	var result model.Result
	query := `
		SELECT result_id, job_id, cv_match_rate, cv_feedback,
		       project_score, project_feedback, overall_summary,
		       raw_llm_response, created_at
		FROM results
		WHERE job_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	err := s.db.GetContext(ctx, &result, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	return &result, nil
}

type JobFilter struct {
	UserID   string
	Status   string
	PageSize int
	Cursor   *JobCursor
}

type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `
		SELECT job_id, user_id, status, error_message, created_at, updated_at
		FROM jobs
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	// Order by created_at DESC, job_id DESC for consistent pagination
	query += " ORDER BY created_at DESC, job_id DESC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []model.Job
	err := s.db.SelectContext(ctx, &jobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}
