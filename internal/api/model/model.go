package model

import (
	"database/sql"
	"time"
)

type Job struct {
	JobID        string         `db:"job_id"`
	UserID       string         `db:"user_id"`
	Status       string         `db:"status"`
	ErrorMessage sql.NullString `db:"error_message"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

type UploadedFile struct {
	FileID    string    `db:"file_id"`
	UserID    string    `db:"user_id"`
	FileType  string    `db:"file_type"`
	Path      string    `db:"path"`
	CreatedAt time.Time `db:"created_at"`
}

type Result struct {
	ResultID        string    `db:"result_id"`
	JobID           string    `db:"job_id"`
	CVMatchRate     *float64  `db:"cv_match_rate"`
	CVFeedback      *string   `db:"cv_feedback"`
	ProjectScore    *float64  `db:"project_score"`
	ProjectFeedback *string   `db:"project_feedback"`
	OverallSummary  *string   `db:"overall_summary"`
	RawLLMResponse  *string   `db:"raw_llm_response"`
	CreatedAt       time.Time `db:"created_at"`
}
