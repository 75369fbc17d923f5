package dto

type CreateEvaluationRequest struct {
	CVFileID      string `json:"cv_file_id" binding:"required"`
	ProjectFileID string `json:"project_file_id" binding:"required"`
	UserID        string `json:"user_id"`
}

type CreateEvaluationResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type UploadResponse struct {
	Message string `json:"message"`
	FileID  string `json:"file_id"`
	DocType string `json:"doc_type"`
}

type ResultDTO struct {
	CVMatchRate     *float64 `json:"cv_match_rate"`
	CVFeedback      *string  `json:"cv_feedback"`
	ProjectScore    *float64 `json:"project_score"`
	ProjectFeedback *string  `json:"project_feedback"`
	OverallSummary  *string  `json:"overall_summary"`
	RawLLMResponse  any      `json:"raw_llm_response"`
}

type EvaluationResponse struct {
	JobID        string     `json:"job_id"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Result       *ResultDTO `json:"result"`
}

type ListEvaluationsRequest struct {
	UserID   string `form:"user_id"`
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListEvaluationsResponse struct {
	Evaluations []EvaluationDTO `json:"evaluations"`
	NextCursor  string          `json:"next_cursor,omitempty"`
}

type EvaluationDTO struct {
	JobID        string `json:"job_id"`
	UserID       string `json:"user_id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}
