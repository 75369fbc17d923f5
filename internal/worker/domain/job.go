package domain

// Job represents an evaluation job row for worker processing
type Job struct {
	JobID        string
	UserID       string
	Status       string
	ErrorMessage string
}

// JobDetail links a job to one uploaded document and its role
type JobDetail struct {
	ID     int64
	JobID  string
	FileID string
	Role   string
}

// UploadedFile is a stored candidate document
type UploadedFile struct {
	FileID   string
	UserID   string
	FileType string
	Path     string
}

// Result is the persisted outcome of an evaluation job. Score and feedback
// fields are nil for diagnostic results written after a failure.
type Result struct {
	ResultID        string
	JobID           string
	CVMatchRate     *float64
	CVFeedback      *string
	ProjectScore    *float64
	ProjectFeedback *string
	OverallSummary  *string
	RawResponse     string
}

// JobMessage represents a job message consumed from RabbitMQ
type JobMessage struct {
	JobID       string `json:"job_id"`
	DeliveryTag uint64 `json:"-"`
	Redelivered bool   `json:"-"`
}
