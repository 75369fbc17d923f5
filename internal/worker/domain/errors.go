package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrFileNotFound is returned when an uploaded file row is missing
	ErrFileNotFound = errors.New("uploaded file not found")

	// Terminal evaluation failures. The messages are stored verbatim in the
	// job's error_message column, so they are part of the API contract.
	ErrCVFileMissing      = errors.New("CV file missing")
	ErrProjectFileMissing = errors.New("Project file missing")
	ErrEmptyCVFile        = errors.New("Empty CV file")
	ErrEmptyProjectFile   = errors.New("Empty project file")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
