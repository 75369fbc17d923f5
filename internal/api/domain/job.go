package domain

import (
	"errors"
)

const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

const (
	DocTypeCV      = "cv"
	DocTypeProject = "project"
)

var (
	ErrJobNotFound  = errors.New("job not found")
	ErrFileNotFound = errors.New("uploaded file not found")
)
