package domain

// Job status constants
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Job detail roles
const (
	RoleCV      = "cv"
	RoleProject = "project"
)

// Evaluation step names recorded in error messages
const (
	StepEvaluateCV      = "evaluate_cv"
	StepEvaluateProject = "evaluate_project"
	StepFinalEvaluation = "final_evaluation"
)
