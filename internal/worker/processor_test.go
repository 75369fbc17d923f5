package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireval/evaluator-be/internal/evaluation/embedding"
	"github.com/hireval/evaluator-be/internal/evaluation/llm"
	"github.com/hireval/evaluator-be/internal/worker/domain"
	"github.com/hireval/evaluator-be/shared/logger"
)

type fakeStorage struct {
	jobs    map[string]*domain.Job
	details map[string][]domain.JobDetail
	files   map[string]*domain.UploadedFile

	results     []*domain.Result
	lastStatus  string
	lastError   string
	stepErrors  []string
	completeErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		jobs:    make(map[string]*domain.Job),
		details: make(map[string][]domain.JobDetail),
		files:   make(map[string]*domain.UploadedFile),
	}
}

func (f *fakeStorage) GetJobByID(_ context.Context, jobID string) (*domain.Job, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeStorage) MarkProcessing(_ context.Context, jobID string) error {
	f.lastStatus = domain.JobStatusProcessing
	f.lastError = ""
	return nil
}

func (f *fakeStorage) UpdateJobStatus(_ context.Context, jobID, status, errorMsg string) error {
	if status == domain.JobStatusCompleted && f.completeErr != nil {
		return f.completeErr
	}
	f.lastStatus = status
	f.lastError = errorMsg
	return nil
}

func (f *fakeStorage) SetJobError(_ context.Context, jobID, errorMsg string) error {
	f.stepErrors = append(f.stepErrors, errorMsg)
	f.lastError = errorMsg
	return nil
}

func (f *fakeStorage) GetJobDetails(_ context.Context, jobID string) ([]domain.JobDetail, error) {
	return f.details[jobID], nil
}

func (f *fakeStorage) GetUploadedFile(_ context.Context, fileID string) (*domain.UploadedFile, error) {
	file, ok := f.files[fileID]
	if !ok {
		return nil, domain.ErrFileNotFound
	}
	return file, nil
}

func (f *fakeStorage) CreateResult(_ context.Context, result *domain.Result) error {
	f.results = append(f.results, result)
	return nil
}

type fakeIngester struct {
	calls []string
	err   error
}

func (f *fakeIngester) Ingest(_ context.Context, path, fileID, docType string) error {
	f.calls = append(f.calls, fileID)
	return f.err
}

type mapExtractor struct {
	texts map[string]string
}

func (m *mapExtractor) Extract(path string) (string, error) {
	return m.texts[path], nil
}

type fakeEvaluator struct {
	cvCalls      int
	projectCalls int
	finalCalls   int
	projectErr   error
	cvWarning    string
}

func (f *fakeEvaluator) EvaluateCV(_ context.Context, cvText, contextText string) (llm.CVEvaluation, error) {
	f.cvCalls++
	return llm.CVEvaluation{
		MatchRate:         84,
		Feedback:          "strong backend profile",
		Raw:               `{"cv_match_rate": 4.2}`,
		ValidationWarning: f.cvWarning,
	}, nil
}

func (f *fakeEvaluator) EvaluateProject(_ context.Context, projectText, contextText string) (llm.ProjectEvaluation, error) {
	f.projectCalls++
	if f.projectErr != nil {
		return llm.ProjectEvaluation{}, f.projectErr
	}
	return llm.ProjectEvaluation{
		Score:    92,
		Feedback: "resilient design",
		Raw:      `{"project_score": 92}`,
	}, nil
}

func (f *fakeEvaluator) EvaluateFinal(_ context.Context, cv llm.CVEvaluation, project llm.ProjectEvaluation) (llm.FinalEvaluation, error) {
	f.finalCalls++
	return llm.FinalEvaluation{
		OverallSummary: "Recommended with minor gaps.",
		Raw:            `{"overall_summary": "Recommended with minor gaps."}`,
	}, nil
}

type stubContextSource struct {
	contents []string
	err      error
}

func (s *stubContextSource) Search(_ context.Context, vector []float32) ([]string, error) {
	return s.contents, s.err
}

type pipelineFixture struct {
	worker    *Worker
	storage   *fakeStorage
	ingester  *fakeIngester
	evaluator *fakeEvaluator
}

func newPipelineFixture(texts map[string]string) *pipelineFixture {
	storage := newFakeStorage()
	ingester := &fakeIngester{}
	evaluator := &fakeEvaluator{}

	w := NewWorker(&Config{
		Logger:               logger.NewDefault().Logger,
		Storage:              storage,
		Indexer:              ingester,
		Extractor:            &mapExtractor{texts: texts},
		Embedder:             embedding.NewMockProvider(),
		Evaluator:            evaluator,
		JobDescriptionSource: &stubContextSource{contents: []string{"backend role"}},
		RubricSource:         &stubContextSource{contents: []string{"rubric"}},
		CaseStudySource:      &stubContextSource{err: errors.New("index down")},
		WorkerID:             "worker-test",
		Concurrency:          1,
	})
	w.sleep = func(time.Duration) {}

	return &pipelineFixture{worker: w, storage: storage, ingester: ingester, evaluator: evaluator}
}

func (f *pipelineFixture) seedJob(jobID string) {
	f.storage.jobs[jobID] = &domain.Job{JobID: jobID, UserID: "user-1", Status: domain.JobStatusQueued}
	f.storage.details[jobID] = []domain.JobDetail{
		{ID: 1, JobID: jobID, FileID: "cv-file", Role: domain.RoleCV},
		{ID: 2, JobID: jobID, FileID: "project-file", Role: domain.RoleProject},
	}
	f.storage.files["cv-file"] = &domain.UploadedFile{FileID: "cv-file", FileType: "cv", Path: "/tmp/cv.pdf"}
	f.storage.files["project-file"] = &domain.UploadedFile{FileID: "project-file", FileType: "project", Path: "/tmp/project.pdf"}
}

func TestProcessJob_Success(t *testing.T) {
	f := newPipelineFixture(map[string]string{
		"/tmp/cv.pdf":      "years of backend experience",
		"/tmp/project.pdf": "project report with retries",
	})
	f.seedJob("job-1")

	err := f.worker.processJob(context.Background(), &domain.JobMessage{JobID: "job-1"})
	require.NoError(t, err)

	assert.Equal(t, domain.JobStatusCompleted, f.storage.lastStatus)
	assert.Empty(t, f.storage.lastError)
	assert.Equal(t, []string{"cv-file", "project-file"}, f.ingester.calls)

	require.Len(t, f.storage.results, 1)
	result := f.storage.results[0]
	require.NotNil(t, result.CVMatchRate)
	assert.Equal(t, float64(84), *result.CVMatchRate)
	require.NotNil(t, result.ProjectScore)
	assert.Equal(t, float64(92), *result.ProjectScore)
	require.NotNil(t, result.OverallSummary)
	assert.Equal(t, "Recommended with minor gaps.", *result.OverallSummary)

	var blob map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.RawResponse), &blob))
	assert.Contains(t, blob, "cv")
	assert.Contains(t, blob, "project")
	assert.Contains(t, blob, "final")
	assert.Contains(t, blob, "validation")
}

func TestProcessJob_ValidationWarningsCollected(t *testing.T) {
	f := newPipelineFixture(map[string]string{
		"/tmp/cv.pdf":      "cv text",
		"/tmp/project.pdf": "project text",
	})
	f.seedJob("job-1")
	f.evaluator.cvWarning = "Missing keys: cv_feedback"

	err := f.worker.processJob(context.Background(), &domain.JobMessage{JobID: "job-1"})
	require.NoError(t, err)

	var blob struct {
		Validation []string `json:"validation"`
	}
	require.NoError(t, json.Unmarshal([]byte(f.storage.results[0].RawResponse), &blob))
	assert.Equal(t, []string{"Missing keys: cv_feedback"}, blob.Validation)
}

func TestProcessJob_EmptyCVFile(t *testing.T) {
	f := newPipelineFixture(map[string]string{
		"/tmp/cv.pdf":      "   \n ",
		"/tmp/project.pdf": "project text",
	})
	f.seedJob("job-1")

	err := f.worker.processJob(context.Background(), &domain.JobMessage{JobID: "job-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyCVFile)

	assert.Equal(t, domain.JobStatusFailed, f.storage.lastStatus)
	assert.Equal(t, "Empty CV file", f.storage.lastError)

	// diagnostic result carries the error and a short backtrace
	require.Len(t, f.storage.results, 1)
	var blob struct {
		Error     string   `json:"error"`
		Backtrace []string `json:"backtrace"`
	}
	require.NoError(t, json.Unmarshal([]byte(f.storage.results[0].RawResponse), &blob))
	assert.Equal(t, "Empty CV file", blob.Error)
	assert.NotEmpty(t, blob.Backtrace)
	assert.LessOrEqual(t, len(blob.Backtrace), 5)
	assert.Nil(t, f.storage.results[0].CVMatchRate)
}

func TestProcessJob_MissingProjectFile(t *testing.T) {
	f := newPipelineFixture(map[string]string{"/tmp/cv.pdf": "cv text"})
	f.seedJob("job-1")
	delete(f.storage.files, "project-file")

	err := f.worker.processJob(context.Background(), &domain.JobMessage{JobID: "job-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProjectFileMissing)
	assert.Equal(t, domain.JobStatusFailed, f.storage.lastStatus)
	assert.Equal(t, "Project file missing", f.storage.lastError)
}

func TestProcessJob_PositionalRoleFallback(t *testing.T) {
	f := newPipelineFixture(map[string]string{
		"/tmp/cv.pdf":      "cv text",
		"/tmp/project.pdf": "project text",
	})
	f.seedJob("job-1")
	// legacy rows carry no usable role ordering, first is cv, second project
	f.storage.details["job-1"] = []domain.JobDetail{
		{ID: 1, JobID: "job-1", FileID: "cv-file", Role: ""},
		{ID: 2, JobID: "job-1", FileID: "project-file", Role: ""},
	}

	err := f.worker.processJob(context.Background(), &domain.JobMessage{JobID: "job-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, f.storage.lastStatus)
}

func TestProcessJob_StepRetriesThenFails(t *testing.T) {
	f := newPipelineFixture(map[string]string{
		"/tmp/cv.pdf":      "cv text",
		"/tmp/project.pdf": "project text",
	})
	f.seedJob("job-1")
	f.evaluator.projectErr = errors.New("model unavailable")

	err := f.worker.processJob(context.Background(), &domain.JobMessage{JobID: "job-1"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "evaluate_project")

	assert.Equal(t, 1, f.evaluator.cvCalls)
	assert.Equal(t, 3, f.evaluator.projectCalls)
	assert.Equal(t, 0, f.evaluator.finalCalls)

	require.Len(t, f.storage.stepErrors, 1)
	assert.Equal(t, "LLM evaluate_project failed after 3 attempts: model unavailable", f.storage.stepErrors[0])

	// the terminal error message names the step that gave out
	assert.Equal(t, domain.JobStatusFailed, f.storage.lastStatus)
	assert.Equal(t, "LLM evaluate_project failed after 3 attempts: model unavailable", f.storage.lastError)
}

func TestProcessJob_CompleteStatusWriteFails(t *testing.T) {
	f := newPipelineFixture(map[string]string{
		"/tmp/cv.pdf":      "cv text",
		"/tmp/project.pdf": "project text",
	})
	f.seedJob("job-1")
	f.storage.completeErr = errors.New("connection refused")

	err := f.worker.processJob(context.Background(), &domain.JobMessage{JobID: "job-1"})
	require.Error(t, err)

	assert.Equal(t, domain.JobStatusFailed, f.storage.lastStatus)

	// the persisted success result stays the only result row, no
	// diagnostic row is added on top of it
	require.Len(t, f.storage.results, 1)
	assert.NotNil(t, f.storage.results[0].CVMatchRate)
}

func TestProcessJob_JobNotFound(t *testing.T) {
	f := newPipelineFixture(nil)

	err := f.worker.processJob(context.Background(), &domain.JobMessage{JobID: "missing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	var retryable *domain.RetryableError
	assert.False(t, errors.As(err, &retryable))
	assert.Empty(t, f.storage.results)
}

func TestShouldRequeueJob(t *testing.T) {
	f := newPipelineFixture(nil)

	retryable := domain.NewRetryableError(errors.New("db down"))
	terminal := errors.New("Empty CV file")

	assert.True(t, f.worker.shouldRequeueJob(retryable, &domain.JobMessage{}))
	assert.False(t, f.worker.shouldRequeueJob(retryable, &domain.JobMessage{Redelivered: true}))
	assert.False(t, f.worker.shouldRequeueJob(terminal, &domain.JobMessage{}))
}
