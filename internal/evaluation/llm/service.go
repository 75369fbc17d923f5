package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMaxRetries  = 3
	defaultCallTimeout = 60 * time.Second
	backoffBase        = 1.5

	feedbackFallbackLimit = 2000
	summaryFallbackLimit  = 1000
)

// ErrEmptyResponse is returned when the model produced output with no usable
// content at all
var ErrEmptyResponse = errors.New("empty or invalid model response")

// retriablePattern matches transient provider failures worth retrying
var retriablePattern = regexp.MustCompile(`(?i)(timeout|429|temporarily|reset|rate)`)

// CVEvaluation is the scored outcome of the CV step
type CVEvaluation struct {
	MatchRate         float64
	Feedback          string
	Raw               string
	ValidationWarning string
}

// ProjectEvaluation is the scored outcome of the project step
type ProjectEvaluation struct {
	Score             float64
	Feedback          string
	Raw               string
	ValidationWarning string
}

// FinalEvaluation is the synthesis of both prior steps
type FinalEvaluation struct {
	OverallSummary    string
	Raw               string
	ValidationWarning string
}

// Service drives the three evaluation prompts through a ChatClient with
// bounded retries, response parsing, validation, and score normalization.
type Service struct {
	client      ChatClient
	logger      *slog.Logger
	maxRetries  int
	callTimeout time.Duration

	// injectable for tests
	sleep  func(time.Duration)
	jitter func() float64
}

// Config holds service dependencies and retry tuning
type Config struct {
	Client      ChatClient
	Logger      *slog.Logger
	MaxRetries  int
	CallTimeout time.Duration
}

// NewService creates a new Service
func NewService(cfg *Config) *Service {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}

	return &Service{
		client:      cfg.Client,
		logger:      cfg.Logger,
		maxRetries:  maxRetries,
		callTimeout: callTimeout,
		sleep:       time.Sleep,
		jitter:      func() float64 { return rand.Float64() * 0.2 },
	}
}

// EvaluateCV scores a CV against the job context
func (s *Service) EvaluateCV(ctx context.Context, cvText, contextText string) (CVEvaluation, error) {
	prompt := buildCVPrompt(cvText, contextText)

	content, err := s.callWithRetries(ctx, prompt)
	if err != nil {
		return CVEvaluation{}, err
	}

	expected := []string{"cv_match_rate", "cv_feedback"}
	outcome := parseContent(content, expected)

	warning, err := s.validate(outcome.Fields, expected)
	if err != nil {
		return CVEvaluation{}, err
	}

	feedback, ok := textValue(outcome.Fields, "cv_feedback")
	if !ok {
		feedback = truncate(content, feedbackFallbackLimit)
	}

	return CVEvaluation{
		MatchRate:         normalizeScore(firstValue(outcome.Fields, "cv_match_rate", "match_rate")),
		Feedback:          feedback,
		Raw:               content,
		ValidationWarning: warning,
	}, nil
}

// EvaluateProject scores a project report against the case study context
func (s *Service) EvaluateProject(ctx context.Context, projectText, contextText string) (ProjectEvaluation, error) {
	prompt := buildProjectPrompt(projectText, contextText)

	content, err := s.callWithRetries(ctx, prompt)
	if err != nil {
		return ProjectEvaluation{}, err
	}

	expected := []string{"project_score", "project_feedback"}
	outcome := parseContent(content, expected)

	warning, err := s.validate(outcome.Fields, expected)
	if err != nil {
		return ProjectEvaluation{}, err
	}

	feedback, ok := textValue(outcome.Fields, "project_feedback")
	if !ok {
		feedback = truncate(content, feedbackFallbackLimit)
	}

	return ProjectEvaluation{
		Score:             normalizeScore(firstValue(outcome.Fields, "project_score", "score")),
		Feedback:          feedback,
		Raw:               content,
		ValidationWarning: warning,
	}, nil
}

// EvaluateFinal synthesizes both step results into an overall summary
func (s *Service) EvaluateFinal(ctx context.Context, cv CVEvaluation, project ProjectEvaluation) (FinalEvaluation, error) {
	cvJSON, err := json.Marshal(map[string]any{
		"cv_match_rate": cv.MatchRate,
		"cv_feedback":   cv.Feedback,
	})
	if err != nil {
		return FinalEvaluation{}, fmt.Errorf("failed to encode cv result: %w", err)
	}

	projectJSON, err := json.Marshal(map[string]any{
		"project_score":    project.Score,
		"project_feedback": project.Feedback,
	})
	if err != nil {
		return FinalEvaluation{}, fmt.Errorf("failed to encode project result: %w", err)
	}

	prompt := buildFinalPrompt(string(cvJSON), string(projectJSON))

	content, err := s.callWithRetries(ctx, prompt)
	if err != nil {
		return FinalEvaluation{}, err
	}

	expected := []string{"overall_summary"}
	outcome := parseContent(content, expected)

	warning, err := s.validate(outcome.Fields, expected)
	if err != nil {
		return FinalEvaluation{}, err
	}

	summary, ok := textValue(outcome.Fields, "overall_summary")
	if !ok {
		summary = truncate(content, summaryFallbackLimit)
	}

	return FinalEvaluation{
		OverallSummary:    summary,
		Raw:               content,
		ValidationWarning: warning,
	}, nil
}

// callWithRetries runs one completion attempt under the call timeout,
// retrying transient failures up to maxRetries total attempts with
// exponential backoff and up to 20% jitter.
func (s *Service) callWithRetries(ctx context.Context, prompt string) (string, error) {
	tries := 0
	for {
		tries++

		attemptCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		content, err := s.client.Complete(attemptCtx, prompt)
		cancel()

		if err == nil {
			return content, nil
		}

		retriable := retriablePattern.MatchString(err.Error()) || errors.Is(err, context.DeadlineExceeded)

		s.logger.Warn("Model call failed",
			slog.Int("attempt", tries),
			slog.String("error", err.Error()),
		)

		if tries >= s.maxRetries || !retriable {
			s.logger.Error("Giving up on model call",
				slog.Int("attempts", tries),
				slog.String("error", err.Error()),
			)
			return "", err
		}

		delay := time.Duration(math.Pow(backoffBase, float64(tries)) * (1 + s.jitter()) * float64(time.Second))
		s.sleep(delay)
	}
}

// validate reports missing expected keys as a warning and rejects responses
// whose values are all blank
func (s *Service) validate(fields map[string]any, expected []string) (string, error) {
	var missing []string
	for _, key := range expected {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}

	warning := ""
	if len(missing) > 0 {
		warning = "Missing keys: " + strings.Join(missing, ", ")
		s.logger.Warn("Model output missing expected keys",
			slog.String("missing", strings.Join(missing, ", ")),
		)
	}

	allBlank := true
	for _, v := range fields {
		if v != nil && strings.TrimSpace(fmt.Sprint(v)) != "" {
			allBlank = false
			break
		}
	}
	if allBlank {
		return warning, ErrEmptyResponse
	}

	return warning, nil
}

// normalizeScore maps values in (0, 5] onto the 0-100 scale; anything else
// is rounded as-is. Unreadable values normalize to 0.
func normalizeScore(val any) float64 {
	var v float64

	switch t := val.(type) {
	case nil:
		return 0
	case float64:
		v = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		v = parsed
	default:
		return 0
	}

	if v > 0 && v <= 5 {
		return round2(v / 5.0 * 100.0)
	}
	return round2(v)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// firstValue returns the first non-nil value among keys
func firstValue(fields map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := fields[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// textValue returns the field rendered as a string, reporting whether the
// key held a usable value
func textValue(fields map[string]any, key string) (string, bool) {
	v, ok := fields[key]
	if !ok || v == nil {
		return "", false
	}

	if s, isString := v.(string); isString {
		return s, true
	}
	return fmt.Sprint(v), true
}

// truncate limits s to max characters
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
