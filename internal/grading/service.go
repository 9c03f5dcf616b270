// Package grading runs AI grading over submitted attempts and applies
// instructor overrides.
package grading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skanda/assessly/internal/llm"
	"github.com/skanda/assessly/internal/progress"
	"github.com/skanda/assessly/internal/store"
)

// ErrAIGradingDisabled means the assessment opted out of AI grading.
var ErrAIGradingDisabled = errors.New("ai grading disabled for assessment")

// Feedback stored on a response when its grading call failed. The student
// never sees the underlying error.
const pendingReviewFeedback = "This answer is pending manual review."

const emptyAnswerFeedback = "No answer was provided."

// Config tunes the grading calls.
type Config struct {
	// MaxTokens bounds one grading response.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature is kept low; grading should be repeatable.
	Temperature float64 `yaml:"temperature"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{MaxTokens: 1024, Temperature: 0.2}
}

// Service grades attempts. One Service instance is safe for concurrent use.
type Service struct {
	provider    llm.Provider
	assessments store.AssessmentRepo
	responses   store.ResponseRepo
	attempts    store.AttemptRepo
	tracker     progress.Tracker
	cfg         Config
	log         *zap.Logger
}

// NewService wires a grading Service. The provider should already carry
// its retry, logging and concurrency-limit decorators; pass a progress.Noop
// tracker when no progress store is configured.
func NewService(provider llm.Provider, assessments store.AssessmentRepo, responses store.ResponseRepo, attempts store.AttemptRepo, tracker progress.Tracker, cfg Config, log *zap.Logger) *Service {
	if tracker == nil {
		tracker = progress.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		provider:    provider,
		assessments: assessments,
		responses:   responses,
		attempts:    attempts,
		tracker:     tracker,
		cfg:         cfg,
		log:         log,
	}
}

// GradeAttempt grades every ungraded response of one attempt, recomputes
// the attempt totals, and publishes the outcome.
//
// Responses are graded concurrently and independently: one response
// failing moves that response to grading_error and never aborts its
// siblings. The ungraded set is read once, up front, so a response is
// graded by at most one in-flight call even if GradeAttempt runs twice.
func (s *Service) GradeAttempt(ctx context.Context, attemptID string) (*store.Attempt, error) {
	at, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	assessment, err := s.assessments.Get(ctx, at.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("load assessment: %w", err)
	}
	if !assessment.AIGradingEnabled {
		return nil, fmt.Errorf("%w: %s", ErrAIGradingDisabled, assessment.ID)
	}

	ungraded, err := s.responses.ReadUngraded(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("load ungraded responses: %w", err)
	}

	ctx = llm.WithPurpose(ctx, "grading")
	var failed atomic.Int32
	var g errgroup.Group
	for _, resp := range ungraded {
		g.Go(func() error {
			if err := s.gradeResponse(ctx, resp); err != nil {
				failed.Add(1)
				s.log.Warn("response grading failed",
					zap.String("response_id", resp.ID),
					zap.Error(err),
				)
				if serr := s.responses.SaveGradingError(ctx, resp.ID, pendingReviewFeedback); serr != nil {
					s.log.Error("saving grading error failed",
						zap.String("response_id", resp.ID),
						zap.Error(serr),
					)
				}
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	updated, err := s.attempts.RecomputeTotals(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("recompute totals: %w", err)
	}
	if err := s.attempts.SetStatus(ctx, attemptID, store.AttemptGraded); err != nil {
		return nil, fmt.Errorf("set attempt status: %w", err)
	}
	updated.Status = store.AttemptGraded

	s.notify(ctx, updated)

	s.log.Info("attempt graded",
		zap.String("attempt_id", attemptID),
		zap.Int("responses", len(ungraded)),
		zap.Int32("failed", failed.Load()),
		zap.Float64("percentage", updated.PercentageScore),
		zap.Bool("passed", updated.Passed),
	)
	return updated, nil
}

// GradeAttempts grades several attempts in sequence. A failing attempt is
// reported but does not stop the rest.
func (s *Service) GradeAttempts(ctx context.Context, attemptIDs []string) error {
	var errs []error
	for _, id := range attemptIDs {
		if _, err := s.GradeAttempt(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("attempt %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// ManualOverride applies an instructor's correction and recomputes the
// attempt it belongs to. The override wins over any AI score, current or
// future.
func (s *Service) ManualOverride(ctx context.Context, ov store.ManualOverride) (*store.Attempt, error) {
	resp, err := s.responses.Get(ctx, ov.ResponseID)
	if err != nil {
		return nil, fmt.Errorf("load response: %w", err)
	}
	if err := s.responses.ApplyManualOverride(ctx, ov); err != nil {
		return nil, err
	}
	updated, err := s.attempts.RecomputeTotals(ctx, resp.AttemptID)
	if err != nil {
		return nil, fmt.Errorf("recompute totals: %w", err)
	}
	s.log.Info("manual override applied",
		zap.String("response_id", ov.ResponseID),
		zap.String("grader_id", ov.GraderID),
		zap.Float64("score", ov.Score),
	)
	return updated, nil
}

// gradeResponse grades one response. Empty answers are scored zero with
// full confidence and never reach the model.
func (s *Service) gradeResponse(ctx context.Context, resp *store.StudentResponse) error {
	if strings.TrimSpace(resp.Answer) == "" {
		return s.responses.SaveGradingResult(ctx, resp.ID, store.GradingOutcome{
			Score:      0,
			Feedback:   emptyAnswerFeedback,
			Confidence: 1.0,
		})
	}

	q, err := s.assessments.QuestionByID(ctx, resp.QuestionID)
	if err != nil {
		return fmt.Errorf("load question: %w", err)
	}

	out, err := s.provider.Generate(ctx, llm.Request{
		System:      gradingSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildGradingPrompt(q, resp.Answer)}},
		Schema:      resultSchema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return err
	}

	var result Result
	if err := json.Unmarshal(out.Content, &result); err != nil {
		return fmt.Errorf("decode grading result: %w", err)
	}
	result.clamp(q.Points)

	return s.responses.SaveGradingResult(ctx, resp.ID, store.GradingOutcome{
		Score:      result.Score,
		Feedback:   result.Feedback,
		Confidence: result.Confidence,
	})
}

// notify publishes the graded outcome. Failures are logged and swallowed;
// a progress store outage must not fail a finished grading run.
func (s *Service) notify(ctx context.Context, at *store.Attempt) {
	status := progress.StatusFailed
	if at.Passed {
		status = progress.StatusPassed
	}
	err := s.tracker.UpdateAssessmentProgress(ctx, at.UserID, at.AssessmentID, progress.Update{
		Status:             status,
		ProgressPercentage: at.PercentageScore,
		LastPosition:       at.AssessmentID,
	})
	if err != nil {
		s.log.Warn("progress update failed",
			zap.String("attempt_id", at.ID),
			zap.String("user_id", at.UserID),
			zap.Error(err),
		)
	}
}
