package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// GradingOutcome is the flattened result of one AI grading call.
type GradingOutcome struct {
	Score      float64
	Feedback   string
	Confidence float64
}

// ManualOverride is the instructor-supplied correction for one response.
// It is terminal: once applied, the AI fields stop mattering for the final
// score.
type ManualOverride struct {
	ResponseID string
	Score      float64
	Feedback   string
	GraderID   string
	Reason     string
}

// ResponseRepo manages student responses and their grading state.
type ResponseRepo interface {
	// Insert persists a new response in the ungraded state.
	Insert(ctx context.Context, resp *StudentResponse) error

	// Get returns one response or ErrNotFound.
	Get(ctx context.Context, id string) (*StudentResponse, error)

	// ByAttempt returns every response of an attempt.
	ByAttempt(ctx context.Context, attemptID string) ([]*StudentResponse, error)

	// ReadUngraded returns the attempt's responses that have no AI score
	// yet and no manual override. Selecting them once, up front,
	// guarantees each response is graded by at most one in-flight call.
	ReadUngraded(ctx context.Context, attemptID string) ([]*StudentResponse, error)

	// SaveGradingResult moves a response to ai_graded and recomputes its
	// final score (manual score keeps precedence if one exists).
	SaveGradingResult(ctx context.Context, responseID string, outcome GradingOutcome) error

	// SaveGradingError moves a response to grading_error. The student sees
	// a neutral "pending manual review", never the raw error.
	SaveGradingError(ctx context.Context, responseID, message string) error

	// ApplyManualOverride sets the terminal manually_overridden state.
	ApplyManualOverride(ctx context.Context, ov ManualOverride) error
}

type responseRepo struct {
	db *bun.DB
}

func (r *responseRepo) Insert(ctx context.Context, resp *StudentResponse) error {
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	if resp.Status == "" {
		resp.Status = ResponseUngraded
	}
	if _, err := r.db.NewInsert().Model(resp).Exec(ctx); err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

func (r *responseRepo) Get(ctx context.Context, id string) (*StudentResponse, error) {
	resp := new(StudentResponse)
	err := r.db.NewSelect().Model(resp).Where("sr.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select response: %w", err)
	}
	return resp, nil
}

func (r *responseRepo) ByAttempt(ctx context.Context, attemptID string) ([]*StudentResponse, error) {
	var responses []*StudentResponse
	err := r.db.NewSelect().
		Model(&responses).
		Where("sr.attempt_id = ?", attemptID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select responses: %w", err)
	}
	return responses, nil
}

func (r *responseRepo) ReadUngraded(ctx context.Context, attemptID string) ([]*StudentResponse, error) {
	var responses []*StudentResponse
	err := r.db.NewSelect().
		Model(&responses).
		Where("sr.attempt_id = ?", attemptID).
		Where("sr.ai_score IS NULL").
		Where("sr.manual_score IS NULL").
		Where("sr.status IN (?)", bun.In([]ResponseStatus{ResponseUngraded, ResponseGradingError})).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select ungraded responses: %w", err)
	}
	return responses, nil
}

func (r *responseRepo) SaveGradingResult(ctx context.Context, responseID string, outcome GradingOutcome) error {
	resp, err := r.Get(ctx, responseID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	resp.AIScore = &outcome.Score
	resp.AIFeedback = outcome.Feedback
	resp.AIConfidence = &outcome.Confidence
	// manually_overridden is terminal; a late AI result records its data
	// but cannot move the response out of that state.
	if resp.Status != ResponseManuallyOverridden {
		resp.Status = ResponseAIGraded
	}
	resp.GradedAt = &now
	resp.FinalScore = finalScore(resp)

	_, err = r.db.NewUpdate().
		Model(resp).
		Column("ai_score", "ai_feedback", "ai_confidence", "status", "graded_at", "final_score").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save grading result: %w", err)
	}
	return nil
}

func (r *responseRepo) SaveGradingError(ctx context.Context, responseID, message string) error {
	_, err := r.db.NewUpdate().
		Model((*StudentResponse)(nil)).
		Set("status = ?", ResponseGradingError).
		Set("ai_feedback = ?", message).
		Where("id = ?", responseID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save grading error: %w", err)
	}
	return nil
}

func (r *responseRepo) ApplyManualOverride(ctx context.Context, ov ManualOverride) error {
	resp, err := r.Get(ctx, ov.ResponseID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	resp.ManualScore = &ov.Score
	resp.ManualFeedback = ov.Feedback
	resp.GraderID = ov.GraderID
	resp.OverrideReason = ov.Reason
	resp.Status = ResponseManuallyOverridden
	resp.GradedAt = &now
	resp.FinalScore = finalScore(resp)

	_, err = r.db.NewUpdate().
		Model(resp).
		Column("manual_score", "manual_feedback", "grader_id", "override_reason", "status", "graded_at", "final_score").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("apply manual override: %w", err)
	}
	return nil
}

// finalScore enforces the precedence invariant: manual score when set,
// AI score otherwise, zero when neither exists.
func finalScore(resp *StudentResponse) float64 {
	if resp.ManualScore != nil {
		return *resp.ManualScore
	}
	if resp.AIScore != nil {
		return *resp.AIScore
	}
	return 0
}
