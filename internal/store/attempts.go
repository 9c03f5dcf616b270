package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AttemptRepo manages attempts and their aggregate scores.
type AttemptRepo interface {
	// Create persists a new attempt.
	Create(ctx context.Context, at *Attempt) error

	// Get returns an attempt by ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Attempt, error)

	// SetStatus updates the attempt's lifecycle status.
	SetStatus(ctx context.Context, id string, status AttemptStatus) error

	// RecomputeTotals rebuilds the attempt's aggregate score from the
	// final score of every response in the attempt, not just the ones
	// graded most recently, and derives pass/fail from the assessment's
	// passing threshold. Returns the updated attempt.
	RecomputeTotals(ctx context.Context, attemptID string) (*Attempt, error)
}

type attemptRepo struct {
	db *bun.DB
}

func (r *attemptRepo) Create(ctx context.Context, at *Attempt) error {
	if at.ID == "" {
		at.ID = uuid.NewString()
	}
	if at.Status == "" {
		at.Status = AttemptInProgress
	}
	if _, err := r.db.NewInsert().Model(at).Exec(ctx); err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (r *attemptRepo) Get(ctx context.Context, id string) (*Attempt, error) {
	at := new(Attempt)
	err := r.db.NewSelect().Model(at).Where("at.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select attempt: %w", err)
	}
	return at, nil
}

func (r *attemptRepo) SetStatus(ctx context.Context, id string, status AttemptStatus) error {
	_, err := r.db.NewUpdate().
		Model((*Attempt)(nil)).
		Set("status = ?", status).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set attempt status: %w", err)
	}
	return nil
}

func (r *attemptRepo) RecomputeTotals(ctx context.Context, attemptID string) (*Attempt, error) {
	at, err := r.Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	assessment := new(Assessment)
	err = r.db.NewSelect().Model(assessment).Where("a.id = ?", at.AssessmentID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select assessment: %w", err)
	}

	var responses []*StudentResponse
	err = r.db.NewSelect().
		Model(&responses).
		Where("sr.attempt_id = ?", attemptID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select responses: %w", err)
	}

	var total, earned float64
	for _, resp := range responses {
		q := new(Question)
		err := r.db.NewSelect().Model(q).Where("q.id = ?", resp.QuestionID).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("select question: %w", err)
		}
		total += q.Points
		earned += resp.FinalScore
	}

	at.TotalPoints = total
	at.EarnedPoints = earned
	if total > 0 {
		at.PercentageScore = 100 * earned / total
	} else {
		at.PercentageScore = 0
	}
	at.Passed = at.PercentageScore >= assessment.PassingScorePercent

	_, err = r.db.NewUpdate().
		Model(at).
		Column("total_points", "earned_points", "percentage_score", "passed").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update attempt totals: %w", err)
	}
	return at, nil
}
