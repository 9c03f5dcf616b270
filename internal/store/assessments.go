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

// AssessmentRepo manages assessments and their questions.
type AssessmentRepo interface {
	// Create persists a new assessment.
	Create(ctx context.Context, a *Assessment) error

	// Get returns an assessment by ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Assessment, error)

	// Delete removes an assessment and all of its questions.
	Delete(ctx context.Context, id string) error

	// InsertQuestions persists a batch of questions for one assessment.
	InsertQuestions(ctx context.Context, questions []*Question) error

	// Questions returns an assessment's questions ordered by position.
	Questions(ctx context.Context, assessmentID string) ([]*Question, error)

	// QuestionByID returns one question or ErrNotFound.
	QuestionByID(ctx context.Context, id string) (*Question, error)

	// CreateWithQuestions creates the assessment and inserts its questions.
	// If question insertion fails the assessment row is deleted again:
	// the store has no cross-statement transaction, so coherence comes
	// from a compensating delete.
	CreateWithQuestions(ctx context.Context, a *Assessment, questions []*Question) error

	// CompileExam builds a new assessment from pre-existing questions,
	// copying them under the new assessment with the same rollback rule.
	CompileExam(ctx context.Context, exam *Assessment, questionIDs []string) error
}

type assessmentRepo struct {
	db *bun.DB
}

func (r *assessmentRepo) Create(ctx context.Context, a *Assessment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NewInsert().Model(a).Exec(ctx); err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

func (r *assessmentRepo) Get(ctx context.Context, id string) (*Assessment, error) {
	a := new(Assessment)
	err := r.db.NewSelect().Model(a).Where("a.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select assessment: %w", err)
	}
	return a, nil
}

func (r *assessmentRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.NewDelete().Model((*Question)(nil)).Where("assessment_id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}
	if _, err := r.db.NewDelete().Model((*Assessment)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("delete assessment: %w", err)
	}
	return nil
}

func (r *assessmentRepo) InsertQuestions(ctx context.Context, questions []*Question) error {
	if len(questions) == 0 {
		return nil
	}
	for _, q := range questions {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
	}
	if _, err := r.db.NewInsert().Model(&questions).Exec(ctx); err != nil {
		return fmt.Errorf("insert questions: %w", err)
	}
	return nil
}

func (r *assessmentRepo) Questions(ctx context.Context, assessmentID string) ([]*Question, error) {
	var questions []*Question
	err := r.db.NewSelect().
		Model(&questions).
		Where("q.assessment_id = ?", assessmentID).
		Order("q.position ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select questions: %w", err)
	}
	return questions, nil
}

func (r *assessmentRepo) QuestionByID(ctx context.Context, id string) (*Question, error) {
	q := new(Question)
	err := r.db.NewSelect().Model(q).Where("q.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select question: %w", err)
	}
	return q, nil
}

func (r *assessmentRepo) CreateWithQuestions(ctx context.Context, a *Assessment, questions []*Question) error {
	if err := r.Create(ctx, a); err != nil {
		return err
	}
	for i, q := range questions {
		q.AssessmentID = a.ID
		q.Position = i + 1
	}
	if err := r.InsertQuestions(ctx, questions); err != nil {
		if delErr := r.Delete(ctx, a.ID); delErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, delErr)
		}
		return err
	}
	return nil
}

func (r *assessmentRepo) CompileExam(ctx context.Context, exam *Assessment, questionIDs []string) error {
	if len(questionIDs) == 0 {
		return fmt.Errorf("compile exam: no questions selected")
	}

	copies := make([]*Question, 0, len(questionIDs))
	for _, id := range questionIDs {
		src, err := r.QuestionByID(ctx, id)
		if err != nil {
			return fmt.Errorf("compile exam: question %s: %w", id, err)
		}
		dup := *src
		dup.ID = uuid.NewString()
		copies = append(copies, &dup)
	}

	return r.CreateWithQuestions(ctx, exam, copies)
}
