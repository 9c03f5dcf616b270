package store

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// AssessmentType distinguishes what an assessment is attached to.
type AssessmentType string

const (
	AssessmentLesson AssessmentType = "lesson"
	AssessmentModule AssessmentType = "module"
	AssessmentCourse AssessmentType = "course"
)

// Assessment owns a set of questions. Deleting an assessment deletes its
// questions (composition).
type Assessment struct {
	bun.BaseModel `bun:"table:assessments,alias:a"`

	ID                  string         `bun:"id,pk"`
	Title               string         `bun:"title,notnull"`
	Type                AssessmentType `bun:"type,notnull"`
	ScopeID             string         `bun:"scope_id,notnull"`
	TimeLimitMinutes    int            `bun:"time_limit_minutes"`
	PassingScorePercent float64        `bun:"passing_score_percent,notnull"`
	AIGradingEnabled    bool           `bun:"ai_grading_enabled,notnull"`
	CreatedAt           time.Time      `bun:"created_at,notnull"`
}

// Question is one persisted, validated question. AnswerKey always satisfies
// the type-specific schema: the generation pipeline validates before insert.
type Question struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID             string          `bun:"id,pk"`
	AssessmentID   string          `bun:"assessment_id,notnull"`
	Position       int             `bun:"position,notnull"`
	Text           string          `bun:"text,notnull"`
	Type           string          `bun:"type,notnull"`
	Options        []string        `bun:"options,type:text,nullzero"`
	CorrectAnswer  string          `bun:"correct_answer"`
	AnswerKey      json.RawMessage `bun:"answer_key,type:text,notnull"`
	SampleResponse string          `bun:"sample_response"`
	Points         float64         `bun:"points,notnull"`
	Explanation    string          `bun:"explanation"`
}

// ResponseStatus is the grading state machine for one response.
// ungraded → ai_graded | grading_error → manually_overridden (terminal).
type ResponseStatus string

const (
	ResponseUngraded           ResponseStatus = "ungraded"
	ResponseAIGraded           ResponseStatus = "ai_graded"
	ResponseGradingError       ResponseStatus = "grading_error"
	ResponseManuallyOverridden ResponseStatus = "manually_overridden"
)

// StudentResponse is one student's answer to one question within an attempt.
// FinalScore is manual score when set, AI score otherwise.
type StudentResponse struct {
	bun.BaseModel `bun:"table:student_responses,alias:sr"`

	ID             string         `bun:"id,pk"`
	AttemptID      string         `bun:"attempt_id,notnull"`
	QuestionID     string         `bun:"question_id,notnull"`
	Answer         string         `bun:"answer"`
	Status         ResponseStatus `bun:"status,notnull,default:'ungraded'"`
	AIScore        *float64       `bun:"ai_score"`
	AIFeedback     string         `bun:"ai_feedback"`
	AIConfidence   *float64       `bun:"ai_confidence"`
	ManualScore    *float64       `bun:"manual_score"`
	ManualFeedback string         `bun:"manual_feedback"`
	GraderID       string         `bun:"grader_id"`
	OverrideReason string         `bun:"override_reason"`
	FinalScore     float64        `bun:"final_score"`
	GradedAt       *time.Time     `bun:"graded_at"`
}

// AttemptStatus tracks one submission's lifecycle.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptGraded     AttemptStatus = "graded"
)

// Attempt aggregates all responses of one student submission. Totals are
// recomputed from scratch whenever grading state changes, never updated
// incrementally.
type Attempt struct {
	bun.BaseModel `bun:"table:attempts,alias:at"`

	ID              string        `bun:"id,pk"`
	AssessmentID    string        `bun:"assessment_id,notnull"`
	UserID          string        `bun:"user_id,notnull"`
	Status          AttemptStatus `bun:"status,notnull,default:'in_progress'"`
	TotalPoints     float64       `bun:"total_points"`
	EarnedPoints    float64       `bun:"earned_points"`
	PercentageScore float64       `bun:"percentage_score"`
	Passed          bool          `bun:"passed"`
	SubmittedAt     *time.Time    `bun:"submitted_at"`
}

// Course, CourseModule, Lesson and LessonSection form the read-only content
// hierarchy this pipeline aggregates from. The authoring pipeline that
// writes them is elsewhere; lesson content may not exist yet when an
// assessment is requested.
type Course struct {
	bun.BaseModel `bun:"table:courses,alias:c"`

	ID          string `bun:"id,pk"`
	Title       string `bun:"title,notnull"`
	Description string `bun:"description"`
}

type CourseModule struct {
	bun.BaseModel `bun:"table:course_modules,alias:cm"`

	ID           string `bun:"id,pk"`
	CourseID     string `bun:"course_id,notnull"`
	Title        string `bun:"title,notnull"`
	SortPosition int    `bun:"sort_position,notnull"`
}

type Lesson struct {
	bun.BaseModel `bun:"table:lessons,alias:l"`

	ID           string `bun:"id,pk"`
	ModuleID     string `bun:"module_id,notnull"`
	Title        string `bun:"title,notnull"`
	Description  string `bun:"description"`
	SortPosition int    `bun:"sort_position,notnull"`
}

type LessonSection struct {
	bun.BaseModel `bun:"table:lesson_sections,alias:ls"`

	ID           string `bun:"id,pk"`
	LessonID     string `bun:"lesson_id,notnull"`
	Heading      string `bun:"heading"`
	Body         string `bun:"body"`
	SortPosition int    `bun:"sort_position,notnull"`
}

// LLMRequestEvent records one model API call for diagnostics.
type LLMRequestEvent struct {
	bun.BaseModel `bun:"table:llm_request_events,alias:le"`

	ID           int64     `bun:"id,pk,autoincrement"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	Provider     string    `bun:"provider,notnull"`
	Model        string    `bun:"model"`
	Purpose      string    `bun:"purpose"`
	InputTokens  int       `bun:"input_tokens"`
	OutputTokens int       `bun:"output_tokens"`
	LatencyMs    int64     `bun:"latency_ms"`
	Success      bool      `bun:"success"`
	ErrorMessage string    `bun:"error_message"`
}
