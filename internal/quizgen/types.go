package quizgen

import (
	"github.com/skanda/assessly/internal/content"
)

// QuestionType discriminates the answer-key shape of a question.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeTrueFalse      QuestionType = "true_false"
	TypeShortAnswer    QuestionType = "short_answer"
	TypeEssay          QuestionType = "essay"
	TypeMatching       QuestionType = "matching"
)

// KnownType reports whether t is one of the supported question types.
func KnownType(t QuestionType) bool {
	switch t {
	case TypeMultipleChoice, TypeTrueFalse, TypeShortAnswer, TypeEssay, TypeMatching:
		return true
	}
	return false
}

// Difficulty is the requested difficulty profile for a generation run.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// GenerationRequest describes one generation run. It is consumed fully
// within a single Generate call.
type GenerationRequest struct {
	Scope               content.Scope
	QuestionCount       int
	Types               []QuestionType
	Difficulty          Difficulty
	Title               string
	TimeLimitMinutes    int
	PassingScorePercent float64
}

// RawQuestion is one object parsed out of the model's response before
// normalization. The model's shape varies; normalization reconstructs the
// canonical fields from whatever siblings are present.
type RawQuestion map[string]any

// GeneratedQuestion is a question that survived normalization. After
// Validate passes and AssignPoints runs it is ready to persist.
type GeneratedQuestion struct {
	Text           string
	Type           QuestionType
	Options        []string
	CorrectAnswer  string
	AnswerKey      map[string]any
	SampleResponse string
	Explanation    string
	Points         float64
}
