package grading

import (
	"fmt"
	"strings"

	"github.com/skanda/assessly/internal/quizgen"
	"github.com/skanda/assessly/internal/store"
)

const gradingSystemPrompt = `You are a fair and consistent grader. Grade the student's response against the provided answer key only; do not bring in outside knowledge to penalize the student. Award partial credit where the answer key allows it. Feedback must be specific, constructive, and addressed to the student.`

// buildGradingPrompt renders one question, its answer key, and the
// student's answer into the grading user message.
func buildGradingPrompt(q *store.Question, answer string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question (%s, worth %g points):\n%s\n\n", q.Type, q.Points, q.Text)
	if len(q.Options) > 0 {
		fmt.Fprintf(&b, "Options:\n- %s\n\n", strings.Join(q.Options, "\n- "))
	}
	fmt.Fprintf(&b, "Answer key:\n%s\n\n", string(q.AnswerKey))
	if q.SampleResponse != "" {
		fmt.Fprintf(&b, "Sample of a full-credit response:\n%s\n\n", q.SampleResponse)
	}
	b.WriteString(typeGuidance(quizgen.QuestionType(q.Type)))
	fmt.Fprintf(&b, "\nStudent's answer:\n%s\n", answer)
	return b.String()
}

func typeGuidance(t quizgen.QuestionType) string {
	switch t {
	case quizgen.TypeMultipleChoice:
		return "Award full points for the correct option, zero otherwise. Accept the option text or its letter."
	case quizgen.TypeTrueFalse:
		return "Award full points for the correct boolean, zero otherwise. Accept true/false, t/f, yes/no."
	case quizgen.TypeShortAnswer:
		return "Compare against the acceptable answers and keywords. Award partial credit proportional to how much of the expected answer is covered, but only a passing score when the match clears the minimum threshold in the key."
	case quizgen.TypeEssay:
		return "Grade against the rubric and key points. Award partial credit per key point covered. Weigh substance over style."
	case quizgen.TypeMatching:
		return "Award credit proportional to the number of correctly matched pairs."
	}
	return "Grade against the answer key, awarding partial credit where deserved."
}
