package quizgen

import (
	"fmt"
	"regexp"
	"strings"
)

// maxContentTokens caps the course content portion of the prompt. Token
// count is estimated at four characters per token, which tracks close
// enough for English prose across the supported providers.
const maxContentTokens = 8000

var (
	markdownImage = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	markdownLink  = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	multiSpace    = regexp.MustCompile(`[ \t]+`)
	multiNewline  = regexp.MustCompile(`\n{3,}`)
)

// estimateTokens approximates the token count of s.
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// preprocessContent strips markdown noise out of authored content and
// truncates it to the prompt budget. Truncation is silent; the trailing
// content is the least load-bearing part of a flattened scope.
func preprocessContent(text string) string {
	text = markdownImage.ReplaceAllString(text, "")
	text = markdownLink.ReplaceAllString(text, "$1")
	text = strings.NewReplacer("**", "", "__", "", "`", "", "#", "", ">", "").Replace(text)
	text = multiSpace.ReplaceAllString(text, " ")
	text = multiNewline.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)

	if estimateTokens(text) <= maxContentTokens {
		return text
	}
	limit := maxContentTokens * 4
	cut := text[:limit]
	// Back off to a word boundary so the prompt doesn't end mid-token.
	if idx := strings.LastIndexAny(cut, " \n"); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}

const generationSystemPrompt = `You are an expert educational assessment designer. You write questions that test understanding of the provided course content, not general knowledge.

Respond with a JSON array only. No prose, no markdown, no code fences. Each element is an object with these fields:
  "question_text": the question as shown to the student
  "question_type": one of "multiple_choice", "true_false", "short_answer", "essay", "matching"
  "answer_key": an object in the shape required for the type (see below)
  "explanation": why the correct answer is correct
  "sample_response": for essay questions, a model answer

Answer key shapes:
  multiple_choice: {"options": [4 strings], "correct_option": one of the options}
  true_false: {"correct_answer": true or false, "explanation": string}
  short_answer: {"acceptable_answers": [strings], "keywords": [strings], "min_score_threshold": 0.7}
  essay: {"key_points": [strings], "grading_criteria": string, "rubric": object}
  matching: {"pairs": [{"left": string, "right": string}, at least 3]}

Distribution rules:
  - Spread the correct option across positions in multiple choice questions. Do not favor any position.
  - Balance true and false answers in true/false questions.
  - Every question must be answerable from the provided content alone.`

// buildGenerationPrompt assembles the user message for one batch attempt.
func buildGenerationPrompt(content string, req GenerationRequest) string {
	types := make([]string, len(req.Types))
	for i, t := range req.Types {
		types[i] = string(t)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate exactly %d questions at %s difficulty.\n", req.QuestionCount, req.Difficulty)
	fmt.Fprintf(&b, "Use only these question types: %s.\n", strings.Join(types, ", "))
	b.WriteString("Mix the types across the batch rather than grouping them.\n\n")
	b.WriteString("Course content:\n\n")
	b.WriteString(content)
	return b.String()
}
