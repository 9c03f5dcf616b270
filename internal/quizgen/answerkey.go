package quizgen

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError reports why a generated question was rejected.
type ValidationError struct {
	QuestionType QuestionType
	Field        string
	Message      string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.QuestionType, e.Field, e.Message)
}

const defaultMinScoreThreshold = 0.7

// Normalize converts a parsed raw object into a GeneratedQuestion with a
// canonical answer key. Models scatter answer data across the object in
// inconsistent ways; normalization pulls sibling fields into the key and
// coerces near-miss types (stringly booleans, numeric strings) before
// validation judges the result. It returns nil only when the object is
// structurally beyond repair.
func Normalize(raw RawQuestion) *GeneratedQuestion {
	q := &GeneratedQuestion{
		Text:           stringField(raw, "question_text"),
		Type:           QuestionType(strings.ToLower(stringField(raw, "question_type"))),
		CorrectAnswer:  stringField(raw, "correct_answer"),
		SampleResponse: stringField(raw, "sample_response"),
		Explanation:    stringField(raw, "explanation"),
		Options:        stringSlice(raw["options"]),
	}

	key, ok := raw["answer_key"].(map[string]any)
	if !ok {
		// Some models emit the key as a bare string. Wrap it so the
		// per-type normalizer can work with it.
		if s, isStr := raw["answer_key"].(string); isStr && strings.TrimSpace(s) != "" {
			key = map[string]any{"correct_answer": s}
		} else {
			return nil
		}
	}
	q.AnswerKey = key

	switch q.Type {
	case TypeMultipleChoice:
		normalizeMultipleChoice(q)
	case TypeTrueFalse:
		normalizeTrueFalse(q)
	case TypeShortAnswer:
		normalizeShortAnswer(q)
	case TypeEssay:
		normalizeEssay(q)
	case TypeMatching:
		normalizeMatching(q)
	}
	return q
}

func normalizeMultipleChoice(q *GeneratedQuestion) {
	key := q.AnswerKey
	if opts := stringSlice(key["options"]); len(opts) == 0 && len(q.Options) > 0 {
		key["options"] = toAnySlice(q.Options)
	}
	if len(q.Options) == 0 {
		q.Options = stringSlice(key["options"])
	}
	if asString(key["correct_option"]) == "" && q.CorrectAnswer != "" {
		key["correct_option"] = q.CorrectAnswer
	}
	if q.CorrectAnswer == "" {
		q.CorrectAnswer = asString(key["correct_option"])
	}
}

func normalizeTrueFalse(q *GeneratedQuestion) {
	key := q.AnswerKey
	if _, ok := key["correct_answer"].(bool); !ok {
		if b, ok := asBool(key["correct_answer"]); ok {
			key["correct_answer"] = b
		} else if b, ok := asBool(q.CorrectAnswer); ok {
			key["correct_answer"] = b
		}
	}
	if asString(key["explanation"]) == "" && q.Explanation != "" {
		key["explanation"] = q.Explanation
	}
	if b, ok := key["correct_answer"].(bool); ok {
		q.CorrectAnswer = strconv.FormatBool(b)
	}
}

func normalizeShortAnswer(q *GeneratedQuestion) {
	key := q.AnswerKey
	if len(stringSlice(key["acceptable_answers"])) == 0 {
		if s := asString(key["correct_answer"]); s != "" {
			key["acceptable_answers"] = []any{s}
		} else if q.CorrectAnswer != "" {
			key["acceptable_answers"] = []any{q.CorrectAnswer}
		}
	}
	switch kw := key["keywords"].(type) {
	case nil:
		key["keywords"] = []any{}
	case string:
		// Scalar keyword from the model; wrap it.
		if strings.TrimSpace(kw) != "" {
			key["keywords"] = []any{kw}
		} else {
			key["keywords"] = []any{}
		}
	}
	if _, ok := asFloat(key["min_score_threshold"]); !ok {
		key["min_score_threshold"] = defaultMinScoreThreshold
	}
	if q.CorrectAnswer == "" {
		if answers := stringSlice(key["acceptable_answers"]); len(answers) > 0 {
			q.CorrectAnswer = answers[0]
		}
	}
}

func normalizeEssay(q *GeneratedQuestion) {
	key := q.AnswerKey
	if _, ok := key["rubric"].(map[string]any); !ok {
		if criteria := asString(key["grading_criteria"]); criteria != "" {
			key["rubric"] = map[string]any{"description": criteria}
		} else if s := asString(key["rubric"]); s != "" {
			key["rubric"] = map[string]any{"description": s}
		}
	}
	// The derivation runs both ways: criteria fill an absent rubric above,
	// and a rubric description fills absent criteria here.
	if asString(key["grading_criteria"]) == "" {
		if rubric, ok := key["rubric"].(map[string]any); ok {
			if desc := asString(rubric["description"]); desc != "" {
				key["grading_criteria"] = desc
			}
		}
	}
	if len(stringSlice(key["key_points"])) == 0 {
		if points := stringSlice(key["main_points"]); len(points) > 0 {
			key["key_points"] = toAnySlice(points)
		}
	}
}

func normalizeMatching(q *GeneratedQuestion) {
	key := q.AnswerKey
	pairs, ok := key["pairs"].([]any)
	if !ok {
		// Accept {"left": "right"} map form and expand it.
		if m, ok := key["pairs"].(map[string]any); ok {
			expanded := make([]any, 0, len(m))
			for left, right := range m {
				expanded = append(expanded, map[string]any{
					"left":  left,
					"right": asString(right),
				})
			}
			key["pairs"] = expanded
		}
		return
	}
	key["pairs"] = pairs
}

// Validate checks a normalized question against the shape its type
// requires. A nil return means the question is usable.
func Validate(q *GeneratedQuestion) error {
	if q == nil {
		return &ValidationError{Field: "question", Message: "empty question"}
	}
	if strings.TrimSpace(q.Text) == "" {
		return &ValidationError{QuestionType: q.Type, Field: "question_text", Message: "missing"}
	}
	if !KnownType(q.Type) {
		return &ValidationError{QuestionType: q.Type, Field: "question_type", Message: "unknown type"}
	}
	if q.AnswerKey == nil {
		return &ValidationError{QuestionType: q.Type, Field: "answer_key", Message: "missing"}
	}

	switch q.Type {
	case TypeMultipleChoice:
		return validateMultipleChoice(q)
	case TypeTrueFalse:
		return validateTrueFalse(q)
	case TypeShortAnswer:
		return validateShortAnswer(q)
	case TypeEssay:
		return validateEssay(q)
	case TypeMatching:
		return validateMatching(q)
	}
	return nil
}

func validateMultipleChoice(q *GeneratedQuestion) error {
	opts := stringSlice(q.AnswerKey["options"])
	if len(opts) < 3 {
		return &ValidationError{QuestionType: q.Type, Field: "options", Message: "need at least 3 options"}
	}
	correct := asString(q.AnswerKey["correct_option"])
	if correct == "" {
		return &ValidationError{QuestionType: q.Type, Field: "correct_option", Message: "missing"}
	}
	for _, o := range opts {
		if o == correct {
			return nil
		}
	}
	return &ValidationError{QuestionType: q.Type, Field: "correct_option", Message: "not among options"}
}

func validateTrueFalse(q *GeneratedQuestion) error {
	if _, ok := q.AnswerKey["correct_answer"].(bool); !ok {
		return &ValidationError{QuestionType: q.Type, Field: "correct_answer", Message: "must be a boolean"}
	}
	if len(asString(q.AnswerKey["explanation"])) <= 10 {
		return &ValidationError{QuestionType: q.Type, Field: "explanation", Message: "too short"}
	}
	return nil
}

func validateShortAnswer(q *GeneratedQuestion) error {
	if len(stringSlice(q.AnswerKey["acceptable_answers"])) == 0 {
		return &ValidationError{QuestionType: q.Type, Field: "acceptable_answers", Message: "need at least one"}
	}
	if _, ok := q.AnswerKey["keywords"].([]any); !ok {
		return &ValidationError{QuestionType: q.Type, Field: "keywords", Message: "must be an array"}
	}
	th, ok := asFloat(q.AnswerKey["min_score_threshold"])
	if !ok || th < 0 || th > 1 {
		return &ValidationError{QuestionType: q.Type, Field: "min_score_threshold", Message: "must be in [0,1]"}
	}
	return nil
}

func validateEssay(q *GeneratedQuestion) error {
	if asString(q.AnswerKey["grading_criteria"]) == "" {
		return &ValidationError{QuestionType: q.Type, Field: "grading_criteria", Message: "missing"}
	}
	if len(stringSlice(q.AnswerKey["key_points"])) == 0 {
		return &ValidationError{QuestionType: q.Type, Field: "key_points", Message: "need at least one"}
	}
	if _, ok := q.AnswerKey["rubric"].(map[string]any); !ok {
		return &ValidationError{QuestionType: q.Type, Field: "rubric", Message: "must be an object"}
	}
	return nil
}

func validateMatching(q *GeneratedQuestion) error {
	pairs, ok := q.AnswerKey["pairs"].([]any)
	if !ok || len(pairs) < 3 {
		return &ValidationError{QuestionType: q.Type, Field: "pairs", Message: "need at least 3 pairs"}
	}
	for _, p := range pairs {
		m, ok := p.(map[string]any)
		if !ok || asString(m["left"]) == "" || asString(m["right"]) == "" {
			return &ValidationError{QuestionType: q.Type, Field: "pairs", Message: "each pair needs left and right"}
		}
	}
	return nil
}

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func asBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
