package quizgen

import (
	"encoding/json"
	"strings"
)

// ParseQuestions extracts question objects from a model response. The model
// is asked for a bare JSON array but in practice wraps it in code fences,
// truncates mid-object at the token limit, or emits trailing garbage, so
// parsing is layered: a direct parse first, then progressively more
// aggressive repairs. ParseQuestions never fails; an unrecoverable payload
// yields an empty slice and the caller decides whether to retry.
func ParseQuestions(raw string) []RawQuestion {
	text := stripCodeFences(raw)

	if qs, ok := tryParseArray(text); ok {
		return filterUsable(qs)
	}

	for _, repair := range []func(string) (string, bool){
		repairTruncate,
		repairDropLastQuestion,
	} {
		candidate, ok := repair(text)
		if !ok {
			continue
		}
		if qs, ok := tryParseArray(candidate); ok {
			return filterUsable(qs)
		}
	}

	// Last resort: scan for individually balanced objects and keep the
	// ones that parse on their own.
	return filterUsable(scanObjects(text))
}

// stripCodeFences removes a leading ```json (or bare ```) fence and the
// matching closing fence, leaving the payload between them.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the language tag line.
		first := strings.TrimSpace(s[:nl])
		if first == "" || isFenceTag(first) {
			s = s[nl+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func isFenceTag(s string) bool {
	for _, r := range s {
		if !('a' <= r && r <= 'z' || '0' <= r && r <= '9') {
			return false
		}
	}
	return true
}

func tryParseArray(s string) ([]RawQuestion, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	// Some responses prefix the array with prose. Start at the first '['.
	if idx := strings.IndexByte(s, '['); idx > 0 {
		s = s[idx:]
	}
	var out []RawQuestion
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, false
	}
	return out, true
}

// repairTruncate cuts everything after the last complete object and closes
// the array. This recovers responses truncated at the token limit.
func repairTruncate(s string) (string, bool) {
	idx := strings.LastIndexByte(s, '}')
	if idx < 0 {
		return "", false
	}
	return s[:idx+1] + "]", true
}

// repairDropLastQuestion discards the final, presumably mangled, question
// by backtracking from the last question_text key to the comma that
// separates its object from the previous one.
func repairDropLastQuestion(s string) (string, bool) {
	key := strings.LastIndex(s, `"question_text"`)
	if key < 0 {
		return "", false
	}
	cut := strings.LastIndexByte(s[:key], ',')
	if cut < 0 {
		return "", false
	}
	return s[:cut] + "]", true
}

// scanObjects walks the payload character by character, tracking string and
// escape state, and collects every top-level balanced {...} run that
// unmarshals cleanly.
func scanObjects(s string) []RawQuestion {
	var (
		out      []RawQuestion
		depth    int
		start    int
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			if depth == 0 {
				start = i
			}
			depth++
		case c == '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				var q RawQuestion
				if err := json.Unmarshal([]byte(s[start:i+1]), &q); err == nil {
					out = append(out, q)
				}
			}
		}
	}
	return out
}

// filterUsable keeps objects carrying the three fields nothing downstream
// can reconstruct: the question text, its type, and some answer key.
func filterUsable(qs []RawQuestion) []RawQuestion {
	out := make([]RawQuestion, 0, len(qs))
	for _, q := range qs {
		if q == nil {
			continue
		}
		if stringField(q, "question_text") == "" {
			continue
		}
		if stringField(q, "question_type") == "" {
			continue
		}
		if _, ok := q["answer_key"]; !ok {
			continue
		}
		out = append(out, q)
	}
	return out
}

func stringField(q RawQuestion, key string) string {
	v, ok := q[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
