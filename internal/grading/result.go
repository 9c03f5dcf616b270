package grading

import "github.com/skanda/assessly/internal/llm"

// Result is the structured grading outcome the model must produce.
type Result struct {
	Score       float64  `json:"score"`
	Feedback    string   `json:"feedback"`
	Confidence  float64  `json:"confidence"`
	Reasoning   string   `json:"reasoning,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// resultSchema constrains the grading response. Unlike generation, grading
// output goes straight into scores, so it is schema-enforced at the
// provider rather than repaired after the fact.
var resultSchema = &llm.Schema{
	Name:        "grading-result",
	Description: "Grade one student response against its answer key.",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score": map[string]any{
				"type":        "number",
				"description": "Points awarded, between 0 and the question's maximum.",
			},
			"feedback": map[string]any{
				"type":        "string",
				"description": "Feedback shown to the student.",
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0,
				"maximum":     1,
				"description": "How certain the grade is.",
			},
			"reasoning": map[string]any{
				"type":        "string",
				"description": "Internal reasoning, not shown to the student.",
			},
			"suggestions": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required":             []any{"score", "feedback", "confidence"},
		"additionalProperties": false,
	},
}

// clamp pins the model's numbers into their legal ranges. A hallucinated
// score above the question's maximum becomes the maximum, not an error.
func (r *Result) clamp(maxPoints float64) {
	if r.Score < 0 {
		r.Score = 0
	}
	if r.Score > maxPoints {
		r.Score = maxPoints
	}
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}
}
