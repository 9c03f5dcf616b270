package quizgen

import "strings"

// Point values per estimated difficulty tier.
const (
	pointsEasy   = 1.0
	pointsMedium = 2.0
	pointsHard   = 3.0
)

var typeWeight = map[QuestionType]float64{
	TypeTrueFalse:      0.5,
	TypeMultipleChoice: 1.0,
	TypeShortAnswer:    1.5,
	TypeMatching:       1.5,
	TypeEssay:          3.0,
}

// Verbs from the upper tiers of Bloom's taxonomy. Their presence in the
// question text pushes the complexity estimate up.
var analyticalVerbs = []string{
	"analyze", "analyse", "evaluate", "compare", "contrast",
	"synthesize", "critique", "justify", "explain why", "interpret",
}

// AssignPoints sets a point value on each question from an estimated
// complexity score, shifted by the requested difficulty profile. The
// estimate is a heuristic over question type, text length, and vocabulary;
// it is fully deterministic so regeneration with the same input yields the
// same point spread.
func AssignPoints(questions []*GeneratedQuestion, difficulty Difficulty) {
	for _, q := range questions {
		q.Points = pointsFor(complexityScore(q) + difficultyShift(difficulty))
	}
}

func complexityScore(q *GeneratedQuestion) float64 {
	score := typeWeight[q.Type]

	words := strings.Fields(q.Text)
	if len(words) > 25 {
		score += 0.5
	}

	var chars int
	for _, w := range words {
		chars += len(w)
	}
	if len(words) > 0 && float64(chars)/float64(len(words)) > 6.0 {
		score += 0.25
	}

	lower := strings.ToLower(q.Text)
	for _, verb := range analyticalVerbs {
		if strings.Contains(lower, verb) {
			score += 0.75
			break
		}
	}
	return score
}

func difficultyShift(d Difficulty) float64 {
	switch d {
	case DifficultyEasy:
		return -0.5
	case DifficultyHard:
		return 0.5
	}
	return 0
}

func pointsFor(score float64) float64 {
	switch {
	case score < 1.25:
		return pointsEasy
	case score < 2.25:
		return pointsMedium
	default:
		return pointsHard
	}
}
