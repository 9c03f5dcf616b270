package quizgen

// Position-bias guard for multiple choice batches. Models tend to put the
// correct answer in the same slot despite the prompt contract; a heavily
// skewed batch is worth surfacing even though it is still usable.
const (
	spreadMinSample = 20
	spreadMaxShare  = 0.6
)

// skewedOptionPosition reports the option slot holding more than 60% of
// the correct answers, when the batch has enough multiple choice questions
// to judge. Smaller batches are never flagged.
func skewedOptionPosition(questions []*GeneratedQuestion) (int, bool) {
	counts := make(map[int]int)
	var total int
	for _, q := range questions {
		if q.Type != TypeMultipleChoice {
			continue
		}
		for i, opt := range q.Options {
			if opt == q.CorrectAnswer {
				counts[i]++
				total++
				break
			}
		}
	}
	if total < spreadMinSample {
		return 0, false
	}
	for pos, n := range counts {
		if float64(n)/float64(total) > spreadMaxShare {
			return pos, true
		}
	}
	return 0, false
}
