// Package progress publishes assessment outcomes to the learner progress
// store. Updates are advisory; grading never depends on them succeeding.
package progress

import "context"

// Status is the outcome published for a graded attempt.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)

// Update carries one progress change for a user and assessment.
type Update struct {
	Status             Status
	ProgressPercentage float64
	LastPosition       string
}

// Tracker publishes progress updates.
type Tracker interface {
	UpdateAssessmentProgress(ctx context.Context, userID, assessmentID string, u Update) error
}

// Noop discards all updates. Used when no progress store is configured.
type Noop struct{}

func (Noop) UpdateAssessmentProgress(context.Context, string, string, Update) error {
	return nil
}
