package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skanda/assessly/internal/grading"
)

var gradeCmd = &cobra.Command{
	Use:   "grade <attempt-id> [attempt-id...]",
	Short: "Run AI grading over submitted attempts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx := context.Background()
		provider, err := a.provider(ctx, a.cfg.Pools.Grading)
		if err != nil {
			return err
		}

		svc := grading.NewService(provider,
			a.store.Assessments(), a.store.Responses(), a.store.Attempts(),
			a.tracker(), a.cfg.Grading, a.log)

		var failed bool
		for _, attemptID := range args {
			at, err := svc.GradeAttempt(ctx, attemptID)
			if err != nil {
				failed = true
				fmt.Printf("%s: %v\n", attemptID, err)
				continue
			}
			verdict := "FAIL"
			if at.Passed {
				verdict = "PASS"
			}
			fmt.Printf("%s: %.1f/%.1f points (%.1f%%) %s\n",
				at.ID, at.EarnedPoints, at.TotalPoints, at.PercentageScore, verdict)
		}
		if failed {
			return fmt.Errorf("some attempts could not be graded")
		}
		return nil
	},
}
