package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skanda/assessly/internal/grading"
	"github.com/skanda/assessly/internal/llm"
	"github.com/skanda/assessly/internal/store"
)

var overrideCmd = &cobra.Command{
	Use:   "override <response-id>",
	Short: "Apply an instructor override to one graded response",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, _ := cmd.Flags().GetFloat64("score")
		feedback, _ := cmd.Flags().GetString("feedback")
		graderID, _ := cmd.Flags().GetString("grader")
		reason, _ := cmd.Flags().GetString("reason")

		if graderID == "" {
			return fmt.Errorf("--grader is required")
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		// The override path never calls the model; a mock provider keeps
		// the service constructable without API credentials.
		svc := grading.NewService(llm.NewMockProvider(),
			a.store.Assessments(), a.store.Responses(), a.store.Attempts(),
			a.tracker(), a.cfg.Grading, a.log)

		at, err := svc.ManualOverride(context.Background(), store.ManualOverride{
			ResponseID: args[0],
			Score:      score,
			Feedback:   feedback,
			GraderID:   graderID,
			Reason:     reason,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Override applied. Attempt %s now %.1f/%.1f points (%.1f%%).\n",
			at.ID, at.EarnedPoints, at.TotalPoints, at.PercentageScore)
		return nil
	},
}

func init() {
	overrideCmd.Flags().Float64("score", 0, "Corrected score in points")
	overrideCmd.Flags().String("feedback", "", "Feedback shown to the student")
	overrideCmd.Flags().String("grader", "", "ID of the instructor applying the override")
	overrideCmd.Flags().String("reason", "", "Why the AI grade was overridden")
	_ = overrideCmd.MarkFlagRequired("score")
}
