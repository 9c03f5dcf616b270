package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/skanda/assessly/internal/store"
)

var compileCmd = &cobra.Command{
	Use:   "compile <question-id> [question-id...]",
	Short: "Compile an exam from existing questions",
	Long:  "Builds a new assessment from hand-picked questions of earlier assessments. Questions are copied, so editing the exam never touches the originals.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		scopeID, _ := cmd.Flags().GetString("scope-id")
		timeLimit, _ := cmd.Flags().GetInt("time-limit")
		passing, _ := cmd.Flags().GetFloat64("passing-score")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		exam := &store.Assessment{
			ID:                  uuid.NewString(),
			Title:               title,
			Type:                store.AssessmentCourse,
			ScopeID:             scopeID,
			TimeLimitMinutes:    timeLimit,
			PassingScorePercent: passing,
			AIGradingEnabled:    true,
		}
		if err := a.store.Assessments().CompileExam(context.Background(), exam, args); err != nil {
			return err
		}

		fmt.Printf("Compiled exam %s (%q) from %d questions.\n", exam.ID, exam.Title, len(args))
		return nil
	},
}

func init() {
	compileCmd.Flags().String("title", "Compiled Exam", "Exam title")
	compileCmd.Flags().String("scope-id", "", "Course the exam belongs to")
	compileCmd.Flags().Int("time-limit", 0, "Time limit in minutes, 0 for none")
	compileCmd.Flags().Float64("passing-score", 70, "Passing score percentage")
}
