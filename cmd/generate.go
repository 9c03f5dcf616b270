package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skanda/assessly/internal/content"
	"github.com/skanda/assessly/internal/quizgen"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an assessment from course content",
	Example: `  assessly generate --scope lesson --scope-id les-042 --count 10
  assessly generate --scope course --scope-id crs-007 --count 20 --types essay,short_answer --difficulty hard`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scopeKind, _ := cmd.Flags().GetString("scope")
		scopeID, _ := cmd.Flags().GetString("scope-id")
		count, _ := cmd.Flags().GetInt("count")
		typesArg, _ := cmd.Flags().GetString("types")
		difficulty, _ := cmd.Flags().GetString("difficulty")
		title, _ := cmd.Flags().GetString("title")
		timeLimit, _ := cmd.Flags().GetInt("time-limit")
		passing, _ := cmd.Flags().GetFloat64("passing-score")

		if scopeID == "" {
			return fmt.Errorf("--scope-id is required")
		}

		var types []quizgen.QuestionType
		for _, t := range strings.Split(typesArg, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, quizgen.QuestionType(t))
			}
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx := context.Background()
		provider, err := a.provider(ctx, a.cfg.Pools.Generation)
		if err != nil {
			return err
		}

		aggregator := content.NewAggregator(a.store.Content(), a.cfg.Content)
		gen := quizgen.NewGenerator(provider, a.store.Assessments(), aggregator, a.cfg.Generation, a.log)
		gen.OnProgress = func(stage string) {
			fmt.Printf("… %s\n", stage)
		}

		assessment, questions, err := gen.Generate(ctx, quizgen.GenerationRequest{
			Scope:               content.Scope{Kind: content.ScopeKind(scopeKind), ID: scopeID},
			QuestionCount:       count,
			Types:               types,
			Difficulty:          quizgen.Difficulty(difficulty),
			Title:               title,
			TimeLimitMinutes:    timeLimit,
			PassingScorePercent: passing,
		})
		if err != nil {
			return err
		}

		fmt.Printf("\nCreated assessment %s (%q) with %d questions:\n\n", assessment.ID, assessment.Title, len(questions))
		for _, q := range questions {
			fmt.Printf("%3d. [%s, %g pt] %s\n", q.Position, q.Type, q.Points, q.Text)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().String("scope", "lesson", "Content scope: lesson, module or course")
	generateCmd.Flags().String("scope-id", "", "ID of the lesson, module or course")
	generateCmd.Flags().Int("count", 10, "Number of questions to generate")
	generateCmd.Flags().String("types", "multiple_choice,true_false,short_answer", "Comma-separated question types")
	generateCmd.Flags().String("difficulty", "medium", "Difficulty profile: easy, medium or hard")
	generateCmd.Flags().String("title", "", "Assessment title (defaults to one derived from the scope)")
	generateCmd.Flags().Int("time-limit", 0, "Time limit in minutes, 0 for none")
	generateCmd.Flags().Float64("passing-score", 70, "Passing score percentage")
}
