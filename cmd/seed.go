package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/skanda/assessly/internal/store"
)

// seedFile mirrors the YAML layout of a course export.
type seedFile struct {
	Course struct {
		ID          string `yaml:"id"`
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
	} `yaml:"course"`
	Modules []struct {
		ID      string `yaml:"id"`
		Title   string `yaml:"title"`
		Lessons []struct {
			ID          string `yaml:"id"`
			Title       string `yaml:"title"`
			Description string `yaml:"description"`
			Sections    []struct {
				Heading string `yaml:"heading"`
				Body    string `yaml:"body"`
			} `yaml:"sections"`
		} `yaml:"lessons"`
	} `yaml:"modules"`
}

var seedCmd = &cobra.Command{
	Use:   "seed <course.yaml>",
	Short: "Load a course hierarchy into the content tables",
	Long:  "Imports a course export so assessments can be generated against it locally. Existing rows with the same IDs are left untouched.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read seed file: %w", err)
		}
		var sf seedFile
		if err := yaml.Unmarshal(data, &sf); err != nil {
			return fmt.Errorf("parse seed file: %w", err)
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx := context.Background()
		repo := a.store.Content()

		courseID := orNewID(sf.Course.ID)
		if err := repo.PutCourse(ctx, &store.Course{
			ID:          courseID,
			Title:       sf.Course.Title,
			Description: sf.Course.Description,
		}); err != nil {
			return fmt.Errorf("seed course: %w", err)
		}

		var lessons, sections int
		for mi, m := range sf.Modules {
			moduleID := orNewID(m.ID)
			if err := repo.PutModule(ctx, &store.CourseModule{
				ID:           moduleID,
				CourseID:     courseID,
				Title:        m.Title,
				SortPosition: mi + 1,
			}); err != nil {
				return fmt.Errorf("seed module %q: %w", m.Title, err)
			}
			for li, l := range m.Lessons {
				lessonID := orNewID(l.ID)
				if err := repo.PutLesson(ctx, &store.Lesson{
					ID:           lessonID,
					ModuleID:     moduleID,
					Title:        l.Title,
					Description:  l.Description,
					SortPosition: li + 1,
				}); err != nil {
					return fmt.Errorf("seed lesson %q: %w", l.Title, err)
				}
				lessons++
				for si, s := range l.Sections {
					if err := repo.PutSection(ctx, &store.LessonSection{
						ID:           uuid.NewString(),
						LessonID:     lessonID,
						Heading:      s.Heading,
						Body:         s.Body,
						SortPosition: si + 1,
					}); err != nil {
						return fmt.Errorf("seed section: %w", err)
					}
					sections++
				}
			}
		}

		fmt.Printf("Seeded course %s: %d modules, %d lessons, %d sections.\n",
			courseID, len(sf.Modules), lessons, sections)
		return nil
	},
}

func orNewID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
