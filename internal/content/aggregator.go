// Package content flattens the course hierarchy into the single text blob
// the generation prompt is built from.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skanda/assessly/internal/retrypolicy"
	"github.com/skanda/assessly/internal/store"
)

// ErrContentUnavailable means the scope has no usable text, even after
// retries and the title+description fallback. Generation cannot proceed.
var ErrContentUnavailable = errors.New("content unavailable for scope")

// ScopeKind selects the content unit a request targets.
type ScopeKind string

const (
	ScopeLesson ScopeKind = "lesson"
	ScopeModule ScopeKind = "module"
	ScopeCourse ScopeKind = "course"
)

// Scope is the immutable input descriptor for one generation call.
type Scope struct {
	Kind ScopeKind
	ID   string
}

func (s Scope) String() string {
	return fmt.Sprintf("%s/%s", s.Kind, s.ID)
}

// Config controls lesson-scope retry behavior. Lesson content is written by
// an asynchronous authoring pipeline and may not exist yet when generation
// is requested; module and course scope compose already-available children
// and are read exactly once.
type Config struct {
	LessonRetry retrypolicy.Policy `yaml:"lesson_retry"`
}

// DefaultConfig retries a missing lesson 5 times, 3 seconds apart.
func DefaultConfig() Config {
	return Config{
		LessonRetry: retrypolicy.Policy{MaxAttempts: 5, Delay: 3 * time.Second},
	}
}

// Aggregator fetches and flattens structured content for a scope.
type Aggregator struct {
	repo store.ContentRepo
	cfg  Config
}

// NewAggregator creates an Aggregator over the given content repository.
func NewAggregator(repo store.ContentRepo, cfg Config) *Aggregator {
	return &Aggregator{repo: repo, cfg: cfg}
}

// Fetch returns the flattened text for a scope.
func (a *Aggregator) Fetch(ctx context.Context, scope Scope) (string, error) {
	switch scope.Kind {
	case ScopeLesson:
		return a.fetchLesson(ctx, scope.ID)
	case ScopeModule:
		text, err := a.moduleText(ctx, scope.ID)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			return "", fmt.Errorf("%w: %s", ErrContentUnavailable, scope)
		}
		return text, nil
	case ScopeCourse:
		return a.fetchCourse(ctx, scope.ID)
	default:
		return "", fmt.Errorf("unknown scope kind %q", scope.Kind)
	}
}

// fetchLesson retries until section content appears, then falls back to a
// minimal title+description stub.
func (a *Aggregator) fetchLesson(ctx context.Context, lessonID string) (string, error) {
	text, err := retrypolicy.Do(ctx, a.cfg.LessonRetry,
		func(ctx context.Context) (string, error) {
			return a.lessonText(ctx, lessonID)
		},
		func(text string, err error) bool {
			return err == nil && strings.TrimSpace(text) != ""
		},
	)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}

	lesson, lerr := a.repo.LessonByID(ctx, lessonID)
	if lerr != nil {
		return "", fmt.Errorf("%w: lesson/%s", ErrContentUnavailable, lessonID)
	}
	stub := strings.TrimSpace(lesson.Title + "\n\n" + lesson.Description)
	if stub == "" {
		return "", fmt.Errorf("%w: lesson/%s", ErrContentUnavailable, lessonID)
	}
	return stub, nil
}

func (a *Aggregator) fetchCourse(ctx context.Context, courseID string) (string, error) {
	course, err := a.repo.CourseByID(ctx, courseID)
	if err != nil {
		return "", fmt.Errorf("fetch course: %w", err)
	}

	modules, err := a.repo.ModulesByCourse(ctx, courseID)
	if err != nil {
		return "", fmt.Errorf("fetch course modules: %w", err)
	}

	var b strings.Builder
	b.WriteString(course.Title)
	b.WriteString("\n\n")
	for _, m := range modules {
		text, err := a.moduleText(ctx, m.ID)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}

	out := strings.TrimSpace(b.String())
	if out == "" || out == course.Title {
		return "", fmt.Errorf("%w: course/%s", ErrContentUnavailable, courseID)
	}
	return out, nil
}

// moduleText concatenates a module's lessons in sort order.
func (a *Aggregator) moduleText(ctx context.Context, moduleID string) (string, error) {
	module, err := a.repo.ModuleByID(ctx, moduleID)
	if err != nil {
		return "", fmt.Errorf("fetch module: %w", err)
	}

	lessons, err := a.repo.LessonsByModule(ctx, moduleID)
	if err != nil {
		return "", fmt.Errorf("fetch module lessons: %w", err)
	}

	var b strings.Builder
	b.WriteString(module.Title)
	b.WriteString("\n\n")
	for _, l := range lessons {
		text, err := a.lessonText(ctx, l.ID)
		if err != nil {
			return "", err
		}
		if text != "" {
			b.WriteString(text)
			b.WriteString("\n\n")
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// lessonText concatenates a lesson's sections in sort order. An empty
// result means the authoring pipeline hasn't produced content yet.
func (a *Aggregator) lessonText(ctx context.Context, lessonID string) (string, error) {
	lesson, err := a.repo.LessonByID(ctx, lessonID)
	if err != nil {
		return "", err
	}

	sections, err := a.repo.SectionsByLesson(ctx, lessonID)
	if err != nil {
		return "", err
	}
	if len(sections) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString(lesson.Title)
	b.WriteString("\n\n")
	for _, s := range sections {
		if s.Heading != "" {
			b.WriteString(s.Heading)
			b.WriteString("\n")
		}
		b.WriteString(s.Body)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String()), nil
}
