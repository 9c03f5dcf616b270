package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

// ContentRepo reads the content hierarchy the aggregator flattens.
// Writes exist only to support seeding and tests; the authoring pipeline
// that normally populates these tables is out of scope.
type ContentRepo interface {
	CourseByID(ctx context.Context, id string) (*Course, error)
	ModuleByID(ctx context.Context, id string) (*CourseModule, error)
	LessonByID(ctx context.Context, id string) (*Lesson, error)

	// ModulesByCourse returns a course's modules ordered by sort position.
	ModulesByCourse(ctx context.Context, courseID string) ([]*CourseModule, error)

	// LessonsByModule returns a module's lessons ordered by sort position.
	LessonsByModule(ctx context.Context, moduleID string) ([]*Lesson, error)

	// SectionsByLesson returns a lesson's sections ordered by sort position.
	SectionsByLesson(ctx context.Context, lessonID string) ([]*LessonSection, error)

	PutCourse(ctx context.Context, c *Course) error
	PutModule(ctx context.Context, m *CourseModule) error
	PutLesson(ctx context.Context, l *Lesson) error
	PutSection(ctx context.Context, s *LessonSection) error
}

type contentRepo struct {
	db *bun.DB
}

func (r *contentRepo) CourseByID(ctx context.Context, id string) (*Course, error) {
	c := new(Course)
	err := r.db.NewSelect().Model(c).Where("c.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select course: %w", err)
	}
	return c, nil
}

func (r *contentRepo) ModuleByID(ctx context.Context, id string) (*CourseModule, error) {
	m := new(CourseModule)
	err := r.db.NewSelect().Model(m).Where("cm.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select module: %w", err)
	}
	return m, nil
}

func (r *contentRepo) LessonByID(ctx context.Context, id string) (*Lesson, error) {
	l := new(Lesson)
	err := r.db.NewSelect().Model(l).Where("l.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select lesson: %w", err)
	}
	return l, nil
}

func (r *contentRepo) ModulesByCourse(ctx context.Context, courseID string) ([]*CourseModule, error) {
	var modules []*CourseModule
	err := r.db.NewSelect().
		Model(&modules).
		Where("cm.course_id = ?", courseID).
		Order("cm.sort_position ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select modules: %w", err)
	}
	return modules, nil
}

func (r *contentRepo) LessonsByModule(ctx context.Context, moduleID string) ([]*Lesson, error) {
	var lessons []*Lesson
	err := r.db.NewSelect().
		Model(&lessons).
		Where("l.module_id = ?", moduleID).
		Order("l.sort_position ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select lessons: %w", err)
	}
	return lessons, nil
}

func (r *contentRepo) SectionsByLesson(ctx context.Context, lessonID string) ([]*LessonSection, error) {
	var sections []*LessonSection
	err := r.db.NewSelect().
		Model(&sections).
		Where("ls.lesson_id = ?", lessonID).
		Order("ls.sort_position ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select sections: %w", err)
	}
	return sections, nil
}

func (r *contentRepo) PutCourse(ctx context.Context, c *Course) error {
	_, err := r.db.NewInsert().Model(c).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	return err
}

func (r *contentRepo) PutModule(ctx context.Context, m *CourseModule) error {
	_, err := r.db.NewInsert().Model(m).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	return err
}

func (r *contentRepo) PutLesson(ctx context.Context, l *Lesson) error {
	_, err := r.db.NewInsert().Model(l).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	return err
}

func (r *contentRepo) PutSection(ctx context.Context, s *LessonSection) error {
	_, err := r.db.NewInsert().Model(s).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	return err
}
