// Package store is the persistence adapter. It is a relational-style store
// accessed through scoped queries; no cross-statement transaction primitive
// is exposed, so multi-step writes that must stay coherent use compensating
// deletes instead (see AssessmentRepo.CompileExam).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store holds the bun DB handle and provides access to repositories.
type Store struct {
	sqldb *sql.DB
	db    *bun.DB
}

// Open creates a Store connected to the SQLite database at dsn.
// It applies recommended pragmas and creates missing tables.
func Open(dsn string) (*Store, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(sqldb); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := createTables(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{sqldb: sqldb, db: db}, nil
}

// DB returns the underlying bun handle for raw queries.
func (s *Store) DB() *bun.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Assessments returns the assessment/question repository.
func (s *Store) Assessments() AssessmentRepo {
	return &assessmentRepo{db: s.db}
}

// Responses returns the student response repository.
func (s *Store) Responses() ResponseRepo {
	return &responseRepo{db: s.db}
}

// Attempts returns the attempt repository.
func (s *Store) Attempts() AttemptRepo {
	return &attemptRepo{db: s.db}
}

// Content returns the read-side content repository.
func (s *Store) Content() ContentRepo {
	return &contentRepo{db: s.db}
}

// Events returns the model request event repository.
func (s *Store) Events() EventRepo {
	return &eventRepo{db: s.db}
}

// applyPragmas configures SQLite for reliable single-writer operation.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func createTables(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*Assessment)(nil),
		(*Question)(nil),
		(*StudentResponse)(nil),
		(*Attempt)(nil),
		(*Course)(nil),
		(*CourseModule)(nil),
		(*Lesson)(nil),
		(*LessonSection)(nil),
		(*LLMRequestEvent)(nil),
	}
	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. ASSESSLY_DB environment variable
// 2. $XDG_DATA_HOME/assessly/assessly.db
// 3. ~/.local/share/assessly/assessly.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("ASSESSLY_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "assessly", "assessly.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
