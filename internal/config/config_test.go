package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("ASSESSLY_LLM_PROVIDER", "mock")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pools.Generation != 3 || cfg.Pools.Grading != 2 {
		t.Fatalf("pools = %+v", cfg.Pools)
	}
	if cfg.Generation.AcceptanceThreshold != 0.8 {
		t.Fatalf("acceptance threshold = %v", cfg.Generation.AcceptanceThreshold)
	}
	if cfg.Content.LessonRetry.MaxAttempts != 5 || cfg.Content.LessonRetry.Delay != 3*time.Second {
		t.Fatalf("lesson retry = %+v", cfg.Content.LessonRetry)
	}
}

func TestLoad_FileAndEnvOverlay(t *testing.T) {
	t.Setenv("ASSESSLY_LLM_PROVIDER", "mock")
	t.Setenv("ASSESSLY_REDIS_ADDR", "env-redis:6379")
	t.Setenv("ASSESSLY_GRADING_POOL", "4")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
db_path: /tmp/assessly-test.db
redis:
  addr: file-redis:6379
log_level: debug
pools:
  generation: 5
  grading: 1
generation:
  acceptance_threshold: 0.9
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DBPath != "/tmp/assessly-test.db" {
		t.Fatalf("db_path = %q", cfg.DBPath)
	}
	// Environment wins over the file.
	if cfg.Redis.Addr != "env-redis:6379" {
		t.Fatalf("redis addr = %q", cfg.Redis.Addr)
	}
	if cfg.Pools.Grading != 4 {
		t.Fatalf("grading pool = %d", cfg.Pools.Grading)
	}
	if cfg.Pools.Generation != 5 {
		t.Fatalf("generation pool = %d", cfg.Pools.Generation)
	}
	if cfg.Generation.AcceptanceThreshold != 0.9 {
		t.Fatalf("acceptance threshold = %v", cfg.Generation.AcceptanceThreshold)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
}

func TestValidate_Rejections(t *testing.T) {
	t.Setenv("ASSESSLY_LLM_PROVIDER", "mock")

	cfg := Default()
	cfg.LLM.Provider = "mock"
	cfg.Pools.Grading = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero grading pool")
	}

	cfg = Default()
	cfg.LLM.Provider = "mock"
	cfg.LogLevel = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}
