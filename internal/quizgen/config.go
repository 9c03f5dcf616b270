package quizgen

import (
	"time"

	"github.com/skanda/assessly/internal/retrypolicy"
)

// Config tunes one generation run.
type Config struct {
	// MaxTokens bounds the model response for a batch.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature for the generation call. Higher than grading on purpose;
	// question variety matters more than determinism here.
	Temperature float64 `yaml:"temperature"`

	// BatchRetry governs how often a rejected batch is regenerated.
	BatchRetry retrypolicy.Policy `yaml:"batch_retry"`

	// AcceptanceThreshold is the minimum fraction of parsed questions that
	// must survive validation for a batch to be accepted as-is.
	AcceptanceThreshold float64 `yaml:"acceptance_threshold"`

	// AcceptPartialBatch keeps the valid questions of the final attempt
	// when every attempt fell below the threshold. When false the run
	// fails with ErrBatchRejected instead.
	AcceptPartialBatch bool `yaml:"accept_partial_batch"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:           4096,
		Temperature:         0.8,
		BatchRetry:          retrypolicy.Policy{MaxAttempts: 3, Delay: 2 * time.Second},
		AcceptanceThreshold: 0.8,
		AcceptPartialBatch:  true,
	}
}
