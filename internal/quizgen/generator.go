// Package quizgen turns aggregated course content into persisted,
// validated assessment questions.
package quizgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skanda/assessly/internal/content"
	"github.com/skanda/assessly/internal/llm"
	"github.com/skanda/assessly/internal/retrypolicy"
	"github.com/skanda/assessly/internal/store"
)

// ErrBatchRejected means every generation attempt fell below the
// acceptance threshold and partial batches are disabled.
var ErrBatchRejected = errors.New("generated batch below acceptance threshold")

// ErrNoQuestions means no attempt produced a single valid question.
var ErrNoQuestions = errors.New("generation produced no valid questions")

// Generator runs the generation pipeline: aggregate content, prompt the
// model, parse and validate the output, balance points, persist.
type Generator struct {
	provider    llm.Provider
	assessments store.AssessmentRepo
	aggregator  *content.Aggregator
	cfg         Config
	log         *zap.Logger

	// OnProgress, when set, receives human-readable stage updates.
	// Failures in the callback are the caller's problem; the pipeline
	// never blocks on it.
	OnProgress func(stage string)
}

// NewGenerator wires a Generator. The provider should already carry its
// retry, logging and concurrency-limit decorators.
func NewGenerator(provider llm.Provider, assessments store.AssessmentRepo, aggregator *content.Aggregator, cfg Config, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{
		provider:    provider,
		assessments: assessments,
		aggregator:  aggregator,
		cfg:         cfg,
		log:         log,
	}
}

type batchResult struct {
	parsed int
	valid  []*GeneratedQuestion
}

// Generate runs one full generation and returns the persisted assessment
// with its questions.
func (g *Generator) Generate(ctx context.Context, req GenerationRequest) (*store.Assessment, []*store.Question, error) {
	if err := checkRequest(req); err != nil {
		return nil, nil, err
	}
	if req.Difficulty == "" {
		req.Difficulty = DifficultyMedium
	}

	g.report("aggregating content")
	text, err := g.aggregator.Fetch(ctx, req.Scope)
	if err != nil {
		return nil, nil, err
	}
	text = preprocessContent(text)

	g.report("generating questions")
	ctx = llm.WithPurpose(ctx, "question-gen")
	result, err := retrypolicy.Do(ctx, g.cfg.BatchRetry,
		func(ctx context.Context) (batchResult, error) {
			return g.generateBatch(ctx, text, req)
		},
		func(r batchResult, err error) bool {
			return err == nil && g.accepted(r)
		},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("generate batch: %w", err)
	}
	if len(result.valid) == 0 {
		return nil, nil, fmt.Errorf("%w: scope %s", ErrNoQuestions, req.Scope)
	}
	if !g.accepted(result) && !g.cfg.AcceptPartialBatch {
		return nil, nil, fmt.Errorf("%w: %d of %d usable", ErrBatchRejected, len(result.valid), result.parsed)
	}

	questions := result.valid
	if len(questions) > req.QuestionCount {
		questions = questions[:req.QuestionCount]
	}
	AssignPoints(questions, req.Difficulty)
	if pos, skewed := skewedOptionPosition(questions); skewed {
		g.log.Warn("correct answers cluster in one option slot",
			zap.Int("position", pos),
			zap.String("scope", req.Scope.String()),
		)
	}

	g.report("saving assessment")
	assessment := &store.Assessment{
		ID:                  uuid.NewString(),
		Title:               req.Title,
		Type:                store.AssessmentType(req.Scope.Kind),
		ScopeID:             req.Scope.ID,
		TimeLimitMinutes:    req.TimeLimitMinutes,
		PassingScorePercent: req.PassingScorePercent,
		AIGradingEnabled:    true,
	}
	if assessment.Title == "" {
		assessment.Title = fmt.Sprintf("Assessment for %s", req.Scope)
	}

	rows, err := toStoreQuestions(questions)
	if err != nil {
		return nil, nil, err
	}
	if err := g.assessments.CreateWithQuestions(ctx, assessment, rows); err != nil {
		return nil, nil, fmt.Errorf("persist assessment: %w", err)
	}

	g.log.Info("assessment generated",
		zap.String("assessment_id", assessment.ID),
		zap.String("scope", req.Scope.String()),
		zap.Int("requested", req.QuestionCount),
		zap.Int("saved", len(rows)),
	)
	g.report("done")
	return assessment, rows, nil
}

// generateBatch makes one model call and runs the parse/validate pipeline
// over its output. Per-question rejections are logged, not returned; the
// caller judges the batch by its acceptance ratio.
func (g *Generator) generateBatch(ctx context.Context, text string, req GenerationRequest) (batchResult, error) {
	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      generationSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildGenerationPrompt(text, req)}},
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return batchResult{}, err
	}

	raws := ParseQuestions(resp.Text())
	result := batchResult{parsed: len(raws)}
	for _, raw := range raws {
		q := Normalize(raw)
		if q == nil {
			g.log.Debug("question dropped", zap.String("reason", "unrecoverable answer key"))
			continue
		}
		if err := Validate(q); err != nil {
			g.log.Debug("question dropped", zap.String("reason", err.Error()))
			continue
		}
		result.valid = append(result.valid, q)
	}

	g.log.Info("generation batch",
		zap.Int("parsed", result.parsed),
		zap.Int("valid", len(result.valid)),
		zap.String("stop_reason", resp.StopReason),
	)
	return result, nil
}

func (g *Generator) accepted(r batchResult) bool {
	if r.parsed == 0 {
		return false
	}
	return float64(len(r.valid))/float64(r.parsed) >= g.cfg.AcceptanceThreshold
}

func (g *Generator) report(stage string) {
	if g.OnProgress != nil {
		g.OnProgress(stage)
	}
}

func checkRequest(req GenerationRequest) error {
	if req.QuestionCount < 1 {
		return fmt.Errorf("question count must be at least 1, got %d", req.QuestionCount)
	}
	if len(req.Types) == 0 {
		return errors.New("at least one question type is required")
	}
	for _, t := range req.Types {
		if !KnownType(t) {
			return fmt.Errorf("unknown question type %q", t)
		}
	}
	return nil
}

func toStoreQuestions(questions []*GeneratedQuestion) ([]*store.Question, error) {
	rows := make([]*store.Question, 0, len(questions))
	for _, q := range questions {
		key, err := json.Marshal(q.AnswerKey)
		if err != nil {
			return nil, fmt.Errorf("marshal answer key: %w", err)
		}
		rows = append(rows, &store.Question{
			ID:             uuid.NewString(),
			Text:           q.Text,
			Type:           string(q.Type),
			Options:        q.Options,
			CorrectAnswer:  q.CorrectAnswer,
			AnswerKey:      key,
			SampleResponse: q.SampleResponse,
			Points:         q.Points,
			Explanation:    q.Explanation,
		})
	}
	return rows, nil
}
