package grading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/skanda/assessly/internal/llm"
	"github.com/skanda/assessly/internal/progress"
	"github.com/skanda/assessly/internal/store"
)

// keyedProvider routes by question text in the prompt, so tests stay
// deterministic under concurrent grading.
type keyedProvider struct {
	mu      sync.Mutex
	results map[string]Result
	errors  map[string]error
	calls   int
}

func (p *keyedProvider) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	prompt := req.Messages[0].Content
	for key, err := range p.errors {
		if strings.Contains(prompt, key) {
			return nil, err
		}
	}
	for key, result := range p.results {
		if strings.Contains(prompt, key) {
			content, _ := json.Marshal(result)
			return &llm.Response{Content: content, Model: "mock", StopReason: "end"}, nil
		}
	}
	return nil, fmt.Errorf("no canned result for prompt")
}

func (p *keyedProvider) ModelID() string { return "mock" }

func (p *keyedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fixture struct {
	assessment *store.Assessment
	questions  map[string]*store.Question
	responses  map[string]*store.StudentResponse
	attempt    *store.Attempt
	mu         sync.Mutex
}

func (f *fixture) Create(_ context.Context, a *store.Assessment) error { f.assessment = a; return nil }
func (f *fixture) Get(_ context.Context, id string) (*store.Assessment, error) {
	if f.assessment == nil || f.assessment.ID != id {
		return nil, store.ErrNotFound
	}
	return f.assessment, nil
}
func (f *fixture) Delete(context.Context, string) error                      { return nil }
func (f *fixture) InsertQuestions(context.Context, []*store.Question) error  { return nil }
func (f *fixture) Questions(context.Context, string) ([]*store.Question, error) {
	return nil, nil
}
func (f *fixture) QuestionByID(_ context.Context, id string) (*store.Question, error) {
	if q, ok := f.questions[id]; ok {
		return q, nil
	}
	return nil, store.ErrNotFound
}
func (f *fixture) CreateWithQuestions(context.Context, *store.Assessment, []*store.Question) error {
	return nil
}
func (f *fixture) CompileExam(context.Context, *store.Assessment, []string) error { return nil }

type fixtureResponses struct{ f *fixture }

func (r fixtureResponses) Insert(_ context.Context, resp *store.StudentResponse) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.responses[resp.ID] = resp
	return nil
}
func (r fixtureResponses) Get(_ context.Context, id string) (*store.StudentResponse, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if resp, ok := r.f.responses[id]; ok {
		return resp, nil
	}
	return nil, store.ErrNotFound
}
func (r fixtureResponses) ByAttempt(_ context.Context, attemptID string) ([]*store.StudentResponse, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*store.StudentResponse
	for _, resp := range r.f.responses {
		if resp.AttemptID == attemptID {
			out = append(out, resp)
		}
	}
	return out, nil
}
func (r fixtureResponses) ReadUngraded(_ context.Context, attemptID string) ([]*store.StudentResponse, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*store.StudentResponse
	for _, resp := range r.f.responses {
		if resp.AttemptID != attemptID || resp.AIScore != nil || resp.ManualScore != nil {
			continue
		}
		if resp.Status == store.ResponseUngraded || resp.Status == store.ResponseGradingError {
			out = append(out, resp)
		}
	}
	return out, nil
}
func (r fixtureResponses) SaveGradingResult(_ context.Context, responseID string, out store.GradingOutcome) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	resp := r.f.responses[responseID]
	score, conf := out.Score, out.Confidence
	resp.AIScore = &score
	resp.AIFeedback = out.Feedback
	resp.AIConfidence = &conf
	resp.Status = store.ResponseAIGraded
	if resp.ManualScore != nil {
		resp.FinalScore = *resp.ManualScore
	} else {
		resp.FinalScore = score
	}
	return nil
}
func (r fixtureResponses) SaveGradingError(_ context.Context, responseID, message string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	resp := r.f.responses[responseID]
	resp.Status = store.ResponseGradingError
	resp.AIFeedback = message
	return nil
}
func (r fixtureResponses) ApplyManualOverride(_ context.Context, ov store.ManualOverride) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	resp := r.f.responses[ov.ResponseID]
	score := ov.Score
	resp.ManualScore = &score
	resp.ManualFeedback = ov.Feedback
	resp.GraderID = ov.GraderID
	resp.OverrideReason = ov.Reason
	resp.Status = store.ResponseManuallyOverridden
	resp.FinalScore = score
	return nil
}

type fixtureAttempts struct{ f *fixture }

func (a fixtureAttempts) Create(_ context.Context, at *store.Attempt) error {
	a.f.attempt = at
	return nil
}
func (a fixtureAttempts) Get(_ context.Context, id string) (*store.Attempt, error) {
	if a.f.attempt == nil || a.f.attempt.ID != id {
		return nil, store.ErrNotFound
	}
	return a.f.attempt, nil
}
func (a fixtureAttempts) SetStatus(_ context.Context, id string, status store.AttemptStatus) error {
	a.f.attempt.Status = status
	return nil
}
func (a fixtureAttempts) RecomputeTotals(_ context.Context, attemptID string) (*store.Attempt, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	at := a.f.attempt
	var total, earned float64
	for _, resp := range a.f.responses {
		if resp.AttemptID != attemptID {
			continue
		}
		q, ok := a.f.questions[resp.QuestionID]
		if !ok {
			continue
		}
		total += q.Points
		earned += resp.FinalScore
	}
	at.TotalPoints = total
	at.EarnedPoints = earned
	if total > 0 {
		at.PercentageScore = 100 * earned / total
	} else {
		at.PercentageScore = 0
	}
	at.Passed = at.PercentageScore >= a.f.assessment.PassingScorePercent
	return at, nil
}

type recordingTracker struct {
	mu      sync.Mutex
	updates []progress.Update
	err     error
}

func (t *recordingTracker) UpdateAssessmentProgress(_ context.Context, userID, assessmentID string, u progress.Update) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updates = append(t.updates, u)
	return t.err
}

func newFixture() *fixture {
	f := &fixture{
		assessment: &store.Assessment{
			ID:                  "assess-1",
			Title:               "Quiz",
			PassingScorePercent: 70,
			AIGradingEnabled:    true,
		},
		questions: map[string]*store.Question{},
		responses: map[string]*store.StudentResponse{},
		attempt: &store.Attempt{
			ID:           "attempt-1",
			AssessmentID: "assess-1",
			UserID:       "user-1",
			Status:       store.AttemptSubmitted,
		},
	}
	return f
}

func (f *fixture) addQuestion(id, text string, points float64) {
	f.questions[id] = &store.Question{
		ID:           id,
		AssessmentID: "assess-1",
		Text:         text,
		Type:         "short_answer",
		AnswerKey:    json.RawMessage(`{"acceptable_answers": ["x"], "keywords": [], "min_score_threshold": 0.7}`),
		Points:       points,
	}
}

func (f *fixture) addResponse(id, questionID, answer string) {
	f.responses[id] = &store.StudentResponse{
		ID:         id,
		AttemptID:  "attempt-1",
		QuestionID: questionID,
		Answer:     answer,
		Status:     store.ResponseUngraded,
	}
}

func newService(f *fixture, p llm.Provider, tracker progress.Tracker) *Service {
	return NewService(p, f, fixtureResponses{f}, fixtureAttempts{f}, tracker, DefaultConfig(), zap.NewNop())
}

func TestGradeAttempt_FailureIsolation(t *testing.T) {
	f := newFixture()
	f.addQuestion("q1", "Question Alpha", 2)
	f.addQuestion("q2", "Question Beta", 2)
	f.addQuestion("q3", "Question Gamma", 2)
	f.addResponse("r1", "q1", "answer one")
	f.addResponse("r2", "q2", "answer two")
	f.addResponse("r3", "q3", "answer three")

	provider := &keyedProvider{
		results: map[string]Result{
			"Question Alpha": {Score: 2, Feedback: "good", Confidence: 0.9},
			"Question Gamma": {Score: 1, Feedback: "partial", Confidence: 0.8},
		},
		errors: map[string]error{
			"Question Beta": &llm.ErrProviderUnavailable{},
		},
	}
	tracker := &recordingTracker{}

	at, err := newService(f, provider, tracker).GradeAttempt(context.Background(), "attempt-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.responses["r1"].Status != store.ResponseAIGraded || *f.responses["r1"].AIScore != 2 {
		t.Fatalf("r1 = %+v", f.responses["r1"])
	}
	if f.responses["r3"].Status != store.ResponseAIGraded || *f.responses["r3"].AIScore != 1 {
		t.Fatalf("r3 = %+v", f.responses["r3"])
	}
	if f.responses["r2"].Status != store.ResponseGradingError {
		t.Fatalf("r2 status = %s", f.responses["r2"].Status)
	}
	if f.responses["r2"].AIFeedback != pendingReviewFeedback {
		t.Fatalf("r2 feedback = %q, must not leak the error", f.responses["r2"].AIFeedback)
	}

	if at.Status != store.AttemptGraded {
		t.Fatalf("attempt status = %s", at.Status)
	}
	// 3 of 6 points: the failed response contributes zero.
	if at.TotalPoints != 6 || at.EarnedPoints != 3 {
		t.Fatalf("totals = %v/%v", at.EarnedPoints, at.TotalPoints)
	}
	if at.Passed {
		t.Fatal("50% must not pass a 70% threshold")
	}
	if len(tracker.updates) != 1 {
		t.Fatalf("expected exactly 1 progress update, got %d", len(tracker.updates))
	}
	if tracker.updates[0].Status != progress.StatusFailed {
		t.Fatalf("progress status = %s", tracker.updates[0].Status)
	}
}

func TestGradeAttempt_EmptyAnswerSkipsModel(t *testing.T) {
	f := newFixture()
	f.addQuestion("q1", "Question Alpha", 2)
	f.addResponse("r1", "q1", "   ")

	provider := &keyedProvider{}
	_, err := newService(f, provider, &recordingTracker{}).GradeAttempt(context.Background(), "attempt-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.callCount() != 0 {
		t.Fatalf("empty answer must not reach the model, got %d calls", provider.callCount())
	}
	r := f.responses["r1"]
	if r.Status != store.ResponseAIGraded || *r.AIScore != 0 || *r.AIConfidence != 1.0 {
		t.Fatalf("r1 = %+v", r)
	}
	if r.AIFeedback != emptyAnswerFeedback {
		t.Fatalf("feedback = %q", r.AIFeedback)
	}
}

func TestGradeAttempt_ClampsModelNumbers(t *testing.T) {
	f := newFixture()
	f.addQuestion("q1", "Question Alpha", 2)
	f.addResponse("r1", "q1", "an answer")

	provider := &keyedProvider{
		results: map[string]Result{
			"Question Alpha": {Score: 10, Feedback: "over-enthusiastic", Confidence: 1.5},
		},
	}
	_, err := newService(f, provider, &recordingTracker{}).GradeAttempt(context.Background(), "attempt-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := f.responses["r1"]
	if *r.AIScore != 2 {
		t.Fatalf("score = %v, want clamped to 2", *r.AIScore)
	}
	if *r.AIConfidence != 1 {
		t.Fatalf("confidence = %v, want clamped to 1", *r.AIConfidence)
	}
}

func TestGradeAttempt_PassingOutcome(t *testing.T) {
	f := newFixture()
	f.addQuestion("q1", "Question Alpha", 2)
	f.addResponse("r1", "q1", "an answer")

	provider := &keyedProvider{
		results: map[string]Result{
			"Question Alpha": {Score: 2, Feedback: "correct", Confidence: 0.95},
		},
	}
	tracker := &recordingTracker{}
	at, err := newService(f, provider, tracker).GradeAttempt(context.Background(), "attempt-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !at.Passed || at.PercentageScore != 100 {
		t.Fatalf("attempt = %+v", at)
	}
	if tracker.updates[0].Status != progress.StatusPassed {
		t.Fatalf("progress status = %s", tracker.updates[0].Status)
	}
}

func TestGradeAttempt_SkipsAlreadyGraded(t *testing.T) {
	f := newFixture()
	f.addQuestion("q1", "Question Alpha", 2)
	f.addResponse("r1", "q1", "an answer")
	score := 2.0
	f.responses["r1"].AIScore = &score
	f.responses["r1"].FinalScore = score
	f.responses["r1"].Status = store.ResponseAIGraded

	provider := &keyedProvider{}
	_, err := newService(f, provider, &recordingTracker{}).GradeAttempt(context.Background(), "attempt-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.callCount() != 0 {
		t.Fatal("already graded response must not be regraded")
	}
}

func TestGradeAttempt_AIGradingDisabled(t *testing.T) {
	f := newFixture()
	f.assessment.AIGradingEnabled = false

	_, err := newService(f, &keyedProvider{}, &recordingTracker{}).GradeAttempt(context.Background(), "attempt-1")
	if !errors.Is(err, ErrAIGradingDisabled) {
		t.Fatalf("expected ErrAIGradingDisabled, got %v", err)
	}
}

func TestGradeAttempt_TrackerFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.addQuestion("q1", "Question Alpha", 2)
	f.addResponse("r1", "q1", "an answer")

	provider := &keyedProvider{
		results: map[string]Result{
			"Question Alpha": {Score: 2, Feedback: "correct", Confidence: 0.9},
		},
	}
	tracker := &recordingTracker{err: errors.New("redis down")}
	_, err := newService(f, provider, tracker).GradeAttempt(context.Background(), "attempt-1")
	if err != nil {
		t.Fatalf("progress outage must not fail grading: %v", err)
	}
}

func TestManualOverride_WinsOverAIScore(t *testing.T) {
	f := newFixture()
	f.addQuestion("q1", "Question Alpha", 3)
	f.addResponse("r1", "q1", "an answer")
	aiScore := 1.0
	f.responses["r1"].AIScore = &aiScore
	f.responses["r1"].FinalScore = aiScore
	f.responses["r1"].Status = store.ResponseAIGraded

	svc := newService(f, &keyedProvider{}, &recordingTracker{})
	at, err := svc.ManualOverride(context.Background(), store.ManualOverride{
		ResponseID: "r1",
		Score:      3,
		Feedback:   "actually correct",
		GraderID:   "instructor-1",
		Reason:     "rubric misapplied",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := f.responses["r1"]
	if r.Status != store.ResponseManuallyOverridden || r.FinalScore != 3 {
		t.Fatalf("r1 = %+v", r)
	}
	if at.EarnedPoints != 3 || !at.Passed {
		t.Fatalf("attempt = %+v", at)
	}
}

func TestGradeAttempts_ContinuesPastFailures(t *testing.T) {
	f := newFixture()
	svc := newService(f, &keyedProvider{}, &recordingTracker{})

	err := svc.GradeAttempts(context.Background(), []string{"missing", "attempt-1"})
	if err == nil {
		t.Fatal("expected error for missing attempt")
	}
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound in joined error, got %v", err)
	}
	// attempt-1 exists and has no responses; it should still have been
	// processed despite the earlier failure.
	if f.attempt.Status != store.AttemptGraded {
		t.Fatalf("attempt status = %s", f.attempt.Status)
	}
}
