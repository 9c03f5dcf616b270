package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleQuestions(n int) []*Question {
	qs := make([]*Question, 0, n)
	for i := 0; i < n; i++ {
		qs = append(qs, &Question{
			Text:          "What is the powerhouse of the cell?",
			Type:          "multiple_choice",
			Options:       []string{"Mitochondria", "Nucleus", "Ribosome", "Golgi"},
			CorrectAnswer: "Mitochondria",
			AnswerKey:     json.RawMessage(`{"options": ["Mitochondria", "Nucleus", "Ribosome", "Golgi"], "correct_option": "Mitochondria"}`),
			Points:        2,
		})
	}
	return qs
}

func TestCreateWithQuestions_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Assessments()

	a := &Assessment{
		Title:               "Cell Biology Quiz",
		Type:                AssessmentLesson,
		ScopeID:             "les-1",
		PassingScorePercent: 70,
		AIGradingEnabled:    true,
	}
	if err := repo.CreateWithQuestions(ctx, a, sampleQuestions(3)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == "" {
		t.Fatal("assessment ID not assigned")
	}

	got, err := repo.Questions(ctx, a.ID)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(got))
	}
	for i, q := range got {
		if q.Position != i+1 {
			t.Errorf("question %d position = %d", i, q.Position)
		}
		if len(q.Options) != 4 {
			t.Errorf("question %d options = %v", i, q.Options)
		}
	}

	var key map[string]any
	if err := json.Unmarshal(got[0].AnswerKey, &key); err != nil {
		t.Fatalf("answer key did not survive the round trip: %v", err)
	}
	if key["correct_option"] != "Mitochondria" {
		t.Fatalf("answer key = %v", key)
	}
}

func TestCreateWithQuestions_RollsBackOnInsertFailure(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Assessments()

	first := &Assessment{Title: "First", Type: AssessmentLesson, ScopeID: "les-1"}
	firstQs := sampleQuestions(1)
	firstQs[0].ID = "q-dup"
	if err := repo.CreateWithQuestions(ctx, first, firstQs); err != nil {
		t.Fatalf("seed: %v", err)
	}

	second := &Assessment{Title: "Second", Type: AssessmentLesson, ScopeID: "les-2"}
	dupQs := sampleQuestions(1)
	dupQs[0].ID = "q-dup" // primary key collision
	if err := repo.CreateWithQuestions(ctx, second, dupQs); err == nil {
		t.Fatal("expected insert failure")
	}

	if _, err := repo.Get(ctx, second.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("orphaned assessment survived the rollback: %v", err)
	}
}

func TestCompileExam_CopiesQuestions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Assessments()

	src := &Assessment{Title: "Source", Type: AssessmentLesson, ScopeID: "les-1"}
	if err := repo.CreateWithQuestions(ctx, src, sampleQuestions(3)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	srcQs, _ := repo.Questions(ctx, src.ID)

	exam := &Assessment{Title: "Final Exam", Type: AssessmentCourse, ScopeID: "crs-1", PassingScorePercent: 60}
	if err := repo.CompileExam(ctx, exam, []string{srcQs[0].ID, srcQs[2].ID}); err != nil {
		t.Fatalf("compile: %v", err)
	}

	examQs, err := repo.Questions(ctx, exam.ID)
	if err != nil {
		t.Fatalf("exam questions: %v", err)
	}
	if len(examQs) != 2 {
		t.Fatalf("expected 2 copied questions, got %d", len(examQs))
	}
	for _, q := range examQs {
		if q.ID == srcQs[0].ID || q.ID == srcQs[2].ID {
			t.Fatal("exam must copy questions, not share them")
		}
		if q.AssessmentID != exam.ID {
			t.Fatalf("copied question belongs to %s", q.AssessmentID)
		}
	}

	// Originals stay attached to the source assessment.
	after, _ := repo.Questions(ctx, src.ID)
	if len(after) != 3 {
		t.Fatalf("source assessment lost questions: %d", len(after))
	}
}

func TestCompileExam_MissingQuestionFails(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	exam := &Assessment{Title: "Exam", Type: AssessmentCourse, ScopeID: "crs-1"}
	err := s.Assessments().CompileExam(ctx, exam, []string{"nope"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func seedAttempt(t *testing.T, s *Store) (*Attempt, []*StudentResponse) {
	t.Helper()
	ctx := context.Background()

	a := &Assessment{Title: "Quiz", Type: AssessmentLesson, ScopeID: "les-1", PassingScorePercent: 70, AIGradingEnabled: true}
	qs := sampleQuestions(2)
	qs[1].Points = 3
	if err := s.Assessments().CreateWithQuestions(ctx, a, qs); err != nil {
		t.Fatalf("seed assessment: %v", err)
	}

	at := &Attempt{AssessmentID: a.ID, UserID: "user-1", Status: AttemptSubmitted}
	if err := s.Attempts().Create(ctx, at); err != nil {
		t.Fatalf("seed attempt: %v", err)
	}

	responses := []*StudentResponse{
		{AttemptID: at.ID, QuestionID: qs[0].ID, Answer: "Mitochondria"},
		{AttemptID: at.ID, QuestionID: qs[1].ID, Answer: "Nucleus"},
	}
	for _, resp := range responses {
		if err := s.Responses().Insert(ctx, resp); err != nil {
			t.Fatalf("seed response: %v", err)
		}
	}
	return at, responses
}

func TestReadUngraded_Filtering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	at, responses := seedAttempt(t, s)

	if err := s.Responses().SaveGradingResult(ctx, responses[0].ID, GradingOutcome{Score: 2, Feedback: "good", Confidence: 0.9}); err != nil {
		t.Fatalf("grade: %v", err)
	}

	ungraded, err := s.Responses().ReadUngraded(ctx, at.ID)
	if err != nil {
		t.Fatalf("read ungraded: %v", err)
	}
	if len(ungraded) != 1 || ungraded[0].ID != responses[1].ID {
		t.Fatalf("ungraded = %+v", ungraded)
	}

	// A grading error keeps the response eligible for a later retry.
	if err := s.Responses().SaveGradingError(ctx, responses[1].ID, "pending review"); err != nil {
		t.Fatalf("error: %v", err)
	}
	ungraded, _ = s.Responses().ReadUngraded(ctx, at.ID)
	if len(ungraded) != 1 {
		t.Fatalf("grading_error response must stay eligible, got %d", len(ungraded))
	}
}

func TestRecomputeTotals_AndOverridePrecedence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	at, responses := seedAttempt(t, s)

	if err := s.Responses().SaveGradingResult(ctx, responses[0].ID, GradingOutcome{Score: 2, Feedback: "correct", Confidence: 0.9}); err != nil {
		t.Fatal(err)
	}
	if err := s.Responses().SaveGradingResult(ctx, responses[1].ID, GradingOutcome{Score: 1, Feedback: "partial", Confidence: 0.6}); err != nil {
		t.Fatal(err)
	}

	updated, err := s.Attempts().RecomputeTotals(ctx, at.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if updated.TotalPoints != 5 || updated.EarnedPoints != 3 {
		t.Fatalf("totals = %v/%v", updated.EarnedPoints, updated.TotalPoints)
	}
	if updated.PercentageScore != 60 || updated.Passed {
		t.Fatalf("percentage = %v passed = %v", updated.PercentageScore, updated.Passed)
	}

	// Override raises the second response; totals must follow.
	if err := s.Responses().ApplyManualOverride(ctx, ManualOverride{
		ResponseID: responses[1].ID,
		Score:      3,
		GraderID:   "instructor-1",
		Reason:     "acceptable synonym",
	}); err != nil {
		t.Fatal(err)
	}
	updated, err = s.Attempts().RecomputeTotals(ctx, at.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.EarnedPoints != 5 || !updated.Passed {
		t.Fatalf("after override: %+v", updated)
	}

	// A later AI grade must not displace the manual score.
	resp, _ := s.Responses().Get(ctx, responses[1].ID)
	if resp.FinalScore != 3 || resp.Status != ResponseManuallyOverridden {
		t.Fatalf("response = %+v", resp)
	}
}

func TestSaveGradingResult_KeepsManualPrecedence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, responses := seedAttempt(t, s)

	if err := s.Responses().ApplyManualOverride(ctx, ManualOverride{
		ResponseID: responses[0].ID,
		Score:      2,
		GraderID:   "instructor-1",
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.Responses().SaveGradingResult(ctx, responses[0].ID, GradingOutcome{Score: 0.5, Feedback: "late AI grade", Confidence: 0.4}); err != nil {
		t.Fatal(err)
	}

	resp, _ := s.Responses().Get(ctx, responses[0].ID)
	if resp.FinalScore != 2 {
		t.Fatalf("final score = %v, manual must win", resp.FinalScore)
	}
	if resp.Status != ResponseManuallyOverridden {
		t.Fatalf("status = %s, override is terminal", resp.Status)
	}
}

func TestRecentLLMRequests_Ordering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Events()

	for _, purpose := range []string{"question-gen", "grading", "grading"} {
		if err := repo.AppendLLMRequest(ctx, LLMRequestEventData{
			Provider: "mock",
			Model:    "mock",
			Purpose:  purpose,
			Success:  true,
		}); err != nil {
			t.Fatal(err)
		}
	}

	events, err := repo.RecentLLMRequests(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ID < events[1].ID {
		t.Fatal("events must be newest first")
	}
}
