package quizgen

import (
	"strings"
	"testing"

	"github.com/skanda/assessly/internal/content"
)

func TestPreprocessContent_StripsMarkdown(t *testing.T) {
	in := "# Cells\n\nSee ![diagram](http://x/img.png) and [the reference](http://x/ref).\n\n**Bold** and `code`."
	out := preprocessContent(in)

	if strings.Contains(out, "http://x/img.png") {
		t.Error("image not stripped")
	}
	if strings.Contains(out, "http://x/ref") || !strings.Contains(out, "the reference") {
		t.Error("link should keep its text and drop the URL")
	}
	for _, ch := range []string{"#", "*", "`", "!["} {
		if strings.Contains(out, ch) {
			t.Errorf("formatting %q not stripped from %q", ch, out)
		}
	}
}

func TestPreprocessContent_TruncatesAtBudget(t *testing.T) {
	in := strings.Repeat("word ", 20000) // well past the budget
	out := preprocessContent(in)

	if estimateTokens(out) > maxContentTokens {
		t.Fatalf("output estimates %d tokens, budget is %d", estimateTokens(out), maxContentTokens)
	}
	if strings.HasSuffix(out, "wor") {
		t.Fatal("truncation cut mid-word")
	}
}

func TestBuildGenerationPrompt(t *testing.T) {
	req := GenerationRequest{
		Scope:         content.Scope{Kind: content.ScopeLesson, ID: "l1"},
		QuestionCount: 7,
		Types:         []QuestionType{TypeEssay, TypeMatching},
		Difficulty:    DifficultyHard,
	}
	prompt := buildGenerationPrompt("the lesson text", req)

	for _, want := range []string{"exactly 7 questions", "hard difficulty", "essay, matching", "the lesson text"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
