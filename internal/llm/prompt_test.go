package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestBuildFeedbackPromptIncludesResumeAndScoreInstruction(t *testing.T) {
	prompt, err := BuildFeedbackPrompt(FeedbackInput{ResumeText: "  Jane Doe, Go engineer  "})
	if err != nil {
		t.Fatalf("BuildFeedbackPrompt: %v", err)
	}
	if !strings.Contains(prompt, "Resume:\nJane Doe, Go engineer\n") {
		t.Fatalf("expected trimmed resume text in prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "score out of 100") {
		t.Fatalf("expected score instruction in prompt")
	}
	if strings.Contains(prompt, "Target role:") || strings.Contains(prompt, "Job description:") {
		t.Fatalf("expected no job context sections without job context")
	}
}

func TestBuildFeedbackPromptIncludesJobContext(t *testing.T) {
	prompt, err := BuildFeedbackPrompt(FeedbackInput{
		ResumeText:     "resume",
		JobRole:        "Platform Engineer",
		JobDescription: "Kubernetes, Go, Terraform",
	})
	if err != nil {
		t.Fatalf("BuildFeedbackPrompt: %v", err)
	}
	if !strings.Contains(prompt, "Target role: Platform Engineer") {
		t.Fatalf("missing target role:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Job description:\nKubernetes, Go, Terraform") {
		t.Fatalf("missing job description:\n%s", prompt)
	}
}

func TestSystemPrompt(t *testing.T) {
	if !strings.HasPrefix(SystemPrompt(), "You are an expert resume reviewer") {
		t.Fatalf("unexpected system prompt %q", SystemPrompt())
	}
}

func TestPlaceholderGenerator(t *testing.T) {
	_, err := PlaceholderGenerator{}.GenerateFeedback(context.Background(), FeedbackInput{})
	if !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
}
