package llm

import (
	"context"
	"errors"
)

// FeedbackGenerator produces free-text resume feedback.
type FeedbackGenerator interface {
	GenerateFeedback(ctx context.Context, input FeedbackInput) (string, error)
}

// FeedbackInput captures the inputs needed for resume feedback.
type FeedbackInput struct {
	ResumeText     string
	JobRole        string
	JobDescription string
}

// ErrNotImplemented is returned by the placeholder generator.
var ErrNotImplemented = errors.New("LLM not implemented")

// ErrEmptyFeedback is returned when a provider answers with no text.
var ErrEmptyFeedback = errors.New("empty feedback from model")

// PlaceholderGenerator is used when no provider is configured.
type PlaceholderGenerator struct{}

// GenerateFeedback returns ErrNotImplemented.
func (PlaceholderGenerator) GenerateFeedback(ctx context.Context, input FeedbackInput) (string, error) {
	return "", ErrNotImplemented
}
