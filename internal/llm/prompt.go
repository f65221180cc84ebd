package llm

import (
	_ "embed"
	"strings"
	"text/template"
)

// Generation settings shared by every provider.
const (
	Temperature     = 0.7
	MaxOutputTokens = 1500
)

var (
	//go:embed prompts/system.txt
	systemPrompt string
	//go:embed prompts/feedback.txt
	feedbackPromptText string

	feedbackPrompt = template.Must(template.New("feedback").Parse(feedbackPromptText))
)

// SystemPrompt returns the reviewer persona.
func SystemPrompt() string {
	return strings.TrimSpace(systemPrompt)
}

// BuildFeedbackPrompt renders the user prompt. Job context sections are
// included only when present.
func BuildFeedbackPrompt(input FeedbackInput) (string, error) {
	data := FeedbackInput{
		ResumeText:     strings.TrimSpace(input.ResumeText),
		JobRole:        strings.TrimSpace(input.JobRole),
		JobDescription: strings.TrimSpace(input.JobDescription),
	}
	var b strings.Builder
	if err := feedbackPrompt.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
