package vertex

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"resume-roast/internal/llm"
)

// DefaultModel is used when LLM_MODEL is unset.
const DefaultModel = "gemini-1.5-flash"

// Client implements llm.FeedbackGenerator on Vertex AI Gemini.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewClient creates a Vertex AI client for project and location.
func NewClient(ctx context.Context, projectID, location, model string) (*Client, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for vertex")
	}
	if strings.TrimSpace(location) == "" {
		location = "us-central1"
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("create vertex client: %w", err)
	}

	gm := client.GenerativeModel(model)
	gm.SetTemperature(llm.Temperature)
	gm.SetMaxOutputTokens(llm.MaxOutputTokens)
	gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(llm.SystemPrompt())}}

	return &Client{client: client, model: gm}, nil
}

// GenerateFeedback sends the reviewer prompt and joins the text parts of
// the first candidate.
func (c *Client) GenerateFeedback(ctx context.Context, input llm.FeedbackInput) (string, error) {
	prompt, err := llm.BuildFeedbackPrompt(input)
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("vertex generate content: %w", err)
	}
	text := joinText(resp)
	if text == "" {
		return "", llm.ErrEmptyFeedback
	}
	return text, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

func joinText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}

var _ llm.FeedbackGenerator = (*Client)(nil)
