package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient adapts the Gemini SDK to the Completer interface.
type GeminiClient struct {
	client       *genai.Client
	defaultModel string
}

var _ Completer = (*GeminiClient)(nil)

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client, defaultModel: model}, nil
}

func (c *GeminiClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func (c *GeminiClient) Provider() string { return "gemini" }

func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	name := req.Model
	if name == "" {
		name = c.defaultModel
	}
	model := c.client.GenerativeModel(name)

	if req.Temperature > 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	// Gemini takes a single prompt; fold the message list into one,
	// keeping system instructions first.
	var b strings.Builder
	for _, m := range req.Messages {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.Content)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(b.String()))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}

	return strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])), nil
}
