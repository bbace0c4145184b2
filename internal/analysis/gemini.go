// Package analysis produces short sales summaries for auto-created leads
// using the Gemini API.
package analysis

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"bricks_crm_backend/platform/config"
)

const summaryPrompt = `You are a sales assistant for a brick manufacturer in Tamil Nadu, India.
Summarize the following call transcription in 2-3 short sentences for a CRM
lead note. Mention what the caller wants, where the site is, and the next
step if one was discussed. The transcription may mix English and Tamil;
write the summary in English. Do not invent details.

Transcription:
%s`

// GeminiClient wraps the Gemini API for lead summaries.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates the summary client.
func NewGeminiClient(ctx context.Context, cfg config.AnalysisConfig) (*GeminiClient, error) {
	if !cfg.IsAnalysisEnabled() {
		return nil, fmt.Errorf("gemini api key not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GetGeminiAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  cfg.GetGeminiModel(),
	}, nil
}

// SummarizeLead implements recordings.Summarizer.
func (c *GeminiClient) SummarizeLead(ctx context.Context, transcription string) (string, error) {
	transcription = strings.TrimSpace(transcription)
	if transcription == "" {
		return "", nil
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		genai.Text(fmt.Sprintf(summaryPrompt, transcription)), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned empty summary")
	}
	return text, nil
}
