package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// GeminiPlanner drives the agentic workflow's dispatch loop. Each call
// submits the accumulated stage transcript and returns the model's raw text
// for the loop to parse into an action.
type GeminiPlanner struct {
	client *genai.Client
	model  string
}

// NewGeminiPlanner creates a planner with an explicitly scoped API key.
func NewGeminiPlanner(ctx context.Context, apiKey, model string) (*GeminiPlanner, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiPlanner{client: client, model: model}, nil
}

// NextAction returns the model's next response given the transcript so far.
func (p *GeminiPlanner) NextAction(ctx context.Context, transcript string) (string, error) {
	result, err := p.client.Models.GenerateContent(ctx, p.model, []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(transcript)}, genai.RoleUser),
	}, nil)
	if err != nil {
		return "", fmt.Errorf("planner call failed: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from planner")
	}

	if result.UsageMetadata != nil {
		cost := calculateGeminiCost(
			int64(result.UsageMetadata.PromptTokenCount),
			int64(result.UsageMetadata.CandidatesTokenCount),
		)
		log.Info().
			Str("model", p.model).
			Int("inputTokens", int(result.UsageMetadata.PromptTokenCount)).
			Int("outputTokens", int(result.UsageMetadata.CandidatesTokenCount)).
			Float64("costUSD", cost).
			Msg("planner llm call")
	}

	return result.Text(), nil
}
