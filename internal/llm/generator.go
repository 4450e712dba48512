package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// Gemini 2.5 Flash pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.30
	geminiOutputPricePerMillion = 2.50
)

const marketerPrompt = `As a world-class e-commerce marketer for handmade crafts, analyze this artisan's note: "%s"

Your tasks:
1. Write a compelling, evocative product description.
2. Suggest 5 relevant and effective social media hashtags.
3. Recommend a fair market price in USD (e.g., 49.99).

Return a single, valid JSON object with keys: "description", "hashtags", "price".

Respond ONLY with the JSON object, no markdown or other text.`

// Content is the structured output of the content generation stage.
// Price is nil when the model omitted it or returned something non-numeric.
type Content struct {
	Description string
	Hashtags    []string
	Price       *float64
}

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// Generator produces listing content from an artisan's note.
type Generator interface {
	GenerateContent(ctx context.Context, note string) (*Content, error)
}

// GeminiGenerator implements Generator using Google's Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini-backed generator. The API key is
// passed explicitly rather than read from the environment so its lifetime
// is scoped to the generator.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// GenerateContent asks the model for a description, five hashtags and a
// price for the given note. An empty note is passed through as-is; the
// output is then model-dependent, which is acceptable.
func (g *GeminiGenerator) GenerateContent(ctx context.Context, note string) (*Content, error) {
	prompt := fmt.Sprintf(marketerPrompt, note)

	result, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	content, err := parseContent(result.Text())
	if err != nil {
		return nil, err
	}

	if result.UsageMetadata != nil {
		usage := Usage{
			InputTokens:  int64(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int64(result.UsageMetadata.TotalTokenCount),
		}
		usage.CostUSD = calculateGeminiCost(usage.InputTokens, usage.OutputTokens)
		log.Info().
			Str("model", g.model).
			Int64("inputTokens", usage.InputTokens).
			Int64("outputTokens", usage.OutputTokens).
			Float64("costUSD", usage.CostUSD).
			Msg("content generation llm call")
	}

	return content, nil
}

func calculateGeminiCost(inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * geminiInputPricePerMillion
	outputCost := float64(outputTokens) / 1_000_000 * geminiOutputPricePerMillion
	return inputCost + outputCost
}
