package recommend

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"partscout/internal/logging"
	"partscout/internal/types"
)

// maxAlternatives bounds the runner-up list shown next to the best pick.
const maxAlternatives = 5

// LLM is the minimal generative surface the recommender needs: one stateless
// prompt in, one text reply out.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiClient calls the Gemini API through the genai SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a client for the given model.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Generate runs one stateless generation call.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty reply")
	}
	return text, nil
}

// Recommender produces the final answer for a query from its retrieval
// matches.
type Recommender struct {
	llm     LLM
	timeout time.Duration
}

// New creates a Recommender. A non-positive timeout defaults to a minute.
func New(llm LLM, timeout time.Duration) *Recommender {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Recommender{llm: llm, timeout: timeout}
}

// Recommend formats the matches, asks the model for its pick, and parses the
// labeled reply. The alternatives are always retrieval ranks 2 onward,
// independent of which listing the model chose, so the runner-up list stays
// grounded in similarity order even when the model picks eccentrically.
//
// A failed or empty generative call returns the Unavailable sentinel with
// nil error: retrieval succeeded, so callers surface the match list alone.
func (r *Recommender) Recommend(ctx context.Context, query string, matches types.RetrievalResult) (types.Recommendation, error) {
	timer := logging.StartTimer(logging.CategoryRecommend, "Recommend")
	defer timer.Stop()

	if len(matches) == 0 {
		return types.Recommendation{}, fmt.Errorf("no matches to recommend from")
	}

	alternatives := matches.Products()
	if len(alternatives) > 1 {
		alternatives = alternatives[1:]
	} else {
		alternatives = nil
	}
	if len(alternatives) > maxAlternatives {
		alternatives = alternatives[:maxAlternatives]
	}

	prompt := BuildPrompt(query, FormatContext(matches))
	logging.RecommendDebug("Prompt is %d bytes over %d matches", len(prompt), len(matches))

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	reply, err := r.llm.Generate(callCtx, prompt)
	if err != nil {
		logging.Get(logging.CategoryRecommend).Error("Generative call failed: %v", err)
		return types.Recommendation{
			Alternatives: alternatives,
			Unavailable:  true,
		}, nil
	}

	best, reason := ParseReply(reply)
	logging.Recommend("Model picked %q for query %q", best.Name, query)

	return types.Recommendation{
		Best:         best,
		Reason:       reason,
		Alternatives: alternatives,
	}, nil
}
