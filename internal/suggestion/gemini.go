package suggestion

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"kasirpos/internal/domain"
)

const defaultModel = "gemini-2.0-flash-001"

type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, apiKey string, model string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	if model == "" {
		model = defaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func (p *GeminiProvider) Suggest(ctx context.Context, lines []domain.CartLine) (string, error) {
	model := p.client.GenerativeModel(p.model)
	model.SetTemperature(0.7)
	model.SetMaxOutputTokens(120)

	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(lines)))
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrNoSuggestion
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrNoSuggestion
	}
	return b.String(), nil
}

func buildPrompt(lines []domain.CartLine) string {
	names := make([]string, 0, len(lines))
	for _, line := range lines {
		names = append(names, fmt.Sprintf("%s (x%d)", line.Name, line.Quantity))
	}
	return fmt.Sprintf(`You are a helpful cashier assistant in a small grocery store.
The customer's cart contains: %s.
Suggest ONE complementary product the customer might have forgotten, in a single short friendly sentence.
Do not repeat items already in the cart.`, strings.Join(names, ", "))
}
