package llm

import (
	"context"
	"fmt"
)

// Provider describes one configured text generation backend.
type Provider struct {
	Name      string
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

// New builds the generator for p.
func New(ctx context.Context, p Provider, obs Observer) (Generator, error) {
	switch p.Name {
	case "together", "openai", "openrouter":
		g, err := NewOpenAICompatible(p.Name, p.APIKey, p.Model, p.BaseURL, p.MaxTokens)
		if err != nil {
			return nil, err
		}
		g.Observer = obs
		return g, nil
	case "gemini":
		g, err := NewGeminiGenerator(ctx, p.APIKey, p.Model)
		if err != nil {
			return nil, fmt.Errorf("init gemini model: %w", err)
		}
		g.Observer = obs
		return g, nil
	default:
		return nil, fmt.Errorf("provider %s not supported", p.Name)
	}
}
