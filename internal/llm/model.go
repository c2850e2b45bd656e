package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const DefaultMaxTokens = 2048

// ModelGenerator sends each prompt as a single user message to a
// langchaingo chat model.
type ModelGenerator struct {
	Model     llms.Model
	Name      string
	MaxTokens int
	Observer  Observer
}

// Observer receives every prompt/response pair. Used for LLM logging.
type Observer interface {
	LogLLM(chatID, taskID string, prompt any, response string, toolCalls any)
}

func NewModelGenerator(name string, model llms.Model, maxTokens int) *ModelGenerator {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &ModelGenerator{Model: model, Name: name, MaxTokens: maxTokens}
}

// NewOpenAICompatible builds a generator for Together, OpenRouter, OpenAI or
// any other endpoint speaking the chat completions protocol.
func NewOpenAICompatible(name, apiKey, model, baseURL string, maxTokens int) (*ModelGenerator, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init %s model: %w", name, err)
	}
	return NewModelGenerator(name+":"+model, m, maxTokens), nil
}

func (g *ModelGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	resp, err := g.Model.GenerateContent(ctx, messages, llms.WithMaxTokens(g.MaxTokens))
	if err != nil {
		return "", Fail(g.Name, err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", Fail(g.Name, ErrEmptyResponse)
	}

	content := resp.Choices[0].Content
	if g.Observer != nil {
		g.Observer.LogLLM("", g.Name, prompt, content, nil)
	}
	return content, nil
}
