package generator

import (
	"context"
	"fmt"

	"github.com/cognitron/cognitron/cerr"
	"github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
)

// Provider is the generator contract: a formatted prompt plus bounds in,
// text or a typed upstream error out. The wire format to the concrete
// model is provider-specific and deliberately hidden behind this
// interface.
type Provider interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// Adapter ties a Provider to a Config and exposes the bounded prompt
// contract described in the component design: callers supply the already
// rendered prompt (see BuildPrompt) and the adapter enforces max_tokens
// and temperature from config on every call.
type Adapter struct {
	Provider Provider
	Config   Config
}

// New builds an Adapter over a concrete Provider.
func New(provider Provider, cfg Config) *Adapter {
	return &Adapter{Provider: provider, Config: cfg}
}

// Generate invokes the underlying provider with the configured bounds. A
// non-2xx response or parse failure from the provider surfaces here as a
// cerr.Upstream error; callers never see the provider's own error type.
func (a *Adapter) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := a.Provider.Generate(ctx, prompt, a.Config.MaxTokens, a.Config.Temperature)
	if err != nil {
		return "", cerr.Wrap("generator", cerr.Upstream, "generation failed", err)
	}
	return text, nil
}

// LangchainProvider adapts a langchaingo llms.Model to Provider. This is
// the default path: it lets callers point at any backend langchaingo
// supports without the rest of the system depending on a specific wire
// format.
type LangchainProvider struct {
	Model llms.Model
}

// NewLangchainProvider wraps an existing langchaingo model.
func NewLangchainProvider(model llms.Model) *LangchainProvider {
	return &LangchainProvider{Model: model}
}

func (lp *LangchainProvider) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if lp.Model == nil {
		return "", fmt.Errorf("langchain provider has no model configured")
	}
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	resp, err := lp.Model.GenerateContent(ctx, messages,
		llms.WithMaxTokens(maxTokens),
		llms.WithTemperature(temperature),
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("provider returned no choices")
	}
	return resp.Choices[0].Content, nil
}

// OpenAIProvider talks to the OpenAI chat completions API directly,
// bypassing the langchaingo abstraction, for callers who want a
// lower-level client or a model langchaingo doesn't wrap yet.
type OpenAIProvider struct {
	Client *openai.Client
	Model  string
}

// NewOpenAIProvider builds a provider from an API key and model name.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{Client: openai.NewClient(apiKey), Model: model}
}

func (op *OpenAIProvider) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	resp, err := op.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       op.Model,
		MaxTokens:   maxTokens,
		Temperature: float32(temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices, finish_reason snippet unavailable")
	}
	return resp.Choices[0].Message.Content, nil
}
