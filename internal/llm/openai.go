package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkoukk/tiktoken-go"

	"github.com/atabot/atabot/internal/config"
	"github.com/atabot/atabot/internal/httpx"
	"github.com/atabot/atabot/internal/logger"
)

type openAIProvider struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
	encoder     *tiktoken.Tiktoken
}

func newOpenAIProvider(cfg config.LLMConfig, hc *httpx.Client) (*openAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai llm: api_key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if hc != nil {
		opts = append(opts, option.WithHTTPClient(hc.HTTPClient()))
	}
	p := &openAIProvider{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		// context truncation falls back to a rune cut without the encoder
		logger.Warnf("tiktoken encoding unavailable: %v", err)
	} else {
		p.encoder = enc
	}
	return p, nil
}

func (p *openAIProvider) countTokens(text string) int {
	if p.encoder == nil {
		return 0
	}
	return len(p.encoder.Encode(text, nil, nil))
}

func (p *openAIProvider) Generate(ctx context.Context, query, contextBlock string, maxTokens int) (string, error) {
	prompt := BuildAnswerPrompt(query, contextBlock, p.encoder)
	return p.chat(ctx, systemPersona, prompt, maxTokens)
}

func (p *openAIProvider) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return p.chat(ctx, "", prompt, maxTokens)
}

func (p *openAIProvider) chat(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system != "" {
		msgs = append(msgs, openai.SystemMessage(system))
	}
	msgs = append(msgs, openai.UserMessage(user))

	if in := p.countTokens(user); in > 0 {
		logger.Debugf("llm request: %d input tokens, model %s", in, p.model)
	}
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.model),
		Messages:    msgs,
		Temperature: openai.Float(p.temperature),
		MaxTokens:   openai.Int(int64(maxTokens)),
		TopP:        openai.Float(0.9),
	})
	if err != nil {
		return "", fmt.Errorf("openai completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: empty choices")
	}
	out := resp.Choices[0].Message.Content
	if n := p.countTokens(out); n > 0 {
		logger.Debugf("llm response: %d output tokens", n)
	}
	return out, nil
}
