package gateway

import (
	"context"
	"errors"
	"io"

	"github.com/sashabaranov/go-openai"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// openaiCompatProvider serves any OpenAI-compatible chat completion API.
// Groq exposes the same wire protocol, so both rungs share this code.
type openaiCompatProvider struct {
	name   string
	client *openai.Client
}

func newGroqProvider(apiKey string) *openaiCompatProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = groqBaseURL
	return &openaiCompatProvider{name: "groq", client: openai.NewClientWithConfig(cfg)}
}

func newOpenAIProvider(apiKey string) *openaiCompatProvider {
	return &openaiCompatProvider{name: "openai", client: openai.NewClient(apiKey)}
}

func (p *openaiCompatProvider) Name() string { return p.name }

func (p *openaiCompatProvider) Stream(ctx context.Context, cfg ModelConfig, messages []Message) (TokenStream, error) {
	var msgs []openai.ChatCompletionMessage
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	model := cfg.Model
	if cfg.Provider != p.name {
		// The requested model belongs to another provider; use this rung's
		// default instead of sending a foreign model id.
		model = p.defaultModel()
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: 0.7,
		MaxTokens:   cfg.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return nil, err
	}
	return &openaiTokenStream{stream: stream}, nil
}

func (p *openaiCompatProvider) defaultModel() string {
	if p.name == "groq" {
		return "llama3-8b-8192"
	}
	return openai.GPT3Dot5Turbo
}

type openaiTokenStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openaiTokenStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		return delta, nil
	}
}

func (s *openaiTokenStream) Close() error {
	return s.stream.Close()
}
