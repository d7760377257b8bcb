package gateway

import (
	"context"
	"io"
	"log"
)

// Message is one chat turn sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenStream yields completion text chunks. Recv returns io.EOF when the
// stream is exhausted.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// Provider is one completion backend in the fallback ladder. Stream either
// returns a live token stream or an error; the gateway treats any error as
// "try the next provider".
type Provider interface {
	Name() string
	Stream(ctx context.Context, cfg ModelConfig, messages []Message) (TokenStream, error)
}

// Gateway attempts a prioritized ladder of providers and always produces a
// stream: the caller never sees a provider-side failure.
type Gateway struct {
	providers []Provider
}

// New builds the ladder from the configured API keys, fastest provider
// first. Keys left empty are skipped.
func New(groqKey, openaiKey, anthropicKey string) *Gateway {
	g := &Gateway{}
	if groqKey != "" {
		g.providers = append(g.providers, newGroqProvider(groqKey))
	}
	if openaiKey != "" {
		g.providers = append(g.providers, newOpenAIProvider(openaiKey))
	}
	if anthropicKey != "" {
		g.providers = append(g.providers, newAnthropicProvider(anthropicKey))
	}
	return g
}

// NewWithProviders builds a gateway over an explicit ladder.
func NewWithProviders(providers ...Provider) *Gateway {
	return &Gateway{providers: providers}
}

// Complete produces a streamed completion for the message list. The
// requested model id selects the configuration of the first attempt; the
// ladder order itself is fixed. If every provider fails the returned stream
// is a synthetic placeholder, never an error.
func (g *Gateway) Complete(ctx context.Context, messages []Message, modelID string) TokenStream {
	cfg := GetModelConfig(modelID)

	withSystem := append([]Message{{Role: "system", Content: systemPrompt}}, messages...)

	for _, p := range g.providers {
		truncated := TruncateMessages(withSystem, cfg.MaxTokens)
		stream, err := p.Stream(ctx, cfg, truncated)
		if err != nil {
			log.Printf("provider %s failed, trying next: %v", p.Name(), err)
			continue
		}
		return stream
	}

	return newPlaceholderStream()
}

// ========== Placeholder Stream ==========

var placeholderChunks = []string{
	"I'm here and listening. ",
	"Enable GROQ_API_KEY, OPENAI_API_KEY or ANTHROPIC_API_KEY for real AI streaming. ",
	"UI streaming is functioning correctly.",
}

type placeholderStream struct {
	i int
}

func newPlaceholderStream() *placeholderStream {
	return &placeholderStream{}
}

func (s *placeholderStream) Recv() (string, error) {
	if s.i >= len(placeholderChunks) {
		return "", io.EOF
	}
	chunk := placeholderChunks[s.i]
	s.i++
	return chunk, nil
}

func (s *placeholderStream) Close() error { return nil }

// Collect drains a stream into a single string. Mid-stream errors terminate
// collection; whatever arrived before the error is returned with it.
func Collect(s TokenStream) (string, error) {
	defer s.Close()
	var out string
	for {
		chunk, err := s.Recv()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out += chunk
	}
}
