package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const anthropicURL = "https://api.anthropic.com/v1/messages"

// anthropicProvider talks to the Anthropic messages API directly. The system
// prompt travels in a dedicated field rather than the message list.
type anthropicProvider struct {
	apiKey string
	client *http.Client
}

func newAnthropicProvider(apiKey string) *anthropicProvider {
	return &anthropicProvider{apiKey: apiKey, client: &http.Client{}}
}

func (p *anthropicProvider) Name() string { return "anthropic" }

func (p *anthropicProvider) Stream(ctx context.Context, cfg ModelConfig, messages []Message) (TokenStream, error) {
	var system string
	var msgs []map[string]string
	for _, m := range messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		msgs = append(msgs, map[string]string{"role": m.Role, "content": m.Content})
	}

	model := cfg.Model
	if cfg.Provider != "anthropic" {
		model = "claude-3-haiku-20240307"
	}

	reqBody, _ := json.Marshal(map[string]interface{}{
		"model":       model,
		"max_tokens":  cfg.MaxTokens,
		"temperature": 0.7,
		"system":      system,
		"messages":    msgs,
		"stream":      true,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", anthropicURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("content-type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic req error: %w", err)
	}
	if resp.StatusCode != 200 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("anthropic api error: %d - %s", resp.StatusCode, string(bodyBytes))
	}

	return &anthropicTokenStream{body: resp.Body, scanner: bufio.NewScanner(resp.Body)}, nil
}

// anthropicTokenStream reads the SSE event stream, yielding the text of
// content_block_delta events.
type anthropicTokenStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func (s *anthropicTokenStream) Recv() (string, error) {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event struct {
			Type  string `json:"type"`
			Delta struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"delta"`
		}
		if err := json.Unmarshal([]byte(line[6:]), &event); err != nil {
			continue
		}

		switch event.Type {
		case "content_block_delta":
			if event.Delta.Text != "" {
				return event.Delta.Text, nil
			}
		case "message_stop":
			return "", io.EOF
		}
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *anthropicTokenStream) Close() error {
	return s.body.Close()
}
