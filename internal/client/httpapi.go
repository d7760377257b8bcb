package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"chatforge/internal/store"
)

// HTTPAPI talks to the chatforge server's REST surface.
type HTTPAPI struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPAPI(baseURL, token string) *HTTPAPI {
	return &HTTPAPI{baseURL: baseURL, token: token, client: http.DefaultClient}
}

type conversationPayload struct {
	Success       bool                 `json:"success"`
	Error         string               `json:"error"`
	Conversation  *store.Conversation  `json:"conversation"`
	Conversations []store.Conversation `json:"conversations"`
}

func (a *HTTPAPI) List(ctx context.Context) ([]store.Conversation, error) {
	var out conversationPayload
	if err := a.do(ctx, http.MethodGet, "/api/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

func (a *HTTPAPI) Create(ctx context.Context, title, model string) (*store.Conversation, error) {
	body := map[string]string{"title": title, "model": model}
	var out conversationPayload
	if err := a.do(ctx, http.MethodPost, "/api/conversations", body, &out); err != nil {
		return nil, err
	}
	return out.Conversation, nil
}

func (a *HTTPAPI) AppendMessage(ctx context.Context, convID string, msg store.Message) (*store.Conversation, error) {
	body := map[string]interface{}{
		"content":     msg.Content,
		"role":        msg.Role,
		"attachments": msg.Attachments,
	}
	var out conversationPayload
	if err := a.do(ctx, http.MethodPost, "/api/conversations/"+convID+"/messages", body, &out); err != nil {
		return nil, err
	}
	return out.Conversation, nil
}

func (a *HTTPAPI) EditMessage(ctx context.Context, convID, messageID, newContent string) (*store.Conversation, error) {
	body := map[string]string{"messageId": messageID, "newContent": newContent}
	var out conversationPayload
	if err := a.do(ctx, http.MethodPut, "/api/conversations/"+convID+"/messages", body, &out); err != nil {
		return nil, err
	}
	return out.Conversation, nil
}

func (a *HTTPAPI) Delete(ctx context.Context, convID string) error {
	return a.do(ctx, http.MethodDelete, "/api/conversations/"+convID, nil, &conversationPayload{})
}

func (a *HTTPAPI) Rename(ctx context.Context, convID, title string) (*store.Conversation, error) {
	body := map[string]string{"title": title}
	var out conversationPayload
	if err := a.do(ctx, http.MethodPut, "/api/conversations/"+convID, body, &out); err != nil {
		return nil, err
	}
	return out.Conversation, nil
}

func (a *HTTPAPI) do(ctx context.Context, method, path string, body interface{}, out *conversationPayload) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 400 {
		if out.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, out.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	return nil
}
