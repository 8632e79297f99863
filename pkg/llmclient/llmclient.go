// Package llmclient is a thin HTTP client for OpenAI-compatible
// chat-completions endpoints with json_schema structured output.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	_defaultBaseURL = "https://api.openai.com/v1"
	_defaultTimeout = 60 * time.Second
)

type Client struct {
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration

	HTTP *http.Client
}

func New(apiKey, model string, opts ...Option) *Client {
	c := &Client{
		baseURL: _defaultBaseURL,
		apiKey:  apiKey,
		model:   model,
		timeout: _defaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.HTTP = &http.Client{Timeout: c.timeout}

	return c
}

// Message is a chat message; Content is either a plain string or a slice
// of ContentPart for multimodal requests.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// ResponseFormat asks the endpoint for strict json_schema output.
type ResponseFormat struct {
	Type       string     `json:"type"`
	JSONSchema JSONSchema `json:"json_schema"`
}

type JSONSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict"`
}

type request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Complete sends messages and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, messages []Message, format *ResponseFormat) (string, error) {
	body, err := json.Marshal(request{
		Model:          c.model,
		Messages:       messages,
		ResponseFormat: format,
	})
	if err != nil {
		return "", fmt.Errorf("Client - Complete - json.Marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("Client - Complete - http.NewRequestWithContext: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("Client - Complete - c.HTTP.Do: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("Client - Complete - io.ReadAll: %w", err)
	}

	var parsed response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("Client - Complete - json.Unmarshal: status %d: %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("Client - Complete - api error %q: %s", parsed.Error.Type, parsed.Error.Message)
		}
		return "", fmt.Errorf("Client - Complete - unexpected status %d", resp.StatusCode)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("Client - Complete - empty choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
