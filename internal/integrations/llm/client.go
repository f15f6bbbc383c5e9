// Package llm calls an OpenAI-compatible chat completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrEmptyCompletion is returned when the model answers with no text
var ErrEmptyCompletion = errors.New("llm returned no content")

type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// DefaultMaxTokens keeps replies to summary length
const DefaultMaxTokens = 120

type Client struct {
	doer      Doer
	url       string
	apiKey    string
	model     string
	maxTokens int
}

func NewClient(doer Doer, url, apiKey, model string) *Client {
	return &Client{doer: doer, url: url, apiKey: apiKey, model: model, maxTokens: DefaultMaxTokens}
}

// WithMaxTokens returns a copy of the client that allows longer replies
func (c *Client) WithMaxTokens(n int) *Client {
	clone := *c
	clone.maxTokens = n
	return &clone
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Complete sends one system and one user message and returns the reply text
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	payload, err := json.Marshal(completionRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", fmt.Errorf("llm request: status %d", resp.StatusCode)
	}

	var body completionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(body.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := strings.TrimSpace(body.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
