// Package llm wraps the outbound chat-completion provider behind a minimal
// client. Agents treat it as an opaque collaborator.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/gtmhq/gtm-advisor/internal/config"
)

// Completer is the surface agents depend on; tests substitute a stub.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client calls an OpenAI-compatible chat-completion endpoint.
type Client struct {
	http  *resty.Client
	model string
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient builds the provider client with a bounded timeout and a single
// retry on server errors.
func NewClient(cfg config.LLMConfig) *Client {
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout()).
		SetAuthToken(cfg.APIKey).
		SetRetryCount(1).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r.StatusCode() >= 500
		})
	return &Client{http: http, model: cfg.Model}
}

// Complete sends a single-user-message completion request.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	var result chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model:    c.model,
			Messages: []chatMessage{{Role: "user", Content: prompt}},
		}).
		SetResult(&result).
		SetError(&result).
		Post("/chat/completions")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		if result.Error != nil {
			return "", fmt.Errorf("llm provider: %s", result.Error.Message)
		}
		return "", fmt.Errorf("llm provider: status %d", resp.StatusCode())
	}
	if len(result.Choices) == 0 {
		return "", errors.New("llm provider: empty response")
	}
	return result.Choices[0].Message.Content, nil
}
