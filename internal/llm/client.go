// Package llm wraps the chat completion upstream with bounded timeout and
// retry. It is the only caller of the completion capability.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"ragbot/internal/config"
	"ragbot/internal/retry"
)

// ErrCompletion reports retry exhaustion against the completion upstream.
var ErrCompletion = errors.New("completion failed")

// Model is the upstream capability, satisfied by langchaingo models and by
// test fakes.
type Model interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

type Client struct {
	model       Model
	temperature float64
	timeout     time.Duration
	retry       retry.Config
}

// New builds a Client over an OpenAI-compatible completion endpoint.
func New(cfg config.ChatConfig, rcfg retry.Config) (*Client, error) {
	model, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.APIKey, "Bearer ")),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing completion LLM: %w", err)
	}
	return NewClient(model, cfg.Temperature, cfg.Timeout(), rcfg), nil
}

func NewClient(model Model, temperature float64, timeout time.Duration, rcfg retry.Config) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{model: model, temperature: temperature, timeout: timeout, retry: rcfg}
}

// Complete generates a reply for the ordered message list. An
// empty-but-well-formed response yields an empty string, not an error;
// transient failures are retried and exhaustion surfaces as ErrCompletion.
func (c *Client) Complete(ctx context.Context, messages []llms.MessageContent) (string, error) {
	var reply string
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.model.GenerateContent(callCtx, messages, llms.WithTemperature(c.temperature))
		if err != nil {
			return err
		}
		if resp == nil || len(resp.Choices) == 0 {
			reply = ""
			return nil
		}
		reply = resp.Choices[0].Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletion, err)
	}
	return reply, nil
}
