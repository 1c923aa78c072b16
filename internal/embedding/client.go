// Package embedding wraps the external embedding endpoint with caching,
// rate limiting and bounded retry.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"ragbot/internal/config"
	"ragbot/internal/retry"
)

// ErrEmbedding reports retry exhaustion against the embedding upstream.
var ErrEmbedding = errors.New("embedding failed")

// errInvalidResponse marks a well-formed call that returned no usable
// vector. Treated like a transient failure and retried.
var errInvalidResponse = errors.New("embedding response missing vector")

// Embedder is the upstream capability: text in, fixed-dimension vector out.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Client memoizes lookups through the cache and retries transient upstream
// failures with backoff. A nonzero dims pins the expected vector size.
type Client struct {
	upstream Embedder
	cache    *Cache
	limiter  *rate.Limiter
	timeout  time.Duration
	retry    retry.Config
	dims     int
}

// New builds a Client over an OpenAI-compatible embedding endpoint.
func New(cfg config.EmbeddingConfig, rcfg retry.Config, cache *Cache) (*Client, error) {
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.APIKey, "Bearer ")),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing embedding LLM: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return NewClient(embedder, cache, rcfg, cfg.Timeout(), cfg.RatePerSec, cfg.Dimensions), nil
}

// NewClient wires a Client over any Embedder. Tests inject fakes here.
func NewClient(upstream Embedder, cache *Cache, rcfg retry.Config, timeout time.Duration, ratePerSec float64, dims int) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), int(ratePerSec)+1)
	}
	return &Client{
		upstream: upstream,
		cache:    cache,
		limiter:  limiter,
		timeout:  timeout,
		retry:    rcfg,
		dims:     dims,
	}
}

// Dimensions returns the configured vector size, zero if unpinned.
func (c *Client) Dimensions() int { return c.dims }

// Embed returns the vector for text, serving from cache when possible.
// On miss it calls the upstream with a bounded timeout, retrying transient
// and malformed responses, and stores the result before returning.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.cache != nil {
		if v, ok := c.cache.Get(text); ok {
			return v, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var vector []float32
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		v, err := c.upstream.EmbedQuery(callCtx, text)
		if err != nil {
			return err
		}
		if len(v) == 0 {
			return errInvalidResponse
		}
		if c.dims > 0 && len(v) != c.dims {
			return fmt.Errorf("%w: got %d dimensions, want %d", errInvalidResponse, len(v), c.dims)
		}
		vector = v
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Int("text_len", len(text)).Msg("embedding call exhausted retries")
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	if c.cache != nil {
		c.cache.Put(text, vector)
	}
	return vector, nil
}
