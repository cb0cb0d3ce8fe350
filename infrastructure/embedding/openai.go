// Package embedding provides EmbeddingProvider implementations.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/semaphore"

	"github.com/kodexhq/kodex/domain/embedding"
)

const defaultBatchMax = 96

// OpenAIProvider implements domain/embedding.Provider against the OpenAI
// embeddings API, with retrying and concurrent batching carried over from
// the teacher's generic provider.
type OpenAIProvider struct {
	client           *openai.Client
	apiKeyValue      string
	model            string
	dimensions       int
	maxRetries       int
	initialDelay     time.Duration
	backoffFactor    float64
	batchMax         int
	maxParallelTasks int64
}

// Option is a functional option for OpenAIProvider.
type Option func(*OpenAIProvider)

// WithModel overrides the embedding model.
func WithModel(model string) Option {
	return func(p *OpenAIProvider) { p.model = model }
}

// WithDimensions overrides the expected output dimensionality.
func WithDimensions(n int) Option {
	return func(p *OpenAIProvider) { p.dimensions = n }
}

// WithMaxRetries overrides the retry budget.
func WithMaxRetries(n int) Option {
	return func(p *OpenAIProvider) { p.maxRetries = n }
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(p *OpenAIProvider) {
		cfg := openai.DefaultConfig(p.apiKey())
		cfg.BaseURL = url
		p.client = openai.NewClientWithConfig(cfg)
	}
}

// WithInitialDelay overrides the first retry's backoff delay.
func WithInitialDelay(d time.Duration) Option {
	return func(p *OpenAIProvider) { p.initialDelay = d }
}

// WithBackoffFactor overrides the exponential backoff multiplier applied
// between retries.
func WithBackoffFactor(f float64) Option {
	return func(p *OpenAIProvider) {
		if f > 0 {
			p.backoffFactor = f
		}
	}
}

// WithBatchSize overrides the maximum number of texts sent to the provider
// in a single embeddings request.
func WithBatchSize(n int) Option {
	return func(p *OpenAIProvider) {
		if n > 0 {
			p.batchMax = n
		}
	}
}

// WithMaxParallelTasks bounds how many sub-batch requests EmbedBatch may
// have in flight at once.
func WithMaxParallelTasks(n int) Option {
	return func(p *OpenAIProvider) {
		if n > 0 {
			p.maxParallelTasks = int64(n)
		}
	}
}

func (p *OpenAIProvider) apiKey() string { return p.apiKeyValue }

// NewOpenAIProvider constructs a provider for apiKey, defaulting to
// text-embedding-3-small (1536 dimensions).
func NewOpenAIProvider(apiKey string, opts ...Option) *OpenAIProvider {
	p := &OpenAIProvider{
		client:           openai.NewClient(apiKey),
		model:            "text-embedding-3-small",
		dimensions:       1536,
		maxRetries:       5,
		initialDelay:     2 * time.Second,
		backoffFactor:    2.0,
		batchMax:         defaultBatchMax,
		maxParallelTasks: 1,
		apiKeyValue:      apiKey,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Embed embeds a single text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts, splitting into sub-batches of at most batchMax
// to bound any single request's payload, running at most maxParallelTasks
// sub-batch requests concurrently.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) <= p.batchMax {
		return p.embedBatch(ctx, texts)
	}

	batches := partition(texts, p.batchMax)
	results := make([][][]float32, len(batches))
	errs := make([]error, len(batches))

	sem := semaphore.NewWeighted(p.maxParallelTasks)
	var wg sync.WaitGroup
	for i, batch := range batches {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		go func(idx int, batch []string) {
			defer wg.Done()
			defer sem.Release(1)
			vecs, err := p.embedBatch(ctx, batch)
			results[idx] = vecs
			errs[idx] = err
		}(i, batch)
	}
	wg.Wait()

	out := make([][]float32, 0, len(texts))
	for i, err := range errs {
		if err != nil {
			return nil, err
		}
		out = append(out, results[i]...)
	}
	return out, nil
}

// Dimensions returns the provider's fixed output dimensionality.
func (p *OpenAIProvider) Dimensions() int { return p.dimensions }

func (p *OpenAIProvider) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{Model: openai.EmbeddingModel(p.model), Input: texts}

	var resp openai.EmbeddingResponse
	err := p.withRetry(ctx, func() error {
		var innerErr error
		resp, innerErr = p.client.CreateEmbeddings(ctx, req)
		return innerErr
	})
	if err != nil {
		return nil, p.wrapError(err)
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		if len(d.Embedding) != p.dimensions {
			return nil, embedding.ErrDimensionMismatch
		}
		out[i] = d.Embedding
	}
	return out, nil
}

func partition(texts []string, batchSize int) [][]string {
	var batches [][]string
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, texts[i:end])
	}
	return batches
}

func (p *OpenAIProvider) withRetry(ctx context.Context, fn func() error) error {
	delay := p.initialDelay
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
		if attempt < p.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * p.backoffFactor)
			}
		}
	}
	return fmt.Errorf("embedding: max retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	var reqErr *openai.RequestError
	return errors.As(err, &reqErr)
}

func (p *OpenAIProvider) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding: openai %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	return fmt.Errorf("embedding: %w", err)
}

var _ embedding.Provider = (*OpenAIProvider)(nil)
