package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/giantswarm/persona-gepa/internal/telemetry"
)

var tracer = otel.GetTracerProvider().Tracer("persona-gepa/llm")

// Client abstracts an OpenAI-compatible LLM API.
type Client interface {
	// ChatCompletion sends a chat completion request and returns the response.
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// ChatCompletionStream sends a streaming chat completion request.
	ChatCompletionStream(ctx context.Context, req ChatRequest) (*StreamReader, error)
}

// ChatRequest is a simplified chat request.
type ChatRequest struct {
	Model         string   `msgpack:"model"`
	SystemMessage string   `msgpack:"system"`
	UserMessage   string   `msgpack:"user"`
	Temperature   *float64 `msgpack:"temperature"`
	MaxTokens     int      `msgpack:"max_tokens"`
}

// ChatResponse holds the result of a chat completion.
type ChatResponse struct {
	Content string
}

// StreamReader wraps a streaming response.
type StreamReader struct {
	stream *openai.ChatCompletionStream
}

// Recv reads the next chunk from the stream.
func (s *StreamReader) Recv() (string, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		return "", err
	}
	if len(resp.Choices) > 0 {
		return resp.Choices[0].Delta.Content, nil
	}
	return "", nil
}

// Close closes the stream.
func (s *StreamReader) Close() {
	s.stream.Close()
}

// OpenAIClient implements Client using the OpenAI-compatible API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature *float64
	maxTokens   int
	limiter     *rate.Limiter
	maxRetries  uint
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(opts ...Option) *OpenAIClient {
	cfg := &clientConfig{
		baseURL:    DefaultBaseURL,
		apiKey:     "not-needed",
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	config := openai.DefaultConfig(cfg.apiKey)
	config.BaseURL = strings.TrimSuffix(cfg.baseURL, "/")

	c := &OpenAIClient{
		client:      openai.NewClientWithConfig(config),
		model:       cfg.model,
		temperature: cfg.temperature,
		maxTokens:   cfg.maxTokens,
		maxRetries:  cfg.maxRetries,
	}
	if cfg.requestsPerSecond > 0 {
		burst := cfg.burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.requestsPerSecond), burst)
	}
	return c
}

// ChatCompletion sends a non-streaming chat completion request.
// Transient failures are retried with exponential backoff.
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	req = c.applyDefaults(req)

	ctx, span := tracer.Start(ctx, "llm.chat", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.request.max_tokens", req.MaxTokens),
	)

	start := time.Now()
	resp, err := backoff.Retry(ctx, func() (openai.ChatCompletionResponse, error) {
		if err := c.wait(ctx); err != nil {
			return openai.ChatCompletionResponse{}, backoff.Permanent(err)
		}
		resp, err := c.client.CreateChatCompletion(ctx, c.openAIRequest(req))
		if err != nil && !isRetryable(err) {
			return resp, backoff.Permanent(err)
		}
		return resp, err
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(c.maxRetries+1))
	telemetry.LLMRequestDuration.WithLabelValues(req.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.LLMRequestsTotal.WithLabelValues(req.Model, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		telemetry.LLMRequestsTotal.WithLabelValues(req.Model, "empty").Inc()
		return nil, fmt.Errorf("no choices returned")
	}
	telemetry.LLMRequestsTotal.WithLabelValues(req.Model, "ok").Inc()

	span.SetAttributes(
		attribute.Int("llm.usage.input_tokens", resp.Usage.PromptTokens),
		attribute.Int("llm.usage.output_tokens", resp.Usage.CompletionTokens),
		attribute.String("llm.response.finish_reason", string(resp.Choices[0].FinishReason)),
	)

	return &ChatResponse{
		Content: resp.Choices[0].Message.Content,
	}, nil
}

// ChatCompletionStream sends a streaming chat completion request.
func (c *OpenAIClient) ChatCompletionStream(ctx context.Context, req ChatRequest) (*StreamReader, error) {
	req = c.applyDefaults(req)

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, c.openAIRequest(req))
	if err != nil {
		telemetry.LLMRequestsTotal.WithLabelValues(req.Model, "error").Inc()
		return nil, fmt.Errorf("chat completion stream failed: %w", err)
	}
	telemetry.LLMRequestsTotal.WithLabelValues(req.Model, "stream").Inc()

	return &StreamReader{stream: stream}, nil
}

func (c *OpenAIClient) openAIRequest(req ChatRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemMessage != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemMessage})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.UserMessage})

	out := openai.ChatCompletionRequest{
		Model:     ModelName(req.Model),
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		out.Temperature = float32(*req.Temperature)
	}
	return out
}

func (c *OpenAIClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// applyDefaults applies client-level defaults to a request where
// the request does not specify its own values.
func (c *OpenAIClient) applyDefaults(req ChatRequest) ChatRequest {
	if req.Model == "" && c.model != "" {
		req.Model = c.model
	}
	if req.Temperature == nil && c.temperature != nil {
		req.Temperature = c.temperature
	}
	if req.MaxTokens == 0 && c.maxTokens > 0 {
		req.MaxTokens = c.maxTokens
	}
	return req
}

// ModelName strips a leading "openai/" provider prefix so provider-qualified
// identifiers such as "openai/gpt-4o" can be sent to OpenAI-compatible APIs.
func ModelName(model string) string {
	return strings.TrimPrefix(model, "openai/")
}

// isRetryable reports whether an API error is worth retrying.
// Rate limiting and server-side errors are retried, client errors are not.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	return true
}

// CollectStream reads all chunks from a StreamReader and returns the full content.
func CollectStream(sr *StreamReader) (string, error) {
	defer sr.Close()
	var b strings.Builder
	for {
		chunk, err := sr.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return b.String(), err
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}
