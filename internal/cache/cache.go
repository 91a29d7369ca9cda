// Package cache stores LLM chat completions so repeated optimization runs
// over the same data do not pay for identical requests twice.
package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/giantswarm/persona-gepa/internal/llm"
	"github.com/giantswarm/persona-gepa/internal/telemetry"
)

// Store is a byte-oriented key/value store for cache entries.
type Store interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

type entry struct {
	Content string `msgpack:"content"`
}

// Key derives the cache key of a request. Requests that differ in any field
// get different keys.
func Key(req llm.ChatRequest) (string, error) {
	data, err := msgpack.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode cache key: %w", err)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data)), nil
}

// Client wraps an llm.Client and serves repeated chat completions from a
// Store. Streaming requests are never cached.
type Client struct {
	inner llm.Client
	store Store
}

// NewClient returns a caching llm.Client.
func NewClient(inner llm.Client, store Store) *Client {
	return &Client{inner: inner, store: store}
}

// ChatCompletion returns a cached response when one exists. Store failures
// are logged and the request falls through to the wrapped client.
func (c *Client) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	key, err := Key(req)
	if err != nil {
		return nil, err
	}

	data, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		telemetry.CacheLookupsTotal.WithLabelValues("error").Inc()
		slog.Warn("cache lookup failed", "key", key, "error", err)
	case ok:
		var e entry
		if err := msgpack.Unmarshal(data, &e); err == nil {
			telemetry.CacheLookupsTotal.WithLabelValues("hit").Inc()
			return &llm.ChatResponse{Content: e.Content}, nil
		}
		telemetry.CacheLookupsTotal.WithLabelValues("error").Inc()
		slog.Warn("discarding unreadable cache entry", "key", key)
	default:
		telemetry.CacheLookupsTotal.WithLabelValues("miss").Inc()
	}

	resp, err := c.inner.ChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := msgpack.Marshal(entry{Content: resp.Content}); err == nil {
		if err := c.store.Set(ctx, key, data); err != nil {
			slog.Warn("cache write failed", "key", key, "error", err)
		}
	}
	return resp, nil
}

// ChatCompletionStream passes through to the wrapped client.
func (c *Client) ChatCompletionStream(ctx context.Context, req llm.ChatRequest) (*llm.StreamReader, error) {
	return c.inner.ChatCompletionStream(ctx, req)
}
