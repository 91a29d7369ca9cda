package cmd

import (
	"log/slog"

	"github.com/giantswarm/persona-gepa/internal/cache"
	"github.com/giantswarm/persona-gepa/internal/config"
	"github.com/giantswarm/persona-gepa/internal/llm"
)

// newLLMClient creates the LLM client for cfg. Requests are rate limited and
// retried by the OpenAI client; responses are cached in Redis when a Redis
// URL is configured, otherwise under the cache directory. The returned
// function releases the cache store.
func newLLMClient(cfg config.Config) (llm.Client, func(), error) {
	opts := []llm.Option{llm.WithMaxRetries(cfg.MaxRetries)}
	if cfg.APIBase != "" {
		opts = append(opts, llm.WithBaseURL(cfg.APIBase))
	}
	if cfg.APIKey != "" {
		opts = append(opts, llm.WithAPIKey(cfg.APIKey))
	}
	if cfg.RequestsPerSecond > 0 {
		opts = append(opts, llm.WithRateLimit(cfg.RequestsPerSecond, cfg.NumThreads))
	}
	client := llm.NewOpenAIClient(opts...)

	switch {
	case cfg.RedisURL != "":
		store, err := cache.NewRedisStore(cfg.RedisURL, cache.DefaultRedisPrefix, 0)
		if err != nil {
			return nil, nil, err
		}
		slog.Debug("using redis response cache", "prefix", cache.DefaultRedisPrefix)
		return cache.NewClient(client, store), func() {
			if err := store.Close(); err != nil {
				slog.Warn("failed to close redis cache", "error", err)
			}
		}, nil
	case cfg.CacheDir != "":
		store, err := cache.NewDiskStore(cfg.CacheDir)
		if err != nil {
			return nil, nil, err
		}
		slog.Debug("using disk response cache", "dir", cfg.CacheDir)
		return cache.NewClient(client, store), func() {}, nil
	default:
		return client, func() {}, nil
	}
}
