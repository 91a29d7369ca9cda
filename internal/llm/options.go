package llm

// DefaultBaseURL is the OpenAI API base used when no endpoint is configured.
const DefaultBaseURL = "https://api.openai.com/v1"

// Float64Ptr returns a pointer to the given float64 value.
// Useful for constructing ChatRequest with an explicit temperature.
func Float64Ptr(v float64) *float64 {
	return &v
}

// clientConfig holds configuration for an LLM client.
type clientConfig struct {
	baseURL           string
	apiKey            string
	model             string
	temperature       *float64
	maxTokens         int
	requestsPerSecond float64
	burst             int
	maxRetries        uint
}

// Option is a functional option for configuring an LLM client.
type Option func(*clientConfig)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) {
		c.apiKey = key
	}
}

// WithModel sets the default model name for requests.
// Per-request model settings in ChatRequest take precedence.
func WithModel(model string) Option {
	return func(c *clientConfig) {
		c.model = model
	}
}

// WithTemperature sets the default temperature for requests.
// Per-request temperature settings in ChatRequest take precedence.
func WithTemperature(temp float64) Option {
	return func(c *clientConfig) {
		c.temperature = &temp
	}
}

// WithMaxTokens sets the default completion token limit for requests.
func WithMaxTokens(n int) Option {
	return func(c *clientConfig) {
		c.maxTokens = n
	}
}

// WithRateLimit limits outgoing requests to rps per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *clientConfig) {
		c.requestsPerSecond = rps
		c.burst = burst
	}
}

// WithMaxRetries sets how many times a failed request is retried.
func WithMaxRetries(n uint) Option {
	return func(c *clientConfig) {
		c.maxRetries = n
	}
}
