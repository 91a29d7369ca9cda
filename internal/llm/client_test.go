package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIClientDefaults(t *testing.T) {
	client := NewOpenAIClient()
	assert.Empty(t, client.model)
	assert.Nil(t, client.temperature)
	assert.Nil(t, client.limiter)
	assert.Equal(t, uint(3), client.maxRetries)
}

func TestNewOpenAIClientWithAllOptions(t *testing.T) {
	client := NewOpenAIClient(
		WithBaseURL("https://api.example.com/v1"),
		WithAPIKey("sk-test"),
		WithModel("gpt-4o"),
		WithTemperature(0.5),
		WithMaxTokens(256),
		WithRateLimit(2, 0),
		WithMaxRetries(1),
	)
	assert.Equal(t, "gpt-4o", client.model)
	require.NotNil(t, client.temperature)
	assert.Equal(t, 0.5, *client.temperature)
	assert.Equal(t, 256, client.maxTokens)
	require.NotNil(t, client.limiter)
	assert.Equal(t, 1, client.limiter.Burst())
	assert.Equal(t, uint(1), client.maxRetries)
}

func TestApplyDefaults(t *testing.T) {
	client := NewOpenAIClient(WithModel("gpt-4o"), WithTemperature(0.8), WithMaxTokens(100))

	tests := []struct {
		name      string
		req       ChatRequest
		wantModel string
		wantTemp  float64
		wantMax   int
	}{
		{
			name:      "client defaults fill empty request",
			req:       ChatRequest{UserMessage: "hello"},
			wantModel: "gpt-4o",
			wantTemp:  0.8,
			wantMax:   100,
		},
		{
			name:      "request values take precedence",
			req:       ChatRequest{Model: "gpt-4o-mini", Temperature: Float64Ptr(0), MaxTokens: 10},
			wantModel: "gpt-4o-mini",
			wantTemp:  0,
			wantMax:   10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := client.applyDefaults(tt.req)
			assert.Equal(t, tt.wantModel, req.Model)
			require.NotNil(t, req.Temperature)
			assert.Equal(t, tt.wantTemp, *req.Temperature)
			assert.Equal(t, tt.wantMax, req.MaxTokens)
		})
	}
}

func TestModelName(t *testing.T) {
	assert.Equal(t, "gpt-4o", ModelName("openai/gpt-4o"))
	assert.Equal(t, "gpt-4o", ModelName("gpt-4o"))
	assert.Equal(t, "anthropic/claude", ModelName("anthropic/claude"))
}

type capturedRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newChatServer(t *testing.T, failures int32, captured *capturedRequest) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n <= failures {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		if captured != nil {
			_ = json.NewDecoder(r.Body).Decode(captured)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"I grew up in Paris."},"finish_reason":"stop"}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestChatCompletion(t *testing.T) {
	var captured capturedRequest
	srv, calls := newChatServer(t, 0, &captured)

	client := NewOpenAIClient(WithBaseURL(srv.URL+"/v1/"), WithModel("openai/gpt-4o"), WithMaxTokens(512))
	resp, err := client.ChatCompletion(context.Background(), ChatRequest{
		SystemMessage: "be the interviewee",
		UserMessage:   "Where were you born?",
	})
	require.NoError(t, err)
	assert.Equal(t, "I grew up in Paris.", resp.Content)
	assert.Equal(t, int32(1), calls.Load())

	assert.Equal(t, "gpt-4o", captured.Model)
	assert.Equal(t, 512, captured.MaxTokens)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "Where were you born?", captured.Messages[1].Content)
}

func TestChatCompletionOmitsEmptySystemMessage(t *testing.T) {
	var captured capturedRequest
	srv, _ := newChatServer(t, 0, &captured)

	client := NewOpenAIClient(WithBaseURL(srv.URL + "/v1"))
	_, err := client.ChatCompletion(context.Background(), ChatRequest{Model: "m", UserMessage: "hi"})
	require.NoError(t, err)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
}

func TestChatCompletionRetriesServerErrors(t *testing.T) {
	srv, calls := newChatServer(t, 2, nil)

	client := NewOpenAIClient(WithBaseURL(srv.URL+"/v1"), WithMaxRetries(3))
	resp, err := client.ChatCompletion(context.Background(), ChatRequest{Model: "m", UserMessage: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "I grew up in Paris.", resp.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestChatCompletionGivesUpAfterMaxRetries(t *testing.T) {
	srv, calls := newChatServer(t, 10, nil)

	client := NewOpenAIClient(WithBaseURL(srv.URL+"/v1"), WithMaxRetries(1))
	_, err := client.ChatCompletion(context.Background(), ChatRequest{Model: "m", UserMessage: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion failed")
	assert.Equal(t, int32(2), calls.Load())
}
