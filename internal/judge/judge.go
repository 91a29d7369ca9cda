package judge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/giantswarm/persona-gepa/internal/llm"
)

// Judge evaluates a candidate answer against the reference answer and returns
// the judging model's raw output.
type Judge interface {
	Judge(ctx context.Context, history, question, reference, candidate string) (string, error)
}

// Config holds judge model settings.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// LLMJudge implements Judge with an OpenAI-compatible chat model.
type LLMJudge struct {
	client llm.Client
	config Config
}

// New creates an LLMJudge.
func New(client llm.Client, config Config) *LLMJudge {
	return &LLMJudge{client: client, config: config}
}

// Judge sends the judging prompt and returns the unparsed reply.
func (j *LLMJudge) Judge(ctx context.Context, history, question, reference, candidate string) (string, error) {
	resp, err := j.client.ChatCompletion(ctx, llm.ChatRequest{
		Model:         j.config.Model,
		SystemMessage: Instructions,
		UserMessage:   BuildUserMessage(history, question, reference, candidate),
		Temperature:   llm.Float64Ptr(j.config.Temperature),
		MaxTokens:     j.config.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("judge request failed: %w", err)
	}

	slog.Debug("judge reply received", "model", j.config.Model, "length", len(resp.Content))
	return resp.Content, nil
}

// Evaluate judges a candidate and parses the reply into a Judgment.
func Evaluate(ctx context.Context, j Judge, history, question, reference, candidate string) (Judgment, error) {
	raw, err := j.Judge(ctx, history, question, reference, candidate)
	if err != nil {
		return Judgment{}, err
	}
	return Parse(raw), nil
}
