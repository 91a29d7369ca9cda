// Package persona answers interview questions in the interviewee's voice.
package persona

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/giantswarm/persona-gepa/internal/llm"
)

// DefaultInstructions seed the optimizer and are used when no artifact has
// been learned yet.
const DefaultInstructions = "You are answering as the interviewee. Use the provided transcript history to " +
	"stay accurate and faithful to what was said. Match the interviewee's tone and " +
	"style. If the answer is not supported by the transcript, say you do not know."

// Answerer produces an answer to the current question given the transcript so far.
type Answerer interface {
	Answer(ctx context.Context, history, question, profile string) (string, error)
}

// Config holds persona model settings.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Program answers questions with a fixed instruction string.
type Program struct {
	client       llm.Client
	config       Config
	instructions string
}

// New creates a Program. Empty instructions fall back to DefaultInstructions.
func New(client llm.Client, config Config, instructions string) *Program {
	if strings.TrimSpace(instructions) == "" {
		instructions = DefaultInstructions
	}
	return &Program{client: client, config: config, instructions: instructions}
}

// Instructions returns the instruction string used as system prompt.
func (p *Program) Instructions() string {
	return p.instructions
}

// WithInstructions returns a copy of p that answers with other instructions.
func (p *Program) WithInstructions(instructions string) *Program {
	return New(p.client, p.config, instructions)
}

// Answer returns the persona's answer to question.
func (p *Program) Answer(ctx context.Context, history, question, profile string) (string, error) {
	resp, err := p.client.ChatCompletion(ctx, p.request(history, question, profile))
	if err != nil {
		return "", fmt.Errorf("persona request failed: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// Stream writes the answer to w as it is generated and returns the full text.
func (p *Program) Stream(ctx context.Context, history, question, profile string, w io.Writer) (string, error) {
	sr, err := p.client.ChatCompletionStream(ctx, p.request(history, question, profile))
	if err != nil {
		return "", fmt.Errorf("persona request failed: %w", err)
	}
	defer sr.Close()

	var b strings.Builder
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return b.String(), fmt.Errorf("persona stream failed: %w", err)
		}
		b.WriteString(chunk)
		if _, err := io.WriteString(w, chunk); err != nil {
			return b.String(), err
		}
	}
	return b.String(), nil
}

func (p *Program) request(history, question, profile string) llm.ChatRequest {
	return llm.ChatRequest{
		Model:         p.config.Model,
		SystemMessage: p.instructions,
		UserMessage:   BuildUserMessage(history, question, profile),
		Temperature:   llm.Float64Ptr(p.config.Temperature),
		MaxTokens:     p.config.MaxTokens,
	}
}

// BuildUserMessage renders the answering inputs. The profile section is only
// included when a profile is given.
func BuildUserMessage(history, question, profile string) string {
	var b strings.Builder
	if strings.TrimSpace(profile) != "" {
		fmt.Fprintf(&b, "Persona profile:\n%s\n\n", strings.TrimSpace(profile))
	}
	b.WriteString("Transcript history:\n")
	if h := strings.TrimRight(history, "\n"); h != "" {
		b.WriteString(h)
	} else {
		b.WriteString("(none)")
	}
	fmt.Fprintf(&b, "\n\nCurrent question:\n%s\n\nAnswer:", question)
	return b.String()
}
