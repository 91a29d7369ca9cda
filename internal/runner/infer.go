package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/giantswarm/persona-gepa/internal/artifact"
	"github.com/giantswarm/persona-gepa/internal/config"
	"github.com/giantswarm/persona-gepa/internal/evaluate"
	"github.com/giantswarm/persona-gepa/internal/interview"
	"github.com/giantswarm/persona-gepa/internal/judge"
	"github.com/giantswarm/persona-gepa/internal/llm"
	"github.com/giantswarm/persona-gepa/internal/persona"
)

// ErrQuestionRequired is returned when inference is requested without a question.
var ErrQuestionRequired = errors.New("Question is required (use --question or --input-path).")

// InferRequest is a single inference input.
type InferRequest struct {
	History        string `json:"history"`
	Question       string `json:"question"`
	PersonaProfile string `json:"persona_profile"`
}

// LoadInferRequest reads an InferRequest from a JSON file.
func LoadInferRequest(path string) (InferRequest, error) {
	var req InferRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("failed to read input file: %w", err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("failed to parse input file %s: %w", path, err)
	}
	return req, nil
}

// LoadProgram builds a persona program from a saved artifact. An artifact
// with empty instructions answers with the default instructions.
func LoadProgram(client llm.Client, role config.Role, artifactPath string) (*persona.Program, error) {
	a, err := artifact.Load(artifactPath)
	if err != nil {
		return nil, err
	}
	return persona.New(client, personaConfig(role), a.Instructions), nil
}

// Infer answers req with p. When stream is non-nil the answer is written to
// it as it is generated.
func Infer(ctx context.Context, p *persona.Program, req InferRequest, stream io.Writer) (string, error) {
	if strings.TrimSpace(req.Question) == "" {
		return "", ErrQuestionRequired
	}
	if stream != nil {
		return p.Stream(ctx, req.History, req.Question, req.PersonaProfile, stream)
	}
	return p.Answer(ctx, req.History, req.Question, req.PersonaProfile)
}

// EvaluateArtifact scores a saved artifact against examples with the
// configured judge.
func EvaluateArtifact(ctx context.Context, client llm.Client, cfg config.Config, artifactPath string, examples []interview.Example) (evaluate.Report, error) {
	p, err := LoadProgram(client, cfg.Persona, artifactPath)
	if err != nil {
		return evaluate.Report{}, err
	}
	j := judge.New(client, judge.Config{
		Model:       cfg.Judge.Model,
		Temperature: cfg.Judge.Temperature,
		MaxTokens:   cfg.Judge.MaxTokens,
	})
	return evaluate.Run(ctx, examples, p, j, cfg.NormalizedWeights(), cfg.NumThreads)
}
