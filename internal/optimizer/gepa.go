package optimizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/XiaoConstantine/dspy-go/pkg/core"
	"github.com/XiaoConstantine/dspy-go/pkg/optimizers"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/giantswarm/persona-gepa/internal/config"
	"github.com/giantswarm/persona-gepa/internal/llm"
	"github.com/giantswarm/persona-gepa/internal/metric"
	"github.com/giantswarm/persona-gepa/internal/persona"
)

const moduleName = "persona_answer"

var tracer = otel.GetTracerProvider().Tracer("persona-gepa/optimizer")

// dspy-go keeps its default and reflection LLMs in package globals, so only one
// GEPA run may configure and use them at a time.
var globalLLMMu sync.Mutex

// GEPA optimizes persona instructions with dspy-go's GEPA optimizer.
type GEPA struct {
	persona    *persona.Program
	client     llm.Client
	personaCfg config.Role
	reflection config.Role
}

// NewGEPA creates a GEPA optimizer. The persona program answers candidate
// prompts; reflection drives instruction rewrites.
func NewGEPA(client llm.Client, personaRole, reflectionRole config.Role) *GEPA {
	return &GEPA{
		persona: persona.New(client, persona.Config{
			Model:       personaRole.Model,
			Temperature: personaRole.Temperature,
			MaxTokens:   personaRole.MaxTokens,
		}, ""),
		client:     client,
		personaCfg: personaRole,
		reflection: reflectionRole,
	}
}

// Optimize runs GEPA over the training set and returns the best instructions.
// The validation set is not consumed by GEPA.
func (g *GEPA) Optimize(ctx context.Context, req Request) (*Result, error) {
	if len(req.Train) == 0 {
		return nil, errors.New("training set cannot be empty")
	}
	if req.Objective == nil {
		return nil, errors.New("objective is required")
	}

	seed := req.SeedInstructions
	if strings.TrimSpace(seed) == "" {
		seed = persona.DefaultInstructions
	}

	s := settingsFor(req.Budget, len(req.Train))

	ctx, span := tracer.Start(ctx, "optimizer.gepa")
	defer span.End()
	span.SetAttributes(
		attribute.Int("gepa.train_examples", len(req.Train)),
		attribute.Int("gepa.generations", s.Generations),
		attribute.Int("gepa.population", s.Population),
	)

	globalLLMMu.Lock()
	defer globalLLMMu.Unlock()

	core.SetDefaultLLM(newLLMAdapter(g.client, g.personaCfg))
	core.GlobalConfig.TeacherLLM = newLLMAdapter(g.client, g.reflection)

	program := newProgram(newPersonaModule(g.persona, seed))

	gepa, err := optimizers.NewGEPA(&optimizers.GEPAConfig{
		MaxGenerations:       s.Generations,
		PopulationSize:       s.Population,
		MutationRate:         0.3,
		CrossoverRate:        0.7,
		ElitismRate:          0.1,
		ReflectionFreq:       1,
		ReflectionDepth:      3,
		SelfCritiqueTemp:     0.7,
		TournamentSize:       3,
		SelectionStrategy:    "adaptive_pareto",
		ConvergenceThreshold: 0.01,
		StagnationLimit:      3,
		EvaluationBatchSize:  s.BatchSize,
		// Candidates are applied and executed one at a time so the forward
		// function dispatches to the clone being scored.
		ConcurrencyLevel:     1,
		Temperature:          g.reflection.Temperature,
		MaxTokens:            g.reflection.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GEPA optimizer: %w", err)
	}

	slog.Info("starting GEPA optimization",
		"train", len(req.Train),
		"val", len(req.Val),
		"generations", s.Generations,
		"population", s.Population,
		"batch_size", s.BatchSize,
	)

	optimized, err := gepa.Compile(ctx, program, newDataset(req.Train), objectiveMetric(ctx, req.Objective))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("GEPA optimization failed: %w", err)
	}

	result := &Result{Instructions: seed}
	if m, ok := optimized.Modules[moduleName]; ok {
		if inst := strings.TrimSpace(m.GetSignature().Instruction); inst != "" {
			result.Instructions = inst
		}
	}

	state := gepa.GetOptimizationState()
	if state != nil {
		if state.BestCandidate != nil && strings.TrimSpace(state.BestCandidate.Instruction) != "" {
			result.Instructions = strings.TrimSpace(state.BestCandidate.Instruction)
			result.BestScore = state.BestCandidate.Fitness
		}
		for _, c := range state.GetParetoArchive() {
			result.Candidates = append(result.Candidates, Candidate{
				ID:           c.ID,
				Instructions: c.Instruction,
				Fitness:      c.Fitness,
				Generation:   c.Generation,
			})
		}
	}

	span.SetAttributes(attribute.Float64("gepa.best_score", result.BestScore))
	slog.Info("GEPA optimization finished", "best_score", result.BestScore, "candidates", len(result.Candidates))
	return result, nil
}

func answerSignature() core.Signature {
	return core.NewSignature(
		[]core.InputField{
			{Field: core.NewField(fieldHistory)},
			{Field: core.NewField(fieldQuestion)},
			{Field: core.NewField(fieldPersonaProfile)},
		},
		[]core.OutputField{
			{Field: core.NewField(fieldAnswer)},
		},
	)
}

// objectiveMetric scores a prediction with the judge objective. A failed
// judge call scores 0 so one bad request does not end the search.
func objectiveMetric(ctx context.Context, obj *metric.Objective) core.Metric {
	return func(expected, actual map[string]interface{}) float64 {
		history := stringField(fieldHistory, expected, actual)
		question := stringField(fieldQuestion, expected, actual)
		reference := stringField(fieldAnswer, expected)
		candidate := stringField(fieldAnswer, actual)

		res, err := obj.Score(ctx, history, question, reference, candidate)
		if err != nil {
			slog.Warn("judge call failed, scoring 0", "error", err)
			return 0
		}
		slog.Debug("candidate scored", "score", res.Score, "feedback", res.Feedback)
		return res.Score
	}
}
