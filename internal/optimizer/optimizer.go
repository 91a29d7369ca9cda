// Package optimizer rewrites persona instructions with the GEPA prompt
// optimizer from dspy-go.
package optimizer

import (
	"context"

	"github.com/giantswarm/persona-gepa/internal/config"
	"github.com/giantswarm/persona-gepa/internal/interview"
	"github.com/giantswarm/persona-gepa/internal/metric"
)

// Optimizer improves a seed instruction string against a training set.
type Optimizer interface {
	Optimize(ctx context.Context, req Request) (*Result, error)
}

// Request describes one optimization.
type Request struct {
	SeedInstructions string
	Train            []interview.Example
	Val              []interview.Example
	Objective        *metric.Objective
	Budget           config.Budget
}

// Candidate is one instruction string kept by the optimizer.
type Candidate struct {
	ID           string  `json:"id"`
	Instructions string  `json:"instructions"`
	Fitness      float64 `json:"fitness"`
	Generation   int     `json:"generation"`
}

// Result holds the best instructions found and the Pareto candidates.
type Result struct {
	Instructions string      `json:"instructions"`
	BestScore    float64     `json:"best_score"`
	Candidates   []Candidate `json:"candidates,omitempty"`
}
