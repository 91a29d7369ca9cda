package metric

import (
	"context"

	"github.com/giantswarm/persona-gepa/internal/judge"
	"github.com/giantswarm/persona-gepa/internal/telemetry"
)

// Result is the outcome of scoring one candidate answer.
type Result struct {
	Score        float64        `json:"score"`
	Feedback     string         `json:"feedback"`
	AspectScores judge.Judgment `json:"aspect_scores"`
}

// Objective judges candidate answers and reduces the judgment to a score
// with normalized weights.
type Objective struct {
	judge   judge.Judge
	weights Weights
}

// NewObjective creates an Objective. Weights are normalized once here.
func NewObjective(j judge.Judge, weights Weights) *Objective {
	return &Objective{judge: j, weights: weights.Normalize()}
}

// Weights returns the normalized weights used for scoring.
func (o *Objective) Weights() Weights {
	return o.weights
}

// Score judges candidate for the given turn. A judge request failure is
// returned as an error; a malformed judge reply is not an error and scores 0.
func (o *Objective) Score(ctx context.Context, history, question, reference, candidate string) (Result, error) {
	j, err := judge.Evaluate(ctx, o.judge, history, question, reference, candidate)
	if err != nil {
		return Result{}, err
	}

	score := WeightedScore(j, o.weights)
	telemetry.ObjectiveScore.Observe(score)

	return Result{
		Score:        score,
		Feedback:     j.Feedback,
		AspectScores: j,
	}, nil
}
