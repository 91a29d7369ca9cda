// Package metric combines judge aspect scores into the scalar objective the
// optimizer maximizes.
package metric

import (
	"github.com/giantswarm/persona-gepa/internal/judge"
)

// Weights maps aspect names to their relative importance.
type Weights map[string]float64

// DefaultWeights favours accuracy and faithfulness over tone and style.
func DefaultWeights() Weights {
	return Weights{
		judge.AspectAccuracy:     0.4,
		judge.AspectFaithfulness: 0.3,
		judge.AspectTone:         0.15,
		judge.AspectStyle:        0.15,
	}
}

// Normalize scales weights to sum to 1. When the total is not positive every
// weight becomes 0.
func (w Weights) Normalize() Weights {
	total := 0.0
	for _, v := range w {
		total += v
	}

	out := make(Weights, len(w))
	for k, v := range w {
		if total <= 0 {
			out[k] = 0
			continue
		}
		out[k] = v / total
	}
	return out
}

// WeightedScore sums weight*score over the judge aspects. Unknown weight keys
// are ignored and aspects without a weight contribute nothing. The weights
// are used as given.
func WeightedScore(j judge.Judgment, w Weights) float64 {
	total := 0.0
	for aspect, weight := range w {
		if v, ok := j.Score(aspect); ok {
			total += weight * v
		}
	}
	return total
}
