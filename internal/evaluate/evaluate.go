// Package evaluate scores a persona answerer against a validation set with a
// bounded pool of workers.
package evaluate

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/persona-gepa/internal/interview"
	"github.com/giantswarm/persona-gepa/internal/judge"
	"github.com/giantswarm/persona-gepa/internal/metric"
	"github.com/giantswarm/persona-gepa/internal/persona"
	"github.com/giantswarm/persona-gepa/internal/telemetry"
)

var tracer = otel.GetTracerProvider().Tracer("persona-gepa/evaluate")

// Report summarizes a validation run. The zero Report means "no examples"
// and serializes as {}.
type Report struct {
	MeanScore        float64 `json:"mean_score"`
	MeanAccuracy     float64 `json:"mean_accuracy"`
	MeanFaithfulness float64 `json:"mean_faithfulness"`
	MeanTone         float64 `json:"mean_tone"`
	MeanStyle        float64 `json:"mean_style"`
	Count            float64 `json:"count"`
	Failed           int     `json:"failed,omitempty"`
}

// IsEmpty reports whether no example was evaluated.
func (r Report) IsEmpty() bool {
	return r.Count == 0
}

// MarshalJSON encodes an empty report as an empty object.
func (r Report) MarshalJSON() ([]byte, error) {
	if r.IsEmpty() {
		return []byte("{}"), nil
	}
	type plain Report
	return json.Marshal(plain(r))
}

// outcome is the per-example result slot owned by exactly one worker.
type outcome struct {
	score    float64
	judgment judge.Judgment
	failed   bool
}

// Run answers and judges every example using up to threads workers and
// returns the averaged report. A failed external call for one example counts
// as an all-zero judgment and is recorded in Failed. Context cancellation
// aborts the run.
func Run(ctx context.Context, examples []interview.Example, answerer persona.Answerer, j judge.Judge, weights metric.Weights, threads int) (Report, error) {
	if len(examples) == 0 {
		return Report{}, nil
	}
	if threads < 1 {
		threads = 1
	}

	ctx, span := tracer.Start(ctx, "evaluate.run")
	defer span.End()
	span.SetAttributes(
		attribute.Int("evaluate.examples", len(examples)),
		attribute.Int("evaluate.threads", threads),
	)

	results := make([]outcome, len(examples))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for i := range examples {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := scoreExample(gctx, examples[i], answerer, j, weights)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				slog.Warn("example evaluation failed", "index", i, "error", err)
				telemetry.EvaluatedExamplesTotal.WithLabelValues("failed").Inc()
				results[i] = outcome{failed: true}
				return nil
			}
			telemetry.EvaluatedExamplesTotal.WithLabelValues("ok").Inc()
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return Report{}, err
	}

	report := reduce(results)
	span.SetAttributes(attribute.Float64("evaluate.mean_score", report.MeanScore))
	return report, nil
}

func scoreExample(ctx context.Context, ex interview.Example, answerer persona.Answerer, j judge.Judge, weights metric.Weights) (outcome, error) {
	candidate, err := answerer.Answer(ctx, ex.History, ex.Question, ex.PersonaProfile)
	if err != nil {
		return outcome{}, err
	}
	judgment, err := judge.Evaluate(ctx, j, ex.History, ex.Question, ex.Answer, candidate)
	if err != nil {
		return outcome{}, err
	}
	return outcome{
		score:    metric.WeightedScore(judgment, weights),
		judgment: judgment,
	}, nil
}

// reduce averages the slots in input order so the result does not depend on
// worker scheduling.
func reduce(results []outcome) Report {
	var r Report
	for _, res := range results {
		r.MeanScore += res.score
		r.MeanAccuracy += res.judgment.Accuracy
		r.MeanFaithfulness += res.judgment.Faithfulness
		r.MeanTone += res.judgment.Tone
		r.MeanStyle += res.judgment.Style
		if res.failed {
			r.Failed++
		}
	}

	n := float64(len(results))
	r.MeanScore /= n
	r.MeanAccuracy /= n
	r.MeanFaithfulness /= n
	r.MeanTone /= n
	r.MeanStyle /= n
	r.Count = n
	return r
}
