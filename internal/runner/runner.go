package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/giantswarm/persona-gepa/internal/artifact"
	"github.com/giantswarm/persona-gepa/internal/config"
	"github.com/giantswarm/persona-gepa/internal/evaluate"
	"github.com/giantswarm/persona-gepa/internal/judge"
	"github.com/giantswarm/persona-gepa/internal/llm"
	"github.com/giantswarm/persona-gepa/internal/metric"
	"github.com/giantswarm/persona-gepa/internal/optimizer"
	"github.com/giantswarm/persona-gepa/internal/persona"
	"github.com/giantswarm/persona-gepa/internal/telemetry"
)

// ProgressFunc is called when the pipeline enters a new stage.
type ProgressFunc func(runID, stage string)

// Pipeline stages reported to ProgressFunc.
const (
	StageOptimize = "optimize"
	StageSave     = "save"
	StageEvaluate = "evaluate"
)

// Runner orchestrates an optimization run: optimize, persist the artifact,
// evaluate on the validation set and write the report.
type Runner struct {
	client    llm.Client
	optimizer optimizer.Optimizer
	cfg       config.Config
	runDirs   bool
	progress  ProgressFunc
}

// NewRunner creates a Runner. client serves the persona and judge roles.
func NewRunner(client llm.Client, opt optimizer.Optimizer, cfg config.Config) *Runner {
	return &Runner{
		client:    client,
		optimizer: opt,
		cfg:       cfg,
	}
}

// SetProgressFunc sets the progress callback.
func (r *Runner) SetProgressFunc(fn ProgressFunc) {
	r.progress = fn
}

// SetRunDirectories makes every run write into its own <output-dir>/<run-id>
// directory instead of the output directory itself.
func (r *Runner) SetRunDirectories(enabled bool) {
	r.runDirs = enabled
}

// Run is the outcome of an optimization run.
type Run struct {
	ID               string          `json:"run_id"`
	ArtifactPath     string          `json:"artifact_path"`
	ReportPath       string          `json:"report_path,omitempty"`
	Instructions     string          `json:"instructions"`
	BestScore        float64         `json:"best_score"`
	ValidationReport evaluate.Report `json:"validation_report"`
	Duration         time.Duration   `json:"-"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() (string, error) {
	return gonanoid.New()
}

// Optimize runs the full pipeline on ds.
func (r *Runner) Optimize(ctx context.Context, ds *Dataset) (*Run, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}

	runID, err := NewRunID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate run id: %w", err)
	}
	return r.OptimizeWithID(ctx, runID, ds)
}

// OptimizeWithID is Optimize with a caller-chosen run id.
func (r *Runner) OptimizeWithID(ctx context.Context, runID string, ds *Dataset) (*Run, error) {
	start := time.Now()

	outputDir := r.cfg.OutputDir
	if r.runDirs {
		outputDir = filepath.Join(outputDir, runID)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	j := judge.New(r.client, judge.Config{
		Model:       r.cfg.Judge.Model,
		Temperature: r.cfg.Judge.Temperature,
		MaxTokens:   r.cfg.Judge.MaxTokens,
	})
	budget := r.cfg.ResolvedBudget()

	slog.Info("optimizing persona instructions",
		"run_id", runID,
		"split", ds.Split,
		"train", len(ds.Train),
		"val", len(ds.Val),
		"budget", budget.Auto,
		"max_metric_calls", budget.MaxMetricCalls,
	)

	r.report(runID, StageOptimize)
	result, err := r.optimizer.Optimize(ctx, optimizer.Request{
		SeedInstructions: persona.DefaultInstructions,
		Train:            ds.Train,
		Val:              ds.Val,
		Objective:        metric.NewObjective(j, r.cfg.Weights),
		Budget:           budget,
	})
	if err != nil {
		telemetry.OptimizationRunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("optimization failed: %w", err)
	}

	r.report(runID, StageSave)
	artifactPath, err := artifact.Save(filepath.Join(outputDir, artifact.FileName), result.Instructions, r.metadata(runID, ds.Split, result))
	if err != nil {
		telemetry.OptimizationRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	run := &Run{
		ID:           runID,
		ArtifactPath: artifactPath,
		Instructions: result.Instructions,
		BestScore:    result.BestScore,
	}

	r.report(runID, StageEvaluate)
	answerer := persona.New(r.client, personaConfig(r.cfg.Persona), result.Instructions)
	report, err := evaluate.Run(ctx, ds.Val, answerer, j, r.cfg.NormalizedWeights(), r.cfg.NumThreads)
	if err != nil {
		telemetry.OptimizationRunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	run.ValidationReport = report

	if !report.IsEmpty() {
		reportPath, err := artifact.WriteReport(outputDir, report)
		if err != nil {
			telemetry.OptimizationRunsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		run.ReportPath = reportPath
	}

	run.Duration = time.Since(start)
	telemetry.OptimizationRunsTotal.WithLabelValues("ok").Inc()
	slog.Info("optimization run complete",
		"run_id", runID,
		"artifact", artifactPath,
		"mean_score", report.MeanScore,
		"duration", run.Duration,
	)
	return run, nil
}

func (r *Runner) report(runID, stage string) {
	if r.progress != nil {
		r.progress(runID, stage)
	}
}

func (r *Runner) metadata(runID, split string, result *optimizer.Result) map[string]any {
	var maxCalls any
	if r.cfg.MaxMetricCalls > 0 {
		maxCalls = r.cfg.MaxMetricCalls
	}
	return map[string]any{
		"persona_model":    r.cfg.Persona.Model,
		"judge_model":      r.cfg.Judge.Model,
		"reflection_model": r.cfg.Reflection.Model,
		"budget":           r.cfg.Budget,
		"max_metric_calls": maxCalls,
		"run_id":           runID,
		"split":            split,
		"best_score":       result.BestScore,
	}
}

func personaConfig(role config.Role) persona.Config {
	return persona.Config{
		Model:       role.Model,
		Temperature: role.Temperature,
		MaxTokens:   role.MaxTokens,
	}
}
