package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/persona-gepa/internal/runner"
	"github.com/giantswarm/persona-gepa/internal/server"
)

func handleOptimizePersona(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.LLMClient == nil {
		return mcp.NewToolResultError("LLM client is not configured"), nil
	}
	if sc.Optimizer == nil {
		return mcp.NewToolResultError("optimizer is not configured"), nil
	}

	args := request.GetArguments()

	src, err := dataSourceFromArgs(args, sc.DataDir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cfg := sc.Config
	cfg.OutputDir = sc.OutputDir
	if budget, ok := args["budget"].(string); ok && budget != "" {
		cfg.Budget = budget
	}
	if calls, ok := args["max_metric_calls"].(float64); ok && calls > 0 {
		cfg.MaxMetricCalls = int(calls)
	}
	if err := cfg.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ds, err := runner.LoadDataset(src)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load dataset: %v", err)), nil
	}

	r := runner.NewRunner(sc.LLMClient, sc.Optimizer, cfg)
	r.SetRunDirectories(true)
	r.SetProgressFunc(func(runID, stage string) {
		slog.Info("optimize_persona progress", "run_id", runID, "stage", stage)
	})

	run, err := r.Optimize(ctx, ds)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("optimization failed: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"run_id":            run.ID,
		"artifact_path":     run.ArtifactPath,
		"best_score":        run.BestScore,
		"validation_report": run.ValidationReport,
		"duration":          run.Duration.String(),
	})
}

// dataSourceFromArgs maps tool arguments to a DataSource. File arguments are
// resolved within dataDir.
func dataSourceFromArgs(args map[string]any, dataDir string) (runner.DataSource, error) {
	src := runner.DataSource{
		Split:    runner.SplitInterview,
		ValRatio: 0.2,
		Seed:     7,
	}

	dataPath, _ := args["data_path"].(string)
	trainPath, _ := args["train_path"].(string)
	valPath, _ := args["val_path"].(string)

	var err error
	if dataPath != "" {
		if src.DataPath, err = resolveDataPath(dataDir, dataPath, "data_path"); err != nil {
			return src, err
		}
	}
	if trainPath != "" {
		if src.TrainPath, err = resolveDataPath(dataDir, trainPath, "train_path"); err != nil {
			return src, err
		}
	}
	if valPath != "" {
		if src.ValPath, err = resolveDataPath(dataDir, valPath, "val_path"); err != nil {
			return src, err
		}
	}

	if split, ok := args["split"].(string); ok && split != "" {
		src.Split = split
	}
	if ratio, ok := args["val_ratio"].(float64); ok {
		src.ValRatio = ratio
	}
	if seed, ok := args["seed"].(float64); ok {
		src.Seed = int64(seed)
	}
	if loader, ok := args["loader"].(string); ok {
		src.Loader = loader
	}
	return src, nil
}
