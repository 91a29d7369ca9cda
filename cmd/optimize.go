package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/giantswarm/persona-gepa/internal/evaluate"
	"github.com/giantswarm/persona-gepa/internal/interview"
	"github.com/giantswarm/persona-gepa/internal/optimizer"
	"github.com/giantswarm/persona-gepa/internal/runner"
	"github.com/giantswarm/persona-gepa/internal/telemetry"
)

type optimizeOutput struct {
	ArtifactPath     string          `json:"artifact_path"`
	ValidationReport evaluate.Report `json:"validation_report"`
}

func newOptimizeCmd() *cobra.Command {
	var (
		src       runner.DataSource
		timeout   time.Duration
		traceFile string
	)
	flags := newConfigFlags()

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Learn persona instructions from interview transcripts",
		Long: `Optimize the persona instructions with GEPA against an LLM judge.

Interviews are split into a training and a validation set, either from a single
--data-path or from explicit --train-path/--val-path files. The learned
instructions are written to persona_gepa_artifact.json in the output directory
and scored on the validation set. The artifact path and validation report are
printed as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ds, err := runner.LoadDataset(src)
			if err != nil {
				return err
			}

			runID, err := runner.NewRunID()
			if err != nil {
				return fmt.Errorf("failed to generate run id: %w", err)
			}

			closeLog, err := setupRunLog(cmd, cfg.LogDir, runID)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, cancel := withTimeout(cmd.Context(), timeout)
			defer cancel()

			if traceFile != "" {
				f, err := os.Create(traceFile)
				if err != nil {
					return fmt.Errorf("failed to create trace file: %w", err)
				}
				defer f.Close()
				shutdown, err := telemetry.InitTracer(f)
				if err != nil {
					return fmt.Errorf("failed to initialize tracing: %w", err)
				}
				defer func() {
					if err := shutdown(cmd.Context()); err != nil {
						slog.Warn("failed to flush traces", "error", err)
					}
				}()
			}

			client, closeClient, err := newLLMClient(cfg)
			if err != nil {
				return err
			}
			defer closeClient()

			opt := optimizer.NewGEPA(client, cfg.Persona, cfg.Reflection)
			r := runner.NewRunner(client, opt, cfg)
			r.SetProgressFunc(func(runID, stage string) {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", runID, stage)
			})

			run, err := r.OptimizeWithID(ctx, runID, ds)
			if err != nil {
				return err
			}

			slog.Info("optimization complete",
				"run_id", run.ID,
				"artifact", run.ArtifactPath,
				"best_score", run.BestScore,
				"duration", run.Duration,
			)
			return printJSON(cmd.OutOrStdout(), optimizeOutput{
				ArtifactPath:     run.ArtifactPath,
				ValidationReport: run.ValidationReport,
			})
		},
	}

	fs := cmd.Flags()
	addDataFlags(fs, &src)
	flags.addConfigFile(fs)
	flags.addPersona(fs)
	flags.addJudge(fs)
	flags.addReflection(fs)
	flags.addOptimize(fs)
	flags.addThreads(fs)
	flags.addWeights(fs)
	flags.addAPI(fs)
	fs.DurationVar(&timeout, "timeout", 0, "Overall timeout for the optimization (e.g. 30m, 1h). 0 means no timeout")
	fs.StringVar(&traceFile, "trace-file", "", "Write OpenTelemetry spans as JSON to this file")

	return cmd
}

// addDataFlags registers the interview input and split flags.
func addDataFlags(fs *pflag.FlagSet, src *runner.DataSource) {
	fs.StringVar(&src.DataPath, "data-path", "", "Interview file to split into train and validation sets")
	fs.StringVar(&src.TrainPath, "train-path", "", "Training interview file (requires --val-path)")
	fs.StringVar(&src.ValPath, "val-path", "", "Validation interview file")
	fs.StringVar(&src.Loader, "loader", interview.LoaderAuto, "Input format: "+strings.Join(interview.LoaderNames(), ", "))
	fs.StringVar(&src.Split, "split", runner.SplitInterview, "Split strategy for --data-path: "+runner.SplitInterview+" or "+runner.SplitTemporal)
	fs.Float64Var(&src.ValRatio, "val-ratio", 0.2, "Fraction of the data used for validation")
	fs.Int64Var(&src.Seed, "seed", 7, "Seed for the interview split")
}

// setupRunLog mirrors log records into <logDir>/optimize-<runID>.log. The
// returned function restores the previous logger and closes the file.
func setupRunLog(cmd *cobra.Command, logDir, runID string) (func(), error) {
	if logDir == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(logDir, fmt.Sprintf("optimize-%s.log", runID))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}

	previous := slog.Default()
	w := io.MultiWriter(cmd.ErrOrStderr(), f)
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	slog.Debug("writing run log", "path", path)

	return func() {
		slog.SetDefault(previous)
		_ = f.Close()
	}, nil
}
