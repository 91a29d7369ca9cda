package cmd

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/persona-gepa/internal/artifact"
	"github.com/giantswarm/persona-gepa/internal/runner"
)

func newEvaluateCmd() *cobra.Command {
	var (
		artifactPath string
		src          runner.DataSource
		all          bool
		writeReport  bool
		timeout      time.Duration
	)
	flags := newConfigFlags()

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a saved artifact on interview data",
		Long: `Re-run the validation report for an existing artifact.

The interviews are loaded and split exactly as for 'optimize', and the
validation examples are answered with the artifact's instructions and scored
by the judge. With --all the training examples are scored as well.`,
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
			examples := ds.Val
			if all {
				examples = append(append(examples[:0:0], ds.Train...), ds.Val...)
			}

			ctx, cancel := withTimeout(cmd.Context(), timeout)
			defer cancel()

			client, closeClient, err := newLLMClient(cfg)
			if err != nil {
				return err
			}
			defer closeClient()

			report, err := runner.EvaluateArtifact(ctx, client, cfg, artifactPath, examples)
			if err != nil {
				return err
			}

			if writeReport && !report.IsEmpty() {
				path, err := artifact.WriteReport(filepath.Dir(artifactPath), report)
				if err != nil {
					return err
				}
				slog.Info("validation report written", "path", path)
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&artifactPath, "artifact-path", "", "Path to persona_gepa_artifact.json (required)")
	fs.BoolVar(&all, "all", false, "Score training and validation examples")
	fs.BoolVar(&writeReport, "write-report", false, "Write validation_report.json next to the artifact")
	fs.DurationVar(&timeout, "timeout", 0, "Overall timeout for the evaluation. 0 means no timeout")
	addDataFlags(fs, &src)
	flags.addConfigFile(fs)
	flags.addPersona(fs)
	flags.addJudge(fs)
	flags.addThreads(fs)
	flags.addWeights(fs)
	flags.addAPI(fs)
	_ = cmd.MarkFlagRequired("artifact-path")

	return cmd
}
