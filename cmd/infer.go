package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/persona-gepa/internal/runner"
)

func newInferCmd() *cobra.Command {
	var (
		artifactPath string
		inputPath    string
		req          runner.InferRequest
		stream       bool
		timeout      time.Duration
	)
	flags := newConfigFlags()

	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Answer a question in the voice of an optimized persona",
		Long: `Load learned persona instructions from an artifact and answer a question.

The question, transcript history and persona profile come either from flags or
from a JSON file (--input-path) with "history", "question" and
"persona_profile" keys. When --input-path is given the flags are ignored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if inputPath != "" {
				loaded, err := runner.LoadInferRequest(inputPath)
				if err != nil {
					return err
				}
				req = loaded
			}

			cfg, err := flags.resolve(cmd.Flags())
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd.Context(), timeout)
			defer cancel()

			client, closeClient, err := newLLMClient(cfg)
			if err != nil {
				return err
			}
			defer closeClient()

			p, err := runner.LoadProgram(client, cfg.Persona, artifactPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var w io.Writer
			if stream {
				w = out
			}
			answer, err := runner.Infer(ctx, p, req, w)
			if err != nil {
				return err
			}
			if stream {
				_, err = fmt.Fprintln(out)
				return err
			}
			_, err = fmt.Fprintln(out, answer)
			return err
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&artifactPath, "artifact-path", "", "Path to persona_gepa_artifact.json (required)")
	fs.StringVar(&req.History, "history", "", "Transcript history")
	fs.StringVar(&req.Question, "question", "", "Current question")
	fs.StringVar(&req.PersonaProfile, "persona-profile", "", "Optional persona profile")
	fs.StringVar(&inputPath, "input-path", "", "JSON file with history, question and persona_profile keys")
	fs.BoolVar(&stream, "stream", false, "Stream the answer as it is generated")
	fs.DurationVar(&timeout, "timeout", 0, "Request timeout (e.g. 30s). 0 means no timeout")
	flags.addConfigFile(fs)
	flags.addPersona(fs)
	flags.addAPI(fs)
	_ = cmd.MarkFlagRequired("artifact-path")

	return cmd
}
