package cmd

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/persona-gepa/internal/judge"
	"github.com/giantswarm/persona-gepa/internal/metric"
)

func newJudgeCmd() *cobra.Command {
	var (
		history   string
		question  string
		reference string
		candidate string
		timeout   time.Duration
	)
	flags := newConfigFlags()

	cmd := &cobra.Command{
		Use:   "judge",
		Short: "Score a candidate answer against the interviewee's reference answer",
		Long: `Ask the LLM judge to compare a candidate answer with the reference answer
for one interview turn. Prints the per-aspect judgment, the judge feedback and
the weighted score as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(question) == "" {
				return errors.New("--question is required")
			}

			cfg, err := flags.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd.Context(), timeout)
			defer cancel()

			client, closeClient, err := newLLMClient(cfg)
			if err != nil {
				return err
			}
			defer closeClient()

			j := judge.New(client, judge.Config{
				Model:       cfg.Judge.Model,
				Temperature: cfg.Judge.Temperature,
				MaxTokens:   cfg.Judge.MaxTokens,
			})
			result, err := metric.NewObjective(j, cfg.Weights).Score(ctx, history, question, reference, candidate)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&history, "history", "", "Transcript history before the question")
	fs.StringVar(&question, "question", "", "Interviewer question")
	fs.StringVar(&reference, "reference", "", "The interviewee's actual answer")
	fs.StringVar(&candidate, "candidate", "", "Candidate answer to score")
	fs.DurationVar(&timeout, "timeout", 0, "Request timeout (e.g. 30s). 0 means no timeout")
	flags.addConfigFile(fs)
	flags.addJudge(fs)
	flags.addWeights(fs)
	flags.addAPI(fs)

	return cmd
}
