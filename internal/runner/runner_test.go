package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/persona-gepa/internal/artifact"
	"github.com/giantswarm/persona-gepa/internal/config"
	"github.com/giantswarm/persona-gepa/internal/interview"
	"github.com/giantswarm/persona-gepa/internal/judge"
	"github.com/giantswarm/persona-gepa/internal/llm"
	"github.com/giantswarm/persona-gepa/internal/optimizer"
	"github.com/giantswarm/persona-gepa/internal/persona"
	"github.com/giantswarm/persona-gepa/internal/testutil"
)

// fakeOptimizer returns fixed instructions and records the request.
type fakeOptimizer struct {
	result *optimizer.Result
	err    error

	mu  sync.Mutex
	req optimizer.Request
}

func (f *fakeOptimizer) Optimize(_ context.Context, req optimizer.Request) (*optimizer.Result, error) {
	f.mu.Lock()
	f.req = req
	f.mu.Unlock()
	return f.result, f.err
}

// scriptedClient answers judge prompts with a fixed judgment and everything
// else with a persona answer.
func scriptedClient() *testutil.MockLLMClient {
	return &testutil.MockLLMClient{
		Respond: func(req llm.ChatRequest) (string, error) {
			if req.SystemMessage == judge.Instructions {
				return `{"accuracy": 1, "faithfulness": 0.5, "tone": 1, "style": 0, "feedback": "Close."}`, nil
			}
			return "I was born in Lyon.", nil
		},
	}
}

func testConfig(outputDir string) config.Config {
	cfg := config.Default()
	cfg.OutputDir = outputDir
	cfg.NumThreads = 2
	return cfg
}

func testDataset() *Dataset {
	return &Dataset{
		Train: []interview.Example{{Question: "Where were you born?", Answer: "Lyon."}},
		Val: []interview.Example{
			{Question: "And now?", Answer: "Paris.", History: "Q: Where were you born?\nA: Lyon.\n"},
			{Question: "Job?", Answer: "Nurse."},
		},
		Split: SplitInterview,
	}
}

func TestRunnerOptimize(t *testing.T) {
	tmpDir := t.TempDir()
	opt := &fakeOptimizer{result: &optimizer.Result{Instructions: "Answer as the nurse from Lyon.", BestScore: 0.8}}
	client := scriptedClient()

	r := NewRunner(client, opt, testConfig(tmpDir))

	var stages []string
	r.SetProgressFunc(func(_, stage string) {
		stages = append(stages, stage)
	})

	run, err := r.Optimize(context.Background(), testDataset())
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, filepath.Join(tmpDir, artifact.FileName), run.ArtifactPath)
	assert.Equal(t, filepath.Join(tmpDir, artifact.ReportFileName), run.ReportPath)
	assert.Equal(t, []string{StageOptimize, StageSave, StageEvaluate}, stages)

	assert.Equal(t, persona.DefaultInstructions, opt.req.SeedInstructions)
	assert.Len(t, opt.req.Train, 1)
	assert.Len(t, opt.req.Val, 2)
	assert.Equal(t, config.Budget{Auto: config.BudgetLight}, opt.req.Budget)
	require.NotNil(t, opt.req.Objective)

	a, err := artifact.Load(run.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, "Answer as the nurse from Lyon.", a.Instructions)
	assert.Equal(t, "openai/gpt-4o", a.Metadata["persona_model"])
	assert.Equal(t, "light", a.Metadata["budget"])
	assert.Nil(t, a.Metadata["max_metric_calls"])
	assert.Equal(t, "interview", a.Metadata["split"])
	assert.Equal(t, run.ID, a.Metadata["run_id"])

	report := run.ValidationReport
	assert.Equal(t, 2.0, report.Count)
	assert.InDelta(t, 1.0, report.MeanAccuracy, 1e-12)
	assert.InDelta(t, 0.4+0.3*0.5+0.15, report.MeanScore, 1e-9)
	assert.FileExists(t, run.ReportPath)

	// The validation pass answers with the learned instructions.
	var personaPrompts int
	for _, req := range client.Requests() {
		if req.SystemMessage == "Answer as the nurse from Lyon." {
			personaPrompts++
		}
	}
	assert.Equal(t, 2, personaPrompts)
}

func TestRunnerOptimizeEmptyValidation(t *testing.T) {
	tmpDir := t.TempDir()
	opt := &fakeOptimizer{result: &optimizer.Result{Instructions: "x"}}
	r := NewRunner(scriptedClient(), opt, testConfig(tmpDir))

	ds := testDataset()
	ds.Val = nil
	run, err := r.Optimize(context.Background(), ds)
	require.NoError(t, err)

	assert.True(t, run.ValidationReport.IsEmpty())
	assert.Empty(t, run.ReportPath)
	_, err = os.Stat(filepath.Join(tmpDir, artifact.ReportFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestRunnerRunDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	opt := &fakeOptimizer{result: &optimizer.Result{Instructions: "x"}}
	r := NewRunner(scriptedClient(), opt, testConfig(tmpDir))
	r.SetRunDirectories(true)

	run, err := r.OptimizeWithID(context.Background(), "run-1", testDataset())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "run-1", artifact.FileName), run.ArtifactPath)

	entries, err := artifact.List(tmpDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "run-1", entries[0].RunID)
}

func TestRunnerOptimizeErrors(t *testing.T) {
	t.Run("optimizer failure", func(t *testing.T) {
		opt := &fakeOptimizer{err: errors.New("reflection model unavailable")}
		r := NewRunner(scriptedClient(), opt, testConfig(t.TempDir()))

		_, err := r.Optimize(context.Background(), testDataset())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "optimization failed")
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig(t.TempDir())
		cfg.Budget = "extreme"
		r := NewRunner(scriptedClient(), &fakeOptimizer{}, cfg)

		_, err := r.Optimize(context.Background(), testDataset())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown budget")
	})
}

func TestRunnerMetadataRecordsMetricCalls(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.MaxMetricCalls = 50
	opt := &fakeOptimizer{result: &optimizer.Result{Instructions: "x", BestScore: 0.5}}
	r := NewRunner(scriptedClient(), opt, cfg)

	run, err := r.Optimize(context.Background(), testDataset())
	require.NoError(t, err)
	assert.Equal(t, config.Budget{MaxMetricCalls: 50}, opt.req.Budget)

	a, err := artifact.Load(run.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, 50.0, a.Metadata["max_metric_calls"])
	assert.Equal(t, 0.5, a.Metadata["best_score"])
}
