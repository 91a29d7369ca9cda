package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/persona-gepa/internal/artifact"
	"github.com/giantswarm/persona-gepa/internal/config"
	"github.com/giantswarm/persona-gepa/internal/judge"
	"github.com/giantswarm/persona-gepa/internal/llm"
	"github.com/giantswarm/persona-gepa/internal/optimizer"
	"github.com/giantswarm/persona-gepa/internal/server"
	"github.com/giantswarm/persona-gepa/internal/testutil"
)

type fakeOptimizer struct {
	instructions string
}

func (f *fakeOptimizer) Optimize(_ context.Context, _ optimizer.Request) (*optimizer.Result, error) {
	return &optimizer.Result{Instructions: f.instructions, BestScore: 0.75}, nil
}

func scriptedClient() *testutil.MockLLMClient {
	return &testutil.MockLLMClient{
		Respond: func(req llm.ChatRequest) (string, error) {
			if req.SystemMessage == judge.Instructions {
				return `{"accuracy": 1, "faithfulness": 1, "tone": 0, "style": 0, "feedback": "Right facts, wrong voice."}`, nil
			}
			return "I was born in Lyon.", nil
		},
	}
}

func callTool(args map[string]interface{}) mcp.CallToolRequest {
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	return request
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	content, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return content.Text
}

func saveRun(t *testing.T, outputDir, runID, instructions string) string {
	t.Helper()
	path, err := artifact.Save(filepath.Join(outputDir, runID, artifact.FileName), instructions, map[string]any{"run_id": runID})
	require.NoError(t, err)
	return path
}

func TestRegisterTools(t *testing.T) {
	s := mcpserver.NewMCPServer("persona-gepa", "test", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterTools(s, &server.ServerContext{}))
}

func TestHandleListArtifactsEmptyDir(t *testing.T) {
	sc := &server.ServerContext{OutputDir: t.TempDir()}

	result, err := handleListArtifacts(context.Background(), callTool(nil), sc)
	require.NoError(t, err)
	assert.Equal(t, "[]", resultText(t, result))
}

func TestHandleListArtifactsNonexistentDir(t *testing.T) {
	sc := &server.ServerContext{OutputDir: "/nonexistent/directory"}

	result, err := handleListArtifacts(context.Background(), callTool(nil), sc)
	require.NoError(t, err)
	assert.Equal(t, "[]", resultText(t, result))
}

func TestHandleListArtifacts(t *testing.T) {
	tmpDir := t.TempDir()
	saveRun(t, tmpDir, "run-a", "Be terse.")

	sc := &server.ServerContext{OutputDir: tmpDir}
	result, err := handleListArtifacts(context.Background(), callTool(nil), sc)
	require.NoError(t, err)

	var entries []artifact.Entry
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "run-a", entries[0].RunID)
}

func TestHandleGetArtifact(t *testing.T) {
	tmpDir := t.TempDir()
	path := saveRun(t, tmpDir, "run-a", "Be terse.")
	_, err := artifact.WriteReport(filepath.Dir(path), map[string]any{"mean_score": 0.5, "count": 2})
	require.NoError(t, err)

	sc := &server.ServerContext{OutputDir: tmpDir}
	result, err := handleGetArtifact(context.Background(), callTool(map[string]interface{}{"run_id": "run-a"}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &got))
	assert.Equal(t, "Be terse.", got["instructions"])
	assert.Equal(t, map[string]any{"mean_score": 0.5, "count": 2.0}, got["validation_report"])
}

func TestHandleGetArtifactErrors(t *testing.T) {
	tests := []struct {
		name  string
		runID string
		want  string
	}{
		{name: "missing run id", runID: "", want: "run_id is required"},
		{name: "path traversal", runID: "..", want: "path traversal is not allowed"},
		{name: "separator", runID: "a/b", want: "path separators are not allowed"},
		{name: "unknown run", runID: "nope", want: `run "nope" not found`},
	}

	sc := &server.ServerContext{OutputDir: t.TempDir()}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handleGetArtifact(context.Background(), callTool(map[string]interface{}{"run_id": tt.runID}), sc)
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

func TestHandleOptimizePersonaNotConfigured(t *testing.T) {
	tests := []struct {
		name string
		sc   *server.ServerContext
		want string
	}{
		{name: "no client", sc: &server.ServerContext{}, want: "LLM client is not configured"},
		{name: "no optimizer", sc: &server.ServerContext{LLMClient: scriptedClient()}, want: "optimizer is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handleOptimizePersona(context.Background(), callTool(map[string]interface{}{}), tt.sc)
			require.NoError(t, err)
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

func TestHandleOptimizePersonaRejectsPathsOutsideDataDir(t *testing.T) {
	sc := &server.ServerContext{
		LLMClient: scriptedClient(),
		Optimizer: &fakeOptimizer{},
		Config:    config.Default(),
		OutputDir: t.TempDir(),
		DataDir:   t.TempDir(),
	}

	result, err := handleOptimizePersona(context.Background(), callTool(map[string]interface{}{
		"data_path": "../../etc/passwd",
	}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "path must be within data directory")
}

func TestHandleOptimizePersonaInvalidBudget(t *testing.T) {
	sc := &server.ServerContext{
		LLMClient: scriptedClient(),
		Optimizer: &fakeOptimizer{},
		Config:    config.Default(),
		OutputDir: t.TempDir(),
		DataDir:   t.TempDir(),
	}

	result, err := handleOptimizePersona(context.Background(), callTool(map[string]interface{}{
		"data_path": "interviews.json",
		"budget":    "extreme",
	}), sc)
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), `unknown budget "extreme"`)
}

func TestHandleOptimizePersona(t *testing.T) {
	dataDir := t.TempDir()
	outputDir := t.TempDir()
	train := `[[{"q": "Where were you born?", "a": "Lyon."}]]`
	val := `[[{"q": "Job?", "a": "Nurse."}, {"q": "Where?", "a": "Lyon."}]]`
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "train.json"), []byte(train), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "val.json"), []byte(val), 0o644))

	cfg := config.Default()
	cfg.NumThreads = 2
	sc := &server.ServerContext{
		LLMClient: scriptedClient(),
		Optimizer: &fakeOptimizer{instructions: "Answer as the nurse from Lyon."},
		Config:    cfg,
		OutputDir: outputDir,
		DataDir:   dataDir,
	}

	result, err := handleOptimizePersona(context.Background(), callTool(map[string]interface{}{
		"train_path":       "train.json",
		"val_path":         "val.json",
		"max_metric_calls": float64(40),
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var got struct {
		RunID            string         `json:"run_id"`
		ArtifactPath     string         `json:"artifact_path"`
		BestScore        float64        `json:"best_score"`
		ValidationReport map[string]any `json:"validation_report"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &got))
	require.NotEmpty(t, got.RunID)
	assert.Equal(t, filepath.Join(outputDir, got.RunID, artifact.FileName), got.ArtifactPath)
	assert.Equal(t, 0.75, got.BestScore)
	assert.Equal(t, 2.0, got.ValidationReport["count"])
	assert.InDelta(t, 0.7, got.ValidationReport["mean_score"], 1e-9)

	a, err := artifact.Load(got.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, "Answer as the nurse from Lyon.", a.Instructions)
	assert.Equal(t, 40.0, a.Metadata["max_metric_calls"])
}

func TestHandleAnswerQuestion(t *testing.T) {
	tmpDir := t.TempDir()
	saveRun(t, tmpDir, "run-a", "Answer as the nurse from Lyon.")

	client := scriptedClient()
	sc := &server.ServerContext{LLMClient: client, Config: config.Default(), OutputDir: tmpDir}

	result, err := handleAnswerQuestion(context.Background(), callTool(map[string]interface{}{
		"question": "Where were you born?",
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &got))
	assert.Equal(t, "run-a", got["run_id"])
	assert.Equal(t, "I was born in Lyon.", got["answer"])
	assert.Equal(t, "Answer as the nurse from Lyon.", client.LastRequest().SystemMessage)
}

func TestHandleAnswerQuestionErrors(t *testing.T) {
	tests := []struct {
		name string
		sc   *server.ServerContext
		args map[string]interface{}
		want string
	}{
		{
			name: "no client",
			sc:   &server.ServerContext{},
			args: map[string]interface{}{"question": "Hi?"},
			want: "LLM client is not configured",
		},
		{
			name: "missing question",
			sc:   &server.ServerContext{LLMClient: scriptedClient(), OutputDir: t.TempDir()},
			args: map[string]interface{}{},
			want: "question is required",
		},
		{
			name: "no artifacts",
			sc:   &server.ServerContext{LLMClient: scriptedClient(), OutputDir: t.TempDir()},
			args: map[string]interface{}{"question": "Hi?"},
			want: "no artifacts found",
		},
		{
			name: "unknown run",
			sc:   &server.ServerContext{LLMClient: scriptedClient(), OutputDir: t.TempDir()},
			args: map[string]interface{}{"question": "Hi?", "run_id": "nope"},
			want: `run "nope" has no artifact`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handleAnswerQuestion(context.Background(), callTool(tt.args), tt.sc)
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

func TestHandleJudgeAnswer(t *testing.T) {
	sc := &server.ServerContext{LLMClient: scriptedClient(), Config: config.Default()}

	result, err := handleJudgeAnswer(context.Background(), callTool(map[string]interface{}{
		"question":  "Where were you born?",
		"reference": "Lyon.",
		"candidate": "I was born in Lyon.",
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var got struct {
		Score        float64        `json:"score"`
		Feedback     string         `json:"feedback"`
		AspectScores judge.Judgment `json:"aspect_scores"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &got))
	assert.InDelta(t, 0.7, got.Score, 1e-9)
	assert.Equal(t, "Right facts, wrong voice.", got.Feedback)
	assert.Equal(t, 1.0, got.AspectScores.Accuracy)
}

func TestHandleJudgeAnswerMissingQuestion(t *testing.T) {
	sc := &server.ServerContext{LLMClient: scriptedClient(), Config: config.Default()}

	result, err := handleJudgeAnswer(context.Background(), callTool(map[string]interface{}{}), sc)
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "question is required")
}

func TestResolveDataPath(t *testing.T) {
	base := t.TempDir()

	path, err := resolveDataPath(base, "interviews.json", "data_path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "interviews.json"), path)

	_, err = resolveDataPath(base, "", "data_path")
	assert.EqualError(t, err, "data_path is required")

	_, err = resolveDataPath(base, "../outside.json", "data_path")
	assert.EqualError(t, err, "path must be within data directory")
}
