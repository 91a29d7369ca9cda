package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/persona-gepa/internal/artifact"
	"github.com/giantswarm/persona-gepa/internal/judge"
	"github.com/giantswarm/persona-gepa/internal/metric"
	"github.com/giantswarm/persona-gepa/internal/runner"
	"github.com/giantswarm/persona-gepa/internal/server"
)

func handleAnswerQuestion(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.LLMClient == nil {
		return mcp.NewToolResultError("LLM client is not configured"), nil
	}

	args := request.GetArguments()
	req := runner.InferRequest{}
	req.Question, _ = args["question"].(string)
	req.History, _ = args["history"].(string)
	req.PersonaProfile, _ = args["persona_profile"].(string)
	if req.Question == "" {
		return mcp.NewToolResultError("question is required"), nil
	}

	runID, _ := args["run_id"].(string)
	path, runID, err := selectArtifact(sc.OutputDir, runID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	p, err := runner.LoadProgram(sc.LLMClient, sc.Config.Persona, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return mcp.NewToolResultError(fmt.Sprintf("run %q has no artifact", runID)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to load artifact: %v", err)), nil
	}

	answer, err := runner.Infer(ctx, p, req, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("inference failed: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"run_id": runID,
		"answer": answer,
	})
}

// selectArtifact returns the artifact path of runID, or of the newest run
// when runID is empty.
func selectArtifact(outputDir, runID string) (path, id string, err error) {
	if runID != "" {
		path, err := resolveArtifactPath(outputDir, runID)
		return path, runID, err
	}

	entries, err := artifact.List(outputDir)
	if err != nil {
		return "", "", err
	}
	if len(entries) == 0 {
		return "", "", errors.New("no artifacts found; run optimize_persona first")
	}
	return entries[0].Path, entries[0].RunID, nil
}

func handleJudgeAnswer(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.LLMClient == nil {
		return mcp.NewToolResultError("LLM client is not configured"), nil
	}

	args := request.GetArguments()
	question, _ := args["question"].(string)
	reference, _ := args["reference"].(string)
	candidate, _ := args["candidate"].(string)
	history, _ := args["history"].(string)
	if question == "" {
		return mcp.NewToolResultError("question is required"), nil
	}

	j := judge.New(sc.LLMClient, judge.Config{
		Model:       sc.Config.Judge.Model,
		Temperature: sc.Config.Judge.Temperature,
		MaxTokens:   sc.Config.Judge.MaxTokens,
	})
	result, err := metric.NewObjective(j, sc.Config.Weights).Score(ctx, history, question, reference, candidate)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("judge request failed: %v", err)), nil
	}
	return jsonResult(result)
}
