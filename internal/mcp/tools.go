package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/persona-gepa/internal/server"
)

// RegisterTools registers all MCP tools with the server.
func RegisterTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := registerPersonaTools(s, sc); err != nil {
		return err
	}
	if err := registerArtifactTools(s, sc); err != nil {
		return err
	}
	return nil
}

func registerPersonaTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	optimizeTool := mcp.NewTool("optimize_persona",
		mcp.WithDescription("Learn persona instructions from interview transcripts with GEPA. The artifact and validation report are written to a new run directory."),
		mcp.WithString("data_path",
			mcp.Description("Interview file (relative to the data directory) to split into train and validation sets"),
		),
		mcp.WithString("train_path",
			mcp.Description("Training interview file (requires val_path; excludes data_path)"),
		),
		mcp.WithString("val_path",
			mcp.Description("Validation interview file"),
		),
		mcp.WithString("split",
			mcp.Description("Split strategy for data_path: interview (default) or temporal"),
		),
		mcp.WithNumber("val_ratio",
			mcp.Description("Fraction of the data used for validation (default: 0.2)"),
		),
		mcp.WithNumber("seed",
			mcp.Description("Seed for the interview split (default: 7)"),
		),
		mcp.WithString("loader",
			mcp.Description("Input format: auto (default), json, jsonl or yaml"),
		),
		mcp.WithString("budget",
			mcp.Description("Optimization budget: light, medium or heavy (default: from server config)"),
		),
		mcp.WithNumber("max_metric_calls",
			mcp.Description("Explicit metric call budget (overrides budget)"),
		),
	)
	s.AddTool(optimizeTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleOptimizePersona(ctx, request, sc)
	})

	answerTool := mcp.NewTool("answer_question",
		mcp.WithDescription("Answer an interview question in the voice of an optimized persona"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Current interviewer question"),
		),
		mcp.WithString("run_id",
			mcp.Description("Run whose artifact to use (default: the newest artifact)"),
		),
		mcp.WithString("history",
			mcp.Description("Transcript history before the question"),
		),
		mcp.WithString("persona_profile",
			mcp.Description("Optional persona profile"),
		),
	)
	s.AddTool(answerTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleAnswerQuestion(ctx, request, sc)
	})

	judgeTool := mcp.NewTool("judge_answer",
		mcp.WithDescription("Score a candidate answer against the interviewee's reference answer on accuracy, faithfulness, tone and style"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Interviewer question"),
		),
		mcp.WithString("reference",
			mcp.Required(),
			mcp.Description("The interviewee's actual answer"),
		),
		mcp.WithString("candidate",
			mcp.Required(),
			mcp.Description("Candidate answer to score"),
		),
		mcp.WithString("history",
			mcp.Description("Transcript history before the question"),
		),
	)
	s.AddTool(judgeTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleJudgeAnswer(ctx, request, sc)
	})

	return nil
}

func registerArtifactTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listTool := mcp.NewTool("list_artifacts",
		mcp.WithDescription("List saved persona artifacts with their metadata and validation reports, newest first"),
	)
	s.AddTool(listTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListArtifacts(ctx, request, sc)
	})

	getTool := mcp.NewTool("get_artifact",
		mcp.WithDescription("Retrieve the learned instructions and metadata of one run"),
		mcp.WithString("run_id",
			mcp.Required(),
			mcp.Description("Run ID returned by optimize_persona or list_artifacts"),
		),
	)
	s.AddTool(getTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetArtifact(ctx, request, sc)
	})

	return nil
}

// jsonResult renders v as an indented JSON text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
