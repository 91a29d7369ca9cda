package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/persona-gepa/internal/artifact"
	"github.com/giantswarm/persona-gepa/internal/server"
)

func handleListArtifacts(_ context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	entries, err := artifact.List(sc.OutputDir)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list artifacts: %v", err)), nil
	}
	if entries == nil {
		entries = []artifact.Entry{}
	}
	return jsonResult(entries)
}

func handleGetArtifact(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	runID, _ := request.GetArguments()["run_id"].(string)

	path, err := resolveArtifactPath(sc.OutputDir, runID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid run_id: %v", err)), nil
	}

	a, err := artifact.Load(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run %q not found: %v", runID, err)), nil
	}

	result := map[string]any{
		"run_id":       runID,
		"path":         path,
		"instructions": a.Instructions,
		"metadata":     a.Metadata,
		"saved_at":     a.SavedAt,
	}
	if data, err := os.ReadFile(filepath.Join(filepath.Dir(path), artifact.ReportFileName)); err == nil {
		var report map[string]any
		if err := json.Unmarshal(data, &report); err == nil {
			result["validation_report"] = report
		}
	}
	return jsonResult(result)
}
