package server

import (
	"github.com/giantswarm/persona-gepa/internal/config"
	"github.com/giantswarm/persona-gepa/internal/llm"
	"github.com/giantswarm/persona-gepa/internal/optimizer"
)

// ServerContext holds shared dependencies for MCP tool handlers.
type ServerContext struct {
	LLMClient llm.Client
	Optimizer optimizer.Optimizer
	Config    config.Config
	OutputDir string // artifacts are written to OutputDir/<run-id>
	DataDir   string // interview files referenced by tools must live here
}
