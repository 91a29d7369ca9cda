package optimizer

import (
	"context"
	"fmt"

	"github.com/XiaoConstantine/dspy-go/pkg/core"

	"github.com/giantswarm/persona-gepa/internal/config"
	"github.com/giantswarm/persona-gepa/internal/llm"
)

// llmAdapter exposes an llm.Client with fixed role settings as a dspy-go LLM.
// GEPA only needs plain text generation.
type llmAdapter struct {
	client llm.Client
	role   config.Role
}

func newLLMAdapter(client llm.Client, role config.Role) *llmAdapter {
	return &llmAdapter{client: client, role: role}
}

func (a *llmAdapter) Generate(ctx context.Context, prompt string, _ ...core.GenerateOption) (*core.LLMResponse, error) {
	resp, err := a.client.ChatCompletion(ctx, llm.ChatRequest{
		Model:       a.role.Model,
		UserMessage: prompt,
		Temperature: llm.Float64Ptr(a.role.Temperature),
		MaxTokens:   a.role.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("llm generate failed: %w", err)
	}
	return &core.LLMResponse{Content: resp.Content}, nil
}

func (a *llmAdapter) GenerateWithJSON(context.Context, string, ...core.GenerateOption) (map[string]interface{}, error) {
	return nil, fmt.Errorf("GenerateWithJSON not supported")
}

func (a *llmAdapter) GenerateWithFunctions(context.Context, string, []map[string]interface{}, ...core.GenerateOption) (map[string]interface{}, error) {
	return nil, fmt.Errorf("GenerateWithFunctions not supported")
}

func (a *llmAdapter) CreateEmbedding(context.Context, string, ...core.EmbeddingOption) (*core.EmbeddingResult, error) {
	return nil, fmt.Errorf("CreateEmbedding not supported")
}

func (a *llmAdapter) CreateEmbeddings(context.Context, []string, ...core.EmbeddingOption) (*core.BatchEmbeddingResult, error) {
	return nil, fmt.Errorf("CreateEmbeddings not supported")
}

func (a *llmAdapter) StreamGenerate(context.Context, string, ...core.GenerateOption) (*core.StreamResponse, error) {
	return nil, fmt.Errorf("StreamGenerate not supported")
}

func (a *llmAdapter) GenerateWithContent(context.Context, []core.ContentBlock, ...core.GenerateOption) (*core.LLMResponse, error) {
	return nil, fmt.Errorf("GenerateWithContent not supported")
}

func (a *llmAdapter) StreamGenerateWithContent(context.Context, []core.ContentBlock, ...core.GenerateOption) (*core.StreamResponse, error) {
	return nil, fmt.Errorf("StreamGenerateWithContent not supported")
}

func (a *llmAdapter) ProviderName() string {
	return "openai"
}

func (a *llmAdapter) ModelID() string {
	return llm.ModelName(a.role.Model)
}

func (a *llmAdapter) Capabilities() []core.Capability {
	return []core.Capability{core.CapabilityChat, core.CapabilityCompletion}
}
