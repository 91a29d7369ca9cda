package optimizer

import (
	"context"
	"sync"

	"github.com/XiaoConstantine/dspy-go/pkg/core"

	"github.com/giantswarm/persona-gepa/internal/persona"
)

// personaModule is the dspy-go module GEPA rewrites. It answers with the
// persona program under its own signature instruction.
type personaModule struct {
	core.BaseModule
	persona *persona.Program
	binding *moduleBinding
}

// moduleBinding points at the module that last received a candidate
// instruction. core.Program.Clone copies the forward function as-is, so the
// forward function reaches the executing clone through this binding.
type moduleBinding struct {
	mu     sync.RWMutex
	module *personaModule
}

func (b *moduleBinding) set(m *personaModule) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.module = m
}

func (b *moduleBinding) get() *personaModule {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.module
}

func newPersonaModule(p *persona.Program, instructions string) *personaModule {
	m := &personaModule{
		BaseModule: *core.NewModule(answerSignature().WithInstruction(instructions)),
		persona:    p,
		binding:    &moduleBinding{},
	}
	m.DisplayName = moduleName
	m.ModuleType = "PersonaAnswer"
	m.binding.set(m)
	return m
}

// Process answers the question in inputs and echoes the context fields so the
// metric can read them.
func (m *personaModule) Process(ctx context.Context, inputs map[string]any, _ ...core.Option) (map[string]any, error) {
	history := stringField(fieldHistory, inputs)
	question := stringField(fieldQuestion, inputs)
	profile := stringField(fieldPersonaProfile, inputs)

	answer, err := m.persona.WithInstructions(m.GetSignature().Instruction).Answer(ctx, history, question, profile)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		fieldHistory:        history,
		fieldQuestion:       question,
		fieldPersonaProfile: profile,
		fieldAnswer:         answer,
	}, nil
}

func (m *personaModule) ProcessWithInterceptors(ctx context.Context, inputs map[string]any, interceptors []core.ModuleInterceptor, opts ...core.Option) (map[string]any, error) {
	return m.ProcessWithInterceptorsImpl(ctx, inputs, interceptors, m.Process, opts...)
}

// SetSignature also makes m the module the forward function dispatches to.
func (m *personaModule) SetSignature(signature core.Signature) {
	m.BaseModule.SetSignature(signature)
	m.binding.set(m)
}

func (m *personaModule) Clone() core.Module {
	return &personaModule{
		BaseModule: *m.BaseModule.Clone().(*core.BaseModule),
		persona:    m.persona,
		binding:    m.binding,
	}
}

// newProgram builds the single-module program GEPA compiles.
func newProgram(m *personaModule) core.Program {
	return core.NewProgram(
		map[string]core.Module{moduleName: m},
		func(ctx context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
			return m.binding.get().ProcessWithInterceptors(ctx, inputs, nil)
		},
	)
}
