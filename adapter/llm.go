package adapter

import (
	"context"
	"fmt"

	"github.com/kestrel-run/recursion-engine/core"
	"github.com/kestrel-run/recursion-engine/resilience"
)

// LLMAdapter implements SpawnAdapter by sending the prompt carried in
// SpawnArgs to an injected core.AIClient (a real hosted model or
// MockAIClient). The orchestrator renders that prompt before calling
// Spawn; the prompts field is stored but Spawn does not use it.
type LLMAdapter struct {
	client  core.AIClient
	prompts *PromptBuilder
	breaker *resilience.CircuitBreaker
	logger  core.Logger
}

// NewLLMAdapter wires client and prompts together. breaker is optional;
// pass nil to call the client directly with no circuit protection.
func NewLLMAdapter(client core.AIClient, prompts *PromptBuilder, breaker *resilience.CircuitBreaker, logger core.Logger) *LLMAdapter {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &LLMAdapter{client: client, prompts: prompts, breaker: breaker, logger: logger}
}

// Spawn sends args.Prompt as given and parses the client's reply as the
// generic JSON shape the orchestrator's gates validate.
func (a *LLMAdapter) Spawn(ctx context.Context, args SpawnArgs) (SpawnResult, error) {
	var response *core.AIResponse
	call := func() error {
		resp, err := a.client.GenerateResponse(ctx, args.Prompt, &core.AIOptions{})
		if err != nil {
			return err
		}
		response = resp
		return nil
	}

	var err error
	if a.breaker != nil {
		err = a.breaker.Execute(ctx, call)
	} else {
		err = call()
	}
	if err != nil {
		return SpawnResult{}, fmt.Errorf("adapter: llm call failed for agent %s: %w", args.AgentName, err)
	}

	output, err := ParseJSONOutput(response.Content)
	if err != nil {
		a.logger.Warn("adapter: llm returned malformed json", map[string]interface{}{"agent": args.AgentName, "content": response.Content})
		return SpawnResult{}, err
	}

	return SpawnResult{RunID: args.AgentName, Output: output}, nil
}
