package adapter

import "context"

// HostCapabilityFunc is the shape of a host-provided "runSubagent"
// capability: construct a depth/role-shaped prompt, invoke it, parse the
// JSON reply. InProcessAdapter wraps one as a SpawnAdapter so the
// orchestrator's execute dispatch can treat "call the host
// capability directly" and "call a SpawnAdapter" uniformly.
type HostCapabilityFunc func(ctx context.Context, prompt string) (map[string]interface{}, error)

// InProcessAdapter calls a host capability function in the same
// goroutine as the caller — the simplest SpawnAdapter, used when
// useWorker=false and a host capability is available.
type InProcessAdapter struct {
	capability HostCapabilityFunc
}

// NewInProcessAdapter wraps capability as a SpawnAdapter.
func NewInProcessAdapter(capability HostCapabilityFunc) *InProcessAdapter {
	return &InProcessAdapter{capability: capability}
}

// Spawn invokes the wrapped capability and returns its parsed output. The
// returned RunID echoes args.AgentName since a bare host capability has
// no identifier of its own to offer.
func (a *InProcessAdapter) Spawn(ctx context.Context, args SpawnArgs) (SpawnResult, error) {
	output, err := a.capability(ctx, args.Prompt)
	if err != nil {
		return SpawnResult{}, err
	}
	return SpawnResult{RunID: args.AgentName, Output: output}, nil
}
