package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPromptBuilder_Defaults(t *testing.T) {
	b, err := NewPromptBuilder("")
	require.NoError(t, err)

	prompt, err := b.Build(TemplateData{Role: RoleOrchestrator, AgentName: "depth1_orchestrator", Depth: 1, Task: "build a feature"})
	require.NoError(t, err)
	assert.Contains(t, prompt, "depth1_orchestrator")
	assert.Contains(t, prompt, "spawn_requests")
}

func TestNewPromptBuilder_FrontierIncludesNonceAndRunID(t *testing.T) {
	b, err := NewPromptBuilder("")
	require.NoError(t, err)

	prompt, err := b.Build(TemplateData{Role: RoleFrontier, AgentName: "depth3_micro", Depth: 3, Nonce: "abc123", RunID: "depth3_micro_1_xyz"})
	require.NoError(t, err)
	assert.Contains(t, prompt, "nonce=abc123")
	assert.Contains(t, prompt, "runId=depth3_micro_1_xyz")
	assert.Contains(t, prompt, "hashProof")
}

func TestNewPromptBuilder_UnknownRole(t *testing.T) {
	b, err := NewPromptBuilder("")
	require.NoError(t, err)

	_, err = b.Build(TemplateData{Role: Role("bogus")})
	assert.Error(t, err)
}

func TestRoleForDepth(t *testing.T) {
	assert.Equal(t, RoleOrchestrator, RoleForDepth(1, 3))
	assert.Equal(t, RoleWorker, RoleForDepth(2, 3))
	assert.Equal(t, RoleFrontier, RoleForDepth(3, 3))
}
