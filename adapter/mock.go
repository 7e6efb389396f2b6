package adapter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	"github.com/kestrel-run/recursion-engine/core"
)

// MockAIClient implements core.AIClient by returning role-appropriate
// canned JSON: a stand-in so the fan-out program is testable without a
// live LLM. Replies are fixed except the worker metric, which is a random
// integer from 1 to 100. Rather than returning pre-seeded
// responses by call index, it classifies the prompt by role tag so
// depth1/depth2/depth3 agents naturally receive differently-shaped
// replies without separate client instances per depth.
type MockAIClient struct {
	CallCount int
}

// NewMockAIClient creates a MockAIClient.
func NewMockAIClient() *MockAIClient {
	return &MockAIClient{}
}

// GenerateResponse classifies prompt by the role markers PromptBuilder
// embeds ("depth-N supervisor/worker/frontier agent") and returns the
// matching simulation shape expected from a real subagent call.
func (c *MockAIClient) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	c.CallCount++

	var content string
	switch {
	case strings.Contains(prompt, "supervisor agent"):
		content = `{"spawn_requests":[{"child_name":"depth2_worker_a","input":{}},{"child_name":"depth2_worker_b","input":{}}]}`
	case strings.Contains(prompt, "frontier agent"):
		nonce, runID := extractNonceAndRunID(prompt)
		hashProof := frontierHashProof(nonce, runID)
		content = fmt.Sprintf(`{"hashProof":"%s","timestamp":%d}`, hashProof, 1700000000000)
	case strings.Contains(prompt, "worker agent"):
		content = fmt.Sprintf(`{"metric":%d,"computation":"contrast_analysis","spawn_request":{"child_name":"depth3_micro","input":{}}}`, rand.Intn(100)+1)
	default:
		content = `{}`
	}

	return &core.AIResponse{
		Content: content,
		Model:   "mock",
		Usage:   core.TokenUsage{PromptTokens: len(prompt), CompletionTokens: len(content), TotalTokens: len(prompt) + len(content)},
	}, nil
}

// extractNonceAndRunID pulls "nonce=<x> runId=<y>" out of a rendered
// frontier prompt (see adapter.defaultTemplatesYAML).
func extractNonceAndRunID(prompt string) (nonce, runID string) {
	const nonceMarker = "nonce="
	const runIDMarker = "runId="

	if idx := strings.Index(prompt, nonceMarker); idx >= 0 {
		rest := prompt[idx+len(nonceMarker):]
		if end := strings.IndexAny(rest, " \n\t"); end >= 0 {
			nonce = rest[:end]
		} else {
			nonce = rest
		}
	}
	if idx := strings.Index(prompt, runIDMarker); idx >= 0 {
		rest := prompt[idx+len(runIDMarker):]
		if end := strings.IndexAny(rest, " \n\t."); end >= 0 {
			runID = rest[:end]
		} else {
			runID = rest
		}
	}
	return nonce, runID
}

func frontierHashProof(nonce, runID string) string {
	sum := sha256.Sum256([]byte(nonce + ":" + runID))
	return hex.EncodeToString(sum[:])
}

// ParseJSONOutput decodes an LLM response's content into the generic
// shape the orchestrator's gates validate against.
func ParseJSONOutput(content string) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, core.NewFrameworkError("adapter.ParseJSONOutput", "adapter", core.ErrAdapterMalformed)
	}
	return out, nil
}
