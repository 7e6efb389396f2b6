package adapter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Role distinguishes the prompt template used at each depth of the
// fan-out program: the depth-1 orchestrator role requests a
// spawn plan, the depth-2 worker role requests a metric/computation
// shape, and the depth-3 frontier role requests a hash proof.
type Role string

const (
	RoleOrchestrator Role = "orchestrator"
	RoleWorker       Role = "worker"
	RoleFrontier     Role = "frontier"
)

// TemplateData is what a prompt template may reference.
type TemplateData struct {
	Role      Role
	AgentName string
	Depth     int
	Task      string
	Nonce     string
	RunID     string
}

// defaultTemplatesYAML is the built-in YAML document backing PromptBuilder when
// no on-disk template directory overrides it. Each entry demands a
// JSON-only reply shaped for its role, mirroring the orchestrator's
// gate requirements for that depth.
const defaultTemplatesYAML = `
orchestrator: |
  You are {{.AgentName}}, a depth-{{.Depth}} supervisor agent. Task: {{.Task}}
  Reply with JSON only, no prose, shaped exactly as:
  {"spawn_requests": [{"child_name": "string", "input": {}}, {"child_name": "string", "input": {}}]}
worker: |
  You are {{.AgentName}}, a depth-{{.Depth}} worker agent. Task: {{.Task}}
  Reply with JSON only, no prose, shaped exactly as:
  {"metric": <integer>, "computation": "string", "spawn_request": {"child_name": "string", "input": {}}}
frontier: |
  You are {{.AgentName}}, a depth-{{.Depth}} frontier agent. Task: {{.Task}}
  Compute hashProof as SHA-256(nonce + ":" + runId) for nonce={{.Nonce}} runId={{.RunID}}.
  Reply with JSON only, no prose, shaped exactly as:
  {"hashProof": "string", "timestamp": <integer>}
`

// PromptBuilder renders role-tagged prompts for the host capability and
// LLM-backed execution paths. Templates come from a YAML document, so
// operators can restyle prompts without a code change — mirroring the
// teacher's TemplatePromptBuilder, scaled down to this engine's three
// fixed roles instead of an open-ended planning prompt.
type PromptBuilder struct {
	templates map[Role]*template.Template
}

// NewPromptBuilder loads role templates from templateDir/prompts.yaml if
// present, otherwise falls back to the built-in defaults.
func NewPromptBuilder(templateDir string) (*PromptBuilder, error) {
	raw := []byte(defaultTemplatesYAML)

	if templateDir != "" {
		path := filepath.Join(templateDir, "prompts.yaml")
		if data, err := os.ReadFile(path); err == nil { // nosec G304 -- operator-controlled config path
			raw = data
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("prompt: failed to read template file %s: %w", path, err)
		}
	}

	var docs map[Role]string
	if err := yaml.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("prompt: failed to parse template yaml: %w", err)
	}

	templates := make(map[Role]*template.Template, len(docs))
	for role, body := range docs {
		tmpl, err := template.New(string(role)).Parse(body)
		if err != nil {
			return nil, fmt.Errorf("prompt: failed to parse template for role %s: %w", role, err)
		}
		templates[role] = tmpl
	}

	return &PromptBuilder{templates: templates}, nil
}

// Build renders the template for data.Role against data.
func (b *PromptBuilder) Build(data TemplateData) (string, error) {
	tmpl, ok := b.templates[data.Role]
	if !ok {
		return "", fmt.Errorf("prompt: no template registered for role %q", data.Role)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("prompt: failed to render role %q: %w", data.Role, err)
	}
	return buf.String(), nil
}

// RoleForDepth maps a spawn depth to its prompt role under the fan-out
// program's fixed 1->2->2 shape: depth 1 is the orchestrator, depth 2 is
// the worker, and the frontier depth (frontierDepth, normally maxDepth-1)
// is the frontier role.
func RoleForDepth(depth, frontierDepth int) Role {
	switch {
	case depth >= frontierDepth:
		return RoleFrontier
	case depth == 1:
		return RoleOrchestrator
	default:
		return RoleWorker
	}
}
