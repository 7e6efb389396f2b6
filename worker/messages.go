// Package worker runs the orchestrator off the host's own goroutine,
// communicating over channels instead of shared memory. The host and
// worker exchange a small fixed set of message shapes; nothing else
// crosses the boundary.
package worker

import "github.com/kestrel-run/recursion-engine/core"

// RunTask describes one orchestrator run. Manager.Run does not send it;
// the task and config reach the worker through Options.
type RunTask struct {
	Task   string
	Config *core.Config
}

// ModelResult is sent host -> worker in reply to a RequestSpawn,
// correlated by ID. Exactly one of Output/Err is set.
type ModelResult struct {
	ID     string
	Output map[string]interface{}
	Err    error
}

// RequestSpawn is sent worker -> host whenever the orchestrator running
// inside the worker needs a subagent executed. ID correlates the host's
// eventual ModelResult reply.
type RequestSpawn struct {
	ID        string
	AgentName string
	Prompt    string
	Input     map[string]interface{}
}

// Progress carries diagnostic narration. Manager.Run's host loop creates
// one for each RequestSpawn it dispatches and passes it to
// Options.OnProgress, which may be nil.
type Progress struct {
	Message string
}

// Done describes a final orchestrator result. Manager.Run does not send
// it; the worker goroutine hands its result back over an internal channel.
type Done struct {
	Result interface{}
}

// Fail describes a run that could not complete. Manager.Run does not send
// it.
type Fail struct {
	Reason string
	Err    error
}
