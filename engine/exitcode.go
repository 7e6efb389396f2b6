package engine

// Exit codes for the cli_run/cli_guard protocol.
const (
	ExitOK                   = 0
	ExitOrchestrationFailed  = 1
	ExitToolMissingStrict    = 2
	ExitAsleep               = 5
)

// exitCodeFor maps a finished run onto the four-value exit-code
// protocol. forceSleep always wins; tool_missing_strict always maps to
// 2 regardless of which stage raised it (preflight or execute
// dispatch); any other orchestration failure is 1; an orchestration
// success whose contract was not satisfied is an asleep detection (5).
func exitCodeFor(programOK bool, programReason string, contractSatisfied bool, forceSleep bool) int {
	if forceSleep {
		return ExitAsleep
	}
	if programReason == "tool_missing_strict" {
		return ExitToolMissingStrict
	}
	if !programOK {
		return ExitOrchestrationFailed
	}
	if !contractSatisfied {
		return ExitAsleep
	}
	return ExitOK
}
