package gate

// TightenContext is passed to tightenPromptFn between attempts so the
// next attempt can adjust its prompt in response to why the previous one
// failed the gate.
type TightenContext struct {
	Attempt    int
	GateErrors []string
}

// RetryResult is returned by RunWithRetry.
type RetryResult struct {
	OK       bool
	Output   interface{}
	Reason   string
	Attempts int
}

// RunWithRetryOptions configures RunWithRetry.
type RunWithRetryOptions struct {
	AttemptFn       func(attempt int) (interface{}, error)
	MaxAttempts     int
	GateFn          func(output interface{}) string
	TightenPromptFn func(TightenContext)
}

// RunWithRetry runs attemptFn up to maxAttempts times, returning the
// first gate-passing result. Between attempts it calls tightenPromptFn
// (if set) with the attempt number and the gate errors seen so far, so
// the caller may adjust its prompt before the next attempt.
func RunWithRetry(opts RunWithRetryOptions) RetryResult {
	var lastOutput interface{}
	var gateErrors []string

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		output, err := opts.AttemptFn(attempt)
		if err != nil {
			gateErrors = append(gateErrors, err.Error())
			if attempt < opts.MaxAttempts && opts.TightenPromptFn != nil {
				opts.TightenPromptFn(TightenContext{Attempt: attempt, GateErrors: gateErrors})
			}
			continue
		}

		lastOutput = output
		if reason := opts.GateFn(output); reason != "" {
			gateErrors = append(gateErrors, reason)
			if attempt < opts.MaxAttempts && opts.TightenPromptFn != nil {
				opts.TightenPromptFn(TightenContext{Attempt: attempt, GateErrors: gateErrors})
			}
			continue
		}

		return RetryResult{OK: true, Output: output, Attempts: attempt}
	}

	return RetryResult{
		OK:       false,
		Output:   lastOutput,
		Reason:   "quality_gate_failed_all_attempts",
		Attempts: opts.MaxAttempts,
	}
}
