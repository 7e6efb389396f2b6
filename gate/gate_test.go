package gate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_OutputNotObject(t *testing.T) {
	g := Gate{}
	assert.Equal(t, "output_not_object", g.Validate("not an object"))
	assert.Equal(t, "output_not_object", g.Validate(nil))
}

func TestValidate_MissingKey(t *testing.T) {
	g := Gate{RequiredKeys: []string{"metric", "computation"}}
	reason := g.Validate(map[string]interface{}{"metric": float64(3)})
	assert.Equal(t, "missing_key:computation", reason)
}

func TestValidate_TooFewNumericValues(t *testing.T) {
	g := Gate{MinNumericCount: 2}
	reason := g.Validate(map[string]interface{}{"metric": float64(3)})
	assert.Equal(t, "too_few_numeric_values:1<2", reason)
}

func TestValidate_CountsNestedNumerics(t *testing.T) {
	g := Gate{MinNumericCount: 3}
	output := map[string]interface{}{
		"a": float64(1),
		"b": []interface{}{float64(2), float64(3)},
	}
	assert.Equal(t, "", g.Validate(output))
}

func TestValidate_HandwavePhrase(t *testing.T) {
	g := Gate{MinNumericCount: 0}
	output := map[string]interface{}{"note": "I am not sure this is right"}
	reason := g.Validate(output)
	assert.Equal(t, "handwave_phrase:not sure", reason)
}

func TestValidate_FrontierHashMismatch(t *testing.T) {
	g := Gate{MinNumericCount: 0, FrontierHashProof: "expected-hash"}
	output := map[string]interface{}{"hashProof": "wrong-hash"}
	assert.Equal(t, "frontier_hash_mismatch", g.Validate(output))
}

func TestValidate_Passes(t *testing.T) {
	g := Gate{RequiredKeys: []string{"metric"}, MinNumericCount: 1, FrontierHashProof: "abc"}
	output := map[string]interface{}{"metric": float64(42), "hashProof": "abc"}
	assert.Equal(t, "", g.Validate(output))
}

func TestRunWithRetry_PassesFirstAttempt(t *testing.T) {
	result := RunWithRetry(RunWithRetryOptions{
		MaxAttempts: 3,
		AttemptFn: func(attempt int) (interface{}, error) {
			return map[string]interface{}{"metric": float64(1)}, nil
		},
		GateFn: func(output interface{}) string {
			return Gate{MinNumericCount: 1}.Validate(output)
		},
	})

	assert.True(t, result.OK)
	assert.Equal(t, 1, result.Attempts)
}

func TestRunWithRetry_RetriesThenPasses(t *testing.T) {
	attempts := 0
	result := RunWithRetry(RunWithRetryOptions{
		MaxAttempts: 3,
		AttemptFn: func(attempt int) (interface{}, error) {
			attempts++
			if attempt < 2 {
				return map[string]interface{}{}, nil
			}
			return map[string]interface{}{"metric": float64(1)}, nil
		},
		GateFn: func(output interface{}) string {
			return Gate{MinNumericCount: 1}.Validate(output)
		},
	})

	assert.True(t, result.OK)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 2, attempts)
}

func TestRunWithRetry_ExhaustsAttempts(t *testing.T) {
	tightenCalls := 0
	result := RunWithRetry(RunWithRetryOptions{
		MaxAttempts: 2,
		AttemptFn: func(attempt int) (interface{}, error) {
			return map[string]interface{}{}, nil
		},
		GateFn: func(output interface{}) string {
			return Gate{MinNumericCount: 1}.Validate(output)
		},
		TightenPromptFn: func(ctx TightenContext) {
			tightenCalls++
		},
	})

	assert.False(t, result.OK)
	assert.Equal(t, "quality_gate_failed_all_attempts", result.Reason)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 1, tightenCalls)
}

func TestRunWithRetry_AttemptFnError(t *testing.T) {
	result := RunWithRetry(RunWithRetryOptions{
		MaxAttempts: 2,
		AttemptFn: func(attempt int) (interface{}, error) {
			return nil, errors.New("adapter exploded")
		},
		GateFn: func(output interface{}) string {
			return ""
		},
	})

	assert.False(t, result.OK)
}
