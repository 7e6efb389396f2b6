// Package gate classifies a subagent's output as acceptable or not, and
// drives the retry loop a supervised spawn runs its attemptFn through.
package gate

import (
	"fmt"
	"strings"

	"github.com/kestrel-run/recursion-engine/crypto"
)

// handwavePhrases are case-insensitive substrings that mark an output as
// evasive rather than a genuine result.
var handwavePhrases = []string{
	"i guess", "seems like", "looks like", "probably", "maybe", "not sure",
	"cannot access", "no access", "i did not", "i didn't", "placeholder",
	"todo", "tbd", "coming soon", "not implemented",
}

// Gate validates a single subagent output.
type Gate struct {
	RequiredKeys    []string
	MinNumericCount int

	// FrontierHashProof, when non-empty, is the expected SHA-256(nonce +
	// ":" + runId) a frontier-depth output's hashProof field must equal.
	FrontierHashProof string
}

// Validate runs every check in a fixed order and returns the first failure
// reason, or "" if output passes every check.
func (g Gate) Validate(output interface{}) string {
	obj, ok := output.(map[string]interface{})
	if !ok || obj == nil {
		return "output_not_object"
	}

	for _, key := range g.RequiredKeys {
		if _, present := obj[key]; !present {
			return fmt.Sprintf("missing_key:%s", key)
		}
	}

	numericCount := countNumerics(output)
	if numericCount < g.MinNumericCount {
		return fmt.Sprintf("too_few_numeric_values:%d<%d", numericCount, g.MinNumericCount)
	}

	canon, err := crypto.Canonical(output)
	if err != nil {
		return "output_not_object"
	}
	lower := strings.ToLower(canon)
	for _, phrase := range handwavePhrases {
		if strings.Contains(lower, phrase) {
			return fmt.Sprintf("handwave_phrase:%s", phrase)
		}
	}

	if g.FrontierHashProof != "" {
		hashProof, _ := obj["hashProof"].(string)
		if hashProof != g.FrontierHashProof {
			return "frontier_hash_mismatch"
		}
	}

	return ""
}

// countNumerics counts every finite numeric leaf anywhere in the value
// tree (after a JSON round trip, all JSON numbers decode as float64).
func countNumerics(v interface{}) int {
	switch val := v.(type) {
	case float64:
		return 1
	case map[string]interface{}:
		count := 0
		for _, item := range val {
			count += countNumerics(item)
		}
		return count
	case []interface{}:
		count := 0
		for _, item := range val {
			count += countNumerics(item)
		}
		return count
	default:
		return 0
	}
}
