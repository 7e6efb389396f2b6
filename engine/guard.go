package engine

import (
	"encoding/json"
	"os"
	"time"

	"github.com/kestrel-run/recursion-engine/core"
)

// GuardVerdict is what CheckGuard returns; Error is one of the fixed
// vocabulary a proof artifact names, empty when OK.
type GuardVerdict struct {
	OK       bool
	Error    string
	Artifact ProofArtifact
}

// CheckGuard reads and validates the proof artifact at path against the
// freshness window and, when agenticRequired is set, the agentic
// contract's runtime and engagement requirements.
func CheckGuard(path string, proofMaxAgeMin int, agenticRequired bool) GuardVerdict {
	data, err := os.ReadFile(path) // nosec G304 -- operator-controlled artifact path
	if err != nil {
		return GuardVerdict{OK: false, Error: "proof_missing"}
	}

	var artifact ProofArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return GuardVerdict{OK: false, Error: "proof_invalid_json"}
	}

	if artifact.TimestampMs == 0 {
		return GuardVerdict{OK: false, Error: "missing_timestamp", Artifact: artifact}
	}
	if artifact.TimestampMs < 0 {
		return GuardVerdict{OK: false, Error: "proof_timestamp_invalid", Artifact: artifact}
	}

	age := time.Since(time.UnixMilli(artifact.TimestampMs))
	if age > time.Duration(proofMaxAgeMin)*time.Minute {
		return GuardVerdict{OK: false, Error: "proof_stale", Artifact: artifact}
	}

	if !artifact.OK {
		return GuardVerdict{OK: false, Error: "proof_failed", Artifact: artifact}
	}

	if agenticRequired {
		if artifact.RuntimeMode != core.RuntimeModeReal {
			return GuardVerdict{OK: false, Error: "agentic_contract_violated_runtime", Artifact: artifact}
		}
		e := artifact.Engagement
		if !(e.HasPreflightOk && e.HasPlanCreated && e.HasSpawnOrRequest && e.HasProofVerified) {
			return GuardVerdict{OK: false, Error: "agentic_contract_violated_engagement", Artifact: artifact}
		}
	}

	return GuardVerdict{OK: true, Artifact: artifact}
}
