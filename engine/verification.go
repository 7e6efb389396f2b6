package engine

import (
	"github.com/kestrel-run/recursion-engine/orchestrator"
	"github.com/kestrel-run/recursion-engine/validator"
)

// FrontierProofSummary is the persisted shape of one verified
// depth-frontier proof.
type FrontierProofSummary struct {
	RunID     string `json:"runId"`
	Nonce     string `json:"nonce"`
	HashProof string `json:"hashProof"`
}

// Verification is the proof artifact's "verification" section: the
// trace validator's signature/consistency findings plus an independent
// recheck of every depth-frontier hash proof.
type Verification struct {
	OK                  bool                   `json:"ok"`
	Findings            []validator.Finding    `json:"findings"`
	Depth3ProofVerified bool                   `json:"depth3ProofVerified"`
	Depth3Proofs        []FrontierProofSummary `json:"depth3Proofs"`
}

// buildVerification combines the trace validator's result with a fresh
// recomputation of every frontier proof — the proof artifact never just
// trusts the orchestrator's own bookkeeping.
func buildVerification(traceResult validator.Result, proofs []orchestrator.FrontierProof) Verification {
	summaries := make([]FrontierProofSummary, 0, len(proofs))
	allVerified := len(proofs) > 0
	for _, p := range proofs {
		if !orchestrator.VerifyFrontierProof(p) {
			allVerified = false
		}
		summaries = append(summaries, FrontierProofSummary{RunID: p.RunID, Nonce: p.Nonce, HashProof: p.HashProof})
	}

	return Verification{
		OK:                  traceResult.OK,
		Findings:            traceResult.Findings,
		Depth3ProofVerified: traceResult.OK && allVerified,
		Depth3Proofs:        summaries,
	}
}
