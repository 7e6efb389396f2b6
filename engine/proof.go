package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kestrel-run/recursion-engine/asleep"
	"github.com/kestrel-run/recursion-engine/crypto"
	"github.com/kestrel-run/recursion-engine/trace"
)

// DefaultProofPath is where WriteProofArtifact writes when the caller
// does not override it.
const DefaultProofPath = ".engine/last-proof.json"

// ProofArtifact is the persisted record a Guard program reads to decide
// whether follow-on agentic work may proceed.
type ProofArtifact struct {
	OK           bool               `json:"ok"`
	ContractMode string             `json:"contractMode"`
	RuntimeMode  string             `json:"runtimeMode"`
	StrictMode   bool               `json:"strictMode"`
	ForceSleep   bool               `json:"forceSleep"`
	Engagement   asleep.Engagement  `json:"engagement"`
	Verification Verification       `json:"verification"`
	Trace        []trace.Event      `json:"trace"`
	TimestampMs  int64              `json:"timestampMs"`
	Timestamp    string             `json:"timestamp"`
	TraceMarker  string             `json:"traceMarker"`
}

// buildProofArtifact assembles the artifact for one finished run.
func buildProofArtifact(ok bool, contractMode, runtimeMode string, strictMode, forceSleep bool, engagement asleep.Engagement, verification Verification, events []trace.Event, now time.Time) (ProofArtifact, error) {
	marker, err := crypto.HashHex(events)
	if err != nil {
		return ProofArtifact{}, fmt.Errorf("engine: failed to compute trace marker: %w", err)
	}

	return ProofArtifact{
		OK:           ok,
		ContractMode: contractMode,
		RuntimeMode:  runtimeMode,
		StrictMode:   strictMode,
		ForceSleep:   forceSleep,
		Engagement:   engagement,
		Verification: verification,
		Trace:        events,
		TimestampMs:  now.UnixMilli(),
		Timestamp:    now.UTC().Format(time.RFC3339),
		TraceMarker:  marker,
	}, nil
}

// WriteProofArtifact writes artifact to path atomically: encode to a
// temp file in the same directory, then rename over the destination, so
// a process terminated mid-write never leaves a truncated artifact on
// disk.
func WriteProofArtifact(path string, artifact ProofArtifact) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("engine: failed to create proof artifact directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("engine: failed to marshal proof artifact: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".last-proof-*.json.tmp")
	if err != nil {
		return fmt.Errorf("engine: failed to create temp proof artifact: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("engine: failed to write temp proof artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("engine: failed to close temp proof artifact: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("engine: failed to rename temp proof artifact into place: %w", err)
	}
	return nil
}

// ReadProofArtifact reads and parses a proof artifact from path.
func ReadProofArtifact(path string) (ProofArtifact, error) {
	data, err := os.ReadFile(path) // nosec G304 -- operator-controlled artifact path
	if err != nil {
		return ProofArtifact{}, err
	}
	var artifact ProofArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return ProofArtifact{}, err
	}
	return artifact, nil
}
