package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/kestrel-run/recursion-engine/asleep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProofArtifact_ComputesTraceMarker(t *testing.T) {
	artifact, err := buildProofArtifact(true, "local", "simulated", false, false, asleep.Engagement{}, Verification{OK: true}, nil, time.UnixMilli(1700000000000))
	require.NoError(t, err)
	assert.NotEmpty(t, artifact.TraceMarker)
	assert.Equal(t, int64(1700000000000), artifact.TimestampMs)
}

func TestWriteAndReadProofArtifact_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".engine", "last-proof.json")

	artifact, err := buildProofArtifact(true, "local", "simulated", false, false, asleep.Engagement{HasPreflightOk: true}, Verification{OK: true}, nil, time.Now())
	require.NoError(t, err)

	require.NoError(t, WriteProofArtifact(path, artifact))

	loaded, err := ReadProofArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, artifact.TraceMarker, loaded.TraceMarker)
	assert.True(t, loaded.Engagement.HasPreflightOk)
}

func TestWriteProofArtifact_OverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "last-proof.json")

	first, err := buildProofArtifact(true, "local", "simulated", false, false, asleep.Engagement{}, Verification{OK: true}, nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, WriteProofArtifact(path, first))

	second, err := buildProofArtifact(false, "agentic", "real", true, false, asleep.Engagement{}, Verification{OK: false}, nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, WriteProofArtifact(path, second))

	loaded, err := ReadProofArtifact(path)
	require.NoError(t, err)
	assert.False(t, loaded.OK)
	assert.Equal(t, "agentic", loaded.ContractMode)
}
