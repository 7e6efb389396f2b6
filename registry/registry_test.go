package registry

import (
	"errors"
	"strings"
	"testing"

	"github.com/kestrel-run/recursion-engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintRunID_Format(t *testing.T) {
	id, err := MintRunID("depth1_orchestrator")
	require.NoError(t, err)
	parts := strings.Split(id, "_")
	assert.True(t, len(parts) >= 3)
	assert.True(t, strings.HasPrefix(id, "depth1_orchestrator_"))
}

func TestMintRunID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := MintRunID("agent")
		require.NoError(t, err)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestRegisterSpawn_RejectsDuplicate(t *testing.T) {
	r := New()
	info := SpawnInfo{RunID: "run-1", AgentName: "a", Depth: 0, InputHash: "h"}
	require.NoError(t, r.RegisterSpawn(info))

	err := r.RegisterSpawn(info)
	assert.True(t, errors.Is(err, core.ErrDuplicateRunID))
}

func TestRegisterReturn_RejectsUnknownRun(t *testing.T) {
	r := New()
	err := r.RegisterReturn(ReturnInfo{RunID: "missing", OutputHash: "h"})
	assert.Error(t, err)
}

func TestRegisterReturn_MutatesRunInPlace(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterSpawn(SpawnInfo{RunID: "run-1", AgentName: "a", Depth: 1, InputHash: "h"}))
	require.NoError(t, r.RegisterReturn(ReturnInfo{RunID: "run-1", OutputHash: "out"}))

	run, ok := r.GetRun("run-1")
	require.True(t, ok)
	assert.Equal(t, StatusReturned, run.Status)
	assert.Equal(t, "out", run.OutputHash)
	assert.False(t, run.ReturnedAt.IsZero())
}

func TestHasRunAndGetAllRuns(t *testing.T) {
	r := New()
	assert.False(t, r.HasRun("run-1"))

	require.NoError(t, r.RegisterSpawn(SpawnInfo{RunID: "run-1", AgentName: "a", Depth: 0, InputHash: "h"}))
	assert.True(t, r.HasRun("run-1"))
	assert.Len(t, r.GetAllRuns(), 1)
}

func TestTotalSpawnsAndStats(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterSpawn(SpawnInfo{RunID: "run-1", AgentName: "a", Depth: 0, InputHash: "h"}))
	require.NoError(t, r.RegisterSpawn(SpawnInfo{RunID: "run-2", AgentName: "b", Depth: 3, InputHash: "h"}))
	require.NoError(t, r.RegisterReturn(ReturnInfo{RunID: "run-1", OutputHash: "o"}))

	assert.Equal(t, 2, r.TotalSpawns())

	stats := r.GetStats()
	assert.Equal(t, 2, stats.TotalRuns)
	assert.Equal(t, 2, stats.TotalSpawns)
	assert.Equal(t, 1, stats.ReturnedRuns)
	assert.Equal(t, 3, stats.MaxDepth)
}
