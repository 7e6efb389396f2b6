// Package registry is the authoritative record of every spawn and its
// return within one orchestrator run: it mints run IDs, enforces run-ID
// uniqueness, and tracks each run's lifecycle from spawned to returned.
package registry

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/kestrel-run/recursion-engine/core"
)

// Status values a Run can hold.
const (
	StatusSpawned  = core.RunStatusSpawned
	StatusReturned = core.RunStatusReturned
)

// Run is one run record: created on spawn, mutated exactly once by
// RegisterReturn.
type Run struct {
	RunID        string
	ParentRunID  string
	AgentName    string
	Depth        int
	InputHash    string
	OutputHash   string
	Nonce        string
	Status       string
	SpawnedAt    time.Time
	ReturnedAt   time.Time
}

// SpawnInfo is the input to RegisterSpawn.
type SpawnInfo struct {
	RunID       string
	ParentRunID string
	AgentName   string
	Depth       int
	InputHash   string
	Nonce       string
}

// ReturnInfo is the input to RegisterReturn.
type ReturnInfo struct {
	RunID      string
	OutputHash string
}

// Stats summarizes the registry's contents.
type Stats struct {
	TotalRuns    int
	TotalSpawns  int
	ReturnedRuns int
	MaxDepth     int
}

// Registry is owned by exactly one orchestrator instance; it is never
// shared across orchestrators, threads, or processes.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{runs: make(map[string]*Run)}
}

// MintRunID returns "{name}_{unixMillis}_{4 random bytes hex}". The
// collision probability is negligible for the bounded number of spawns a
// single run can ever produce.
func MintRunID(agentName string) (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("mint run id: %w", err)
	}
	ts := time.Now().UnixMilli()
	return fmt.Sprintf("%s_%d_%s", agentName, ts, hex.EncodeToString(buf)), nil
}

// RegisterSpawn inserts a new run record with status=spawned. It fails
// with core.ErrDuplicateRunID if the runId already exists.
func (r *Registry) RegisterSpawn(info SpawnInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runs[info.RunID]; exists {
		return core.NewFrameworkError("registry.RegisterSpawn", "registry", core.ErrDuplicateRunID).WithID(info.RunID)
	}

	r.runs[info.RunID] = &Run{
		RunID:       info.RunID,
		ParentRunID: info.ParentRunID,
		AgentName:   info.AgentName,
		Depth:       info.Depth,
		InputHash:   info.InputHash,
		Nonce:       info.Nonce,
		Status:      StatusSpawned,
		SpawnedAt:   time.Now(),
	}
	return nil
}

// RegisterReturn mutates a run to status=returned. It fails with
// core.ErrUnknownRunID if the run was never spawned.
func (r *Registry) RegisterReturn(info ReturnInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, exists := r.runs[info.RunID]
	if !exists {
		return core.NewFrameworkError("registry.RegisterReturn", "registry", core.ErrUnknownRunID).WithID(info.RunID)
	}

	run.Status = StatusReturned
	run.OutputHash = info.OutputHash
	run.ReturnedAt = time.Now()
	return nil
}

// HasRun reports whether runId has been spawned.
func (r *Registry) HasRun(runID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.runs[runID]
	return ok
}

// GetRun returns a copy of the run record for runId, if any.
func (r *Registry) GetRun(runID string) (Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[runID]
	if !ok {
		return Run{}, false
	}
	return *run, true
}

// GetAllRuns returns a defensive copy of every run record.
func (r *Registry) GetAllRuns() []Run {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Run, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, *run)
	}
	return out
}

// TotalSpawns returns the number of runs ever registered, used by the
// orchestrator's spawn gate to enforce the spawn budget.
func (r *Registry) TotalSpawns() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}

// GetStats summarizes the registry's current contents.
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{TotalRuns: len(r.runs)}
	for _, run := range r.runs {
		stats.TotalSpawns++
		if run.Status == StatusReturned {
			stats.ReturnedRuns++
		}
		if run.Depth > stats.MaxDepth {
			stats.MaxDepth = run.Depth
		}
	}
	return stats
}
